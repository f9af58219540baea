// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestV3(t *testing.T) {
	v := V3{1, 2, 4}
	w := V3{0, -1, 2}

	var u V3
	u.Add(&v, &w)
	if u != (V3{1, 1, 6}) {
		t.Fatalf("V3.Add\nhave %v\nwant [1 1 6]", u)
	}
	u.Sub(&v, &w)
	if u != (V3{1, 3, 2}) {
		t.Fatalf("V3.Sub\nhave %v\nwant [1 3 2]", u)
	}
	u.Scale(-1, &v)
	if u != (V3{-1, -2, -4}) {
		t.Fatalf("V3.Scale\nhave %v\nwant [-1 -2 -4]", u)
	}
	u.Scale(2, &w)
	if u != (V3{0, -2, 4}) {
		t.Fatalf("V3.Scale\nhave %v\nwant [0 -2 4]", u)
	}
	if d := v.Dot(&w); d != 6 {
		t.Fatalf("V3.Dot\nhave %v\nwant 6\n", d)
	}
	if d := v.Dot(&v); d != 21 {
		t.Fatalf("V3.Dot\nhave %v\nwant 21\n", d)
	}
	if l := v.Len(); l != math32.Sqrt(21) {
		t.Fatalf("V3.Len\nhave %v\nwant %v\n", l, math32.Sqrt(21))
	}
	if l := w.Len(); l != math32.Sqrt(5) {
		t.Fatalf("V3.Len\nhave %v\nwant %v\n", l, math32.Sqrt(5))
	}

	a := V3{0, 0, -2}
	b := V3{0, 4, 0}
	var na, nb V3
	na.Norm(&a)
	if na != (V3{0, 0, -1}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 0 -1]", na)
	}
	nb.Norm(&b)
	if nb != (V3{0, 1, 0}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 1 0]", nb)
	}
	var c V3
	c.Cross(&na, &nb)
	if c != (V3{1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [1 0 0]", c)
	}
	c.Cross(&nb, &na)
	if c != (V3{-1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [-1 0 0]", c)
	}
}

func TestM4Invert(t *testing.T) {
	var m, id, inv M4
	m.I()
	m[3] = V4{1, 2, 3, 1}
	inv.Invert(&m)
	id.Mul(&m, &inv)
	var want M4
	want.I()
	for i := range id {
		for j := range id[i] {
			if d := id[i][j] - want[i][j]; d > 1e-5 || d < -1e-5 {
				t.Fatalf("M4.Invert: M * inv(M) != I\nhave %v\nwant %v", id, want)
			}
		}
	}
}

func TestQM4(t *testing.T) {
	// 90 degree rotation about Z: (0,0,sin45,cos45)
	s := math32.Sqrt(0.5)
	q := Q{V3{0, 0, s}, s}
	var m M4
	q.M4(&m)
	var v, r V4
	v = V4{1, 0, 0, 1}
	r.Mul(&m, &v)
	if d := r[1] - 1; d > 1e-5 || d < -1e-5 {
		t.Fatalf("Q.M4: rotated X axis\nhave %v\nwant Y≈1", r)
	}
}
