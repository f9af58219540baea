package klems

import (
	"bytes"
	"testing"

	"github.com/embervale/photon/serial"
)

func TestDirectionInversionTable(t *testing.T) {
	cases := map[string]Component{
		"Transmission Front": BackTransmission,
		"Transmission Back":  FrontTransmission,
		"Scattering Front":   BackReflection,
		"Reflection Front":   BackReflection,
		"Scattering Back":    FrontReflection,
		"Reflection Back":    FrontReflection,
	}
	for tag, want := range cases {
		got, ok := invertDirection(tag)
		if !ok || got != want {
			t.Errorf("invertDirection(%q) = %v, %v; want %v", tag, got, ok, want)
		}
	}
	if _, ok := invertDirection("Nonsense"); ok {
		t.Error("expected invertDirection to reject an unknown tag")
	}
}

func TestBasisSortsByUpperTheta(t *testing.T) {
	b := NewBasis([]ThetaRow{
		{UpperTheta: 90, PhiCount: 8},
		{UpperTheta: 10, PhiCount: 1},
		{UpperTheta: 45, PhiCount: 4},
	})
	want := []float32{10, 45, 90}
	for i, r := range b.Rows {
		if r.UpperTheta != want[i] {
			t.Fatalf("Rows[%d].UpperTheta = %v, want %v", i, r.UpperTheta, want[i])
		}
	}
	// Perm[original] = sorted position.
	if b.Perm[0] != 2 || b.Perm[1] != 0 || b.Perm[2] != 1 {
		t.Fatalf("Perm = %v", b.Perm)
	}
	if b.EntryCount() != 1+4+8 {
		t.Fatalf("EntryCount = %d", b.EntryCount())
	}
	if b.Offsets[0] != 0 || b.Offsets[1] != 1 || b.Offsets[2] != 5 {
		t.Fatalf("Offsets = %v", b.Offsets)
	}
}

func TestBuildColumnCDFUniformFallback(t *testing.T) {
	b := NewBasis([]ThetaRow{
		{UpperTheta: 1, PhiCount: 1, PhiSolidAngle: 1},
		{UpperTheta: 2, PhiCount: 1, PhiSolidAngle: 1},
		{UpperTheta: 3, PhiCount: 1, PhiSolidAngle: 1},
	})
	m := &Matrix{Row: b, Col: b, Data: make([]float32, 9)} // all-zero column
	cdf := buildColumnCDF(m)
	nr := b.EntryCount()
	for c := 0; c < nr; c++ {
		last := cdf[c*nr+(nr-1)]
		if last != 1 {
			t.Fatalf("column %d last CDF entry = %v, want 1", c, last)
		}
		for r := 0; r < nr; r++ {
			want := float32(r+1) / float32(nr)
			if got := cdf[c*nr+r]; got != want {
				t.Fatalf("column %d row %d = %v, want %v (uniform ramp)", c, r, got, want)
			}
		}
	}
}

func TestBuildColumnCDFNormalizes(t *testing.T) {
	b := NewBasis([]ThetaRow{
		{UpperTheta: 1, PhiCount: 1, PhiSolidAngle: 1},
		{UpperTheta: 2, PhiCount: 1, PhiSolidAngle: 1},
	})
	// 2x2, column 0 = [1,3], column 1 = [0,0] (falls back to uniform).
	m := &Matrix{Row: b, Col: b, Data: []float32{1, 0, 3, 0}}
	cdf := buildColumnCDF(m)
	nr := 2
	// column 0, transposed storage cdf[c*nr+r]
	if cdf[0*nr+1] != 1 {
		t.Fatalf("column 0 last entry = %v, want 1", cdf[0*nr+1])
	}
	if cdf[1*nr+0] != 0.5 || cdf[1*nr+1] != 1 {
		t.Fatalf("column 1 (zero) = [%v %v], want uniform ramp", cdf[1*nr+0], cdf[1*nr+1])
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	b := NewBasis([]ThetaRow{
		{CenterTheta: 0.1, LowerTheta: 0, UpperTheta: 0.2, PhiCount: 1, PhiSolidAngle: 1},
		{CenterTheta: 0.5, LowerTheta: 0.2, UpperTheta: 0.8, PhiCount: 2, PhiSolidAngle: 1},
	})
	m := &Matrix{Row: b, Col: b, Data: []float32{1, 2, 3, 1, 2, 3, 1, 2, 3}}
	m.CDF = buildColumnCDF(m)
	var doc Document
	for c := range doc.Components {
		doc.Components[c] = m
	}

	var buf bytes.Buffer
	w := serial.NewWriter(&buf)
	Export(w, &doc)
	if w.Error() != nil {
		t.Fatalf("Export: %v", w.Error())
	}
	if w.CurrentSize()%16 != 0 {
		t.Fatalf("exported size %d not 16-byte aligned", w.CurrentSize())
	}

	r := serial.NewReader(&buf)
	got := Import(r)
	if r.Error() != nil {
		t.Fatalf("Import: %v", r.Error())
	}
	for c, gm := range got.Components {
		if len(gm.Data) != len(m.Data) {
			t.Fatalf("component %d: Data length = %d, want %d", c, len(gm.Data), len(m.Data))
		}
		for i := range gm.Data {
			if gm.Data[i] != m.Data[i] {
				t.Fatalf("component %d: Data[%d] = %v, want %v", c, i, gm.Data[i], m.Data[i])
			}
		}
	}
}
