// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

// M4FromTRS builds m from a translation, rotation quaternion and
// non-uniform scale, in that composition order (T ⋅ R ⋅ S).
func M4FromTRS(pos *V3, rot *Q, scale *V3) (m M4) {
	var r M4
	rot.M4(&r)
	m = r
	for i := range m {
		for j := 0; j < 3; j++ {
			m[i][j] *= scale[i]
		}
	}
	m[3] = V4{pos[0], pos[1], pos[2], 1}
	return
}

// M4 sets m to the rotation matrix equivalent to q.
// q is assumed to be normalized.
func (q *Q) M4(m *M4) {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.R
	x2, y2, z2 := x+x, y+y, z+z
	xx, yy, zz := x*x2, y*y2, z*z2
	xy, xz, yz := x*y2, x*z2, y*z2
	wx, wy, wz := w*x2, w*y2, w*z2
	*m = M4{
		{1 - (yy + zz), xy + wz, xz - wy, 0},
		{xy - wz, 1 - (xx + zz), yz + wx, 0},
		{xz + wy, yz - wx, 1 - (xx + yy), 0},
		{0, 0, 0, 1},
	}
}
