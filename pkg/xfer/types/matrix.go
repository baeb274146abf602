package types

// Matrix3D is an affine transform stored as three rows of four values.
// The fourth column holds the translation.
type Matrix3D [3][4]float32

// IdentityMatrix3D returns the identity transform.
func IdentityMatrix3D() Matrix3D {
	return Matrix3D{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// Set assigns the twelve values row by row.
func (m *Matrix3D) Set(
	m11, m12, m13, m14,
	m21, m22, m23, m24,
	m31, m32, m33, m34 float32,
) {
	*m = Matrix3D{
		{m11, m12, m13, m14},
		{m21, m22, m23, m24},
		{m31, m32, m33, m34},
	}
}

// Multiply returns a*b, treating both as 4x4 matrices with an implicit
// bottom row of 0 0 0 1.
func Multiply(a, b Matrix3D) Matrix3D {
	var out Matrix3D
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			v := a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
			if j == 3 {
				v += a[i][3]
			}
			out[i][j] = v
		}
	}
	return out
}

// Inverse returns the inverse of m. ok is false when the rotation part is
// singular, in which case the identity is returned.
func (m Matrix3D) Inverse() (inv Matrix3D, ok bool) {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]

	c00 := e*i - f*h
	c01 := -(d*i - f*g)
	c02 := d*h - e*g
	det := a*c00 + b*c01 + c*c02
	if det == 0 {
		return IdentityMatrix3D(), false
	}
	invDet := 1 / det

	inv[0][0] = c00 * invDet
	inv[0][1] = -(b*i - c*h) * invDet
	inv[0][2] = (b*f - c*e) * invDet
	inv[1][0] = c01 * invDet
	inv[1][1] = (a*i - c*g) * invDet
	inv[1][2] = -(a*f - c*d) * invDet
	inv[2][0] = c02 * invDet
	inv[2][1] = -(a*h - b*g) * invDet
	inv[2][2] = (a*e - b*d) * invDet

	tx, ty, tz := m[0][3], m[1][3], m[2][3]
	for r := 0; r < 3; r++ {
		inv[r][3] = -(inv[r][0]*tx + inv[r][1]*ty + inv[r][2]*tz)
	}
	return inv, true
}
