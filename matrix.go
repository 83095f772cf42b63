package egnosgo

import "math"

// Fixed small-matrix linear algebra (spec.md 4.2), grounded on
// original_source/jni/Matrix.c (lorentz_4_4, inv_44, multiply, transpose)
// for the 3x3/4x4 primitives, and on FengXuebin-gnssgo/src/common.go's
// generic Mat/MatMul/MatInv/LSQ for the rectangular N x 4 solver-side
// operations (N <= MaxSat per spec.md 5).

// Lorentz4 is the Minkowski inner product <a,b> = a0b0+a1b1+a2b2-a3b3 used
// by the Bancroft solver (spec.md 4.2, 4.10).
func Lorentz4(a, b [4]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] - a[3]*b[3]
}

// Det3 is the cofactor-expansion determinant of a 3x3 matrix.
func Det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inv3 inverts a 3x3 matrix by cofactor expansion. ok is false when the
// matrix is singular (det == 0); spec.md 4.2 notes no pivoting is needed
// at the problem sizes encountered, so a plain determinant guard suffices.
func Inv3(m [3][3]float64) (inv [3][3]float64, ok bool) {
	det := Det3(m)
	if det == 0 {
		return inv, false
	}
	invDet := 1.0 / det
	inv[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * invDet
	inv[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * invDet
	inv[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * invDet
	inv[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * invDet
	inv[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * invDet
	inv[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * invDet
	inv[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * invDet
	inv[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * invDet
	inv[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * invDet
	return inv, true
}

// Det4 is the cofactor-expansion determinant of a 4x4 matrix along row 0,
// grounded on original_source/jni/Matrix.c's determinant helper.
func Det4(m [4][4]float64) float64 {
	var det float64
	for col := 0; col < 4; col++ {
		det += sign4(col) * m[0][col] * minor4(m, 0, col)
	}
	return det
}

func sign4(col int) float64 {
	if col%2 == 0 {
		return 1
	}
	return -1
}

// minor4 is the 3x3 minor obtained by deleting row r and column c.
func minor4(m [4][4]float64, r, c int) float64 {
	var sub [3][3]float64
	si := 0
	for i := 0; i < 4; i++ {
		if i == r {
			continue
		}
		sj := 0
		for j := 0; j < 4; j++ {
			if j == c {
				continue
			}
			sub[si][sj] = m[i][j]
			sj++
		}
		si++
	}
	return Det3(sub)
}

// Inv4 inverts a 4x4 matrix by cofactor expansion (adjugate/det), grounded
// on original_source/jni/Matrix.c's inv_44. ok is false when singular.
func Inv4(m [4][4]float64) (inv [4][4]float64, ok bool) {
	det := Det4(m)
	if det == 0 {
		return inv, false
	}
	invDet := 1.0 / det
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			cofactor := sign4(i) * sign4(j) * minor4(m, i, j)
			inv[j][i] = cofactor * invDet // transpose for adjugate
		}
	}
	return inv, true
}

// Mat is a dense row-major matrix with n rows, m columns, used for the
// N x 4 solver-side geometry matrix (N <= MaxSat), grounded on
// FengXuebin-gnssgo/src/common.go's Mat helper.
type Mat struct {
	N, M int
	Data []float64
}

func NewMat(n, m int) *Mat {
	return &Mat{N: n, M: m, Data: make([]float64, n*m)}
}

func (a *Mat) At(i, j int) float64     { return a.Data[i*a.M+j] }
func (a *Mat) Set(i, j int, v float64) { a.Data[i*a.M+j] = v }

// Transpose returns a^T.
func (a *Mat) Transpose() *Mat {
	t := NewMat(a.M, a.N)
	for i := 0; i < a.N; i++ {
		for j := 0; j < a.M; j++ {
			t.Set(j, i, a.At(i, j))
		}
	}
	return t
}

// Mul returns a*b.
func (a *Mat) Mul(b *Mat) *Mat {
	if a.M != b.N {
		panic("egnosgo: matrix dimension mismatch in Mul")
	}
	c := NewMat(a.N, b.M)
	for i := 0; i < a.N; i++ {
		for j := 0; j < b.M; j++ {
			var s float64
			for k := 0; k < a.M; k++ {
				s += a.At(i, k) * b.At(k, j)
			}
			c.Set(i, j, s)
		}
	}
	return c
}

// Sub returns a-b.
func (a *Mat) Sub(b *Mat) *Mat {
	c := NewMat(a.N, a.M)
	for i := range a.Data {
		c.Data[i] = a.Data[i] - b.Data[i]
	}
	return c
}

// Inv4x4 inverts a square 4x4 Mat via Inv4, used by the WLS solver when
// assembling H^tWH from a dynamically-sized H (spec.md 4.2, 4.10).
func (a *Mat) Inv4x4() (*Mat, bool) {
	if a.N != 4 || a.M != 4 {
		panic("egnosgo: Inv4x4 requires a 4x4 matrix")
	}
	var m [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m[i][j] = a.At(i, j)
		}
	}
	inv, ok := Inv4(m)
	if !ok {
		return nil, false
	}
	r := NewMat(4, 4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r.Set(i, j, inv[i][j])
		}
	}
	return r, true
}

// Inv3x3 is the Mat-shaped analogue of Inv3, used by TwoDHold's normal
// equations when only the horizontal+clock (x, y, c*dt) block is solved.
func (a *Mat) Inv3x3() (*Mat, bool) {
	if a.N != 3 || a.M != 3 {
		panic("egnosgo: Inv3x3 requires a 3x3 matrix")
	}
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = a.At(i, j)
		}
	}
	inv, ok := Inv3(m)
	if !ok {
		return nil, false
	}
	r := NewMat(3, 3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.Set(i, j, inv[i][j])
		}
	}
	return r, true
}

// solveKepler solves E = M + e*sin(E) by 10 fixed iterations starting at
// E=M, matching spec.md 4.6 step 3 and original_source/jni/Positioning.c's
// SV_position_computation (which also fixes the iteration count at 10
// rather than iterating to a tolerance).
func solveKepler(m, e float64) float64 {
	ek := m
	for i := 0; i < 10; i++ {
		ek = m + e*math.Sin(ek)
	}
	return ek
}
