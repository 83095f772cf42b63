package egnosgo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Lorentz4(t *testing.T) {
	assert := assert.New(t)
	a := [4]float64{1, 2, 3, 4}
	b := [4]float64{5, 6, 7, 8}
	assert.InDelta(1*5+2*6+3*7-4*8, Lorentz4(a, b), 1e-12)
}

func Test_Inv3_RoundTrip(t *testing.T) {
	assert := assert.New(t)
	m := [3][3]float64{
		{4, 7, 2},
		{3, 5, 1},
		{1, 2, 9},
	}
	inv, ok := Inv3(m)
	assert.True(ok)
	// m * inv should be the identity.
	var prod [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += m[i][k] * inv[k][j]
			}
			prod[i][j] = s
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(want, prod[i][j], 1e-9)
		}
	}
}

func Test_Inv3_Singular(t *testing.T) {
	assert := assert.New(t)
	m := [3][3]float64{{1, 2, 3}, {2, 4, 6}, {1, 1, 1}}
	_, ok := Inv3(m)
	assert.False(ok)
}

func Test_Inv4_RoundTrip(t *testing.T) {
	assert := assert.New(t)
	m := [4][4]float64{
		{2, 0, 0, 1},
		{0, 3, 0, 0},
		{1, 0, 4, 0},
		{0, 0, 0, 5},
	}
	inv, ok := Inv4(m)
	assert.True(ok)
	var prod [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * inv[k][j]
			}
			prod[i][j] = s
		}
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(want, prod[i][j], 1e-9)
		}
	}
}

func Test_solveKepler(t *testing.T) {
	assert := assert.New(t)
	e := 0.01
	m := 1.2
	ek := solveKepler(m, e)
	assert.InDelta(m, ek-e*math.Sin(ek), 1e-10)
}

func Test_MatMulTranspose(t *testing.T) {
	assert := assert.New(t)
	a := NewMat(2, 3)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			a.Set(i, j, float64(i*3+j+1))
		}
	}
	at := a.Transpose()
	assert.Equal(3, at.N)
	assert.Equal(2, at.M)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(a.At(i, j), at.At(j, i))
		}
	}
}
