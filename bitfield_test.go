package egnosgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_GetBitU_MSBFirst(t *testing.T) {
	assert := assert.New(t)
	buff := []byte{0b10110000}
	assert.EqualValues(1, GetBitU(buff, 0, 1))
	assert.EqualValues(0, GetBitU(buff, 1, 1))
	assert.EqualValues(0b1011, GetBitU(buff, 0, 4))
}

func Test_GetBits_TwosComplement(t *testing.T) {
	assert := assert.New(t)
	// 8-bit field holding 0xFF (all ones) must sign-extend to -1, per
	// spec.md 9: raw > 2^(n-1)-1 => raw -= 2^n.
	buff := []byte{0xFF}
	assert.EqualValues(-1, GetBits(buff, 0, 8))

	// 0x7F (0111_1111) is the largest positive 8-bit value.
	buff = []byte{0x7F}
	assert.EqualValues(127, GetBits(buff, 0, 8))

	// 0x80 (1000_0000) is the most negative 8-bit value.
	buff = []byte{0x80}
	assert.EqualValues(-128, GetBits(buff, 0, 8))
}

func Test_GetBits_NarrowField(t *testing.T) {
	assert := assert.New(t)
	// a 12-bit field of all ones at an arbitrary bit offset.
	buff := []byte{0x00, 0x0F, 0xFF, 0x00}
	assert.EqualValues(-1, GetBits(buff, 12, 12))
}

func Test_bitsAvailable(t *testing.T) {
	assert := assert.New(t)
	buff := make([]byte, 32) // 256 bits
	assert.True(bitsAvailable(buff, 0, 256))
	assert.False(bitsAvailable(buff, 0, 257))
	assert.False(bitsAvailable(nil, 0, 1))
}

func Test_signExtend_matchesGetBits(t *testing.T) {
	assert := assert.New(t)
	for _, raw := range []uint32{0, 1, 0x7FF, 0x800, 0xFFF} {
		buff := []byte{byte(raw >> 4), byte(raw << 4)}
		want := GetBits(buff, 0, 12)
		got := signExtend(raw, 12)
		assert.Equal(want, got)
	}
}
