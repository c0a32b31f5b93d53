package vanbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Reference frame used throughout: iden=0x8A4, flags=0x08 (EXT only),
// data 0F 07 00 00 00 00 70.
var refFrameBytes = []byte{
	0x0E, 0x8A, 0x48, 0x0F, 0x07, 0x00, 0x00, 0x00, 0x00, 0x70, 0xFB, 0xDE,
}

func TestCrc15KnownVector(t *testing.T) {
	var crc = crc15(refFrameBytes[1 : len(refFrameBytes)-2])
	assert.Equal(t, uint16(0xFBDE), crc)
}

func TestCrc15CheckResidue(t *testing.T) {
	assert.True(t, crc15_check(refFrameBytes))

	// Any corruption must break it.
	var bad = append([]byte{}, refFrameBytes...)
	bad[4] ^= 0x40
	assert.False(t, crc15_check(bad))
}

func TestCrc15CheckTooShort(t *testing.T) {
	assert.False(t, crc15_check([]byte{0x0E, 0x12, 0x38}))
}

func TestCrc15RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var body = rapid.SliceOfN(rapid.Byte(), 2, 31).Draw(t, "body")

		var crc = crc15(body)

		// The transmitted form always has a zero low bit.
		assert.Zero(t, crc&1)

		var frame = append([]byte{SOF_BYTE}, body...)
		frame = append(frame, byte(crc>>8), byte(crc))
		require.True(t, crc15_check(frame))
	})
}
