package vanbus

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuildFrameBytesReference(t *testing.T) {
	var raw, err = build_frame_bytes(0x8A4, 0x00,
		[]byte{0x0F, 0x07, 0x00, 0x00, 0x00, 0x00, 0x70})
	require.NoError(t, err)

	assert.Equal(t, refFrameBytes, raw)
	assert.True(t, crc15_check(raw))
}

func TestBuildFrameBytesEmptyPayload(t *testing.T) {
	var raw, err = build_frame_bytes(0x123, 0x04, nil)
	require.NoError(t, err)

	// SOF, two IDEN/COM bytes, CRC: still five bytes.
	assert.Len(t, raw, RX_MIN_PACKET_LEN)
	assert.True(t, crc15_check(raw))
	assert.Zero(t, raw[len(raw)-1]&1)
}

func TestBuildFrameBytesMaxPayload(t *testing.T) {
	var raw, err = build_frame_bytes(0xFFF, 0x07, make([]byte, MAX_DATA_LEN))
	require.NoError(t, err)
	assert.Len(t, raw, RX_MAX_PACKET_LEN)

	_, err = build_frame_bytes(0xFFF, 0x07, make([]byte, MAX_DATA_LEN+1))
	assert.Error(t, err)
}

func TestBuildFrameBytesBadIden(t *testing.T) {
	var _, err = build_frame_bytes(0x1000, 0, nil)
	assert.Error(t, err)
}

func TestBuildFrameBytesComByte(t *testing.T) {
	// Bit 3 of the COM nibble is always 1; only RAK/RW/RTR pass through.
	var raw, err = build_frame_bytes(0x8A4, 0xFF, nil)
	require.NoError(t, err)
	assert.Equal(t, byte(0x4F), raw[2])
}

func TestTxPacketFrame(t *testing.T) {
	var p TxPacket
	require.NoError(t, p.frame(0x8A4, 0, []byte{0x0F, 0x07, 0x00, 0x00, 0x00, 0x00, 0x70}))

	assert.Equal(t, len(refFrameBytes)+1, p.NSymbols)
	assert.Equal(t, len(refFrameBytes)-1, p.EodIndex)
	assert.Equal(t, TX_WAITING, p.State)

	// First symbol is the SOF.
	assert.Equal(t, uint16(SOF_SYMBOL), p.Symbols[0])

	// The EOD symbol ends in two dominant slots.
	assert.Zero(t, p.Symbols[p.EodIndex]&0x003)

	// The tail symbol idles the bus through ACK and EOF.
	assert.Equal(t, uint16(0x3FF), p.Symbols[p.NSymbols-1])
}

func TestTxPacketSymbolBit(t *testing.T) {
	var p TxPacket
	require.NoError(t, p.frame(0x8A4, 0, nil))

	// The first ten bits replay the SOF pattern 00 0011 1101.
	var want = []int{0, 0, 0, 0, 1, 1, 1, 1, 0, 1}
	for i, w := range want {
		assert.Equal(t, w, p.symbol_bit(i), "bit %d", i)
	}
}

func TestFrameRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var iden = uint16(rapid.IntRange(0, 0xFFF).Draw(t, "iden"))
		var flags = byte(rapid.IntRange(0, 7).Draw(t, "flags"))
		var data = rapid.SliceOfN(rapid.Byte(), 0, MAX_DATA_LEN).Draw(t, "data")

		var raw, err = build_frame_bytes(iden, flags, data)
		require.NoError(t, err)
		require.True(t, crc15_check(raw))

		var p RxPacket
		copy(p.Bytes[:], raw)
		p.Length = len(raw)

		assert.True(t, p.CheckCrc())
		assert.Equal(t, iden, p.Iden())
		assert.Equal(t, 0x08|flags, p.CommandFlags())
		assert.Equal(t, len(data), p.DataLen())
		assert.True(t, bytes.Equal(data, p.Data()))
		assert.Zero(t, p.Bytes[p.Length-1]&1)
	})
}
