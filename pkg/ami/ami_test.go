package ami

import "testing"

import "github.com/stretchr/testify/require"

func TestRoundTripLE(t *testing.T) {
	buf24 := make([]byte, 3)
	SetUint24LE(buf24, 0x00ABCDEF)
	require.Equal(t, uint32(0x00ABCDEF), GetUint24LE(buf24))

	buf40 := make([]byte, 5)
	SetUint40LE(buf40, 0x000000ABCDEF0102)
	require.Equal(t, uint64(0x000000ABCDEF0102), GetUint40LE(buf40))

	buf48 := make([]byte, 6)
	SetUint48LE(buf48, 0x0000AABBCCDDEEFF)
	require.Equal(t, uint64(0x0000AABBCCDDEEFF), GetUint48LE(buf48))

	buf56 := make([]byte, 7)
	SetUint56LE(buf56, 0x00AABBCCDDEEFF11)
	require.Equal(t, uint64(0x00AABBCCDDEEFF11), GetUint56LE(buf56))
}

func TestRoundTripWidths(t *testing.T) {
	b8 := make([]byte, 1)
	SetUint8LE(b8, 0x42)
	require.Equal(t, uint8(0x42), GetUint8LE(b8))

	b16 := make([]byte, 2)
	SetUint16LE(b16, 0xBEEF)
	require.Equal(t, uint16(0xBEEF), GetUint16LE(b16))

	b32 := make([]byte, 4)
	SetUint32LE(b32, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), GetUint32LE(b32))

	b64 := make([]byte, 8)
	SetUint64LE(b64, 0x0123456789ABCDEF)
	require.Equal(t, uint64(0x0123456789ABCDEF), GetUint64LE(b64))
}

func TestBigEndianHeader(t *testing.T) {
	b16 := make([]byte, 2)
	SetUint16BE(b16, 0x1234)
	require.Equal(t, []byte{0x12, 0x34}, b16)
	require.Equal(t, uint16(0x1234), GetUint16BE(b16))
}

func TestRoundTripBE(t *testing.T) {
	b8 := make([]byte, 1)
	SetUint8BE(b8, 0x42)
	require.Equal(t, uint8(0x42), GetUint8BE(b8))

	b24 := make([]byte, 3)
	SetUint24BE(b24, 0x00ABCDEF)
	require.Equal(t, []byte{0xAB, 0xCD, 0xEF}, b24)
	require.Equal(t, uint32(0x00ABCDEF), GetUint24BE(b24))

	b32 := make([]byte, 4)
	SetUint32BE(b32, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), GetUint32BE(b32))

	b40 := make([]byte, 5)
	SetUint40BE(b40, 0x000000ABCDEF0102)
	require.Equal(t, []byte{0xAB, 0xCD, 0xEF, 0x01, 0x02}, b40)
	require.Equal(t, uint64(0x000000ABCDEF0102), GetUint40BE(b40))

	b48 := make([]byte, 6)
	SetUint48BE(b48, 0x0000AABBCCDDEEFF)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, b48)
	require.Equal(t, uint64(0x0000AABBCCDDEEFF), GetUint48BE(b48))

	b56 := make([]byte, 7)
	SetUint56BE(b56, 0x00AABBCCDDEEFF11)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11}, b56)
	require.Equal(t, uint64(0x00AABBCCDDEEFF11), GetUint56BE(b56))

	b64 := make([]byte, 8)
	SetUint64BE(b64, 0x0123456789ABCDEF)
	require.Equal(t, uint64(0x0123456789ABCDEF), GetUint64BE(b64))
}
