// Package ami implements the abstract memory interface codec: endian-safe
// reads and writes of the integer widths the PSI wire formats use, mirroring
// the "amile"/"amibig" helpers of the original stack.
package ami

import "encoding/binary"

// Widths the PSI frames use. 24/40/48/56-bit are genuine POWERLINK on-wire
// widths (packed fields such as the consecutive time base extension byte)
// that never show up in a CANopen object dictionary, so they have no analog
// in the pack and are implemented directly from the wire layout.
const (
	Width8  = 1
	Width16 = 2
	Width24 = 3
	Width32 = 4
	Width40 = 5
	Width48 = 6
	Width56 = 7
	Width64 = 8
)

// SetUint8LE/GetUint8LE exist for symmetry with the wider helpers even
// though endianness is moot at one byte.
func SetUint8LE(dst []byte, v uint8) { dst[0] = v }
func GetUint8LE(src []byte) uint8    { return src[0] }

func SetUint16LE(dst []byte, v uint16) { binary.LittleEndian.PutUint16(dst, v) }
func GetUint16LE(src []byte) uint16    { return binary.LittleEndian.Uint16(src) }

func SetUint32LE(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func GetUint32LE(src []byte) uint32    { return binary.LittleEndian.Uint32(src) }

func SetUint64LE(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }
func GetUint64LE(src []byte) uint64    { return binary.LittleEndian.Uint64(src) }

// SetUint24LE packs the low 24 bits of v into dst[0:3], little-endian.
func SetUint24LE(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
}

// GetUint24LE reads a 24-bit little-endian field, zero-extended to uint32.
func GetUint24LE(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16
}

// SetUint40LE packs the low 40 bits of v into dst[0:5], little-endian.
func SetUint40LE(dst []byte, v uint64) {
	for i := 0; i < 5; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func GetUint40LE(src []byte) uint64 {
	var v uint64
	for i := 0; i < 5; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}

// SetUint48LE packs the low 48 bits of v into dst[0:6], little-endian.
func SetUint48LE(dst []byte, v uint64) {
	for i := 0; i < 6; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func GetUint48LE(src []byte) uint64 {
	var v uint64
	for i := 0; i < 6; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}

// SetUint56LE packs the low 56 bits of v into dst[0:7], little-endian.
func SetUint56LE(dst []byte, v uint64) {
	for i := 0; i < 7; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func GetUint56LE(src []byte) uint64 {
	var v uint64
	for i := 0; i < 7; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}

// Big-endian counterparts, at the same widths as the LE side (original_source
// amibig.c). The handshake and sync-wait frames in this repository are
// little-endian and use the LE helpers.

func SetUint8BE(dst []byte, v uint8) { dst[0] = v }
func GetUint8BE(src []byte) uint8    { return src[0] }

func SetUint16BE(dst []byte, v uint16) { binary.BigEndian.PutUint16(dst, v) }
func GetUint16BE(src []byte) uint16    { return binary.BigEndian.Uint16(src) }

func SetUint32BE(dst []byte, v uint32) { binary.BigEndian.PutUint32(dst, v) }
func GetUint32BE(src []byte) uint32    { return binary.BigEndian.Uint32(src) }

func SetUint64BE(dst []byte, v uint64) { binary.BigEndian.PutUint64(dst, v) }
func GetUint64BE(src []byte) uint64    { return binary.BigEndian.Uint64(src) }

// SetUint24BE packs the low 24 bits of v into dst[0:3], big-endian.
func SetUint24BE(dst []byte, v uint32) {
	dst[0] = byte(v >> 16)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v)
}

func GetUint24BE(src []byte) uint32 {
	return uint32(src[0])<<16 | uint32(src[1])<<8 | uint32(src[2])
}

// SetUint40BE packs the low 40 bits of v into dst[0:5], big-endian.
func SetUint40BE(dst []byte, v uint64) {
	for i := 0; i < 5; i++ {
		dst[i] = byte(v >> (8 * (4 - i)))
	}
}

func GetUint40BE(src []byte) uint64 {
	var v uint64
	for i := 0; i < 5; i++ {
		v |= uint64(src[i]) << (8 * (4 - i))
	}
	return v
}

// SetUint48BE packs the low 48 bits of v into dst[0:6], big-endian.
func SetUint48BE(dst []byte, v uint64) {
	for i := 0; i < 6; i++ {
		dst[i] = byte(v >> (8 * (5 - i)))
	}
}

func GetUint48BE(src []byte) uint64 {
	var v uint64
	for i := 0; i < 6; i++ {
		v |= uint64(src[i]) << (8 * (5 - i))
	}
	return v
}

// SetUint56BE packs the low 56 bits of v into dst[0:7], big-endian.
func SetUint56BE(dst []byte, v uint64) {
	for i := 0; i < 7; i++ {
		dst[i] = byte(v >> (8 * (6 - i)))
	}
}

func GetUint56BE(src []byte) uint64 {
	var v uint64
	for i := 0; i < 7; i++ {
		v |= uint64(src[i]) << (8 * (6 - i))
	}
	return v
}
