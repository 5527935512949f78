// Package tbuf implements the triple-buffer primitive (C3): a thin typed
// accessor over one shared-memory region plus the ACK register it reports
// completion through.
//
// Grounded on a typed low-level accessor style
// (pkg/can/bus_manager.go's fixed-offset frame field accessors) and on
// original_source/blackchannel/POWERLINK/pcp/psi/tbuf.c's descriptor table
// ({base, size, ack register pointer} keyed by instance id).
package tbuf

import (
	"fmt"

	"github.com/epsg/go-psi/pkg/ami"
)

// ID is a compile-time buffer descriptor id, 0..N-1.
type ID uint8

// AckRegister is the 32-bit word whose bit i signals that buffer i has
// been consumed/produced. It starts all-ones (every buffer immediately
// available) and only the stream engine mutates it.
type AckRegister struct {
	word uint32
}

// NewAckRegister returns a register with every bit set, the required
// initial value.
func NewAckRegister() *AckRegister {
	return &AckRegister{word: 0xFFFFFFFF}
}

// Set sets bit id (the buffer is available/produced).
func (r *AckRegister) Set(id ID) {
	r.word |= 1 << uint(id)
}

// Clear clears bit id (the buffer has just been consumed and is pending).
func (r *AckRegister) Clear(id ID) {
	r.word &^= 1 << uint(id)
}

func (r *AckRegister) IsSet(id ID) bool {
	return r.word&(1<<uint(id)) != 0
}

func (r *AckRegister) Word() uint32 { return r.word }

// Buffer is one triple-buffer instance: {id, base, size, ack_register}.
type Buffer struct {
	id    ID
	data  []byte
	ack   *AckRegister
}

// New constructs a Buffer over a slice already carved out of the shared
// region by the caller (see pkg/shm). base and size being 4-byte aligned
// is a build-time property of the descriptor table, not enforced here —
// same as the original's static instance table.
func New(id ID, data []byte, ack *AckRegister) *Buffer {
	return &Buffer{id: id, data: data, ack: ack}
}

func (b *Buffer) ID() ID      { return b.id }
func (b *Buffer) Size() int   { return len(b.data) }

func (b *Buffer) checkBounds(offset, width int) error {
	if offset < 0 || offset+width > len(b.data) {
		return fmt.Errorf("tbuf: buffer %d: access [%d:%d) out of bounds (size %d)", b.id, offset, offset+width, len(b.data))
	}
	return nil
}

func (b *Buffer) WriteU8(offset int, v uint8) error {
	if err := b.checkBounds(offset, 1); err != nil {
		return err
	}
	b.data[offset] = v
	return nil
}

func (b *Buffer) ReadU8(offset int) (uint8, error) {
	if err := b.checkBounds(offset, 1); err != nil {
		return 0, err
	}
	return b.data[offset], nil
}

func (b *Buffer) WriteU16(offset int, v uint16) error {
	if err := b.checkBounds(offset, 2); err != nil {
		return err
	}
	ami.SetUint16LE(b.data[offset:offset+2], v)
	return nil
}

func (b *Buffer) ReadU16(offset int) (uint16, error) {
	if err := b.checkBounds(offset, 2); err != nil {
		return 0, err
	}
	return ami.GetUint16LE(b.data[offset : offset+2]), nil
}

func (b *Buffer) WriteU32(offset int, v uint32) error {
	if err := b.checkBounds(offset, 4); err != nil {
		return err
	}
	ami.SetUint32LE(b.data[offset:offset+4], v)
	return nil
}

func (b *Buffer) ReadU32(offset int) (uint32, error) {
	if err := b.checkBounds(offset, 4); err != nil {
		return 0, err
	}
	return ami.GetUint32LE(b.data[offset : offset+4]), nil
}

func (b *Buffer) WriteU64(offset int, v uint64) error {
	if err := b.checkBounds(offset, 8); err != nil {
		return err
	}
	ami.SetUint64LE(b.data[offset:offset+8], v)
	return nil
}

func (b *Buffer) ReadU64(offset int) (uint64, error) {
	if err := b.checkBounds(offset, 8); err != nil {
		return 0, err
	}
	return ami.GetUint64LE(b.data[offset : offset+8]), nil
}

// WriteStream copies src into the buffer at offset.
func (b *Buffer) WriteStream(offset int, src []byte) error {
	if err := b.checkBounds(offset, len(src)); err != nil {
		return err
	}
	copy(b.data[offset:offset+len(src)], src)
	return nil
}

// ReadStream copies len(dst) bytes from the buffer at offset into dst.
func (b *Buffer) ReadStream(offset int, dst []byte) error {
	if err := b.checkBounds(offset, len(dst)); err != nil {
		return err
	}
	copy(dst, b.data[offset:offset+len(dst)])
	return nil
}

// DataPtr returns the backing slice so higher layers may overlay structure
// types on the buffer directly, provided they still apply the endian codec
// (pkg/ami) on each field.
func (b *Buffer) DataPtr() []byte { return b.data }

// SetAck marks this buffer's bit in its ACK register.
func (b *Buffer) SetAck() {
	if b.ack != nil {
		b.ack.Set(b.id)
	}
}

// ClearAckBit clears this buffer's bit in its ACK register; the stream
// engine's ack_buffer(id) operation .
func (b *Buffer) ClearAckBit() {
	if b.ack != nil {
		b.ack.Clear(b.id)
	}
}
