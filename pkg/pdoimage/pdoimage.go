// Package pdoimage implements the RPDO/TPDO image exchange (C7): the
// stream engine pre/post actions that copy the shared-memory process
// image into/out of the application's own buffers and invoke the user's
// PDO callback once per cycle.
//
// Grounded on pkg/pdo/common.go's PDOCommon (streamer table, nbMapped,
// Valid flag) and original_source/.../appif/appif-pdo.c's
// PDO_CHANNEL_DEACTIVATED convention: a channel whose backing pointer is
// nil is simply skipped, not an error.
package pdoimage

import (
	"github.com/epsg/go-psi/pkg/tbuf"
)

// Channel is one direction's (RPDO or TPDO) process image overlay. A
// Channel with a nil Image is PDO_CHANNEL_DEACTIVATED: DecodeInto /
// EncodeFrom become no-ops rather than errors, since a deactivated
// channel is a normal, expected configuration.
type Channel struct {
	// Image is the application-owned buffer the channel copies into
	// (RPDO) or out of (TPDO). A nil Image deactivates the channel.
	Image []byte
}

func NewChannel(image []byte) *Channel {
	return &Channel{Image: image}
}

func (c *Channel) Deactivated() bool { return c == nil || c.Image == nil }

// DecodeInto is the RPDO pre-action: copy the shared buffer's contents
// into the channel's process image.
func (c *Channel) DecodeInto(buf *tbuf.Buffer) error {
	if c.Deactivated() {
		return nil
	}
	n := len(c.Image)
	if n > buf.Size() {
		n = buf.Size()
	}
	return buf.ReadStream(0, c.Image[:n])
}

// EncodeFrom is the TPDO post-action: copy the channel's process image
// out into the shared buffer.
func (c *Channel) EncodeFrom(buf *tbuf.Buffer) error {
	if c.Deactivated() {
		return nil
	}
	n := len(c.Image)
	if n > buf.Size() {
		n = buf.Size()
	}
	return buf.WriteStream(0, c.Image[:n])
}

// SyncCallback is invoked once per cycle, after RPDO images are fresh and
// before TPDO images are captured, so the application can read inputs and
// produce outputs in between.
type SyncCallback func(rpdo, tpdo *Channel) error

// Exchange wires one RPDO and one TPDO channel to a single user callback,
// matching the single combined sync callback the stream engine exposes
// (the "one user sync callback per cycle" requirement).
type Exchange struct {
	Rpdo *Channel
	Tpdo *Channel
	cb   SyncCallback
}

func NewExchange(rpdo, tpdo *Channel, cb SyncCallback) *Exchange {
	return &Exchange{Rpdo: rpdo, Tpdo: tpdo, cb: cb}
}

// RunSync invokes the registered callback with both channels, the
// shape the stream engine's RegisterSyncCallback expects.
func (e *Exchange) RunSync() error {
	if e.cb == nil {
		return nil
	}
	return e.cb(e.Rpdo, e.Tpdo)
}
