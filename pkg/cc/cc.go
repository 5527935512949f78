// Package cc implements the Configuration Channel (C8): a sequence-
// numbered, per-object reliable write channel between the application and
// the remote object dictionary, plus readback of the last known value in
// either direction.
//
// Grounded on pkg/sdo's segmented-transfer bookkeeping style (per-object
// cursor, timeout counter) adapted to the CC's whole-object, not
// segmented, wire frame, and on config.ObjectDef for the object list.
package cc

import (
	"errors"
	"sync"

	"github.com/epsg/go-psi/pkg/config"
	"github.com/epsg/go-psi/pkg/errorhandler"
	"github.com/epsg/go-psi/pkg/seqnr"
	"github.com/epsg/go-psi/pkg/tbuf"
)

// Wire layout of one CC frame, both directions: {seq:u8 | reserved:u8*3 | index:u16 | subindex:u8 | reserved:u8 | data[]}
const headerLen = 8

var (
	ErrUnknownObject = errors.New("cc: object not in configured list")
	ErrSizeMismatch  = errors.New("cc: payload size does not match object definition")
)

// ObjectStore is the application-provided backing store for configured
// objects; a remote-applied write is written through it.
type ObjectStore interface {
	WriteObject(index uint16, subindex uint8, data []byte) error
	ReadObject(index uint16, subindex uint8) ([]byte, error)
}

type objectKey struct {
	index    uint16
	subindex uint8
}

// Channel is the Configuration Channel instance. Only one local write is
// in flight at a time: WriteObject returns errorhandler.ErrChannelBusy
// until that write is confirmed or its timeout expires. The cache holds
// the most recent accepted local write or applied remote write.
type Channel struct {
	mu sync.Mutex

	objects map[objectKey]config.ObjectDef
	store   ObjectStore
	errs    *errorhandler.Handler

	rxSeq seqnr.SeqNr // last sequence number applied from a remote-initiated write

	cache map[objectKey][]byte // last known value per object, for ReadObject

	txSeq      seqnr.SeqNr // sequence number of the in-flight local write
	txKey      objectKey
	txPayload  []byte
	txInFlight bool

	timeoutCycles   int
	cyclesRemaining int
}

func New(objects []config.ObjectDef, store ObjectStore, errs *errorhandler.Handler, timeoutCycles int) *Channel {
	m := make(map[objectKey]config.ObjectDef, len(objects))
	for _, o := range objects {
		m[objectKey{o.Index, o.Subindex}] = o
	}
	return &Channel{
		objects:       m,
		store:         store,
		errs:          errs,
		timeoutCycles: timeoutCycles,
		cache:         make(map[objectKey][]byte, len(objects)),
	}
}

// WriteObject stages data as the value of the configured object
// {index, subindex} and arms a transmit for the next EncodeOutbound
// cycle. It returns ErrChannelBusy if a previous write is still awaiting
// confirmation, ErrUnknownObject if the object isn't in the configured
// list, or ErrSizeMismatch if data's length doesn't match the object's
// declared size.
func (c *Channel) WriteObject(index uint16, subindex uint8, data []byte) error {
	key := objectKey{index, subindex}

	c.mu.Lock()
	defer c.mu.Unlock()

	def, ok := c.objects[key]
	if !ok {
		c.reportLocked(errorhandler.KindInvalidParameter)
		return ErrUnknownObject
	}
	if int(def.Size) != len(data) {
		return ErrSizeMismatch
	}
	if c.txInFlight {
		return errorhandler.ErrChannelBusy
	}

	payload := append([]byte(nil), data...)
	c.cache[key] = payload
	c.txKey = key
	c.txPayload = payload
	c.txSeq = c.txSeq.Next()
	c.txInFlight = true
	c.cyclesRemaining = c.timeoutCycles
	return nil
}

// ReadObject returns the last known value of {index, subindex} — whether
// cached from a remote-applied write or staged by a local WriteObject —
// and whether the object is in the configured list at all.
func (c *Channel) ReadObject(index uint16, subindex uint8) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache[objectKey{index, subindex}]
	return v, ok
}

// DecodeInbound is the pre-action: accept a freshly reported object value
// from the remote, validate it against the object list, apply it to the
// store, and cache it for ReadObject.
func (c *Channel) DecodeInbound(buf *tbuf.Buffer) error {
	seqByte, err := buf.ReadU8(0)
	if err != nil {
		return err
	}
	if !seqnr.Valid(seqByte) {
		return errorhandler.ErrInvalidBuffer
	}
	seq := seqnr.SeqNr(seqByte)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq == seqnr.Invalid || seq == c.rxSeq {
		// No new write this cycle (or channel idle): nothing to do.
		return nil
	}

	index, err := buf.ReadU16(4)
	if err != nil {
		return err
	}
	subindex, err := buf.ReadU8(6)
	if err != nil {
		return err
	}
	key := objectKey{index, subindex}

	def, ok := c.objects[key]
	if !ok {
		c.reportLocked(errorhandler.KindInvalidParameter)
		return ErrUnknownObject
	}

	payload := make([]byte, def.Size)
	if int(def.Size) > buf.Size()-headerLen {
		return ErrSizeMismatch
	}
	if err := buf.ReadStream(headerLen, payload); err != nil {
		return err
	}

	if c.store != nil {
		if err := c.store.WriteObject(index, subindex, payload); err != nil {
			return err
		}
	}

	c.cache[key] = payload
	c.rxSeq = seq
	return nil
}

// EncodeOutbound is the post-action: emit the staged local write, if any,
// as {seq, index, subindex, payload}, or an Invalid-seq frame when the
// channel is idle. It counts down the per-write timeout until
// ConfirmDelivered reports the remote has applied it.
func (c *Channel) EncodeOutbound(buf *tbuf.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.txInFlight {
		return buf.WriteU8(0, uint8(seqnr.Invalid))
	}

	c.cyclesRemaining--
	if c.cyclesRemaining <= 0 {
		c.txInFlight = false
		c.reportLocked(errorhandler.KindTimeout)
		return buf.WriteU8(0, uint8(seqnr.Invalid))
	}

	if err := buf.WriteU8(0, uint8(c.txSeq)); err != nil {
		return err
	}
	if err := buf.WriteU16(4, c.txKey.index); err != nil {
		return err
	}
	if err := buf.WriteU8(6, c.txKey.subindex); err != nil {
		return err
	}
	return buf.WriteStream(headerLen, c.txPayload)
}

// ConfirmDelivered is called once the status channel reports the remote
// has observed our in-flight write's sequence number (icc_status),
// releasing the channel for the next WriteObject.
func (c *Channel) ConfirmDelivered(ackSeq seqnr.SeqNr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txInFlight && ackSeq == c.txSeq {
		c.txInFlight = false
	}
}

// Busy reports whether a local write is still awaiting confirmation.
func (c *Channel) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txInFlight
}

func (c *Channel) reportLocked(kind errorhandler.Kind) {
	if c.errs == nil {
		return
	}
	c.errs.Report(errorhandler.Report{Source: "cc", Severity: errorhandler.SeverityMinor, Kind: kind})
}
