// Package ssdo implements one SSDO asynchronous channel (C9): a reliable,
// sequence-numbered, fire-and-forget-with-retry transport for
// service-data payloads riding inside the cyclic process image.
//
// Grounded on internal/fifo's alt-cursor retry scheme (stage a transmit,
// commit only once acknowledged, otherwise replay the same bytes) and on
// pkg/sdo's single-transfer-in-flight-at-a-time discipline, adapted from
// segmented bulk transfer to SSDO's whole-payload-per-frame framing.
package ssdo

import (
	"sync"

	"github.com/epsg/go-psi/internal/fifo"
	"github.com/epsg/go-psi/pkg/errorhandler"
	"github.com/epsg/go-psi/pkg/seqnr"
	"github.com/epsg/go-psi/pkg/tbuf"
)

// RxHandler receives a fully reassembled inbound payload. It runs
// synchronously from the pre-action, so it must not block.
type RxHandler func(payload []byte)

// Channel is one SSDO instance; the framework composition root owns one
// per configured channel, with FIFO_MAX_INSTANCES applied per-subsystem.
type Channel struct {
	mu sync.Mutex

	out       *fifo.Fifo
	rxHandler RxHandler
	errs      *errorhandler.Handler
	source    string

	txSeq           seqnr.SeqNr
	txInFlight      bool
	txPayloadLen    int
	cyclesRemaining int
	timeoutCycles   int

	rxSeq seqnr.SeqNr
}

func New(outFifoSize uint16, rxHandler RxHandler, errs *errorhandler.Handler, source string, timeoutCycles int) *Channel {
	return &Channel{
		out:           fifo.NewFifo(outFifoSize),
		rxHandler:     rxHandler,
		errs:          errs,
		source:        source,
		timeoutCycles: timeoutCycles,
	}
}

// PostPayload queues data for transmission. It fails with ErrChannelBusy
// if a previous post is still awaiting acknowledgment: at most one
// transfer may be in flight per channel.
func (c *Channel) PostPayload(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txInFlight {
		return errorhandler.ErrChannelBusy
	}
	if c.out.Write(data) != len(data) {
		return errorhandler.ErrIllegalArgument
	}
	c.txInFlight = true
	c.txPayloadLen = len(data)
	c.txSeq = c.txSeq.Next()
	c.cyclesRemaining = c.timeoutCycles
	return nil
}

// DecodeInbound is the pre-action: deliver a freshly received frame to the
// rx handler, acknowledging it by advancing rxSeq.
func (c *Channel) DecodeInbound(buf *tbuf.Buffer) error {
	seqByte, err := buf.ReadU8(0)
	if err != nil {
		return err
	}
	if !seqnr.Valid(seqByte) {
		return errorhandler.ErrReceiveBufferInvalid
	}
	seq := seqnr.SeqNr(seqByte)

	c.mu.Lock()
	if seq == seqnr.Invalid || seq == c.rxSeq {
		c.mu.Unlock()
		return nil
	}
	c.rxSeq = seq
	handler := c.rxHandler
	c.mu.Unlock()

	length, err := buf.ReadU8(1)
	if err != nil {
		return err
	}
	payload := make([]byte, length)
	if err := buf.ReadStream(2, payload); err != nil {
		return err
	}
	if handler != nil {
		handler(payload)
	}
	return nil
}

// EncodeOutbound is the post-action: (re)transmit the staged payload
// until PostAcked reports the remote has consumed it, counting down the
// per-attempt timeout.
func (c *Channel) EncodeOutbound(buf *tbuf.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.txInFlight {
		return buf.WriteU8(0, uint8(seqnr.Invalid))
	}

	c.cyclesRemaining--
	if c.cyclesRemaining <= 0 {
		c.txInFlight = false
		c.out.AltBegin(c.txPayloadLen)
		c.out.AltFinish() // drop the frame, it will not be retried further
		c.reportLocked(errorhandler.KindTimeout)
		return buf.WriteU8(0, uint8(seqnr.Invalid))
	}

	peek := make([]byte, c.txPayloadLen)
	c.out.AltBegin(0)
	n := c.out.AltRead(peek)

	if err := buf.WriteU8(0, uint8(c.txSeq)); err != nil {
		return err
	}
	if err := buf.WriteU8(1, uint8(n)); err != nil {
		return err
	}
	return buf.WriteStream(2, peek[:n])
}

// PostAcked marks the in-flight transfer complete once the status
// channel reports the peer has observed txSeq, freeing the channel for
// the next PostPayload.
func (c *Channel) PostAcked(observedSeq seqnr.SeqNr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txInFlight && observedSeq == c.txSeq {
		c.txInFlight = false
		c.out.AltBegin(c.txPayloadLen)
		c.out.AltFinish()
	}
}

func (c *Channel) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txInFlight
}

// RxAckBit returns the bit value to publish on the status channel's
// producer flag field for this channel: the alternation of rxSeq encoded
// as a single bit, since the status record has room for no more.
func (c *Channel) RxAckBit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rxSeq == seqnr.Second
}

func (c *Channel) reportLocked(kind errorhandler.Kind) {
	if c.errs == nil {
		return
	}
	c.errs.Report(errorhandler.Report{Source: c.source, Severity: errorhandler.SeverityMinor, Kind: kind})
}
