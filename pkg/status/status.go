// Package status implements the status channel (C6): forwards relative
// time to the application and surfaces per-subchannel sequence-number
// flags in both directions for CC/SSDO/logbook to consume.
//
// Grounded on pkg/pdo/common.go's fixed-layout record encode/decode style,
// wired to pkg/tbuf + pkg/ami for the on-wire access.
package status

import (
	"sync"

	"github.com/epsg/go-psi/pkg/seqnr"
	"github.com/epsg/go-psi/pkg/tbuf"
)

// Wire offsets for the inbound status record:
// {rel_time_low:u32 | rel_time_high:u32 | icc_status:u8 | reserved:u8 | async_cons_status:u16}
const (
	offRelTimeLow   = 0
	offRelTimeHigh  = 4
	offIccStatus    = 8
	offReserved     = 9
	offAsyncConsus  = 10
	InboundFrameLen = 12
)

// Outbound status record: {async_prod_status:u16}
const OutboundFrameLen = 2

// TimeStamp is the {low, high} relative-time pair forwarded to the sync
// callback each cycle.
type TimeStamp struct {
	Low  uint32
	High uint32
}

// TimeStampCallback receives the decoded relative time once per cycle.
type TimeStampCallback func(TimeStamp)

// Channel is the status channel instance.
type Channel struct {
	mu sync.Mutex

	onTimeStamp TimeStampCallback

	iccStatus          seqnr.SeqNr
	asyncConsumerFlags uint16 // one bit per async channel, transmit-side: the remote's acks of our transmits
	asyncProducerFlags uint16 // one bit per async channel, receive-side: our acks of received frames
}

// flagsIdle is the initial value of asyncConsumerFlags: all bits set, so
// seqnr.FromBit decodes every channel's un-acked idle state as Second. A
// channel's first-ever in-flight sequence number is always First, so this
// keeps PostAcked from spuriously releasing a transfer on its very first
// cycle, before any real frame has actually been exchanged with the peer.
// asyncProducerFlags carries no equivalent risk: it is only ever set
// explicitly by SetAsyncRxChanFlag from a channel's own observed rxSeq,
// so its zero value (no channel has received anything yet) is correct.
const flagsIdle = 0xFFFF

func New(onTimeStamp TimeStampCallback) *Channel {
	return &Channel{
		onTimeStamp:        onTimeStamp,
		asyncConsumerFlags: flagsIdle,
	}
}

// DecodeInbound is the pre-action: decode the incoming status buffer,
// forward the time stamp, and cache icc_status / async_consumer_status.
func (c *Channel) DecodeInbound(buf *tbuf.Buffer) error {
	relLow, err := buf.ReadU32(offRelTimeLow)
	if err != nil {
		return err
	}
	relHigh, err := buf.ReadU32(offRelTimeHigh)
	if err != nil {
		return err
	}
	icc, err := buf.ReadU8(offIccStatus)
	if err != nil {
		return err
	}
	consStatus, err := buf.ReadU16(offAsyncConsus)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.iccStatus = seqnr.SeqNr(icc)
	c.asyncConsumerFlags = consStatus
	c.mu.Unlock()

	if c.onTimeStamp != nil {
		c.onTimeStamp(TimeStamp{Low: relLow, High: relHigh})
	}
	return nil
}

// EncodeOutbound is the post-action: encode the local
// async_producer_status into the outgoing status buffer.
func (c *Channel) EncodeOutbound(buf *tbuf.Buffer) error {
	c.mu.Lock()
	flags := c.asyncProducerFlags
	c.mu.Unlock()
	return buf.WriteU16(0, flags)
}

// GetIccStatus returns the cached inbound CC sequence-status flag.
func (c *Channel) GetIccStatus() seqnr.SeqNr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iccStatus
}

// SetAsyncRxChanFlag flips the receive-side bit for channel ch into the
// outgoing status record to acknowledge a freshly received frame.
func (c *Channel) SetAsyncRxChanFlag(ch int, set bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set {
		c.asyncProducerFlags |= 1 << uint(ch)
	} else {
		c.asyncProducerFlags &^= 1 << uint(ch)
	}
}

// GetAsyncTxChanFlag returns whether the remote has acknowledged channel
// ch's last transmit, read from the cached inbound consumer-status bits.
func (c *Channel) GetAsyncTxChanFlag(ch int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asyncConsumerFlags&(1<<uint(ch)) != 0
}
