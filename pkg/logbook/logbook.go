// Package logbook implements the Logbook asynchronous channel (C10): an
// outbound-only reliable post channel carrying diagnostic entries from
// the error handler up to the AP, reusing the SSDO channel's retry
// discipline but with no inbound direction at all.
//
// Grounded on pkg/emergency's {code, severity, info} emergency-message
// wire encoding and on pkg/ssdo's transmit retry/ack state machine,
// wired directly into errorhandler.LogbookPoster.
package logbook

import (
	"github.com/epsg/go-psi/pkg/errorhandler"
	"github.com/epsg/go-psi/pkg/seqnr"
	"github.com/epsg/go-psi/pkg/ssdo"
	"github.com/epsg/go-psi/pkg/tbuf"
)

// entryLen is the fixed wire size of one logbook record: source (8 bytes,
// NUL-padded), severity (1), kind (1), additional_info (4, little-endian).
const entryLen = 14

// Channel wraps an ssdo.Channel with no rx handler, exposing
// errorhandler.LogbookPoster so the error handler can post directly into
// it once the framework composition root attaches it.
type Channel struct {
	tx *ssdo.Channel
}

func New(outFifoSize uint16, errs *errorhandler.Handler, source string, timeoutCycles int) *Channel {
	return &Channel{tx: ssdo.New(outFifoSize, nil, errs, source, timeoutCycles)}
}

// PostLogEntry encodes and queues one diagnostic record. It satisfies
// errorhandler.LogbookPoster.
func (c *Channel) PostLogEntry(source string, severity errorhandler.Severity, kind errorhandler.Kind, additionalInfo uint32) error {
	frame := make([]byte, entryLen)
	n := copy(frame[0:8], source)
	_ = n
	frame[8] = byte(severity)
	frame[9] = byte(kind)
	frame[10] = byte(additionalInfo)
	frame[11] = byte(additionalInfo >> 8)
	frame[12] = byte(additionalInfo >> 16)
	frame[13] = byte(additionalInfo >> 24)
	return c.tx.PostPayload(frame)
}

func (c *Channel) EncodeOutbound(buf *tbuf.Buffer) error { return c.tx.EncodeOutbound(buf) }
func (c *Channel) PostAcked(observedSeq seqnr.SeqNr)      { c.tx.PostAcked(observedSeq) }
func (c *Channel) Busy() bool                             { return c.tx.Busy() }
