// Package serial implements the SN serial ping/pong protocol (C12): a
// uni-directional send plus receive-with-timeout exchange over the
// inter-processor UART link, with distinct master and slave roles unified
// behind one Role tag per the "dual-processor boot → explicit
// role enum" requirement redesign note.
//
// Grounded on original_source/.../boot/pingpong-sl.c and pingpong-ma.c for
// the master-busy-waits/slave-sleeps-and-retries timing contract, wired to
// github.com/daedaluz/goserial via pkg/ioserial.
package serial

import (
	"errors"
	"time"

	"github.com/epsg/go-psi/pkg/ioserial"
	"github.com/epsg/go-psi/pkg/platform"
)

// ErrMessageInvalid is returned when a caller-supplied verify callback
// rejects the received frame; treated as fatal.
var ErrMessageInvalid = errors.New("serial: invalid message")

// ErrMaxAttemptsExceeded is returned by SlaveExchange when maxAttempts is
// positive and exhausted without a valid reply.
var ErrMaxAttemptsExceeded = errors.New("serial: max ping attempts exceeded")

// noTimeout stands in for a true blocking receive: the master "busy-waits
// with no timeout" , which this package expresses as one
// very long ReadTimeout rather than adding a second Port method.
const noTimeout = 365 * 24 * time.Hour

const slaveArmDelay = 100 * time.Millisecond

// VerifyFunc judges whether a received frame is acceptable.
type VerifyFunc func(frame []byte) bool

// MasterReceivePing blocks until a frame of frameSize bytes arrives, then
// runs verify over it. A transmit-layer failure or an invalid frame is
// fatal, per the boot-link failure semantics.
func MasterReceivePing(port ioserial.Port, frameSize int, verify VerifyFunc) ([]byte, error) {
	buf := make([]byte, frameSize)
	n, err := port.ReadTimeout(buf, noTimeout)
	if err != nil {
		return nil, err
	}
	if n != frameSize {
		return nil, ErrMessageInvalid
	}
	if verify != nil && !verify(buf) {
		return nil, ErrMessageInvalid
	}
	return buf, nil
}

// MasterSendPong waits 100 ms (letting the slave arm its receiver) and
// then transmits the pong frame.
func MasterSendPong(port ioserial.Port, clock platform.Clock, pong []byte) error {
	clock.Sleep(slaveArmDelay)
	_, err := port.Write(pong)
	return err
}

// SlaveExchange sleeps 100 ms, transmits ping, then waits up to timeout
// for the pong. On timeout it retries; maxAttempts <= 0 means retry
// indefinitely; an upper layer is expected to enforce a bound in that
// case.
func SlaveExchange(port ioserial.Port, clock platform.Clock, ping []byte, frameSize int, timeout time.Duration, maxAttempts int, verify VerifyFunc) ([]byte, error) {
	clock.Sleep(slaveArmDelay)
	for attempt := 0; maxAttempts <= 0 || attempt < maxAttempts; attempt++ {
		if _, err := port.Write(ping); err != nil {
			return nil, err
		}
		buf := make([]byte, frameSize)
		n, err := port.ReadTimeout(buf, timeout)
		if err != nil {
			continue // timeout: retry 
		}
		if n != frameSize {
			return nil, ErrMessageInvalid
		}
		if verify != nil && !verify(buf) {
			return nil, ErrMessageInvalid
		}
		return buf, nil
	}
	return nil, ErrMaxAttemptsExceeded
}
