// Package syncwait implements the SN sync wait (C14): after the handshake,
// the master waits for the first hardware sync interrupt from the PCP
// while the slave sends periodic ready messages; once the sync IRQ fires,
// the master samples the consecutive time and replies with it, and the
// slave overwrites its own consecutive-time base for clock alignment.
//
// Grounded on original_source/.../boot/sync-ma.c and sync-sl.c, reusing
// pkg/serial's ping/pong primitive for the ready/response exchange and
// pkg/constime for the time-base sampling and overwrite.
package syncwait

import (
	"time"

	"github.com/epsg/go-psi/pkg/ami"
	"github.com/epsg/go-psi/pkg/constime"
	"github.com/epsg/go-psi/pkg/ioserial"
	"github.com/epsg/go-psi/pkg/platform"
	"github.com/epsg/go-psi/pkg/serial"
)

// ReadyMsgContent identifies a slave "ready, waiting for sync" ping.
const ReadyMsgContent uint32 = 0x504C4B32 // "PLK2"

// ReadyFrameSize is {header:u32 LE}.
const ReadyFrameSize = 4

// ResponseFrameSize is {header:u32 LE, cons_time:u64 LE}.
const ResponseFrameSize = 12

func encodeReady() []byte {
	buf := make([]byte, ReadyFrameSize)
	ami.SetUint32LE(buf, ReadyMsgContent)
	return buf
}

func decodeReady(buf []byte) uint32 { return ami.GetUint32LE(buf[0:4]) }

func encodeResponse(consTime uint64) []byte {
	buf := make([]byte, ResponseFrameSize)
	ami.SetUint32LE(buf[0:4], ReadyMsgContent)
	ami.SetUint64LE(buf[4:12], consTime)
	return buf
}

func decodeResponse(buf []byte) uint64 { return ami.GetUint64LE(buf[4:12]) }

// RunMaster blocks on syncFired (the abstraction of the hardware sync
// interrupt — closed or signaled exactly once by the platform layer when
// the first fieldbus sync IRQ arrives), drains one pending ready ping,
// samples the current consecutive time, and replies with it.
func RunMaster(port ioserial.Port, clock platform.Clock, ct *constime.ConsecutiveTime, syncFired <-chan struct{}) (uint64, error) {
	<-syncFired
	if _, err := serial.MasterReceivePing(port, ReadyFrameSize, func(f []byte) bool {
		return decodeReady(f) == ReadyMsgContent
	}); err != nil {
		return 0, err
	}
	consTime := ct.GetTimeBase()
	if err := serial.MasterSendPong(port, clock, encodeResponse(consTime)); err != nil {
		return 0, err
	}
	return consTime, nil
}

// RunSlave repeatedly sends ready messages until it receives the master's
// sync response, then overwrites ct's time base with the received value,
// aligning the slave's clock to the master's.
func RunSlave(port ioserial.Port, clock platform.Clock, ct *constime.ConsecutiveTime, perAttemptTimeout time.Duration, maxAttempts int) (uint64, error) {
	raw, err := serial.SlaveExchange(port, clock, encodeReady(), ResponseFrameSize, perAttemptTimeout, maxAttempts, func(f []byte) bool {
		return decodeReady(f) == ReadyMsgContent
	})
	if err != nil {
		return 0, err
	}
	consTime := decodeResponse(raw)
	ct.SetTimeBase(consTime)
	return consTime, nil
}
