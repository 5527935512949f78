// Package handshake implements the SN handshake (C13): the one-time
// welcome/response exchange between uP-Master and uP-Slave at boot, run
// once before the openSAFETY stack is activated.
//
// Grounded on original_source/.../boot/handshake-ma.c and handshake-sl.c,
// built on top of pkg/serial's ping/pong primitive and pkg/ami's endian
// codec for the frame layout.
package handshake

import (
	"errors"
	"time"

	"github.com/epsg/go-psi/pkg/ami"
	"github.com/epsg/go-psi/pkg/errorhandler"
	"github.com/epsg/go-psi/pkg/ioserial"
	"github.com/epsg/go-psi/pkg/platform"
	"github.com/epsg/go-psi/pkg/serial"
	"github.com/epsg/go-psi/pkg/snstate"
)

// WelcomeMsgContent identifies the handshake protocol version. RunMaster
// rejects a welcome carrying any other value with
// errorhandler.ErrWelcomeMsgInvalid; RunSlave rejects such a response with
// serial.ErrMessageInvalid.
const WelcomeMsgContent uint32 = 0x504C4B31 // "PLK1"

// FrameSize is the on-wire size of a welcome/response message:
// {header:u32 LE, sn_state:u8}.
const FrameSize = 5

// Message is the decoded {header, sn_state} handshake frame.
type Message struct {
	Header  uint32
	SnState snstate.SnState
}

func encode(m Message) []byte {
	buf := make([]byte, FrameSize)
	ami.SetUint32LE(buf[0:4], m.Header)
	buf[4] = uint8(m.SnState)
	return buf
}

func decode(buf []byte) Message {
	return Message{
		Header:  ami.GetUint32LE(buf[0:4]),
		SnState: snstate.SnState(buf[4]),
	}
}

// RunMaster waits for the slave's welcome (no timeout — the master
// busy-waits), verifies the header, decides its own restore-flag /
// sn_state view via localState, and replies.
//
// Returns the peer's SnState as observed in the welcome message, or an
// error if the header did not match (fatal).
func RunMaster(port ioserial.Port, clock platform.Clock, localState snstate.SnState) (snstate.SnState, error) {
	raw, err := serial.MasterReceivePing(port, FrameSize, func(frame []byte) bool {
		return decode(frame).Header == WelcomeMsgContent
	})
	if errors.Is(err, serial.ErrMessageInvalid) {
		return 0, errorhandler.ErrWelcomeMsgInvalid
	}
	if err != nil {
		return 0, err
	}
	welcome := decode(raw)
	response := encode(Message{Header: WelcomeMsgContent, SnState: localState})
	if err := serial.MasterSendPong(port, clock, response); err != nil {
		return 0, err
	}
	return welcome.SnState, nil
}

// RunSlave sends the welcome carrying localState and waits (with retry on
// timeout) for the master's response, verifying its header.
//
// Returns the master's SnState as observed in the response, or an error.
func RunSlave(port ioserial.Port, clock platform.Clock, localState snstate.SnState, perAttemptTimeout time.Duration, maxAttempts int) (snstate.SnState, error) {
	welcome := encode(Message{Header: WelcomeMsgContent, SnState: localState})
	raw, err := serial.SlaveExchange(port, clock, welcome, FrameSize, perAttemptTimeout, maxAttempts, func(frame []byte) bool {
		return decode(frame).Header == WelcomeMsgContent
	})
	if err != nil {
		return 0, err
	}
	return decode(raw).SnState, nil
}
