// Package ioserial is the physical transport underneath pkg/serial's
// ping-pong link: a narrow Port interface plus two backends, a real one
// over github.com/daedaluz/goserial (raw termios UART access) and an
// in-memory one for tests and the AP+PCP-in-one-process demo.
//
// Grounded on pkg/can.Bus's interface-based transport abstraction
// (pkg/can/bus.go) for the shape, and on Daedaluz-goserial/port_linux.go
// for the concrete wrapped API (Open/Write/ReadTimeout).
package ioserial

import (
	"errors"
	"io"
	"time"

	goserial "github.com/daedaluz/goserial"
)

// ErrReadTimeout is returned by PipePort.ReadTimeout when no full frame
// arrives within the deadline, mirroring the hardware port's timeout
// behavior over termios VTIME.
var ErrReadTimeout = errors.New("ioserial: read timeout")

// Port is the minimal UART surface the handshake/sync-wait/ping-pong
// protocol needs: a blocking write and a receive with timeout.
type Port interface {
	Write(data []byte) (int, error)
	ReadTimeout(data []byte, timeout time.Duration) (int, error)
	Close() error
}

// hardwarePort adapts github.com/daedaluz/goserial's *Port to the Port
// interface above.
type hardwarePort struct {
	port *goserial.Port
}

// OpenHardware opens a real UART device at the given baud rate.
func OpenHardware(device string, baud uint32) (Port, error) {
	opts := goserial.NewOptions()
	port, err := goserial.Open(device, opts)
	if err != nil {
		return nil, err
	}
	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, err
	}
	attrs.MakeRaw()
	attrs.SetSpeed(goserial.CFlag(baud))
	if err := port.SetAttr2(goserial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, err
	}
	return &hardwarePort{port: port}, nil
}

func (h *hardwarePort) Write(data []byte) (int, error) { return h.port.Write(data) }

func (h *hardwarePort) ReadTimeout(data []byte, timeout time.Duration) (int, error) {
	return h.port.ReadTimeout(data, timeout)
}

func (h *hardwarePort) Close() error { return h.port.Close() }

// PipePort is an in-memory Port pairing two ends of an io.Pipe, used to
// exercise the master/slave protocol without real hardware.
type PipePort struct {
	r io.Reader
	w io.Writer
}

// NewPipePair returns two linked PipePorts: writes to one are readable
// from the other.
func NewPipePair() (a, b Port) {
	r1, w1 := io.Pipe()
	r2, w2 := io.Pipe()
	return &PipePort{r: r1, w: w2}, &PipePort{r: r2, w: w1}
}

func (p *PipePort) Write(data []byte) (int, error) { return p.w.Write(data) }

func (p *PipePort) ReadTimeout(data []byte, timeout time.Duration) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := io.ReadFull(p.r, data)
		done <- result{n, err}
	}()
	select {
	case res := <-done:
		return res.n, res.err
	case <-time.After(timeout):
		return 0, ErrReadTimeout
	}
}

func (p *PipePort) Close() error { return nil }
