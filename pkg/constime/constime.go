// Package constime implements the consecutive-time base (C15): a 16-bit
// hardware counter virtually extended to 64 bits, with a configurable
// divider mapping the wire unit to {1, 10, 100, 1000} µs.
//
// Grounded on pkg/time/time.go's convertByteToTime/convertTimeToByte
// wire-format conversion style, generalized from CANopen's fixed TIME
// object to openSAFETY's divider-selectable consecutive time, per
// original_source/.../shnf/constime.c.
package constime

import (
	"fmt"
	"sync"

	"github.com/epsg/go-psi/pkg/platform"
)

// Divider values the SOD callback may select.
var validDividers = map[uint32]bool{1: true, 10: true, 100: true, 1000: true}

// ConsecutiveTime is the {us_time_base, divider} instance 
type ConsecutiveTime struct {
	mu       sync.Mutex
	counter  platform.HardwareCounter
	lastLow  uint16
	base     uint64
	divider  uint32
}

// New constructs a ConsecutiveTime with the hardware counter's current
// reading as the initial low-word baseline and the given divider.
func New(counter platform.HardwareCounter, divider uint32) (*ConsecutiveTime, error) {
	if counter == nil {
		return nil, fmt.Errorf("constime: nil hardware counter")
	}
	if !validDividers[divider] {
		return nil, fmt.Errorf("constime: invalid divider %d", divider)
	}
	return &ConsecutiveTime{
		counter: counter,
		lastLow: counter.Read16(),
		divider: divider,
	}, nil
}

// Process must be called at least once per hardware-counter wrap
// (~65 ms at the default 1 µs tick). Failing this invariant loses wrap
// counts and corrupts the time base.
func (c *ConsecutiveTime) Process() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked()
}

func (c *ConsecutiveTime) advanceLocked() {
	currentLow := c.counter.Read16()
	delta := (currentLow - c.lastLow) & 0xFFFF
	c.base += uint64(delta)
	c.lastLow = currentLow
}

// GetTimeBase returns the raw 64-bit µs time base, advancing it first so a
// caller that never calls Process directly still observes monotonic
// growth within one counter wrap.
func (c *ConsecutiveTime) GetTimeBase() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked()
	return c.base
}

// GetTime returns the time base divided by the configured divider — the
// openSAFETY wire clock unit.
func (c *ConsecutiveTime) GetTime() uint64 {
	return c.GetTimeBase() / uint64(c.divider)
}

// SetDivider implements the SOD callback : an invalid
// value is rejected and the divider left unchanged, mirroring a SOD abort
// code at the caller.
func (c *ConsecutiveTime) SetDivider(divider uint32) error {
	if !validDividers[divider] {
		return fmt.Errorf("constime: invalid divider %d", divider)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.divider = divider
	return nil
}

func (c *ConsecutiveTime) Divider() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.divider
}

// SetTimeBase overwrites the 64-bit base directly — used once at SN
// sync-wait clock alignment (C14), where the slave adopts the master's
// sampled consecutive time verbatim.
func (c *ConsecutiveTime) SetTimeBase(base uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = base
	c.lastLow = c.counter.Read16()
}
