// Package cyclemon implements the cycle-monitoring watchdog (C16): a state
// machine that learns the fieldbus cycle time and detects loss of the
// periodic sync interrupt.
//
// Grounded on pkg/sync.SYNC's Process(timeDifferenceUs) polling idiom
// (mutex-guarded instance state advanced by a periodically-called method),
// generalized to the Init/Active/Timeout machine of
// original_source/.../cyclemon.c.
package cyclemon

import (
	"sync"

	"github.com/epsg/go-psi/pkg/config"
	"github.com/epsg/go-psi/pkg/platform"
)

type State uint8

const (
	StateInit State = iota
	StateActive
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateActive:
		return "Active"
	case StateTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Monitor is the cycle-monitor instance.
type Monitor struct {
	mu  sync.Mutex
	clk platform.Clock

	cycleTimeMinUs       uint32
	cycleTimeMaxUs       uint32
	cycleTimeThresholdUs uint32
	cycleTimeTimeoutUs   uint32

	state          State
	synced         bool
	lastSyncUs     uint64
	learnedCycleUs uint32
	prevIntervalUs uint32
	lastTimestamp  uint64
}

// New constructs a Monitor in the Init state.
func New(clk platform.Clock, cfg *config.Config) *Monitor {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Monitor{
		clk:                  clk,
		cycleTimeMinUs:       cfg.CycleTimeMinUs,
		cycleTimeMaxUs:       cfg.CycleTimeMaxUs,
		cycleTimeThresholdUs: cfg.CycleTimeThresholdUs,
		cycleTimeTimeoutUs:   cfg.CycleTimeTimeoutUs,
		state:                StateInit,
	}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnSyncPulse must be called from the sync-interrupt context each time a
// fieldbus cycle boundary fires.
func (m *Monitor) OnSyncPulse(nowUs uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateInit:
		if m.synced {
			interval := uint32(nowUs - m.lastSyncUs)
			if m.prevIntervalUs != 0 &&
				absDiff(interval, m.prevIntervalUs) <= m.cycleTimeThresholdUs &&
				interval >= m.cycleTimeMinUs && interval <= m.cycleTimeMaxUs {
				m.learnedCycleUs = interval
				m.state = StateActive
			}
			m.prevIntervalUs = interval
		}
		m.synced = true
		m.lastSyncUs = nowUs
		m.lastTimestamp = nowUs
	case StateActive:
		m.lastTimestamp = nowUs
		m.lastSyncUs = nowUs
	case StateTimeout:
		// A sync pulse while in Timeout does not by itself recover the
		// monitor; Process() must run to return it to Init.
	}
}

// CheckTimeout must be called from the main-loop context (a different
// context than OnSyncPulse, ). It reports whether the
// learned cycle has been exceeded by more than the timeout grace period
// and, if so, transitions to Timeout.
func (m *Monitor) CheckTimeout(nowUs uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		return m.state == StateTimeout
	}
	deadline := m.lastTimestamp + uint64(m.learnedCycleUs) + uint64(m.cycleTimeTimeoutUs)
	if nowUs > deadline {
		m.state = StateTimeout
		return true
	}
	return false
}

// Process resets the monitor back to Init once it has entered Timeout;
// called once per main-loop iteration.
func (m *Monitor) Process() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateTimeout {
		m.state = StateInit
		m.synced = false
		m.lastSyncUs = 0
		m.prevIntervalUs = 0
		m.learnedCycleUs = 0
	}
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
