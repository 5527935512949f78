// Package statehandler implements the SN main state machine (C17):
// Booting → Initialization → PreOperational ↔ Operational, with a
// Shutdown path out of either steady state.
//
// Grounded on pkg/nmt.NMT's request-flag + setState + callback-table
// shape (pkg/nmt/nmt.go), generalized from CANopen's NMT command set to
// openSAFETY's SNMTS transition calls
// (original_source/.../statehandler.c's handle_state_change()).
package statehandler

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/epsg/go-psi/pkg/errorhandler"
)

type State uint8

const (
	StateBooting State = iota
	StateInitialization
	StatePreOperational
	StateOperational
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "Booting"
	case StateInitialization:
		return "Initialization"
	case StatePreOperational:
		return "PreOperational"
	case StateOperational:
		return "Operational"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Transitions is the openSAFETY-stack transition surface the handler
// invokes with the current consecutive time, standing in for
// SNMTS_PerformTransPreOp/SNMTS_EnterOpState.
type Transitions interface {
	PerformTransPreOp(consecutiveTimeUs uint64) bool
	EnterOpState(consecutiveTimeUs uint64) bool
}

// Handler drives the SN state machine one step per cycle via
// HandleStateChange, matching pkg/nmt.NMT's "one call per cycle, flags
// checked, callbacks fired on change" idiom.
type Handler struct {
	mu           sync.Mutex
	logger       *log.Entry
	transitions  Transitions
	errs         *errorhandler.Handler
	state        State
	enterPreOp   bool
	enterOp      bool
	shutdown     bool
	callbacks    map[uint64]func(State)
	callbackNext uint64
}

func New(transitions Transitions, errs *errorhandler.Handler, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Handler{
		logger:       logger.WithField("service", "[SNSTATE]"),
		transitions:  transitions,
		errs:         errs,
		state:        StateBooting,
		callbacks:    make(map[uint64]func(State)),
		callbackNext: 1,
	}
}

// AddStateChangeCallback registers a callback fired on every state
// transition and returns a closure that cancels it.
func (h *Handler) AddStateChangeCallback(callback func(State)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.callbackNext
	h.callbackNext++
	h.callbacks[id] = callback
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.callbacks, id)
	}
}

func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// RequestEnterPreOperational arms the PreOperational transition request,
// picked up on the next HandleStateChange call.
func (h *Handler) RequestEnterPreOperational() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enterPreOp = true
}

// RequestEnterOperational arms the Operational transition request.
func (h *Handler) RequestEnterOperational() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enterOp = true
}

// RequestShutdown arms the Shutdown transition request.
func (h *Handler) RequestShutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdown = true
}

// HandleStateChange runs each cycle: it checks the pending request flags
// and invokes the corresponding openSAFETY-stack transition function with
// the current consecutive time.
func (h *Handler) HandleStateChange(consecutiveTimeUs uint64) {
	h.mu.Lock()
	state := h.state
	enterPreOp, enterOp, shutdown := h.enterPreOp, h.enterOp, h.shutdown
	h.mu.Unlock()

	switch {
	case shutdown && state != StateShutdown:
		h.setState(StateShutdown)
		h.mu.Lock()
		h.shutdown = false
		h.mu.Unlock()

	case enterPreOp && state == StateInitialization:
		if h.transitions == nil || h.transitions.PerformTransPreOp(consecutiveTimeUs) {
			h.setState(StatePreOperational)
		} else if h.errs != nil {
			h.errs.Report(errorhandler.Report{
				Source: "statehandler", Severity: errorhandler.SeverityFatal,
				Kind: errorhandler.KindEnterPreOpFailed,
			})
		}
		h.mu.Lock()
		h.enterPreOp = false
		h.mu.Unlock()

	case enterOp && state == StatePreOperational:
		if h.transitions == nil || h.transitions.EnterOpState(consecutiveTimeUs) {
			h.setState(StateOperational)
		} else if h.errs != nil {
			h.errs.Report(errorhandler.Report{
				Source: "statehandler", Severity: errorhandler.SeverityFatal,
				Kind: errorhandler.KindEnterOpFailed,
			})
		}
		h.mu.Lock()
		h.enterOp = false
		h.mu.Unlock()

	case state == StateBooting:
		h.setState(StateInitialization)
	}
}

func (h *Handler) setState(newState State) {
	h.mu.Lock()
	if newState == h.state {
		h.mu.Unlock()
		return
	}
	prev := h.state
	h.state = newState
	callbacks := make([]func(State), 0, len(h.callbacks))
	for _, cb := range h.callbacks {
		callbacks = append(callbacks, cb)
	}
	h.mu.Unlock()

	h.logger.WithFields(log.Fields{"previous": prev, "new": newState}).Info("state changed")
	for _, cb := range callbacks {
		cb(newState)
	}
}
