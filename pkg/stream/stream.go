// Package stream implements the stream engine (C5): an ordered list of
// buffer descriptors, pre/post action dispatch around a user sync
// callback, and the batch transfer (DMA) handshake with the remote
// endpoint.
//
// Grounded on pkg/node/controller.go's cyclic ticker-driven processing
// loop for the concurrency shape, and on
// original_source/.../libs/psi/internal.c's psi_processSync /
// psi_processPostTransferActions orchestration for the pre/sync/transfer/
// post ordering.
package stream

import (
	"sort"
	"sync"

	"github.com/epsg/go-psi/pkg/errorhandler"
	"github.com/epsg/go-psi/pkg/platform"
	"github.com/epsg/go-psi/pkg/tbuf"
)

// Action is one registered pre- or post-action: called with the buffer it
// is attached to.
type Action func(buf *tbuf.Buffer) error

// SyncCallback is the single application callback invoked once per cycle,
// between pre- and post-actions.
type SyncCallback func() error

// Transfer performs one round-trip batch I/O exchange with the remote
// endpoint (the DMA completion in concurrency model). It is
// supplied by the platform layer. ProcessSync calls every registered
// Transfer once per cycle, in registration order, whatever the Topology.
type Transfer func() error

// Topology distinguishes the single vs. dual triple-buffer SHNF transmit
// strategy: some targets wire one shared consumer+producer pair, others
// two independent pairs.
type Topology uint8

const (
	TopologySingle Topology = iota
	TopologyDual
)

// Engine owns the descriptor table and dispatches one cycle at a time.
type Engine struct {
	mu           sync.Mutex
	buffers      map[platform.BufferID]*tbuf.Buffer
	order        []platform.BufferID
	preActions   map[platform.BufferID][]Action
	postActions  map[platform.BufferID][]Action
	syncCB       SyncCallback
	transfers    []Transfer
	topology     Topology
	errs         *errorhandler.Handler
}

// New constructs an empty Engine for the given topology.
func New(topology Topology, errs *errorhandler.Handler) *Engine {
	return &Engine{
		buffers:     make(map[platform.BufferID]*tbuf.Buffer),
		preActions:  make(map[platform.BufferID][]Action),
		postActions: make(map[platform.BufferID][]Action),
		topology:    topology,
		errs:        errs,
	}
}

// RegisterBuffer adds one descriptor to the engine's ordered table.
func (e *Engine) RegisterBuffer(buf *tbuf.Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := platform.BufferID(buf.ID())
	if _, exists := e.buffers[id]; !exists {
		e.order = append(e.order, id)
		sort.Slice(e.order, func(i, j int) bool { return e.order[i] < e.order[j] })
	}
	e.buffers[id] = buf
}

// RegisterTransfer adds one transfer handler; TopologySingle targets
// register one, TopologyDual targets two. The count is not checked.
func (e *Engine) RegisterTransfer(t Transfer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transfers = append(e.transfers, t)
}

// RegisterAction appends an action to buffer id's pre- or post- list, in
// registration order.
func (e *Engine) RegisterAction(phase Phase, id platform.BufferID, action Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.buffers[id]; !ok {
		return errorhandler.ErrInvalidBuffer
	}
	switch phase {
	case PhasePre:
		e.preActions[id] = append(e.preActions[id], action)
	case PhasePost:
		e.postActions[id] = append(e.postActions[id], action)
	default:
		return errorhandler.ErrIllegalArgument
	}
	return nil
}

// Phase distinguishes pre- from post-actions.
type Phase uint8

const (
	PhasePre Phase = iota
	PhasePost
)

// RegisterSyncCallback installs the single application sync callback;
// calling it twice replaces the previous one, matching
// pkg/nmt.NMT.AddStateChangeCallback's single-writer style simplified to
// one slot: exactly one callback may be registered at a time.
func (e *Engine) RegisterSyncCallback(cb SyncCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncCB = cb
}

// GetBufferParam returns the descriptor for a buffer id.
func (e *Engine) GetBufferParam(id platform.BufferID) (*tbuf.Buffer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, ok := e.buffers[id]
	return buf, ok
}

// AckBuffer clears bit id in the ACK register; safe to call from inside
// any action.
func (e *Engine) AckBuffer(id platform.BufferID) {
	e.mu.Lock()
	buf, ok := e.buffers[id]
	e.mu.Unlock()
	if ok {
		buf.ClearAckBit()
	}
}

// ProcessSync runs one full cycle: pre-actions (ascending buffer-id
// order, registration order within a buffer), the sync callback, the
// transfer handler(s), then post-actions — and finally marks every
// participating buffer's ACK bit exactly once.
//
// Any action or the sync callback or the transfer returning an error
// aborts the cycle immediately and is surfaced to the error handler; the
// cycle is not retried implicitly.
func (e *Engine) ProcessSync() error {
	e.mu.Lock()
	order := append([]platform.BufferID(nil), e.order...)
	buffers := make(map[platform.BufferID]*tbuf.Buffer, len(e.buffers))
	for k, v := range e.buffers {
		buffers[k] = v
	}
	preActions := e.preActions
	postActions := e.postActions
	syncCB := e.syncCB
	transfers := append([]Transfer(nil), e.transfers...)
	e.mu.Unlock()

	participating := make(map[platform.BufferID]bool)

	for _, id := range order {
		buf := buffers[id]
		for _, action := range preActions[id] {
			participating[id] = true
			if err := action(buf); err != nil {
				e.reportSyncFailure(err)
				return err
			}
		}
	}

	if syncCB != nil {
		if err := syncCB(); err != nil {
			e.reportSyncFailure(err)
			return err
		}
	}

	for _, transfer := range transfers {
		if transfer == nil {
			continue
		}
		if err := transfer(); err != nil {
			e.reportSyncFailure(err)
			return err
		}
	}

	for _, id := range order {
		buf := buffers[id]
		for _, action := range postActions[id] {
			participating[id] = true
			if err := action(buf); err != nil {
				e.reportSyncFailure(err)
				return err
			}
		}
	}

	for _, id := range order {
		if participating[id] {
			buffers[id].SetAck()
		}
	}
	return nil
}

func (e *Engine) reportSyncFailure(err error) {
	if e.errs == nil {
		return
	}
	e.errs.Report(errorhandler.Report{
		Source:   "stream",
		Severity: errorhandler.SeverityMinor,
		Kind:     errorhandler.KindProcessSyncFailed,
	})
}
