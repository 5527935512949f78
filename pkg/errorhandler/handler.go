// Package errorhandler implements the central fatal/minor/info dispatch
// (C18): every other component reports into it, and it forwards
// diagnostics through a logbook poster while maintaining the shared
// shutdown and fail-safe flags the main loop and state handler observe.
//
// Grounded on pkg/emergency.EMCY's Error/ErrorReport/ErrorReset/fifo shape,
// generalized from CANopen's fixed error-status-bit table to the PSI
// taxonomy 
package errorhandler

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Severity is orthogonal to Kind: Kind says what happened, Severity says
// what the handler does about it.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityMinor
	SeverityFatal
	SeverityFailSafe
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "Info"
	case SeverityMinor:
		return "Minor"
	case SeverityFatal:
		return "Fatal"
	case SeverityFailSafe:
		return "FailSafe"
	default:
		return "Unknown"
	}
}

// Report is the {source, level, code, additional_info} propagation unit
// passed from a channel to the error handler.
type Report struct {
	Source         string
	Severity       Severity
	Kind           Kind
	AdditionalInfo uint32
}

// LogbookPoster is the narrow slice of pkg/logbook.Channel the handler
// needs: post one diagnostic record, non-blocking. Declared here rather
// than imported to keep pkg/logbook free of a reverse dependency on
// pkg/errorhandler.
type LogbookPoster interface {
	PostLogEntry(source string, severity Severity, kind Kind, additionalInfo uint32) error
}

// traceCapacity bounds the local trace ring independent of any
// FIFO_MAX_INSTANCES-style channel limit: it exists precisely so a report
// still has somewhere to go when the logbook channel is down or busy.
const traceCapacity = 32

// Handler is the single error-reporting sink for a PSI/SN instance.
type Handler struct {
	logger  *log.Entry
	mu      sync.Mutex
	logbook LogbookPoster

	trace    []Report // ring buffer, oldest overwritten first
	traceHead int      // index the next Report is written to
	traceLen  int      // valid entries, saturates at traceCapacity

	shutdown    atomic.Bool
	failSafe    atomic.Bool
	lostErrors  atomic.Uint32
}

// New constructs a Handler. logbook may be nil until the logbook channel
// is brought up by the framework composition root; reports before that
// point are only logged locally.
func New(logger *log.Logger, logbook LogbookPoster) *Handler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Handler{
		logger:  logger.WithField("service", "[ERR]"),
		logbook: logbook,
		trace:   make([]Report, traceCapacity),
	}
}

// AttachLogbook wires the logbook channel once it becomes available; the
// framework composition root (C11) calls this after constructing it.
func (h *Handler) AttachLogbook(logbook LogbookPoster) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logbook = logbook
}

// Report is the single entry point every other component calls.
func (h *Handler) Report(r Report) {
	switch r.Severity {
	case SeverityFatal:
		h.logger.WithFields(log.Fields{
			"source": r.Source, "kind": r.Kind, "info": r.AdditionalInfo,
		}).Error("fatal error reported")
		h.shutdown.Store(true)
	case SeverityFailSafe:
		h.logger.WithFields(log.Fields{
			"source": r.Source, "kind": r.Kind, "info": r.AdditionalInfo,
		}).Error("fail-safe condition reported")
		h.failSafe.Store(true)
	case SeverityMinor:
		h.logger.WithFields(log.Fields{
			"source": r.Source, "kind": r.Kind, "info": r.AdditionalInfo,
		}).Warn("minor error reported")
	default:
		h.logger.WithFields(log.Fields{
			"source": r.Source, "kind": r.Kind, "info": r.AdditionalInfo,
		}).Info("informational error reported")
	}

	h.mu.Lock()
	h.trace[h.traceHead] = r
	h.traceHead = (h.traceHead + 1) % traceCapacity
	if h.traceLen < traceCapacity {
		h.traceLen++
	}
	logbook := h.logbook
	h.mu.Unlock()
	if logbook == nil {
		h.lostErrors.Add(1)
		return
	}
	if err := logbook.PostLogEntry(r.Source, r.Severity, r.Kind, r.AdditionalInfo); err != nil {
		h.lostErrors.Add(1)
	}
}

// ShouldShutdown reports whether a Fatal error has been raised; the main
// loop polls this once per cycle and exits after finishing the in-flight
// cycle.
func (h *Handler) ShouldShutdown() bool { return h.shutdown.Load() }

// IsFailSafe reports whether a FailSafe error has been raised; the state
// handler polls this to divert the SN to the safe state.
func (h *Handler) IsFailSafe() bool { return h.failSafe.Load() }

// LostErrors returns the count of reports that could not be forwarded
// through the logbook channel because it was busy or absent.
func (h *Handler) LostErrors() uint32 { return h.lostErrors.Load() }

// ResetFailSafe clears the fail-safe flag once the safety application has
// confirmed the SN is safely parked; it never clears shutdown, which is
// terminal for the process lifetime.
func (h *Handler) ResetFailSafe() { h.failSafe.Store(false) }

// Trace returns the most recent reports, oldest first, independent of
// whether the logbook channel ever existed or is currently up: it is the
// one place a report is guaranteed to land even with logging disabled and
// no logbook attached.
func (h *Handler) Trace() []Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Report, h.traceLen)
	start := (h.traceHead - h.traceLen + traceCapacity) % traceCapacity
	for i := 0; i < h.traceLen; i++ {
		out[i] = h.trace[(start+i)%traceCapacity]
	}
	return out
}
