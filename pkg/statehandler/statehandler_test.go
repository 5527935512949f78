package statehandler

import (
	"testing"

	"github.com/epsg/go-psi/pkg/errorhandler"
	"github.com/stretchr/testify/require"
)

type fakeTransitions struct {
	preOpOK bool
	opOK    bool
}

func (f *fakeTransitions) PerformTransPreOp(uint64) bool { return f.preOpOK }
func (f *fakeTransitions) EnterOpState(uint64) bool      { return f.opOK }

func TestBootToInitializationAutomatic(t *testing.T) {
	h := New(&fakeTransitions{}, nil, nil)
	require.Equal(t, StateBooting, h.State())
	h.HandleStateChange(0)
	require.Equal(t, StateInitialization, h.State())
}

func TestFullHappyPathToOperational(t *testing.T) {
	h := New(&fakeTransitions{preOpOK: true, opOK: true}, nil, nil)
	h.HandleStateChange(0)
	require.Equal(t, StateInitialization, h.State())

	h.RequestEnterPreOperational()
	h.HandleStateChange(100)
	require.Equal(t, StatePreOperational, h.State())

	h.RequestEnterOperational()
	h.HandleStateChange(200)
	require.Equal(t, StateOperational, h.State())
}

func TestFailedPreOpTransitionReportsFatal(t *testing.T) {
	errs := errorhandler.New(nil, nil)
	h := New(&fakeTransitions{preOpOK: false}, errs, nil)
	h.HandleStateChange(0)
	h.RequestEnterPreOperational()
	h.HandleStateChange(10)
	require.Equal(t, StateInitialization, h.State())
	require.True(t, errs.ShouldShutdown())
}

func TestShutdownFromAnyState(t *testing.T) {
	h := New(&fakeTransitions{}, nil, nil)
	h.HandleStateChange(0)
	h.RequestShutdown()
	h.HandleStateChange(1)
	require.Equal(t, StateShutdown, h.State())
}

func TestStateChangeCallback(t *testing.T) {
	h := New(&fakeTransitions{}, nil, nil)
	var seen []State
	cancel := h.AddStateChangeCallback(func(s State) { seen = append(seen, s) })
	h.HandleStateChange(0)
	require.Equal(t, []State{StateInitialization}, seen)

	cancel()
	h.RequestShutdown()
	h.HandleStateChange(1)
	require.Equal(t, []State{StateInitialization}, seen)
}
