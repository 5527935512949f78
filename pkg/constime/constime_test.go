package constime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeCounter is a manually steppable 16-bit hardware counter for testing
// wrap-around behavior deterministically.
type fakeCounter struct{ v uint16 }

func (f *fakeCounter) Read16() uint16 { return f.v }

func TestMonotonicWithinWrap(t *testing.T) {
	fc := &fakeCounter{v: 0}
	ct, err := New(fc, 1)
	require.NoError(t, err)

	fc.v = 100
	t1 := ct.GetTimeBase()
	fc.v = 250
	t2 := ct.GetTimeBase()
	require.GreaterOrEqual(t, t2, t1)
	require.Equal(t, uint64(250), t2)
}

func TestWrapAround(t *testing.T) {
	fc := &fakeCounter{v: 0xFFF0}
	ct, err := New(fc, 1)
	require.NoError(t, err)

	fc.v = 0x0010 // wraps past 0xFFFF
	got := ct.GetTimeBase()
	require.Equal(t, uint64(0x20), got)
}

func TestInvalidDividerRejected(t *testing.T) {
	fc := &fakeCounter{}
	_, err := New(fc, 7)
	require.Error(t, err)

	ct, err := New(fc, 1)
	require.NoError(t, err)
	require.Error(t, ct.SetDivider(3))
	require.Equal(t, uint32(1), ct.Divider())
}

func TestGetTimeAppliesDivider(t *testing.T) {
	fc := &fakeCounter{v: 0}
	ct, err := New(fc, 100)
	require.NoError(t, err)
	fc.v = 500
	require.Equal(t, uint64(5), ct.GetTime())
}

func TestSetTimeBaseFromSyncWait(t *testing.T) {
	fc := &fakeCounter{v: 10}
	ct, err := New(fc, 1)
	require.NoError(t, err)
	ct.SetTimeBase(0x1234_5678_ABCD)
	require.GreaterOrEqual(t, ct.GetTimeBase(), uint64(0x1234_5678_ABCD))
}
