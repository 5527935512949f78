package fifo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestElementQueueInsertThenGetRoundTrip(t *testing.T) {
	q := NewElementQueue(8, 4)
	require.True(t, q.Empty())
	require.False(t, q.Full())

	require.NoError(t, q.Insert([]byte{1, 2, 3}))
	require.False(t, q.Empty())

	dst := make([]byte, 8)
	n, err := q.Get(dst)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, dst[:n])
	require.True(t, q.Empty())
}

func TestElementQueueFullAfterElemCountInserts(t *testing.T) {
	q := NewElementQueue(4, 2)
	require.NoError(t, q.Insert([]byte{1}))
	require.False(t, q.Full())
	require.NoError(t, q.Insert([]byte{2}))
	require.True(t, q.Full())
	require.ErrorIs(t, q.Insert([]byte{3}), ErrQueueFull)
}

func TestElementQueueGetOnEmptyReturnsErrQueueEmpty(t *testing.T) {
	q := NewElementQueue(4, 2)
	_, err := q.Get(make([]byte, 4))
	require.ErrorIs(t, err, ErrQueueEmpty)
}

func TestElementQueueInsertRejectsOversizedElement(t *testing.T) {
	q := NewElementQueue(2, 2)
	require.ErrorIs(t, q.Insert([]byte{1, 2, 3}), ErrElementTooLarge)
}

func TestElementQueueFlushDiscardsStagedElements(t *testing.T) {
	q := NewElementQueue(4, 2)
	require.NoError(t, q.Insert([]byte{1}))
	require.NoError(t, q.Insert([]byte{2}))
	require.True(t, q.Full())

	q.Flush()
	require.True(t, q.Empty())
	require.False(t, q.Full())
	require.NoError(t, q.Insert([]byte{9}))
}

func TestElementQueueWrapsAroundRingSlots(t *testing.T) {
	q := NewElementQueue(4, 2)
	require.NoError(t, q.Insert([]byte{1}))
	require.NoError(t, q.Insert([]byte{2}))

	dst := make([]byte, 4)
	n, err := q.Get(dst)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, dst[:n])

	// Frees one slot: a third insert must land in the wrapped-around slot.
	require.NoError(t, q.Insert([]byte{3}))
	require.True(t, q.Full())

	n, err = q.Get(dst)
	require.NoError(t, err)
	require.Equal(t, []byte{2}, dst[:n])
	n, err = q.Get(dst)
	require.NoError(t, err)
	require.Equal(t, []byte{3}, dst[:n])
	require.True(t, q.Empty())
}

// TestElementQueueZeroElemCountNeverInsertsOrGets exercises the
// elem_count == 0 boundary: the queue must report Full and Empty
// simultaneously and reject every operation without panicking.
func TestElementQueueZeroElemCountNeverInsertsOrGets(t *testing.T) {
	q := NewElementQueue(4, 0)
	require.True(t, q.Full())
	require.True(t, q.Empty())

	require.ErrorIs(t, q.Insert([]byte{1}), ErrQueueFull)
	_, err := q.Get(make([]byte, 4))
	require.ErrorIs(t, err, ErrQueueEmpty)

	q.Flush()
	require.True(t, q.Full())
	require.True(t, q.Empty())
}
