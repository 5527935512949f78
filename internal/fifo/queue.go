package fifo

import (
	"errors"
	"sync"

	"github.com/epsg/go-psi/pkg/ami"
)

var (
	// ErrQueueFull is returned by Insert when write_counter - read_counter
	// has already reached elem_count.
	ErrQueueFull = errors.New("fifo: queue full")
	// ErrQueueEmpty is returned by Get when the write and read counters
	// match: nothing staged to return.
	ErrQueueEmpty = errors.New("fifo: queue empty")
	// ErrElementTooLarge is returned by Insert when data exceeds the
	// queue's configured per-element capacity.
	ErrElementTooLarge = errors.New("fifo: element exceeds configured size")
)

// headerLen is the size of one element's length header, kept 4-byte
// aligned per the original's alignment requirement on tElemHeader.
const headerLen = 4

// ElementQueue is the element-counted generic FIFO (C4): a
// single-producer/single-consumer queue of fixed-capacity, variable-length
// elements, distinct from Fifo's byte-ring in that Full/Empty are keyed off
// an element counter rather than a byte cursor.
//
// Grounded on original_source's pcp/psi/fifo.c fifo_create/
// fifo_insertElement/fifo_getElement/fifo_flush: a contiguous buffer of
// elemCount slots, each a 4-byte-aligned length header followed by a
// 4-byte-aligned payload region, with write/read element counters instead
// of pointer arithmetic (idiomatic for a slice-backed Go port).
type ElementQueue struct {
	mu sync.Mutex

	slotSize  int // headerLen + aligned elemSize, one ring slot
	elemSize  int // usable payload capacity per element, as requested
	elemCount int
	buffer    []byte

	writeElem uint32
	readElem  uint32
}

// NewElementQueue allocates a queue holding up to elemCount elements of at
// most elemSize bytes each. elemCount == 0 is legal and yields a queue that
// is always both Full and Empty — every Insert fails, every Get fails, no
// element is ever stored.
func NewElementQueue(elemSize, elemCount int) *ElementQueue {
	aligned := alignUp4(elemSize)
	slotSize := headerLen + aligned
	return &ElementQueue{
		slotSize:  slotSize,
		elemSize:  elemSize,
		elemCount: elemCount,
		buffer:    make([]byte, slotSize*elemCount),
	}
}

func alignUp4(n int) int { return (n + 3) &^ 3 }

// Full reports whether elemCount elements are already staged and unread.
func (q *ElementQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fullLocked()
}

func (q *ElementQueue) fullLocked() bool {
	return int(q.writeElem-q.readElem) >= q.elemCount
}

// Empty reports whether every staged element has already been read.
func (q *ElementQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.writeElem == q.readElem
}

// Insert stages one element, writing its length header and payload into
// the next slot and advancing the write counter. It returns ErrQueueFull
// if the queue has elemCount unread elements already, or
// ErrElementTooLarge if data exceeds the configured per-element size.
func (q *ElementQueue) Insert(data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(data) > q.elemSize {
		return ErrElementTooLarge
	}
	if q.fullLocked() {
		return ErrQueueFull
	}

	slot := int(q.writeElem%uint32(q.elemCount)) * q.slotSize
	ami.SetUint32LE(q.buffer[slot:slot+headerLen], uint32(len(data)))
	copy(q.buffer[slot+headerLen:], data)
	q.writeElem++
	return nil
}

// Get reads the oldest staged element into dst (which must be at least
// the queue's configured elemSize), returning the element's actual length
// and advancing the read counter. It returns ErrQueueEmpty if nothing is
// staged.
func (q *ElementQueue) Get(dst []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.writeElem == q.readElem {
		return 0, ErrQueueEmpty
	}

	slot := int(q.readElem%uint32(q.elemCount)) * q.slotSize
	n := int(ami.GetUint32LE(q.buffer[slot : slot+headerLen]))
	copy(dst, q.buffer[slot+headerLen:slot+headerLen+n])
	q.readElem++
	return n, nil
}

// Flush discards every staged element without reading it.
func (q *ElementQueue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.writeElem = 0
	q.readElem = 0
}
