package queue

import (
	"fmt"
	"sync/atomic"
)

// mpscSlot couples a payload with its sequence stamp. The sequence protocol
// makes push/pop ABA-free: a producer may write a slot only when
// sequence == position, a consumer may read only when
// sequence == position+1.
type mpscSlot[T any] struct {
	sequence atomic.Uint64
	val      T
}

// MPSC is a fixed-capacity ring buffer safe for any number of producer
// goroutines and exactly one consumer goroutine. Producers claim a position
// with a CAS on tail, then publish the payload by storing sequence =
// position+1.
type MPSC[T any] struct {
	head atomic.Uint64
	_    [cacheLineSize - 8]byte
	tail atomic.Uint64
	_    [cacheLineSize - 8]byte

	mask uint64
	buf  []mpscSlot[T]
}

// NewMPSC allocates a queue. Capacity must be a positive power of two.
func NewMPSC[T any](capacity int) (*MPSC[T], error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("queue: capacity must be a positive power of two, got %d", capacity)
	}
	q := &MPSC[T]{
		mask: uint64(capacity - 1),
		buf:  make([]mpscSlot[T], capacity),
	}
	for i := range q.buf {
		q.buf[i].sequence.Store(uint64(i))
	}
	return q, nil
}

// TryPush enqueues v, returning false when the queue is full. Safe for
// concurrent producers.
func (q *MPSC[T]) TryPush(v T) bool {
	var pos uint64
	var slot *mpscSlot[T]

	for {
		pos = q.tail.Load()
		slot = &q.buf[pos&q.mask]
		seq := slot.sequence.Load()

		diff := int64(seq) - int64(pos)
		if diff == 0 {
			if q.tail.CompareAndSwap(pos, pos+1) {
				break
			}
		} else if diff < 0 {
			return false // consumer has not reclaimed the slot a lap behind
		}
		// diff > 0: another producer claimed pos first; reload tail
	}

	slot.val = v
	slot.sequence.Store(pos + 1)
	return true
}

// TryPop dequeues one value, returning false when the queue is empty.
// Consumer side only.
func (q *MPSC[T]) TryPop() (T, bool) {
	var zero T

	pos := q.head.Load()
	slot := &q.buf[pos&q.mask]
	seq := slot.sequence.Load()

	if int64(seq)-int64(pos+1) < 0 {
		return zero, false // producer has not published this slot yet
	}

	v := slot.val
	slot.val = zero
	slot.sequence.Store(pos + uint64(len(q.buf)))
	q.head.Store(pos + 1)
	return v, true
}

// Size returns the approximate number of buffered values.
func (q *MPSC[T]) Size() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail < head {
		return 0
	}
	n := int(tail - head)
	if n > len(q.buf) {
		n = len(q.buf)
	}
	return n
}

// Empty reports whether the queue appears empty.
func (q *MPSC[T]) Empty() bool {
	return q.head.Load() == q.tail.Load()
}

// Capacity returns the maximum number of buffered values.
func (q *MPSC[T]) Capacity() int {
	return len(q.buf)
}
