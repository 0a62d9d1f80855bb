package queue

import (
	"errors"
	"fmt"
)

// Queue is a circular doubly linked list of string elements anchored by a
// sentinel. A nil *Queue, or one that has been freed, is treated as absent:
// every method returns its failure value without side effects.
type Queue struct {
	// head is the sentinel. head.next is the first element and head.prev the
	// last; an empty queue's sentinel points to itself both ways. head is nil
	// once the queue has been freed.
	head  *Element
	alloc Allocator
}

// New returns an empty queue backed by the heap allocator.
func New() *Queue {
	q, err := NewWithAllocator(HeapAllocator{})
	if err != nil {
		// the heap allocator never fails
		panic(err)
	}
	return q
}

// NewWithAllocator returns an empty queue whose sentinel and elements are
// obtained from alloc.
func NewWithAllocator(alloc Allocator) (*Queue, error) {
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	head, err := alloc.AllocElement()
	if err != nil {
		return nil, fmt.Errorf("allocating sentinel: %w", err)
	}
	head.alloc = alloc
	head.init()
	return &Queue{head: head, alloc: alloc}, nil
}

func (q *Queue) absent() bool { return q == nil || q.head == nil }

func (q *Queue) empty() bool { return q.head.next == q.head }

// Free releases every element and then the sentinel. The queue is absent
// afterwards.
func (q *Queue) Free() {
	if q.absent() {
		return
	}
	for e := q.head.next; e != q.head; {
		next := e.next
		e.next = nil
		e.prev = nil
		e.Release()
		e = next
	}
	q.head.next = nil
	q.head.prev = nil
	q.alloc.FreeElement(q.head)
	q.head = nil
}

// InsertHead inserts a copy of s at the head of the queue.
func (q *Queue) InsertHead(s string) error {
	if q.absent() {
		return NilQueueErr
	}
	e, err := q.newElement(s)
	if err != nil {
		return err
	}
	splice(e, q.head, q.head.next)
	return nil
}

// InsertTail inserts a copy of s at the tail of the queue.
func (q *Queue) InsertTail(s string) error {
	if q.absent() {
		return NilQueueErr
	}
	e, err := q.newElement(s)
	if err != nil {
		return err
	}
	splice(e, q.head.prev, q.head)
	return nil
}

// newElement allocates an unlinked element holding a copy of s. Nothing is
// left allocated when it fails.
func (q *Queue) newElement(s string) (*Element, error) {
	e, err := q.alloc.AllocElement()
	if err != nil {
		return nil, fmt.Errorf("allocating element: %w", err)
	}
	value, err := q.alloc.AllocString(s)
	if err != nil {
		q.alloc.FreeElement(e)
		return nil, fmt.Errorf("copying value of length %d: %w", len(s), err)
	}
	e.Value = value
	e.alloc = q.alloc
	return e, nil
}

// RemoveHead unlinks the first element and returns it; the caller owns it
// and must Release it. If buf is non-empty, up to len(buf)-1 bytes of the
// removed value are copied into it followed by a zero byte. RemoveHead
// returns nil when the queue is absent or empty.
func (q *Queue) RemoveHead(buf []byte) *Element {
	if q.absent() || q.empty() {
		return nil
	}
	return q.remove(q.head.next, buf)
}

// RemoveTail is RemoveHead for the last element.
func (q *Queue) RemoveTail(buf []byte) *Element {
	if q.absent() || q.empty() {
		return nil
	}
	return q.remove(q.head.prev, buf)
}

func (q *Queue) remove(e *Element, buf []byte) *Element {
	unlink(e)
	CopyOut(buf, e.Value)
	return e
}

// CopyOut copies as much of value as fits into buf while leaving room for a
// terminating zero byte, and returns the number of value bytes copied. It
// never writes past len(buf).
func CopyOut(buf []byte, value string) int {
	if len(buf) == 0 {
		return 0
	}
	n := copy(buf[:len(buf)-1], value)
	buf[n] = 0
	return n
}

// Size counts the elements by walking the ring.
func (q *Queue) Size() int {
	if q.absent() {
		return 0
	}
	n := 0
	for e := q.head.next; e != q.head; e = e.next {
		n++
	}
	return n
}

// Head returns the first element without removing it, or nil.
func (q *Queue) Head() *Element {
	if q.absent() || q.empty() {
		return nil
	}
	return q.head.next
}

// Tail returns the last element without removing it, or nil.
func (q *Queue) Tail() *Element {
	if q.absent() || q.empty() {
		return nil
	}
	return q.head.prev
}

// Each calls f for every element from head to tail until f returns false. f
// must not insert or remove elements.
func (q *Queue) Each(f func(*Element) bool) {
	if q.absent() {
		return
	}
	for e := q.head.next; e != q.head; e = e.next {
		if !f(e) {
			return
		}
	}
}

// Values returns the element values from head to tail.
func (q *Queue) Values() []string {
	var values []string
	q.Each(func(e *Element) bool {
		values = append(values, e.Value)
		return true
	})
	return values
}

var (
	NilQueueErr         = errors.New("queue is nil or freed")
	AllocationFailedErr = errors.New("allocation failed")
	BrokenRingErr       = errors.New("ring closure violated")
)
