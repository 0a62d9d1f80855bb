package queue

import "fmt"

// Element is a single queue entry. It owns its Value and is linked into at
// most one ring at a time.
type Element struct {
	Value string

	next  *Element
	prev  *Element
	alloc Allocator
}

// Next returns the element that follows e in its ring, or nil if e is not
// linked. The returned element may be a queue's sentinel, so callers should
// prefer (*Queue).Each.
func (e *Element) Next() *Element { return e.next }

// Prev returns the element preceding e, or nil if e is not linked.
func (e *Element) Prev() *Element { return e.prev }

// Linked reports whether e is currently part of a ring.
func (e *Element) Linked() bool { return e.next != nil || e.prev != nil }

// Release frees the element's value and then the element itself. e must have
// been removed from its queue first; releasing a linked element panics.
func (e *Element) Release() {
	if e == nil {
		return
	}
	if e.Linked() {
		panic(fmt.Sprintf("releasing linked element `%s`", e.Value))
	}
	alloc := e.alloc
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	alloc.FreeString(e.Value)
	e.Value = ""
	alloc.FreeElement(e)
}

// init makes e a ring of one.
func (e *Element) init() {
	e.next = e
	e.prev = e
}

// splice links e between prev and next.
func splice(e, prev, next *Element) {
	e.prev = prev
	e.next = next
	prev.next = e
	next.prev = e
}

// unlink removes e from its ring and clears its links so that it is no
// longer reachable from (or able to reach) the ring.
func unlink(e *Element) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil
	e.prev = nil
}
