package queue

import "strings"

// Allocator supplies storage for queue elements and their values. The
// default HeapAllocator never fails; test harnesses substitute their own to
// simulate allocation failure and to detect leaks.
type Allocator interface {
	AllocElement() (*Element, error)
	AllocString(s string) (string, error)
	FreeElement(e *Element)
	FreeString(s string)
}

type HeapAllocator struct{}

func (HeapAllocator) AllocElement() (*Element, error) { return new(Element), nil }

func (HeapAllocator) AllocString(s string) (string, error) {
	return strings.Clone(s), nil
}

func (HeapAllocator) FreeElement(e *Element) {
	e.next = nil
	e.prev = nil
	e.alloc = nil
}

func (HeapAllocator) FreeString(string) {}
