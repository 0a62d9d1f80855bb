package history

import (
	"errors"
	"fmt"
)

// History remembers the most recent entries up to a fixed capacity, evicting
// the oldest when full.
type History[T any] struct {
	// entries has one more slot than the capacity. The slot preceding start
	// is a spacer, which is how a full history (tail == spacer) is told apart
	// from an empty one (tail == start).
	entries []T
	start   int
	tail    int
}

func New[T any](capacity int) (*History[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf(
			"capacity `%d`: %w",
			capacity,
			NonPositiveCapacityErr,
		)
	}
	return &History[T]{entries: make([]T, capacity+1)}, nil
}

func (h *History[T]) Cap() int { return len(h.entries) - 1 }

func (h *History[T]) Len() int {
	if h.tail >= h.start {
		return h.tail - h.start
	}
	return len(h.entries) - (h.start - h.tail)
}

func (h *History[T]) Full() bool { return h.tail == h.prev(h.start) }

func (h *History[T]) next(i int) int { return (i + 1) % len(h.entries) }

// prev wraps -1 around to the last slot, which Go's % does not do.
func (h *History[T]) prev(i int) int {
	return (len(h.entries) + i - 1) % len(h.entries)
}

// Push appends item. If the history was full, the oldest entry is evicted
// and returned with true.
func (h *History[T]) Push(item T) (T, bool) {
	if spacer := h.prev(h.start); h.tail == spacer {
		evicted := h.entries[h.start]
		h.entries[spacer] = item
		h.tail = h.start
		h.start = h.next(h.start)
		return evicted, true
	}

	h.entries[h.tail] = item
	h.tail = h.next(h.tail)
	var zero T
	return zero, false
}

// PopFront removes and returns the oldest entry.
func (h *History[T]) PopFront() (T, bool) {
	if h.tail == h.start {
		var zero T
		return zero, false
	}
	popped := h.entries[h.start]
	var zero T
	h.entries[h.start] = zero
	h.start = h.next(h.start)
	return popped, true
}

// Items returns the entries oldest first.
func (h *History[T]) Items() []T {
	items := make([]T, h.Len())
	for i := range items {
		items[i] = h.entries[(h.start+i)%len(h.entries)]
	}
	return items
}

var NonPositiveCapacityErr = errors.New("capacity must be positive")
