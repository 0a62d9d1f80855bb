package queue

import "fmt"

// Verify walks the ring in both directions and checks that every node's
// neighbours point back at it. It returns nil for a nil or freed queue.
func (q *Queue) Verify() error {
	if q.absent() {
		return nil
	}
	forward := 0
	for e := q.head; ; e = e.next {
		if e.next == nil || e.prev == nil {
			return fmt.Errorf("node %d: nil link: %w", forward, BrokenRingErr)
		}
		if e.next.prev != e {
			return fmt.Errorf(
				"node %d: next.prev does not point back: %w",
				forward,
				BrokenRingErr,
			)
		}
		if e.prev.next != e {
			return fmt.Errorf(
				"node %d: prev.next does not point back: %w",
				forward,
				BrokenRingErr,
			)
		}
		if e.next == q.head {
			break
		}
		forward++
	}

	backward := 0
	for e := q.head.prev; e != q.head; e = e.prev {
		backward++
	}
	if forward != backward {
		return fmt.Errorf(
			"forward walk found %d nodes; backward walk found %d: %w",
			forward,
			backward,
			BrokenRingErr,
		)
	}
	return nil
}
