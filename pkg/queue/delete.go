package queue

// DeleteMid removes and releases the element at index ⌊n/2⌋ of an n-element
// queue. It returns false if the queue is absent or empty.
func (q *Queue) DeleteMid() bool {
	if q.absent() || q.empty() {
		return false
	}

	// fast moves two nodes for each one slow moves, so slow is at index k
	// when fast is at index 2k; the loop stops when fast is on the last node
	// (odd n) or on the sentinel (even n).
	slow, fast := q.head.next, q.head.next
	for fast != q.head && fast.next != q.head {
		slow = slow.next
		fast = fast.next.next
	}
	unlink(slow)
	slow.Release()
	return true
}

// DeleteDup deletes every element whose value equals that of an adjacent
// element, so that each run of two or more equal values disappears
// entirely. The queue must already be sorted; on unsorted input only
// adjacent runs are detected. It returns false only for an absent queue.
func (q *Queue) DeleteDup() bool {
	if q.absent() {
		return false
	}

	// e is always the first node of a not yet examined run.
	for e := q.head.next; e != q.head; {
		end := e.next
		for end != q.head && end.Value == e.Value {
			end = end.next
		}
		if end == e.next {
			e = end
			continue
		}
		for e != end {
			next := e.next
			unlink(e)
			e.Release()
			e = next
		}
	}
	return true
}
