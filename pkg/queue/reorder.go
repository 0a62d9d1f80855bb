package queue

// Swap exchanges every two adjacent elements (1st with 2nd, 3rd with 4th
// and so on) by relinking them. An unpaired final element stays put.
func (q *Queue) Swap() {
	if q.absent() || q.empty() {
		return
	}
	for first := q.head.next; first != q.head && first.next != q.head; first = first.next {
		second := first.next

		// before: prev <-> first <-> second <-> next
		// after:  prev <-> second <-> first <-> next
		prev, next := first.prev, second.next
		prev.next = second
		second.prev = prev
		second.next = first
		first.prev = second
		first.next = next
		next.prev = first
	}
}

// Reverse reverses the queue in place by exchanging the links of every node,
// sentinel included.
func (q *Queue) Reverse() {
	if q.absent() || q.empty() {
		return
	}
	e := q.head
	for {
		e.next, e.prev = e.prev, e.next
		// the old next is now e.prev
		e = e.prev
		if e == q.head {
			return
		}
	}
}
