package queue

// Sort sorts the queue in ascending byte-wise order of the element values.
// The sort is stable.
//
// The ring is opened into a chain terminated by a nil next link, merge
// sorted using only next links, and then closed again with the prev links
// rebuilt.
func (q *Queue) Sort() {
	if q.absent() || q.empty() {
		return
	}

	q.head.prev.next = nil
	first := mergeSort(q.head.next)

	prev := q.head
	for e := first; e != nil; e = e.next {
		prev.next = e
		e.prev = prev
		prev = e
	}
	prev.next = q.head
	q.head.prev = prev
}

func mergeSort(chain *Element) *Element {
	if chain == nil || chain.next == nil {
		return chain
	}

	slow := chain
	for fast := chain.next; fast != nil && fast.next != nil; fast = fast.next.next {
		slow = slow.next
	}
	right := slow.next
	slow.next = nil

	return merge(mergeSort(chain), mergeSort(right))
}

// merge interleaves two sorted chains. Ties go to left so that equal values
// keep their original order.
func merge(left, right *Element) *Element {
	var sentinel Element
	tail := &sentinel
	for left != nil && right != nil {
		if left.Value <= right.Value {
			tail.next = left
			left = left.next
		} else {
			tail.next = right
			right = right.next
		}
		tail = tail.next
	}
	if left != nil {
		tail.next = left
	} else {
		tail.next = right
	}
	return sentinel.next
}
