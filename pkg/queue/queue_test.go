package queue

import (
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func fromValues(t *testing.T, values ...string) *Queue {
	t.Helper()
	q := New()
	for _, v := range values {
		if err := q.InsertTail(v); err != nil {
			t.Fatalf("unexpected err: inserting `%s`: %v", v, err)
		}
	}
	return q
}

func checkValues(t *testing.T, q *Queue, wanted []string) {
	t.Helper()
	if err := q.Verify(); err != nil {
		t.Fatalf("unexpected err: verifying ring: %v", err)
	}
	if diff := cmp.Diff(wanted, q.Values()); diff != "" {
		t.Fatalf("mismatched values (-wanted +found):\n%s", diff)
	}
	if size := q.Size(); size != len(wanted) {
		t.Fatalf("wanted size `%d`; found `%d`", len(wanted), size)
	}
}

// countingAllocator wraps the heap allocator and fails on demand.
type countingAllocator struct {
	elements  int
	strings   int
	freed     int
	failElem  bool
	failValue bool
}

func (ca *countingAllocator) AllocElement() (*Element, error) {
	if ca.failElem {
		return nil, AllocationFailedErr
	}
	ca.elements++
	return HeapAllocator{}.AllocElement()
}

func (ca *countingAllocator) AllocString(s string) (string, error) {
	if ca.failValue {
		return "", AllocationFailedErr
	}
	ca.strings++
	return HeapAllocator{}.AllocString(s)
}

func (ca *countingAllocator) FreeElement(e *Element) {
	ca.freed++
	HeapAllocator{}.FreeElement(e)
}

func (ca *countingAllocator) FreeString(string) {}

func TestNilQueue(t *testing.T) {
	var q *Queue
	if err := q.InsertHead("a"); !errors.Is(err, NilQueueErr) {
		t.Fatalf("InsertHead: wanted `%v`; found `%v`", NilQueueErr, err)
	}
	if err := q.InsertTail("a"); !errors.Is(err, NilQueueErr) {
		t.Fatalf("InsertTail: wanted `%v`; found `%v`", NilQueueErr, err)
	}
	if e := q.RemoveHead(make([]byte, 8)); e != nil {
		t.Fatalf("RemoveHead: wanted nil; found `%s`", e.Value)
	}
	if e := q.RemoveTail(nil); e != nil {
		t.Fatalf("RemoveTail: wanted nil; found `%s`", e.Value)
	}
	if size := q.Size(); size != 0 {
		t.Fatalf("Size: wanted 0; found %d", size)
	}
	if q.DeleteMid() {
		t.Fatal("DeleteMid: wanted false")
	}
	if q.DeleteDup() {
		t.Fatal("DeleteDup: wanted false")
	}
	q.Swap()
	q.Reverse()
	q.Sort()
	q.Free()
}

func TestFreedQueueIsAbsent(t *testing.T) {
	ca := &countingAllocator{}
	q, err := NewWithAllocator(ca)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for _, v := range []string{"a", "b", "c"} {
		if err := q.InsertTail(v); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	q.Free()
	if ca.freed != ca.elements {
		t.Fatalf("wanted %d freed elements; found %d", ca.elements, ca.freed)
	}
	if err := q.InsertHead("d"); !errors.Is(err, NilQueueErr) {
		t.Fatalf("wanted `%v`; found `%v`", NilQueueErr, err)
	}
	if q.Size() != 0 {
		t.Fatal("wanted freed queue to have size 0")
	}
	q.Free()
}

func TestNewAllocationFailure(t *testing.T) {
	q, err := NewWithAllocator(&countingAllocator{failElem: true})
	if !errors.Is(err, AllocationFailedErr) {
		t.Fatalf("wanted `%v`; found `%v`", AllocationFailedErr, err)
	}
	if q != nil {
		t.Fatal("wanted nil queue")
	}
}

func TestInsertAllocationFailure(t *testing.T) {
	for _, tc := range []struct {
		name      string
		failElem  bool
		failValue bool
	}{
		{name: "element", failElem: true},
		{name: "value", failValue: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ca := &countingAllocator{}
			q, err := NewWithAllocator(ca)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if err := q.InsertTail("a"); err != nil {
				t.Fatalf("unexpected err: %v", err)
			}

			ca.failElem, ca.failValue = tc.failElem, tc.failValue
			for _, insert := range []func(string) error{
				q.InsertHead,
				q.InsertTail,
			} {
				if err := insert("b"); !errors.Is(err, AllocationFailedErr) {
					t.Fatalf(
						"wanted `%v`; found `%v`",
						AllocationFailedErr,
						err,
					)
				}
			}
			checkValues(t, q, []string{"a"})

			// a node whose value could not be copied is handed back
			if tc.failValue && ca.freed != 2 {
				t.Fatalf("wanted 2 freed elements; found %d", ca.freed)
			}
		})
	}
}

func TestInsertCopiesValue(t *testing.T) {
	b := []byte("hello")
	q := New()
	if err := q.InsertHead(string(b)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	b[0] = 'j'
	checkValues(t, q, []string{"hello"})
}

func TestInsertOrder(t *testing.T) {
	q := New()
	for _, step := range []struct {
		head  bool
		value string
	}{
		{true, "b"},
		{false, "c"},
		{true, "a"},
		{false, "d"},
	} {
		var err error
		if step.head {
			err = q.InsertHead(step.value)
		} else {
			err = q.InsertTail(step.value)
		}
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if err := q.Verify(); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	checkValues(t, q, []string{"a", "b", "c", "d"})
	if q.Head().Value != "a" || q.Tail().Value != "d" {
		t.Fatalf(
			"wanted head `a` and tail `d`; found `%s` and `%s`",
			q.Head().Value,
			q.Tail().Value,
		)
	}
}

func TestRemove(t *testing.T) {
	q := fromValues(t, "first", "middle", "last")

	buf := make([]byte, 16)
	e := q.RemoveHead(buf)
	if e == nil || e.Value != "first" {
		t.Fatalf("wanted `first`; found `%v`", e)
	}
	if found := string(buf[:5]); found != "first" || buf[5] != 0 {
		t.Fatalf("wanted `first\\x00` in buffer; found `%q`", buf[:6])
	}
	if e.Linked() {
		t.Fatal("removed element is still linked")
	}
	q.Each(func(other *Element) bool {
		if other == e {
			t.Fatal("removed element is still reachable")
		}
		return true
	})
	e.Release()

	e = q.RemoveTail(nil)
	if e == nil || e.Value != "last" {
		t.Fatalf("wanted `last`; found `%v`", e)
	}
	e.Release()
	checkValues(t, q, []string{"middle"})

	q.RemoveTail(nil).Release()
	checkValues(t, q, nil)
	if e := q.RemoveHead(buf); e != nil {
		t.Fatalf("wanted nil from empty queue; found `%s`", e.Value)
	}
	if e := q.RemoveTail(buf); e != nil {
		t.Fatalf("wanted nil from empty queue; found `%s`", e.Value)
	}
}

func TestRoundTrip(t *testing.T) {
	q := fromValues(t, "x", "y")
	if err := q.InsertHead("value"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	buf := make([]byte, 32)
	e := q.RemoveHead(buf)
	if e.Value != "value" {
		t.Fatalf("wanted `value`; found `%s`", e.Value)
	}
	e.Release()
	checkValues(t, q, []string{"x", "y"})
}

func TestReleaseLinkedPanics(t *testing.T) {
	q := fromValues(t, "a")
	defer func() {
		if recover() == nil {
			t.Fatal("wanted panic releasing a linked element")
		}
	}()
	q.Head().Release()
}

func TestCopyOut(t *testing.T) {
	const payload = "abcdefghij"
	for capacity := 0; capacity <= len(payload)+3; capacity++ {
		t.Run(strconv.Itoa(capacity), func(t *testing.T) {
			// guard bytes after the buffer must survive
			backing := make([]byte, capacity+4)
			for i := range backing {
				backing[i] = 'X'
			}
			buf := backing[:capacity]
			n := CopyOut(buf, payload)

			wanted := capacity - 1
			if wanted < 0 {
				wanted = 0
			}
			if wanted > len(payload) {
				wanted = len(payload)
			}
			if n != wanted {
				t.Fatalf("wanted %d bytes copied; found %d", wanted, n)
			}
			if capacity > 0 {
				if string(buf[:n]) != payload[:n] {
					t.Fatalf("wanted `%s`; found `%s`", payload[:n], buf[:n])
				}
				if buf[n] != 0 {
					t.Fatalf("missing terminator at %d", n)
				}
			}
			for i := capacity; i < len(backing); i++ {
				if backing[i] != 'X' {
					t.Fatalf("byte %d past capacity was overwritten", i)
				}
			}
		})
	}
}

func TestDeleteMid(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  []string
		wanted []string
		ok     bool
	}{
		{name: "empty", input: nil, wanted: nil, ok: false},
		{name: "one", input: []string{"1"}, wanted: nil, ok: true},
		{name: "two", input: []string{"1", "2"}, wanted: []string{"1"}, ok: true},
		{
			name:   "five",
			input:  []string{"1", "2", "3", "4", "5"},
			wanted: []string{"1", "2", "4", "5"},
			ok:     true,
		},
		{
			name:   "six",
			input:  []string{"1", "2", "3", "4", "5", "6"},
			wanted: []string{"1", "2", "3", "5", "6"},
			ok:     true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := fromValues(t, tc.input...)
			if ok := q.DeleteMid(); ok != tc.ok {
				t.Fatalf("wanted `%t`; found `%t`", tc.ok, ok)
			}
			checkValues(t, q, tc.wanted)
		})
	}
}

func TestDeleteDup(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  []string
		wanted []string
	}{
		{name: "empty", input: nil, wanted: nil},
		{name: "single", input: []string{"a"}, wanted: []string{"a"}},
		{name: "pair", input: []string{"a", "a"}, wanted: nil},
		{
			name:   "mixed",
			input:  []string{"a", "a", "b", "c", "c", "c"},
			wanted: []string{"b"},
		},
		{
			name:   "unique",
			input:  []string{"a", "b", "c"},
			wanted: []string{"a", "b", "c"},
		},
		{
			name:   "runs-at-both-ends",
			input:  []string{"a", "a", "b", "c", "d", "d"},
			wanted: []string{"b", "c"},
		},
		{
			name:   "adjacent-runs",
			input:  []string{"a", "a", "b", "b", "c"},
			wanted: []string{"c"},
		},
		{
			name:   "case-sensitive",
			input:  []string{"A", "a", "a"},
			wanted: []string{"A"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ca := &countingAllocator{}
			q, err := NewWithAllocator(ca)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			for _, v := range tc.input {
				if err := q.InsertTail(v); err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
			}
			if !q.DeleteDup() {
				t.Fatal("wanted true")
			}
			checkValues(t, q, tc.wanted)
			if removed := len(tc.input) - len(tc.wanted); ca.freed != removed {
				t.Fatalf("wanted %d released; found %d", removed, ca.freed)
			}
		})
	}
}

func elements(q *Queue) []*Element {
	var out []*Element
	q.Each(func(e *Element) bool {
		out = append(out, e)
		return true
	})
	return out
}

func TestSwap(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  []string
		wanted []string
	}{
		{name: "empty", input: nil, wanted: nil},
		{name: "one", input: []string{"1"}, wanted: []string{"1"}},
		{name: "two", input: []string{"1", "2"}, wanted: []string{"2", "1"}},
		{
			name:   "odd",
			input:  []string{"1", "2", "3", "4", "5"},
			wanted: []string{"2", "1", "4", "3", "5"},
		},
		{
			name:   "even",
			input:  []string{"1", "2", "3", "4"},
			wanted: []string{"2", "1", "4", "3"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := fromValues(t, tc.input...)
			before := elements(q)
			q.Swap()
			checkValues(t, q, tc.wanted)

			// nodes move; values do not
			after := elements(q)
			for i := 0; i+1 < len(before); i += 2 {
				if after[i] != before[i+1] || after[i+1] != before[i] {
					t.Fatalf("pair %d was not relinked", i/2)
				}
			}
		})
	}
}

func TestReverse(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  []string
		wanted []string
	}{
		{name: "empty", input: nil, wanted: nil},
		{name: "one", input: []string{"a"}, wanted: []string{"a"}},
		{
			name:   "many",
			input:  []string{"a", "b", "c", "d"},
			wanted: []string{"d", "c", "b", "a"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := fromValues(t, tc.input...)
			before := elements(q)
			q.Reverse()
			checkValues(t, q, tc.wanted)

			after := elements(q)
			for i := range before {
				if after[len(after)-1-i] != before[i] {
					t.Fatalf("element %d changed identity", i)
				}
			}

			q.Reverse()
			checkValues(t, q, tc.input)
		})
	}
}

func TestSort(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  []string
		wanted []string
	}{
		{name: "empty", input: nil, wanted: nil},
		{name: "one", input: []string{"z"}, wanted: []string{"z"}},
		{
			name:   "reversed",
			input:  []string{"e", "d", "c", "b", "a"},
			wanted: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:   "duplicates",
			input:  []string{"b", "a", "b", "a", "c"},
			wanted: []string{"a", "a", "b", "b", "c"},
		},
		{
			name:   "byte-order",
			input:  []string{"b", "B", "a", "A", "ab", ""},
			wanted: []string{"", "A", "B", "a", "ab", "b"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := fromValues(t, tc.input...)
			q.Sort()
			checkValues(t, q, tc.wanted)

			// sorting a sorted queue changes nothing
			before := elements(q)
			q.Sort()
			checkValues(t, q, tc.wanted)
			for i, e := range elements(q) {
				if e != before[i] {
					t.Fatalf("resorting moved element %d", i)
				}
			}
		})
	}
}

func TestSortStable(t *testing.T) {
	q := fromValues(t, "b", "a", "b", "a", "b")
	byValue := map[string][]*Element{}
	for _, e := range elements(q) {
		byValue[e.Value] = append(byValue[e.Value], e)
	}

	q.Sort()

	found := map[string][]*Element{}
	for _, e := range elements(q) {
		found[e.Value] = append(found[e.Value], e)
	}
	for value, wanted := range byValue {
		for i := range wanted {
			if found[value][i] != wanted[i] {
				t.Fatalf("equal values `%s` were reordered", value)
			}
		}
	}
}

func TestReorderDoesNotAllocate(t *testing.T) {
	ca := &countingAllocator{}
	q, err := NewWithAllocator(ca)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := q.InsertHead(strconv.Itoa(i)); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	elems, strs := ca.elements, ca.strings
	q.Swap()
	q.Reverse()
	q.Sort()
	if ca.elements != elems || ca.strings != strs || ca.freed != 0 {
		t.Fatal("reordering allocated or freed storage")
	}
}

func TestRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	q := New()
	var model []string
	for i := 0; i < 2000; i++ {
		value := strconv.Itoa(rng.Intn(100))
		switch rng.Intn(4) {
		case 0:
			if err := q.InsertHead(value); err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			model = append([]string{value}, model...)
		case 1:
			if err := q.InsertTail(value); err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			model = append(model, value)
		case 2:
			e := q.RemoveHead(nil)
			if len(model) == 0 {
				if e != nil {
					t.Fatalf("step %d: wanted nil from empty queue", i)
				}
				break
			}
			if e.Value != model[0] {
				t.Fatalf("step %d: wanted `%s`; found `%s`", i, model[0], e.Value)
			}
			e.Release()
			model = model[1:]
		case 3:
			e := q.RemoveTail(nil)
			if len(model) == 0 {
				if e != nil {
					t.Fatalf("step %d: wanted nil from empty queue", i)
				}
				break
			}
			if last := model[len(model)-1]; e.Value != last {
				t.Fatalf("step %d: wanted `%s`; found `%s`", i, last, e.Value)
			}
			e.Release()
			model = model[:len(model)-1]
		}
		if err := q.Verify(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if q.Size() != len(model) {
			t.Fatalf("step %d: wanted size %d; found %d", i, len(model), q.Size())
		}
	}
	if len(model) == 0 {
		model = nil
	}
	checkValues(t, q, model)
}
