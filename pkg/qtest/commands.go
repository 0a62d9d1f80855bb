package qtest

import (
	"bytes"
	"errors"
	"slices"
	"sort"

	"github.com/weberc2/mono/queue/pkg/queue"
)

type command struct {
	usage       string
	description string
	minArgs     int
	maxArgs     int
	run         func(c *Console, args []string)
}

// maxSourceDepth bounds nested `source` commands.
const maxSourceDepth = 16

// guardBytes trail the copy-out buffer handed to removals so that overruns
// can be detected.
const guardBytes = 16

var commands map[string]command

// commands is populated in init because several commands refer back to it.
func init() {
	commands = map[string]command{
		"new": {
			usage:       "",
			description: "create a new queue and make it current",
			run: func(c *Console, _ []string) {
				c.newQueue()
				c.show()
			},
		},
		"free": {
			usage:       "",
			description: "free the current queue",
			run: func(c *Console, _ []string) {
				if c.cur() == nil {
					c.currentQueue().Free()
					c.warn("Calling free on null queue")
					return
				}
				c.freeCurrent()
				c.checkLeaks()
				c.show()
			},
		},
		"prev": {
			usage:       "",
			description: "switch to the previous queue in the chain",
			run:         func(c *Console, _ []string) { c.step(-1) },
		},
		"next": {
			usage:       "",
			description: "switch to the next queue in the chain",
			run:         func(c *Console, _ []string) { c.step(1) },
		},
		"ih": {
			usage:       "str [n]",
			description: "insert str at head n times (str RAND inserts random values)",
			minArgs:     1,
			maxArgs:     2,
			run:         func(c *Console, args []string) { c.insert(true, args) },
		},
		"it": {
			usage:       "str [n]",
			description: "insert str at tail n times (str RAND inserts random values)",
			minArgs:     1,
			maxArgs:     2,
			run:         func(c *Console, args []string) { c.insert(false, args) },
		},
		"rh": {
			usage:       "[str]",
			description: "remove from head, optionally comparing with str",
			maxArgs:     1,
			run:         func(c *Console, args []string) { c.remove(true, false, args) },
		},
		"rt": {
			usage:       "[str]",
			description: "remove from tail, optionally comparing with str",
			maxArgs:     1,
			run:         func(c *Console, args []string) { c.remove(false, false, args) },
		},
		"rhq": {
			usage:       "",
			description: "remove from head without reporting the value",
			run:         func(c *Console, args []string) { c.remove(true, true, args) },
		},
		"size": {
			usage:       "[n]",
			description: "compute the queue size n times",
			maxArgs:     1,
			run:         (*Console).size,
		},
		"dm": {
			usage:       "",
			description: "delete the middle element",
			run:         func(c *Console, _ []string) { c.deleteMid() },
		},
		"dedup": {
			usage:       "",
			description: "delete every value that appears more than once (queue must be sorted)",
			run:         func(c *Console, _ []string) { c.deleteDup() },
		},
		"swap": {
			usage:       "",
			description: "swap every two adjacent elements",
			run: func(c *Console, _ []string) {
				c.reorder("swap", (*queue.Queue).Swap, swapValues)
			},
		},
		"reverse": {
			usage:       "",
			description: "reverse the queue",
			run: func(c *Console, _ []string) {
				c.reorder("reverse", (*queue.Queue).Reverse, reverseValues)
			},
		},
		"sort": {
			usage:       "",
			description: "sort the queue in ascending order",
			run:         func(c *Console, _ []string) { c.sort() },
		},
		"show": {
			usage:       "",
			description: "print the current queue",
			run:         func(c *Console, _ []string) { c.showQueue() },
		},
		"history": {
			usage:       "",
			description: "print recently executed commands",
			run: func(c *Console, _ []string) {
				for i, line := range c.history.Items() {
					c.notify.Info("%4d  %s", i+1, line)
				}
			},
		},
		"option": {
			usage:       "[name [value]]",
			description: "print or set options",
			maxArgs:     2,
			run:         (*Console).option,
		},
		"source": {
			usage:       "file",
			description: "run the commands in file",
			minArgs:     1,
			maxArgs:     1,
			run:         (*Console).source,
		},
		"help": {
			usage:       "",
			description: "show this message",
			run:         func(c *Console, _ []string) { c.help() },
		},
		"quit": {
			usage:       "",
			description: "exit",
			run:         func(c *Console, _ []string) { c.quit = true },
		},
	}
}

func (c *Console) step(delta int) {
	if len(c.chain) == 0 {
		c.warn("No queues in the chain")
		return
	}
	c.current = (c.current + delta + len(c.chain)) % len(c.chain)
	c.show()
}

func (c *Console) insert(head bool, args []string) {
	op := "insert tail"
	insert := (*queue.Queue).InsertTail
	if head {
		op = "insert head"
		insert = (*queue.Queue).InsertHead
	}

	count := 1
	if len(args) > 1 {
		n, err := parseInt(args[1], 1, 1<<24)
		if err != nil {
			c.fail("%s: invalid count: %v", op, err)
			return
		}
		count = n
	}

	qc := c.cur()
	for i := 0; i < count; i++ {
		value := args[0]
		if value == "RAND" {
			value = c.randomString()
		}
		err := insert(c.currentQueue(), value)
		if qc == nil {
			if !errors.Is(err, queue.NilQueueErr) {
				c.fail("%s on null queue returned `%v`", op, err)
			} else {
				c.warn("Calling %s on null queue", op)
			}
			return
		}
		if err != nil {
			c.allocationFailure(op, err)
			break
		}
		qc.size++
	}
	c.check(op)
	c.show()
}

func (c *Console) remove(head, quiet bool, args []string) {
	op := "remove tail"
	remove := (*queue.Queue).RemoveTail
	if head {
		op = "remove head"
		remove = (*queue.Queue).RemoveHead
	}

	capacity := c.options.StringLength + 1
	backing := make([]byte, capacity+guardBytes)
	for i := range backing {
		backing[i] = 'X'
	}
	buf := backing[:capacity]
	e := remove(c.currentQueue(), buf)

	qc := c.cur()
	switch {
	case qc == nil:
		if e != nil {
			c.fail("%s on null queue returned `%s`", op, e.Value)
		} else {
			c.warn("Calling %s on null queue", op)
		}
		return
	case qc.size == 0:
		if e != nil {
			c.fail("%s on empty queue returned `%s`", op, e.Value)
		} else {
			c.warn("Calling %s on empty queue", op)
		}
		c.check(op)
		return
	case e == nil:
		c.fail("Failed to %s", op)
		c.check(op)
		return
	}
	qc.size--

	if e.Linked() {
		c.fail("%s returned `%s` while it is still linked", op, e.Value)
		c.check(op)
		return
	}
	if !bytes.Equal(backing[capacity:], bytes.Repeat([]byte{'X'}, guardBytes)) {
		c.fail("copying of string in %s overflowed destination buffer", op)
	}
	if n := bytes.IndexByte(buf, 0); n < 0 {
		c.fail("%s did not terminate the copied value", op)
	} else {
		wanted := e.Value
		if len(wanted) > capacity-1 {
			wanted = wanted[:capacity-1]
		}
		if string(buf[:n]) != wanted {
			c.fail("%s copied `%s`, but removed `%s`", op, buf[:n], e.Value)
		}
	}
	if len(args) > 0 && e.Value != args[0] {
		c.fail("Removed value %s != expected value %s", e.Value, args[0])
	} else if !quiet {
		c.notify.Info("Removed %s from queue", e.Value)
	}
	e.Release()

	c.check(op)
	c.show()
}

func (c *Console) size(args []string) {
	count := 1
	if len(args) > 0 {
		n, err := parseInt(args[0], 1, 1<<24)
		if err != nil {
			c.fail("size: invalid count: %v", err)
			return
		}
		count = n
	}

	qc := c.cur()
	size := 0
	for i := 0; i < count; i++ {
		size = c.currentQueue().Size()
	}
	if qc == nil {
		if size != 0 {
			c.fail("Computed size of null queue as %d", size)
		} else {
			c.warn("Calling size on null queue")
		}
		return
	}
	if size != qc.size {
		c.fail("Computed queue size as %d, but correct value is %d", size, qc.size)
		return
	}
	c.notify.Info("Queue size = %d", size)
	c.show()
}

func (c *Console) deleteMid() {
	q := c.currentQueue()
	qc := c.cur()
	before := q.Values()
	ok := q.DeleteMid()
	if qc == nil {
		if ok {
			c.fail("delete mid on null queue succeeded")
		} else {
			c.warn("Calling delete mid on null queue")
		}
		return
	}
	if ok != (qc.size > 0) {
		c.fail("delete mid returned %t on a queue of %d elements", ok, qc.size)
	}
	if ok {
		qc.size--
		mid := len(before) / 2
		wanted := append(slices.Clone(before[:mid]), before[mid+1:]...)
		if !slices.Equal(wanted, q.Values()) {
			c.fail("delete mid did not remove element %d (`%s`)", mid, before[mid])
		}
	}
	c.check("delete mid")
	c.show()
}

func (c *Console) deleteDup() {
	q := c.currentQueue()
	qc := c.cur()
	before := q.Values()
	sorted := sort.StringsAreSorted(before)
	if !sorted {
		c.warn("dedup expects a sorted queue; the result is unspecified")
	}
	ok := q.DeleteDup()
	if qc == nil {
		if ok {
			c.fail("dedup on null queue succeeded")
		} else {
			c.warn("Calling dedup on null queue")
		}
		return
	}
	if !ok {
		c.fail("dedup failed on a valid queue")
	}
	if sorted {
		wanted := dedupValues(before)
		if !slices.Equal(wanted, q.Values()) {
			c.fail("dedup left duplicated values in the queue")
		}
		qc.size = len(wanted)
	} else {
		qc.size = q.Size()
	}
	c.check("dedup")
	c.show()
}

func (c *Console) reorder(
	op string,
	apply func(*queue.Queue),
	expect func([]string) []string,
) {
	q := c.currentQueue()
	before := q.Values()
	apply(q)
	if c.cur() == nil {
		c.warn("Calling %s on null queue", op)
		return
	}
	if !slices.Equal(expect(before), q.Values()) {
		c.fail("%s produced the wrong order", op)
	}
	c.check(op)
	c.show()
}

func (c *Console) sort() {
	q := c.currentQueue()
	before := q.Values()
	q.Sort()
	if c.cur() == nil {
		c.warn("Calling sort on null queue")
		return
	}
	after := q.Values()
	if !sort.StringsAreSorted(after) {
		c.fail("Not sorted in ascending order")
	}
	wanted := slices.Clone(before)
	sort.Strings(wanted)
	if !slices.Equal(wanted, after) {
		c.fail("sort changed the values in the queue")
	}
	c.check("sort")
	c.show()
}

func (c *Console) option(args []string) {
	if len(args) == 0 {
		for _, name := range optionNames() {
			opt := options[name]
			c.notify.Info("%s\t%s\t%s", name, opt.get(c), opt.description)
		}
		return
	}
	opt, found := lookupOption(args[0])
	if !found {
		c.fail("Unknown option '%s'", args[0])
		return
	}
	if len(args) == 1 {
		c.notify.Info("%s\t%s", args[0], opt.get(c))
		return
	}
	if err := opt.set(c, args[1]); err != nil {
		c.fail("option %s: %v", args[0], err)
	}
}

func (c *Console) source(args []string) {
	if c.depth >= maxSourceDepth {
		c.fail("source nested deeper than %d files", maxSourceDepth)
		return
	}
	c.depth++
	defer func() { c.depth-- }()

	if err := c.RunFile(c.runCtx, args[0]); err != nil {
		if errors.Is(err, TooManyErrorsErr) {
			// the enclosing Execute reports the limit
			return
		}
		c.fail("source: %v", err)
	}
}

func swapValues(values []string) []string {
	out := slices.Clone(values)
	for i := 0; i+1 < len(out); i += 2 {
		out[i], out[i+1] = out[i+1], out[i]
	}
	return out
}

func reverseValues(values []string) []string {
	out := slices.Clone(values)
	slices.Reverse(out)
	return out
}

// dedupValues keeps only the values of sorted input that appear once.
func dedupValues(values []string) []string {
	var out []string
	for i := 0; i < len(values); {
		j := i + 1
		for j < len(values) && values[j] == values[i] {
			j++
		}
		if j == i+1 {
			out = append(out, values[i])
		}
		i = j
	}
	return out
}
