package qtest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/weberc2/mono/queue/pkg/harness"
	"github.com/weberc2/mono/queue/pkg/history"
	"github.com/weberc2/mono/queue/pkg/queue"
)

// queueContext is one queue in the console's chain together with what the
// console believes about it.
type queueContext struct {
	id   string
	q    *queue.Queue
	size int
}

// Console interprets qtest commands against a chain of queues, checking the
// queue invariants after every command and counting the errors it finds.
type Console struct {
	notify  Notifier
	logger  log.Logger
	options Options
	alloc   *harness.Allocator
	rng     *rand.Rand
	history *history.History[string]

	chain   []*queueContext
	current int

	errorCount int
	quit       bool

	// runCtx is the context of the innermost Run, used by `source`.
	runCtx context.Context
	depth  int
}

func NewConsole(
	notify Notifier,
	logger log.Logger,
	options Options,
) (*Console, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	h, err := history.New[string](options.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("creating command history: %w", err)
	}
	alloc := harness.NewAllocator(options.Seed)
	if err := alloc.SetFailProbability(options.FailProbability); err != nil {
		return nil, err
	}
	return &Console{
		notify:  notify,
		logger:  logger,
		options: options,
		alloc:   alloc,
		rng:     rand.New(rand.NewSource(options.Seed)),
		history: h,
	}, nil
}

// Errors returns the number of errors found so far.
func (c *Console) Errors() int { return c.errorCount }

// Run executes commands read from r, one per line, until r is exhausted, a
// `quit` command runs, ctx is done or the error limit is reached.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	outer := c.runCtx
	c.runCtx = ctx
	defer func() { c.runCtx = outer }()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Execute(scanner.Text()); err != nil {
			return err
		}
		if c.quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}
	return nil
}

// RunFile runs the commands in the named file.
func (c *Console) RunFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening command file: %w", err)
	}
	defer f.Close()
	if err := c.Run(ctx, f); err != nil {
		return fmt.Errorf("running `%s`: %w", path, err)
	}
	return nil
}

// Finish frees every queue still in the chain, reporting leaked blocks.
func (c *Console) Finish() {
	for len(c.chain) > 0 {
		c.freeCurrent()
	}
	c.checkLeaks()
	c.notify.Summary(c.errorCount)
}

// Execute runs a single command line. It returns TooManyErrorsErr once the
// error limit has been reached.
func (c *Console) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "#") {
		if c.options.Echo {
			c.notify.Comment(line)
		}
		return nil
	}
	if c.options.Echo {
		c.notify.Echo(line)
	}
	c.history.Push(line)

	args := strings.Fields(line)
	cmd, found := commands[args[0]]
	if !found {
		c.fail("Unknown command '%s'", args[0])
	} else if len(args)-1 < cmd.minArgs || len(args)-1 > cmd.maxArgs {
		c.fail("%s takes %s", args[0], cmd.usage)
	} else {
		level.Debug(c.logger).Log(
			"msg", "executing command",
			"command", args[0],
			"queue", c.currentID(),
		)
		cmd.run(c, args[1:])
	}

	if c.options.ErrorLimit > 0 && c.errorCount >= c.options.ErrorLimit {
		return fmt.Errorf("%d errors: %w", c.errorCount, TooManyErrorsErr)
	}
	return nil
}

func (c *Console) fail(format string, args ...interface{}) {
	c.errorCount++
	c.notify.Error(format, args...)
}

func (c *Console) warn(format string, args ...interface{}) {
	if c.options.Verbose > 0 {
		c.notify.Warning(format, args...)
	}
}

func (c *Console) cur() *queueContext {
	if len(c.chain) == 0 {
		return nil
	}
	return c.chain[c.current]
}

func (c *Console) currentID() string {
	if qc := c.cur(); qc != nil {
		return qc.id
	}
	return "none"
}

// currentQueue returns the current queue, which is nil when the chain is
// empty. Commands deliberately call queue operations on it either way.
func (c *Console) currentQueue() *queue.Queue {
	if qc := c.cur(); qc != nil {
		return qc.q
	}
	return nil
}

// show prints the current queue when verbose.
func (c *Console) show() {
	if c.options.Verbose > 0 {
		c.showQueue()
	}
}

func (c *Console) showQueue() {
	q := c.currentQueue()
	c.notify.Queue(q == nil, q.Values())
}

// check verifies the ring and compares the queue's size with the console's
// record. It reports whether the queue is consistent.
func (c *Console) check(op string) bool {
	qc := c.cur()
	if qc == nil {
		return true
	}
	if err := qc.q.Verify(); err != nil {
		c.fail("%s corrupted the queue: %v", op, err)
		return false
	}
	if size := qc.q.Size(); size != qc.size {
		c.fail(
			"after %s, queue has %d elements, but %d were expected",
			op,
			size,
			qc.size,
		)
		qc.size = size
		return false
	}
	return true
}

// expectedBlocks is what the allocator should hold for the live chain: a
// sentinel per queue plus an element and a value per entry.
func (c *Console) expectedBlocks() int {
	blocks := 0
	for _, qc := range c.chain {
		blocks += 1 + 2*qc.q.Size()
	}
	return blocks
}

func (c *Console) checkLeaks() {
	if allocated, wanted := c.alloc.Allocated(), c.expectedBlocks(); allocated != wanted {
		c.fail(
			"Freed queue, but %d blocks are still allocated",
			allocated-wanted,
		)
	}
}

func (c *Console) freeCurrent() {
	qc := c.cur()
	if qc == nil {
		return
	}
	qc.q.Free()
	c.chain = append(c.chain[:c.current], c.chain[c.current+1:]...)
	if c.current >= len(c.chain) && c.current > 0 {
		c.current--
	}
}

func (c *Console) newQueue() {
	q, err := queue.NewWithAllocator(c.alloc)
	if err != nil {
		c.allocationFailure("new", err)
		return
	}
	qc := &queueContext{id: uuid.NewString(), q: q}
	c.chain = append(c.chain, qc)
	c.current = len(c.chain) - 1
	level.Info(c.logger).Log("msg", "created queue", "queue", qc.id)
}

// allocationFailure reports a failed allocation. With failure injection on,
// failing is legitimate behavior; without it, it is an error.
func (c *Console) allocationFailure(op string, err error) {
	if c.options.FailProbability > 0 && errors.Is(err, queue.AllocationFailedErr) {
		level.Info(c.logger).Log(
			"msg", "injected allocation failure",
			"op", op,
			"err", err,
		)
		c.warn("%s failed: %v", op, err)
		return
	}
	c.fail("%s failed: %v", op, err)
}

func (c *Console) randomString() string {
	const (
		minLength = 5
		maxLength = 10
		alphabet  = "abcdefghijklmnopqrstuvwxyz"
	)
	b := make([]byte, minLength+c.rng.Intn(maxLength-minLength+1))
	for i := range b {
		b[i] = alphabet[c.rng.Intn(len(alphabet))]
	}
	return string(b)
}

func (c *Console) help() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	c.notify.Heading("Commands:")
	for _, name := range names {
		cmd := commands[name]
		c.notify.Info("  %-8s %-24s | %s", name, cmd.usage, cmd.description)
	}
	c.notify.Heading("Options:")
	for _, name := range optionNames() {
		opt := options[name]
		c.notify.Info("  %-8s %-8s | %s", name, opt.get(c), opt.description)
	}
}

var TooManyErrorsErr = errors.New("error limit reached")
