package harness

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/weberc2/mono/queue/pkg/queue"
)

// Allocator is a queue.Allocator that keeps track of every block it hands
// out and can be told to fail a percentage of allocations.
type Allocator struct {
	rng             *rand.Rand
	failProbability int
	noisy           bool

	// blocks holds the live elements. Value strings are accounted by count
	// only because equal strings are indistinguishable.
	blocks   map[*queue.Element]struct{}
	values   int
	failures int
}

func NewAllocator(seed int64) *Allocator {
	return &Allocator{
		rng:    rand.New(rand.NewSource(seed)),
		noisy:  true,
		blocks: map[*queue.Element]struct{}{},
	}
}

// SetFailProbability makes roughly percent out of every hundred allocations
// fail.
func (a *Allocator) SetFailProbability(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf(
			"fail probability `%d`: %w",
			percent,
			InvalidProbabilityErr,
		)
	}
	a.failProbability = percent
	return nil
}

func (a *Allocator) FailProbability() int { return a.failProbability }

// SetNoisy toggles failure injection without losing the configured
// probability. A quiet allocator never fails.
func (a *Allocator) SetNoisy(noisy bool) { a.noisy = noisy }

// Allocated returns the number of live blocks, counting elements and value
// strings separately.
func (a *Allocator) Allocated() int { return len(a.blocks) + a.values }

// Failures returns how many allocations have been failed on purpose.
func (a *Allocator) Failures() int { return a.failures }

func (a *Allocator) fail() bool {
	if !a.noisy || a.failProbability == 0 {
		return false
	}
	if a.rng.Intn(100) < a.failProbability {
		a.failures++
		return true
	}
	return false
}

func (a *Allocator) AllocElement() (*queue.Element, error) {
	if a.fail() {
		return nil, fmt.Errorf("element: %w", queue.AllocationFailedErr)
	}
	e := new(queue.Element)
	a.blocks[e] = struct{}{}
	return e, nil
}

func (a *Allocator) AllocString(s string) (string, error) {
	if a.fail() {
		return "", fmt.Errorf("string: %w", queue.AllocationFailedErr)
	}
	a.values++
	return strings.Clone(s), nil
}

func (a *Allocator) FreeElement(e *queue.Element) {
	if _, found := a.blocks[e]; !found {
		panic(fmt.Errorf("freeing element %p: %w", e, UnknownBlockErr))
	}
	delete(a.blocks, e)
}

func (a *Allocator) FreeString(string) {
	if a.values < 1 {
		panic(fmt.Errorf("freeing string: %w", UnknownBlockErr))
	}
	a.values--
}

var (
	InvalidProbabilityErr = errors.New("probability must be within [0, 100]")
	UnknownBlockErr       = errors.New("block was not allocated or was already freed")
)
