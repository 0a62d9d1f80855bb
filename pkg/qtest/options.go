package qtest

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/gosimple/slug"
)

// Options tune the console. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// FailProbability is the percentage of allocations that fail.
	FailProbability int

	// StringLength is the largest value a removal copies out in full; the
	// copy-out buffer holds StringLength+1 bytes.
	StringLength int

	// Verbose 0 prints only errors and explicit output such as `show`; 1
	// also prints warnings and the queue after every queue command.
	Verbose int

	// ErrorLimit stops the console after this many errors. 0 means no limit.
	ErrorLimit int

	Echo        bool
	HistorySize int
	Seed        int64
}

func DefaultOptions() Options {
	return Options{
		FailProbability: 0,
		StringLength:    1024,
		Verbose:         1,
		ErrorLimit:      5,
		Echo:            true,
		HistorySize:     64,
		Seed:            1,
	}
}

func (o *Options) Validate() error {
	switch {
	case o.FailProbability < 0 || o.FailProbability > 100:
		return fmt.Errorf("fail probability `%d`: %w", o.FailProbability, InvalidOptionErr)
	case o.StringLength < 1:
		return fmt.Errorf("string length `%d`: %w", o.StringLength, InvalidOptionErr)
	case o.Verbose < 0:
		return fmt.Errorf("verbosity `%d`: %w", o.Verbose, InvalidOptionErr)
	case o.ErrorLimit < 0:
		return fmt.Errorf("error limit `%d`: %w", o.ErrorLimit, InvalidOptionErr)
	case o.HistorySize < 1:
		return fmt.Errorf("history size `%d`: %w", o.HistorySize, InvalidOptionErr)
	}
	return nil
}

type option struct {
	description string
	get         func(*Console) string
	set         func(*Console, string) error
}

// options is keyed by slug, so `option Fail 10` and `option fail 10` are the
// same command.
var options = map[string]option{
	"fail": {
		description: "percentage of allocations that fail",
		get:         func(c *Console) string { return strconv.Itoa(c.options.FailProbability) },
		set: func(c *Console, v string) error {
			p, err := parseInt(v, 0, 100)
			if err != nil {
				return err
			}
			if err := c.alloc.SetFailProbability(p); err != nil {
				return err
			}
			c.options.FailProbability = p
			return nil
		},
	},
	"length": {
		description: "maximum length of a removed value copied out",
		get:         func(c *Console) string { return strconv.Itoa(c.options.StringLength) },
		set: func(c *Console, v string) error {
			n, err := parseInt(v, 1, 1<<20)
			if err != nil {
				return err
			}
			c.options.StringLength = n
			return nil
		},
	},
	"verbose": {
		description: "verbosity level",
		get:         func(c *Console) string { return strconv.Itoa(c.options.Verbose) },
		set: func(c *Console, v string) error {
			n, err := parseInt(v, 0, 10)
			if err != nil {
				return err
			}
			c.options.Verbose = n
			return nil
		},
	},
	"error": {
		description: "number of errors before the console stops (0 = unlimited)",
		get:         func(c *Console) string { return strconv.Itoa(c.options.ErrorLimit) },
		set: func(c *Console, v string) error {
			n, err := parseInt(v, 0, 1<<20)
			if err != nil {
				return err
			}
			c.options.ErrorLimit = n
			return nil
		},
	},
	"echo": {
		description: "echo commands before running them",
		get:         func(c *Console) string { return strconv.FormatBool(c.options.Echo) },
		set: func(c *Console, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			c.options.Echo = b
			return nil
		},
	},
}

// malloc is the name the fail option went by in older scripts.
func init() { options["malloc"] = options["fail"] }

func lookupOption(name string) (option, bool) {
	opt, found := options[slug.Make(name)]
	return opt, found
}

func optionNames() []string {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseInt(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parsing `%s` as an integer: %w", s, InvalidOptionErr)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf(
			"`%d` is outside [%d, %d]: %w",
			n,
			lo,
			hi,
			InvalidOptionErr,
		)
	}
	return n, nil
}

func parseBool(s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("parsing `%s` as a boolean: %w", s, InvalidOptionErr)
	}
	return b, nil
}

var InvalidOptionErr = errors.New("invalid option value")
