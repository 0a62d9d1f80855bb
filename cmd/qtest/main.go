package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/urfave/cli/v2"
	"github.com/weberc2/mono/queue/pkg/qtest"
	"gopkg.in/yaml.v2"
)

func main() {
	app := cli.App{
		Name:  appName,
		Usage: "drive a ring queue with qtest commands",
		Description: "reads qtest commands from stdin (or --file), runs them " +
			"against a chain of queues and exits non-zero if any check fails",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "read commands from `FILE` instead of stdin",
			},
			&cli.IntFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbosity level",
			},
			&cli.IntFlag{
				Name:  "fail",
				Usage: "percentage of allocations that fail",
			},
			&cli.IntFlag{
				Name:  "length",
				Usage: "maximum length of removed values copied out",
			},
			&cli.IntFlag{
				Name:  "error-limit",
				Usage: "stop after this many errors (0 for no limit)",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "seed for random values and allocation failures",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "do not echo commands",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored output",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "one of debug, info, warn or error",
			},
		},
		Action: withConsole(func(console *qtest.Console, ctx *cli.Context) error {
			if file := ctx.String("file"); file != "" {
				return console.RunFile(ctx.Context, file)
			}
			return console.Run(ctx.Context, os.Stdin)
		}),
		Commands: []*cli.Command{{
			Name:      "run",
			Usage:     "run one or more command files in sequence",
			ArgsUsage: "FILE...",
			Action: withConsole(func(console *qtest.Console, ctx *cli.Context) error {
				if ctx.NArg() < 1 {
					return fmt.Errorf("run: %w", missingFileErr)
				}
				for _, file := range ctx.Args().Slice() {
					if err := console.RunFile(ctx.Context, file); err != nil {
						return err
					}
				}
				return nil
			}),
		}, {
			Name:      "traces",
			Usage:     "run every .cmd file in a directory, each with a fresh console",
			ArgsUsage: "DIR",
			Action:    runTraces,
		}, {
			Name:  "config",
			Usage: "print the effective configuration as YAML",
			Action: func(ctx *cli.Context) error {
				config, err := loadConfig(ctx)
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(config)
				if err != nil {
					return fmt.Errorf("marshaling config to YAML: %w", err)
				}
				if _, err := fmt.Printf("%s", data); err != nil {
					return fmt.Errorf("writing YAML to stdout: %w", err)
				}
				return nil
			},
		}},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(ctx *cli.Context) (*Config, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	config.ApplyFlags(ctx)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newConsole(config *Config) (*qtest.Console, log.Logger, error) {
	if config.NoColor {
		color.NoColor = true
	}
	logger, err := newLogger(config.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	console, err := qtest.NewConsole(
		qtest.NewNotifier(os.Stdout),
		logger,
		config.Options(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating console: %w", err)
	}
	return console, logger, nil
}

// withConsole runs f against a console built from the configuration, frees
// whatever queues f leaves behind and fails if the console found errors.
func withConsole(f func(*qtest.Console, *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		config, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		console, logger, err := newConsole(config)
		if err != nil {
			return err
		}
		runErr := f(console, ctx)
		console.Finish()
		if runErr != nil {
			level.Error(logger).Log("msg", "run aborted", "err", runErr)
			return runErr
		}
		if n := console.Errors(); n > 0 {
			return fmt.Errorf("%d errors: %w", n, checksFailedErr)
		}
		return nil
	}
}

func runTraces(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("traces: %w", missingFileErr)
	}
	traces, err := filepath.Glob(filepath.Join(ctx.Args().First(), "*.cmd"))
	if err != nil {
		return fmt.Errorf("listing traces: %w", err)
	}
	sort.Strings(traces)

	config, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, trace := range traces {
		console, logger, err := newConsole(config)
		if err != nil {
			return err
		}
		runErr := console.RunFile(ctx.Context, trace)
		console.Finish()
		if runErr != nil || console.Errors() > 0 {
			failed++
			level.Warn(logger).Log(
				"msg", "trace failed",
				"trace", trace,
				"errors", console.Errors(),
				"err", runErr,
			)
			if errors.Is(runErr, context.Canceled) {
				return runErr
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d traces: %w", failed, len(traces), checksFailedErr)
	}
	return nil
}

func newLogger(lvl string) (log.Logger, error) {
	opt, err := levelOption(lvl)
	if err != nil {
		return nil, err
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "app", appName)
	return level.NewFilter(logger, opt), nil
}

func levelOption(lvl string) (level.Option, error) {
	switch lvl {
	case "debug":
		return level.AllowDebug(), nil
	case "info":
		return level.AllowInfo(), nil
	case "warn", "":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	default:
		return nil, fmt.Errorf("log level `%s`: %w", lvl, unknownLevelErr)
	}
}

var (
	missingFileErr  = errors.New("missing command file argument")
	checksFailedErr = errors.New("checks failed")
	unknownLevelErr = errors.New("unknown log level")
)
