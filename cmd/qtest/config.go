package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/urfave/cli/v2"
	"github.com/weberc2/mono/queue/pkg/qtest"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "QTEST"
	appName      = "qtest"
)

type Config struct {
	FailProbability int    `split_words:"true" yaml:"failProbability"`
	StringLength    int    `split_words:"true" yaml:"stringLength"`
	Verbose         int    `split_words:"true" yaml:"verbose"`
	ErrorLimit      int    `split_words:"true" yaml:"errorLimit"`
	Echo            bool   `split_words:"true" yaml:"echo"`
	Seed            int64  `split_words:"true" yaml:"seed"`
	HistorySize     int    `split_words:"true" yaml:"historySize"`
	NoColor         bool   `split_words:"true" yaml:"noColor"`
	LogLevel        string `split_words:"true" yaml:"logLevel"`
}

func DefaultConfig() Config {
	options := qtest.DefaultOptions()
	return Config{
		FailProbability: options.FailProbability,
		StringLength:    options.StringLength,
		Verbose:         options.Verbose,
		ErrorLimit:      options.ErrorLimit,
		Echo:            options.Echo,
		Seed:            options.Seed,
		HistorySize:     options.HistorySize,
		LogLevel:        "warn",
	}
}

// LoadConfig layers the config file (if any) and then the environment over
// the defaults.
func LoadConfig() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating config file: %w", err)
		}
		configFile = filepath.Join(home, ".config", appName+".yaml")
	}

	c := DefaultConfig()
	data, err := os.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

// ApplyFlags overrides the configuration with any flags set on the command
// line.
func (c *Config) ApplyFlags(ctx *cli.Context) {
	if ctx.IsSet("fail") {
		c.FailProbability = ctx.Int("fail")
	}
	if ctx.IsSet("length") {
		c.StringLength = ctx.Int("length")
	}
	if ctx.IsSet("verbose") {
		c.Verbose = ctx.Int("verbose")
	}
	if ctx.IsSet("error-limit") {
		c.ErrorLimit = ctx.Int("error-limit")
	}
	if ctx.IsSet("seed") {
		c.Seed = ctx.Int64("seed")
	}
	if ctx.IsSet("no-color") {
		c.NoColor = ctx.Bool("no-color")
	}
	if ctx.IsSet("quiet") && ctx.Bool("quiet") {
		c.Echo = false
	}
	if ctx.IsSet("log-level") {
		c.LogLevel = ctx.String("log-level")
	}
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.FailProbability < 0 || c.FailProbability > 100 {
			return "failProbability", "FAIL_PROBABILITY"
		}
		if c.StringLength < 1 {
			return "stringLength", "STRING_LENGTH"
		}
		if c.Verbose < 0 {
			return "verbose", "VERBOSE"
		}
		if c.ErrorLimit < 0 {
			return "errorLimit", "ERROR_LIMIT"
		}
		if c.HistorySize < 1 {
			return "historySize", "HISTORY_SIZE"
		}
		if _, err := levelOption(c.LogLevel); err != nil {
			return "logLevel", "LOG_LEVEL"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"invalid configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}
	return nil
}

func (c *Config) Options() qtest.Options {
	return qtest.Options{
		FailProbability: c.FailProbability,
		StringLength:    c.StringLength,
		Verbose:         c.Verbose,
		ErrorLimit:      c.ErrorLimit,
		Echo:            c.Echo,
		HistorySize:     c.HistorySize,
		Seed:            c.Seed,
	}
}
