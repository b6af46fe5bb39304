// Package config parses the two positional startup arguments — worker
// count and queue capacity — the way MainApp.parsePositiveIntArg validates
// them in the source this was ported from, but expressed as a pure
// function returning a typed error instead of throwing.
package config

import (
	"fmt"
	"strconv"
)

// DefaultWorkers and DefaultQueueCapacity are used when the corresponding
// positional argument is absent.
const (
	DefaultWorkers       = 4
	DefaultQueueCapacity = 10
)

// Config holds the two positive integers fixed at process start.
type Config struct {
	Workers       int
	QueueCapacity int
}

// ParseError reports which argument failed validation and why.
type ParseError struct {
	Arg     string
	Value   string
	Problem string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s argument %q: %s", e.Arg, e.Value, e.Problem)
}

// Parse validates the first two positional arguments as positive integers
// for worker count and queue capacity, applying defaults when absent.
// Arguments beyond the second are not an error here; callers should warn
// and ignore them, per the CLI contract.
func Parse(args []string) (Config, error) {
	cfg := Config{Workers: DefaultWorkers, QueueCapacity: DefaultQueueCapacity}

	if len(args) >= 1 && args[0] != "" {
		workers, err := parsePositiveInt(args[0])
		if err != nil {
			return Config{}, &ParseError{Arg: "worker count", Value: args[0], Problem: err.Error()}
		}
		cfg.Workers = workers
	}

	if len(args) >= 2 && args[1] != "" {
		capacity, err := parsePositiveInt(args[1])
		if err != nil {
			return Config{}, &ParseError{Arg: "queue capacity", Value: args[1], Problem: err.Error()}
		}
		cfg.QueueCapacity = capacity
	}

	return cfg, nil
}

// ExtraArgs returns any positional arguments beyond the first two, for the
// caller to warn about and ignore.
func ExtraArgs(args []string) []string {
	if len(args) <= 2 {
		return nil
	}
	return args[2:]
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a valid integer")
	}
	if n < 1 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}
