package jsengine

import (
	"time"
)

// Config holds the configuration for in-process execution.
type Config struct {
	// Timeout bounds a whole run. Zero means no limit: a function that never
	// returns blocks the run forever.
	Timeout time.Duration
	// MaxCallStackSize bounds recursion depth. Exceeding it raises a
	// RangeError inside the script instead of exhausting the Go stack.
	MaxCallStackSize int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:          0,
		MaxCallStackSize: 10000,
	}
}
