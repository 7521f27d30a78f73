package docker

import (
	"time"
)

// Config holds the configuration for container-backed script runs.
type Config struct {
	// Image is the Docker image to use. It must provide a `node` binary.
	Image string
	// MemoryLimit is the maximum amount of memory the container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// Timeout is the maximum amount of time one script can take.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
}

// DefaultConfig provides sensible defaults for a Node.js sandbox.
func DefaultConfig() Config {
	return Config{
		Image:       "node:22-alpine",
		MemoryLimit: 128 * 1024 * 1024,
		CPULimit:    0.5,
		Timeout:     5 * time.Second,
		PoolSize:    2,
	}
}
