package poll

import "time"

// Config holds configuration for a registered job.
type Config struct {
	// Interval between runs
	Interval time.Duration
	// RunImmediately runs the job once on Start before the first tick
	RunImmediately bool
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval:       time.Minute,
		RunImmediately: true,
	}
}
