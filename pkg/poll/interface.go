package poll

import (
	"context"
	"errors"
)

var (
	ErrAlreadyRegistered = errors.New("poll job already registered")
	ErrInvalidJob        = errors.New("poll job needs a name, a function and a positive interval")
	ErrStarted           = errors.New("poller already started")
)

// Poller runs named jobs on their own interval until stopped.
type Poller interface {
	// Register adds a job. Jobs must be registered before Start.
	Register(name string, fn FetchFunc, cfg Config) error
	// Start launches one goroutine per job.
	Start(ctx context.Context) error
	// Stop cancels every job and waits for them to return.
	Stop() error
}

// FetchFunc is one run of a job.
type FetchFunc func(ctx context.Context) error
