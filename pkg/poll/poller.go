package poll

import (
	"context"
	"sync"
	"time"

	"github.com/Alwanly/social-hub/pkg/logger"
	"go.uber.org/zap"
)

type job struct {
	fn  FetchFunc
	cfg Config
}

type poller struct {
	logger  *logger.CanonicalLogger
	mu      sync.Mutex
	jobs    map[string]job
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewPoller creates a new Poller instance
func NewPoller(log *logger.CanonicalLogger) Poller {
	return &poller{
		logger: log,
		jobs:   make(map[string]job),
	}
}

func (p *poller) Register(name string, fn FetchFunc, cfg Config) error {
	if name == "" || fn == nil || cfg.Interval <= 0 {
		return ErrInvalidJob
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrStarted
	}
	if _, exists := p.jobs[name]; exists {
		return ErrAlreadyRegistered
	}
	p.jobs[name] = job{fn: fn, cfg: cfg}
	p.logger.Info("poll job registered", zap.String(logger.FieldPollName, name), zap.Duration("interval", cfg.Interval))
	return nil
}

func (p *poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrStarted
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for name, j := range p.jobs {
		p.wg.Add(1)
		go p.run(runCtx, name, j)
	}
	return nil
}

func (p *poller) Stop() error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	p.logger.Info("poller stopped")
	return nil
}

func (p *poller) run(ctx context.Context, name string, j job) {
	defer p.wg.Done()

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	if j.cfg.RunImmediately {
		p.perform(ctx, name, j.fn)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.perform(ctx, name, j.fn)
		}
	}
}

func (p *poller) perform(ctx context.Context, name string, fn FetchFunc) {
	if err := fn(ctx); err != nil {
		p.logger.Error("poll job failed", zap.String(logger.FieldPollName, name), zap.Error(err))
		return
	}
	p.logger.Debug("poll job succeeded", zap.String(logger.FieldPollName, name))
}
