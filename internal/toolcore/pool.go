package toolcore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nexus-editor/agentcore/internal/backoff"
)

// PoolConfig bounds how many tool effects run at once and how an effect
// that fails transiently is retried.
type PoolConfig struct {
	// Concurrency is the maximum number of effects running at once.
	Concurrency int
	// PerEffectTimeout bounds a single attempt.
	PerEffectTimeout time.Duration
	// MaxAttempts is the number of attempts before giving up (1 = no
	// retry).
	MaxAttempts int
	// Backoff is consulted between attempts when MaxAttempts > 1.
	Backoff backoff.BackoffPolicy
	// Logger receives a Warn line whenever an effect exhausts its
	// attempts or is abandoned to context cancellation. Defaults to
	// slog.Default() when nil.
	Logger *slog.Logger
}

// DefaultPoolConfig matches the framework's baseline: four effects in
// flight, one attempt, no retry. Individual tools opt into retry by
// passing a PoolConfig with MaxAttempts > 1 to RunEffect.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Concurrency:      4,
		PerEffectTimeout: 30 * time.Second,
		MaxAttempts:      1,
		Backoff:          backoff.DefaultPolicy(),
	}
}

// Effect is the blocking work a tool executor hands to the pool: a
// subprocess run, a file read, a language-server round trip. It returns
// the payload that will arrive as EffectCompleted.Payload, or an error
// that is retried up to MaxAttempts times before being surfaced.
type Effect func(ctx context.Context) (any, error)

// Pool runs effects under a shared concurrency cap so a burst of
// parallel tool calls (e.g. a spawn_foreach fan-out) cannot exhaust file
// descriptors or saturate the machine.
type Pool struct {
	cfg PoolConfig
	sem chan struct{}
}

// NewPool constructs a Pool honoring cfg, filling in DefaultPoolConfig
// for zero fields.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.PerEffectTimeout <= 0 {
		cfg.PerEffectTimeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pool{cfg: cfg, sem: make(chan struct{}, cfg.Concurrency)}
}

// Run executes fn under the pool's concurrency cap and delivers the
// result to dispatch as an EffectCompleted message once it finishes.
// Run returns immediately; the effect runs on its own goroutine.
func (p *Pool) Run(ctx context.Context, fn Effect, dispatch DispatchFunc) {
	go func() {
		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-ctx.Done():
			p.cfg.Logger.Warn("effect abandoned before acquiring pool slot", "error", ctx.Err())
			dispatch(EffectCompleted{Err: ctx.Err()})
			return
		}

		var payload any
		var err error
		for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
			attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.PerEffectTimeout)
			payload, err = fn(attemptCtx)
			cancel()
			if err == nil {
				break
			}
			if attempt < p.cfg.MaxAttempts {
				select {
				case <-time.After(backoff.ComputeBackoff(p.cfg.Backoff, attempt)):
				case <-ctx.Done():
					err = ctx.Err()
					goto done
				}
			}
		}
	done:
		if err != nil {
			p.cfg.Logger.Warn("effect failed after retries", "max_attempts", p.cfg.MaxAttempts, "error", err)
		}
		dispatch(EffectCompleted{Payload: payload, Err: err})
	}()
}

// RunAll runs every effect in fns concurrently (still bounded by the
// pool's semaphore) and blocks until all have dispatched their
// EffectCompleted message. Used by fan-out tools (spawn_foreach) that
// need every child started before moving on, without caring about
// individual completion order.
func (p *Pool) RunAll(ctx context.Context, fns []Effect, dispatch func(index int, msg ToolMsg)) {
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		idx := i
		effect := fn
		go func() {
			defer wg.Done()
			done := make(chan struct{})
			p.Run(ctx, effect, func(msg ToolMsg) {
				dispatch(idx, msg)
				close(done)
			})
			<-done
		}()
	}
	wg.Wait()
}
