package vdom

import (
	"sync"
	"time"
)

// RenderFunc performs one render pass and reports whether the target
// buffer is still valid; a render that fails against an invalid buffer is
// swallowed rather than surfaced, per the render-scheduler contract.
type RenderFunc func() error

// Scheduler enforces "at most one render in flight; a second request
// during flight sets a follow-up flag; when the in-flight render
// resolves, exactly one follow-up render is performed."
type Scheduler struct {
	mu         sync.Mutex
	inFlight   bool
	followUp   bool
	onError    func(error)
	isValid    func() bool
}

// NewScheduler constructs a render scheduler. onError receives errors from
// renders that complete against a still-valid buffer; isValid reports
// whether the render's target buffer currently exists, used to swallow
// errors from renders racing a buffer teardown.
func NewScheduler(isValid func() bool, onError func(error)) *Scheduler {
	return &Scheduler{isValid: isValid, onError: onError}
}

// RequestRender asks the scheduler to perform render, coalescing with any
// render already in flight.
func (s *Scheduler) RequestRender(render RenderFunc) {
	s.mu.Lock()
	if s.inFlight {
		s.followUp = true
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	s.runLoop(render)
}

func (s *Scheduler) runLoop(render RenderFunc) {
	for {
		start := time.Now()
		err := render()
		renderDuration.Observe(time.Since(start).Seconds())
		if err != nil && s.isValid != nil && s.isValid() && s.onError != nil {
			s.onError(err)
		}

		s.mu.Lock()
		if s.followUp {
			s.followUp = false
			s.mu.Unlock()
			continue
		}
		s.inFlight = false
		s.mu.Unlock()
		return
	}
}

// InFlight reports whether a render is currently running, for tests.
func (s *Scheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
