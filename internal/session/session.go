// Package session implements the cooking session state machine: per-step
// completion status, per-step countdown timers, and the derived views of
// which steps can start now.
//
// A Session is safe for concurrent use. Every operation is synchronous and
// either applies fully or leaves the session untouched; its effects are
// visible to the next query. Timers are driven by a single tick loop that
// runs only while at least one timer is running.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/graph"
	"github.com/hammamikhairi/mise/internal/logger"
	"github.com/hammamikhairi/mise/internal/timer"
)

// Session is one interactive pass over a recipe's steps.
type Session struct {
	id           string
	recipe       domain.Recipe
	graph        *graph.Graph
	log          *logger.Logger
	expiry       domain.ExpiryHandler
	tickInterval time.Duration
	resources    []io.Closer
	now          func() time.Time

	ctx       context.Context
	ticker    *timer.Ticker
	stopAfter func() bool
	done      chan struct{}

	mu        sync.Mutex
	status    map[string]domain.StepStatus
	timers    map[string]*domain.Timer
	closed    bool
	startedAt time.Time
	updatedAt time.Time

	closeOnce sync.Once
	closeErr  error
}

// New validates the recipe's dependency graph and starts a session with
// every step pending and no timers. A recipe that fails validation is
// rejected with the structural error wrapped; use domain.IsStructural to
// recognise it.
//
// The session closes itself when ctx is cancelled. Callers should still
// Close it on every exit path; Close is idempotent.
func New(ctx context.Context, r *domain.Recipe, opts ...Option) (*Session, error) {
	if r == nil {
		return nil, fmt.Errorf("session: nil recipe")
	}

	g := graph.New(r.Steps)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("session: recipe %q cannot be scheduled: %w", r.ID, err)
	}

	s := &Session{
		id:           r.ID,
		recipe:       *r,
		graph:        g,
		log:          logger.New(logger.LevelOff, nil),
		tickInterval: time.Second,
		now:          time.Now,
		ctx:          ctx,
		done:         make(chan struct{}),
		status:       make(map[string]domain.StepStatus, len(r.Steps)),
		timers:       make(map[string]*domain.Timer),
	}
	s.recipe.Steps = slices.Clone(r.Steps)

	for _, opt := range opts {
		opt(s)
	}

	// Resources registered by options are owned from here on.
	if err := ctx.Err(); err != nil {
		s.closeResources()
		return nil, err
	}

	s.ticker = timer.NewTicker(s.log, timer.WithTickInterval(s.tickInterval))
	for _, step := range s.recipe.Steps {
		s.status[step.ID] = domain.StepPending
	}
	s.startedAt = s.now()
	s.updatedAt = s.startedAt
	s.stopAfter = context.AfterFunc(ctx, func() {
		s.log.Debug("session %s: context done, closing", s.id)
		s.Close()
	})

	s.log.Info("session %s started for recipe %s (%d steps)", s.id, s.recipe.ID, len(s.recipe.Steps))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Recipe returns a copy of the recipe the session runs.
func (s *Session) Recipe() *domain.Recipe {
	r := s.recipe
	r.Steps = slices.Clone(s.recipe.Steps)
	return &r
}

// Graph returns the validated dependency graph.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Done returns a channel that is closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// check returns the error for an operation on id. Callers hold s.mu.
func (s *Session) check(id string) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if !s.graph.Has(id) {
		return &domain.UnknownStepError{StepID: id}
	}
	return nil
}

func (s *Session) touch() {
	s.updatedAt = s.now()
}

// MarkStep sets a step's status. Completing a step discards its timer,
// whatever state the timer was in.
func (s *Session) MarkStep(id string, status domain.StepStatus) error {
	if !status.Valid() {
		return fmt.Errorf("session: invalid step status %d", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(id); err != nil {
		return err
	}
	s.setStatus(id, status)
	return nil
}

// CycleStatus flips a step between pending and completed and returns the
// new status. A timer discarded by completing the step is not restored when
// the step goes back to pending.
func (s *Session) CycleStatus(id string) (domain.StepStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(id); err != nil {
		return 0, err
	}
	next := s.status[id].Toggle()
	s.setStatus(id, next)
	return next, nil
}

// setStatus applies a status change. Callers hold s.mu.
func (s *Session) setStatus(id string, status domain.StepStatus) {
	s.status[id] = status
	if status == domain.StepCompleted {
		if _, ok := s.timers[id]; ok {
			delete(s.timers, id)
			s.log.Debug("session %s: timer for %s discarded on completion", s.id, id)
		}
	}
	s.touch()
	s.log.Debug("session %s: step %s -> %s", s.id, id, status)
}

// StartTimer starts a countdown of the given length for a step, replacing
// any timer the step already had. Minutes are rounded to whole seconds and
// must come to at least one second.
func (s *Session) StartTimer(id string, minutes float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(id); err != nil {
		return err
	}
	return s.startTimer(id, minutes)
}

// StartStepTimer starts a countdown using the step's own duration. Only
// steps that declare needsTimer and a duration have one; any other step
// yields *domain.InvalidTimerDurationError and StartTimer must be used.
func (s *Session) StartStepTimer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(id); err != nil {
		return err
	}
	step := s.recipe.Step(id)
	if !step.HasTimer() {
		return &domain.InvalidTimerDurationError{StepID: id, Minutes: step.DurationMinutes}
	}
	return s.startTimer(id, step.DurationMinutes)
}

// startTimer creates a running timer. Callers hold s.mu.
func (s *Session) startTimer(id string, minutes float64) error {
	secs := 0.0
	if minutes > 0 && !math.IsInf(minutes, 0) {
		secs = math.Round(minutes * 60)
	}
	if secs < 1 || secs > math.MaxInt32 {
		return &domain.InvalidTimerDurationError{StepID: id, Minutes: minutes}
	}

	total := int(secs)
	s.timers[id] = &domain.Timer{
		StepID:           id,
		TotalSeconds:     total,
		RemainingSeconds: total,
		Running:          true,
	}
	s.touch()
	s.log.Debug("session %s: timer for %s started (%ds)", s.id, id, total)
	s.ensureTicking()
	return nil
}

// PauseTimer stops a step's countdown. It is a no-op when the step has no
// timer.
func (s *Session) PauseTimer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(id); err != nil {
		return err
	}
	if t, ok := s.timers[id]; ok && t.Running {
		t.Running = false
		s.touch()
		s.log.Debug("session %s: timer for %s paused at %ds", s.id, id, t.RemainingSeconds)
	}
	return nil
}

// ResumeTimer continues a paused countdown. A finished timer cannot be
// resumed, only reset; resuming it, or a step without a timer, is a no-op.
func (s *Session) ResumeTimer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(id); err != nil {
		return err
	}
	t, ok := s.timers[id]
	if !ok || t.Running || t.RemainingSeconds == 0 {
		return nil
	}
	t.Running = true
	s.touch()
	s.log.Debug("session %s: timer for %s resumed at %ds", s.id, id, t.RemainingSeconds)
	s.ensureTicking()
	return nil
}

// ResetTimer rewinds a step's countdown to its full length and leaves it
// paused. It is a no-op when the step has no timer.
func (s *Session) ResetTimer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(id); err != nil {
		return err
	}
	if t, ok := s.timers[id]; ok {
		t.RemainingSeconds = t.TotalSeconds
		t.Running = false
		s.touch()
		s.log.Debug("session %s: timer for %s reset to %ds", s.id, id, t.TotalSeconds)
	}
	return nil
}

// ensureTicking starts the tick loop. Callers hold s.mu.
func (s *Session) ensureTicking() {
	if s.ticker.Start(s.ctx, s.loopTick) {
		s.log.Debug("session %s: ticking resumed", s.id)
	}
}

func (s *Session) loopTick(ctx context.Context) {
	s.tick(ctx, true)
}

// Tick advances every running timer by one second in a single pass and
// returns the steps whose timers expired on this tick, in recipe order. The
// expiry handler is called once for each of them after the session lock is
// released. The tick loop calls Tick on its own; it is exported for callers
// that drive time themselves.
func (s *Session) Tick(ctx context.Context) []string {
	return s.tick(ctx, false)
}

func (s *Session) tick(ctx context.Context, fromLoop bool) []string {
	s.mu.Lock()

	// A suspended loop can race its replacement to the lock; only the live
	// loop's context is still valid here.
	if s.closed || (fromLoop && ctx.Err() != nil) {
		s.mu.Unlock()
		return nil
	}

	var expired []string
	running := 0
	for _, step := range s.recipe.Steps {
		t, ok := s.timers[step.ID]
		if !ok || !t.Running || t.RemainingSeconds <= 0 {
			continue
		}
		t.RemainingSeconds--
		if t.RemainingSeconds == 0 {
			t.Running = false
			expired = append(expired, step.ID)
			continue
		}
		running++
	}

	if running == 0 {
		s.ticker.Suspend()
	}
	s.mu.Unlock()

	// The loop's context is already cancelled if this tick suspended it.
	if fromLoop {
		ctx = s.ctx
	}
	for _, id := range expired {
		s.log.Info("session %s: timer for %s expired", s.id, id)
		if s.expiry != nil {
			s.expiry.TimerExpired(ctx, id)
		}
	}
	return expired
}

// Ticking reports whether the tick loop is live.
func (s *Session) Ticking() bool {
	return s.ticker.Running()
}

// Close stops the tick loop, waits for it to exit, and releases every
// registered resource. It is idempotent and returns the same error on every
// call. Close must not be called from an expiry handler.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.touch()
		s.mu.Unlock()

		if s.stopAfter != nil {
			s.stopAfter()
		}
		s.ticker.Stop()
		s.closeErr = s.closeResources()
		close(s.done)
		s.log.Info("session %s closed", s.id)
	})
	return s.closeErr
}

func (s *Session) closeResources() error {
	var errs []error
	for i := len(s.resources) - 1; i >= 0; i-- {
		if err := s.resources[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("session %s: releasing resources: %w", s.id, err)
	}
	return nil
}
