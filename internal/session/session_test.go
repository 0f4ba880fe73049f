package session

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hammamikhairi/mise/internal/domain"
)

// expiryRecorder counts expiry callbacks per step.
type expiryRecorder struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
}

func newExpiryRecorder() *expiryRecorder {
	return &expiryRecorder{ch: make(chan string, 16)}
}

func (r *expiryRecorder) TimerExpired(_ context.Context, stepID string) {
	r.mu.Lock()
	r.calls = append(r.calls, stepID)
	r.mu.Unlock()
	select {
	case r.ch <- stepID:
	default:
	}
}

func (r *expiryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// countingCloser records how often it was closed.
type countingCloser struct {
	mu     sync.Mutex
	closed int
	err    error
}

func (c *countingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.err
}

func (c *countingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testRecipe() *domain.Recipe {
	return &domain.Recipe{
		ID:    "pasta",
		Title: "Pasta",
		Steps: []domain.Step{
			{ID: "s1", Text: "boil water", DurationMinutes: 8, NeedsTimer: true, IsPassive: true},
			{ID: "s2", Text: "chop onions", DurationMinutes: 3},
			{ID: "s3", Text: "cook pasta", DependsOn: []string{"s1"}, DurationMinutes: 10, NeedsTimer: true},
			{ID: "s4", Text: "combine", DependsOn: []string{"s2", "s3"}},
		},
	}
}

// newTestSession returns a session whose tick loop never fires on its own,
// so tests drive time through Tick.
func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithTickInterval(time.Hour)}, opts...)
	s, err := New(context.Background(), testRecipe(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func tickN(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.Tick(context.Background())
	}
}

func TestNewRejectsInvalidGraph(t *testing.T) {
	tests := []struct {
		name  string
		steps []domain.Step
	}{
		{"cycle", []domain.Step{{ID: "a", DependsOn: []string{"b"}}, {ID: "b", DependsOn: []string{"a"}}}},
		{"dangling", []domain.Step{{ID: "x", DependsOn: []string{"missing"}}}},
		{"duplicate", []domain.Step{{ID: "a"}, {ID: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), &domain.Recipe{ID: "bad", Steps: tt.steps})
			if err == nil {
				s.Close()
				t.Fatal("expected New to refuse the recipe")
			}
			if !domain.IsStructural(err) {
				t.Fatalf("expected structural error, got %v", err)
			}
		})
	}

	_, err := New(context.Background(), &domain.Recipe{ID: "bad", Steps: []domain.Step{
		{ID: "a", DependsOn: []string{"b"}}, {ID: "b", DependsOn: []string{"a"}},
	}})
	var cycle *domain.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected wrapped CycleError, got %v", err)
	}
}

func TestAvailabilityFollowsCompletion(t *testing.T) {
	s := newTestSession(t)

	if diff := cmp.Diff([]string{"s1", "s2"}, s.Available()); diff != "" {
		t.Fatalf("initial available (-want +got):\n%s", diff)
	}

	if err := s.MarkStep("s1", domain.StepCompleted); err != nil {
		t.Fatalf("MarkStep: %v", err)
	}
	if diff := cmp.Diff([]string{"s2", "s3"}, s.Available()); diff != "" {
		t.Fatalf("after s1 (-want +got):\n%s", diff)
	}
	wantBlocked := []domain.BlockedStep{{StepID: "s4", WaitingOn: []string{"s2", "s3"}}}
	if diff := cmp.Diff(wantBlocked, s.Blocked()); diff != "" {
		t.Fatalf("blocked after s1 (-want +got):\n%s", diff)
	}

	for _, id := range []string{"s2", "s3"} {
		if err := s.MarkStep(id, domain.StepCompleted); err != nil {
			t.Fatalf("MarkStep(%s): %v", id, err)
		}
	}
	if diff := cmp.Diff([]string{"s4"}, s.Available()); diff != "" {
		t.Fatalf("after s2,s3 (-want +got):\n%s", diff)
	}
	if s.IsComplete() || s.Status() != domain.SessionActive {
		t.Fatal("session should still be active")
	}

	if err := s.MarkStep("s4", domain.StepCompleted); err != nil {
		t.Fatalf("MarkStep: %v", err)
	}
	if !s.IsComplete() || s.Status() != domain.SessionComplete {
		t.Fatal("expected complete session")
	}
	if len(s.Available()) != 0 || len(s.Blocked()) != 0 {
		t.Fatal("complete session should have nothing available or blocked")
	}
}

func TestCycleStatus(t *testing.T) {
	s := newTestSession(t)

	st, err := s.CycleStatus("s1")
	if err != nil || st != domain.StepCompleted {
		t.Fatalf("first cycle = %v, %v", st, err)
	}
	st, err = s.CycleStatus("s1")
	if err != nil || st != domain.StepPending {
		t.Fatalf("second cycle = %v, %v", st, err)
	}
	if got, _ := s.StepStatus("s1"); got != domain.StepPending {
		t.Fatalf("StepStatus = %v, want pending", got)
	}
}

func TestTimerCountdownAndPause(t *testing.T) {
	s := newTestSession(t)

	if err := s.StartTimer("s1", 10); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	want := domain.Timer{StepID: "s1", TotalSeconds: 600, RemainingSeconds: 600, Running: true}
	if got, _ := s.Timer("s1"); got != want {
		t.Fatalf("timer = %+v, want %+v", got, want)
	}

	tickN(s, 5)
	if got, _ := s.Timer("s1"); got.RemainingSeconds != 595 {
		t.Fatalf("remaining after 5 ticks = %d, want 595", got.RemainingSeconds)
	}

	if err := s.PauseTimer("s1"); err != nil {
		t.Fatalf("PauseTimer: %v", err)
	}
	tickN(s, 3)
	got, _ := s.Timer("s1")
	if got.RemainingSeconds != 595 || got.Running {
		t.Fatalf("paused timer changed: %+v", got)
	}
	if got.State() != domain.TimerPaused {
		t.Fatalf("state = %s, want paused", got.State())
	}

	if err := s.MarkStep("s1", domain.StepCompleted); err != nil {
		t.Fatalf("MarkStep: %v", err)
	}
	if _, ok := s.Timer("s1"); ok {
		t.Fatal("completing the step should discard its timer")
	}
}

func TestTimerExpiresExactlyOnce(t *testing.T) {
	rec := newExpiryRecorder()
	s := newTestSession(t, WithExpiryHandler(rec))

	if err := s.StartTimer("s1", 1); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}

	var expired []string
	for i := 0; i < 60; i++ {
		expired = append(expired, s.Tick(context.Background())...)
	}
	got, _ := s.Timer("s1")
	if got.RemainingSeconds != 0 || got.Running {
		t.Fatalf("timer after 60 ticks = %+v", got)
	}
	if got.State() != domain.TimerExpired {
		t.Fatalf("state = %s, want expired", got.State())
	}
	if diff := cmp.Diff([]string{"s1"}, expired); diff != "" {
		t.Fatalf("expired ids (-want +got):\n%s", diff)
	}
	if rec.count() != 1 {
		t.Fatalf("expiry handler called %d times, want 1", rec.count())
	}

	tickN(s, 10)
	if rec.count() != 1 {
		t.Fatalf("expiry handler called again on later ticks: %d", rec.count())
	}

	// A finished timer cannot be resumed, only reset.
	if err := s.ResumeTimer("s1"); err != nil {
		t.Fatalf("ResumeTimer: %v", err)
	}
	if got, _ := s.Timer("s1"); got.Running {
		t.Fatal("resume should not revive an expired timer")
	}
	if err := s.ResetTimer("s1"); err != nil {
		t.Fatalf("ResetTimer: %v", err)
	}
	want := domain.Timer{StepID: "s1", TotalSeconds: 60, RemainingSeconds: 60}
	if got, _ := s.Timer("s1"); got != want {
		t.Fatalf("timer after reset = %+v, want %+v", got, want)
	}
	if err := s.ResumeTimer("s1"); err != nil {
		t.Fatalf("ResumeTimer: %v", err)
	}
	tickN(s, 60)
	if rec.count() != 2 {
		t.Fatalf("expected a second expiry after reset, got %d", rec.count())
	}
}

func TestConcurrentTimersExpireInRecipeOrder(t *testing.T) {
	s := newTestSession(t)

	// Started in reverse order; expiry is still reported in recipe order.
	for _, id := range []string{"s3", "s2", "s1"} {
		if err := s.StartTimer(id, 0.05); err != nil {
			t.Fatalf("StartTimer(%s): %v", id, err)
		}
	}
	tickN(s, 2)
	expired := s.Tick(context.Background())
	if diff := cmp.Diff([]string{"s1", "s2", "s3"}, expired); diff != "" {
		t.Fatalf("expiry order (-want +got):\n%s", diff)
	}
}

func TestStartTimerOverwrites(t *testing.T) {
	s := newTestSession(t)

	if err := s.StartTimer("s2", 5); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	tickN(s, 10)
	if err := s.StartTimer("s2", 2); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	want := domain.Timer{StepID: "s2", TotalSeconds: 120, RemainingSeconds: 120, Running: true}
	if got, _ := s.Timer("s2"); got != want {
		t.Fatalf("timer = %+v, want %+v", got, want)
	}
}

func TestStartStepTimer(t *testing.T) {
	s := newTestSession(t)

	if err := s.StartStepTimer("s3"); err != nil {
		t.Fatalf("StartStepTimer: %v", err)
	}
	if got, _ := s.Timer("s3"); got.TotalSeconds != 600 {
		t.Fatalf("total = %d, want 600", got.TotalSeconds)
	}

	var invalid *domain.InvalidTimerDurationError
	if err := s.StartStepTimer("s4"); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTimerDurationError for step without duration, got %v", err)
	}
}

func TestStartStepTimerRequiresDeclaredTimer(t *testing.T) {
	s := newTestSession(t)

	// s2 has a duration but does not ask for a timer.
	var invalid *domain.InvalidTimerDurationError
	if err := s.StartStepTimer("s2"); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTimerDurationError, got %v", err)
	}
	if invalid.StepID != "s2" || invalid.Minutes != 3 {
		t.Fatalf("unexpected error fields: %+v", invalid)
	}
	if _, ok := s.Timer("s2"); ok {
		t.Fatal("rejected StartStepTimer must not create a timer")
	}

	// An explicit duration is still accepted.
	if err := s.StartTimer("s2", 3); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	if got, _ := s.Timer("s2"); got.TotalSeconds != 180 {
		t.Fatalf("total = %d, want 180", got.TotalSeconds)
	}
}

func TestInvalidTimerDuration(t *testing.T) {
	s := newTestSession(t)

	for _, minutes := range []float64{0, -1, 0.001, math.NaN(), math.Inf(1)} {
		err := s.StartTimer("s1", minutes)
		var invalid *domain.InvalidTimerDurationError
		if !errors.As(err, &invalid) {
			t.Fatalf("StartTimer(%v): expected InvalidTimerDurationError, got %v", minutes, err)
		}
	}
	if _, ok := s.Timer("s1"); ok {
		t.Fatal("rejected StartTimer must not create a timer")
	}
}

func TestUnknownStepRejected(t *testing.T) {
	s := newTestSession(t)
	before := s.Snapshot()

	ops := map[string]func() error{
		"MarkStep": func() error { return s.MarkStep("nope", domain.StepCompleted) },
		"CycleStatus": func() error {
			_, err := s.CycleStatus("nope")
			return err
		},
		"StartTimer":     func() error { return s.StartTimer("nope", 1) },
		"StartStepTimer": func() error { return s.StartStepTimer("nope") },
		"PauseTimer":     func() error { return s.PauseTimer("nope") },
		"ResumeTimer":    func() error { return s.ResumeTimer("nope") },
		"ResetTimer":     func() error { return s.ResetTimer("nope") },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			var unknown *domain.UnknownStepError
			if err := op(); !errors.As(err, &unknown) || unknown.StepID != "nope" {
				t.Fatalf("expected UnknownStepError, got %v", err)
			}
		})
	}

	after := s.Snapshot()
	if diff := cmp.Diff(before.Steps, after.Steps); diff != "" {
		t.Fatalf("status map changed (-before +after):\n%s", diff)
	}
	if len(after.Timers) != 0 {
		t.Fatalf("timers changed: %v", after.Timers)
	}
}

func TestTimerOpsWithoutTimerAreNoOps(t *testing.T) {
	s := newTestSession(t)

	for name, op := range map[string]func(string) error{
		"pause":  s.PauseTimer,
		"resume": s.ResumeTimer,
		"reset":  s.ResetTimer,
	} {
		if err := op("s2"); err != nil {
			t.Fatalf("%s without timer: %v", name, err)
		}
	}
	if _, ok := s.Timer("s2"); ok {
		t.Fatal("no-op must not create a timer")
	}
}

func TestUndoDoesNotRestoreTimer(t *testing.T) {
	s := newTestSession(t)

	if err := s.StartTimer("s1", 3); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	if _, err := s.CycleStatus("s1"); err != nil {
		t.Fatalf("CycleStatus: %v", err)
	}
	if _, err := s.CycleStatus("s1"); err != nil {
		t.Fatalf("CycleStatus: %v", err)
	}
	if _, ok := s.Timer("s1"); ok {
		t.Fatal("undoing completion should not bring the timer back")
	}
}

func TestTimerMonotonicity(t *testing.T) {
	s := newTestSession(t)
	r := rand.New(rand.NewSource(7))
	ids := []string{"s1", "s2", "s3", "s4"}

	prev := s.Timers()
	for i := 0; i < 2000; i++ {
		id := ids[r.Intn(len(ids))]
		op := r.Intn(10)
		switch op {
		case 0:
			_ = s.StartTimer(id, float64(1+r.Intn(3)))
		case 1:
			_ = s.PauseTimer(id)
		case 2:
			_ = s.ResumeTimer(id)
		case 3:
			_ = s.ResetTimer(id)
		case 4:
			_, _ = s.CycleStatus(id)
		default:
			s.Tick(context.Background())
		}

		cur := s.Timers()
		for tid, tm := range cur {
			if tm.RemainingSeconds < 0 || tm.RemainingSeconds > tm.TotalSeconds {
				t.Fatalf("op %d: timer %s out of bounds: %+v", i, tid, tm)
			}
			if tm.RemainingSeconds == 0 && tm.Running {
				t.Fatalf("op %d: expired timer %s still running", i, tid)
			}
			old, ok := prev[tid]
			if !ok || op == 0 || op == 3 {
				continue
			}
			if tm.RemainingSeconds > old.RemainingSeconds {
				t.Fatalf("op %d: timer %s went up from %d to %d", i, tid, old.RemainingSeconds, tm.RemainingSeconds)
			}
			if !old.Running && tm.RemainingSeconds != old.RemainingSeconds {
				t.Fatalf("op %d: paused timer %s changed", i, tid)
			}
			if old.Running && op > 4 && old.RemainingSeconds-tm.RemainingSeconds != 1 {
				t.Fatalf("op %d: running timer %s moved by %d on one tick", i, tid, old.RemainingSeconds-tm.RemainingSeconds)
			}
		}
		if op == 3 {
			if tm, ok := cur[id]; ok && (tm.RemainingSeconds != tm.TotalSeconds || tm.Running) {
				t.Fatalf("op %d: reset timer %s = %+v", i, id, tm)
			}
		}
		// Timers may be started on completed steps; completing one drops it.
		if st, _ := s.StepStatus(id); op == 4 && st == domain.StepCompleted {
			if _, ok := cur[id]; ok {
				t.Fatalf("op %d: completed step %s still has a timer", i, id)
			}
		}
		prev = cur
	}
}

func TestTickLoopDrivesTimers(t *testing.T) {
	rec := newExpiryRecorder()
	s, err := New(context.Background(), testRecipe(),
		WithTickInterval(5*time.Millisecond),
		WithExpiryHandler(rec),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if s.Ticking() {
		t.Fatal("ticker should be idle before any timer starts")
	}
	// 0.05 minutes = 3 seconds = 3 ticks.
	if err := s.StartTimer("s1", 0.05); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	if !s.Ticking() {
		t.Fatal("starting a timer should start the ticker")
	}

	select {
	case id := <-rec.ch:
		if id != "s1" {
			t.Fatalf("expired %q, want s1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never expired")
	}

	if s.Ticking() {
		t.Fatal("ticker should suspend once no timer is running")
	}
	time.Sleep(30 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("expiry fired %d times, want 1", rec.count())
	}

	// Resuming after a reset wakes the ticker again.
	if err := s.ResetTimer("s1"); err != nil {
		t.Fatalf("ResetTimer: %v", err)
	}
	if err := s.ResumeTimer("s1"); err != nil {
		t.Fatalf("ResumeTimer: %v", err)
	}
	if !s.Ticking() {
		t.Fatal("resume should restart the ticker")
	}
}

func TestCloseStopsTickingAndReleasesResources(t *testing.T) {
	res := &countingCloser{}
	s, err := New(context.Background(), testRecipe(),
		WithTickInterval(5*time.Millisecond),
		WithResource(res),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.StartTimer("s1", 5); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Ticking() {
		t.Fatal("ticker still running after Close")
	}
	frozen, _ := s.Timer("s1")
	time.Sleep(30 * time.Millisecond)
	if after, _ := s.Timer("s1"); after != frozen {
		t.Fatalf("timer moved after Close: %+v -> %+v", frozen, after)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if res.count() != 1 {
		t.Fatalf("resource closed %d times, want 1", res.count())
	}
	if s.Status() != domain.SessionClosed {
		t.Fatalf("status = %s, want closed", s.Status())
	}
	if err := s.MarkStep("s1", domain.StepCompleted); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestCloseReportsResourceError(t *testing.T) {
	boom := errors.New("device busy")
	s, err := New(context.Background(), testRecipe(), WithResource(&countingCloser{err: boom}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Close(); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped resource error, got %v", err)
	}
}

func TestContextCancelClosesSession(t *testing.T) {
	res := &countingCloser{}
	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(ctx, testRecipe(), WithTickInterval(5*time.Millisecond), WithResource(res))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.StartTimer("s1", 5); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed after context cancellation")
	}
	if res.count() != 1 || s.Ticking() {
		t.Fatalf("teardown incomplete: closed=%d ticking=%v", res.count(), s.Ticking())
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := newTestSession(t, WithID("sess-1"), WithClock(func() time.Time { return now }))

	if err := s.StartTimer("s1", 1); err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	snap := s.Snapshot()
	snap.Steps["s1"] = domain.StepCompleted
	delete(snap.Timers, "s1")

	if st, _ := s.StepStatus("s1"); st != domain.StepPending {
		t.Fatal("mutating the snapshot changed the session")
	}
	if _, ok := s.Timer("s1"); !ok {
		t.Fatal("mutating the snapshot removed a timer")
	}

	snap = s.Snapshot()
	if snap.ID != "sess-1" || snap.RecipeID != "pasta" || snap.RecipeTitle != "Pasta" {
		t.Fatalf("unexpected identity: %+v", snap)
	}
	if !snap.StartedAt.Equal(now) || !snap.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps: %v %v", snap.StartedAt, snap.UpdatedAt)
	}
	if diff := cmp.Diff([]string{"s1", "s2"}, snap.Available); diff != "" {
		t.Fatalf("snapshot available (-want +got):\n%s", diff)
	}
}
