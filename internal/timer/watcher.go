package timer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
)

// SnapshotSource lists the state of every live cooking session.
type SnapshotSource interface {
	Snapshots(ctx context.Context) ([]domain.SessionSnapshot, error)
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets how often the watcher checks session state.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithIdleAfter sets how long a session may sit untouched, with steps ready
// and nothing ticking, before the watcher asks whether the cook is still
// there.
func WithIdleAfter(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.idleAfter = d
	}
}

// Watcher periodically inspects live sessions and nudges the cook: about
// finished timers whose step is still open, about paused timers, and about
// sessions that have gone quiet. It never mutates a session. Runs on a much
// slower cycle than the ticker (default: 1 minute).
type Watcher struct {
	sessions  SnapshotSource
	recipes   domain.RecipeSource
	notifier  domain.Notifier
	log       *logger.Logger
	interval  time.Duration
	idleAfter time.Duration
	now       func() time.Time
}

// NewWatcher creates a watcher with the given dependencies.
func NewWatcher(sessions SnapshotSource, recipes domain.RecipeSource, notifier domain.Notifier, log *logger.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		sessions:  sessions,
		recipes:   recipes,
		notifier:  notifier,
		log:       log,
		interval:  1 * time.Minute,
		idleAfter: 5 * time.Minute,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the watcher loop. Blocks until ctx is cancelled.
// Intended to be called as a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("watcher started (interval=%s)", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopped")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check runs one watcher cycle across all live sessions.
func (w *Watcher) check(ctx context.Context) {
	snaps, err := w.sessions.Snapshots(ctx)
	if err != nil {
		w.log.Error("watcher: listing sessions: %v", err)
		return
	}

	for _, snap := range snaps {
		if snap.Status != domain.SessionActive {
			continue
		}
		w.inspect(ctx, snap)
	}
}

// inspect examines a single session and decides what to say.
func (w *Watcher) inspect(ctx context.Context, snap domain.SessionSnapshot) {
	w.log.Debug("watcher: checked session=%s recipe=%s done=%d/%d timers=%d",
		shortID(snap.ID), snap.RecipeID, snap.Completed(), len(snap.Steps), len(snap.Timers))

	recipe, err := w.recipes.Get(ctx, snap.RecipeID)
	if err != nil {
		w.log.Error("watcher: loading recipe %s: %v", snap.RecipeID, err)
		return
	}

	msg := w.buildMessage(recipe, snap)
	if msg == "" {
		w.log.Debug("watcher: session %s, nothing to report", shortID(snap.ID))
		return
	}

	if err := w.notifier.Notify(ctx, msg); err != nil {
		w.log.Error("watcher: notify: %v", err)
	}
}

// buildMessage decides what to tell the cook based on a snapshot.
// Timers are visited in recipe order so the message is stable.
func (w *Watcher) buildMessage(recipe *domain.Recipe, snap domain.SessionSnapshot) string {
	var expired, paused []string
	running := 0
	for _, step := range recipe.Steps {
		t, ok := snap.Timers[step.ID]
		if !ok {
			continue
		}
		label := recipe.Label(step.ID)
		switch t.State() {
		case domain.TimerExpired:
			if snap.Steps[step.ID] == domain.StepPending {
				expired = append(expired, label)
			}
		case domain.TimerPaused:
			paused = append(paused, fmt.Sprintf("%s (%s left)", label, t.Remaining()))
		case domain.TimerRunning:
			running++
		}
	}

	// Finished timers take priority: something is waiting on the cook.
	if len(expired) > 0 {
		return fmt.Sprintf("[Watcher] Heads up, the timer for %s finished and the step is still open.", joinNames(expired))
	}

	if len(paused) > 0 {
		return fmt.Sprintf("[Watcher] Paused timer on %s. Resume it when you're ready.", joinNames(paused))
	}

	if w.idleAfter > 0 && running == 0 && len(snap.Available) > 0 {
		idle := w.now().Sub(snap.UpdatedAt)
		if idle >= w.idleAfter {
			labels := make([]string, len(snap.Available))
			for i, id := range snap.Available {
				labels[i] = recipe.Label(id)
			}
			return fmt.Sprintf("[Watcher] Nothing has moved for %s. Ready to go: %s.",
				idle.Round(time.Second), joinNames(labels))
		}
	}

	return ""
}

// joinNames joins names as "a", "a and b", or "a, b and c".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
