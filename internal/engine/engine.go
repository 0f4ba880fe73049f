// Package engine ties recipe sources to cooking sessions. It validates
// recipes before they are scheduled, computes their layout, and owns the
// set of live sessions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/graph"
	"github.com/hammamikhairi/mise/internal/layout"
	"github.com/hammamikhairi/mise/internal/logger"
	"github.com/hammamikhairi/mise/internal/session"
)

// ExpiryFactory builds the expiry handler for a session over the given
// recipe. It lets handlers label steps the way the recipe does.
type ExpiryFactory func(r *domain.Recipe) domain.ExpiryHandler

// Option configures the engine.
type Option func(*Engine)

// WithTickInterval sets the countdown period for new sessions.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.tickInterval = d
	}
}

// WithExpiry sets how new sessions report timer expiry.
func WithExpiry(f ExpiryFactory) Option {
	return func(e *Engine) {
		e.expiry = f
	}
}

// WithSessionOptions appends options applied to every new session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, opts...)
	}
}

// Engine manages recipes and cooking sessions. It depends only on
// interfaces and is fully testable with in-memory implementations.
type Engine struct {
	recipes      domain.RecipeSource
	store        session.Store
	log          *logger.Logger
	tickInterval time.Duration
	expiry       ExpiryFactory
	sessionOpts  []session.Option
}

// RecipeUpdater is an optional interface that RecipeSource implementations
// can satisfy to support in-place recipe replacement.
type RecipeUpdater interface {
	Update(ctx context.Context, recipe *domain.Recipe) error
}

// New creates an engine with the given dependencies and options.
func New(recipes domain.RecipeSource, store session.Store, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		recipes:      recipes,
		store:        store,
		log:          log,
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ListRecipes returns all available recipes.
func (e *Engine) ListRecipes(ctx context.Context) ([]domain.RecipeSummary, error) {
	return e.recipes.List(ctx)
}

// GetRecipe returns a full recipe by ID.
func (e *Engine) GetRecipe(ctx context.Context, id string) (*domain.Recipe, error) {
	return e.recipes.Get(ctx, id)
}

// Search returns recipes matching a free-text query.
func (e *Engine) Search(ctx context.Context, query string) ([]domain.RecipeSummary, error) {
	return e.recipes.Search(ctx, query)
}

// UpdateRecipe replaces a recipe after checking its step graph. Returns an
// error if the underlying RecipeSource does not support updates.
func (e *Engine) UpdateRecipe(ctx context.Context, recipe *domain.Recipe) error {
	updater, ok := e.recipes.(RecipeUpdater)
	if !ok {
		return fmt.Errorf("recipe source does not support updates")
	}
	if err := graph.New(recipe.Steps).Validate(); err != nil {
		return fmt.Errorf("recipe %q: %w", recipe.ID, err)
	}
	return updater.Update(ctx, recipe)
}

// Validate checks that a recipe's steps form a schedulable graph.
func (e *Engine) Validate(ctx context.Context, recipeID string) error {
	r, err := e.recipes.Get(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("getting recipe: %w", err)
	}
	if err := graph.New(r.Steps).Validate(); err != nil {
		return fmt.Errorf("recipe %q: %w", recipeID, err)
	}
	return nil
}

// Layout computes the rank/track layout of a recipe's steps.
func (e *Engine) Layout(ctx context.Context, recipeID string) (*domain.Recipe, layout.Layout, error) {
	r, err := e.recipes.Get(ctx, recipeID)
	if err != nil {
		return nil, layout.Layout{}, fmt.Errorf("getting recipe: %w", err)
	}
	l, err := layout.Compute(graph.New(r.Steps))
	if err != nil {
		return nil, layout.Layout{}, fmt.Errorf("recipe %q: %w", recipeID, err)
	}
	return r, l, nil
}

// CriticalPath returns the longest chain of timed work in a recipe.
func (e *Engine) CriticalPath(ctx context.Context, recipeID string) (float64, []string, error) {
	r, err := e.recipes.Get(ctx, recipeID)
	if err != nil {
		return 0, nil, fmt.Errorf("getting recipe: %w", err)
	}
	total, path, err := layout.CriticalPath(graph.New(r.Steps), r.Steps)
	if err != nil {
		return 0, nil, fmt.Errorf("recipe %q: %w", recipeID, err)
	}
	return total, path, nil
}

// StartSession begins a new cooking session for the given recipe. A recipe
// whose steps cannot be scheduled is refused with a structural error. The
// session is closed when ctx is cancelled; extra options are applied after
// the engine's own.
func (e *Engine) StartSession(ctx context.Context, recipeID string, opts ...session.Option) (*session.Session, error) {
	r, err := e.recipes.Get(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("getting recipe: %w", err)
	}

	all := []session.Option{
		session.WithID(uuid.NewString()),
		session.WithLogger(e.log),
		session.WithTickInterval(e.tickInterval),
	}
	if e.expiry != nil {
		all = append(all, session.WithExpiryHandler(e.expiry(r)))
	}
	all = append(all, e.sessionOpts...)
	all = append(all, opts...)

	sess, err := session.New(ctx, r, all...)
	if err != nil {
		e.log.Warn("refusing to start recipe %q: %v", recipeID, err)
		return nil, err
	}

	if err := e.store.Save(ctx, sess); err != nil {
		sess.Close()
		return nil, fmt.Errorf("saving session: %w", err)
	}

	e.log.Info("started session %s for recipe %q", sess.ID(), r.Title)
	return sess, nil
}

// Session returns a live session by id.
func (e *Engine) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

// EndSession closes a session and forgets it.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	sess, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	closeErr := sess.Close()
	if err := e.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}

	e.log.Info("session %s ended", sessionID)
	return closeErr
}

// Snapshots returns the state of every live session.
func (e *Engine) Snapshots(ctx context.Context) ([]domain.SessionSnapshot, error) {
	sessions, err := e.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	out := make([]domain.SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out, nil
}

// Shutdown ends every live session.
func (e *Engine) Shutdown(ctx context.Context) error {
	sessions, err := e.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	var errs []error
	for _, s := range sessions {
		if err := e.EndSession(ctx, s.ID()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ResolveStep maps what a cook typed to a step id: a 1-based step number
// ("3") or the step id itself. Unknown references yield
// *domain.UnknownStepError.
func ResolveStep(r *domain.Recipe, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if r.Step(ref) != nil {
		return ref, nil
	}
	num := strings.TrimSpace(strings.TrimPrefix(strings.ToLower(ref), "step"))
	if n, err := strconv.Atoi(num); err == nil && n >= 1 && n <= len(r.Steps) {
		return r.Steps[n-1].ID, nil
	}
	return "", &domain.UnknownStepError{StepID: ref}
}
