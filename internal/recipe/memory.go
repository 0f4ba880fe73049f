// Package recipe provides recipe source implementations: an in-memory
// source with built-in recipes and a directory source that reads JSON and
// TOML recipe files.
package recipe

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*MemorySource)(nil)

// MemorySource holds recipes in memory. Safe for concurrent use.
type MemorySource struct {
	mu      sync.RWMutex
	recipes map[string]*domain.Recipe
	log     *logger.Logger
}

// NewMemorySource creates a recipe source preloaded with built-in recipes.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := NewEmptySource(log)
	for _, r := range builtins() {
		src.recipes[r.ID] = r
	}
	src.log.Debug("seeded %d recipes", len(src.recipes))
	return src
}

// NewEmptySource creates a recipe source with no recipes.
func NewEmptySource(log *logger.Logger) *MemorySource {
	return &MemorySource{
		recipes: make(map[string]*domain.Recipe),
		log:     log,
	}
}

// Add stores a new recipe. It fails with domain.ErrAlreadyExists when the
// id is taken. The recipe is stored as given; graph checks happen when a
// session starts.
func (s *MemorySource) Add(ctx context.Context, recipe *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[recipe.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.recipes[recipe.ID] = recipe
	s.log.Debug("recipe added: %s (%d steps)", recipe.ID, len(recipe.Steps))
	return nil
}

// List returns summaries of all available recipes, ordered by title.
func (s *MemorySource) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.log.Debug("listing all recipes, count=%d", len(s.recipes))

	out := make([]domain.RecipeSummary, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, r.Summary())
	}
	sortSummaries(out)
	return out, nil
}

// Get returns a recipe by ID.
func (s *MemorySource) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		s.log.Debug("recipe not found: %s", id)
		return nil, domain.ErrNotFound
	}
	return r, nil
}

// Update replaces a recipe in the source. The recipe ID must already exist.
func (s *MemorySource) Update(ctx context.Context, recipe *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.recipes[recipe.ID]
	if !ok {
		return domain.ErrNotFound
	}
	recipe.Version = old.Version + 1
	s.recipes[recipe.ID] = recipe
	s.log.Info("recipe updated: %s (v%d)", recipe.Title, recipe.Version)
	return nil
}

// Search returns recipes whose title, description, tags or ingredients
// contain the query string.
func (s *MemorySource) Search(ctx context.Context, query string) ([]domain.RecipeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	s.log.Debug("searching recipes for: %s", q)

	var out []domain.RecipeSummary
	for _, r := range s.recipes {
		if matches(r, q) {
			out = append(out, r.Summary())
		}
	}
	sortSummaries(out)
	return out, nil
}

func matches(r *domain.Recipe, query string) bool {
	fields := []string{r.Title, r.Description}
	fields = append(fields, r.Tags...)
	fields = append(fields, r.Ingredients...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func sortSummaries(out []domain.RecipeSummary) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
}
