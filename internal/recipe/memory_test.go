package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/graph"
	"github.com/hammamikhairi/mise/internal/logger"
)

func TestMemorySourceList(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	recipes, err := src.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recipes) < 2 {
		t.Fatalf("expected at least 2 recipes, got %d", len(recipes))
	}
	if recipes[0].Title > recipes[1].Title {
		t.Fatalf("expected recipes ordered by title, got %q before %q", recipes[0].Title, recipes[1].Title)
	}
	if recipes[0].StepCount == 0 {
		t.Fatal("summary is missing the step count")
	}
}

func TestMemorySourceGet(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		id      string
		wantErr error
	}{
		{"chicken-alfredo", nil},
		{"vegetable-stir-fry", nil},
		{"nonexistent", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r, err := src.Get(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.ID != tt.id {
				t.Fatalf("expected ID %s, got %s", tt.id, r.ID)
			}
			if len(r.Steps) == 0 {
				t.Fatal("recipe has no steps")
			}
			if len(r.Ingredients) == 0 {
				t.Fatal("recipe has no ingredients")
			}
		})
	}
}

func TestBuiltinRecipesAreSchedulable(t *testing.T) {
	for _, r := range builtins() {
		t.Run(r.ID, func(t *testing.T) {
			if err := graph.New(r.Steps).Validate(); err != nil {
				t.Fatalf("built-in recipe does not validate: %v", err)
			}
			if len(graph.New(r.Steps).Roots()) < 2 {
				t.Fatal("expected built-in recipe to have parallel starting steps")
			}
		})
	}
}

func TestMemorySourceSearch(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		query string
		want  int
	}{
		{"chicken", 1},
		{"pasta", 1},
		{"vegan", 1},
		{"GARLIC", 2},
		{"nonexistent-query-xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := src.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(results) != tt.want {
				t.Fatalf("query=%q: expected %d results, got %d", tt.query, tt.want, len(results))
			}
		})
	}
}

func TestMemorySourceAddAndUpdate(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewEmptySource(log)
	ctx := context.Background()

	r := &domain.Recipe{ID: "toast", Title: "Toast", Steps: []domain.Step{{ID: "t1", Text: "toast"}}}
	if err := src.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := src.Add(ctx, r); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	updated := &domain.Recipe{ID: "toast", Title: "Better Toast", Steps: r.Steps}
	if err := src.Update(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := src.Get(ctx, "toast")
	if got.Title != "Better Toast" || got.Version != 1 {
		t.Fatalf("unexpected recipe after update: %+v", got)
	}
	if err := src.Update(ctx, &domain.Recipe{ID: "nope"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
