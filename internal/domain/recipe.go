// Package domain defines the core types and interfaces for the cooking companion.
// All other packages depend on domain; domain depends on nothing.
package domain

import "fmt"

// Recipe is a complete recipe as produced by the extraction/storage layer.
// The step slice order is the canonical display order. It is used for
// labelling ("Step 3") and for stable ordering of derived views, never for
// dependency semantics.
type Recipe struct {
	ID          string   `json:"id" toml:"id"`
	Title       string   `json:"title" toml:"title"`
	Description string   `json:"description,omitempty" toml:"description"`
	Ingredients []string `json:"ingredients,omitempty" toml:"ingredients"`
	Image       string   `json:"image,omitempty" toml:"image"`
	Source      string   `json:"source,omitempty" toml:"source"`
	Tags        []string `json:"tags,omitempty" toml:"tags"`
	Steps       []Step   `json:"steps" toml:"steps"`
	Version     int      `json:"version,omitempty" toml:"version"`
}

// RecipeSummary is a lightweight view of a recipe for listing.
type RecipeSummary struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	StepCount   int
}

// Step is a single instruction with its dependency edges.
type Step struct {
	ID              string   `json:"id" toml:"id"`
	Text            string   `json:"text" toml:"text"`
	DependsOn       []string `json:"dependsOn" toml:"depends_on"`
	DurationMinutes float64  `json:"duration,omitempty" toml:"duration"`   // 0 when unknown
	IsPassive       bool     `json:"isPassive,omitempty" toml:"is_passive"` // cook can multitask
	NeedsTimer      bool     `json:"needsTimer,omitempty" toml:"needs_timer"`
	Ingredients     []string `json:"ingredients,omitempty" toml:"ingredients"`
	Temperature     string   `json:"temperature,omitempty" toml:"temperature"`
}

// HasTimer reports whether a countdown is meaningful for the step.
func (s Step) HasTimer() bool {
	return s.NeedsTimer && s.DurationMinutes > 0
}

// Summary returns the listing view of the recipe.
func (r *Recipe) Summary() RecipeSummary {
	return RecipeSummary{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Tags:        r.Tags,
		StepCount:   len(r.Steps),
	}
}

// StepIndex returns the position of the step with the given id, or -1.
func (r *Recipe) StepIndex(id string) int {
	for i := range r.Steps {
		if r.Steps[i].ID == id {
			return i
		}
	}
	return -1
}

// Step returns the step with the given id, or nil.
func (r *Recipe) Step(id string) *Step {
	if i := r.StepIndex(id); i >= 0 {
		return &r.Steps[i]
	}
	return nil
}

// Label returns the display label for a step ("Step 3"), falling back to
// the raw id for steps that are not part of the recipe.
func (r *Recipe) Label(id string) string {
	if i := r.StepIndex(id); i >= 0 {
		return fmt.Sprintf("Step %d", i+1)
	}
	return id
}
