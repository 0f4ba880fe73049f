package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/mise/internal/display"
	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/engine"
	"github.com/hammamikhairi/mise/internal/recipe"
	"github.com/hammamikhairi/mise/internal/storage"
)

// errInvalidRecipes makes validate exit non-zero after it printed its report.
var errInvalidRecipes = errors.New("some recipes cannot be scheduled")

// newEngine builds a session-less engine over the configured recipes.
func (a *app) newEngine() *engine.Engine {
	return engine.New(a.recipes, storage.NewMemoryStore(a.log), a.log)
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List recipes, or search them by title, tag or ingredient",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := a.newEngine()
			var (
				recipes []domain.RecipeSummary
				err     error
			)
			if len(args) == 1 {
				recipes, err = eng.Search(cmd.Context(), args[0])
			} else {
				recipes, err = eng.ListRecipes(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), display.RenderRecipeList(recipes))
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <recipe>",
		Short: "Show a recipe's steps laid out by what can run in parallel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := a.newEngine()
			r, l, err := eng.Layout(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			total, path, err := eng.CriticalPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s\n", r.Title)
			if r.Description != "" {
				fmt.Fprintf(out, "  %s\n", r.Description)
			}
			if len(r.Ingredients) > 0 {
				fmt.Fprintf(out, "  Ingredients: %s\n", strings.Join(r.Ingredients, ", "))
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, display.RenderTracks(r, l, nil, nil))
			fmt.Fprintln(out)
			fmt.Fprint(out, display.RenderSummary(r, l, total, path))
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check recipe files for missing, duplicate or circular step dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src := recipe.NewEmptySource(a.log)
			eng := engine.New(src, storage.NewMemoryStore(a.log), a.log)
			out := cmd.OutOrStdout()

			failed := 0
			for _, path := range args {
				r, err := loadRecipeFile(path)
				if err == nil {
					err = src.Add(ctx, r)
				}
				if err == nil {
					err = eng.Validate(ctx, r.ID)
				}
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL  %s: %s\n", path, describe(err))
					continue
				}
				fmt.Fprintf(out, "ok    %s (%s, %d steps)\n", path, r.ID, len(r.Steps))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files: %w", failed, len(args), errInvalidRecipes)
			}
			return nil
		},
	}
}

func loadRecipeFile(path string) (*domain.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return recipe.Parse(path, data)
}

// describe phrases scheduling errors for a cook rather than a programmer.
func describe(err error) string {
	var (
		cycle    *domain.CycleError
		dangling *domain.DanglingReferenceError
		dup      *domain.DuplicateStepError
		unknown  *domain.UnknownStepError
		badTimer *domain.InvalidTimerDurationError
	)
	switch {
	case errors.As(err, &cycle):
		return "steps wait on each other in a loop: " + strings.Join(cycle.Cycle, " -> ")
	case errors.As(err, &dangling):
		return fmt.Sprintf("step %q depends on %q, which does not exist", dangling.StepID, dangling.Missing)
	case errors.As(err, &dup):
		return fmt.Sprintf("step id %q is used more than once", dup.StepID)
	case errors.As(err, &unknown):
		return fmt.Sprintf("there is no step %q", unknown.StepID)
	case errors.As(err, &badTimer):
		return "a timer needs at least one second"
	case errors.Is(err, domain.ErrSessionClosed):
		return "the session is over"
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrAlreadyExists):
		return "a recipe with that id is already loaded"
	}
	return err.Error()
}
