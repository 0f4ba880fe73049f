package recipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*DirSource)(nil)

// DirSource serves the recipes found in a directory of .json and .toml
// files, loaded once at construction. Files that fail to parse, or that
// repeat an id already loaded, are skipped and reported by Problems.
type DirSource struct {
	*MemorySource
	dir      string
	problems []error
}

// NewDirSource loads every recipe file directly inside dir, in name order.
// Built-in recipes are included when withBuiltins is set; a file may not
// reuse a built-in id.
func NewDirSource(ctx context.Context, dir string, withBuiltins bool, log *logger.Logger) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading recipe dir: %w", err)
	}

	mem := NewEmptySource(log)
	if withBuiltins {
		mem = NewMemorySource(log)
	}
	src := &DirSource{MemorySource: mem, dir: dir}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".toml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	loaded := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := src.loadFile(ctx, path); err != nil {
			log.Warn("skipping recipe file %s: %v", path, err)
			src.problems = append(src.problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		loaded++
	}

	log.Info("loaded %d recipe files from %s (%d skipped)", loaded, dir, len(src.problems))
	return src, nil
}

func (s *DirSource) loadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r, err := Parse(path, data)
	if err != nil {
		return err
	}
	if err := s.Add(ctx, r); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("recipe id %q: %w", r.ID, err)
		}
		return err
	}
	return nil
}

// Dir returns the directory the recipes were read from.
func (s *DirSource) Dir() string { return s.dir }

// Problems returns one error per skipped file.
func (s *DirSource) Problems() []error { return s.problems }
