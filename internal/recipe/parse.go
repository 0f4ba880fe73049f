package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hammamikhairi/mise/internal/domain"
)

// ErrUnsupportedFormat is returned for recipe files that are neither JSON
// nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported recipe format")

// ParseJSON decodes a recipe in the storage layer's JSON shape:
//
//	{"id": "...", "title": "...", "steps": [{"id": "s1", "text": "...",
//	  "dependsOn": [], "duration": 8, "isPassive": true, "needsTimer": true}]}
//
// Unknown fields are rejected.
func ParseJSON(data []byte) (*domain.Recipe, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var r domain.Recipe
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding recipe json: %w", err)
	}
	if err := checkShape(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ParseTOML decodes a recipe written as TOML, with steps as [[steps]]
// tables and snake_case keys (depends_on, needs_timer, is_passive).
func ParseTOML(data []byte) (*domain.Recipe, error) {
	var r domain.Recipe
	md, err := toml.Decode(string(data), &r)
	if err != nil {
		return nil, fmt.Errorf("decoding recipe toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decoding recipe toml: unknown key %q", undecoded[0].String())
	}
	if err := checkShape(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Parse picks the decoder from the file extension.
func Parse(name string, data []byte) (*domain.Recipe, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return ParseJSON(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

// checkShape enforces the fields every recipe must carry. Dependency
// structure is left to the graph validator.
func checkShape(r *domain.Recipe) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("recipe has no id")
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("recipe %q has no steps", r.ID)
	}
	for i, s := range r.Steps {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("recipe %q: step %d has no id", r.ID, i+1)
		}
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("recipe %q: step %q has no text", r.ID, s.ID)
		}
		if s.DurationMinutes < 0 {
			return fmt.Errorf("recipe %q: step %q has negative duration", r.ID, s.ID)
		}
	}
	if r.Title == "" {
		r.Title = r.ID
	}
	return nil
}
