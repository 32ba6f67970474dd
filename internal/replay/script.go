// Package replay drives a view from a YAML script of gestures. It is used to
// reproduce ordering problems without a browser.
package replay

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script is a replay file.
type Script struct {
	// Container defaults to the configured table container.
	Container string `yaml:"container,omitempty"`
	// Rows are the entity ids initially in the table, top to bottom.
	Rows []string `yaml:"rows"`
	// Hidden lists entity ids from Rows that are filtered out of the visible
	// table. They keep their position and are still published.
	Hidden []string `yaml:"hidden,omitempty"`
	// Immediate overrides publish.immediate when set.
	Immediate *bool  `yaml:"immediate,omitempty"`
	Steps     []Step `yaml:"steps"`
}

// Step is one gesture. Exactly one field must be set.
type Step struct {
	Move   *Gesture `yaml:"move,omitempty"`
	Add    *Gesture `yaml:"add,omitempty"`
	Remove *Gesture `yaml:"remove,omitempty"`
	Create *Gesture `yaml:"create,omitempty"`
}

// Gesture carries the row a step acts on.
type Gesture struct {
	Identifier string `yaml:"identifier,omitempty"`
	EntityID   string `yaml:"entityId,omitempty"`
	RowIndex   int    `yaml:"rowIndex,omitempty"`
}

// Kind returns the name of the set field, or "" when none or several are set.
func (s Step) Kind() string {
	kind, n := "", 0
	if s.Move != nil {
		kind, n = "move", n+1
	}
	if s.Add != nil {
		kind, n = "add", n+1
	}
	if s.Remove != nil {
		kind, n = "remove", n+1
	}
	if s.Create != nil {
		kind, n = "create", n+1
	}
	if n != 1 {
		return ""
	}
	return kind
}

// Load reads and validates a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every step.
func (s *Script) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(s.Rows))
	for _, id := range s.Rows {
		if id == "" {
			errs = append(errs, errors.New("rows: empty entity id"))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("rows: duplicate entity id %s", id))
		}
		seen[id] = true
	}
	for _, id := range s.Hidden {
		if !seen[id] {
			errs = append(errs, fmt.Errorf("hidden: %s is not in rows", id))
		}
	}

	for i, step := range s.Steps {
		kind := step.Kind()
		switch kind {
		case "":
			errs = append(errs, fmt.Errorf("step %d: exactly one of move, add, remove, create is required", i+1))
			continue
		case "move", "remove", "add":
			if g := step.gesture(); g.Identifier == "" && g.EntityID == "" {
				errs = append(errs, fmt.Errorf("step %d: %s needs identifier or entityId", i+1, kind))
			}
		}
		if g := step.gesture(); g.RowIndex < 0 {
			errs = append(errs, fmt.Errorf("step %d: rowIndex must not be negative", i+1))
		}
	}
	return errors.Join(errs...)
}

func (s Step) gesture() Gesture {
	switch {
	case s.Move != nil:
		return *s.Move
	case s.Add != nil:
		return *s.Add
	case s.Remove != nil:
		return *s.Remove
	case s.Create != nil:
		return *s.Create
	}
	return Gesture{}
}
