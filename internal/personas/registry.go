package personas

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
)

// Persona is a named, prompt-defined evaluator viewpoint. Immutable; safe to
// share across concurrent requests.
type Persona struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// Set is the full persona configuration, keyed by pipeline and tier. It is
// built once at startup and injected into the engines.
type Set struct {
	Sequential   []Persona `yaml:"sequential"`
	BatchFree    []Persona `yaml:"batch_free"`
	BatchPremium []Persona `yaml:"batch_premium"`
}

// BatchRoster returns the analyzer roster for the caller's tier. Premium
// unlocks the full roster; free users get the reduced one.
func (s Set) BatchRoster(premium bool) []Persona {
	if premium {
		return s.BatchPremium
	}
	return s.BatchFree
}

// SequentialByName looks up a sequential-pipeline persona by its stage name.
func (s Set) SequentialByName(name string) (Persona, bool) {
	for _, p := range s.Sequential {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

func (s Set) Validate() error {
	if len(s.Sequential) != len(domain.StageOrder) {
		return fmt.Errorf("sequential roster must have exactly %d personas, got %d", len(domain.StageOrder), len(s.Sequential))
	}
	for i, p := range s.Sequential {
		if p.Name != domain.StageOrder[i] {
			return fmt.Errorf("sequential roster position %d must be %q, got %q", i, domain.StageOrder[i], p.Name)
		}
		if p.Prompt == "" {
			return fmt.Errorf("sequential persona %q has an empty prompt", p.Name)
		}
	}
	if len(s.BatchFree) == 0 {
		return fmt.Errorf("batch_free roster is empty")
	}
	if len(s.BatchPremium) < len(s.BatchFree) {
		return fmt.Errorf("batch_premium roster (%d) must be at least as large as batch_free (%d)", len(s.BatchPremium), len(s.BatchFree))
	}
	for _, roster := range [][]Persona{s.BatchFree, s.BatchPremium} {
		seen := map[string]bool{}
		for _, p := range roster {
			if p.Name == "" || p.Prompt == "" {
				return fmt.Errorf("batch persona with empty name or prompt")
			}
			if seen[p.Name] {
				return fmt.Errorf("duplicate batch persona %q", p.Name)
			}
			seen[p.Name] = true
		}
	}
	return nil
}

// Load reads a persona set override from a YAML file. Rosters absent from the
// file fall back to the built-in defaults.
func Load(path string) (Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read personas config: %w", err)
	}
	set := DefaultSet()
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return Set{}, fmt.Errorf("parse personas config: %w", err)
	}
	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}
