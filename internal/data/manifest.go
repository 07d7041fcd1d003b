package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coralforge/engine/internal/core/schedule"
)

// ManifestEntry declares ordering and gating for one registered system.
// Systems themselves are code; the manifest only wires them together.
type ManifestEntry struct {
	Name      string   `yaml:"name"`
	After     []string `yaml:"after"`
	Before    []string `yaml:"before"`
	Condition string   `yaml:"condition"`
}

// Manifest is the schedule_manifest.yaml contents.
type Manifest struct {
	Systems []ManifestEntry `yaml:"systems"`
}

// LoadManifest loads a schedule manifest.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse schedule manifest: %w", err)
	}
	return &m, nil
}

// ConditionSource resolves condition names to predicates; the Lua
// scripting engine implements it.
type ConditionSource interface {
	Condition(name string) (schedule.Condition, bool)
}

// Apply wires the manifest's edges and conditions onto the container.
// Unknown system names surface when the container compiles; an unknown
// condition name fails here.
func (m *Manifest) Apply(c *schedule.Container, conds ConditionSource) error {
	for _, entry := range m.Systems {
		for _, dep := range entry.After {
			c.AddEdge(dep, entry.Name)
		}
		for _, succ := range entry.Before {
			c.AddEdge(entry.Name, succ)
		}
		if entry.Condition != "" {
			if conds == nil {
				return fmt.Errorf("manifest: system %q wants condition %q but no condition source is configured", entry.Name, entry.Condition)
			}
			cond, ok := conds.Condition(entry.Condition)
			if !ok {
				return fmt.Errorf("manifest: system %q wants unknown condition %q", entry.Name, entry.Condition)
			}
			c.AddCondition(entry.Name, cond)
		}
	}
	return nil
}

// Count returns the number of manifest entries.
func (m *Manifest) Count() int {
	return len(m.Systems)
}
