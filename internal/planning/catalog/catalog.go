// Package catalog loads crafting problems from YAML or JSON files.
//
// The file format is the classic crafting description:
//
//	Items:   [wood, plank, bench, ...]
//	Initial: {wood: 1}
//	Goal:    {bench: 1}
//	Recipes:
//	  craft plank:
//	    Consumes: {wood: 1}
//	    Produces: {plank: 4}
//	    Time: 1
//
// with optional ID, Caps (item -> largest useful quantity) and TimeLimit
// (seconds). JSON files parse through the same YAML decoder. Recipe
// declaration order is preserved because it fixes transition order.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/craftplan/internal/planning/recipe"
)

// ErrNoRecipes is returned for a catalog without any recipe.
var ErrNoRecipes = errors.New("catalog has no recipes")

// Recipes is an ordered list of named rule specs.
type Recipes []recipe.Named

// UnmarshalYAML decodes a mapping of rule name to spec, keeping key order.
func (r *Recipes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: Recipes must be a mapping of name to recipe", node.Line)
	}
	out := make(Recipes, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var spec recipe.Spec
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return fmt.Errorf("recipe %q: %w", name, err)
		}
		out = append(out, recipe.Named{Name: name, Spec: spec})
	}
	*r = out
	return nil
}

// Catalog is one crafting problem as declared on disk.
//
// Invariant (after Validate): ID non-empty, Items non-empty and unique,
// at least one recipe, TimeLimit >= 0.
type Catalog struct {
	ID        string         `yaml:"ID"`
	Items     []string       `yaml:"Items"`
	Initial   map[string]int `yaml:"Initial"`
	Goal      map[string]int `yaml:"Goal"`
	Recipes   Recipes        `yaml:"Recipes"`
	Caps      map[string]int `yaml:"Caps"`
	TimeLimit float64        `yaml:"TimeLimit"`
}

// Validate checks the structural fields. Item references inside recipes are
// checked when the catalog is compiled.
func (c *Catalog) Validate() error {
	if c.ID == "" {
		return errors.New("catalog: ID must not be empty")
	}
	if len(c.Items) == 0 {
		return fmt.Errorf("catalog %q: Items must not be empty", c.ID)
	}
	seen := make(map[string]struct{}, len(c.Items))
	for _, it := range c.Items {
		if it == "" {
			return fmt.Errorf("catalog %q: item name must not be empty", c.ID)
		}
		if _, dup := seen[it]; dup {
			return fmt.Errorf("catalog %q: duplicate item %q", c.ID, it)
		}
		seen[it] = struct{}{}
	}
	if len(c.Recipes) == 0 {
		return fmt.Errorf("catalog %q: %w", c.ID, ErrNoRecipes)
	}
	for name := range c.Initial {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("catalog %q: Initial names unknown item %q", c.ID, name)
		}
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("catalog %q: TimeLimit must be >= 0, got %v", c.ID, c.TimeLimit)
	}
	return nil
}

// Parse decodes data and defaults the ID to fallbackID.
//
// Postcondition: returns a validated Catalog or a non-nil error.
func Parse(data []byte, fallbackID string) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: parsing %s: %w", fallbackID, err)
	}
	if c.ID == "" {
		c.ID = fallbackID
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// IsCatalogFile reports whether name has a catalog extension.
func IsCatalogFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadFile reads one catalog; its ID defaults to the file's base name without
// extension.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	base := filepath.Base(path)
	return Parse(data, strings.TrimSuffix(base, filepath.Ext(base)))
}

// LoadDir reads every *.yaml, *.yml and *.json file in dir in name order.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any file fails to parse or validate, or if
// two files declare the same ID. Returns (nil, nil) for a directory without
// catalogs.
func LoadDir(dir string) ([]*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog.LoadDir: reading %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsCatalogFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []*Catalog
	ids := make(map[string]string, len(names))
	for _, n := range names {
		c, err := LoadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		if prev, dup := ids[c.ID]; dup {
			return nil, fmt.Errorf("catalog.LoadDir: ID %q declared by both %s and %s", c.ID, prev, n)
		}
		ids[c.ID] = n
		out = append(out, c)
	}
	return out, nil
}
