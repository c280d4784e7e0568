package weapon

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Rarity describes one item-rarity tier.
type Rarity struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
	// Color is a "#rrggbb" tint used for hit effects of weapons of this rarity.
	Color string `yaml:"color"`
}

// RarityTable maps rarity names to tiers.
type RarityTable struct {
	tiers map[string]Rarity
}

// NewRarityTable returns an empty RarityTable.
func NewRarityTable() *RarityTable {
	return &RarityTable{tiers: make(map[string]Rarity)}
}

// Register adds r to the table.
//
// Postcondition: returns an error if r is invalid or its name is already registered.
func (t *RarityTable) Register(r Rarity) error {
	var errs []error
	if r.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if r.Weight < 0 {
		errs = append(errs, fmt.Errorf("weight must be >= 0, got %v", r.Weight))
	}
	if r.Color != "" && !hexColor.MatchString(r.Color) {
		errs = append(errs, fmt.Errorf("color must be #rrggbb, got %q", r.Color))
	}
	if len(errs) > 0 {
		return fmt.Errorf("rarity %q validation failed: %w", r.Name, errors.Join(errs...))
	}
	if _, exists := t.tiers[r.Name]; exists {
		return fmt.Errorf("rarity %q already registered", r.Name)
	}
	t.tiers[r.Name] = r
	return nil
}

// Get returns the tier named name.
func (t *RarityTable) Get(name string) (Rarity, bool) {
	r, ok := t.tiers[name]
	return r, ok
}

// Color returns the tint for name, or "" if the rarity is unknown or has no color.
func (t *RarityTable) Color(name string) string {
	if t == nil {
		return ""
	}
	return t.tiers[name].Color
}

// Len returns the number of tiers.
func (t *RarityTable) Len() int { return len(t.tiers) }

// LoadRarities reads a YAML rarity file of the form `rarities: [{name, weight, color}]`.
func LoadRarities(path string) (*RarityTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRarities: cannot read file %q: %w", path, err)
	}
	var f struct {
		Rarities []Rarity `yaml:"rarities"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing rarity table %q: %w", path, err)
	}
	t := NewRarityTable()
	for _, r := range f.Rarities {
		if err := t.Register(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}
