package weapon

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a weapon table.
type File struct {
	Weapons []*Weapon `yaml:"weapons" json:"weapons" jsonschema:"minItems=1"`
}

// Table holds all loaded weapons indexed by ID. It is read-only after loading.
type Table struct {
	weapons map[string]*Weapon
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{weapons: make(map[string]*Weapon)}
}

// Register validates w and adds it to the table.
//
// Precondition: w must not be nil.
// Postcondition: Get(w.ID) returns w; returns an error if w is invalid or w.ID is already registered.
func (t *Table) Register(w *Weapon) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if _, exists := t.weapons[w.ID]; exists {
		return fmt.Errorf("weapon: Table.Register: weapon ID %q already registered", w.ID)
	}
	t.weapons[w.ID] = w
	return nil
}

// Get returns the weapon for id and whether it was found.
func (t *Table) Get(id string) (*Weapon, bool) {
	w, ok := t.weapons[id]
	return w, ok
}

// Len returns the number of registered weapons.
func (t *Table) Len() int { return len(t.weapons) }

// All returns every weapon sorted by ID.
func (t *Table) All() []*Weapon {
	out := make([]*Weapon, 0, len(t.weapons))
	for _, w := range t.weapons {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CheckRarities verifies that every weapon's rarity, when set, exists in rarities.
func (t *Table) CheckRarities(rarities *RarityTable) error {
	for _, w := range t.All() {
		if w.Rarity == "" {
			continue
		}
		if _, ok := rarities.Get(w.Rarity); !ok {
			return fmt.Errorf("weapon %q references unknown rarity %q", w.ID, w.Rarity)
		}
	}
	return nil
}

// LoadTable reads a YAML weapon file and returns the populated Table.
//
// Precondition: path names a readable YAML file.
// Postcondition: returns a Table containing every weapon, or the first error encountered.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadTable: cannot read file %q: %w", path, err)
	}
	return ParseTable(data)
}

// ParseTable decodes a YAML weapon table. Unknown fields are rejected.
func ParseTable(data []byte) (*Table, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing weapon table: %w", err)
	}
	t := NewTable()
	for _, w := range f.Weapons {
		if err := t.Register(w); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
