package world

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/host"
)

// yamlRosterFile is the top-level YAML structure for roster files.
type yamlRosterFile struct {
	Characters []RosterEntry `yaml:"characters"`
}

// yamlPosition is the YAML representation of a spawn point.
type yamlPosition struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// RosterEntry describes one combatant to spawn.
type RosterEntry struct {
	ID            string       `yaml:"id"`
	Name          string       `yaml:"name"`
	Class         string       `yaml:"class"`
	Faction       string       `yaml:"faction"`
	MaxHP         float64      `yaml:"max_hp"`
	Armor         float64      `yaml:"armor"`
	MagicResist   float64      `yaml:"magic_resist"`
	MovementSpeed float64      `yaml:"movement_speed"`
	Left          string       `yaml:"left"`
	Right         string       `yaml:"right"`
	Position      yamlPosition `yaml:"position"`
	Radius        float64      `yaml:"radius"`
	// Behavior names the AI domain driving this combatant; empty selects the default.
	Behavior string `yaml:"behavior"`
}

// Spec converts the entry into a character.Spec.
//
// Postcondition: returns an error if the class or faction is unknown.
func (e RosterEntry) Spec() (character.Spec, error) {
	class, err := character.ParseClass(e.Class)
	if err != nil {
		return character.Spec{}, fmt.Errorf("roster entry %q: %w", e.Name, err)
	}
	faction, err := character.ParseFaction(e.Faction)
	if err != nil {
		return character.Spec{}, fmt.Errorf("roster entry %q: %w", e.Name, err)
	}
	return character.Spec{
		ID:            e.ID,
		Name:          e.Name,
		Class:         class,
		Faction:       faction,
		MaxHP:         e.MaxHP,
		Armor:         e.Armor,
		MagicResist:   e.MagicResist,
		MovementSpeed: e.MovementSpeed,
		LeftWeapon:    e.Left,
		RightWeapon:   e.Right,
	}, nil
}

// At returns the spawn position.
func (e RosterEntry) At() host.Vec3 {
	return host.Vec3{X: e.Position.X, Y: e.Position.Y, Z: e.Position.Z}
}

// ParseRoster decodes roster YAML. Unknown fields are rejected.
//
// Precondition: data must be valid YAML conforming to the roster schema.
// Postcondition: Returns the entries in file order or a non-nil error.
func ParseRoster(data []byte) ([]RosterEntry, error) {
	var file yamlRosterFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing roster YAML: %w", err)
	}
	if len(file.Characters) == 0 {
		return nil, fmt.Errorf("roster has no characters")
	}
	return file.Characters, nil
}

// LoadRoster reads a roster file and spawns every entry into w.
//
// Precondition: path must point to a valid YAML roster file.
// Postcondition: Returns the spawned ids in file order, or the first error encountered.
func (w *World) LoadRoster(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file %s: %w", path, err)
	}
	entries, err := ParseRoster(data)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id, err := w.Spawn(e)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
