// Package character owns the canonical combat state of every combatant in the arena.
package character

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Faction is one of exactly two allegiance values.
type Faction int

const (
	FactionSun Faction = iota
	FactionMoon
)

// String returns the lowercase faction name.
func (f Faction) String() string {
	switch f {
	case FactionSun:
		return "sun"
	case FactionMoon:
		return "moon"
	default:
		return "unknown"
	}
}

// Enemy returns the opposing faction.
//
// Postcondition: f.Enemy().Enemy() == f for both factions.
func (f Faction) Enemy() Faction {
	if f == FactionSun {
		return FactionMoon
	}
	return FactionSun
}

// ParseFaction converts a faction name ("sun" or "moon", case-insensitive) to a Faction.
func ParseFaction(s string) (Faction, error) {
	switch strings.ToLower(s) {
	case "sun":
		return FactionSun, nil
	case "moon":
		return FactionMoon, nil
	default:
		return 0, fmt.Errorf("unknown faction %q", s)
	}
}

// Class is the combat archetype; it selects the attack animation.
type Class int

const (
	ClassKnight Class = iota
	ClassAssassin
	ClassGunner
	ClassTech
	ClassWizard
)

var classNames = map[Class]string{
	ClassKnight:   "knight",
	ClassAssassin: "assassin",
	ClassGunner:   "gunner",
	ClassTech:     "tech",
	ClassWizard:   "wizard",
}

// String returns the lowercase class name.
func (c Class) String() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return "unknown"
}

// ParseClass converts a class name to a Class. The empty string maps to ClassKnight.
func ParseClass(s string) (Class, error) {
	if s == "" {
		return ClassKnight, nil
	}
	for c, n := range classNames {
		if n == strings.ToLower(s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown class %q", s)
}

// Hand identifies one of the two equipment positions.
type Hand int

const (
	HandLeft Hand = iota
	HandRight
)

// Hands lists both hand slots in a stable order.
var Hands = [2]Hand{HandLeft, HandRight}

// String returns "left" or "right".
func (h Hand) String() string {
	if h == HandRight {
		return "right"
	}
	return "left"
}

// ParseHand converts "left"/"right" to a Hand.
func ParseHand(s string) (Hand, error) {
	switch strings.ToLower(s) {
	case "left":
		return HandLeft, nil
	case "right":
		return HandRight, nil
	default:
		return 0, fmt.Errorf("unknown hand %q", s)
	}
}

// HandSlot holds an optional weapon reference and the earliest simulation time it may fire.
type HandSlot struct {
	WeaponID    string
	AvailableAt time.Duration
}

// Empty reports whether no weapon is held in the slot.
func (s HandSlot) Empty() bool { return s.WeaponID == "" }

// Ready reports whether the slot may attack at now.
func (s HandSlot) Ready(now time.Duration) bool { return now >= s.AvailableAt }

// Character is a snapshot of one combatant's state. Values returned by the Registry are copies;
// mutating them does not affect the Registry.
type Character struct {
	ID          string
	Name        string
	Class       Class
	Faction     Faction
	HomeFaction Faction

	MaxHP         float64
	CurrentHP     float64
	Armor         float64
	MagicResist   float64
	MovementSpeed float64

	Alive bool
	// Frozen counts active freeze effects; the character cannot move or attack while > 0.
	Frozen int
	// Shield counts fungible charges, each absorbing one hostile effect.
	Shield int
	// Converted counts active conversion effects; Faction reverts to HomeFaction when it reaches 0.
	Converted int

	Hands [2]HandSlot
}

// Hand returns the slot for h.
func (c Character) Hand(h Hand) HandSlot { return c.Hands[h] }

// IsFrozen reports whether any freeze effect is active.
func (c Character) IsFrozen() bool { return c.Frozen > 0 }

// FullHP reports whether CurrentHP equals MaxHP.
func (c Character) FullHP() bool { return c.CurrentHP >= c.MaxHP }

// HPFraction returns CurrentHP/MaxHP in [0, 1].
func (c Character) HPFraction() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return c.CurrentHP / c.MaxHP
}

// Spec describes a combatant to create.
type Spec struct {
	// ID is optional; the Registry assigns a UUID when empty.
	ID            string
	Name          string
	Class         Class
	Faction       Faction
	MaxHP         float64
	Armor         float64
	MagicResist   float64
	MovementSpeed float64
	LeftWeapon    string
	RightWeapon   string
}

// Validate checks that the spec describes a spawnable combatant.
//
// Postcondition: returns nil iff every field is within range.
func (s Spec) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if s.MaxHP <= 0 {
		errs = append(errs, fmt.Errorf("max_hp must be > 0, got %v", s.MaxHP))
	}
	if s.Armor < 0 {
		errs = append(errs, fmt.Errorf("armor must be >= 0, got %v", s.Armor))
	}
	if s.MagicResist < 0 {
		errs = append(errs, fmt.Errorf("magic_resist must be >= 0, got %v", s.MagicResist))
	}
	if s.MovementSpeed < 0 {
		errs = append(errs, fmt.Errorf("movement_speed must be >= 0, got %v", s.MovementSpeed))
	}
	if len(errs) > 0 {
		return fmt.Errorf("character spec validation failed: %w", errors.Join(errs...))
	}
	return nil
}
