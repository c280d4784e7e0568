package character

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownCharacter is returned when an ID does not name a registered character.
var ErrUnknownCharacter = errors.New("unknown character")

// ErrDeadCharacter is returned by mutators invoked on a dead character. Callers treat it as a no-op.
var ErrDeadCharacter = errors.New("dead character")

// hpEpsilon absorbs float residue left by evenly split damage ticks.
const hpEpsilon = 1e-9

// DeathListener is notified exactly once when a character's hp reaches zero.
type DeathListener func(dead Character)

// DamageResult reports the effect of one ApplyDamage call.
type DamageResult struct {
	// HP is the character's hp after the damage.
	HP float64
	// Dealt is the hp actually removed (amount clamped by the hp that remained).
	Dealt float64
	// Died is true when this call killed the character.
	Died bool
}

// Registry owns the canonical state for every character. All methods are safe for concurrent use;
// death listeners run after the registry lock has been released.
type Registry struct {
	mu        sync.RWMutex
	chars     map[string]*Character
	order     []string
	listeners []DeathListener
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{chars: make(map[string]*Character)}
}

// OnDeath registers l to be called for every subsequent death.
//
// Precondition: l must not be nil.
func (r *Registry) OnDeath(l DeathListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Create registers a new living character from spec and returns its ID.
//
// Precondition: spec must pass Validate.
// Postcondition: Get(id) returns a living character with CurrentHP == MaxHP and HomeFaction == Faction.
func (r *Registry) Create(spec Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	id := spec.ID
	if id == "" {
		id = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.chars[id]; exists {
		return "", fmt.Errorf("character ID %q already registered", id)
	}
	r.chars[id] = &Character{
		ID:            id,
		Name:          spec.Name,
		Class:         spec.Class,
		Faction:       spec.Faction,
		HomeFaction:   spec.Faction,
		MaxHP:         spec.MaxHP,
		CurrentHP:     spec.MaxHP,
		Armor:         spec.Armor,
		MagicResist:   spec.MagicResist,
		MovementSpeed: spec.MovementSpeed,
		Alive:         true,
		Hands: [2]HandSlot{
			HandLeft:  {WeaponID: spec.LeftWeapon},
			HandRight: {WeaponID: spec.RightWeapon},
		},
	}
	r.order = append(r.order, id)
	return id, nil
}

// Get returns a snapshot of the character with the given id.
//
// Postcondition: returns ErrUnknownCharacter (wrapped) if id is not registered.
func (r *Registry) Get(id string) (Character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chars[id]
	if !ok {
		return Character{}, fmt.Errorf("character %q: %w", id, ErrUnknownCharacter)
	}
	return *c, nil
}

// All returns snapshots of every character, dead or alive, in creation order.
func (r *Registry) All() []Character {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Character, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.chars[id])
	}
	return out
}

// Living returns snapshots of every living character in creation order.
func (r *Registry) Living() []Character {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Character, 0, len(r.order))
	for _, id := range r.order {
		if c := r.chars[id]; c.Alive {
			out = append(out, *c)
		}
	}
	return out
}

// Len returns the number of registered characters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chars)
}

// mutate applies fn to the living character id under the write lock and returns the updated snapshot.
func (r *Registry) mutate(id string, fn func(c *Character)) (Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return Character{}, fmt.Errorf("character %q: %w", id, ErrUnknownCharacter)
	}
	if !c.Alive {
		return *c, fmt.Errorf("character %q: %w", id, ErrDeadCharacter)
	}
	fn(c)
	return *c, nil
}

// ApplyDamage removes amount hp from character id, clamped to [0, MaxHP]. Negative amounts are
// treated as zero. When hp reaches zero the character dies: Alive becomes false, counters clear,
// Faction returns to HomeFaction and every death listener is notified once.
//
// Postcondition: returns ErrDeadCharacter without any state change if the character is already dead.
func (r *Registry) ApplyDamage(id string, amount float64) (DamageResult, error) {
	if amount < 0 {
		amount = 0
	}
	var res DamageResult
	snap, err := r.mutate(id, func(c *Character) {
		before := c.CurrentHP
		c.CurrentHP = clamp(c.CurrentHP-amount, 0, c.MaxHP)
		if c.CurrentHP < hpEpsilon {
			c.CurrentHP = 0
		}
		res.Dealt = before - c.CurrentHP
		res.HP = c.CurrentHP
		if c.CurrentHP == 0 {
			c.Alive = false
			c.Frozen = 0
			c.Shield = 0
			c.Converted = 0
			c.Faction = c.HomeFaction
			res.Died = true
		}
	})
	if err != nil {
		return DamageResult{HP: snap.CurrentHP}, err
	}
	if res.Died {
		r.mu.RLock()
		listeners := append([]DeathListener(nil), r.listeners...)
		r.mu.RUnlock()
		for _, l := range listeners {
			l(snap)
		}
	}
	return res, nil
}

// Heal adds amount hp to character id, never exceeding MaxHP, and returns the hp actually restored.
func (r *Registry) Heal(id string, amount float64) (float64, error) {
	if amount < 0 {
		amount = 0
	}
	var healed float64
	_, err := r.mutate(id, func(c *Character) {
		before := c.CurrentHP
		c.CurrentHP = clamp(c.CurrentHP+amount, 0, c.MaxHP)
		healed = c.CurrentHP - before
	})
	return healed, err
}

// SetFaction overwrites the current faction of character id. HomeFaction is unchanged.
func (r *Registry) SetFaction(id string, f Faction) error {
	_, err := r.mutate(id, func(c *Character) { c.Faction = f })
	return err
}

// BeginConversion flips the faction of character id to the opposite value and records one active
// conversion. It returns the new faction.
func (r *Registry) BeginConversion(id string) (Faction, error) {
	snap, err := r.mutate(id, func(c *Character) {
		c.Faction = c.Faction.Enemy()
		c.Converted++
	})
	return snap.Faction, err
}

// EndConversion releases one active conversion. When none remain the faction returns to HomeFaction.
//
// Postcondition: Converted >= 0.
func (r *Registry) EndConversion(id string) (Faction, error) {
	snap, err := r.mutate(id, func(c *Character) {
		if c.Converted == 0 {
			return
		}
		c.Converted--
		if c.Converted == 0 {
			c.Faction = c.HomeFaction
		}
	})
	return snap.Faction, err
}

// IncrementFrozen adds one active freeze and returns the new count.
func (r *Registry) IncrementFrozen(id string) (int, error) {
	snap, err := r.mutate(id, func(c *Character) { c.Frozen++ })
	return snap.Frozen, err
}

// DecrementFrozen removes one active freeze and returns the new count.
//
// Postcondition: Frozen >= 0.
func (r *Registry) DecrementFrozen(id string) (int, error) {
	snap, err := r.mutate(id, func(c *Character) {
		if c.Frozen > 0 {
			c.Frozen--
		}
	})
	return snap.Frozen, err
}

// IncrementShield grants one shield charge and returns the new count.
func (r *Registry) IncrementShield(id string) (int, error) {
	snap, err := r.mutate(id, func(c *Character) { c.Shield++ })
	return snap.Shield, err
}

// ConsumeShield removes one shield charge if any is present.
//
// Postcondition: returns true iff a charge was removed; Shield >= 0.
func (r *Registry) ConsumeShield(id string) (bool, error) {
	consumed := false
	_, err := r.mutate(id, func(c *Character) {
		if c.Shield > 0 {
			c.Shield--
			consumed = true
		}
	})
	return consumed, err
}

// AdjustArmor adds delta to Armor, clamping at zero, and returns the delta actually applied.
func (r *Registry) AdjustArmor(id string, delta float64) (float64, error) {
	var applied float64
	_, err := r.mutate(id, func(c *Character) {
		next := max(c.Armor+delta, 0)
		applied = next - c.Armor
		c.Armor = next
	})
	return applied, err
}

// AdjustMagicResist adds delta to MagicResist, clamping at zero, and returns the delta actually applied.
func (r *Registry) AdjustMagicResist(id string, delta float64) (float64, error) {
	var applied float64
	_, err := r.mutate(id, func(c *Character) {
		next := max(c.MagicResist+delta, 0)
		applied = next - c.MagicResist
		c.MagicResist = next
	})
	return applied, err
}

// SetAvailableAt moves the hand's AvailableAt to t. Earlier values are ignored.
//
// Postcondition: AvailableAt == max(previous, t).
func (r *Registry) SetAvailableAt(id string, h Hand, t time.Duration) error {
	_, err := r.mutate(id, func(c *Character) {
		if t > c.Hands[h].AvailableAt {
			c.Hands[h].AvailableAt = t
		}
	})
	return err
}

// ExtendAvailableAt pushes both hands back by d, measured from the later of AvailableAt and now.
//
// Precondition: d >= 0.
func (r *Registry) ExtendAvailableAt(id string, d, now time.Duration) error {
	_, err := r.mutate(id, func(c *Character) {
		for _, h := range Hands {
			c.Hands[h].AvailableAt = max(c.Hands[h].AvailableAt, now) + d
		}
	})
	return err
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
