// Package weapon provides the immutable weapon and rarity reference tables shared by every combatant.
package weapon

import (
	"errors"
	"fmt"
	"time"
)

// Type is the weapon family; it selects attack animation and sound.
type Type string

const (
	TypeMelee Type = "melee"
	TypeGun   Type = "gun"
	TypeSpell Type = "spell"
)

// Valid reports whether t is one of the known weapon types.
func (t Type) Valid() bool {
	switch t {
	case TypeMelee, TypeGun, TypeSpell:
		return true
	}
	return false
}

// Weapon is static reference data. Durations are expressed in seconds, percentages in 0–100.
// A weapon may combine any number of effect parameters.
type Weapon struct {
	ID     string `yaml:"id" json:"id" jsonschema:"title=Weapon ID,pattern=^[a-z0-9_-]+$,minLength=1"`
	Name   string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Type   Type   `yaml:"type" json:"type" jsonschema:"enum=melee,enum=gun,enum=spell"`
	Rarity string `yaml:"rarity,omitempty" json:"rarity,omitempty" jsonschema:"description=Key into the rarity table"`

	PhysicalDamage float64 `yaml:"physical_damage,omitempty" json:"physical_damage,omitempty" jsonschema:"minimum=0"`
	MagicDamage    float64 `yaml:"magic_damage,omitempty" json:"magic_damage,omitempty" jsonschema:"minimum=0"`
	Range          float64 `yaml:"range" json:"range" jsonschema:"minimum=0,description=0 disables move-then-attack"`
	ReloadTime     float64 `yaml:"reload_time" json:"reload_time" jsonschema:"minimum=0,description=Cooldown in seconds"`

	Projectile      bool    `yaml:"projectile,omitempty" json:"projectile,omitempty"`
	ProjectileSpeed float64 `yaml:"projectile_speed,omitempty" json:"projectile_speed,omitempty" jsonschema:"minimum=0"`
	Weight          float64 `yaml:"weight,omitempty" json:"weight,omitempty" jsonschema:"minimum=0"`

	RadiusArea        float64 `yaml:"radius_area,omitempty" json:"radius_area,omitempty" jsonschema:"minimum=0,description=0 = single target"`
	MaxTargetsOffense int     `yaml:"max_targets_offense" json:"max_targets_offense" jsonschema:"minimum=0"`
	MaxTargetsDefense int     `yaml:"max_targets_defense" json:"max_targets_defense" jsonschema:"minimum=0"`

	FrostDuration     float64 `yaml:"frost_duration,omitempty" json:"frost_duration,omitempty" jsonschema:"minimum=0"`
	BurnDuration      float64 `yaml:"burn_duration,omitempty" json:"burn_duration,omitempty" jsonschema:"minimum=0"`
	BurnTotalDamage   float64 `yaml:"burn_total_damage,omitempty" json:"burn_total_damage,omitempty" jsonschema:"minimum=0"`
	ShockDamage       float64 `yaml:"shock_damage,omitempty" json:"shock_damage,omitempty" jsonschema:"minimum=0"`
	Lifesteal         float64 `yaml:"lifesteal,omitempty" json:"lifesteal,omitempty" jsonschema:"minimum=0,maximum=100"`
	HealAmount        float64 `yaml:"heal_amount,omitempty" json:"heal_amount,omitempty" jsonschema:"minimum=0"`
	ConversionSeconds float64 `yaml:"conversion_seconds,omitempty" json:"conversion_seconds,omitempty" jsonschema:"minimum=0"`
	DeltaArmor        float64 `yaml:"delta_armor,omitempty" json:"delta_armor,omitempty" jsonschema:"description=Positive buffs allies; negative debuffs enemies"`
	DeltaMagicResist  float64 `yaml:"delta_magic_resist,omitempty" json:"delta_magic_resist,omitempty"`
	ShieldSeconds     float64 `yaml:"shield_seconds,omitempty" json:"shield_seconds,omitempty" jsonschema:"minimum=0"`
}

// Seconds converts a seconds value from the table into a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Reload returns the cooldown as a Duration.
func (w *Weapon) Reload() time.Duration { return Seconds(w.ReloadTime) }

// HasDamage reports whether the weapon deals direct physical or magic damage.
func (w *Weapon) HasDamage() bool { return w.PhysicalDamage > 0 || w.MagicDamage > 0 }

// IsArea reports whether the weapon affects every enemy within RadiusArea of its primary target.
func (w *Weapon) IsArea() bool { return w.RadiusArea > 0 }

// IsOffensive reports whether any parameter affects enemies.
func (w *Weapon) IsOffensive() bool {
	return w.HasDamage() ||
		w.FrostDuration > 0 ||
		w.BurnTotalDamage > 0 ||
		w.ShockDamage > 0 ||
		w.ConversionSeconds > 0 ||
		w.DeltaArmor < 0 ||
		w.DeltaMagicResist < 0
}

// IsDefensive reports whether any parameter affects allies.
func (w *Weapon) IsDefensive() bool {
	return w.HealAmount > 0 ||
		w.ShieldSeconds > 0 ||
		w.DeltaArmor > 0 ||
		w.DeltaMagicResist > 0
}

// Validate checks that the Weapon satisfies its invariants.
//
// Precondition: w is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (w *Weapon) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if w.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !w.Type.Valid() {
		errs = append(errs, fmt.Errorf("type must be one of [melee, gun, spell], got %q", w.Type))
	}
	nonNegative := map[string]float64{
		"physical_damage":    w.PhysicalDamage,
		"magic_damage":       w.MagicDamage,
		"range":              w.Range,
		"reload_time":        w.ReloadTime,
		"projectile_speed":   w.ProjectileSpeed,
		"weight":             w.Weight,
		"radius_area":        w.RadiusArea,
		"frost_duration":     w.FrostDuration,
		"burn_duration":      w.BurnDuration,
		"burn_total_damage":  w.BurnTotalDamage,
		"shock_damage":       w.ShockDamage,
		"lifesteal":          w.Lifesteal,
		"heal_amount":        w.HealAmount,
		"conversion_seconds": w.ConversionSeconds,
		"shield_seconds":     w.ShieldSeconds,
	}
	for _, name := range sortedKeys(nonNegative) {
		if nonNegative[name] < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, nonNegative[name]))
		}
	}
	if w.MaxTargetsOffense < 0 || w.MaxTargetsDefense < 0 {
		errs = append(errs, errors.New("max_targets_offense and max_targets_defense must be >= 0"))
	}
	if w.IsOffensive() && w.MaxTargetsOffense == 0 {
		errs = append(errs, errors.New("offensive weapon needs max_targets_offense > 0"))
	}
	if w.IsDefensive() && w.MaxTargetsDefense == 0 {
		errs = append(errs, errors.New("defensive weapon needs max_targets_defense > 0"))
	}
	if w.BurnTotalDamage > 0 && w.BurnDuration <= 0 {
		errs = append(errs, errors.New("burn_total_damage requires burn_duration > 0"))
	}
	if w.Projectile && w.ProjectileSpeed <= 0 {
		errs = append(errs, errors.New("projectile weapon needs projectile_speed > 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon %q validation failed: %w", w.ID, errors.Join(errs...))
	}
	return nil
}
