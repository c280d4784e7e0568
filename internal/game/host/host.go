// Package host defines the boundary between the combat core and the embedding renderer.
//
// The core pushes fire-and-forget presentation commands through a Presenter and pulls
// world queries through a Spatial. Neither interface returns errors: a missing or stale
// character id on the host side is the host's concern.
package host

import (
	"math"
	"time"
)

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v-o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v*s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Len returns the Euclidean length.
func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// Normalize returns the unit vector of v, or the zero vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Lerp returns the point a fraction t of the way from v to o.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 { return v.Add(o.Sub(v).Scale(t)) }

// AnimationKind names a character animation clip.
type AnimationKind string

const (
	AnimIdle           AnimationKind = "idle"
	AnimWalk           AnimationKind = "walk"
	AnimTalk           AnimationKind = "talk"
	AnimHit            AnimationKind = "hit"
	AnimStun           AnimationKind = "stun"
	AnimDeath          AnimationKind = "death"
	AnimWin            AnimationKind = "win"
	AnimLose           AnimationKind = "lose"
	AnimSkillBuff      AnimationKind = "skill_buff"
	AnimSkillMelee     AnimationKind = "skill_melee"
	AnimSkillRanged    AnimationKind = "skill_ranged"
	AnimAttackAssassin AnimationKind = "attack_assassin"
	AnimAttackGunner   AnimationKind = "attack_gunner"
	AnimAttackKnight   AnimationKind = "attack_knight"
	AnimAttackTech     AnimationKind = "attack_tech"
	AnimAttackWizard   AnimationKind = "attack_wizard"
)

// EffectKind names a one-shot visual effect.
type EffectKind string

const (
	EffectHit        EffectKind = "hit"
	EffectFrost      EffectKind = "frost"
	EffectBurn       EffectKind = "burn"
	EffectShockBeam  EffectKind = "shock_beam"
	EffectHeal       EffectKind = "heal"
	EffectShield     EffectKind = "shield"
	EffectShieldPop  EffectKind = "shield_pop"
	EffectConversion EffectKind = "conversion"
	EffectBuff       EffectKind = "buff"
	EffectDebuff     EffectKind = "debuff"
	EffectExplosion  EffectKind = "explosion"
	EffectProjectile EffectKind = "projectile"
)

// EffectOptions carries optional effect parameters. To is set for beams and projectiles.
type EffectOptions struct {
	Color  string
	Radius float64
	To     *Vec3
	Travel time.Duration
}

// Presenter receives presentation commands from the core.
type Presenter interface {
	PlayAnimation(id string, kind AnimationKind, loop bool)
	SpawnEffect(kind EffectKind, pos Vec3, opts EffectOptions)
	PlaySound(name string, pos Vec3, maxDistance float64)
	UpdateHPBar(id string, fraction float64)
}

// Spatial answers world queries for the core.
type Spatial interface {
	// Position returns the character's current position and whether it is known.
	Position(id string) (Vec3, bool)
	// RaycastVisible returns the id of the first character hit by a ray from origin along dir.
	RaycastVisible(origin, dir Vec3) (string, bool)
	// MoveTo begins moving the character to dest over travel.
	MoveTo(id string, dest Vec3, travel time.Duration)
}

// Nop is a Presenter that discards every command.
type Nop struct{}

func (Nop) PlayAnimation(string, AnimationKind, bool)   {}
func (Nop) SpawnEffect(EffectKind, Vec3, EffectOptions) {}
func (Nop) PlaySound(string, Vec3, float64)             {}
func (Nop) UpdateHPBar(string, float64)                 {}

// MoveObserver is implemented by presenters that also render movement. The world forwards
// every move it asks of the Spatial to presenters implementing it.
type MoveObserver interface {
	ObserveMove(id string, dest Vec3, travel time.Duration)
}
