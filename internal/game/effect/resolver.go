// Package effect resolves a single weapon use into hit-point, status and faction changes.
package effect

import (
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/timer"
	"github.com/cory-johannsen/arena/internal/game/weapon"
)

// BurnTick is the spacing between burn damage ticks.
const BurnTick = 100 * time.Millisecond

// Effect sounds are heard up to this distance.
const soundRange = 40.0

// EffectiveDamage returns the damage left after the target's armor mitigates physical
// damage and its magic resist mitigates magic damage. Each mitigation factor is floored at 0.
func EffectiveDamage(physical, magic float64, target character.Character) float64 {
	magicFactor := math.Max(0, 1-target.MagicResist/100)
	physFactor := math.Max(0, 1-target.Armor/100)
	return magic*magicFactor + physical*physFactor
}

// BurnTicks returns the number of 100 ms ticks a burn of d seconds lasts.
func BurnTicks(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds*10 - 1e-9))
}

// Attack is one resolution request.
type Attack struct {
	AttackerID string
	Weapon     *weapon.Weapon
	// Allies and Enemies are ordered nearest first and contain only living characters.
	Allies  []character.Character
	Enemies []character.Character
}

// Result summarises one resolution.
type Result struct {
	// Acted is true if anything happened: damage, a buff, a consumed shield, a heal or a status.
	Acted bool
	// Dealt is the hp removed by direct and shock damage.
	Dealt    float64
	Healed   float64
	Shielded []string
	Killed   []string
	Affected []string
}

func (res *Result) touch(id string) {
	res.Acted = true
	for _, a := range res.Affected {
		if a == id {
			return
		}
	}
	res.Affected = append(res.Affected, id)
}

// Resolver applies weapon effects to the registry and schedules their expiry on the queue.
type Resolver struct {
	reg       *character.Registry
	queue     *timer.Queue
	presenter host.Presenter
	spatial   host.Spatial
	rarities  *weapon.RarityTable
	logger    *zap.Logger
	onFreeze  func(id string)

	mu      sync.Mutex
	records map[string][]*Record
	lastHit map[string]string
}

// NewResolver creates a Resolver.
//
// Precondition: every argument except rarities must be non-nil.
func NewResolver(
	reg *character.Registry,
	queue *timer.Queue,
	presenter host.Presenter,
	spatial host.Spatial,
	rarities *weapon.RarityTable,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		reg:       reg,
		queue:     queue,
		presenter: presenter,
		spatial:   spatial,
		rarities:  rarities,
		logger:    logger,
		records:   make(map[string][]*Record),
		lastHit:   make(map[string]string),
	}
}

// OnFreeze registers fn to run whenever frost lands on a character, after its body is pinned.
// It must be set before the first Resolve.
func (r *Resolver) OnFreeze(fn func(id string)) { r.onFreeze = fn }

// LastAttacker returns the id of the last character to damage id, if any. It is recorded
// before the damage lands so death listeners can attribute the kill.
func (r *Resolver) LastAttacker(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.lastHit[id]
	return a, ok
}

func (r *Resolver) noteHit(target, attacker string) {
	r.mu.Lock()
	r.lastHit[target] = attacker
	r.mu.Unlock()
}

func (r *Resolver) pos(id string) host.Vec3 {
	p, _ := r.spatial.Position(id)
	return p
}

func capTargets(cs []character.Character, n int) []character.Character {
	if n <= 0 {
		return nil
	}
	if len(cs) > n {
		return cs[:n]
	}
	return cs
}

// Resolve applies every effect of a.Weapon in fixed order.
//
// Precondition: a.Weapon must not be nil.
// Postcondition: dead characters are never mutated; every timed effect has a tracked expiry.
func (r *Resolver) Resolve(a Attack) Result {
	w := a.Weapon
	var res Result
	color := r.rarities.Color(w.Rarity)

	enemies := capTargets(a.Enemies, w.MaxTargetsOffense)
	allies := capTargets(a.Allies, w.MaxTargetsDefense)

	if w.IsOffensive() {
		enemies = r.consumeShields(enemies, &res)
	} else {
		enemies = nil
	}

	r.applyDeltas(a.AttackerID, w, allies, enemies, &res)

	if w.HasDamage() {
		enemies = r.applyDirectDamage(a.AttackerID, w, enemies, color, &res)
	}
	if w.FrostDuration > 0 {
		r.applyFrost(a.AttackerID, w, enemies, &res)
	}
	if w.ShockDamage > 0 {
		enemies = r.applyShock(a.AttackerID, w, enemies, &res)
	}
	if w.HealAmount > 0 {
		r.applyHeal(w, a.Allies, &res)
	}
	if w.BurnTotalDamage > 0 {
		r.applyBurn(a.AttackerID, w, enemies, &res)
	}
	if w.ShieldSeconds > 0 {
		r.grantShields(a.AttackerID, w, allies, &res)
	}
	if w.ConversionSeconds > 0 {
		r.applyConversion(a.AttackerID, w, enemies, &res)
	}
	if w.Lifesteal > 0 && res.Dealt > 0 {
		r.applyLifesteal(a.AttackerID, w, &res)
	}

	r.logger.Debug("attack resolved",
		zap.String("attacker_id", a.AttackerID),
		zap.String("weapon_id", w.ID),
		zap.Bool("acted", res.Acted),
		zap.Float64("dealt", res.Dealt),
		zap.Float64("healed", res.Healed),
		zap.Strings("killed", res.Killed),
	)
	return res
}

// consumeShields removes shielded enemies from the attack, spending one charge each.
func (r *Resolver) consumeShields(enemies []character.Character, res *Result) []character.Character {
	var open []character.Character
	for _, e := range enemies {
		consumed, err := r.reg.ConsumeShield(e.ID)
		if err != nil {
			continue
		}
		if !consumed {
			open = append(open, e)
			continue
		}
		r.cancelEarliestShield(e.ID)
		res.Shielded = append(res.Shielded, e.ID)
		res.touch(e.ID)
		r.presenter.SpawnEffect(host.EffectShieldPop, r.pos(e.ID), host.EffectOptions{})
	}
	return open
}

// applyDeltas applies armor and magic resist changes; the sign selects allies or enemies.
func (r *Resolver) applyDeltas(attackerID string, w *weapon.Weapon, allies, enemies []character.Character, res *Result) {
	type stat struct {
		kind   Kind
		delta  float64
		adjust func(string, float64) (float64, error)
	}
	for _, s := range []stat{
		{KindArmor, w.DeltaArmor, r.reg.AdjustArmor},
		{KindMagicResist, w.DeltaMagicResist, r.reg.AdjustMagicResist},
	} {
		if s.delta == 0 {
			continue
		}
		targets, fx := allies, host.EffectBuff
		if s.delta < 0 {
			targets, fx = enemies, host.EffectDebuff
		}
		for _, t := range targets {
			applied, err := s.adjust(t.ID, s.delta)
			if err != nil {
				continue
			}
			res.touch(t.ID)
			r.presenter.SpawnEffect(fx, r.pos(t.ID), host.EffectOptions{})
			adjust, id := s.adjust, t.ID
			h := r.queue.Schedule(w.Reload(), func() {
				// ErrDeadCharacter here means the target died; nothing to revert.
				_, _ = adjust(id, -applied)
			})
			r.track(&Record{Kind: s.kind, TargetID: id, SourceID: attackerID, ExpiresAt: h.At(), handle: h})
		}
	}
}

func (r *Resolver) damage(attackerID, targetID string, amount float64, res *Result) (died bool, ok bool) {
	r.noteHit(targetID, attackerID)
	dr, err := r.reg.ApplyDamage(targetID, amount)
	if err != nil {
		return false, false
	}
	res.Dealt += dr.Dealt
	res.touch(targetID)
	c, err := r.reg.Get(targetID)
	if err == nil {
		r.presenter.UpdateHPBar(targetID, c.HPFraction())
	}
	if dr.Died {
		res.Killed = append(res.Killed, targetID)
	}
	return dr.Died, true
}

func (r *Resolver) applyDirectDamage(attackerID string, w *weapon.Weapon, enemies []character.Character, color string, res *Result) []character.Character {
	var survivors []character.Character
	for _, e := range enemies {
		current, err := r.reg.Get(e.ID)
		if err != nil || !current.Alive {
			continue
		}
		died, ok := r.damage(attackerID, e.ID, EffectiveDamage(w.PhysicalDamage, w.MagicDamage, current), res)
		if !ok {
			continue
		}
		r.presenter.SpawnEffect(host.EffectHit, r.pos(e.ID), host.EffectOptions{Color: color})
		if died {
			continue
		}
		if !current.IsFrozen() {
			r.presenter.PlayAnimation(e.ID, host.AnimHit, false)
		}
		survivors = append(survivors, current)
	}
	return survivors
}

func (r *Resolver) applyFrost(attackerID string, w *weapon.Weapon, enemies []character.Character, res *Result) {
	d := weapon.Seconds(w.FrostDuration)
	now := r.queue.Now()
	for _, e := range enemies {
		if _, err := r.reg.IncrementFrozen(e.ID); err != nil {
			continue
		}
		if err := r.reg.ExtendAvailableAt(e.ID, d, now); err != nil {
			continue
		}
		if p, ok := r.spatial.Position(e.ID); ok {
			r.spatial.MoveTo(e.ID, p, 0)
		}
		if r.onFreeze != nil {
			r.onFreeze(e.ID)
		}
		res.touch(e.ID)
		r.presenter.PlayAnimation(e.ID, host.AnimStun, true)
		r.presenter.SpawnEffect(host.EffectFrost, r.pos(e.ID), host.EffectOptions{})
		r.presenter.PlaySound("frost", r.pos(e.ID), soundRange)
		id := e.ID
		h := r.queue.Schedule(d, func() {
			n, err := r.reg.DecrementFrozen(id)
			if err == nil && n == 0 {
				r.presenter.PlayAnimation(id, host.AnimIdle, true)
			}
		})
		r.track(&Record{Kind: KindFrost, TargetID: id, SourceID: attackerID, ExpiresAt: h.At(), handle: h})
	}
}

// applyShock chains physical damage through the enemies in order, drawing a beam per link.
func (r *Resolver) applyShock(attackerID string, w *weapon.Weapon, enemies []character.Character, res *Result) []character.Character {
	from := r.pos(attackerID)
	var survivors []character.Character
	for _, e := range enemies {
		current, err := r.reg.Get(e.ID)
		if err != nil || !current.Alive {
			continue
		}
		to := r.pos(e.ID)
		r.presenter.SpawnEffect(host.EffectShockBeam, from, host.EffectOptions{To: &to})
		from = to
		died, ok := r.damage(attackerID, e.ID, EffectiveDamage(w.ShockDamage, 0, current), res)
		if ok && !died {
			survivors = append(survivors, current)
		}
	}
	if len(enemies) > 0 {
		r.presenter.PlaySound("shock", r.pos(attackerID), soundRange)
	}
	return survivors
}

// applyHeal heals allies nearest first, skipping those at full health, until the cap is reached.
func (r *Resolver) applyHeal(w *weapon.Weapon, allies []character.Character, res *Result) {
	healed := 0
	for _, a := range allies {
		if healed >= w.MaxTargetsDefense {
			return
		}
		current, err := r.reg.Get(a.ID)
		if err != nil || !current.Alive || current.FullHP() {
			continue
		}
		amount, err := r.reg.Heal(a.ID, w.HealAmount)
		if err != nil {
			continue
		}
		healed++
		res.Healed += amount
		res.touch(a.ID)
		r.presenter.UpdateHPBar(a.ID, (current.CurrentHP+amount)/current.MaxHP)
		r.presenter.SpawnEffect(host.EffectHeal, r.pos(a.ID), host.EffectOptions{})
		r.presenter.PlaySound("heal", r.pos(a.ID), soundRange)
	}
}

// applyBurn schedules evenly split damage ticks computed against the target's current armor.
func (r *Resolver) applyBurn(attackerID string, w *weapon.Weapon, enemies []character.Character, res *Result) {
	ticks := BurnTicks(w.BurnDuration)
	if ticks == 0 {
		return
	}
	for _, e := range enemies {
		current, err := r.reg.Get(e.ID)
		if err != nil || !current.Alive {
			continue
		}
		per := EffectiveDamage(w.BurnTotalDamage, 0, current) / float64(ticks)
		id := e.ID
		res.touch(id)
		r.presenter.SpawnEffect(host.EffectBurn, r.pos(id), host.EffectOptions{})
		for i := 1; i <= ticks; i++ {
			h := r.queue.Schedule(time.Duration(i)*BurnTick, func() {
				r.noteHit(id, attackerID)
				dr, err := r.reg.ApplyDamage(id, per)
				if err != nil {
					return
				}
				if c, err := r.reg.Get(id); err == nil {
					r.presenter.UpdateHPBar(id, c.HPFraction())
				}
				if dr.Died {
					r.Clear(id)
				}
			})
			r.track(&Record{Kind: KindBurn, TargetID: id, SourceID: attackerID, ExpiresAt: h.At(), handle: h})
		}
	}
}

func (r *Resolver) grantShields(attackerID string, w *weapon.Weapon, allies []character.Character, res *Result) {
	d := weapon.Seconds(w.ShieldSeconds)
	for _, a := range allies {
		if _, err := r.reg.IncrementShield(a.ID); err != nil {
			continue
		}
		res.touch(a.ID)
		r.presenter.SpawnEffect(host.EffectShield, r.pos(a.ID), host.EffectOptions{})
		id := a.ID
		h := r.queue.Schedule(d, func() {
			consumed, err := r.reg.ConsumeShield(id)
			if err == nil && consumed {
				r.presenter.SpawnEffect(host.EffectShieldPop, r.pos(id), host.EffectOptions{})
			}
		})
		r.track(&Record{Kind: KindShield, TargetID: id, SourceID: attackerID, ExpiresAt: h.At(), handle: h})
	}
}

func (r *Resolver) applyConversion(attackerID string, w *weapon.Weapon, enemies []character.Character, res *Result) {
	d := weapon.Seconds(w.ConversionSeconds)
	for _, e := range enemies {
		if _, err := r.reg.BeginConversion(e.ID); err != nil {
			continue
		}
		res.touch(e.ID)
		r.presenter.SpawnEffect(host.EffectConversion, r.pos(e.ID), host.EffectOptions{})
		id := e.ID
		h := r.queue.Schedule(d, func() {
			_, err := r.reg.EndConversion(id)
			if err != nil && !errors.Is(err, character.ErrDeadCharacter) {
				r.logger.Warn("ending conversion", zap.String("character_id", id), zap.Error(err))
			}
		})
		r.track(&Record{Kind: KindConversion, TargetID: id, SourceID: attackerID, ExpiresAt: h.At(), handle: h})
	}
}

func (r *Resolver) applyLifesteal(attackerID string, w *weapon.Weapon, res *Result) {
	amount, err := r.reg.Heal(attackerID, res.Dealt*w.Lifesteal/100)
	if err != nil {
		return
	}
	res.Healed += amount
	if c, err := r.reg.Get(attackerID); err == nil {
		r.presenter.UpdateHPBar(attackerID, c.HPFraction())
	}
}
