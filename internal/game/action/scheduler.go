// Package action turns a request to use a hand into a resolved attack: it enforces cooldowns,
// picks targets, moves the attacker into range when asked, and starts the cooldown on success.
package action

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/effect"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/targeting"
	"github.com/cory-johannsen/arena/internal/game/timer"
	"github.com/cory-johannsen/arena/internal/game/weapon"
)

var (
	// ErrWeaponOutOfRange is returned when the chosen target is farther than the weapon's range.
	ErrWeaponOutOfRange = errors.New("weapon out of range")
	// ErrNoValidTarget is returned when no living, visible candidate exists.
	ErrNoValidTarget = errors.New("no valid target")
	ErrOnCooldown    = errors.New("hand on cooldown")
	ErrFrozen        = errors.New("character is frozen")
	ErrEmptyHand     = errors.New("hand is empty")
	ErrZeroRange     = errors.New("weapon range is zero")
	ErrImmobile      = errors.New("character cannot move")
	ErrUnknownWeapon = errors.New("unknown weapon")
)

// HandState is the cooldown state of one hand slot.
type HandState int

const (
	Ready HandState = iota
	OnCooldown
)

func (s HandState) String() string {
	if s == Ready {
		return "ready"
	}
	return "on_cooldown"
}

// StateOf derives the state of a slot at now. Freeze extends AvailableAt directly, so a
// frozen character's hands read as OnCooldown without a separate transition.
func StateOf(slot character.HandSlot, now time.Duration) HandState {
	if slot.Ready(now) {
		return Ready
	}
	return OnCooldown
}

// Options tunes movement.
type Options struct {
	// StopMargin is the fraction of weapon range at which a moving attacker stops short of its target.
	StopMargin float64
}

// Scheduler validates and executes hand actions.
type Scheduler struct {
	reg       *character.Registry
	weapons   *weapon.Table
	targets   *targeting.Service
	resolver  *effect.Resolver
	queue     *timer.Queue
	presenter host.Presenter
	spatial   host.Spatial
	opts      Options
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]*timer.Handle
}

// NewScheduler creates a Scheduler.
//
// Precondition: all arguments must be non-nil; opts.StopMargin in (0, 1].
func NewScheduler(
	reg *character.Registry,
	weapons *weapon.Table,
	targets *targeting.Service,
	resolver *effect.Resolver,
	queue *timer.Queue,
	presenter host.Presenter,
	spatial host.Spatial,
	opts Options,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		reg:       reg,
		weapons:   weapons,
		targets:   targets,
		resolver:  resolver,
		queue:     queue,
		presenter: presenter,
		spatial:   spatial,
		opts:      opts,
		logger:    logger,
		pending:   make(map[string]*timer.Handle),
	}
}

// State returns the state of id's hand at the current simulation time.
func (s *Scheduler) State(id string, h character.Hand) (HandState, error) {
	c, err := s.reg.Get(id)
	if err != nil {
		return Ready, err
	}
	return StateOf(c.Hand(h), s.queue.Now()), nil
}

// plan is a validated attack ready to resolve.
type plan struct {
	attacker character.Character
	hand     character.Hand
	weapon   *weapon.Weapon
	primary  character.Character
	distance float64
	allies   []character.Character
	enemies  []character.Character
}

// prepare runs every check shared by Attack and MoveThenAttack except range.
func (s *Scheduler) prepare(id string, h character.Hand) (plan, error) {
	c, err := s.reg.Get(id)
	if err != nil {
		return plan{}, err
	}
	if !c.Alive {
		return plan{}, fmt.Errorf("character %q: %w", id, character.ErrDeadCharacter)
	}
	if c.IsFrozen() {
		return plan{}, fmt.Errorf("character %q: %w", id, ErrFrozen)
	}
	slot := c.Hand(h)
	if slot.Empty() {
		return plan{}, fmt.Errorf("character %q %s hand: %w", id, h, ErrEmptyHand)
	}
	if !slot.Ready(s.queue.Now()) {
		return plan{}, fmt.Errorf("character %q %s hand until %v: %w", id, h, slot.AvailableAt, ErrOnCooldown)
	}
	w, ok := s.weapons.Get(slot.WeaponID)
	if !ok {
		return plan{}, fmt.Errorf("weapon %q: %w", slot.WeaponID, ErrUnknownWeapon)
	}

	p := plan{attacker: c, hand: h, weapon: w}
	if p.allies, err = s.targets.AlliesOf(id); err != nil {
		return plan{}, err
	}
	enemies, err := s.targets.EnemiesOf(id)
	if err != nil {
		return plan{}, err
	}

	if w.IsOffensive() {
		target, ok := s.targets.NearestVisible(id, enemies)
		if !ok {
			return plan{}, fmt.Errorf("character %q: %w", id, ErrNoValidTarget)
		}
		p.primary = target
		p.enemies = s.enemySet(id, w, target, enemies)
	} else {
		if len(p.allies) == 0 {
			return plan{}, fmt.Errorf("character %q: %w", id, ErrNoValidTarget)
		}
		p.primary = p.allies[0]
	}
	if p.distance, err = s.targets.Distance(id, p.primary.ID); err != nil {
		return plan{}, err
	}
	return p, nil
}

// enemySet puts the primary target first. Area weapons keep only enemies near the primary;
// other weapons keep only enemies the attacker can see within weapon range.
func (s *Scheduler) enemySet(attackerID string, w *weapon.Weapon, primary character.Character, enemies []character.Character) []character.Character {
	rest := make([]character.Character, 0, len(enemies))
	for _, e := range enemies {
		if e.ID != primary.ID {
			rest = append(rest, e)
		}
	}
	if w.IsArea() {
		center, _ := s.spatial.Position(primary.ID)
		rest = s.targets.Within(center, w.RadiusArea, rest)
		return append([]character.Character{primary}, rest...)
	}
	set := []character.Character{primary}
	for _, e := range rest {
		if !s.targets.InRange(attackerID, e.ID, w.Range) {
			continue
		}
		if _, ok := s.targets.NearestVisible(attackerID, []character.Character{e}); ok {
			set = append(set, e)
		}
	}
	return set
}

// Attack uses hand h of character id against the best target in range.
//
// Postcondition: on a nil error with Result.Acted, the hand's AvailableAt is now+ReloadTime.
// Out-of-range and no-target attempts change nothing.
func (s *Scheduler) Attack(id string, h character.Hand) (effect.Result, error) {
	p, err := s.prepare(id, h)
	if err != nil {
		return effect.Result{}, err
	}
	if p.distance > p.weapon.Range {
		return effect.Result{}, fmt.Errorf("character %q target %q at %.2f > %.2f: %w",
			id, p.primary.ID, p.distance, p.weapon.Range, ErrWeaponOutOfRange)
	}
	return s.execute(p)
}

func (s *Scheduler) execute(p plan) (effect.Result, error) {
	w := p.weapon
	from := s.position(p.attacker.ID)
	to := s.position(p.primary.ID)
	if w.Projectile && w.IsOffensive() {
		travel := weapon.Seconds(p.distance / w.ProjectileSpeed)
		s.presenter.SpawnEffect(host.EffectProjectile, from, host.EffectOptions{To: &to, Travel: travel})
	}

	res := s.resolver.Resolve(effect.Attack{
		AttackerID: p.attacker.ID,
		Weapon:     w,
		Allies:     p.allies,
		Enemies:    p.enemies,
	})
	if !res.Acted {
		return res, nil
	}

	now := s.queue.Now()
	if err := s.reg.SetAvailableAt(p.attacker.ID, p.hand, now+w.Reload()); err != nil {
		s.logger.Debug("starting cooldown", zap.String("character_id", p.attacker.ID), zap.Error(err))
	}
	if a, err := s.reg.Get(p.attacker.ID); err == nil && a.Alive {
		s.presenter.PlayAnimation(p.attacker.ID, AttackAnimation(p.attacker.Class, w), false)
	}
	s.presenter.PlaySound(string(w.Type), from, 40)
	if w.IsArea() {
		s.presenter.SpawnEffect(host.EffectExplosion, to, host.EffectOptions{Radius: w.RadiusArea})
	}
	return res, nil
}

// AttackAnimation chooses the clip for a weapon use.
func AttackAnimation(class character.Class, w *weapon.Weapon) host.AnimationKind {
	if !w.IsOffensive() {
		return host.AnimSkillBuff
	}
	switch class {
	case character.ClassAssassin:
		return host.AnimAttackAssassin
	case character.ClassGunner:
		return host.AnimAttackGunner
	case character.ClassTech:
		return host.AnimAttackTech
	case character.ClassWizard:
		return host.AnimAttackWizard
	default:
		return host.AnimAttackKnight
	}
}

func (s *Scheduler) position(id string) host.Vec3 {
	p, _ := s.spatial.Position(id)
	return p
}

// MoveThenAttack attacks immediately when the target is in range, otherwise walks toward it
// and attacks on arrival. It reports whether a move was started.
func (s *Scheduler) MoveThenAttack(id string, h character.Hand) (bool, error) {
	p, err := s.prepare(id, h)
	if err != nil {
		return false, err
	}
	if p.weapon.Range == 0 {
		return false, fmt.Errorf("weapon %q: %w", p.weapon.ID, ErrZeroRange)
	}
	if p.distance <= p.weapon.Range {
		_, err := s.execute(p)
		return false, err
	}
	if p.attacker.MovementSpeed <= 0 {
		return false, fmt.Errorf("character %q: %w", id, ErrImmobile)
	}

	from := s.position(id)
	to := s.position(p.primary.ID)
	dest := to.Add(from.Sub(to).Normalize().Scale(s.opts.StopMargin * p.weapon.Range))
	travel := weapon.Seconds(from.Dist(dest) / p.attacker.MovementSpeed)

	s.Cancel(id)
	s.spatial.MoveTo(id, dest, travel)
	s.presenter.PlayAnimation(id, host.AnimWalk, true)

	var handle *timer.Handle
	handle = s.queue.Schedule(travel, func() {
		s.mu.Lock()
		if s.pending[id] == handle {
			delete(s.pending, id)
		}
		s.mu.Unlock()
		s.arrive(id, h)
	})
	s.mu.Lock()
	s.pending[id] = handle
	s.mu.Unlock()

	s.logger.Debug("moving to attack",
		zap.String("character_id", id),
		zap.String("target_id", p.primary.ID),
		zap.Duration("travel", travel),
	)
	return true, nil
}

func (s *Scheduler) arrive(id string, h character.Hand) {
	c, err := s.reg.Get(id)
	if err != nil || !c.Alive || c.IsFrozen() {
		return
	}
	res, err := s.Attack(id, h)
	if err != nil || !res.Acted {
		s.presenter.PlayAnimation(id, host.AnimIdle, true)
		if err != nil {
			s.logger.Debug("attack on arrival failed", zap.String("character_id", id), zap.Error(err))
		}
	}
}

// Pending reports whether id has a scheduled move-then-attack.
func (s *Scheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[id].Pending()
}

// Cancel drops id's pending move-then-attack and reports whether one was pending.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	h := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	return h.Cancel()
}
