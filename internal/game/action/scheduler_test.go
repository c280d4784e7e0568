package action_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/action"
	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/effect"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/targeting"
	"github.com/cory-johannsen/arena/internal/game/timer"
	"github.com/cory-johannsen/arena/internal/game/weapon"
)

var testWeapons = []*weapon.Weapon{
	{ID: "rifle", Name: "Rifle", Type: weapon.TypeGun, PhysicalDamage: 30, Range: 10, ReloadTime: 1, MaxTargetsOffense: 1,
		Projectile: true, ProjectileSpeed: 50},
	{ID: "dagger", Name: "Dagger", Type: weapon.TypeMelee, PhysicalDamage: 10, Range: 2, ReloadTime: 0.5, MaxTargetsOffense: 1},
	{ID: "fist", Name: "Fist", Type: weapon.TypeMelee, PhysicalDamage: 1, Range: 0, ReloadTime: 1, MaxTargetsOffense: 1},
	{ID: "mend", Name: "Mend", Type: weapon.TypeSpell, HealAmount: 20, Range: 8, ReloadTime: 2, MaxTargetsDefense: 1},
	{ID: "bomb", Name: "Bomb", Type: weapon.TypeGun, PhysicalDamage: 10, Range: 20, ReloadTime: 3, RadiusArea: 2, MaxTargetsOffense: 5},
	{ID: "volley", Name: "Volley", Type: weapon.TypeGun, PhysicalDamage: 10, Range: 10, ReloadTime: 1, MaxTargetsOffense: 4},
	{ID: "leech", Name: "Leech", Type: weapon.TypeMelee, PhysicalDamage: 20, Lifesteal: 50, Range: 3, ReloadTime: 1, MaxTargetsOffense: 1},
}

type fixture struct {
	reg   *character.Registry
	queue *timer.Queue
	arena *arena.Arena
	rec   *host.Recorder
	sched *action.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := character.NewRegistry()
	q := timer.NewQueue()
	a := arena.New(q.Now)
	rec := host.NewRecorder()
	table := weapon.NewTable()
	for _, w := range testWeapons {
		require.NoError(t, table.Register(w))
	}
	logger := zap.NewNop()
	targets := targeting.NewService(reg, a, targeting.Options{EyeHeight: 1.5, OriginOffset: 0.6})
	resolver := effect.NewResolver(reg, q, rec, a, nil, logger)
	sched := action.NewScheduler(reg, table, targets, resolver, q, rec, a, action.Options{StopMargin: 0.9}, logger)
	return &fixture{reg: reg, queue: q, arena: a, rec: rec, sched: sched}
}

func (f *fixture) spawn(t *testing.T, id string, fac character.Faction, x float64, right string) {
	t.Helper()
	_, err := f.reg.Create(character.Spec{
		ID: id, Name: id, Class: character.ClassGunner, Faction: fac,
		MaxHP: 100, MovementSpeed: 2, RightWeapon: right,
	})
	require.NoError(t, err)
	f.arena.Place(id, host.Vec3{X: x}, 0.5)
}

func (f *fixture) get(t *testing.T, id string) character.Character {
	t.Helper()
	c, err := f.reg.Get(id)
	require.NoError(t, err)
	return c
}

func TestAttack_SucceedsStartsCooldownAndRejectsEarlyRetry(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "rifle")
	f.spawn(t, "b", character.FactionMoon, 5, "")

	res, err := f.sched.Attack("a", character.HandRight)
	require.NoError(t, err)
	assert.True(t, res.Acted)
	assert.Equal(t, 70.0, f.get(t, "b").CurrentHP)
	assert.Equal(t, 1000*time.Millisecond, f.get(t, "a").Hand(character.HandRight).AvailableAt)
	assert.Contains(t, f.rec.Animations("a"), host.AnimAttackGunner)
	require.Len(t, f.rec.Effects(host.EffectProjectile), 1)
	assert.Equal(t, int64(100), f.rec.Effects(host.EffectProjectile)[0].TravelMS)

	state, err := f.sched.State("a", character.HandRight)
	require.NoError(t, err)
	assert.Equal(t, action.OnCooldown, state)

	f.queue.Advance(999 * time.Millisecond)
	_, err = f.sched.Attack("a", character.HandRight)
	assert.ErrorIs(t, err, action.ErrOnCooldown)
	assert.Equal(t, 70.0, f.get(t, "b").CurrentHP)

	f.queue.Advance(time.Millisecond)
	state, _ = f.sched.State("a", character.HandRight)
	assert.Equal(t, action.Ready, state)
	_, err = f.sched.Attack("a", character.HandRight)
	require.NoError(t, err)
	assert.Equal(t, 40.0, f.get(t, "b").CurrentHP)
}

func TestAttack_OutOfRangeConsumesNothing(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "dagger")
	f.spawn(t, "b", character.FactionMoon, 5, "")

	_, err := f.sched.Attack("a", character.HandRight)
	assert.ErrorIs(t, err, action.ErrWeaponOutOfRange)
	assert.Equal(t, time.Duration(0), f.get(t, "a").Hand(character.HandRight).AvailableAt)
	assert.Empty(t, f.rec.Animations("a"))
	assert.Equal(t, 100.0, f.get(t, "b").CurrentHP)
}

func TestAttack_RejectionOrder(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "rifle")
	f.spawn(t, "lonely", character.FactionMoon, 3, "")

	_, err := f.sched.Attack("a", character.HandLeft)
	assert.ErrorIs(t, err, action.ErrEmptyHand)

	_, err = f.reg.IncrementFrozen("a")
	require.NoError(t, err)
	_, err = f.sched.Attack("a", character.HandLeft)
	assert.ErrorIs(t, err, action.ErrFrozen, "frozen is checked before the hand")

	_, err = f.reg.ApplyDamage("a", 500)
	require.NoError(t, err)
	_, err = f.sched.Attack("a", character.HandRight)
	assert.ErrorIs(t, err, character.ErrDeadCharacter)

	_, err = f.sched.Attack("ghost", character.HandRight)
	assert.ErrorIs(t, err, character.ErrUnknownCharacter)
}

func TestAttack_NoValidTarget(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "rifle")
	_, err := f.sched.Attack("a", character.HandRight)
	assert.ErrorIs(t, err, action.ErrNoValidTarget)

	f.spawn(t, "b", character.FactionMoon, 5, "")
	_, err = f.reg.ApplyDamage("b", 100)
	require.NoError(t, err)
	_, err = f.sched.Attack("a", character.HandRight)
	assert.ErrorIs(t, err, action.ErrNoValidTarget)
}

func TestAttack_Lifesteal(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "leech")
	f.spawn(t, "b", character.FactionMoon, 2, "")
	_, err := f.reg.ApplyDamage("a", 40)
	require.NoError(t, err)

	_, err = f.sched.Attack("a", character.HandRight)
	require.NoError(t, err)
	assert.Equal(t, 80.0, f.get(t, "b").CurrentHP)
	assert.Equal(t, 70.0, f.get(t, "a").CurrentHP)
}

func TestAttack_DefensiveTargetsAllies(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "healer", character.FactionSun, 0, "mend")
	f.spawn(t, "friend", character.FactionSun, 3, "")
	f.spawn(t, "foe", character.FactionMoon, 2, "")

	res, err := f.sched.Attack("healer", character.HandRight)
	require.NoError(t, err)
	assert.False(t, res.Acted, "nobody needs healing")
	assert.Equal(t, time.Duration(0), f.get(t, "healer").Hand(character.HandRight).AvailableAt)

	_, err = f.reg.ApplyDamage("friend", 50)
	require.NoError(t, err)
	res, err = f.sched.Attack("healer", character.HandRight)
	require.NoError(t, err)
	assert.True(t, res.Acted)
	assert.Equal(t, 70.0, f.get(t, "friend").CurrentHP)
	assert.Equal(t, 2*time.Second, f.get(t, "healer").Hand(character.HandRight).AvailableAt)
	assert.Contains(t, f.rec.Animations("healer"), host.AnimSkillBuff)
}

func TestAttack_AreaHitsEnemiesNearPrimary(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "bomb")
	f.spawn(t, "p", character.FactionMoon, 10, "")
	f.spawn(t, "near", character.FactionMoon, 11.5, "")
	f.spawn(t, "far", character.FactionMoon, 15, "")

	res, err := f.sched.Attack("a", character.HandRight)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p", "near"}, res.Affected)
	assert.Equal(t, 100.0, f.get(t, "far").CurrentHP)
	explosions := f.rec.Effects(host.EffectExplosion)
	require.Len(t, explosions, 1)
	assert.Equal(t, 2.0, explosions[0].Radius)
}

func TestAttack_MultiTargetSkipsHiddenAndDistantEnemies(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "volley")
	f.spawn(t, "p", character.FactionMoon, 5, "")
	f.spawn(t, "flank", character.FactionMoon, 0, "")
	f.arena.Place("flank", host.Vec3{X: 4, Z: 4}, 0.5)
	f.spawn(t, "behind", character.FactionMoon, 9, "")
	f.spawn(t, "far", character.FactionMoon, 0, "")
	f.arena.Place("far", host.Vec3{Z: -15}, 0.5)

	res, err := f.sched.Attack("a", character.HandRight)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p", "flank"}, res.Affected)
	assert.Equal(t, 90.0, f.get(t, "flank").CurrentHP)
	assert.Equal(t, 100.0, f.get(t, "behind").CurrentHP)
	assert.Equal(t, 100.0, f.get(t, "far").CurrentHP)
}

func TestMoveThenAttack_MovesAndAttacksOnArrival(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "dagger")
	f.spawn(t, "b", character.FactionMoon, 10, "")

	moved, err := f.sched.MoveThenAttack("a", character.HandRight)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.True(t, f.sched.Pending("a"))
	assert.Contains(t, f.rec.Animations("a"), host.AnimWalk)

	// stops 0.9*2 = 1.8 short of x=10, moving 8.2 at speed 2
	f.queue.Advance(4099 * time.Millisecond)
	assert.Equal(t, 100.0, f.get(t, "b").CurrentHP)
	f.queue.Advance(time.Millisecond)
	assert.False(t, f.sched.Pending("a"))
	assert.Equal(t, 90.0, f.get(t, "b").CurrentHP)
	pos, _ := f.arena.Position("a")
	assert.InDelta(t, 8.2, pos.X, 1e-9)
}

func TestMoveThenAttack_InRangeAttacksImmediately(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "rifle")
	f.spawn(t, "b", character.FactionMoon, 5, "")
	moved, err := f.sched.MoveThenAttack("a", character.HandRight)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 70.0, f.get(t, "b").CurrentHP)
}

func TestMoveThenAttack_Guards(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "fist")
	f.spawn(t, "b", character.FactionMoon, 5, "")
	_, err := f.sched.MoveThenAttack("a", character.HandRight)
	assert.ErrorIs(t, err, action.ErrZeroRange)

	_, err = f.reg.Create(character.Spec{ID: "statue", Name: "Statue", Faction: character.FactionSun, MaxHP: 10, RightWeapon: "dagger"})
	require.NoError(t, err)
	f.arena.Place("statue", host.Vec3{Z: -5}, 0)
	_, err = f.sched.MoveThenAttack("statue", character.HandRight)
	assert.ErrorIs(t, err, action.ErrImmobile)
}

func TestMoveThenAttack_FrozenOnArrivalDoesNotAttack(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "dagger")
	f.spawn(t, "b", character.FactionMoon, 10, "")
	_, err := f.sched.MoveThenAttack("a", character.HandRight)
	require.NoError(t, err)

	f.queue.Advance(time.Second)
	_, err = f.reg.IncrementFrozen("a")
	require.NoError(t, err)
	f.queue.Advance(5 * time.Second)
	assert.Equal(t, 100.0, f.get(t, "b").CurrentHP)
	assert.False(t, f.sched.Pending("a"))
}

func TestMoveThenAttack_NewMoveCancelsPrevious(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0, "dagger")
	f.spawn(t, "b", character.FactionMoon, 10, "")
	_, err := f.sched.MoveThenAttack("a", character.HandRight)
	require.NoError(t, err)
	f.queue.Advance(time.Second)
	_, err = f.sched.MoveThenAttack("a", character.HandRight)
	require.NoError(t, err)
	assert.Equal(t, 1, f.queue.Len())

	assert.True(t, f.sched.Cancel("a"))
	assert.False(t, f.sched.Cancel("a"))
	f.queue.Advance(10 * time.Second)
	assert.Equal(t, 100.0, f.get(t, "b").CurrentHP)
}

func TestAttackAnimation(t *testing.T) {
	offense := &weapon.Weapon{PhysicalDamage: 1}
	assert.Equal(t, host.AnimAttackWizard, action.AttackAnimation(character.ClassWizard, offense))
	assert.Equal(t, host.AnimAttackKnight, action.AttackAnimation(character.ClassKnight, offense))
	assert.Equal(t, host.AnimSkillBuff, action.AttackAnimation(character.ClassTech, &weapon.Weapon{HealAmount: 5}))
	assert.Equal(t, "on_cooldown", action.OnCooldown.String())
}
