package effect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/effect"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/timer"
	"github.com/cory-johannsen/arena/internal/game/weapon"
)

type fixture struct {
	reg      *character.Registry
	queue    *timer.Queue
	arena    *arena.Arena
	rec      *host.Recorder
	resolver *effect.Resolver
}

func newFixture(t require.TestingT) *fixture {
	reg := character.NewRegistry()
	q := timer.NewQueue()
	a := arena.New(q.Now)
	rec := host.NewRecorder()
	rarities := weapon.NewRarityTable()
	require.NoError(t, rarities.Register(weapon.Rarity{Name: "rare", Weight: 10, Color: "#0070dd"}))
	return &fixture{
		reg:      reg,
		queue:    q,
		arena:    a,
		rec:      rec,
		resolver: effect.NewResolver(reg, q, rec, a, rarities, zap.NewNop()),
	}
}

type charOpt func(*character.Spec)

func withArmor(armor, mr float64) charOpt {
	return func(s *character.Spec) { s.Armor, s.MagicResist = armor, mr }
}

func (f *fixture) spawn(t require.TestingT, id string, fac character.Faction, x float64, opts ...charOpt) character.Character {
	spec := character.Spec{ID: id, Name: id, Faction: fac, MaxHP: 100, MovementSpeed: 2}
	for _, o := range opts {
		o(&spec)
	}
	_, err := f.reg.Create(spec)
	require.NoError(t, err)
	f.arena.Place(id, host.Vec3{X: x}, 0.5)
	return f.get(t, id)
}

func (f *fixture) get(t require.TestingT, id string) character.Character {
	c, err := f.reg.Get(id)
	require.NoError(t, err)
	return c
}

func (f *fixture) resolve(attacker string, w *weapon.Weapon, allies, enemies []character.Character) effect.Result {
	return f.resolver.Resolve(effect.Attack{AttackerID: attacker, Weapon: w, Allies: allies, Enemies: enemies})
}

func sword(dmg float64) *weapon.Weapon {
	return &weapon.Weapon{ID: "sword", Name: "Sword", Type: weapon.TypeMelee, PhysicalDamage: dmg, Range: 10, ReloadTime: 1, MaxTargetsOffense: 1}
}

func TestEffectiveDamage(t *testing.T) {
	assert.Equal(t, 40.0, effect.EffectiveDamage(0, 50, character.Character{MagicResist: 20}))
	assert.Equal(t, 45.0, effect.EffectiveDamage(50, 0, character.Character{Armor: 10}))
	assert.Equal(t, 0.0, effect.EffectiveDamage(50, 50, character.Character{Armor: 150, MagicResist: 100}))
	assert.Equal(t, 85.0, effect.EffectiveDamage(50, 50, character.Character{Armor: 10, MagicResist: 20}))
}

func TestBurnTicks(t *testing.T) {
	assert.Equal(t, 0, effect.BurnTicks(0))
	assert.Equal(t, 3, effect.BurnTicks(0.3))
	assert.Equal(t, 20, effect.BurnTicks(2))
	assert.Equal(t, 21, effect.BurnTicks(2.01))
}

func TestResolve_DirectDamage(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	b := f.spawn(t, "b", character.FactionMoon, 5)

	w := sword(30)
	w.Rarity = "rare"
	res := f.resolve("a", w, nil, []character.Character{b})
	assert.True(t, res.Acted)
	assert.Equal(t, 30.0, res.Dealt)
	assert.Equal(t, 70.0, f.get(t, "b").CurrentHP)
	assert.Equal(t, []host.AnimationKind{host.AnimHit}, f.rec.Animations("b"))
	frac, ok := f.rec.LastHPBar("b")
	require.True(t, ok)
	assert.Equal(t, 0.7, frac)
	hits := f.rec.Effects(host.EffectHit)
	require.Len(t, hits, 1)
	assert.Equal(t, "#0070dd", hits[0].Color)
	killer, ok := f.resolver.LastAttacker("b")
	require.True(t, ok)
	assert.Equal(t, "a", killer)
}

func TestResolve_CapsTargetsNearestFirst(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	e1 := f.spawn(t, "e1", character.FactionMoon, 1)
	e2 := f.spawn(t, "e2", character.FactionMoon, 2)
	e3 := f.spawn(t, "e3", character.FactionMoon, 3)
	w := sword(10)
	w.MaxTargetsOffense = 2
	res := f.resolve("a", w, nil, []character.Character{e1, e2, e3})
	assert.Equal(t, []string{"e1", "e2"}, res.Affected)
	assert.Equal(t, 100.0, f.get(t, "e3").CurrentHP)
}

func TestResolve_ShieldAbsorbsExactlyOneHostileEffect(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	f.spawn(t, "b", character.FactionMoon, 5)
	_, err := f.reg.IncrementShield("b")
	require.NoError(t, err)

	w := sword(30)
	w.FrostDuration = 2
	res := f.resolve("a", w, nil, []character.Character{f.get(t, "b")})
	assert.True(t, res.Acted, "a shielded hit still counts as acting")
	assert.Equal(t, []string{"b"}, res.Shielded)
	b := f.get(t, "b")
	assert.Equal(t, 100.0, b.CurrentHP)
	assert.Equal(t, 0, b.Shield)
	assert.Equal(t, 0, b.Frozen)

	f.resolve("a", w, nil, []character.Character{f.get(t, "b")})
	assert.Equal(t, 70.0, f.get(t, "b").CurrentHP)
}

func TestResolve_ShieldGrantExpiresAndConsumptionCancelsEarliestExpiry(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "caster", character.FactionSun, 0)
	ally := f.spawn(t, "ally", character.FactionSun, 1)
	f.spawn(t, "foe", character.FactionMoon, 3)

	ward := &weapon.Weapon{ID: "ward", Name: "Ward", Type: weapon.TypeSpell, ShieldSeconds: 4, MaxTargetsDefense: 1}
	res := f.resolve("caster", ward, []character.Character{ally}, nil)
	assert.True(t, res.Acted)
	f.queue.Advance(time.Second)
	f.resolve("caster", ward, []character.Character{ally}, nil)
	assert.Equal(t, 2, f.get(t, "ally").Shield)

	f.resolve("foe", sword(10), nil, []character.Character{f.get(t, "ally")})
	assert.Equal(t, 1, f.get(t, "ally").Shield)
	recs := f.resolver.Active("ally")
	require.Len(t, recs, 1)
	assert.Equal(t, 5*time.Second, recs[0].ExpiresAt, "the earlier expiry was cancelled")

	f.queue.AdvanceTo(5 * time.Second)
	assert.Equal(t, 0, f.get(t, "ally").Shield)
	assert.Empty(t, f.resolver.Active("ally"))
}

func TestResolve_KillRemovesTargetFromSecondaryEffects(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	f.spawn(t, "b", character.FactionMoon, 5)
	w := sword(500)
	w.FrostDuration = 1
	w.BurnDuration = 1
	w.BurnTotalDamage = 10
	w.ConversionSeconds = 3
	res := f.resolve("a", w, nil, []character.Character{f.get(t, "b")})
	assert.Equal(t, []string{"b"}, res.Killed)
	assert.Equal(t, 100.0, res.Dealt)
	b := f.get(t, "b")
	assert.False(t, b.Alive)
	assert.Equal(t, 0, b.Frozen)
	assert.Equal(t, character.FactionMoon, b.Faction)
	assert.Empty(t, f.resolver.Active("b"))
}

func TestResolve_FrostCounterAndAvailability(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	f.spawn(t, "b", character.FactionMoon, 5)
	require.NoError(t, f.reg.SetAvailableAt("b", character.HandRight, 500*time.Millisecond))

	frost := &weapon.Weapon{ID: "frost", Name: "Frost", Type: weapon.TypeSpell, FrostDuration: 2, MaxTargetsOffense: 1}
	f.resolve("a", frost, nil, []character.Character{f.get(t, "b")})
	b := f.get(t, "b")
	assert.Equal(t, 1, b.Frozen)
	assert.Equal(t, 2500*time.Millisecond, b.Hand(character.HandRight).AvailableAt)
	assert.Equal(t, 2*time.Second, b.Hand(character.HandLeft).AvailableAt)

	f.queue.Advance(time.Second)
	f.resolve("a", frost, nil, []character.Character{f.get(t, "b")})
	assert.Equal(t, 2, f.get(t, "b").Frozen)

	f.queue.AdvanceTo(2 * time.Second)
	assert.Equal(t, 1, f.get(t, "b").Frozen)
	assert.NotContains(t, f.rec.Animations("b"), host.AnimIdle)

	f.queue.AdvanceTo(3 * time.Second)
	assert.Equal(t, 0, f.get(t, "b").Frozen)
	anims := f.rec.Animations("b")
	assert.Equal(t, host.AnimIdle, anims[len(anims)-1])
}

func TestResolve_ShockChainsAndDrawsBeams(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	e1 := f.spawn(t, "e1", character.FactionMoon, 2, withArmor(50, 0))
	e2 := f.spawn(t, "e2", character.FactionMoon, 4)
	e3 := f.spawn(t, "e3", character.FactionMoon, 6)
	_, err := f.reg.ApplyDamage("e2", 95)
	require.NoError(t, err)
	e2 = f.get(t, "e2")

	shock := &weapon.Weapon{ID: "zap", Name: "Zap", Type: weapon.TypeSpell, ShockDamage: 20, MaxTargetsOffense: 3}
	res := f.resolve("a", shock, nil, []character.Character{e1, e2, e3})
	assert.Equal(t, 90.0, f.get(t, "e1").CurrentHP)
	assert.False(t, f.get(t, "e2").Alive)
	assert.Equal(t, 80.0, f.get(t, "e3").CurrentHP, "chain continues past a death")
	assert.Equal(t, 35.0, res.Dealt)

	beams := f.rec.Effects(host.EffectShockBeam)
	require.Len(t, beams, 3)
	assert.Equal(t, host.Vec3{}, *beams[0].Position)
	assert.Equal(t, host.Vec3{X: 2}, *beams[0].To)
	assert.Equal(t, host.Vec3{X: 2}, *beams[1].Position)
	assert.Equal(t, host.Vec3{X: 6}, *beams[2].To)
}

func TestResolve_HealSkipsFullHPAndStopsAtCap(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "healer", character.FactionSun, 0)
	full := f.spawn(t, "full", character.FactionSun, 1)
	f.spawn(t, "hurt1", character.FactionSun, 2)
	f.spawn(t, "hurt2", character.FactionSun, 3)
	f.spawn(t, "hurt3", character.FactionSun, 4)
	for _, id := range []string{"hurt1", "hurt2", "hurt3"} {
		_, err := f.reg.ApplyDamage(id, 50)
		require.NoError(t, err)
	}
	allies := []character.Character{full, f.get(t, "hurt1"), f.get(t, "hurt2"), f.get(t, "hurt3")}
	heal := &weapon.Weapon{ID: "mend", Name: "Mend", Type: weapon.TypeSpell, HealAmount: 80, MaxTargetsDefense: 2}
	res := f.resolve("healer", heal, allies, nil)
	assert.Equal(t, 100.0, res.Healed)
	assert.Equal(t, 100.0, f.get(t, "hurt1").CurrentHP)
	assert.Equal(t, 100.0, f.get(t, "hurt2").CurrentHP)
	assert.Equal(t, 50.0, f.get(t, "hurt3").CurrentHP)
	assert.Empty(t, f.rec.Animations("full"))
}

func TestResolve_HealOnlyFullAlliesDoesNotAct(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "healer", character.FactionSun, 0)
	full := f.spawn(t, "full", character.FactionSun, 1)
	heal := &weapon.Weapon{ID: "mend", Name: "Mend", Type: weapon.TypeSpell, HealAmount: 10, MaxTargetsDefense: 1}
	res := f.resolve("healer", heal, []character.Character{full}, nil)
	assert.False(t, res.Acted)
}

func TestResolve_BurnTotalsEffectiveDamage(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	b := f.spawn(t, "b", character.FactionMoon, 5, withArmor(20, 0))
	burn := &weapon.Weapon{ID: "torch", Name: "Torch", Type: weapon.TypeSpell, BurnDuration: 1.5, BurnTotalDamage: 30, MaxTargetsOffense: 1}
	res := f.resolve("a", burn, nil, []character.Character{b})
	assert.True(t, res.Acted)
	assert.Len(t, f.resolver.Active("b"), 15)
	assert.Equal(t, 100.0, f.get(t, "b").CurrentHP)

	f.queue.Advance(100 * time.Millisecond)
	assert.InDelta(t, 100-24.0/15, f.get(t, "b").CurrentHP, 1e-9)
	f.queue.Advance(2 * time.Second)
	assert.InDelta(t, 76.0, f.get(t, "b").CurrentHP, 1e-9)
	assert.Empty(t, f.resolver.Active("b"))
}

func TestResolve_BurnStopsOnDeath(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	f.spawn(t, "b", character.FactionMoon, 5)
	_, err := f.reg.ApplyDamage("b", 95)
	require.NoError(t, err)
	deaths := 0
	f.reg.OnDeath(func(character.Character) { deaths++ })

	burn := &weapon.Weapon{ID: "torch", Name: "Torch", Type: weapon.TypeSpell, BurnDuration: 1, BurnTotalDamage: 50, MaxTargetsOffense: 1}
	f.resolve("a", burn, nil, []character.Character{f.get(t, "b")})
	f.queue.Advance(200 * time.Millisecond)
	b := f.get(t, "b")
	assert.False(t, b.Alive)
	assert.Equal(t, 0.0, b.CurrentHP)
	assert.Equal(t, 1, deaths)
	assert.Equal(t, 0, f.queue.Len())
}

func TestResolve_ConversionRevertsAfterDuration(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	f.spawn(t, "b", character.FactionMoon, 5)
	conv := &weapon.Weapon{ID: "charm", Name: "Charm", Type: weapon.TypeSpell, ConversionSeconds: 5, MaxTargetsOffense: 1}
	f.resolve("a", conv, nil, []character.Character{f.get(t, "b")})
	assert.Equal(t, character.FactionSun, f.get(t, "b").Faction)

	f.queue.Advance(4999 * time.Millisecond)
	assert.Equal(t, character.FactionSun, f.get(t, "b").Faction)
	f.queue.Advance(time.Millisecond)
	b := f.get(t, "b")
	assert.Equal(t, character.FactionMoon, b.Faction)
	assert.Equal(t, 0, b.Converted)
}

func TestResolve_ConversionRevertIsNoOpAfterDeath(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	f.spawn(t, "b", character.FactionMoon, 5)
	conv := &weapon.Weapon{ID: "charm", Name: "Charm", Type: weapon.TypeSpell, ConversionSeconds: 5, MaxTargetsOffense: 1}
	f.resolve("a", conv, nil, []character.Character{f.get(t, "b")})

	f.queue.Advance(2 * time.Second)
	_, err := f.reg.ApplyDamage("b", 1000)
	require.NoError(t, err)
	f.queue.Advance(5 * time.Second)
	b := f.get(t, "b")
	assert.Equal(t, character.FactionMoon, b.Faction)
	assert.Equal(t, 0, b.Converted)
}

func TestResolve_Lifesteal(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	f.spawn(t, "b", character.FactionMoon, 5)
	_, err := f.reg.ApplyDamage("a", 50)
	require.NoError(t, err)

	w := sword(20)
	w.Lifesteal = 50
	res := f.resolve("a", w, nil, []character.Character{f.get(t, "b")})
	assert.Equal(t, 20.0, res.Dealt)
	assert.Equal(t, 60.0, f.get(t, "a").CurrentHP)
	assert.Empty(t, f.rec.Animations("a"), "lifesteal plays no hit animation")
}

func TestResolve_ArmorBuffAndDebuffRevert(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	ally := f.spawn(t, "ally", character.FactionSun, 1, withArmor(10, 10))
	foe := f.spawn(t, "foe", character.FactionMoon, 2, withArmor(5, 30))

	buff := &weapon.Weapon{ID: "bless", Name: "Bless", Type: weapon.TypeSpell, DeltaArmor: 15, ReloadTime: 2, MaxTargetsDefense: 1}
	res := f.resolve("a", buff, []character.Character{ally}, []character.Character{foe})
	assert.True(t, res.Acted)
	assert.Equal(t, 25.0, f.get(t, "ally").Armor)
	assert.Equal(t, 5.0, f.get(t, "foe").Armor)

	curse := &weapon.Weapon{ID: "curse", Name: "Curse", Type: weapon.TypeSpell, DeltaArmor: -10, DeltaMagicResist: -10, ReloadTime: 1, MaxTargetsOffense: 1}
	f.resolve("a", curse, []character.Character{ally}, []character.Character{foe})
	foeNow := f.get(t, "foe")
	assert.Equal(t, 0.0, foeNow.Armor)
	assert.Equal(t, 20.0, foeNow.MagicResist)
	assert.Equal(t, 25.0, f.get(t, "ally").Armor)

	f.queue.Advance(time.Second)
	foeNow = f.get(t, "foe")
	assert.Equal(t, 5.0, foeNow.Armor, "revert restores only what was applied")
	assert.Equal(t, 30.0, foeNow.MagicResist)
	f.queue.Advance(time.Second)
	assert.Equal(t, 10.0, f.get(t, "ally").Armor)
}

func TestResolve_DebuffRevertSkipsDeadTarget(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	foe := f.spawn(t, "foe", character.FactionMoon, 2, withArmor(40, 0))
	curse := &weapon.Weapon{ID: "curse", Name: "Curse", Type: weapon.TypeSpell, DeltaArmor: -10, ReloadTime: 1, MaxTargetsOffense: 1}
	f.resolve("a", curse, nil, []character.Character{foe})
	_, err := f.reg.ApplyDamage("foe", 1000)
	require.NoError(t, err)
	f.queue.Advance(time.Second)
	assert.Equal(t, 30.0, f.get(t, "foe").Armor)
}

func TestClear_CancelsPendingEffects(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, 0)
	f.spawn(t, "b", character.FactionMoon, 5)
	w := &weapon.Weapon{ID: "mix", Name: "Mix", Type: weapon.TypeSpell, FrostDuration: 1, ConversionSeconds: 1, MaxTargetsOffense: 1}
	f.resolve("a", w, nil, []character.Character{f.get(t, "b")})
	kinds := []effect.Kind{}
	for _, r := range f.resolver.Active("b") {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []effect.Kind{effect.KindFrost, effect.KindConversion}, kinds)
	assert.Equal(t, 2, f.resolver.Clear("b"))
	assert.Equal(t, 0, f.queue.Len())
	assert.Equal(t, 0, f.resolver.Clear("b"))
}

func TestResolve_Property_BurnSumsToEffectiveDamage(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(rt)
		armor := rapid.Float64Range(0, 90).Draw(rt, "armor")
		total := rapid.Float64Range(1, 80).Draw(rt, "total")
		duration := rapid.Float64Range(0.1, 5).Draw(rt, "duration")
		f.spawn(rt, "a", character.FactionSun, 0)
		b := f.spawn(rt, "b", character.FactionMoon, 5, withArmor(armor, 0))
		w := &weapon.Weapon{ID: "burn", Name: "Burn", Type: weapon.TypeSpell, BurnDuration: duration, BurnTotalDamage: total, MaxTargetsOffense: 1}
		f.resolve("a", w, nil, []character.Character{b})
		f.queue.Advance(10 * time.Second)
		lost := 100 - f.get(rt, "b").CurrentHP
		want := effect.EffectiveDamage(total, 0, b)
		if diff := lost - want; diff > 1e-6 || diff < -1e-6 {
			rt.Fatalf("burn dealt %v, want %v", lost, want)
		}
	})
}

func TestResolve_Property_FrostNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(rt)
		f.spawn(rt, "a", character.FactionSun, 0)
		f.spawn(rt, "b", character.FactionMoon, 5)
		n := rapid.IntRange(1, 10).Draw(rt, "casts")
		for i := 0; i < n; i++ {
			d := rapid.Float64Range(0.1, 3).Draw(rt, "frost")
			w := &weapon.Weapon{ID: "f", Name: "F", Type: weapon.TypeSpell, FrostDuration: d, MaxTargetsOffense: 1}
			before := f.get(rt, "b").Frozen
			f.resolve("a", w, nil, []character.Character{f.get(rt, "b")})
			if got := f.get(rt, "b").Frozen; got != before+1 {
				rt.Fatalf("frozen %d after cast, want %d", got, before+1)
			}
			f.queue.Advance(time.Duration(rapid.IntRange(0, 2000).Draw(rt, "gap")) * time.Millisecond)
			if f.get(rt, "b").Frozen < 0 {
				rt.Fatalf("negative frozen counter")
			}
		}
		f.queue.Advance(5 * time.Second)
		assert.Equal(rt, 0, f.get(rt, "b").Frozen)
	})
}
