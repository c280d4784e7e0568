package targeting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/targeting"
)

type fixture struct {
	reg   *character.Registry
	arena *arena.Arena
	svc   *targeting.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := character.NewRegistry()
	a := arena.New(func() time.Duration { return 0 })
	return &fixture{
		reg:   reg,
		arena: a,
		svc:   targeting.NewService(reg, a, targeting.Options{EyeHeight: 1.6, OriginOffset: 0.6}),
	}
}

func (f *fixture) spawn(t *testing.T, id string, fac character.Faction, pos host.Vec3) {
	t.Helper()
	_, err := f.reg.Create(character.Spec{ID: id, Name: id, Faction: fac, MaxHP: 100, MovementSpeed: 1})
	require.NoError(t, err)
	f.arena.Place(id, pos, 0.5)
}

func ids(cs []character.Character) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestAlliesAndEnemies_NearestFirstAliveOnly(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "me", character.FactionSun, host.Vec3{})
	f.spawn(t, "ally_far", character.FactionSun, host.Vec3{X: 9})
	f.spawn(t, "ally_near", character.FactionSun, host.Vec3{X: 2})
	f.spawn(t, "foe_far", character.FactionMoon, host.Vec3{Z: 7})
	f.spawn(t, "foe_near", character.FactionMoon, host.Vec3{Z: -3})
	f.spawn(t, "foe_dead", character.FactionMoon, host.Vec3{Z: 1})
	_, err := f.reg.ApplyDamage("foe_dead", 1000)
	require.NoError(t, err)

	allies, err := f.svc.AlliesOf("me")
	require.NoError(t, err)
	assert.Equal(t, []string{"ally_near", "ally_far"}, ids(allies))

	enemies, err := f.svc.EnemiesOf("me")
	require.NoError(t, err)
	assert.Equal(t, []string{"foe_near", "foe_far"}, ids(enemies))

	_, err = f.svc.EnemiesOf("nobody")
	assert.ErrorIs(t, err, character.ErrUnknownCharacter)
}

func TestEnemies_FollowCurrentFaction(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "me", character.FactionSun, host.Vec3{})
	f.spawn(t, "sun", character.FactionSun, host.Vec3{X: 1})
	f.spawn(t, "moon", character.FactionMoon, host.Vec3{X: 2})
	_, err := f.reg.BeginConversion("me")
	require.NoError(t, err)

	enemies, err := f.svc.EnemiesOf("me")
	require.NoError(t, err)
	assert.Equal(t, []string{"sun"}, ids(enemies))
}

func TestNearestVisible_SkipsBlockedCandidate(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "me", character.FactionSun, host.Vec3{})
	f.spawn(t, "wall", character.FactionSun, host.Vec3{X: 3})
	f.spawn(t, "hidden", character.FactionMoon, host.Vec3{X: 6})
	f.spawn(t, "open", character.FactionMoon, host.Vec3{Z: 8})

	enemies, err := f.svc.EnemiesOf("me")
	require.NoError(t, err)
	require.Equal(t, []string{"hidden", "open"}, ids(enemies))

	target, ok := f.svc.NearestVisible("me", enemies)
	require.True(t, ok)
	assert.Equal(t, "open", target.ID)

	f.arena.SetSolid("wall", false)
	target, ok = f.svc.NearestVisible("me", enemies)
	require.True(t, ok)
	assert.Equal(t, "hidden", target.ID)

	_, ok = f.svc.NearestVisible("me", nil)
	assert.False(t, ok)
}

func TestDistanceAndRange(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "a", character.FactionSun, host.Vec3{})
	f.spawn(t, "b", character.FactionMoon, host.Vec3{X: 3, Z: 4})
	d, err := f.svc.Distance("a", "b")
	require.NoError(t, err)
	assert.Equal(t, 5.0, d)
	assert.True(t, f.svc.InRange("a", "b", 5))
	assert.False(t, f.svc.InRange("a", "b", 4.9))
	assert.False(t, f.svc.InRange("a", "ghost", 100))

	enemies, err := f.svc.EnemiesOf("a")
	require.NoError(t, err)
	assert.Len(t, f.svc.Within(host.Vec3{X: 3, Z: 3}, 1, enemies), 1)
	assert.Empty(t, f.svc.Within(host.Vec3{}, 1, enemies))
}

func TestEnemyFactionOf(t *testing.T) {
	assert.Equal(t, character.FactionMoon, targeting.EnemyFactionOf(character.FactionSun))
}
