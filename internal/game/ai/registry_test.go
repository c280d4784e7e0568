package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/ai"
)

func namedDomain(id string) *ai.Domain {
	d := duelistDomain()
	d.ID = id
	return d
}

func TestRegistry_Register_And_PlannerFor(t *testing.T) {
	reg := ai.NewRegistry()
	require.NoError(t, reg.Register(duelistDomain(), &mockScriptCaller{}))
	planner, ok := reg.PlannerFor("duelist")
	require.True(t, ok)
	assert.Equal(t, "duelist", planner.Domain().ID)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Register_CollisionError(t *testing.T) {
	reg := ai.NewRegistry()
	require.NoError(t, reg.Register(duelistDomain(), nil))
	assert.Error(t, reg.Register(duelistDomain(), nil))
}

func TestRegistry_RegisterAll_ReportsEveryCollision(t *testing.T) {
	reg := ai.NewRegistry()
	err := reg.RegisterAll([]*ai.Domain{
		namedDomain("a"), namedDomain("b"), namedDomain("a"), namedDomain("b"), namedDomain("c"),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)
	assert.Equal(t, []string{"a", "b", "c"}, reg.IDs())
}

func TestRegistry_Resolve(t *testing.T) {
	reg := ai.NewRegistry()
	require.NoError(t, reg.RegisterAll([]*ai.Domain{namedDomain("vanguard"), namedDomain("skirmisher")}, nil))

	p, ok := reg.Resolve("vanguard", "skirmisher")
	require.True(t, ok)
	assert.Equal(t, "vanguard", p.Domain().ID)

	p, ok = reg.Resolve("", "skirmisher")
	require.True(t, ok)
	assert.Equal(t, "skirmisher", p.Domain().ID)

	_, ok = reg.Resolve("berserker", "skirmisher")
	assert.False(t, ok, "unknown behaviour must not silently fall back")

	_, ok = reg.Resolve("", "")
	assert.False(t, ok)
}

func TestRegistry_PlannerFor_NotFound(t *testing.T) {
	_, ok := ai.NewRegistry().PlannerFor("missing")
	assert.False(t, ok)
}
