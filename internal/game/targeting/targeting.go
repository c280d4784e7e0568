// Package targeting answers read-only queries over the living combatants: who is an ally,
// who is an enemy, how far away they are and whether they can be seen.
package targeting

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/host"
)

// Options tunes visibility raycasts.
type Options struct {
	// EyeHeight raises both ray endpoints above the ground plane.
	EyeHeight float64
	// OriginOffset moves the ray origin toward the candidate so it starts outside the attacker's body.
	OriginOffset float64
}

// Service is the targeting query service.
type Service struct {
	reg     *character.Registry
	spatial host.Spatial
	opts    Options
}

// NewService creates a Service.
//
// Precondition: reg and spatial must not be nil.
func NewService(reg *character.Registry, spatial host.Spatial, opts Options) *Service {
	return &Service{reg: reg, spatial: spatial, opts: opts}
}

// EnemyFactionOf returns the faction hostile to f.
func EnemyFactionOf(f character.Faction) character.Faction { return f.Enemy() }

// AlliesOf returns living characters sharing id's current faction, nearest first, excluding id.
func (s *Service) AlliesOf(id string) ([]character.Character, error) {
	self, err := s.reg.Get(id)
	if err != nil {
		return nil, err
	}
	return s.byFaction(self, self.Faction)
}

// EnemiesOf returns living characters of the faction opposing id's current faction, nearest first.
func (s *Service) EnemiesOf(id string) ([]character.Character, error) {
	self, err := s.reg.Get(id)
	if err != nil {
		return nil, err
	}
	return s.byFaction(self, EnemyFactionOf(self.Faction))
}

func (s *Service) byFaction(self character.Character, f character.Faction) ([]character.Character, error) {
	origin, ok := s.spatial.Position(self.ID)
	if !ok {
		return nil, fmt.Errorf("targeting: character %q has no position", self.ID)
	}
	type ranked struct {
		c    character.Character
		dist float64
	}
	var out []ranked
	for _, c := range s.reg.Living() {
		if c.ID == self.ID || c.Faction != f {
			continue
		}
		pos, ok := s.spatial.Position(c.ID)
		if !ok {
			continue
		}
		out = append(out, ranked{c: c, dist: origin.Dist(pos)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].dist < out[j].dist })
	chars := make([]character.Character, len(out))
	for i, r := range out {
		chars[i] = r.c
	}
	return chars, nil
}

// NearestVisible returns the first candidate whose visibility ray from id is not blocked by
// another body. Candidates are tested in the order given.
func (s *Service) NearestVisible(id string, candidates []character.Character) (character.Character, bool) {
	from, ok := s.spatial.Position(id)
	if !ok {
		return character.Character{}, false
	}
	eye := host.Vec3{Y: s.opts.EyeHeight}
	for _, c := range candidates {
		to, ok := s.spatial.Position(c.ID)
		if !ok {
			continue
		}
		dir := to.Sub(from).Normalize()
		origin := from.Add(dir.Scale(s.opts.OriginOffset)).Add(eye)
		hit, ok := s.spatial.RaycastVisible(origin, to.Add(eye).Sub(origin))
		if ok && hit == c.ID {
			return c, true
		}
	}
	return character.Character{}, false
}

// Distance returns the distance between two characters.
func (s *Service) Distance(a, b string) (float64, error) {
	pa, ok := s.spatial.Position(a)
	if !ok {
		return 0, fmt.Errorf("targeting: character %q has no position", a)
	}
	pb, ok := s.spatial.Position(b)
	if !ok {
		return 0, fmt.Errorf("targeting: character %q has no position", b)
	}
	return pa.Dist(pb), nil
}

// InRange reports whether b is within r of a. Unknown positions are never in range.
func (s *Service) InRange(a, b string, r float64) bool {
	d, err := s.Distance(a, b)
	return err == nil && d <= r
}

// Within filters candidates to those within radius of center, preserving order.
func (s *Service) Within(center host.Vec3, radius float64, candidates []character.Character) []character.Character {
	var out []character.Character
	for _, c := range candidates {
		pos, ok := s.spatial.Position(c.ID)
		if ok && pos.Dist(center) <= radius {
			out = append(out, c)
		}
	}
	return out
}

// Position exposes the host position of id.
func (s *Service) Position(id string) (host.Vec3, bool) { return s.spatial.Position(id) }
