// Package arena is a headless host.Spatial: characters are vertical cylinders on a plane and
// movement is linear interpolation against the simulation clock.
package arena

import (
	"math"
	"sync"
	"time"

	"github.com/cory-johannsen/arena/internal/game/host"
)

// DefaultBodyRadius is the collision radius used when Place is given a non-positive radius.
const DefaultBodyRadius = 0.5

type body struct {
	from, to host.Vec3
	start    time.Duration
	travel   time.Duration
	radius   float64
	solid    bool
}

// Arena tracks character positions and answers visibility raycasts.
type Arena struct {
	mu     sync.RWMutex
	now    func() time.Duration
	bodies map[string]*body
}

// New creates an empty Arena.
//
// Precondition: now must not be nil; it returns the current simulation time.
func New(now func() time.Duration) *Arena {
	return &Arena{now: now, bodies: make(map[string]*body)}
}

// Place puts id at pos with the given collision radius, replacing any previous placement.
func (a *Arena) Place(id string, pos host.Vec3, radius float64) {
	if radius <= 0 {
		radius = DefaultBodyRadius
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bodies[id] = &body{from: pos, to: pos, radius: radius, solid: true}
}

// SetSolid controls whether id blocks raycasts. Dead characters are made non-solid.
func (a *Arena) SetSolid(id string, solid bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.bodies[id]; ok {
		b.solid = solid
	}
}

// Remove forgets id.
func (a *Arena) Remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bodies, id)
}

func (b *body) at(now time.Duration) host.Vec3 {
	if b.travel <= 0 || now >= b.start+b.travel {
		return b.to
	}
	if now <= b.start {
		return b.from
	}
	frac := float64(now-b.start) / float64(b.travel)
	return b.from.Lerp(b.to, frac)
}

// Position implements host.Spatial.
func (a *Arena) Position(id string) (host.Vec3, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.bodies[id]
	if !ok {
		return host.Vec3{}, false
	}
	return b.at(a.now()), true
}

// MoveTo implements host.Spatial. A move started mid-way continues from the current position.
func (a *Arena) MoveTo(id string, dest host.Vec3, travel time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.bodies[id]
	if !ok {
		return
	}
	now := a.now()
	b.from = b.at(now)
	b.to = dest
	b.start = now
	b.travel = travel
}

// Moving reports whether id is still travelling.
func (a *Arena) Moving(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.bodies[id]
	return ok && b.travel > 0 && a.now() < b.start+b.travel
}

// RaycastVisible implements host.Spatial: the nearest solid body intersected by the ray wins.
// Bodies are infinitely tall cylinders, so only the ray's horizontal component matters.
// A ray starting inside a body does not hit that body.
func (a *Arena) RaycastVisible(origin, dir host.Vec3) (string, bool) {
	d := host.Vec3{X: dir.X, Z: dir.Z}.Normalize()
	if d == (host.Vec3{}) {
		return "", false
	}
	o := host.Vec3{X: origin.X, Z: origin.Z}
	a.mu.RLock()
	defer a.mu.RUnlock()
	now := a.now()
	best := math.Inf(1)
	hit := ""
	for id, b := range a.bodies {
		if !b.solid {
			continue
		}
		p := b.at(now)
		t, ok := rayCircle(o, d, host.Vec3{X: p.X, Z: p.Z}, b.radius)
		if !ok {
			continue
		}
		if t < best || (t == best && id < hit) {
			best = t
			hit = id
		}
	}
	return hit, hit != ""
}

// rayCircle returns the distance along the unit ray d to the entry point of the circle.
func rayCircle(origin, d, center host.Vec3, r float64) (float64, bool) {
	oc := origin.Sub(center)
	c := oc.Dot(oc) - r*r
	if c <= 0 {
		return 0, false
	}
	b := oc.Dot(d)
	if b > 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	return -b - math.Sqrt(disc), true
}
