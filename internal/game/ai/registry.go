package ai

import (
	"errors"
	"fmt"
	"sort"
)

// Registry indexes Planners by domain id and picks the planner for a combatant's behaviour.
//
// Invariant: each domain id is registered at most once.
type Registry struct {
	planners map[string]*Planner
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{planners: make(map[string]*Planner)}
}

// Register creates and stores a Planner for domain.
//
// Precondition: domain must not be nil.
// Postcondition: returns error on domain id collision.
func (r *Registry) Register(domain *Domain, caller ScriptCaller) error {
	if _, exists := r.planners[domain.ID]; exists {
		return fmt.Errorf("behaviour domain %q already registered", domain.ID)
	}
	r.planners[domain.ID] = NewPlanner(domain, caller)
	return nil
}

// RegisterAll registers every domain with the same script caller. Collisions are
// reported together; the non-colliding domains are still registered.
func (r *Registry) RegisterAll(domains []*Domain, caller ScriptCaller) error {
	var errs []error
	for _, d := range domains {
		if err := r.Register(d, caller); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PlannerFor returns the Planner for domainID, or false if not registered.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	p, ok := r.planners[domainID]
	return p, ok
}

// Resolve returns the planner for behavior, falling back to fallback when behavior
// is empty. An unknown non-empty behavior does not fall back.
func (r *Registry) Resolve(behavior, fallback string) (*Planner, bool) {
	if behavior == "" {
		behavior = fallback
	}
	if behavior == "" {
		return nil, false
	}
	return r.PlannerFor(behavior)
}

// IDs returns the registered domain ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.planners))
	for id := range r.planners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered planners.
func (r *Registry) Len() int { return len(r.planners) }
