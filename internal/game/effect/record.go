package effect

import (
	"time"

	"github.com/cory-johannsen/arena/internal/game/timer"
)

// Kind identifies a timed effect.
type Kind string

const (
	KindFrost       Kind = "frost"
	KindBurn        Kind = "burn"
	KindShield      Kind = "shield"
	KindConversion  Kind = "conversion"
	KindArmor       Kind = "armor"
	KindMagicResist Kind = "magic_resist"
)

// Record tracks one pending timed effect on a character.
type Record struct {
	Kind     Kind
	TargetID string
	SourceID string
	// ExpiresAt is the simulation time the effect ends or, for a burn tick, lands.
	ExpiresAt time.Duration
	handle    *timer.Handle
}

// Pending reports whether the effect's timer has yet to fire.
func (r *Record) Pending() bool { return r.handle.Pending() }

// Active returns the pending timed effects on id in application order.
func (r *Resolver) Active(id string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(id)
	recs := r.records[id]
	out := make([]Record, len(recs))
	for i, rec := range recs {
		out[i] = *rec
	}
	return out
}

// Clear cancels every pending timed effect on id and returns how many were cancelled.
func (r *Resolver) Clear(id string) int {
	r.mu.Lock()
	recs := r.records[id]
	delete(r.records, id)
	r.mu.Unlock()
	n := 0
	for _, rec := range recs {
		if rec.handle.Cancel() {
			n++
		}
	}
	return n
}

func (r *Resolver) track(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(rec.TargetID)
	r.records[rec.TargetID] = append(r.records[rec.TargetID], rec)
}

func (r *Resolver) pruneLocked(id string) {
	recs := r.records[id]
	kept := recs[:0]
	for _, rec := range recs {
		if rec.handle.Pending() {
			kept = append(kept, rec)
		}
	}
	for i := len(kept); i < len(recs); i++ {
		recs[i] = nil
	}
	if len(kept) == 0 {
		delete(r.records, id)
		return
	}
	r.records[id] = kept
}

// cancelEarliestShield cancels the soonest pending shield expiry on id.
func (r *Resolver) cancelEarliestShield(id string) {
	r.mu.Lock()
	var earliest *Record
	for _, rec := range r.records[id] {
		if rec.Kind != KindShield || !rec.handle.Pending() {
			continue
		}
		if earliest == nil || rec.handle.At() < earliest.handle.At() {
			earliest = rec
		}
	}
	r.mu.Unlock()
	if earliest != nil {
		earliest.handle.Cancel()
	}
}
