package world

import (
	"context"
	"sync"
	"time"
)

// DeathEvent records one combatant's death.
type DeathEvent struct {
	MatchID     string
	CharacterID string
	Name        string
	Faction     string
	// KillerID is empty when the killing blow has no known source.
	KillerID string
	At       time.Duration
}

// OutcomeEvent records the end of a match. Winner is empty for a draw.
type OutcomeEvent struct {
	MatchID   string
	Winner    string
	Survivors []string
	At        time.Duration
}

// Journal persists match events.
type Journal interface {
	RecordDeath(ctx context.Context, ev DeathEvent) error
	RecordOutcome(ctx context.Context, ev OutcomeEvent) error
}

// MemoryJournal keeps events in memory. It backs matches run without a database.
type MemoryJournal struct {
	mu       sync.Mutex
	deaths   []DeathEvent
	outcomes []OutcomeEvent
}

// NewMemoryJournal returns an empty MemoryJournal.
func NewMemoryJournal() *MemoryJournal { return &MemoryJournal{} }

func (j *MemoryJournal) RecordDeath(_ context.Context, ev DeathEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deaths = append(j.deaths, ev)
	return nil
}

func (j *MemoryJournal) RecordOutcome(_ context.Context, ev OutcomeEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcomes = append(j.outcomes, ev)
	return nil
}

// Deaths returns a copy of the recorded deaths.
func (j *MemoryJournal) Deaths() []DeathEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]DeathEvent(nil), j.deaths...)
}

// Outcomes returns a copy of the recorded outcomes.
func (j *MemoryJournal) Outcomes() []OutcomeEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]OutcomeEvent(nil), j.outcomes...)
}
