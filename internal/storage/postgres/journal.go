package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/world"
)

// ErrOutcomeNotFound is returned when a match has no recorded outcome.
var ErrOutcomeNotFound = errors.New("match outcome not found")

// ErrOutcomeExists is returned when a second outcome is recorded for a match.
var ErrOutcomeExists = errors.New("match outcome already recorded")

// ErrDeathExists is returned when the same combatant dies twice in one match.
var ErrDeathExists = errors.New("death already recorded")

// JournalRepository stores match deaths and outcomes. It implements world.Journal.
type JournalRepository struct {
	db *pgxpool.Pool
}

// NewJournalRepository creates a JournalRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewJournalRepository(db *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{db: db}
}

// RecordDeath inserts one death row.
//
// Postcondition: Returns ErrDeathExists if the combatant already died in this match.
func (r *JournalRepository) RecordDeath(ctx context.Context, ev world.DeathEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO match_deaths (match_id, character_id, name, faction, killer_id, at_ms)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		ev.MatchID, ev.CharacterID, ev.Name, ev.Faction, ev.KillerID, ev.At.Milliseconds(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDeathExists
		}
		return fmt.Errorf("inserting death: %w", err)
	}
	return nil
}

// RecordOutcome inserts the match outcome. An empty Winner is stored as NULL.
//
// Postcondition: Returns ErrOutcomeExists if the match already has an outcome.
func (r *JournalRepository) RecordOutcome(ctx context.Context, ev world.OutcomeEvent) error {
	survivors := ev.Survivors
	if survivors == nil {
		survivors = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO match_outcomes (match_id, winner, survivors, at_ms)
		 VALUES ($1, NULLIF($2, ''), $3, $4)`,
		ev.MatchID, ev.Winner, survivors, ev.At.Milliseconds(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrOutcomeExists
		}
		return fmt.Errorf("inserting outcome: %w", err)
	}
	return nil
}

// Deaths returns a match's deaths ordered by simulation time.
func (r *JournalRepository) Deaths(ctx context.Context, matchID string) ([]world.DeathEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT match_id, character_id, name, faction, COALESCE(killer_id, ''), at_ms
		 FROM match_deaths WHERE match_id = $1
		 ORDER BY at_ms, id`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying deaths: %w", err)
	}
	defer rows.Close()

	var out []world.DeathEvent
	for rows.Next() {
		var ev world.DeathEvent
		var atMS int64
		if err := rows.Scan(&ev.MatchID, &ev.CharacterID, &ev.Name, &ev.Faction, &ev.KillerID, &atMS); err != nil {
			return nil, fmt.Errorf("scanning death: %w", err)
		}
		ev.At = time.Duration(atMS) * time.Millisecond
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Outcome returns a match's outcome.
//
// Postcondition: Returns ErrOutcomeNotFound when the match has none.
func (r *JournalRepository) Outcome(ctx context.Context, matchID string) (world.OutcomeEvent, error) {
	var ev world.OutcomeEvent
	var atMS int64
	err := r.db.QueryRow(ctx,
		`SELECT match_id, COALESCE(winner, ''), survivors, at_ms
		 FROM match_outcomes WHERE match_id = $1`,
		matchID,
	).Scan(&ev.MatchID, &ev.Winner, &ev.Survivors, &atMS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return world.OutcomeEvent{}, ErrOutcomeNotFound
		}
		return world.OutcomeEvent{}, fmt.Errorf("querying outcome: %w", err)
	}
	ev.At = time.Duration(atMS) * time.Millisecond
	return ev, nil
}

// Kills counts killing blows per killer across a match.
func (r *JournalRepository) Kills(ctx context.Context, matchID string) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT killer_id, COUNT(*) FROM match_deaths
		 WHERE match_id = $1 AND killer_id IS NOT NULL
		 GROUP BY killer_id`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying kills: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning kills: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
