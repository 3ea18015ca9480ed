package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
)

// creditResult updates both tallies in one statement so the two row locks
// are taken together. Only rows inside the match's tournament qualify.
const creditResult = `UPDATE players
	SET wins   = wins   + CASE WHEN id = $1 THEN 1 ELSE 0 END,
	    losses = losses + CASE WHEN id = $2 THEN 1 ELSE 0 END
	WHERE id IN ($1, $2) AND tournament_id = $3`

// MatchRepo implements store.MatchRepository with sqlx.
type MatchRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewMatchRepo returns a new MatchRepo.
func NewMatchRepo(db *sqlx.DB, clk clock.Clock) *MatchRepo {
	return &MatchRepo{db: db, clock: clk}
}

func (r *MatchRepo) Record(ctx context.Context, m *store.Match) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, creditResult, m.WinnerID, m.LoserID, m.TournamentID)
	if err != nil {
		return fmt.Errorf("updating tallies: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating tallies: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("players %d and %d in tournament %d: %w", m.WinnerID, m.LoserID, m.TournamentID, store.ErrNotFound)
	}

	m.CreatedAt = r.clock.Now().UTC()
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO matches (tournament_id, winner_id, loser_id, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		m.TournamentID, m.WinnerID, m.LoserID, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing match: %w", err)
	}
	return nil
}

func (r *MatchRepo) ListByTournament(ctx context.Context, tournamentID int64) ([]store.Match, error) {
	matches := []store.Match{}
	err := r.db.SelectContext(ctx, &matches,
		`SELECT id, tournament_id, winner_id, loser_id, created_at
		 FROM matches WHERE tournament_id = $1 ORDER BY id ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	return matches, nil
}

func (r *MatchRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM matches`); err != nil {
		return fmt.Errorf("deleting matches: %w", err)
	}
	return nil
}
