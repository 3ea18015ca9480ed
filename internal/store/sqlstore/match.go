package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
)

// MatchRepo implements store.MatchRepository using database/sql.
type MatchRepo struct {
	db    *sql.DB
	clock clock.Clock
}

// NewMatchRepo returns a new MatchRepo.
func NewMatchRepo(db *sql.DB, clk clock.Clock) *MatchRepo {
	return &MatchRepo{db: db, clock: clk}
}

func (r *MatchRepo) Record(ctx context.Context, m *store.Match) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE players
		 SET wins   = wins   + CASE WHEN id = $1 THEN 1 ELSE 0 END,
		     losses = losses + CASE WHEN id = $2 THEN 1 ELSE 0 END
		 WHERE id IN ($1, $2) AND tournament_id = $3`,
		m.WinnerID, m.LoserID, m.TournamentID,
	)
	if err != nil {
		return fmt.Errorf("updating tallies: %w", err)
	}
	if err := bothCredited(result, m); err != nil {
		return err
	}

	m.CreatedAt = r.clock.Now().UTC()
	err = tx.QueryRowContext(ctx,
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
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tournament_id, winner_id, loser_id, created_at
		 FROM matches WHERE tournament_id = $1 ORDER BY id ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	matches := []store.Match{}
	for rows.Next() {
		var m store.Match
		if err := rows.Scan(&m.ID, &m.TournamentID, &m.WinnerID, &m.LoserID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *MatchRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM matches`); err != nil {
		return fmt.Errorf("deleting matches: %w", err)
	}
	return nil
}

// bothCredited reports store.ErrNotFound unless the tally update touched
// exactly the winner and the loser.
func bothCredited(result sql.Result, m *store.Match) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating tallies: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("players %d and %d in tournament %d: %w", m.WinnerID, m.LoserID, m.TournamentID, store.ErrNotFound)
	}
	return nil
}
