package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
)

const playerColumns = `id, tournament_id, name, wins, losses, created_at`

// PlayerRepo implements store.PlayerRepository using database/sql.
type PlayerRepo struct {
	db    *sql.DB
	clock clock.Clock
}

// NewPlayerRepo returns a new PlayerRepo.
func NewPlayerRepo(db *sql.DB, clk clock.Clock) *PlayerRepo {
	return &PlayerRepo{db: db, clock: clk}
}

func (r *PlayerRepo) Create(ctx context.Context, p *store.Player) error {
	p.CreatedAt = r.clock.Now().UTC()
	p.Wins, p.Losses = 0, 0
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO players (tournament_id, name, wins, losses, created_at)
		 VALUES ($1, $2, 0, 0, $3) RETURNING id`,
		p.TournamentID, p.Name, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("inserting player: %w", err)
	}
	return nil
}

func (r *PlayerRepo) GetByID(ctx context.Context, id int64) (*store.Player, error) {
	p := &store.Player{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.TournamentID, &p.Name, &p.Wins, &p.Losses, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return p, nil
}

func (r *PlayerRepo) ListByTournament(ctx context.Context, tournamentID int64) ([]store.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE tournament_id = $1 ORDER BY wins DESC, id ASC`,
		tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	players := []store.Player{}
	for rows.Next() {
		var p store.Player
		if err := rows.Scan(&p.ID, &p.TournamentID, &p.Name, &p.Wins, &p.Losses, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning player row: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *PlayerRepo) Count(ctx context.Context) (int, error) {
	n, err := count(ctx, r.db, `SELECT COUNT(*) FROM players`)
	if err != nil {
		return 0, fmt.Errorf("counting players: %w", err)
	}
	return n, nil
}

func (r *PlayerRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return fmt.Errorf("deleting players: %w", err)
	}
	return nil
}
