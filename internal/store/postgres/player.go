package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
)

// PlayerRepo implements store.PlayerRepository with sqlx.
type PlayerRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewPlayerRepo returns a new PlayerRepo.
func NewPlayerRepo(db *sqlx.DB, clk clock.Clock) *PlayerRepo {
	return &PlayerRepo{db: db, clock: clk}
}

func (r *PlayerRepo) Create(ctx context.Context, p *store.Player) error {
	p.CreatedAt = r.clock.Now().UTC()
	p.Wins, p.Losses = 0, 0
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO players (tournament_id, name, wins, losses, created_at)
		 VALUES ($1, $2, 0, 0, $3)
		 RETURNING id`,
		p.TournamentID, p.Name, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("inserting player: %w", err)
	}
	return nil
}

func (r *PlayerRepo) GetByID(ctx context.Context, id int64) (*store.Player, error) {
	var p store.Player
	err := r.db.GetContext(ctx, &p,
		`SELECT id, tournament_id, name, wins, losses, created_at FROM players WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return &p, nil
}

func (r *PlayerRepo) ListByTournament(ctx context.Context, tournamentID int64) ([]store.Player, error) {
	players := []store.Player{}
	err := r.db.SelectContext(ctx, &players,
		`SELECT id, tournament_id, name, wins, losses, created_at
		 FROM players WHERE tournament_id = $1
		 ORDER BY wins DESC, id ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	return players, nil
}

func (r *PlayerRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM players`); err != nil {
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
