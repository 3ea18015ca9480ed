package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
)

// TournamentRepo implements store.TournamentRepository using database/sql.
type TournamentRepo struct {
	db    *sql.DB
	clock clock.Clock
}

// NewTournamentRepo returns a new TournamentRepo.
func NewTournamentRepo(db *sql.DB, clk clock.Clock) *TournamentRepo {
	return &TournamentRepo{db: db, clock: clk}
}

func (r *TournamentRepo) Create(ctx context.Context, t *store.Tournament) error {
	t.CreatedAt = r.clock.Now().UTC()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tournaments (name, created_at) VALUES ($1, $2) RETURNING id`,
		t.Name, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("inserting tournament: %w", err)
	}
	return nil
}

func (r *TournamentRepo) GetByID(ctx context.Context, id int64) (*store.Tournament, error) {
	t := &store.Tournament{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tournaments WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tournament %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting tournament: %w", err)
	}
	return t, nil
}

func (r *TournamentRepo) GetByName(ctx context.Context, name string) (*store.Tournament, error) {
	t := &store.Tournament{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tournaments WHERE name = $1 ORDER BY id ASC LIMIT 1`, name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tournament %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting tournament by name: %w", err)
	}
	return t, nil
}

func (r *TournamentRepo) Count(ctx context.Context) (int, error) {
	n, err := count(ctx, r.db, `SELECT COUNT(*) FROM tournaments`)
	if err != nil {
		return 0, fmt.Errorf("counting tournaments: %w", err)
	}
	return n, nil
}

func (r *TournamentRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tournaments`); err != nil {
		return fmt.Errorf("deleting tournaments: %w", err)
	}
	return nil
}
