package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a record does not exist or,
// for MatchRepository.Record, when a participant is not part of the tournament.
var ErrNotFound = errors.New("record not found")

// Tournament represents a registered tournament.
type Tournament struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Player represents a tournament member and their win/loss tally.
type Player struct {
	ID           int64     `db:"id"`
	TournamentID int64     `db:"tournament_id"`
	Name         string    `db:"name"`
	Wins         int       `db:"wins"`
	Losses       int       `db:"losses"`
	CreatedAt    time.Time `db:"created_at"`
}

// Matches returns the number of matches the player has played.
func (p Player) Matches() int { return p.Wins + p.Losses }

// Match is an immutable record of a single reported result.
type Match struct {
	ID           int64     `db:"id"`
	TournamentID int64     `db:"tournament_id"`
	WinnerID     int64     `db:"winner_id"`
	LoserID      int64     `db:"loser_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// TournamentRepository defines tournament persistence operations.
type TournamentRepository interface {
	Create(ctx context.Context, t *Tournament) error
	GetByID(ctx context.Context, id int64) (*Tournament, error)
	// GetByName returns the oldest tournament registered under name.
	GetByName(ctx context.Context, name string) (*Tournament, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// PlayerRepository defines player persistence operations.
type PlayerRepository interface {
	Create(ctx context.Context, p *Player) error
	GetByID(ctx context.Context, id int64) (*Player, error)
	ListByTournament(ctx context.Context, tournamentID int64) ([]Player, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// MatchRepository defines match persistence operations.
type MatchRepository interface {
	// Record appends m and credits the winner with a win and the loser with
	// a loss as a single atomic unit. If either participant is not a member
	// of m.TournamentID nothing is written and ErrNotFound is returned.
	Record(ctx context.Context, m *Match) error
	ListByTournament(ctx context.Context, tournamentID int64) ([]Match, error)
	DeleteAll(ctx context.Context) error
}
