// Package memory provides the "memory" store.Driver: an in-process store with
// the same referential and atomicity guarantees as the Postgres schema. It is
// meant for local runs and tests; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/config"
	"github.com/jensholdgaard/swiss-tournament/internal/event"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
)

func init() {
	store.Register("memory", func(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		return New(clk).Repositories(), nil
	})
}

// DB keeps every table in memory behind a single lock.
type DB struct {
	mu    sync.RWMutex
	clock clock.Clock

	nextID      int64
	tournaments map[int64]store.Tournament
	players     map[int64]store.Player
	matches     []store.Match
	events      []event.Event
}

// New constructs an empty DB.
func New(clk clock.Clock) *DB {
	return &DB{
		clock:       clk,
		tournaments: make(map[int64]store.Tournament),
		players:     make(map[int64]store.Player),
	}
}

// Repositories returns repositories sharing this DB.
func (db *DB) Repositories() *store.Repositories {
	return &store.Repositories{
		Tournaments: tournamentRepo{db},
		Players:     playerRepo{db},
		Matches:     matchRepo{db},
		Events:      eventStore{db},
		Closer:      store.CloserFunc(func() error { return nil }),
		Ping:        func(context.Context) error { return nil },
		Migrate:     func(context.Context) error { return nil },
	}
}

// id must be called with mu held for writing.
func (db *DB) id() int64 {
	db.nextID++
	return db.nextID
}

type tournamentRepo struct{ db *DB }

func (r tournamentRepo) Create(_ context.Context, t *store.Tournament) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t.ID = r.db.id()
	t.CreatedAt = r.db.clock.Now().UTC()
	r.db.tournaments[t.ID] = *t
	return nil
}

func (r tournamentRepo) GetByID(_ context.Context, id int64) (*store.Tournament, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("tournament %d: %w", id, store.ErrNotFound)
	}
	return &t, nil
}

func (r tournamentRepo) GetByName(_ context.Context, name string) (*store.Tournament, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var found *store.Tournament
	for _, t := range r.db.tournaments {
		if t.Name != name || (found != nil && found.ID < t.ID) {
			continue
		}
		t := t
		found = &t
	}
	if found == nil {
		return nil, fmt.Errorf("tournament %q: %w", name, store.ErrNotFound)
	}
	return found, nil
}

func (r tournamentRepo) Count(context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.tournaments), nil
}

func (r tournamentRepo) DeleteAll(context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if n := len(r.db.players); n > 0 {
		return fmt.Errorf("deleting tournaments: still referenced by %d players", n)
	}
	if n := len(r.db.matches); n > 0 {
		return fmt.Errorf("deleting tournaments: still referenced by %d matches", n)
	}
	r.db.tournaments = make(map[int64]store.Tournament)
	return nil
}

type playerRepo struct{ db *DB }

func (r playerRepo) Create(_ context.Context, p *store.Player) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tournaments[p.TournamentID]; !ok {
		return fmt.Errorf("inserting player: tournament %d does not exist", p.TournamentID)
	}
	p.ID = r.db.id()
	p.Wins, p.Losses = 0, 0
	p.CreatedAt = r.db.clock.Now().UTC()
	r.db.players[p.ID] = *p
	return nil
}

func (r playerRepo) GetByID(_ context.Context, id int64) (*store.Player, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.players[id]
	if !ok {
		return nil, fmt.Errorf("player %d: %w", id, store.ErrNotFound)
	}
	return &p, nil
}

func (r playerRepo) ListByTournament(_ context.Context, tournamentID int64) ([]store.Player, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	players := []store.Player{}
	for _, p := range r.db.players {
		if p.TournamentID == tournamentID {
			players = append(players, p)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Wins != players[j].Wins {
			return players[i].Wins > players[j].Wins
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

func (r playerRepo) Count(context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.players), nil
}

func (r playerRepo) DeleteAll(context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if n := len(r.db.matches); n > 0 {
		return fmt.Errorf("deleting players: still referenced by %d matches", n)
	}
	r.db.players = make(map[int64]store.Player)
	return nil
}

type matchRepo struct{ db *DB }

func (r matchRepo) Record(_ context.Context, m *store.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if m.WinnerID == m.LoserID {
		return fmt.Errorf("inserting match: winner and loser are both player %d", m.WinnerID)
	}
	winner, ok := r.db.players[m.WinnerID]
	if !ok || winner.TournamentID != m.TournamentID {
		return fmt.Errorf("player %d in tournament %d: %w", m.WinnerID, m.TournamentID, store.ErrNotFound)
	}
	loser, ok := r.db.players[m.LoserID]
	if !ok || loser.TournamentID != m.TournamentID {
		return fmt.Errorf("player %d in tournament %d: %w", m.LoserID, m.TournamentID, store.ErrNotFound)
	}

	winner.Wins++
	loser.Losses++
	m.ID = r.db.id()
	m.CreatedAt = r.db.clock.Now().UTC()

	r.db.players[winner.ID] = winner
	r.db.players[loser.ID] = loser
	r.db.matches = append(r.db.matches, *m)
	return nil
}

func (r matchRepo) ListByTournament(_ context.Context, tournamentID int64) ([]store.Match, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	matches := []store.Match{}
	for _, m := range r.db.matches {
		if m.TournamentID == tournamentID {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (r matchRepo) DeleteAll(context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.matches = nil
	return nil
}

type eventStore struct{ db *DB }

func (s eventStore) Append(_ context.Context, events ...event.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.clock.Now().UTC()
	for _, e := range events {
		e.ID = s.db.id()
		e.CreatedAt = now
		s.db.events = append(s.db.events, e)
	}
	return nil
}

func (s eventStore) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	return s.filter(func(e event.Event) bool { return e.AggregateID == aggregateID }), nil
}

func (s eventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	return s.filter(func(e event.Event) bool { return e.Type == eventType }), nil
}

func (s eventStore) filter(keep func(event.Event) bool) []event.Event {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []event.Event
	for _, e := range s.db.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
