package tournament

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/swiss-tournament/internal/event"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
	"github.com/jensholdgaard/swiss-tournament/internal/swiss"
)

// Manager owns tournament bookkeeping: registration, match reporting,
// standings and pairings. It holds no state of its own beyond its
// repositories.
type Manager struct {
	tournaments store.TournamentRepository
	players     store.PlayerRepository
	matches     store.MatchRepository
	events      event.Store
	logger      *slog.Logger
	tracer      trace.Tracer
	reported    metric.Int64Counter
}

// NewManager returns a new tournament Manager.
func NewManager(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider) *Manager {
	return &Manager{
		tournaments: repos.Tournaments,
		players:     repos.Players,
		matches:     repos.Matches,
		events:      repos.Events,
		logger:      logger,
		tracer:      tp.Tracer("github.com/jensholdgaard/swiss-tournament/internal/tournament"),
		reported:    metricnoop.Int64Counter{},
	}
}

// RegisterTournament creates a tournament. Names need not be unique.
func (m *Manager) RegisterTournament(ctx context.Context, name string) (*store.Tournament, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.RegisterTournament",
		trace.WithAttributes(attribute.String("tournament.name", name)),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fail(span, fmt.Errorf("registering tournament: %w", ErrEmptyName))
	}

	t := &store.Tournament{Name: name}
	if err := m.tournaments.Create(ctx, t); err != nil {
		return nil, fail(span, persistence("registering tournament", err))
	}

	m.audit(ctx, event.TournamentAggregate(t.ID), event.TournamentRegistered,
		event.TournamentRegisteredData{Name: name})

	m.logger.InfoContext(ctx, "tournament registered",
		slog.Int64("tournament_id", t.ID),
		slog.String("name", name),
	)
	return t, nil
}

// TournamentByName returns the earliest registered tournament called name.
func (m *Manager) TournamentByName(ctx context.Context, name string) (*store.Tournament, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.TournamentByName")
	defer span.End()

	t, err := m.tournaments.GetByName(ctx, name)
	if err != nil {
		return nil, fail(span, lookupError("looking up tournament", err))
	}
	return t, nil
}

// RegisterPlayer adds a player with a clean 0-0 record to a tournament.
func (m *Manager) RegisterPlayer(ctx context.Context, tournamentID int64, name string) (*store.Player, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.RegisterPlayer",
		trace.WithAttributes(
			attribute.Int64("tournament.id", tournamentID),
			attribute.String("player.name", name),
		),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fail(span, fmt.Errorf("registering player: %w", ErrEmptyName))
	}
	if _, err := m.tournament(ctx, tournamentID); err != nil {
		return nil, fail(span, err)
	}

	p := &store.Player{TournamentID: tournamentID, Name: name}
	if err := m.players.Create(ctx, p); err != nil {
		return nil, fail(span, persistence("registering player", err))
	}

	m.audit(ctx, event.TournamentAggregate(tournamentID), event.PlayerRegistered,
		event.PlayerRegisteredData{PlayerID: p.ID, Name: name})

	m.logger.InfoContext(ctx, "player registered",
		slog.Int64("tournament_id", tournamentID),
		slog.Int64("player_id", p.ID),
		slog.String("name", name),
	)
	return p, nil
}

// ReportMatch records that winnerID beat loserID. The match row and both
// tally updates are committed together or not at all.
func (m *Manager) ReportMatch(ctx context.Context, tournamentID, winnerID, loserID int64) (*store.Match, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.ReportMatch",
		trace.WithAttributes(
			attribute.Int64("tournament.id", tournamentID),
			attribute.Int64("winner.id", winnerID),
			attribute.Int64("loser.id", loserID),
		),
	)
	defer span.End()

	if winnerID == loserID {
		return nil, fail(span, fmt.Errorf("reporting match for player %d: %w", winnerID, ErrSamePlayer))
	}
	if _, err := m.tournament(ctx, tournamentID); err != nil {
		return nil, fail(span, err)
	}
	for _, id := range []int64{winnerID, loserID} {
		if err := m.checkMember(ctx, tournamentID, id); err != nil {
			return nil, fail(span, err)
		}
	}

	match := &store.Match{TournamentID: tournamentID, WinnerID: winnerID, LoserID: loserID}
	if err := m.matches.Record(ctx, match); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A participant vanished or moved between the check and the write.
			return nil, fail(span, fmt.Errorf("reporting match: %w", ErrInvalidPlayer))
		}
		return nil, fail(span, persistence("reporting match", err))
	}

	m.reported.Add(ctx, 1)
	m.audit(ctx, event.TournamentAggregate(tournamentID), event.MatchReported,
		event.MatchReportedData{MatchID: match.ID, WinnerID: winnerID, LoserID: loserID})

	m.logger.InfoContext(ctx, "match reported",
		slog.Int64("tournament_id", tournamentID),
		slog.Int64("match_id", match.ID),
		slog.Int64("winner_id", winnerID),
		slog.Int64("loser_id", loserID),
	)
	return match, nil
}

// Standings returns every player of the tournament ranked by wins, ties
// broken by player ID. A tournament without players yields an empty slice.
func (m *Manager) Standings(ctx context.Context, tournamentID int64) ([]swiss.Standing, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Standings",
		trace.WithAttributes(attribute.Int64("tournament.id", tournamentID)),
	)
	defer span.End()

	standings, err := m.standings(ctx, tournamentID)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("players", len(standings)))
	return standings, nil
}

// Pairings returns next-round matchups by pairing adjacent players in the
// standings. It fails with ErrOddPlayerCount when the field is odd.
func (m *Manager) Pairings(ctx context.Context, tournamentID int64) ([]swiss.Pairing, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Pairings",
		trace.WithAttributes(attribute.Int64("tournament.id", tournamentID)),
	)
	defer span.End()

	standings, err := m.standings(ctx, tournamentID)
	if err != nil {
		return nil, fail(span, err)
	}
	pairs, err := swiss.Pair(standings)
	if err != nil {
		return nil, fail(span, fmt.Errorf("tournament %d: %w", tournamentID, err))
	}
	return pairs, nil
}

// Matches returns the tournament's match log in the order results were reported.
func (m *Manager) Matches(ctx context.Context, tournamentID int64) ([]store.Match, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Matches",
		trace.WithAttributes(attribute.Int64("tournament.id", tournamentID)),
	)
	defer span.End()

	if _, err := m.tournament(ctx, tournamentID); err != nil {
		return nil, fail(span, err)
	}
	matches, err := m.matches.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fail(span, persistence("listing matches", err))
	}
	return matches, nil
}

// DeleteMatches removes every match record.
func (m *Manager) DeleteMatches(ctx context.Context) error {
	return m.deleteAll(ctx, "matches", m.matches.DeleteAll)
}

// DeletePlayers removes every player record. Matches must be deleted first.
func (m *Manager) DeletePlayers(ctx context.Context) error {
	return m.deleteAll(ctx, "players", m.players.DeleteAll)
}

// DeleteTournaments removes every tournament record. Players must be deleted first.
func (m *Manager) DeleteTournaments(ctx context.Context) error {
	return m.deleteAll(ctx, "tournaments", m.tournaments.DeleteAll)
}

// CountTournaments returns the number of registered tournaments.
func (m *Manager) CountTournaments(ctx context.Context) (int, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CountTournaments")
	defer span.End()

	n, err := m.tournaments.Count(ctx)
	if err != nil {
		return 0, fail(span, persistence("counting tournaments", err))
	}
	return n, nil
}

// CountPlayers returns the number of registered players across all tournaments.
func (m *Manager) CountPlayers(ctx context.Context) (int, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CountPlayers")
	defer span.End()

	n, err := m.players.Count(ctx)
	if err != nil {
		return 0, fail(span, persistence("counting players", err))
	}
	return n, nil
}

func (m *Manager) deleteAll(ctx context.Context, table string, del func(context.Context) error) error {
	ctx, span := m.tracer.Start(ctx, "Manager.DeleteAll",
		trace.WithAttributes(attribute.String("table", table)),
	)
	defer span.End()

	if err := del(ctx); err != nil {
		return fail(span, persistence("deleting "+table, err))
	}

	m.audit(ctx, event.SystemAggregate, event.RecordsDeleted, event.RecordsDeletedData{Table: table})
	m.logger.InfoContext(ctx, "records deleted", slog.String("table", table))
	return nil
}

func (m *Manager) standings(ctx context.Context, tournamentID int64) ([]swiss.Standing, error) {
	if _, err := m.tournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	players, err := m.players.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, persistence("listing players", err)
	}
	return swiss.Rank(players), nil
}

func (m *Manager) tournament(ctx context.Context, id int64) (*store.Tournament, error) {
	t, err := m.tournaments.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(fmt.Sprintf("tournament %d", id), err)
	}
	return t, nil
}

// checkMember reports ErrInvalidPlayer unless playerID exists and belongs to
// tournamentID. An unknown player also matches ErrNotFound.
func (m *Manager) checkMember(ctx context.Context, tournamentID, playerID int64) error {
	p, err := m.players.GetByID(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("player %d: %w: %w", playerID, ErrInvalidPlayer, ErrNotFound)
	}
	if err != nil {
		return persistence("looking up player", err)
	}
	if p.TournamentID != tournamentID {
		return fmt.Errorf("player %d belongs to tournament %d, not %d: %w",
			playerID, p.TournamentID, tournamentID, ErrInvalidPlayer)
	}
	return nil
}

// audit appends an event to the audit log. The tallies are the source of
// truth, so a failed append is logged rather than returned.
func (m *Manager) audit(ctx context.Context, aggregateID string, typ event.Type, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to encode audit event", slog.String("type", string(typ)), slog.Any("error", err))
		return
	}
	evt := event.Event{AggregateID: aggregateID, Type: typ, Data: data}
	if err := m.events.Append(ctx, evt); err != nil {
		m.logger.ErrorContext(ctx, "failed to append audit event", slog.String("type", string(typ)), slog.Any("error", err))
	}
}

func lookupError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return persistence(op, err)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
