// Package storetest holds a conformance suite every store driver must pass.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/jensholdgaard/swiss-tournament/internal/event"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
)

// Factory returns a fresh, empty, migrated set of repositories.
type Factory func(t *testing.T) *store.Repositories

// Run exercises every repository contract against repositories from newRepos.
func Run(t *testing.T, newRepos Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, newRepos Factory)
	}{
		{"tournaments", testTournaments},
		{"players listed by tournament", testPlayerListByTournament},
		{"player requires tournament", testPlayerUnknownTournament},
		{"record match", testMatchRecord},
		{"record match rolls back", testMatchRecordRollsBack},
		{"concurrent reports", testConcurrentRecords},
		{"delete all keeps references intact", testDeleteAllReferentialIntegrity},
		{"event store", testEventStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRepos)
		})
	}
}

func mustTournament(t *testing.T, repos *store.Repositories, name string) *store.Tournament {
	t.Helper()
	tr := &store.Tournament{Name: name}
	if err := repos.Tournaments.Create(context.Background(), tr); err != nil {
		t.Fatalf("Create tournament %q: %v", name, err)
	}
	return tr
}

func mustPlayer(t *testing.T, repos *store.Repositories, tournamentID int64, name string) *store.Player {
	t.Helper()
	p := &store.Player{TournamentID: tournamentID, Name: name}
	if err := repos.Players.Create(context.Background(), p); err != nil {
		t.Fatalf("Create player %q: %v", name, err)
	}
	return p
}

func testTournaments(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()

	first := mustTournament(t, repos, "Noob Tourney")
	mustTournament(t, repos, "Noob Tourney")
	if first.ID == 0 {
		t.Fatal("expected ID to be set after Create")
	}

	got, err := repos.Tournaments.GetByName(ctx, "Noob Tourney")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("GetByName ID = %d, want oldest %d", got.ID, first.ID)
	}

	n, err := repos.Tournaments.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	if _, err := repos.Tournaments.GetByID(ctx, first.ID+1000); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}

	if err := repos.Tournaments.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n, _ := repos.Tournaments.Count(ctx); n != 0 {
		t.Errorf("Count after DeleteAll = %d, want 0", n)
	}
}

func testPlayerListByTournament(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()

	tr := mustTournament(t, repos, "T")
	other := mustTournament(t, repos, "Other")
	a := mustPlayer(t, repos, tr.ID, "A")
	b := mustPlayer(t, repos, tr.ID, "B")
	mustPlayer(t, repos, other.ID, "Elsewhere")

	if err := repos.Matches.Record(ctx, &store.Match{TournamentID: tr.ID, WinnerID: b.ID, LoserID: a.ID}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	players, err := repos.Players.ListByTournament(ctx, tr.ID)
	if err != nil {
		t.Fatalf("ListByTournament: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("ListByTournament returned %d players, want 2", len(players))
	}
	if players[0].ID != b.ID || players[0].Wins != 1 {
		t.Errorf("first player = %+v, want %q with 1 win", players[0], "B")
	}

	if n, _ := repos.Players.Count(ctx); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func testPlayerUnknownTournament(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	p := &store.Player{TournamentID: 424242, Name: "Orphan"}
	if err := repos.Players.Create(context.Background(), p); err == nil {
		t.Fatal("expected foreign key violation for unknown tournament")
	}
}

func testMatchRecord(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()

	tr := mustTournament(t, repos, "T")
	w := mustPlayer(t, repos, tr.ID, "Winner")
	l := mustPlayer(t, repos, tr.ID, "Loser")

	m := &store.Match{TournamentID: tr.ID, WinnerID: w.ID, LoserID: l.ID}
	if err := repos.Matches.Record(ctx, m); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if m.ID == 0 {
		t.Fatal("expected match ID to be set")
	}

	gotW, _ := repos.Players.GetByID(ctx, w.ID)
	gotL, _ := repos.Players.GetByID(ctx, l.ID)
	if gotW.Wins != 1 || gotW.Losses != 0 {
		t.Errorf("winner tally = %d-%d, want 1-0", gotW.Wins, gotW.Losses)
	}
	if gotL.Wins != 0 || gotL.Losses != 1 {
		t.Errorf("loser tally = %d-%d, want 0-1", gotL.Wins, gotL.Losses)
	}

	matches, err := repos.Matches.ListByTournament(ctx, tr.ID)
	if err != nil {
		t.Fatalf("ListByTournament: %v", err)
	}
	if len(matches) != 1 || matches[0].WinnerID != w.ID {
		t.Errorf("matches = %+v, want one match won by %d", matches, w.ID)
	}
}

func testMatchRecordRollsBack(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()

	tr := mustTournament(t, repos, "T")
	other := mustTournament(t, repos, "Other")
	w := mustPlayer(t, repos, tr.ID, "Winner")
	foreign := mustPlayer(t, repos, other.ID, "Foreign")

	err := repos.Matches.Record(ctx, &store.Match{TournamentID: tr.ID, WinnerID: w.ID, LoserID: foreign.ID})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Record error = %v, want ErrNotFound", err)
	}

	got, _ := repos.Players.GetByID(ctx, w.ID)
	if got.Wins != 0 {
		t.Errorf("winner wins = %d after rollback, want 0", got.Wins)
	}
	matches, _ := repos.Matches.ListByTournament(ctx, tr.ID)
	if len(matches) != 0 {
		t.Errorf("matches = %d after rollback, want 0", len(matches))
	}
}

func testConcurrentRecords(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()

	tr := mustTournament(t, repos, "T")
	a := mustPlayer(t, repos, tr.ID, "A")
	b := mustPlayer(t, repos, tr.ID, "B")

	const reports = 20
	var wg sync.WaitGroup
	errs := make(chan error, reports)
	for i := 0; i < reports; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := &store.Match{TournamentID: tr.ID, WinnerID: a.ID, LoserID: b.ID}
			if i%2 == 1 {
				m.WinnerID, m.LoserID = b.ID, a.ID
			}
			errs <- repos.Matches.Record(ctx, m)
		}(i)
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err != nil {
			failed++
		}
	}

	gotA, _ := repos.Players.GetByID(ctx, a.ID)
	gotB, _ := repos.Players.GetByID(ctx, b.ID)
	matches, _ := repos.Matches.ListByTournament(ctx, tr.ID)
	if len(matches) != reports-failed {
		t.Fatalf("matches = %d, want %d", len(matches), reports-failed)
	}
	if gotA.Matches()+gotB.Matches() != 2*len(matches) {
		t.Errorf("tallies %d+%d do not account for %d matches", gotA.Matches(), gotB.Matches(), len(matches))
	}
	if gotA.Wins != gotB.Losses || gotB.Wins != gotA.Losses {
		t.Errorf("A %d-%d and B %d-%d are inconsistent", gotA.Wins, gotA.Losses, gotB.Wins, gotB.Losses)
	}
}

func testDeleteAllReferentialIntegrity(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()

	tr := mustTournament(t, repos, "T")
	w := mustPlayer(t, repos, tr.ID, "W")
	l := mustPlayer(t, repos, tr.ID, "L")
	if err := repos.Matches.Record(ctx, &store.Match{TournamentID: tr.ID, WinnerID: w.ID, LoserID: l.ID}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := repos.Players.DeleteAll(ctx); err == nil {
		t.Fatal("expected error deleting players still referenced by matches")
	}

	for _, del := range []func(context.Context) error{
		repos.Matches.DeleteAll, repos.Players.DeleteAll, repos.Tournaments.DeleteAll,
	} {
		if err := del(ctx); err != nil {
			t.Fatalf("DeleteAll: %v", err)
		}
	}
	if n, _ := repos.Players.Count(ctx); n != 0 {
		t.Errorf("players after delete = %d, want 0", n)
	}
}

func testEventStore(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()

	agg := event.TournamentAggregate(1)
	events := []event.Event{
		{AggregateID: agg, Type: event.TournamentRegistered, Data: json.RawMessage(`{"name":"T"}`)},
		{AggregateID: agg, Type: event.PlayerRegistered, Data: json.RawMessage(`{"player_id":1,"name":"A"}`)},
		{AggregateID: event.SystemAggregate, Type: event.RecordsDeleted, Data: json.RawMessage(`{"table":"matches"}`)},
	}
	if err := repos.Events.Append(ctx, events...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	loaded, err := repos.Events.Load(ctx, agg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Load returned %d events, want 2", len(loaded))
	}
	if loaded[0].Type != event.TournamentRegistered || loaded[1].Type != event.PlayerRegistered {
		t.Errorf("types = [%s, %s], want insertion order", loaded[0].Type, loaded[1].Type)
	}

	deleted, err := repos.Events.LoadByType(ctx, event.RecordsDeleted)
	if err != nil {
		t.Fatalf("LoadByType: %v", err)
	}
	if len(deleted) != 1 {
		t.Errorf("LoadByType returned %d, want 1", len(deleted))
	}

	empty, err := repos.Events.Load(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no events, got %d", len(empty))
	}
}
