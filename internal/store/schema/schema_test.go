package schema_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/jensholdgaard/swiss-tournament/internal/store/schema"
)

type recordingExecer struct {
	queries []string
	err     error
}

func (r *recordingExecer) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.queries = append(r.queries, query)
	return nil, nil
}

func TestMigrations(t *testing.T) {
	ms, err := schema.Migrations()
	if err != nil {
		t.Fatalf("Migrations() error = %v", err)
	}
	if len(ms) == 0 {
		t.Fatal("expected at least one migration")
	}
	if !strings.HasSuffix(ms[0].Name, "001_initial.sql") {
		t.Errorf("first migration = %q, want 001_initial.sql", ms[0].Name)
	}
	for _, table := range []string{"tournaments", "players", "matches", "events"} {
		if !strings.Contains(ms[0].SQL, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("initial migration does not create %s", table)
		}
	}
}

func TestApply(t *testing.T) {
	rec := &recordingExecer{}
	if err := schema.Apply(context.Background(), rec); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	ms, _ := schema.Migrations()
	if len(rec.queries) != len(ms) {
		t.Errorf("executed %d statements, want %d", len(rec.queries), len(ms))
	}
}

func TestApply_Error(t *testing.T) {
	rec := &recordingExecer{err: errors.New("syntax error")}
	if err := schema.Apply(context.Background(), rec); err == nil {
		t.Fatal("expected error from failing execer")
	}
}
