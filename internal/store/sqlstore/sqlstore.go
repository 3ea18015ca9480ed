// Package sqlstore provides the "sql" store.Driver: the same Postgres schema
// as the sqlx driver, accessed through plain database/sql with OTEL
// instrumentation via otelsql.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq" // postgres driver
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/config"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
	"github.com/jensholdgaard/swiss-tournament/internal/store/schema"
)

func init() {
	store.Register("sql", open)
}

func open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRepositories(db, clk), nil
}

// NewRepositories wires every database/sql repository to db.
func NewRepositories(db *sql.DB, clk clock.Clock) *store.Repositories {
	return &store.Repositories{
		Tournaments: NewTournamentRepo(db, clk),
		Players:     NewPlayerRepo(db, clk),
		Matches:     NewMatchRepo(db, clk),
		Events:      NewEventStore(db, clk),
		Closer:      db,
		Ping:        db.PingContext,
		Migrate: func(ctx context.Context) error {
			return schema.Apply(ctx, db)
		},
	}
}

// Connect opens and verifies a Postgres connection via database/sql with OTEL
// instrumentation.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := otelsql.Open("postgres", cfg.DSN(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// count runs a single-column COUNT query.
func count(ctx context.Context, db *sql.DB, query string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
