package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/store"
	"github.com/jensholdgaard/swiss-tournament/internal/store/postgres"
	"github.com/jensholdgaard/swiss-tournament/internal/store/schema"
	"github.com/jensholdgaard/swiss-tournament/internal/store/storetest"
)

// newTestDB starts a Postgres container, applies the migrations, and returns
// a connected *sqlx.DB. The container is automatically terminated when the
// test ends.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("tournament_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := schema.Apply(ctx, db); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}

	return db
}

func newTestRepos(t *testing.T) *store.Repositories {
	t.Helper()
	return postgres.NewRepositories(newTestDB(t), clock.Real{})
}

func TestRepositories(t *testing.T) {
	storetest.Run(t, newTestRepos)
}

func TestNewRepositories_Migrate(t *testing.T) {
	repos := newTestRepos(t)
	// The schema is already applied; applying it again must be a no-op.
	if err := repos.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := repos.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
