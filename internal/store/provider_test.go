package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jensholdgaard/swiss-tournament/internal/clock"
	"github.com/jensholdgaard/swiss-tournament/internal/config"
	"github.com/jensholdgaard/swiss-tournament/internal/store"

	// Import drivers so their init() functions register them.
	_ "github.com/jensholdgaard/swiss-tournament/internal/store/memory"
	_ "github.com/jensholdgaard/swiss-tournament/internal/store/postgres"
	_ "github.com/jensholdgaard/swiss-tournament/internal/store/sqlstore"
)

// fakeDriver is a store.Driver that always succeeds without connecting to a DB.
func fakeDriver(_ context.Context, _ config.DatabaseConfig, _ clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{}, nil
}

func TestOpen(t *testing.T) {
	store.Register("test-driver", fakeDriver)

	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{
			name:   "registered driver succeeds",
			driver: "test-driver",
		},
		{
			name:   "memory driver needs no database",
			driver: "memory",
		},
		{
			name:    "unknown driver fails",
			driver:  "nonexistent",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DatabaseConfig{Driver: tt.driver}
			_, err := store.Open(context.Background(), cfg, clock.Real{})
			if (err != nil) != tt.wantErr {
				t.Errorf("Open(driver=%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
		})
	}
}

func TestOpen_UnknownDriverListsRegistered(t *testing.T) {
	_, err := store.Open(context.Background(), config.DatabaseConfig{Driver: "nope"}, clock.Real{})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	for _, name := range []string{"memory", "sql", "sqlx"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not list registered driver %q", err, name)
		}
	}
}

func TestRegister_SQLDrivers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping connection attempt in short mode")
	}
	// The SQL drivers will fail to connect (no DB on port 1), so we only
	// check that the error is NOT "unknown store driver".
	for _, driver := range []string{"sqlx", "sql"} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.DatabaseConfig{Driver: driver, Host: "127.0.0.1", Port: 1, SSLMode: "disable"}
			_, err := store.Open(context.Background(), cfg, clock.Real{})
			if err == nil {
				t.Fatal("expected error (no DB running), got nil")
			}
			if strings.Contains(err.Error(), "unknown store driver") {
				t.Errorf("expected connection error, got unknown driver error: %v", err)
			}
		})
	}
}

func TestPlayer_Matches(t *testing.T) {
	p := store.Player{Wins: 3, Losses: 2}
	if got := p.Matches(); got != 5 {
		t.Errorf("Matches() = %d, want 5", got)
	}
}
