package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jensholdgaard/swiss-tournament/internal/config"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "valid full config",
			yaml: `
database:
  host: "db.example.com"
  port: 5433
  user: "swiss"
  password: "secret"
  dbname: "tournament"
  sslmode: "require"
  driver: "sqlx"
  migrate: false
server:
  port: 9090
  shutdown_timeout: 5s
telemetry:
  service_name: "my-swissd"
  otlp_endpoint: "localhost:4318"
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Port != 5433 {
					t.Errorf("got db port %d, want %d", cfg.Database.Port, 5433)
				}
				if cfg.Database.Migrate {
					t.Error("got migrate true, want false")
				}
				if cfg.Server.Port != 9090 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 9090)
				}
				if cfg.Server.ShutdownTimeout != 5*time.Second {
					t.Errorf("got shutdown timeout %s, want 5s", cfg.Server.ShutdownTimeout)
				}
				if cfg.Telemetry.ServiceName != "my-swissd" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "my-swissd")
				}
			},
		},
		{
			name: "defaults applied",
			yaml: `
server:
  port: 8081
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Host != "localhost" {
					t.Errorf("got db host %q, want %q", cfg.Database.Host, "localhost")
				}
				if cfg.Database.Port != 5432 {
					t.Errorf("got db port %d, want %d", cfg.Database.Port, 5432)
				}
				if cfg.Database.DBName != "tournament" {
					t.Errorf("got dbname %q, want %q", cfg.Database.DBName, "tournament")
				}
				if cfg.Database.Driver != "sqlx" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "sqlx")
				}
				if !cfg.Database.Migrate {
					t.Error("got migrate false, want true")
				}
				if cfg.Telemetry.ServiceName != "swissd" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "swissd")
				}
			},
		},
		{
			name:    "invalid yaml",
			yaml:    `{{{invalid`,
			wantErr: true,
		},
		{
			name: "sql driver accepted",
			yaml: `
database:
  driver: "sql"
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Driver != "sql" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "sql")
				}
			},
		},
		{
			name: "memory driver accepted",
			yaml: `
database:
  driver: "memory"
`,
		},
		{
			name: "invalid driver rejected",
			yaml: `
database:
  driver: "mongodb"
`,
			wantErr: true,
		},
		{
			name: "invalid server port rejected",
			yaml: `
server:
  port: 70000
`,
			wantErr: true,
		},
		{
			name: "renew deadline must be shorter than lease",
			yaml: `
leader_election:
  enabled: true
  lease_duration: 5s
  renew_deadline: 10s
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(writeConfig(t, tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SWISS_DB_HOST", "pg.internal")
	t.Setenv("SWISS_DB_PORT", "6432")
	t.Setenv("SWISS_DB_PASSWORD", "from-env")
	t.Setenv("SWISS_DB_DRIVER", "sql")
	t.Setenv("SWISS_OTLP_ENDPOINT", "collector:4318")

	cfg, err := config.Load(writeConfig(t, `
database:
  host: "ignored"
  password: "ignored"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Host != "pg.internal" {
		t.Errorf("got host %q, want %q", cfg.Database.Host, "pg.internal")
	}
	if cfg.Database.Port != 6432 {
		t.Errorf("got port %d, want 6432", cfg.Database.Port)
	}
	if cfg.Database.Password != "from-env" {
		t.Errorf("got password %q, want %q", cfg.Database.Password, "from-env")
	}
	if cfg.Database.Driver != "sql" {
		t.Errorf("got driver %q, want %q", cfg.Database.Driver, "sql")
	}
	if cfg.Telemetry.OTLPEndpoint != "collector:4318" {
		t.Errorf("got endpoint %q, want %q", cfg.Telemetry.OTLPEndpoint, "collector:4318")
	}
}

func TestLoad_InvalidEnvPort(t *testing.T) {
	t.Setenv("SWISS_DB_PORT", "not-a-port")
	if _, err := config.Load(writeConfig(t, "server:\n  port: 8080\n")); err == nil {
		t.Fatal("expected error for non-numeric SWISS_DB_PORT")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=user password=pass dbname=testdb sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
