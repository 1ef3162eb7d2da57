package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
driver: pgx
dsn: postgres://localhost:5432/app
log_level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Driver:   DriverPGX,
		DSN:      "postgres://localhost:5432/app",
		LogLevel: "debug",
	}, cfg)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "driver: sqlite3\ndatabase: app.db\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/db.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestConfigMerge(t *testing.T) {
	base := Config{Driver: DriverPostgres, DSN: "postgres://file", LogLevel: "warn"}

	merged := base.Merge(Config{DSN: "postgres://flag", Dialect: "postgres"})

	assert.Equal(t, Config{
		Driver:   DriverPostgres,
		DSN:      "postgres://flag",
		Dialect:  "postgres",
		LogLevel: "warn",
	}, merged)
	assert.Equal(t, "postgres://file", base.DSN, "merge must not modify the receiver")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"sqlite", Config{Driver: DriverSQLite, DSN: ":memory:"}, ""},
		{"pgx", Config{Driver: DriverPGX, DSN: "postgres://x"}, ""},
		{"postgres with level", Config{Driver: DriverPostgres, DSN: "postgres://x", LogLevel: "error"}, ""},
		{"missing driver", Config{DSN: "x"}, "driver is required"},
		{"unknown driver", Config{Driver: "mysql", DSN: "x"}, `unsupported driver "mysql"`},
		{"missing dsn", Config{Driver: DriverSQLite}, "dsn is required"},
		{"unknown dialect", Config{Driver: DriverSQLite, DSN: "x", Dialect: "oracle"}, `unsupported dialect "oracle"`},
		{"bad level", Config{Driver: DriverSQLite, DSN: "x", LogLevel: "loud"}, `invalid log_level "loud"`},
		{"pgx with replica", Config{Driver: DriverPGX, DSN: "postgres://x", ReplicaDSN: "postgres://y"}, ""},
		{"replica needs pgx", Config{Driver: DriverSQLite, DSN: "x", ReplicaDSN: "y"}, "replica_dsn requires driver pgx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigReplica(t *testing.T) {
	path := writeConfig(t, "driver: pgx\ndsn: postgres://primary/app\nreplica_dsn: postgres://replica/app\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://replica/app", cfg.ReplicaDSN)

	merged := cfg.Merge(Config{ReplicaDSN: "postgres://other/app"})
	assert.Equal(t, "postgres://other/app", merged.ReplicaDSN)
	assert.Equal(t, "postgres://primary/app", merged.DSN)
}

func TestOpenBackendBadReplicaDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Both pools are created before any connection is attempted.
	_, err := openBackend(ctx, Config{
		Driver:     DriverPGX,
		DSN:        "postgres://localhost:5432/app",
		ReplicaDSN: "postgres://localhost:notaport/app",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create replica pool")
}

func TestConfigSQLDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", Config{Driver: DriverSQLite}.SQLDialect())
	assert.Equal(t, "postgres", Config{Driver: DriverPGX}.SQLDialect())
	assert.Equal(t, "postgres", Config{Driver: DriverPostgres}.SQLDialect())
	assert.Equal(t, "sqlite3", Config{Driver: DriverPostgres, Dialect: "sqlite3"}.SQLDialect())
}

func TestConfigLevel(t *testing.T) {
	level, err := Config{}.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	level, err = Config{LogLevel: "debug"}.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = Config{LogLevel: "WARN"}.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
