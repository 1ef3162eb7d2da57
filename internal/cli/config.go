package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"github.com/bitfox-hash/querydsl/internal/adapters"
	"github.com/bitfox-hash/querydsl/internal/querysql"
	"github.com/bitfox-hash/querydsl/internal/store"
)

// Supported backend drivers.
const (
	DriverSQLite   = "sqlite3"  // go-sqlite3 through store.Open
	DriverPGX      = "pgx"      // pgxpool
	DriverPostgres = "postgres" // sqlx over lib/pq
)

// Config selects the backend a query runs against.
//
//	driver: pgx
//	dsn: postgres://localhost:5432/app
//	replica_dsn: postgres://replica:5432/app
//	log_level: debug
//
// replica_dsn is only honored by the pgx driver: queries read from the
// replica while DDL and inserts go to dsn.
type Config struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	ReplicaDSN string `yaml:"replica_dsn,omitempty"`
	Dialect    string `yaml:"dialect,omitempty"`
	LogLevel   string `yaml:"log_level,omitempty"`
}

// LoadConfig reads a YAML config file, rejecting unknown keys.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge returns c with every non-empty field of override applied.
func (c Config) Merge(override Config) Config {
	if override.Driver != "" {
		c.Driver = override.Driver
	}
	if override.DSN != "" {
		c.DSN = override.DSN
	}
	if override.ReplicaDSN != "" {
		c.ReplicaDSN = override.ReplicaDSN
	}
	if override.Dialect != "" {
		c.Dialect = override.Dialect
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	return c
}

// Validate checks that the config names a known driver and a DSN.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPGX, DriverPostgres:
	case "":
		return fmt.Errorf("driver is required")
	default:
		return fmt.Errorf("unsupported driver %q: must be one of %s, %s, %s",
			c.Driver, DriverSQLite, DriverPGX, DriverPostgres)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.ReplicaDSN != "" && c.Driver != DriverPGX {
		return fmt.Errorf("replica_dsn requires driver %s, got %s", DriverPGX, c.Driver)
	}
	if _, err := querysql.NewCompiler(c.SQLDialect()); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// SQLDialect returns the SQL dialect: the configured one, or the driver's.
func (c Config) SQLDialect() string {
	if c.Dialect != "" {
		return c.Dialect
	}
	if c.Driver == DriverSQLite {
		return querysql.DialectSQLite
	}
	return querysql.DialectPostgres
}

// Level parses log_level. Empty means info.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// backend is an open database connection and how to release it.
type backend struct {
	db    adapters.DBAdapter
	close func() error
}

// openBackend connects to the database described by cfg.
func openBackend(ctx context.Context, cfg Config) (*backend, error) {
	switch cfg.Driver {
	case DriverSQLite:
		st, err := store.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &backend{db: st.Adapter(), close: st.Close}, nil

	case DriverPGX:
		return openPGX(ctx, cfg)

	case DriverPostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &backend{db: adapters.NewSQLXAdapter(db), close: db.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// openPGX opens the primary pool and, when configured, a read replica.
// Pools are created before either is pinged so a malformed DSN fails
// without touching the network.
func openPGX(ctx context.Context, cfg Config) (*backend, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	pools := []*pgxpool.Pool{pool}
	closeAll := func() error {
		for _, p := range pools {
			p.Close()
		}
		return nil
	}

	var replica *pgxpool.Pool
	if cfg.ReplicaDSN != "" {
		replica, err = pgxpool.New(ctx, cfg.ReplicaDSN)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to create replica pool: %w", err)
		}
		pools = append(pools, replica)
	}

	for _, p := range pools {
		if err := p.Ping(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	db := adapters.NewPGXAdapter(pool)
	if replica != nil {
		db = adapters.NewPGXAdapterWithReplica(pool, replica)
	}
	return &backend{db: db, close: closeAll}, nil
}
