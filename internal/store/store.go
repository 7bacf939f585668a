package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gridwatt/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	dateLayout = "2006-01-02"
)

const (
	maxOpenConns = 10
	maxIdleConns = 2
	pingTimeout  = 5 * time.Second
)

// Store is the single writer for the three stats tables. Extractors hand
// their figures to it; nothing else issues writes.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured backend and initializes the schema.
// The sqlite backend is the default; postgres is selected when the config
// names the driver or supplies a host.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		if cfg.Host != "" {
			driver = driverPostgres
		} else {
			driver = driverSQLite
		}
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case driverSQLite:
		path := cfg.Path
		if path == "" {
			path = "gridwatt.db"
		}
		db, err = sql.Open("sqlite", path)
	case driverPostgres:
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			cfg.User, cfg.Password, cfg.Host, port, cfg.Name)
		db, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if driver == driverPostgres {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
	}

	s := &Store{db: db, driver: driver}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates the three stats tables
func (s *Store) initSchema() error {
	idCol := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == driverPostgres {
		idCol = "id BIGSERIAL PRIMARY KEY"
	}

	schema := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS yearly_stats (
			%s,
			account_id TEXT NOT NULL,
			year INTEGER NOT NULL,
			total_usage DOUBLE PRECISION,
			total_charge DOUBLE PRECISION,
			balance DOUBLE PRECISION,
			last_daily_date TEXT,
			last_daily_usage DOUBLE PRECISION,
			UNIQUE(account_id, year)
		)`, idCol),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS monthly_stats (
			%s,
			account_id TEXT NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			usage DOUBLE PRECISION,
			charge DOUBLE PRECISION,
			UNIQUE(account_id, year, month)
		)`, idCol),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS daily_usage (
			%s,
			account_id TEXT NOT NULL,
			date TEXT NOT NULL,
			usage DOUBLE PRECISION NOT NULL,
			UNIQUE(account_id, date)
		)`, idCol),
		`CREATE INDEX IF NOT EXISTS idx_daily_account_date ON daily_usage(account_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_monthly_account ON monthly_stats(account_id)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// q rewrites ? placeholders to $n for the postgres driver
func (s *Store) q(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
