package db

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a plan or stop does not exist.
var ErrNotFound = errors.New("not found")

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS plans (
    id          INTEGER PRIMARY KEY,
    place       TEXT NOT NULL,
    start_date  TEXT NOT NULL,
    end_date    TEXT NOT NULL,
    partner     TEXT,
    style       TEXT,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    CHECK (start_date <= end_date)
);

CREATE TABLE IF NOT EXISTS stops (
    id          INTEGER PRIMARY KEY,
    plan_id     INTEGER NOT NULL REFERENCES plans(id),
    name        TEXT NOT NULL,
    address     TEXT,
    latitude    REAL NOT NULL,
    longitude   REAL NOT NULL,
    stop_date   TEXT NOT NULL,
    stop_time   TEXT NOT NULL,
    sort_rank   TEXT,
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stops_plan_id ON stops(plan_id);
CREATE INDEX IF NOT EXISTS idx_stops_plan_date ON stops(plan_id, stop_date);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS plans (
    id          BIGSERIAL PRIMARY KEY,
    place       TEXT NOT NULL,
    start_date  TEXT NOT NULL,
    end_date    TEXT NOT NULL,
    partner     TEXT,
    style       TEXT,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    CHECK (start_date <= end_date)
);

CREATE TABLE IF NOT EXISTS stops (
    id          BIGSERIAL PRIMARY KEY,
    plan_id     BIGINT NOT NULL REFERENCES plans(id),
    name        TEXT NOT NULL,
    address     TEXT,
    latitude    DOUBLE PRECISION NOT NULL,
    longitude   DOUBLE PRECISION NOT NULL,
    stop_date   TEXT NOT NULL,
    stop_time   TEXT NOT NULL,
    sort_rank   TEXT,
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stops_plan_id ON stops(plan_id);
CREATE INDEX IF NOT EXISTS idx_stops_plan_date ON stops(plan_id, stop_date);
`

// Open connects to the database and initializes the schema.
func Open(driver, dsn string) (*sqlx.DB, error) {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer keeps SQLite from returning SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// PostgresDSNFromEnv builds a lib/pq connection string from DB_HOST, DB_PORT,
// DB_USER, DB_PASS and DB_NAME.
func PostgresDSNFromEnv() string {
	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	parts := []string{"host=" + host, "port=" + port}
	if v := os.Getenv("DB_USER"); v != "" {
		parts = append(parts, "user="+v)
	}
	if v := os.Getenv("DB_PASS"); v != "" {
		parts = append(parts, "password="+v)
	}
	parts = append(parts, "dbname="+envOr("DB_NAME", "tripmate"), "sslmode="+envOr("DB_SSLMODE", "disable"))
	return strings.Join(parts, " ")
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
