package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"clarisync/internal/logging"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB wraps the sql.DB connection
type DB struct {
	Conn   *sql.DB
	driver string
	logger zerolog.Logger
}

// New creates a new database connection and runs migrations
func New(driver, dsn string) (*DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn, driver: driver, logger: logging.Component("database")}

	if err := db.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db.logger.Info().Str("driver", driver).Msg("database initialized")
	return db, nil
}

// Driver returns the driver name the connection was opened with
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks the connection is still usable
func (db *DB) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

// runMigrations creates the schema for the configured dialect
func (db *DB) runMigrations() error {
	dialect := strings.NewReplacer(
		"{{serial}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{timestamp}}", "DATETIME",
	)
	if db.driver == DriverPostgres {
		dialect = strings.NewReplacer(
			"{{serial}}", "SERIAL PRIMARY KEY",
			"{{timestamp}}", "TIMESTAMPTZ",
		)
	}

	for _, stmt := range strings.Split(dialect.Replace(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS calls (
    id {{serial}},
    call_id TEXT NOT NULL UNIQUE,
    account_id TEXT NOT NULL DEFAULT '',
    opp_id_sfdc TEXT NOT NULL DEFAULT '',
    contact_ids TEXT NOT NULL DEFAULT '',
    contact_title TEXT NOT NULL DEFAULT '',
    deal_stage_before TEXT NOT NULL DEFAULT '',
    deal_stage_after TEXT NOT NULL DEFAULT '',
    deal_stage_current TEXT NOT NULL DEFAULT '',
    first_meeting_source TEXT NOT NULL DEFAULT '',
    marketing_source TEXT NOT NULL DEFAULT '',
    opportunity_primary_campaign_source TEXT NOT NULL DEFAULT '',
    opportunity_type TEXT NOT NULL DEFAULT '',
    opportunity_amount DOUBLE PRECISION,
    opportunity_contracted_arr DOUBLE PRECISION,
    customer_prospect_name TEXT NOT NULL DEFAULT '',
    account_type TEXT NOT NULL DEFAULT '',
    account_industry TEXT NOT NULL DEFAULT '',
    account_annual_revenue BIGINT,
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    talk_listen_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
    longest_monologue DOUBLE PRECISION NOT NULL DEFAULT 0,
    interactivity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    engaging_question_count INTEGER NOT NULL DEFAULT 0,
    full_summary TEXT NOT NULL DEFAULT '',
    key_takeaways TEXT NOT NULL DEFAULT '',
    topics_discussed TEXT NOT NULL DEFAULT '[]',
    key_action_items TEXT NOT NULL DEFAULT '[]',
    transcript TEXT NOT NULL DEFAULT '',
    close_date DATE,
    created_date DATE,
    call_datetime_gmt {{timestamp}},
    opportunity_age INTEGER,
    title TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    call_type TEXT NOT NULL DEFAULT '',
    disposition TEXT NOT NULL DEFAULT '',
    audio_url TEXT NOT NULL DEFAULT '',
    video_url TEXT NOT NULL DEFAULT '',
    call_review_page_url TEXT NOT NULL DEFAULT '',
    crm_source TEXT NOT NULL DEFAULT '',
    raw_data TEXT NOT NULL DEFAULT '',
    source_system TEXT NOT NULL DEFAULT 'clari',
    created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP,
    updated_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS call_participants (
    id {{serial}},
    call_id TEXT NOT NULL REFERENCES calls(call_id) ON DELETE CASCADE,
    participant_name TEXT NOT NULL DEFAULT '',
    participant_role TEXT NOT NULL DEFAULT 'unknown',
    participant_type TEXT NOT NULL DEFAULT 'external',
    company TEXT NOT NULL DEFAULT '',
    email TEXT,
    created_at {{timestamp}} DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_calls_account_id ON calls(account_id);
CREATE INDEX IF NOT EXISTS idx_calls_call_datetime ON calls(call_datetime_gmt);
CREATE INDEX IF NOT EXISTS idx_participants_call_id ON call_participants(call_id);
`

// Close closes the database connection
func (db *DB) Close() error {
	return db.Conn.Close()
}
