package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database. Foreign keys, a busy timeout and the sqlite
// time format are added to the DSN. The pool is capped at one connection so
// writers never contend for the database lock.
func Open(dsn string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL for the marketplace schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                TEXT PRIMARY KEY,
			email             TEXT NOT NULL UNIQUE,
			name              TEXT,
			image             TEXT,
			major             TEXT,
			grad_year         INTEGER,
			role              TEXT NOT NULL DEFAULT 'MEMBER',
			email_verified_at DATETIME,
			created_at        DATETIME NOT NULL,
			updated_at        DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS listings (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			price       REAL NOT NULL CHECK (price > 0),
			category    TEXT NOT NULL,
			condition   TEXT NOT NULL,
			location    TEXT NOT NULL,
			images      TEXT NOT NULL DEFAULT '[]',
			status      TEXT NOT NULL DEFAULT 'ACTIVE',
			seller_id   TEXT NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS favorites (
			user_id    TEXT NOT NULL REFERENCES users(id),
			listing_id TEXT NOT NULL REFERENCES listings(id),
			created_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, listing_id)
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			id          TEXT PRIMARY KEY,
			target_type TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			reason      TEXT NOT NULL,
			reporter_id TEXT NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL,
			resolved_at DATETIME,
			resolved_by TEXT REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS message_threads (
			id         TEXT PRIMARY KEY,
			buyer_id   TEXT NOT NULL REFERENCES users(id),
			seller_id  TEXT NOT NULL REFERENCES users(id),
			listing_id TEXT NOT NULL REFERENCES listings(id),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (buyer_id, seller_id, listing_id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			thread_id  TEXT NOT NULL REFERENCES message_threads(id),
			sender_id  TEXT NOT NULL REFERENCES users(id),
			text       TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			read_at    DATETIME
		);`,
		// At most one open report per (reporter, target).
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_reports_open
			ON reports(reporter_id, target_type, target_id) WHERE resolved_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_listings_status_created ON listings(status, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller_id);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_category ON listings(category);`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_listing ON favorites(listing_id);`,
		`CREATE INDEX IF NOT EXISTS idx_threads_buyer ON message_threads(buyer_id);`,
		`CREATE INDEX IF NOT EXISTS idx_threads_seller ON message_threads(seller_id);`,
		`CREATE INDEX IF NOT EXISTS idx_threads_updated_at ON message_threads(updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread_created ON messages(thread_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
