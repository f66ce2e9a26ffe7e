package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the marketplace schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users
		`CREATE TABLE IF NOT EXISTS users (
			id                TEXT         PRIMARY KEY,
			email             VARCHAR(255) UNIQUE NOT NULL,
			name              VARCHAR(100),
			image             TEXT,
			major             VARCHAR(100),
			grad_year         INTEGER,
			role              VARCHAR(16)  NOT NULL DEFAULT 'MEMBER',
			email_verified_at TIMESTAMPTZ,
			created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Listings
		`CREATE TABLE IF NOT EXISTS listings (
			id          TEXT          PRIMARY KEY,
			title       VARCHAR(100)  NOT NULL,
			description TEXT          NOT NULL,
			price       NUMERIC(10,2) NOT NULL CHECK (price > 0),
			category    VARCHAR(50)   NOT NULL,
			condition   VARCHAR(16)   NOT NULL,
			location    VARCHAR(16)   NOT NULL,
			images      TEXT          NOT NULL DEFAULT '[]',
			status      VARCHAR(16)   NOT NULL DEFAULT 'ACTIVE',
			seller_id   TEXT          NOT NULL REFERENCES users(id),
			created_at  TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		)`,

		// Favorites
		`CREATE TABLE IF NOT EXISTS favorites (
			user_id    TEXT        NOT NULL REFERENCES users(id),
			listing_id TEXT        NOT NULL REFERENCES listings(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, listing_id)
		)`,

		// Reports
		`CREATE TABLE IF NOT EXISTS reports (
			id          TEXT        PRIMARY KEY,
			target_type VARCHAR(16) NOT NULL,
			target_id   TEXT        NOT NULL,
			reason      TEXT        NOT NULL,
			reporter_id TEXT        NOT NULL REFERENCES users(id),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ,
			resolved_by TEXT        REFERENCES users(id)
		)`,

		// Message threads
		`CREATE TABLE IF NOT EXISTS message_threads (
			id         TEXT        PRIMARY KEY,
			buyer_id   TEXT        NOT NULL REFERENCES users(id),
			seller_id  TEXT        NOT NULL REFERENCES users(id),
			listing_id TEXT        NOT NULL REFERENCES listings(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (buyer_id, seller_id, listing_id)
		)`,

		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id         TEXT        PRIMARY KEY,
			thread_id  TEXT        NOT NULL REFERENCES message_threads(id),
			sender_id  TEXT        NOT NULL REFERENCES users(id),
			text       TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			read_at    TIMESTAMPTZ
		)`,

		// At most one open report per (reporter, target).
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_reports_open
			ON reports(reporter_id, target_type, target_id) WHERE resolved_at IS NULL`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_listings_status_created ON listings(status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller_id)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_category ON listings(category)`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_listing ON favorites(listing_id)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_buyer ON message_threads(buyer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_seller ON message_threads(seller_id)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_updated_at ON message_threads(updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread_created ON messages(thread_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
