package storage

import (
	"context"
	"fmt"
)

var schema = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS articles (
			id           BIGSERIAL PRIMARY KEY,
			url          TEXT NOT NULL UNIQUE,
			title        TEXT NOT NULL,
			published_at TIMESTAMPTZ NOT NULL,
			content      TEXT NOT NULL,
			summary      TEXT NOT NULL,
			reason       TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at DESC)`,
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS upvotes (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			article_id BIGINT NOT NULL REFERENCES articles (id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, article_id)
		)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS articles (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			url          TEXT NOT NULL UNIQUE,
			title        TEXT NOT NULL,
			published_at TIMESTAMP NOT NULL,
			content      TEXT NOT NULL,
			summary      TEXT NOT NULL,
			reason       TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at DESC)`,
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS upvotes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			article_id INTEGER NOT NULL REFERENCES articles (id) ON DELETE CASCADE,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, article_id)
		)`,
	},
}

// Migrate creates the tables and indexes when they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	stmts, ok := schema[d.driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", d.driver)
	}
	for _, stmt := range stmts {
		if _, err := d.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
