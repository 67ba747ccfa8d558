package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/mdobak/go-xerrors"
)

// The schema is applied at startup and written twice: once per supported
// driver. Statements stick to the subset both engines share ($N placeholders,
// RETURNING, ON CONFLICT), so everything above this package is
// dialect-agnostic. Comments deliberately carry no ON DELETE CASCADE: the
// article delete cascade is an explicit transactional multi-step delete.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		password BYTEA NOT NULL,
		bio TEXT,
		image TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT users_username_key UNIQUE (username),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS followers (
		followee_id BIGINT NOT NULL REFERENCES users (id),
		follower_id BIGINT NOT NULL REFERENCES users (id),
		PRIMARY KEY (followee_id, follower_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		CONSTRAINT tags_name_key UNIQUE (name)
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		slug TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		body TEXT NOT NULL,
		author_id BIGINT NOT NULL REFERENCES users (id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT articles_slug_key UNIQUE (slug)
	)`,
	`CREATE TABLE IF NOT EXISTS article_tags (
		article_id BIGINT NOT NULL REFERENCES articles (id),
		tag_id BIGINT NOT NULL REFERENCES tags (id),
		PRIMARY KEY (article_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS favorites (
		article_id BIGINT NOT NULL REFERENCES articles (id),
		user_id BIGINT NOT NULL REFERENCES users (id),
		PRIMARY KEY (article_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		body TEXT NOT NULL,
		article_id BIGINT NOT NULL REFERENCES articles (id),
		author_id BIGINT NOT NULL REFERENCES users (id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS articles_author_id_idx ON articles (author_id)`,
	`CREATE INDEX IF NOT EXISTS comments_article_id_idx ON comments (article_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password BLOB NOT NULL,
		bio TEXT,
		image TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS followers (
		followee_id INTEGER NOT NULL REFERENCES users (id),
		follower_id INTEGER NOT NULL REFERENCES users (id),
		PRIMARY KEY (followee_id, follower_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		body TEXT NOT NULL,
		author_id INTEGER NOT NULL REFERENCES users (id),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS article_tags (
		article_id INTEGER NOT NULL REFERENCES articles (id),
		tag_id INTEGER NOT NULL REFERENCES tags (id),
		PRIMARY KEY (article_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS favorites (
		article_id INTEGER NOT NULL REFERENCES articles (id),
		user_id INTEGER NOT NULL REFERENCES users (id),
		PRIMARY KEY (article_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		body TEXT NOT NULL,
		article_id INTEGER NOT NULL REFERENCES articles (id),
		author_id INTEGER NOT NULL REFERENCES users (id),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS articles_author_id_idx ON articles (author_id)`,
	`CREATE INDEX IF NOT EXISTS comments_article_id_idx ON comments (article_id)`,
}

// Migrate brings the schema up to date for the given driver.
func Migrate(db *sql.DB, driver string) error {
	var schema []string
	switch driver {
	case "postgres":
		schema = postgresSchema
	case "sqlite":
		schema = sqliteSchema
	default:
		return xerrors.Newf("unsupported database driver %q", driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return xerrors.Newf("applying schema: %w", err)
		}
	}

	return nil
}
