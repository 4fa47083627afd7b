// ABOUTME: Corpus database schema, matching what the scraper produces
// ABOUTME: Init applies it; primarily used by tests and fresh setups
package sqlite

import "context"

// Schema is the corpus layout: posts and their comments. created_utc
// is stored as unix seconds.
const Schema = `
CREATE TABLE IF NOT EXISTS posts (
	id           TEXT PRIMARY KEY,
	title        TEXT,
	author       TEXT,
	selftext     TEXT,
	url          TEXT,
	score        INTEGER NOT NULL DEFAULT 0,
	upvote_ratio REAL,
	num_comments INTEGER NOT NULL DEFAULT 0,
	created_utc  INTEGER NOT NULL DEFAULT 0,
	permalink    TEXT
);

CREATE TABLE IF NOT EXISTS comments (
	id          TEXT PRIMARY KEY,
	post_id     TEXT NOT NULL REFERENCES posts(id),
	author      TEXT,
	body        TEXT,
	score       INTEGER NOT NULL DEFAULT 0,
	created_utc INTEGER NOT NULL DEFAULT 0,
	parent_type TEXT,
	parent_id   TEXT,
	permalink   TEXT
);

CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
CREATE INDEX IF NOT EXISTS idx_comments_score ON comments(score);
`

// Init creates the corpus tables if they do not exist
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}
