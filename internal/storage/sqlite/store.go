// ABOUTME: Read-only SQLite access to the scraped discussion corpus
// ABOUTME: Posts with embedded replies, high-value replies, and corpus stats
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/stillpoint/stillpoint/internal/models"
)

// Deleted-content sentinels the scraper leaves in comment bodies
const (
	deletedBody = "[deleted]"
	removedBody = "[removed]"
)

// Store reads the corpus database produced by the scraper. The
// retrieval core never writes through it.
type Store struct {
	db *sql.DB
}

// Open opens the corpus database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening corpus database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// PostsWithReplies returns a page of posts ordered by score descending
// then recency, each carrying its replies ordered by score descending
// then age ascending. limit <= 0 returns everything after offset.
func (s *Store) PostsWithReplies(ctx context.Context, limit, offset int) ([]models.ThreadRecord, error) {
	query := `
		SELECT id, title, COALESCE(author, ''), COALESCE(selftext, ''),
		       score, num_comments, created_utc, COALESCE(permalink, '')
		FROM posts
		WHERE title IS NOT NULL
		ORDER BY score DESC, created_utc DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []models.ThreadRecord
	for rows.Next() {
		var p models.ThreadRecord
		var createdUTC int64
		if err := rows.Scan(&p.ID, &p.Title, &p.Author, &p.Body, &p.Score, &p.CommentCount, &createdUTC, &p.Permalink); err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		p.CreatedAt = time.Unix(createdUTC, 0).UTC()
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}

	for i := range posts {
		replies, err := s.repliesForPost(ctx, posts[i].ID)
		if err != nil {
			return nil, err
		}
		posts[i].Replies = replies
	}
	return posts, nil
}

func (s *Store) repliesForPost(ctx context.Context, postID string) ([]models.ReplyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(author, ''), body, score, created_utc,
		       COALESCE(parent_type, 'post'), COALESCE(parent_id, ''), COALESCE(permalink, '')
		FROM comments
		WHERE post_id = ?
		  AND body IS NOT NULL
		  AND body NOT IN (?, ?)
		ORDER BY score DESC, created_utc ASC`, postID, deletedBody, removedBody)
	if err != nil {
		return nil, fmt.Errorf("querying replies for post %s: %w", postID, err)
	}
	defer rows.Close()

	var replies []models.ReplyRecord
	for rows.Next() {
		var r models.ReplyRecord
		var createdUTC int64
		var parentType string
		if err := rows.Scan(&r.ID, &r.Author, &r.Body, &r.Score, &createdUTC, &parentType, &r.ParentID, &r.Permalink); err != nil {
			return nil, fmt.Errorf("scanning reply: %w", err)
		}
		r.PostID = postID
		r.CreatedAt = time.Unix(createdUTC, 0).UTC()
		r.ParentKind = models.ParentKind(parentType)
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

// HighValueReplies returns replies scoring at least minScore, sorted by
// score descending then recency, each joined with its parent post title.
// limit <= 0 means no cap.
func (s *Store) HighValueReplies(ctx context.Context, minScore, limit int) ([]models.ReplyRecord, error) {
	query := `
		SELECT c.id, c.post_id, COALESCE(c.author, ''), c.body, c.score, c.created_utc,
		       COALESCE(c.parent_type, 'post'), COALESCE(c.parent_id, ''), COALESCE(c.permalink, ''),
		       COALESCE(p.title, '')
		FROM comments c
		JOIN posts p ON c.post_id = p.id
		WHERE c.body IS NOT NULL
		  AND c.body NOT IN (?, ?)
		  AND c.score >= ?
		ORDER BY c.score DESC, c.created_utc DESC`
	args := []any{deletedBody, removedBody, minScore}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying high-value replies: %w", err)
	}
	defer rows.Close()

	var replies []models.ReplyRecord
	for rows.Next() {
		var r models.ReplyRecord
		var createdUTC int64
		var parentType string
		if err := rows.Scan(&r.ID, &r.PostID, &r.Author, &r.Body, &r.Score, &createdUTC,
			&parentType, &r.ParentID, &r.Permalink, &r.PostTitle); err != nil {
			return nil, fmt.Errorf("scanning high-value reply: %w", err)
		}
		r.CreatedAt = time.Unix(createdUTC, 0).UTC()
		r.ParentKind = models.ParentKind(parentType)
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

// PostCount returns how many posts the corpus holds
func (s *Store) PostCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts WHERE title IS NOT NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting posts: %w", err)
	}
	return count, nil
}

// Stats summarizes the corpus for operator reporting
func (s *Store) Stats(ctx context.Context) (models.CorpusStats, error) {
	var stats models.CorpusStats

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(score), 0), COALESCE(MAX(score), 0)
		FROM posts WHERE title IS NOT NULL`).
		Scan(&stats.TotalPosts, &stats.AvgPostScore, &stats.MaxPostScore)
	if err != nil {
		return stats, fmt.Errorf("post stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(score), 0), COALESCE(MAX(score), 0)
		FROM comments
		WHERE body IS NOT NULL AND body NOT IN (?, ?)`, deletedBody, removedBody).
		Scan(&stats.TotalReplies, &stats.AvgReplyScore, &stats.MaxReplyScore)
	if err != nil {
		return stats, fmt.Errorf("reply stats: %w", err)
	}

	return stats, nil
}
