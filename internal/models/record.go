// ABOUTME: Source records for threaded discussion content
// ABOUTME: ThreadRecord owns its replies; replies form a forest via parent links
package models

import "time"

// ParentKind identifies what a reply is attached to
type ParentKind string

const (
	ParentPost    ParentKind = "post"
	ParentComment ParentKind = "comment"
)

// ThreadRecord is a single post with its associated replies.
// Author is empty when the account was deleted.
type ThreadRecord struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Body         string        `json:"body,omitempty"`
	Author       string        `json:"author,omitempty"`
	Score        int           `json:"score"`
	CreatedAt    time.Time     `json:"created_at"`
	CommentCount int           `json:"comment_count"`
	Permalink    string        `json:"permalink"`
	Replies      []ReplyRecord `json:"replies,omitempty"`
}

// ReplyRecord is a single comment on a post. Body never holds the
// "[deleted]"/"[removed]" sentinels; the source reader filters those out.
type ReplyRecord struct {
	ID         string     `json:"id"`
	PostID     string     `json:"post_id"`
	Author     string     `json:"author,omitempty"`
	Body       string     `json:"body"`
	Score      int        `json:"score"`
	CreatedAt  time.Time  `json:"created_at"`
	ParentKind ParentKind `json:"parent_kind"`
	ParentID   string     `json:"parent_id"`
	Permalink  string     `json:"permalink"`

	// PostTitle is populated by the high-value reply query, which joins
	// the parent post. Empty for replies embedded in a ThreadRecord.
	PostTitle string `json:"post_title,omitempty"`
}

// CorpusStats summarizes the source corpus for operator reporting
type CorpusStats struct {
	TotalPosts    int     `json:"total_posts"`
	TotalReplies  int     `json:"total_replies"`
	AvgPostScore  float64 `json:"avg_post_score"`
	MaxPostScore  int     `json:"max_post_score"`
	AvgReplyScore float64 `json:"avg_reply_score"`
	MaxReplyScore int     `json:"max_reply_score"`
}
