// ABOUTME: Chunk is the atomic retrieval unit produced by the hierarchical chunker
// ABOUTME: Three tiers: post+top-replies, reply+context, standalone high-value reply
package models

import "time"

// Tier identifies the chunk granularity
type Tier int

const (
	TierPost      Tier = 1 // post with its top replies
	TierReply     Tier = 2 // single reply with immediate context
	TierHighValue Tier = 3 // standalone high-value reply
)

// ContentKind labels what a chunk was rendered from
type ContentKind string

const (
	KindPostWithReplies  ContentKind = "post_with_comments"
	KindReplyWithContext ContentKind = "comment_with_context"
	KindHighValueReply   ContentKind = "high_value_comment"
)

// Chunk is an immutable bounded text unit with attached metadata.
// IDs are deterministic: "l1_<postID>", "l2_<replyID>", "l3_<replyID>".
type Chunk struct {
	ID       string        `json:"id"`
	Tier     Tier          `json:"tier"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata is the fixed-field metadata record carried by every chunk.
// Optional fields are zero-valued rather than omitted keys.
type ChunkMetadata struct {
	SourcePostID  string      `json:"source_post_id"`
	SourceReplyID string      `json:"source_reply_id,omitempty"`
	ContentKind   ContentKind `json:"content_kind"`
	Author        string      `json:"author,omitempty"`
	Score         int         `json:"score"`
	CreatedAt     time.Time   `json:"created_at"`
	Title         string      `json:"title,omitempty"`
	Permalink     string      `json:"permalink,omitempty"`
}
