// ABOUTME: ChunkBuilder renders threaded records into three tiers of bounded chunks
// ABOUTME: Tier 1 post+top replies, tier 2 reply+context, tier 3 standalone high-value replies
package core

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/stillpoint/stillpoint/internal/logger"
	"github.com/stillpoint/stillpoint/internal/models"
)

const (
	// DefaultCapTier1 bounds post+replies chunks
	DefaultCapTier1 = 1200
	// DefaultCapTier2 bounds reply+context chunks
	DefaultCapTier2 = 600
	// DefaultCapTier3 bounds standalone high-value reply chunks
	DefaultCapTier3 = 400

	// minReplyBodyLen is the normalized length below which a reply
	// produces no tier-2 chunk
	minReplyBodyLen = 20

	// maxRepliesPerPost caps how many replies a tier-1 chunk considers
	maxRepliesPerPost = 10

	// parentContextLen bounds the quoted parent body in tier-2 chunks
	parentContextLen = 200

	// truncationMarker is appended whenever a body is cut to fit a cap
	truncationMarker = "..."
)

// TierCaps holds the per-tier token ceilings
type TierCaps struct {
	Tier1 int
	Tier2 int
	Tier3 int
}

// DefaultTierCaps returns the standard token ceilings
func DefaultTierCaps() TierCaps {
	return TierCaps{Tier1: DefaultCapTier1, Tier2: DefaultCapTier2, Tier3: DefaultCapTier3}
}

// ChunkBuilder produces bounded chunks from normalized threaded records.
// Building is deterministic: the same input always yields a byte-identical
// chunk set.
type ChunkBuilder struct {
	caps TierCaps
}

// NewChunkBuilder creates a ChunkBuilder. Non-positive caps fall back
// to the defaults.
func NewChunkBuilder(caps TierCaps) *ChunkBuilder {
	def := DefaultTierCaps()
	if caps.Tier1 <= 0 {
		caps.Tier1 = def.Tier1
	}
	if caps.Tier2 <= 0 {
		caps.Tier2 = def.Tier2
	}
	if caps.Tier3 <= 0 {
		caps.Tier3 = def.Tier3
	}
	return &ChunkBuilder{caps: caps}
}

// BuildAll builds every tier: tiers 1 and 2 from the post batch, tier 3
// from the separately selected high-value replies.
func (b *ChunkBuilder) BuildAll(posts []models.ThreadRecord, highValue []models.ReplyRecord) []models.Chunk {
	chunks := b.BuildTier1(posts)
	chunks = append(chunks, b.BuildTier2(posts)...)
	chunks = append(chunks, b.BuildTier3(highValue)...)
	return chunks
}

// BuildTier1 renders one chunk per post: title, body, metadata header,
// then replies in score-descending order appended greedily until the
// next reply would exceed the tier cap. At most 10 replies are
// considered; the first one that does not fit stops the scan.
func (b *ChunkBuilder) BuildTier1(posts []models.ThreadRecord) []models.Chunk {
	var chunks []models.Chunk

	for _, post := range posts {
		if err := validatePost(post); err != nil {
			logger.Warn("skipping post: %v", err)
			continue
		}

		title := NormalizeText(post.Title)
		body := NormalizeText(post.Body)
		metaTitle := title
		hasBody := body != ""

		header := renderTier1Header(title, body, hasBody, post)
		if EstimateTokens(header) > b.caps.Tier1 && hasBody {
			// Oversized self-post: refit the body so the header alone
			// respects the cap
			fixed := renderTier1Header(title, "", true, post)
			body = truncateToFit(body, fixed, b.caps.Tier1)
			header = renderTier1Header(title, body, true, post)
		}
		if EstimateTokens(header) > b.caps.Tier1 {
			// Title alone can overflow a small cap; truncate it in the
			// rendered content while metadata keeps the full title
			fixed := renderTier1Header("", body, hasBody, post)
			title = truncateToFit(title, fixed, b.caps.Tier1)
			header = renderTier1Header(title, body, hasBody, post)
		}

		content := header
		used := EstimateTokens(content)

		replies := sortRepliesByScore(post.Replies)
		if len(replies) > maxRepliesPerPost {
			replies = replies[:maxRepliesPerPost]
		}

		for i, reply := range replies {
			replyText := NormalizeText(reply.Body)
			addition := fmt.Sprintf("\n[Comment %d] %s (Score: %d): %s\n",
				i+1, displayAuthor(reply.Author), reply.Score, replyText)

			// Greedy prefix: the first reply that would overflow the
			// budget ends the scan, even if a later one might fit
			if used+EstimateTokens(addition) > b.caps.Tier1 {
				break
			}
			content += addition
			used += EstimateTokens(addition)
		}

		chunks = append(chunks, models.Chunk{
			ID:      "l1_" + post.ID,
			Tier:    models.TierPost,
			Content: content,
			Metadata: models.ChunkMetadata{
				SourcePostID: post.ID,
				ContentKind:  models.KindPostWithReplies,
				Author:       post.Author,
				Score:        post.Score,
				CreatedAt:    post.CreatedAt,
				Title:        metaTitle,
				Permalink:    post.Permalink,
			},
		})
	}

	return chunks
}

// BuildTier2 renders one chunk per reply whose normalized body is at
// least 20 characters: post title as context, the immediate parent
// reply truncated to 200 characters when the reply is a reply-to-reply,
// then the body with author and score. Only the body is truncated to
// fit the cap.
func (b *ChunkBuilder) BuildTier2(posts []models.ThreadRecord) []models.Chunk {
	var chunks []models.Chunk

	for _, post := range posts {
		if validatePost(post) != nil {
			continue
		}
		title := NormalizeText(post.Title)

		// Parent lookup index, built once per post
		byID := make(map[string]models.ReplyRecord, len(post.Replies))
		for _, r := range post.Replies {
			byID[r.ID] = r
		}

		for _, reply := range post.Replies {
			if reply.ID == "" {
				logger.Warn("skipping reply on post %s: %v", post.ID, &ValidationError{Field: "id"})
				continue
			}

			body := NormalizeText(reply.Body)
			if utf8.RuneCountInString(body) < minReplyBodyLen {
				continue
			}

			parentCtx := ""
			if reply.ParentKind == models.ParentComment {
				if parent, ok := byID[reply.ParentID]; ok {
					parentCtx = firstRunes(NormalizeText(parent.Body), parentContextLen)
				}
			}

			content := renderTier2(title, parentCtx, body, reply.Author, reply.Score)
			if EstimateTokens(content) > b.caps.Tier2 {
				fixed := renderTier2(title, parentCtx, "", reply.Author, reply.Score)
				body = truncateToFit(body, fixed, b.caps.Tier2)
				content = renderTier2(title, parentCtx, body, reply.Author, reply.Score)
			}

			chunks = append(chunks, models.Chunk{
				ID:      "l2_" + reply.ID,
				Tier:    models.TierReply,
				Content: content,
				Metadata: models.ChunkMetadata{
					SourcePostID:  post.ID,
					SourceReplyID: reply.ID,
					ContentKind:   models.KindReplyWithContext,
					Author:        reply.Author,
					Score:         reply.Score,
					CreatedAt:     reply.CreatedAt,
					Permalink:     reply.Permalink,
				},
			})
		}
	}

	return chunks
}

// BuildTier3 renders one chunk per supplied high-value reply: parent
// post title as minimal context plus the full body and score, with the
// same body-only truncation rule as tier 2.
func (b *ChunkBuilder) BuildTier3(highValue []models.ReplyRecord) []models.Chunk {
	var chunks []models.Chunk

	for _, reply := range highValue {
		if err := validateHighValueReply(reply); err != nil {
			logger.Warn("skipping high-value reply: %v", err)
			continue
		}

		title := NormalizeText(reply.PostTitle)
		body := NormalizeText(reply.Body)
		if body == "" {
			logger.Warn("skipping high-value reply %s with empty body", reply.ID)
			continue
		}

		content := renderTier3(title, body, reply.Author, reply.Score)
		if EstimateTokens(content) > b.caps.Tier3 {
			fixed := renderTier3(title, "", reply.Author, reply.Score)
			body = truncateToFit(body, fixed, b.caps.Tier3)
			content = renderTier3(title, body, reply.Author, reply.Score)
		}

		chunks = append(chunks, models.Chunk{
			ID:      "l3_" + reply.ID,
			Tier:    models.TierHighValue,
			Content: content,
			Metadata: models.ChunkMetadata{
				SourcePostID:  reply.PostID,
				SourceReplyID: reply.ID,
				ContentKind:   models.KindHighValueReply,
				Author:        reply.Author,
				Score:         reply.Score,
				CreatedAt:     reply.CreatedAt,
				Title:         title,
				Permalink:     reply.Permalink,
			},
		})
	}

	return chunks
}

func renderTier1Header(title, body string, includeBody bool, post models.ThreadRecord) string {
	var sb strings.Builder
	sb.WriteString("Title: " + title + "\n\n")
	if includeBody {
		sb.WriteString("Post: " + body + "\n\n")
	}
	sb.WriteString("Author: " + displayAuthor(post.Author) + "\n")
	fmt.Fprintf(&sb, "Score: %d\n", post.Score)
	fmt.Fprintf(&sb, "Comments: %d\n\n", post.CommentCount)
	sb.WriteString("Top Community Responses:\n")
	return sb.String()
}

func renderTier2(title, parentCtx, body, author string, score int) string {
	var sb strings.Builder
	sb.WriteString("Post Context: " + title + "\n\n")
	if parentCtx != "" {
		sb.WriteString("Replying to: " + parentCtx + "\n\n")
	}
	sb.WriteString("Comment: " + body + "\n\n")
	sb.WriteString("Author: " + displayAuthor(author) + "\n")
	fmt.Fprintf(&sb, "Score: %d", score)
	return sb.String()
}

func renderTier3(title, body, author string, score int) string {
	var sb strings.Builder
	sb.WriteString("Context: " + title + "\n\n")
	sb.WriteString("High-Value Response: " + body + "\n\n")
	sb.WriteString("Author: " + displayAuthor(author) + "\n")
	fmt.Fprintf(&sb, "Community Score: %d", score)
	return sb.String()
}

// truncateToFit cuts body so that fixed content plus the truncated body
// plus the marker stays within cap tokens. A non-positive budget yields
// just the marker; this degenerate case never fails.
func truncateToFit(body, fixedContent string, budget int) string {
	available := (budget-EstimateTokens(fixedContent))*4 - len(truncationMarker)
	if available <= 0 {
		return truncationMarker
	}
	return cutAtRuneBoundary(body, available) + truncationMarker
}

// firstRunes returns at most n leading runes of s
func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// cutAtRuneBoundary limits s to at most max bytes, backing off so the
// cut never yields invalid UTF-8
func cutAtRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// sortRepliesByScore returns a score-descending copy. The sort is
// stable so equal scores keep their source order across runs.
func sortRepliesByScore(replies []models.ReplyRecord) []models.ReplyRecord {
	sorted := make([]models.ReplyRecord, len(replies))
	copy(sorted, replies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

func validatePost(p models.ThreadRecord) error {
	if p.ID == "" {
		return &ValidationError{Field: "id"}
	}
	if p.Title == "" {
		return &ValidationError{RecordID: p.ID, Field: "title"}
	}
	return nil
}

func validateHighValueReply(r models.ReplyRecord) error {
	if r.ID == "" {
		return &ValidationError{Field: "id"}
	}
	if r.PostID == "" {
		return &ValidationError{RecordID: r.ID, Field: "post_id"}
	}
	return nil
}

func displayAuthor(author string) string {
	if author == "" {
		return "Unknown"
	}
	return author
}
