// ABOUTME: Text normalization for raw threaded content before chunking
// ABOUTME: Strips emphasis markup and collapses whitespace; idempotent
package core

import "strings"

// NormalizeText cleans raw post or reply text: emphasis markers are
// removed and all runs of whitespace collapse to single spaces.
// Normalizing already-normalized text is a no-op. Never fails; empty
// input yields an empty string.
func NormalizeText(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	text = strings.ReplaceAll(text, "\r", "")

	// Fields splits on any whitespace run, so joining with single
	// spaces also flattens newlines
	return strings.Join(strings.Fields(text), " ")
}
