// ABOUTME: GroundedResponder invokes the generation service only when grounding context exists
// ABOUTME: Empty context yields a fixed refusal; generation failures yield a fixed apology
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stillpoint/stillpoint/internal/logger"
	"github.com/stillpoint/stillpoint/internal/models"
)

const (
	// RefusalMessage is returned when retrieval finds no grounding context
	RefusalMessage = "I can only help with mindfulness and meditation topics. I don't have information about your question in my mindfulness knowledge base."

	// ApologyMessage is returned when the generation service fails
	ApologyMessage = "Sorry, I'm having trouble generating a response right now."

	groundedPromptTemplate = `You are a helpful mindfulness and meditation assistant. You ONLY answer questions about mindfulness, meditation, mental health, and related wellness topics.

STRICT RULES:
1. ONLY use the provided context from the mindfulness community to answer questions
2. If the question is not about mindfulness/meditation, respond: "I can only help with mindfulness and meditation topics."
3. If no relevant context is provided, respond: "I don't have information about that specific mindfulness topic."
4. Always be helpful, compassionate, and supportive
5. Cite your sources when providing advice
6. Do not make up information not in the context

Context from mindfulness community:
%s

Question: %s

Answer based only on the provided context:`
)

// Answer is the user-visible outcome of a grounded question
type Answer struct {
	Text     string                   `json:"text"`
	Grounded bool                     `json:"grounded"`
	Failed   bool                     `json:"failed"`
	Sources  []models.RetrievalResult `json:"sources,omitempty"`
}

// GroundedResponder gates the generation service behind retrieval.
// Without grounding context the service is never invoked.
type GroundedResponder struct {
	retriever *Retriever
	generator Generator
	timeout   time.Duration
}

// NewGroundedResponder creates a responder. A non-positive timeout
// defaults to 60 seconds for the generation call.
func NewGroundedResponder(retriever *Retriever, generator Generator, timeout time.Duration) *GroundedResponder {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GroundedResponder{retriever: retriever, generator: generator, timeout: timeout}
}

// Respond retrieves grounding context for the question and, only when
// context exists, invokes the generation service once. Downstream
// failures are logged for operators and folded into a fixed apology;
// the raw error never reaches the caller's user.
func (g *GroundedResponder) Respond(ctx context.Context, question string) Answer {
	sources := g.retriever.Retrieve(ctx, question)
	groundingContext := FormatContext(sources)

	if strings.TrimSpace(groundingContext) == "" {
		return Answer{Text: RefusalMessage}
	}

	prompt := fmt.Sprintf(groundedPromptTemplate, groundingContext, question)

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.generator.Generate(genCtx, prompt)
	if err != nil {
		logger.Warn("generation failed: %v", err)
		return Answer{Text: ApologyMessage, Grounded: true, Failed: true, Sources: sources}
	}

	return Answer{Text: strings.TrimSpace(text), Grounded: true, Sources: sources}
}
