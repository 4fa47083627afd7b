// ABOUTME: CLI command for grounded question answering
// ABOUTME: Retrieves context, generates an answer, and lists the sources used
package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stillpoint/stillpoint/internal/config"
	"github.com/stillpoint/stillpoint/internal/core"
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a grounded question",
		Long: `Answer a question using only retrieved community content.

Retrieval runs first; the generation model is invoked only when
relevant context exists, and its answer is constrained to that context.
Questions with no relevant indexed content get a refusal rather than a
made-up answer.

Examples:
  stillpoint ask "how long should a beginner meditate"
  stillpoint ask "what helps with racing thoughts" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireServices(true, true); err != nil {
		return err
	}

	retriever, client, err := newRetriever(cfg)
	if err != nil {
		return err
	}
	responder := core.NewGroundedResponder(retriever, client, cfg.GenerateTimeout)

	question := strings.Join(args, " ")
	answer := responder.Respond(cmd.Context(), question)

	if outputFormat == "json" {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, answer.Text)

	if len(answer.Sources) > 0 && !quiet {
		fmt.Fprintf(w, "\nSources:\n")
		for i, s := range answer.Sources {
			label := s.Title
			if label == "" {
				label = truncate(s.Content, 60)
			}
			fmt.Fprintf(w, "  %d. %s (%s, score %d, relevance %.2f)\n",
				i+1, label, displaySourceAuthor(s.Author), s.Score, s.Relevance)
		}
	}
	return nil
}

func displaySourceAuthor(author string) string {
	if author == "" {
		return "Unknown"
	}
	return author
}
