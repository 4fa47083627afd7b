// ABOUTME: CLI command to run retrieval and inspect ranked results
// ABOUTME: Prints a tabwriter table by default or JSON with --format json
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stillpoint/stillpoint/internal/config"
)

var (
	searchLimit     int
	searchThreshold float64
)

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed corpus",
		Long: `Embed a query and print the nearest indexed chunks.

Results within the distance threshold are listed in ascending distance
order with their tier, author, community score, and relevance. Useful
for inspecting what the grounded responder would see.

Examples:
  stillpoint search "how do I start a daily sit"
  stillpoint search "breath counting" --limit 10 --threshold 0.8
  stillpoint search "body scan" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results (default from env)")
	cmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "Maximum cosine distance (default from env)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireServices(true, false); err != nil {
		return err
	}
	if searchLimit != 0 {
		if err := validatePositiveInt(searchLimit, "--limit"); err != nil {
			return err
		}
		cfg.SearchLimit = searchLimit
	}
	if searchThreshold != 0 {
		cfg.DistanceThreshold = searchThreshold
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	retriever, _, err := newRetriever(cfg)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results := retriever.Retrieve(cmd.Context(), query)

	if outputFormat == "json" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No relevant content found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tTIER\tSCORE\tRELEVANCE\tAUTHOR\tCONTENT\n")
	for i, r := range results {
		label := r.Title
		if label == "" {
			label = r.Content
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%.2f\t%s\t%s\n",
			i+1, r.Tier, r.Score, r.Relevance, truncate(r.Author, 20), truncate(label, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d result(s) within distance %.2f\n",
			len(results), cfg.DistanceThreshold)
	}
	return nil
}
