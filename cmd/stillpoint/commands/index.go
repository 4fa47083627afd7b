// ABOUTME: CLI command to build and index the corpus into the vector store
// ABOUTME: Supports stats, resumable offsets, and the chunk interchange file
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stillpoint/stillpoint/internal/config"
	"github.com/stillpoint/stillpoint/internal/core"
	"github.com/stillpoint/stillpoint/internal/models"
	"github.com/stillpoint/stillpoint/internal/storage/sqlite"
)

var (
	indexOffset    int
	indexPageSize  int
	indexMinScore  int
	indexStats     bool
	indexChunksOut string
	indexChunksIn  string
)

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Chunk, embed, and index the corpus",
		Long: `Build the retrieval index from the corpus database.

Reads posts and replies, renders them into three tiers of bounded
chunks, embeds the chunk contents in batches, and upserts vectors with
full metadata into the vector store. A fresh run replaces the target
collection wholesale; --offset resumes a partial run without wiping
already-committed vectors.

Examples:
  stillpoint index
  stillpoint index --stats
  stillpoint index --offset 400
  stillpoint index --chunks-out chunks.json
  stillpoint index --chunks-in chunks.json`,
		RunE: runIndex,
	}

	cmd.Flags().IntVar(&indexOffset, "offset", 0, "Resume from this post offset")
	cmd.Flags().IntVar(&indexPageSize, "page-size", 0, "Posts per source page (default from env)")
	cmd.Flags().IntVar(&indexMinScore, "min-score", 0, "High-value reply score threshold (default from env)")
	cmd.Flags().BoolVar(&indexStats, "stats", false, "Print corpus statistics and exit")
	cmd.Flags().StringVar(&indexChunksOut, "chunks-out", "", "Write built chunks to this JSON file instead of indexing")
	cmd.Flags().StringVar(&indexChunksIn, "chunks-in", "", "Index chunks from this JSON file instead of the source DB")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if indexPageSize > 0 {
		cfg.PageSize = indexPageSize
	}
	if indexMinScore > 0 {
		cfg.MinReplyScore = indexMinScore
	}

	ctx := cmd.Context()

	// Pre-built chunks skip the source DB entirely
	if indexChunksIn != "" {
		if err := cfg.RequireServices(true, false); err != nil {
			return err
		}
		data, err := os.ReadFile(indexChunksIn)
		if err != nil {
			return fmt.Errorf("reading chunk file: %w", err)
		}
		var chunks []models.Chunk
		if err := json.Unmarshal(data, &chunks); err != nil {
			return fmt.Errorf("parsing chunk file: %w", err)
		}

		indexer, err := newIndexer(cfg, nil)
		if err != nil {
			return err
		}

		report, err := indexer.IndexPrebuilt(ctx, chunks)
		if err != nil {
			return err
		}
		return printReport(cmd, report)
	}

	source, err := sqlite.Open(cfg.SourceDB)
	if err != nil {
		return err
	}
	defer source.Close()

	if indexStats {
		stats, err := source.Stats(ctx)
		if err != nil {
			return err
		}
		return printStats(cmd, stats)
	}

	indexer, err := newIndexer(cfg, source)
	if err != nil {
		return err
	}

	if indexChunksOut != "" {
		chunks, err := indexer.BuildChunks(ctx)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(chunks, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding chunks: %w", err)
		}
		if err := os.WriteFile(indexChunksOut, data, 0o644); err != nil {
			return fmt.Errorf("writing chunk file: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunks to %s\n", len(chunks), indexChunksOut)
		}
		return nil
	}

	report, err := indexer.Run(ctx)
	if err != nil {
		// A failed run still reports the resumable offset it reached
		if report != nil && report.NextOffset > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Run failed at offset %d; resume with --offset %d\n",
				report.NextOffset, report.NextOffset)
		}
		return err
	}
	return printReport(cmd, report)
}

// newIndexer wires an Indexer. source may be nil for the
// pre-built-chunks path, which never reads it.
func newIndexer(cfg *config.Config, source core.SourceReader) (*core.Indexer, error) {
	if err := cfg.RequireServices(true, false); err != nil {
		return nil, err
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return nil, err
	}

	builder := core.NewChunkBuilder(core.TierCaps{
		Tier1: cfg.CapTier1,
		Tier2: cfg.CapTier2,
		Tier3: cfg.CapTier3,
	})

	indexer := core.NewIndexer(source, builder, client, newVectorClient(cfg), core.IndexerOptions{
		PageSize:       cfg.PageSize,
		Offset:         indexOffset,
		MinReplyScore:  cfg.MinReplyScore,
		EmbeddingModel: client.EmbeddingModelID(),
	})
	return indexer, nil
}

func printReport(cmd *cobra.Command, report *core.IndexReport) error {
	if outputFormat == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s completed in %s\n", report.RunID, report.Elapsed.Round(10*time.Millisecond))
	fmt.Fprintf(w, "Posts processed: %d\n", report.PostsProcessed)
	fmt.Fprintf(w, "Chunks built:    %d\n", report.ChunksBuilt)
	fmt.Fprintf(w, "Inserted:        %d\n", report.Inserted)
	fmt.Fprintf(w, "Failures:        %d\n", len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s: %s\n", f.ChunkID, f.Reason)
	}
	return nil
}

func printStats(cmd *cobra.Command, stats models.CorpusStats) error {
	if outputFormat == "json" {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "METRIC\tVALUE\n")
	fmt.Fprintf(w, "Posts\t%d\n", stats.TotalPosts)
	fmt.Fprintf(w, "Replies\t%d\n", stats.TotalReplies)
	fmt.Fprintf(w, "Avg post score\t%.1f\n", stats.AvgPostScore)
	fmt.Fprintf(w, "Max post score\t%d\n", stats.MaxPostScore)
	fmt.Fprintf(w, "Avg reply score\t%.1f\n", stats.AvgReplyScore)
	fmt.Fprintf(w, "Max reply score\t%d\n", stats.MaxReplyScore)
	return w.Flush()
}
