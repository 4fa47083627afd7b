// ABOUTME: Root CLI command with global flags
// ABOUTME: Wires verbose/quiet/format flags and registers all subcommands
package commands

import (
	"github.com/spf13/cobra"

	"github.com/stillpoint/stillpoint/internal/logger"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
███████╗████████╗██╗██╗     ██╗     ██████╗  ██████╗ ██╗███╗   ██╗████████╗
██╔════╝╚══██╔══╝██║██║     ██║     ██╔══██╗██╔═══██╗██║████╗  ██║╚══██╔══╝
███████╗   ██║   ██║██║     ██║     ██████╔╝██║   ██║██║██╔██╗ ██║   ██║
╚════██║   ██║   ██║██║     ██║     ██╔═══╝ ██║   ██║██║██║╚██╗██║   ██║
███████║   ██║   ██║███████╗███████╗██║     ╚██████╔╝██║██║ ╚████║   ██║
╚══════╝   ╚═╝   ╚═╝╚══════╝╚══════╝╚═╝      ╚═════╝ ╚═╝╚═╝  ╚═══╝   ╚═╝
`

// NewRootCmd creates the root command with all subcommands
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stillpoint",
		Short: "Grounded Q&A over a mindfulness community archive",
		Long: banner + `
Stillpoint indexes a threaded discussion corpus into a vector store
using hierarchical chunking, and answers questions grounded strictly
in the retrieved community content.

Typical flow:
  stillpoint index            # chunk, embed, and index the corpus
  stillpoint search "query"   # inspect ranked retrieval results
  stillpoint ask "question"   # grounded answer with source attribution`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, json")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}
