package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/emberline/curator/cmd/curator/commands"
	"github.com/emberline/curator/logger"
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "curator - versioned record curation pipeline",
	Long: `curator - staged curation pipeline for versioned record collections.

Records flow through zones, each transition guarded by an engine:

  Bulk Source -> extract -> Raw Dump
  Raw Dump    -> migrate -> Validated Zone  (checksum-idempotent)
  Validated   -> score   -> Quality Overlay (nondestructive)
  Overlay     -> transform -> Timeline Events

Available commands:
  fetch     - Retrieve a bulk-source snapshot into the local cache
  extract   - Pull new records into a timestamped dump (full or delta)
  migrate   - Move files between zones exactly once per content
  validate  - Certify a dump against a rule set
  score     - Assign deterministic quality tiers into an overlay
  transform - Join overlay and records, emit timeline events
  manifest  - Inventory the validated zone for publishing
  dumps     - List registered dump directories
  release   - Bump the collection version from git history
  config    - Manage curator configuration

Examples:
  curator extract --mode delta        # Pull records newer than the watermark
  curator migrate --watch             # Keep migrating as dumps land
  curator score --source data/validated/ars_2024-03-01_120000 --dest overlay.json
  curator dumps --source alignment_research`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json")
		if err := logger.InitializeWithLevel(jsonLogs, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit machine-readable JSON output and logs")

	// Add commands
	rootCmd.AddCommand(commands.FetchCmd)
	rootCmd.AddCommand(commands.ExtractCmd)
	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.ScoreCmd)
	rootCmd.AddCommand(commands.TransformCmd)
	rootCmd.AddCommand(commands.ManifestCmd)
	rootCmd.AddCommand(commands.DumpsCmd)
	rootCmd.AddCommand(commands.ReleaseCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
