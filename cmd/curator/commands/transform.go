package commands

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/emberline/curator/catalog"
	"github.com/emberline/curator/display"
	"github.com/emberline/curator/logger"
	"github.com/emberline/curator/score"
	"github.com/emberline/curator/sym"
	"github.com/emberline/curator/transform"
)

// TransformCmd represents the transform command
var TransformCmd = &cobra.Command{
	Use:   "transform",
	Short: sym.Xform + " Project top-tier records into timeline events",
	Long: sym.Xform + ` transform — join records with their quality overlay and emit events.

Reads a validated dump, joins each record with its overlay entry, keeps
only records at or above the tier cutoff, and projects the survivors
into timeline events sliced by year. Event IDs are derived from the
record IDs, so re-running the projection over the same inputs produces
the same events.

The output is itself a dump (source "timeline_events") with the usual
metadata sidecar and checksum, plus a by_year/ directory holding one
JSON slice per year.

Examples:
  curator transform --source data/validated/alignment_research_2024-03-01_120000 --overlay quality_overlay.json
  curator transform --source dump/ --overlay overlay.json --min-tier B
  curator transform --source dump/ --overlay overlay.json --dry-run   # counts only, no files`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransform(cmd)
	},
}

func init() {
	TransformCmd.Flags().String("source", "", "Dump directory or JSONL file to transform (required)")
	TransformCmd.Flags().String("overlay", "", "Quality overlay produced by 'curator score' (required)")
	TransformCmd.Flags().String("dest", "data/events", "Root directory for the event dump")
	TransformCmd.Flags().String("min-tier", "", "Lowest tier to include (default \"A\")")
	TransformCmd.Flags().Bool("include-unscored", false, "Keep records missing from the overlay instead of dropping them")
	TransformCmd.Flags().Int("limit", 0, "Stop after emitting this many events (0 = no limit)")
	TransformCmd.Flags().Bool("dry-run", false, "Select and count without writing any events")
	TransformCmd.Flags().Bool("json", false, "Output the result in JSON format")

	TransformCmd.MarkFlagRequired("source")
	TransformCmd.MarkFlagRequired("overlay")
}

func runTransform(cmd *cobra.Command) error {
	useJSON := display.ShouldOutputJSON(cmd)

	source, _ := cmd.Flags().GetString("source")
	overlayPath, _ := cmd.Flags().GetString("overlay")
	dest, _ := cmd.Flags().GetString("dest")
	minTier, _ := cmd.Flags().GetString("min-tier")
	includeUnscored, _ := cmd.Flags().GetBool("include-unscored")
	limit, _ := cmd.Flags().GetInt("limit")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	overlay, err := score.LoadOverlay(overlayPath)
	if err != nil {
		return err
	}

	transformer, err := transform.New(overlay, transform.Options{
		MinTier:         minTier,
		IncludeUnscored: includeUnscored,
		Limit:           limit,
		DryRun:          dryRun,
	}, logger.Logger)
	if err != nil {
		return err
	}

	if !useJSON {
		pterm.DefaultHeader.WithFullWidth().Printf("Transform: %s", source)
		pterm.Println()
		if dryRun {
			pterm.Warning.Println("DRY RUN MODE: No events will be written")
			pterm.Println()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dryRun {
		result, err := transformer.Run(ctx, source, dest)
		if err != nil {
			return err
		}
		return reportTransform(result, useJSON)
	}

	database, err := openCatalog("")
	if err != nil {
		return err
	}
	defer database.Close()

	runs := catalog.NewRunStore(database)
	run, err := runs.Begin("transform", minTier)
	if err != nil {
		return err
	}

	result, runErr := transformer.Run(ctx, source, dest)

	if err := runs.Finish(run, result, runErr); err != nil {
		logger.Warnw("Failed to record run outcome",
			"sym", sym.DB,
			"run_id", run.ID,
			"error", err,
		)
	}
	if runErr != nil {
		return runErr
	}

	if result.OutputDir != "" {
		registerDump(database, result.OutputDir)
	}
	return reportTransform(result, useJSON)
}

func reportTransform(result *transform.Result, useJSON bool) error {
	if useJSON {
		return display.OutputJSON(result)
	}

	pterm.Println()
	pterm.Printf("  Records read:   %d\n", result.TotalRecords)
	pterm.Printf("  Selected:       %d\n", result.Selected)
	pterm.Printf("  Events created: %d\n", result.EventsCreated)
	if result.FilteredOut > 0 {
		pterm.Printf("  Below cutoff:   %d\n", result.FilteredOut)
	}
	if result.Unscored > 0 {
		pterm.Printf("  Unscored:       %d\n", result.Unscored)
	}
	if result.Errors > 0 {
		pterm.Printf("  Errors:         %d\n", result.Errors)
	}

	if len(result.ByYear) > 0 {
		years := make([]int, 0, len(result.ByYear))
		for y := range result.ByYear {
			years = append(years, y)
		}
		sort.Ints(years)
		pterm.Println()
		pterm.Info.Println("Events by year:")
		for _, y := range years {
			pterm.Printf("  %d: %d\n", y, result.ByYear[y])
		}
	}

	pterm.Println()
	if result.OutputDir != "" {
		pterm.Success.Printf("Event dump written to %s\n", result.OutputDir)
	} else {
		pterm.Success.Printf("Dry run complete: %d event(s) would be created\n", result.EventsCreated)
	}
	return nil
}
