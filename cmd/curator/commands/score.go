package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/emberline/curator/catalog"
	"github.com/emberline/curator/config"
	"github.com/emberline/curator/display"
	"github.com/emberline/curator/logger"
	"github.com/emberline/curator/safeio"
	"github.com/emberline/curator/score"
	"github.com/emberline/curator/sym"
)

// ScoreCmd represents the score command
var ScoreCmd = &cobra.Command{
	Use:   "score",
	Short: sym.Score + " Assign deterministic quality tiers into an overlay",
	Long: sym.Score + ` score — deterministic quality scoring and tiering.

Scores every record of a dump against weighted boolean signals (source
reputation, authorship, text length, newsletter detection, publication
year, tags) and assigns a tier from the configured thresholds. Scores
land in an overlay file keyed by record ID; the records themselves are
never touched, so a re-run with a tweaked config only ever replaces the
overlay.

Scoring is pure: the same records and the same config always produce
the same overlay (modulo the generation timestamp). The config used is
embedded in the overlay, so every score can be traced back to the
weights that produced it.

Examples:
  curator score --source data/validated/alignment_research_2024-03-01_120000
  curator score --source records.jsonl --dest overlay.json
  curator score --source dump/ --config weights.toml   # custom signal weights`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScore(cmd)
	},
}

func init() {
	ScoreCmd.Flags().String("source", "", "Dump directory or JSONL file to score (required)")
	ScoreCmd.Flags().String("dest", "quality_overlay.json", "Overlay output path")
	ScoreCmd.Flags().String("config", "", "Scoring config TOML (default: scoring.config_path from config, then built-in weights)")
	ScoreCmd.Flags().Bool("json", false, "Output the summary in JSON format")

	ScoreCmd.MarkFlagRequired("source")
}

// scoreSummary is the command-level result: the overlay itself goes to
// disk, the summary goes to the operator and the run ledger.
type scoreSummary struct {
	TotalRecords  int            `json:"total_records"`
	RecordsFailed int            `json:"records_failed,omitempty"`
	Tiers         map[string]int `json:"tiers"`
	Overlay       string         `json:"overlay"`
}

func runScore(cmd *cobra.Command) error {
	useJSON := display.ShouldOutputJSON(cmd)

	source, _ := cmd.Flags().GetString("source")
	dest, _ := cmd.Flags().GetString("dest")
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if configPath == "" {
		configPath = cfg.Scoring.ConfigPath
	}

	scoringCfg, err := score.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if !useJSON {
		pterm.DefaultHeader.WithFullWidth().Printf("Quality Scoring: %s", source)
		pterm.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openCatalog("")
	if err != nil {
		return err
	}
	defer database.Close()

	runs := catalog.NewRunStore(database)
	run, err := runs.Begin("score", "")
	if err != nil {
		return err
	}

	scorer := score.NewScorer(scoringCfg, logger.Logger)

	var spinner *pterm.SpinnerPrinter
	if !useJSON {
		spinner, _ = pterm.DefaultSpinner.Start("Scoring records...")
	}

	var overlay *score.Overlay
	var runErr error
	if safeio.DirExists(source) {
		overlay, runErr = scorer.ScoreDump(ctx, source)
	} else {
		overlay, runErr = scorer.ScoreFile(ctx, source)
	}
	if runErr == nil {
		runErr = score.WriteOverlay(dest, overlay)
	}

	if spinner != nil {
		spinner.Stop()
	}

	var summary *scoreSummary
	if overlay != nil {
		summary = &scoreSummary{
			TotalRecords:  overlay.Meta.TotalRecords,
			RecordsFailed: overlay.Meta.RecordsFailed,
			Tiers:         make(map[string]int, len(overlay.Tiers)),
			Overlay:       dest,
		}
		for tier, ts := range overlay.Tiers {
			summary.Tiers[tier] = ts.Count
		}
	}

	if err := runs.Finish(run, summary, runErr); err != nil {
		logger.Warnw("Failed to record run outcome",
			"sym", sym.DB,
			"run_id", run.ID,
			"error", err,
		)
	}
	if runErr != nil {
		return runErr
	}

	if useJSON {
		return display.OutputJSON(summary)
	}

	pterm.Println()
	pterm.Printf("  Records scored: %d\n", summary.TotalRecords)
	if summary.RecordsFailed > 0 {
		pterm.Printf("  Unscorable:     %d\n", summary.RecordsFailed)
	}
	// Tiers print highest threshold first, the order the config defines.
	for _, tier := range scoringCfg.Tiers {
		pterm.Printf("  Tier %s: %d\n", tier.Name, summary.Tiers[tier.Name])
	}
	pterm.Println()
	pterm.Success.Printf("Overlay written to %s\n", dest)
	return nil
}
