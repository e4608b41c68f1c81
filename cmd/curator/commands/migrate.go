package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/emberline/curator/catalog"
	"github.com/emberline/curator/config"
	"github.com/emberline/curator/display"
	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/logger"
	"github.com/emberline/curator/migrate"
	"github.com/emberline/curator/state"
	"github.com/emberline/curator/sym"
	"github.com/emberline/curator/validate"
	"github.com/emberline/curator/watch"
)

// MigrateCmd represents the migrate command
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: sym.Migrate + " Move files between pipeline zones exactly once",
	Long: sym.Migrate + ` migrate — checksum-idempotent zone-to-zone migration.

Moves files matching a glob from the source zone into the destination
zone exactly once per distinct content. A source file whose checksum is
already recorded in the processing ledger is skipped; a changed checksum
counts as new input. Every transfer is validated on both sides, written
atomically, and checksum-verified after the write.

Per-file failures never abort the batch:
- a file that fails validation is recorded and skipped
- an existing destination is backed up before being overwritten
- a destination that fails re-validation is rolled back to its backup
- a checksum mismatch after the write leaves the ledger untouched so the
  file is retried on the next run

The command exits non-zero only when at least one file failed; skips are
not failures.

Examples:
  curator migrate                                   # raw -> validated with config defaults
  curator migrate --source data/raw --dest data/validated --pattern '*.jsonl'
  curator migrate --move                            # remove sources after verified transfer
  curator migrate --dry-run                         # preview without writing anything
  curator migrate --limit 10                        # stop after 10 newly processed files
  curator migrate --watch                           # keep migrating as dumps land`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd)
	},
}

func init() {
	MigrateCmd.Flags().String("source", "", "Source zone directory (default: zones.raw from config)")
	MigrateCmd.Flags().String("dest", "", "Destination zone directory (default: zones.validated from config)")
	MigrateCmd.Flags().String("pattern", "", "File-matching glob (default: migration.pattern from config)")
	MigrateCmd.Flags().Bool("move", false, "Remove source files after verified transfer")
	MigrateCmd.Flags().String("backup-dir", "", "Where overwritten destinations are preserved (default: migration.backup_dir; empty disables backups)")
	MigrateCmd.Flags().Bool("dry-run", false, "Report what would be migrated without writing")
	MigrateCmd.Flags().Int("limit", 0, "Stop after N newly processed files (0 = unlimited)")
	MigrateCmd.Flags().Bool("watch", false, "Keep watching the source zone and migrate as files land")
	MigrateCmd.Flags().Bool("json", false, "Output results in JSON format")
}

// runMigrate wires the processing ledger, the validation engine, and
// the catalog around one migration run (or a watch loop of runs).
func runMigrate(cmd *cobra.Command) error {
	useJSON := display.ShouldOutputJSON(cmd)

	sourceDir, _ := cmd.Flags().GetString("source")
	destDir, _ := cmd.Flags().GetString("dest")
	pattern, _ := cmd.Flags().GetString("pattern")
	move, _ := cmd.Flags().GetBool("move")
	backupDir, _ := cmd.Flags().GetString("backup-dir")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	limit, _ := cmd.Flags().GetInt("limit")
	watchMode, _ := cmd.Flags().GetBool("watch")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if sourceDir == "" {
		sourceDir = cfg.Zones.Raw
	}
	if destDir == "" {
		destDir = cfg.Zones.Validated
	}
	if pattern == "" {
		pattern = cfg.Migration.Pattern
	}
	if !cmd.Flags().Changed("backup-dir") {
		backupDir = cfg.Migration.BackupDir
	}

	mode := migrate.ModeCopy
	if move {
		mode = migrate.ModeMove
	}

	predicate, err := newRulePredicate(cfg)
	if err != nil {
		return err
	}

	store, err := state.Open(cfg.GetStatePath())
	if err != nil {
		return fmt.Errorf("failed to open processing state: %w", err)
	}
	defer store.Close()

	migrator, err := migrate.New(migrate.Options{
		State:     store,
		Validate:  predicate,
		Mode:      mode,
		BackupDir: backupDir,
		DryRun:    dryRun,
		Limit:     limit,
		Logger:    logger.Logger,
	})
	if err != nil {
		return err
	}

	if !useJSON {
		pterm.DefaultHeader.WithFullWidth().Printf("Migration: %s -> %s", sourceDir, destDir)
		pterm.Println()

		if dryRun {
			pterm.Warning.Println("DRY RUN MODE: No files will be written")
			pterm.Println()
		}
	}

	if watchMode {
		return watchAndMigrate(migrator, cfg, sourceDir, destDir, pattern, mode, dryRun, useJSON)
	}

	result, err := migrateOnce(cmd.Context(), migrator, sourceDir, destDir, pattern, mode, dryRun)
	if err != nil {
		return err
	}
	return reportMigration(result, useJSON)
}

// migrateOnce executes one migration pass with a catalog ledger row
// around it. Dry runs skip the ledger.
func migrateOnce(ctx context.Context, migrator *migrate.Migrator, sourceDir, destDir, pattern, mode string, dryRun bool) (*migrate.Result, error) {
	if dryRun {
		return migrator.Run(ctx, sourceDir, destDir, pattern)
	}

	database, err := openCatalog("")
	if err != nil {
		return nil, err
	}
	defer database.Close()

	runs := catalog.NewRunStore(database)
	run, err := runs.Begin("migrate", mode)
	if err != nil {
		return nil, err
	}

	result, runErr := migrator.Run(ctx, sourceDir, destDir, pattern)
	if err := runs.Finish(run, result, runErr); err != nil {
		logger.Warnw("Failed to record run outcome",
			"sym", sym.DB,
			"run_id", run.ID,
			"error", err,
		)
	}
	return result, runErr
}

// watchAndMigrate keeps the migrator running against the source zone
// until interrupted. Each settled burst of filesystem events becomes
// one migration pass with its own ledger row.
func watchAndMigrate(migrator *migrate.Migrator, cfg *config.Config, sourceDir, destDir, pattern, mode string, dryRun, useJSON bool) error {
	runFn := func(ctx context.Context) error {
		result, err := migrateOnce(ctx, migrator, sourceDir, destDir, pattern, mode, dryRun)
		if err != nil {
			return err
		}
		if result.Failed > 0 {
			return errors.Newf("%d file(s) failed to migrate", result.Failed)
		}
		return nil
	}

	engine, err := watch.New(runFn, watch.Options{
		Dir:              sourceDir,
		Debounce:         time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		MaxRunsPerMinute: cfg.Watch.MaxRunsPerMinute,
		PostRunHook:      cfg.Watch.PostRunHook,
		Logger:           logger.Logger,
	})
	if err != nil {
		return err
	}
	if err := engine.Start(); err != nil {
		return err
	}

	if !useJSON {
		pterm.Info.Printf("Watching %s (debounce %dms, max %d runs/min)\n",
			sourceDir, cfg.Watch.DebounceMs, cfg.Watch.MaxRunsPerMinute)
		pterm.Printf("  Press Ctrl+C to stop\n")
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	if !useJSON {
		pterm.Println()
		pterm.Info.Println("Stopping watcher...")
	}
	engine.Stop()
	return nil
}

// reportMigration renders the run summary and converts per-file
// failures into a non-zero exit.
func reportMigration(result *migrate.Result, useJSON bool) error {
	if useJSON {
		if err := display.OutputJSON(result); err != nil {
			return err
		}
	} else {
		pterm.Println()
		pterm.Printf("  Processed: %d\n", result.Processed)
		pterm.Printf("  Skipped:   %d (already migrated)\n", result.Skipped)
		pterm.Printf("  Failed:    %d\n", result.Failed)
		pterm.Println()

		for _, fe := range result.Errors {
			pterm.Error.Printf("%s [%s]: %s\n", fe.Path, fe.Stage, fe.Error)
		}
		if result.Failed == 0 {
			pterm.Success.Println("Migration complete")
		}
	}

	if result.Failed > 0 {
		return errors.Newf("%d file(s) failed to migrate", result.Failed)
	}
	return nil
}

// newRulePredicate adapts the validation engine into the migration
// engine's per-file gate. Record streams must pass the configured rule
// set; other file types pass on the structural checks alone.
func newRulePredicate(cfg *config.Config) (migrate.ValidatePredicate, error) {
	rules, err := loadConfiguredRules(cfg, "", "")
	if err != nil {
		return nil, err
	}
	v, err := validate.New(rules)
	if err != nil {
		return nil, err
	}

	return func(path string) error {
		if strings.ToLower(filepath.Ext(path)) != ".jsonl" {
			return nil
		}
		report, err := v.ValidateFile(path)
		if err != nil {
			return err
		}
		if !report.Pass() {
			return errors.Newf("%d of %d record(s) violate the %s rule set", report.Invalid, report.Total, rules.Name)
		}
		return nil
	}, nil
}
