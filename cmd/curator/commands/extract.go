package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/emberline/curator/catalog"
	"github.com/emberline/curator/config"
	"github.com/emberline/curator/display"
	"github.com/emberline/curator/dump"
	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/extract"
	"github.com/emberline/curator/fetch"
	"github.com/emberline/curator/logger"
	"github.com/emberline/curator/record"
	"github.com/emberline/curator/safeio"
	"github.com/emberline/curator/sym"
)

// ExtractCmd represents the extract command
var ExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: sym.Extract + " Pull new records from the bulk source into a dump",
	Long: sym.Extract + ` extract — streaming extraction with delta detection.

Streams records from the upstream bulk source through the content
filters into a timestamped dump directory under the raw zone. Delta
mode extracts only records published after the newest complete prior
dump for this source; with no prior complete dump it degrades to a full
extraction. A delta run with no new upstream records produces a
zero-record dump, not an error.

Cancellation (Ctrl+C) finalizes the dump as partial: it is preserved
for inspection but never advances the delta watermark.

A bearer token in CURATOR_SOURCE_TOKEN (or the source's native token
variable) raises the request rate tier; without one the extractor runs
at the polite anonymous tier.

Examples:
  curator extract                                  # full extraction with config filters
  curator extract --mode delta                     # only records newer than the watermark
  curator extract --mode delta --since 2024-01-01  # backfill: override the watermark
  curator extract --limit 100 --dry-run            # preview the first 100 records
  curator extract --snapshot dumps/ars.jsonl       # extract from a local snapshot
  curator extract --snapshot https://example.org/ars.jsonl?checksum=sha256:...
  curator extract --keywords 'interpretability "mesa optimization"'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd)
	},
}

func init() {
	ExtractCmd.Flags().String("mode", dump.TypeFull, "Extraction mode: full or delta")
	ExtractCmd.Flags().String("dest", "", "Dump root directory (default: zones.raw from config)")
	ExtractCmd.Flags().Int("limit", 0, "Stop after N written records (0 = unlimited)")
	ExtractCmd.Flags().String("since", "", "Watermark override for delta backfill (YYYY-MM-DD)")
	ExtractCmd.Flags().String("snapshot", "", "Extract from a local file or remote snapshot URL instead of the live source")
	ExtractCmd.Flags().String("keywords", "", "Override configured keywords (shell-quoted, any-of match)")
	ExtractCmd.Flags().Bool("dry-run", false, "Stream and filter without writing a dump")
	ExtractCmd.Flags().Bool("json", false, "Output results in JSON format")
}

func runExtract(cmd *cobra.Command) error {
	useJSON := display.ShouldOutputJSON(cmd)
	verbosity, _ := cmd.Flags().GetCount("verbose")

	mode, _ := cmd.Flags().GetString("mode")
	destRoot, _ := cmd.Flags().GetString("dest")
	limit, _ := cmd.Flags().GetInt("limit")
	since, _ := cmd.Flags().GetString("since")
	snapshot, _ := cmd.Flags().GetString("snapshot")
	keywordsFlag, _ := cmd.Flags().GetString("keywords")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if mode != dump.TypeFull && mode != dump.TypeDelta {
		return errors.Wrapf(errors.ErrInvalidConfig, "mode must be %q or %q, got %q", dump.TypeFull, dump.TypeDelta, mode)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if destRoot == "" {
		destRoot = cfg.Zones.Raw
	}

	keywords := cfg.Extraction.Keywords
	if keywordsFlag != "" {
		parsed, err := shellquote.Split(keywordsFlag)
		if err != nil {
			return errors.Wrapf(err, "malformed --keywords %q", keywordsFlag)
		}
		keywords = parsed
	}

	var emitter extract.ProgressEmitter
	if useJSON {
		emitter = extract.NewJSONEmitter()
	} else {
		emitter = extract.NewCLIEmitter(verbosity)

		pterm.DefaultHeader.WithFullWidth().Printf("Extraction: %s (%s)", cfg.Extraction.Source, mode)
		pterm.Println()

		if dryRun {
			pterm.Warning.Println("DRY RUN MODE: No dump will be written")
			pterm.Println()
		}
	}

	// Cancellation finalizes the dump as partial instead of killing the
	// process mid-write.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openRecordSource(ctx, cfg, snapshot)
	if err != nil {
		return err
	}
	defer src.Close()

	extractor := extract.New(src, extract.Options{
		Root:       destRoot,
		SourceName: cfg.Extraction.Source,
		SourceURL:  cfg.Extraction.BaseURL,
		Mode:       mode,
		Since:      since,
		Limit:      limit,
		DryRun:     dryRun,
		Verbosity:  verbosity,
		Filter: extract.Filter{
			MinDate:       cfg.Extraction.MinDate,
			Sources:       cfg.Extraction.Sources,
			Keywords:      keywords,
			MinTextLength: cfg.Extraction.MinTextLength,
		},
		Provenance: record.Provenance{
			SourceSystem: cfg.Extraction.Dataset,
			License:      cfg.Extraction.License,
			Attribution:  cfg.Extraction.Attribution,
			Citation:     cfg.Extraction.Citation,
		},
	}, emitter, logger.Logger)

	if dryRun {
		stats, runErr := extractor.Run(ctx)
		if runErr != nil {
			return runErr
		}
		return reportExtraction(stats, useJSON)
	}

	database, err := openCatalog("")
	if err != nil {
		return err
	}
	defer database.Close()

	runs := catalog.NewRunStore(database)
	run, err := runs.Begin("extract", mode)
	if err != nil {
		return err
	}

	stats, runErr := extractor.Run(ctx)
	if err := runs.Finish(run, stats, runErr); err != nil {
		logger.Warnw("Failed to record run outcome",
			"sym", sym.DB,
			"run_id", run.ID,
			"error", err,
		)
	}

	// The dump is finalized even on failure (as partial); register
	// whatever metadata it ended up with.
	if stats.Dump != "" {
		registerDump(database, stats.Dump)
	}

	if runErr != nil {
		return runErr
	}
	return reportExtraction(stats, useJSON)
}

// openRecordSource picks the record source: a snapshot path or URL when
// given, the configured HTTP endpoint otherwise.
func openRecordSource(ctx context.Context, cfg *config.Config, snapshot string) (extract.Source, error) {
	if snapshot != "" {
		local := snapshot
		if fetch.IsRemote(snapshot) {
			cached, err := fetch.Fetch(ctx, snapshot, defaultCacheDir, logger.Logger)
			if err != nil {
				return nil, err
			}
			local = cached
		}
		// A dump directory stands in for its record stream.
		if safeio.DirExists(local) {
			local = dump.DataPath(local)
		}
		return extract.NewFileSource(local)
	}

	return extract.NewHTTPSource(extract.HTTPSourceConfig{
		BaseURL:           cfg.Extraction.BaseURL,
		Files:             extract.SourceFiles(cfg.Extraction.Sources),
		Token:             cfg.Extraction.Token,
		RequestsPerMinute: cfg.Extraction.EffectiveRequestsPerMinute(),
		Timeout:           time.Duration(cfg.Extraction.TimeoutSeconds) * time.Second,
		Logger:            logger.Logger,
	}), nil
}

// registerDump upserts a finalized dump directory into the catalog.
// Registration failures are logged, not fatal: the metadata sidecar
// stays authoritative and a later `curator dumps --sync` repairs the
// registry.
func registerDump(database *sql.DB, dir string) {
	meta, err := dump.ReadMetadata(dir)
	if err != nil {
		logger.Warnw("Cannot read dump metadata for registration",
			"sym", sym.Dump,
			"dump", dir,
			"error", err,
		)
		return
	}
	if err := catalog.NewDumpStore(database).Register(&dump.Info{Dir: dir, Meta: meta}); err != nil {
		logger.Warnw("Failed to register dump in catalog",
			"sym", sym.DB,
			"dump", dir,
			"error", err,
		)
	}
}

func reportExtraction(stats *extract.Stats, useJSON bool) error {
	if useJSON {
		return display.OutputJSON(stats)
	}

	pterm.Println()
	pterm.Printf("  Fetched:  %d\n", stats.RecordsFetched)
	pterm.Printf("  Filtered: %d\n", stats.RecordsFiltered)
	pterm.Printf("  Written:  %d\n", stats.RecordsWritten)
	pterm.Printf("  Errors:   %d\n", stats.ErrorsEncountered)
	pterm.Printf("  Duration: %.1fs\n", stats.DurationSeconds)
	if stats.Watermark != "" {
		pterm.Printf("  Watermark: %s\n", stats.Watermark)
	}
	if stats.Dump != "" {
		pterm.Printf("  Dump: %s\n", stats.Dump)
	}
	pterm.Println()
	pterm.Success.Println("Extraction complete")
	return nil
}
