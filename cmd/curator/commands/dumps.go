package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emberline/curator/catalog"
	"github.com/emberline/curator/config"
	"github.com/emberline/curator/display"
	"github.com/emberline/curator/sym"
)

// DumpsCmd represents the dumps command
var DumpsCmd = &cobra.Command{
	Use:   "dumps",
	Short: sym.Dump + " List dump directories registered in the catalog",
	Long: sym.Dump + ` dumps — the dump registry.

Lists registered dump directories with their source, extraction type,
record count, and status. The metadata sidecar inside each dump stays
authoritative; the registry is a queryable index over it.

--sync walks the raw and validated zones and registers any dump the
index is missing, which repairs the registry after manual file moves
or a crashed extraction.

Examples:
  curator dumps                               # most recent 20
  curator dumps --source alignment_research   # one source only
  curator dumps --sync                        # re-index the zones first`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDumps(cmd)
	},
}

func init() {
	DumpsCmd.Flags().String("source", "", "Filter by source name")
	DumpsCmd.Flags().Int("limit", 20, "Maximum number of dumps to display")
	DumpsCmd.Flags().Bool("sync", false, "Re-scan the zones and register unindexed dumps first")
	DumpsCmd.Flags().Bool("json", false, "Output in JSON format")
}

func runDumps(cmd *cobra.Command) error {
	useJSON := display.ShouldOutputJSON(cmd)

	source, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("limit")
	doSync, _ := cmd.Flags().GetBool("sync")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openCatalog("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := catalog.NewDumpStore(database)

	if doSync {
		for _, zone := range []string{cfg.Zones.Raw, cfg.Zones.Validated} {
			n, err := store.Sync(zone)
			if err != nil {
				return err
			}
			if !useJSON && n > 0 {
				fmt.Printf("%s Registered %d dump(s) from %s\n", sym.Dump, n, zone)
			}
		}
	}

	rows, err := store.List(source, limit)
	if err != nil {
		return err
	}

	if useJSON {
		return display.OutputJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Printf("%s No dumps registered\n", sym.Dump)
		return nil
	}

	fmt.Printf("%-12s %-22s %-7s %8s  %-10s %s\n", "SHORT ID", "SOURCE", "TYPE", "RECORDS", "STATUS", "EXTRACTED")
	fmt.Printf("%-12s %-22s %-7s %8s  %-10s %s\n", "--------", "------", "----", "-------", "------", "---------")

	for _, row := range rows {
		fmt.Printf("%-12s %-22s %-7s %8d  %-10s %s\n",
			truncate(row.ShortID, 12),
			truncate(row.Source, 22),
			row.ExtractionType,
			row.RecordCount,
			row.Status,
			row.ExtractionDate.Format("2006-01-02 15:04"))
	}

	fmt.Printf("\nTotal: %d dump(s)\n", len(rows))
	return nil
}

// truncate shortens a string for table display
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
