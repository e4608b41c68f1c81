package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/emberline/curator/display"
	"github.com/emberline/curator/fetch"
	"github.com/emberline/curator/logger"
	"github.com/emberline/curator/sym"
)

// defaultCacheDir holds fetched snapshots between runs. Re-fetching the
// same source overwrites the cached copy.
const defaultCacheDir = "data/cache"

// FetchCmd represents the fetch command
var FetchCmd = &cobra.Command{
	Use:   "fetch URL",
	Short: sym.Fetch + " Download a bulk snapshot into the local cache",
	Long: sym.Fetch + ` fetch — resolve a snapshot source to a local path.

Downloads remote snapshots (HTTP, git, archives) into the cache
directory; archives are unpacked, and a checksum= query on the URL is
verified after download. Local paths pass through untouched, so the
same argument works for cached and uncached sources alike.

The printed path feeds straight into extraction:
  curator extract --snapshot <path>

Examples:
  curator fetch https://example.org/dataset/snapshot.jsonl.gz
  curator fetch 'https://example.org/data.zip?checksum=sha256:deadbeef...'
  curator fetch https://example.org/data.jsonl --dest /tmp/snapshots`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd, args[0])
	},
}

func init() {
	FetchCmd.Flags().String("dest", defaultCacheDir, "Cache directory for downloaded snapshots")
	FetchCmd.Flags().Bool("json", false, "Output the resolved path in JSON format")
}

func runFetch(cmd *cobra.Command, src string) error {
	useJSON := display.ShouldOutputJSON(cmd)
	dest, _ := cmd.Flags().GetString("dest")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !useJSON && fetch.IsRemote(src) {
		pterm.Info.Printf("Downloading %s\n", src)
	}

	local, err := fetch.Fetch(ctx, src, dest, logger.Logger)
	if err != nil {
		return err
	}

	if useJSON {
		return display.OutputJSON(struct {
			Source string `json:"source"`
			Path   string `json:"path"`
		}{src, local})
	}

	pterm.Success.Printf("Snapshot available at %s\n", local)
	return nil
}
