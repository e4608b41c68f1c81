package commands

import (
	"fmt"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/emberline/curator/config"
	"github.com/emberline/curator/display"
	"github.com/emberline/curator/logger"
	"github.com/emberline/curator/manifest"
	"github.com/emberline/curator/release"
	"github.com/emberline/curator/sym"
)

// ManifestCmd represents the manifest command
var ManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: sym.Manifest + " Describe the validated zone for downstream consumers",
	Long: sym.Manifest + ` manifest — inventory a zone into manifest.json.

Scans every data file under the zone and records its size, SHA-256
checksum, and record count (lines, for JSONL files), stamped with the
collection version from the VERSION file. Consumers verify what they
fetched against the manifest instead of trusting the transport.

Regeneration is idempotent: running twice over an unchanged zone
produces the same inventory.

Examples:
  curator manifest                                  # validated zone, manifest.json inside it
  curator manifest --source data/validated --dest manifest.json
  curator manifest --version 1.4.0                  # override the VERSION file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runManifest(cmd)
	},
}

func init() {
	ManifestCmd.Flags().String("source", "", "Zone directory to inventory (default: validated zone from config)")
	ManifestCmd.Flags().String("dest", "", "Manifest output path (default: manifest.json inside the zone)")
	ManifestCmd.Flags().String("version", "", "Collection version to stamp (default: VERSION file, then 0.0.0)")
	ManifestCmd.Flags().Bool("json", false, "Output the summary in JSON format")
}

func runManifest(cmd *cobra.Command) error {
	useJSON := display.ShouldOutputJSON(cmd)

	source, _ := cmd.Flags().GetString("source")
	dest, _ := cmd.Flags().GetString("dest")
	version, _ := cmd.Flags().GetString("version")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if source == "" {
		source = cfg.Zones.Validated
	}
	if dest == "" {
		dest = filepath.Join(source, manifest.FileName)
	}
	if version == "" {
		// Missing VERSION file is fine, Generate stamps 0.0.0.
		version, _ = release.CurrentVersion(".")
	}

	m, err := manifest.Generate(source, manifest.Options{
		Version: version,
		Logger:  logger.Logger,
	})
	if err != nil {
		return err
	}
	if err := m.Write(dest); err != nil {
		return err
	}

	if useJSON {
		return display.OutputJSON(struct {
			Version  string           `json:"version"`
			Summary  manifest.Summary `json:"summary"`
			Manifest string           `json:"manifest"`
		}{m.Version, m.Summary, dest})
	}

	pterm.DefaultHeader.WithFullWidth().Printf("Manifest: %s", source)
	pterm.Println()
	pterm.Printf("  Version: %s\n", m.Version)
	pterm.Printf("  Files:   %d\n", m.Summary.TotalFiles)
	pterm.Printf("  Bytes:   %d\n", m.Summary.TotalBytes)
	pterm.Printf("  Records: %d\n", m.Summary.TotalRecords)
	pterm.Println()
	pterm.Success.Printf("Manifest written to %s\n", dest)
	return nil
}
