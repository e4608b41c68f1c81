package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emberline/curator/release"
	"github.com/emberline/curator/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show curator version information",
	Long: `Display version, build time, commit hash, and platform information
for the curator binary, plus the data collection version from the
VERSION file when run inside a collection repository.`,
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		info := version.Get()
		collection, _ := release.CurrentVersion(".")

		if jsonOutput {
			output, err := json.MarshalIndent(struct {
				version.Info
				Collection string `json:"collection_version"`
			}{info, collection}, "", "  ")
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error formatting JSON: %v\n", err)
				return
			}
			fmt.Println(string(output))
		} else {
			fmt.Println(info.String())
			fmt.Printf("Platform: %s\n", info.Platform)
			fmt.Printf("Go: %s\n", info.GoVersion)
			fmt.Printf("Collection: %s\n", collection)
		}
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
}
