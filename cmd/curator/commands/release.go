package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/emberline/curator/display"
	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/logger"
	"github.com/emberline/curator/release"
	"github.com/emberline/curator/sym"
)

// ReleaseCmd represents the release command
var ReleaseCmd = &cobra.Command{
	Use:   "release",
	Short: sym.Release + " Bump the collection version from git history",
	Long: sym.Release + ` release — version the data collection.

Reads the VERSION file, classifies the bump from git history since the
last release tag, writes the new version, and prepends a changelog
stub. Commits that touch the data zones count as new or changed
records and warrant a minor bump; anything else is a patch. Major
bumps are never inferred, only requested with --increment major.

Examples:
  curator release --dry-run          # show the plan without applying it
  curator release                    # classify and bump
  curator release --increment major  # breaking schema change
  curator release --tag              # also tag HEAD with vX.Y.Z`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd)
	},
}

func init() {
	ReleaseCmd.Flags().String("repo", ".", "Data repository root holding VERSION and .git")
	ReleaseCmd.Flags().String("increment", "", "Force the bump: major, minor, or patch (default: classify from history)")
	ReleaseCmd.Flags().Bool("tag", false, "Create a lightweight vX.Y.Z tag on HEAD")
	ReleaseCmd.Flags().Bool("dry-run", false, "Show the release plan without applying it")
	ReleaseCmd.Flags().Bool("json", false, "Output the plan in JSON format")
}

func runRelease(cmd *cobra.Command) error {
	useJSON := display.ShouldOutputJSON(cmd)

	repo, _ := cmd.Flags().GetString("repo")
	increment, _ := cmd.Flags().GetString("increment")
	tag, _ := cmd.Flags().GetBool("tag")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	switch release.Bump(increment) {
	case "", release.BumpMajor, release.BumpMinor, release.BumpPatch:
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "increment must be major, minor, or patch, got %q", increment)
	}

	manager := release.New(release.Options{
		RepoPath:  repo,
		Increment: release.Bump(increment),
		Tag:       tag,
		DryRun:    dryRun,
		Logger:    logger.Logger,
	})

	plan, err := manager.Run()
	if err != nil {
		return err
	}

	if useJSON {
		return display.OutputJSON(plan)
	}

	pterm.DefaultHeader.WithFullWidth().Printf("Release: %s → %s", plan.Current, plan.Next)
	pterm.Println()
	if dryRun {
		pterm.Warning.Println("DRY RUN MODE: VERSION and changelog unchanged")
		pterm.Println()
	}

	pterm.Printf("  Bump:    %s\n", plan.Bump)
	pterm.Printf("  Reason:  %s\n", plan.Reason)
	if plan.SinceTag != "" {
		pterm.Printf("  Since:   %s\n", plan.SinceTag)
	}
	pterm.Printf("  Commits: %d (%d data file(s), %d other)\n", plan.Commits, plan.DataFiles, plan.OtherFiles)

	if len(plan.Messages) > 0 {
		pterm.Println()
		pterm.Info.Println("Recent commits:")
		for _, msg := range plan.Messages {
			pterm.Printf("  - %s\n", truncate(msg, 72))
		}
	}

	pterm.Println()
	if dryRun {
		pterm.Success.Printf("Would release v%s\n", plan.Next)
	} else {
		pterm.Success.Printf("Released v%s\n", plan.Next)
	}
	return nil
}
