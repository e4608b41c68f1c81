package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/emberline/curator/catalog"
	"github.com/emberline/curator/config"
	"github.com/emberline/curator/display"
	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/logger"
	"github.com/emberline/curator/safeio"
	"github.com/emberline/curator/sym"
	"github.com/emberline/curator/validate"
)

// maxIssuesShown caps the per-record findings printed in text mode; the
// full list is always available with --json.
const maxIssuesShown = 10

// ValidateCmd represents the validate command
var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: sym.Validate + " Certify a dump against a rule set",
	Long: sym.Validate + ` validate — structural validation of record streams.

Checks every record of a dump (or bare JSONL file) against a
declarative rule set: required fields, per-field type and shape rules,
duplicate IDs, and optionally character-set restrictions. When the
source is a dump directory, the metadata sidecar is checked too and its
record-count claim is compared with the actual stream.

The input is never modified; validation is read-only by contract. The
command exits non-zero when any record or metadata check failed, so it
can gate promotion in scripts.

Rule sets load from YAML. Without --rules the embedded default set for
the configured source is used.

Examples:
  curator validate --source data/raw/alignment_research_2024-03-01_120000
  curator validate --source records.jsonl
  curator validate --source dump/ --rules schemas/funding.yaml
  curator validate --source dump/ --charset ascii   # flag non-ASCII text`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	ValidateCmd.Flags().String("source", "", "Dump directory or JSONL file to validate (required)")
	ValidateCmd.Flags().String("rules", "", "Rule set YAML file (default: validation.rules_path from config, then the embedded set)")
	ValidateCmd.Flags().String("charset", "", "Restrict text to a character set (\"ascii\")")
	ValidateCmd.Flags().Bool("json", false, "Output the full report in JSON format")

	ValidateCmd.MarkFlagRequired("source")
}

func runValidate(cmd *cobra.Command) error {
	useJSON := display.ShouldOutputJSON(cmd)

	source, _ := cmd.Flags().GetString("source")
	rulesPath, _ := cmd.Flags().GetString("rules")
	charset, _ := cmd.Flags().GetString("charset")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rules, err := loadConfiguredRules(cfg, rulesPath, charset)
	if err != nil {
		return err
	}
	validator, err := validate.New(rules)
	if err != nil {
		return err
	}

	if !useJSON {
		pterm.DefaultHeader.WithFullWidth().Printf("Validation: %s", source)
		pterm.Println()
		pterm.Info.Printf("Rule set: %s\n", rules.Name)
		pterm.Println()
	}

	database, err := openCatalog("")
	if err != nil {
		return err
	}
	defer database.Close()

	runs := catalog.NewRunStore(database)
	run, err := runs.Begin("validate", rules.Name)
	if err != nil {
		return err
	}

	var report *validate.Report
	var runErr error
	if safeio.DirExists(source) {
		report, runErr = validator.ValidateDump(source)
	} else {
		report, runErr = validator.ValidateFile(source)
	}

	if err := runs.Finish(run, report, runErr); err != nil {
		logger.Warnw("Failed to record run outcome",
			"sym", sym.DB,
			"run_id", run.ID,
			"error", err,
		)
	}
	if runErr != nil {
		return runErr
	}

	return reportValidation(report, useJSON)
}

func reportValidation(report *validate.Report, useJSON bool) error {
	if useJSON {
		if err := display.OutputJSON(report); err != nil {
			return err
		}
	} else {
		pterm.Printf("  Total:   %d\n", report.Total)
		pterm.Printf("  Valid:   %d\n", report.Valid)
		pterm.Printf("  Invalid: %d\n", report.Invalid)
		pterm.Println()

		if report.Invalid > 0 {
			pterm.Printf("  Errors by type: schema %d, duplicate_id %d, missing_field %d, encoding %d\n",
				report.ErrorsByType.Schema,
				report.ErrorsByType.DuplicateID,
				report.ErrorsByType.MissingField,
				report.ErrorsByType.Encoding,
			)
			pterm.Println()

			shown := report.PerRecordErrors
			if len(shown) > maxIssuesShown {
				shown = shown[:maxIssuesShown]
			}
			for _, issue := range shown {
				field := issue.Field
				if field == "" {
					field = "-"
				}
				pterm.Printf("  line %-6d %-14s %-20s %s\n", issue.Line, issue.Category, field, issue.Message)
				if issue.Suggestion != "" {
					pterm.Printf("              suggestion: %s\n", issue.Suggestion)
				}
			}
			if len(report.PerRecordErrors) > maxIssuesShown {
				pterm.Printf("  ... %d more (use --json for the full report)\n", len(report.PerRecordErrors)-maxIssuesShown)
			}
			pterm.Println()
		}

		if report.Metadata != nil {
			for _, issue := range report.Metadata.Issues {
				pterm.Error.Printf("metadata: %s\n", issue)
			}
			for _, warning := range report.Metadata.Warnings {
				pterm.Warning.Printf("metadata: %s\n", warning)
			}
		}
		for _, warning := range report.Warnings {
			pterm.Warning.Println(warning)
		}

		if report.Pass() {
			pterm.Success.Println("All records valid")
		}
	}

	if !report.Pass() {
		if report.Invalid > 0 {
			return errors.Newf("validation failed: %d invalid record(s)", report.Invalid)
		}
		return errors.New("validation failed: dump metadata has blocking issues")
	}
	return nil
}

// loadConfiguredRules resolves the active rule set: an explicit path
// wins, then the configured path, then the embedded set for the default
// source. A charset argument overrides the rule set's own restriction.
func loadConfiguredRules(cfg *config.Config, rulesPath, charset string) (*validate.RuleSet, error) {
	path := rulesPath
	if path == "" {
		path = cfg.Validation.RulesPath
	}

	var rules *validate.RuleSet
	var err error
	if path != "" {
		rules, err = validate.LoadRuleSet(path)
	} else {
		rules, err = validate.BuiltinRuleSet(config.DefaultSource)
	}
	if err != nil {
		return nil, err
	}

	if charset == "" {
		charset = cfg.Validation.Charset
	}
	if charset != "" {
		rules.Charset = charset
	}
	return rules, nil
}
