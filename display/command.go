package display

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ShouldOutputJSON decides whether a command renders JSON instead of
// human-readable output, from flags first and the environment second.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	// No command context (e.g. result rendering outside cobra): fall
	// back to environment detection only.
	if cmd == nil {
		return MachineReadable()
	}

	// An explicit --json on the command wins either way.
	if cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	// Then the global --json flag.
	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	// Piped into another tool: default to JSON.
	return MachineReadable()
}

// OutputJSON marshals and prints JSON using display.MarshalJSON
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
