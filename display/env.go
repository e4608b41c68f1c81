// Package display renders command results as JSON for pipelines and as
// readable text for terminals, choosing between the two from flags and
// the execution environment.
package display

import "os"

// MachineReadable reports whether output is headed for another program
// rather than a person. CURATOR_OUTPUT overrides detection in either
// direction; otherwise a non-terminal stdout means the command is being
// piped and should emit JSON.
func MachineReadable() bool {
	switch os.Getenv("CURATOR_OUTPUT") {
	case "json":
		return true
	case "text":
		return false
	}
	return !stdoutIsTerminal()
}

func stdoutIsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
