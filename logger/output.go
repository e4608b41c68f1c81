package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: results, errors with hints, final status
//	1 (-v)      - + Progress, startup info, run summaries
//	2 (-vv)     - + Filter decisions, timing, config loaded, HTTP requests
//	3 (-vvv)    - + Per-record flow, SQL queries, state store operations
//	4 (-vvvv)   - + Full record payloads and state dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Run results, command output
	OutputErrors                           // Errors with hints and resolution steps
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputProgress      // Progress indicators (e.g., "Written 500 records")
	OutputStartup       // Startup banners, config summary
	OutputRunSummary    // End-of-run count summaries
	OutputOperationInfo // High-level operation summaries

	// Level 2 (-vv) - Detailed
	OutputFilterDecisions // Per-record filter accept/reject reasons
	OutputTiming          // Operation timing (e.g., "migration took 42ms")
	OutputConfig          // Config values loaded/applied
	OutputHTTPCalls       // External HTTP requests made
	OutputDBStats         // Catalog statistics and connection info

	// Level 3 (-vvv) - Debug
	OutputRecordFlow // Per-record pipeline flow
	OutputStateOps   // Processing-state store reads/writes
	OutputSQLQueries // Individual SQL queries executed
	OutputInternalOp // Internal operation flow (function entry/exit)

	// Level 4 (-vvvv) - Full dump
	OutputRecordBody // Full record payloads
	OutputStateDump  // Full processing-state contents
	OutputDataDump   // Full data structure contents
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	// Level 0 - Always shown
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	// Level 1 - Informational
	OutputProgress:      VerbosityInfo,
	OutputStartup:       VerbosityInfo,
	OutputRunSummary:    VerbosityInfo,
	OutputOperationInfo: VerbosityInfo,

	// Level 2 - Detailed
	OutputFilterDecisions: VerbosityDebug,
	OutputTiming:          VerbosityDebug,
	OutputConfig:          VerbosityDebug,
	OutputHTTPCalls:       VerbosityDebug,
	OutputDBStats:         VerbosityDebug,

	// Level 3 - Debug
	OutputRecordFlow: VerbosityTrace,
	OutputStateOps:   VerbosityTrace,
	OutputSQLQueries: VerbosityTrace,
	OutputInternalOp: VerbosityTrace,

	// Level 4 - Full dump
	OutputRecordBody: VerbosityAll,
	OutputStateDump:  VerbosityAll,
	OutputDataDump:   VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		// Unknown category, default to highest verbosity required
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:         "results",
	OutputErrors:          "errors",
	OutputUserStatus:      "status",
	OutputProgress:        "progress",
	OutputStartup:         "startup",
	OutputRunSummary:      "run-summary",
	OutputOperationInfo:   "operation-info",
	OutputFilterDecisions: "filter-decisions",
	OutputTiming:          "timing",
	OutputConfig:          "config",
	OutputHTTPCalls:       "http",
	OutputDBStats:         "db-stats",
	OutputRecordFlow:      "record-flow",
	OutputStateOps:        "state-ops",
	OutputSQLQueries:      "sql",
	OutputInternalOp:      "internal",
	OutputRecordBody:      "record-body",
	OutputStateDump:       "state-dump",
	OutputDataDump:        "data-dump",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories returns all output categories enabled at the given verbosity
func EnabledCategories(verbosity int) []OutputCategory {
	var enabled []OutputCategory
	for cat, minLevel := range categoryLevels {
		if verbosity >= minLevel {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "results, errors, progress, and status"
	case VerbosityDebug:
		return "above + filter decisions, timing, config details"
	case VerbosityTrace:
		return "above + record flow, state ops, SQL"
	case VerbosityAll:
		return "full output including record payloads"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}
