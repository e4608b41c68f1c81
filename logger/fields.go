package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across curator.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID  = "run_id"
	FieldDumpID = "dump_id"
	FieldSource = "source"

	// Components
	FieldComponent = "component"
	FieldEngine    = "engine"

	// Operations
	FieldOperation = "operation"
	FieldMode      = "mode"
	FieldPath      = "path"
	FieldPattern   = "pattern"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldStartTime  = "start_time"
	FieldEndTime    = "end_time"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"

	// Counts and sizes
	FieldCount     = "count"
	FieldSize      = "size"
	FieldRecords   = "records"
	FieldProcessed = "processed"
	FieldSkipped   = "skipped"
	FieldFailed    = "failed"

	// Integrity
	FieldChecksum       = "checksum"
	FieldSourceChecksum = "source_checksum"
	FieldDestChecksum   = "dest_checksum"

	// Status
	FieldStatus = "status"
	FieldState  = "state"

	// Files and paths
	FieldFile     = "file"
	FieldSrcPath  = "src_path"
	FieldDestPath = "dest_path"

	// Pipeline-specific
	FieldSymbol    = "symbol" // stage symbol (⨳, ⟶, ⊨, etc.)
	FieldTier      = "tier"
	FieldScore     = "score"
	FieldWatermark = "watermark"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	dumpIDKey    contextKey = "logger_dump_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithDumpID adds a dump ID to the context for logging
func WithDumpID(ctx context.Context, dumpID string) context.Context {
	return context.WithValue(ctx, dumpIDKey, dumpID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if dumpID, ok := ctx.Value(dumpIDKey).(string); ok && dumpID != "" {
		fields = append(fields, FieldDumpID, dumpID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
// Use this to get a logger that automatically includes run_id, dump_id, etc.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Migrator struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewMigrator() *Migrator {
//	    return &Migrator{
//	        logger: logger.ComponentLogger("migrate"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
//
// Example:
//
//	runLogger := logger.ChildLogger(baseLogger, "run_id", run.ID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
