package logger

import (
	"github.com/emberline/curator/sym"
	"go.uber.org/zap"
)

// Symbol-aware logging helpers.
// These functions log with the stage symbol as a structured field, not in
// the message.
//
// Usage:
//
//	// Instead of:
//	logger.Infow(sym.Migrate + " File migrated", "file", path)
//
//	// Use:
//	logger.MigrateInfow("File migrated", "file", path)
//
// This makes logs queryable by stage and keeps messages clean.

// MigrateInfow logs an info message with the migrate symbol (⟶)
func MigrateInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Migrate}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// MigrateDebugw logs a debug message with the migrate symbol (⟶)
func MigrateDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Migrate}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// MigrateWarnw logs a warning message with the migrate symbol (⟶)
func MigrateWarnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Migrate}, keysAndValues...)
		Logger.Warnw(msg, fields...)
	}
}

// MigrateErrorw logs an error message with the migrate symbol (⟶)
func MigrateErrorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Migrate}, keysAndValues...)
		Logger.Errorw(msg, fields...)
	}
}

// ExtractInfow logs an info message with the extract symbol (⨳)
func ExtractInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Extract}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// ExtractDebugw logs a debug message with the extract symbol (⨳)
func ExtractDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Extract}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// StateInfow logs an info message with the state symbol (≡)
// Used for processing-state store operations
func StateInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.State}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// StateDebugw logs a debug message with the state symbol (≡)
func StateDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.State}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// DBInfow logs an info message with the DB symbol (⊔)
// Used for catalog/storage operations
func DBInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// DBDebugw logs a debug message with the DB symbol (⊔)
func DBDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// WithSymbol returns a logger with the given symbol as a field.
// For ad-hoc symbol usage not covered by the helpers above.
//
// Example:
//
//	symbolLogger := logger.WithSymbol(sym.Validate)
//	symbolLogger.Infow("Validating dump", "path", dumpPath)
func WithSymbol(symbol string) *zap.SugaredLogger {
	return Logger.With(FieldSymbol, symbol)
}

// SymbolInfow logs with any symbol - for dynamic symbol usage
func SymbolInfow(symbol, msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, symbol}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// ============================================================================
// Instance logger wrappers
// ============================================================================
// These functions wrap any logger with a symbol field, useful when you have
// an instance logger (e.g., m.logger, e.logger) rather than using the global
// Logger.
//
// Usage:
//
//	// At initialization:
//	type Migrator struct {
//	    log *zap.SugaredLogger
//	}
//	m.log = logger.AddMigrateSymbol(baseLogger)
//
//	// Or inline:
//	logger.AddWatchSymbol(e.logger).Infow("Watcher started", "dir", dir)

// AddMigrateSymbol wraps a logger with the migrate symbol (⟶)
func AddMigrateSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Migrate)
}

// AddExtractSymbol wraps a logger with the extract symbol (⨳)
func AddExtractSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Extract)
}

// AddValidateSymbol wraps a logger with the validate symbol (⊨)
func AddValidateSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Validate)
}

// AddScoreSymbol wraps a logger with the score symbol (✦)
func AddScoreSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Score)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.DB)
}

// AddStateSymbol wraps a logger with the state symbol (≡)
func AddStateSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.State)
}

// AddWatchSymbol wraps a logger with the watch symbol (꩜)
func AddWatchSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Watch)
}

// AddDumpSymbol wraps a logger with the dump symbol (▤)
func AddDumpSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Dump)
}
