package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
)

// ProgressEmitter receives extraction milestones. Two implementations:
//
//   - CLIEmitter: pretty-printed terminal output using pterm
//   - JSONEmitter: structured JSON events on stdout for machine callers
type ProgressEmitter interface {
	// EmitStage announces a phase change (watermark lookup, streaming,
	// finalize).
	EmitStage(stage string, message string)

	// EmitProgress reports running counts. Metadata carries
	// fetched/filtered/written breakdowns.
	EmitProgress(count int, metadata map[string]interface{})

	// EmitComplete reports the final stats summary.
	EmitComplete(summary map[string]interface{})

	// EmitError reports a failure in a named stage.
	EmitError(stage string, err error)

	// EmitInfo reports incidental detail gated behind verbosity.
	EmitInfo(message string)
}

// CLIEmitter outputs pretty-printed progress to terminal using pterm.
type CLIEmitter struct {
	verbosity int
}

// NewCLIEmitter creates a CLI progress emitter for terminal output.
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

func (e *CLIEmitter) EmitStage(stage string, message string) {
	pterm.Printf("🔄 %s: %s\n", pterm.LightCyan(stage), message)
}

func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	if itemType, ok := metadata["type"].(string); ok {
		pterm.Printf("✅ Processed %s %s\n", pterm.Green(fmt.Sprintf("%d", count)), itemType)
	} else {
		pterm.Printf("✅ Processed %s records\n", pterm.Green(fmt.Sprintf("%d", count)))
	}
}

func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	pterm.Success.Println("Extraction complete!")
	if e.verbosity >= 1 {
		for key, value := range summary {
			pterm.Printf("  %s: %v\n", key, value)
		}
	}
}

func (e *CLIEmitter) EmitError(stage string, err error) {
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

func (e *CLIEmitter) EmitInfo(message string) {
	if e.verbosity >= 1 {
		pterm.Info.Println(message)
	}
}

// ProgressEvent is one structured JSON progress line.
type ProgressEvent struct {
	Type      string                 `json:"type"` // "stage", "progress", "complete", "error", "info"
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// JSONEmitter outputs structured JSON events to stdout.
type JSONEmitter struct {
	encoder *json.Encoder
}

// NewJSONEmitter creates a JSON progress emitter for structured output.
func NewJSONEmitter() *JSONEmitter {
	return &JSONEmitter{
		encoder: json.NewEncoder(os.Stdout),
	}
}

func (e *JSONEmitter) emit(eventType string, data map[string]interface{}) {
	e.encoder.Encode(ProgressEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{
		"stage":   stage,
		"message": message,
	})
}

func (e *JSONEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{
		"count": count,
	}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}

func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{
		"message": message,
	})
}

// NopEmitter discards all events. Used when no progress surface is
// wired, e.g. watch-triggered runs.
type NopEmitter struct{}

func (NopEmitter) EmitStage(string, string)                  {}
func (NopEmitter) EmitProgress(int, map[string]interface{}) {}
func (NopEmitter) EmitComplete(map[string]interface{})      {}
func (NopEmitter) EmitError(string, error)                  {}
func (NopEmitter) EmitInfo(string)                          {}
