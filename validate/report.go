package validate

// Category classifies a validation failure for the errors_by_type
// breakdown in the report.
type Category string

const (
	CategorySchema       Category = "schema"
	CategoryDuplicateID  Category = "duplicate_id"
	CategoryMissingField Category = "missing_field"
	CategoryEncoding     Category = "encoding"
)

// maxReportedIssues caps the per-record error list so a pathological
// dump cannot balloon the report; counts stay exact past the cap.
const maxReportedIssues = 1000

// Issue is one rule violation on one record.
type Issue struct {
	Line       int      `json:"line"`
	SourceID   string   `json:"source_id,omitempty"`
	Field      string   `json:"field,omitempty"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// ErrorCounts is the errors_by_type breakdown.
type ErrorCounts struct {
	Schema       int `json:"schema"`
	DuplicateID  int `json:"duplicate_id"`
	MissingField int `json:"missing_field"`
	Encoding     int `json:"encoding"`
}

// MetadataReport carries dump-metadata findings separate from record
// findings. Issues fail the dump; warnings do not.
type MetadataReport struct {
	Issues   []string `json:"issues,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Pass reports whether the metadata had no blocking issues.
func (m *MetadataReport) Pass() bool {
	return m == nil || len(m.Issues) == 0
}

// Report summarizes a validation run. The validator never modifies its
// input; callers decide whether a failing report blocks promotion.
type Report struct {
	Total           int             `json:"total"`
	Valid           int             `json:"valid"`
	Invalid         int             `json:"invalid"`
	ErrorsByType    ErrorCounts     `json:"errors_by_type"`
	PerRecordErrors []Issue         `json:"per_record_errors"`
	Metadata        *MetadataReport `json:"metadata,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// Pass reports whether every record validated cleanly and the metadata,
// if checked, had no blocking issues.
func (r *Report) Pass() bool {
	return r.Invalid == 0 && r.Metadata.Pass()
}

func (r *Report) record(issues []Issue) {
	r.Total++
	if len(issues) == 0 {
		r.Valid++
		return
	}
	r.Invalid++
	for _, issue := range issues {
		switch issue.Category {
		case CategoryDuplicateID:
			r.ErrorsByType.DuplicateID++
		case CategoryMissingField:
			r.ErrorsByType.MissingField++
		case CategoryEncoding:
			r.ErrorsByType.Encoding++
		default:
			r.ErrorsByType.Schema++
		}
		if len(r.PerRecordErrors) < maxReportedIssues {
			r.PerRecordErrors = append(r.PerRecordErrors, issue)
		}
	}
}
