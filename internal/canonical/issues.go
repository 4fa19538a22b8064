package canonical

// Issue codes emitted by the normalizers.
const (
	IssueCorruptedNotes         = "corrupted_notes"
	IssueInvalidPhone           = "invalid_phone"
	IssueInvalidTimestamp       = "invalid_timestamp"
	IssueUnknownRole            = "unknown_role"
	IssueInvalidActiveFlag      = "invalid_active_flag"
	IssueInconsistentResolvedAt = "inconsistent_resolved_at"
	IssueInvalidNumber          = "invalid_number"
)

// Issue is a single data-quality finding on one field.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is either a clean entity or an entity accompanied by the defects found.
type Result[T any] struct {
	Entity T
	Issues []Issue
}

// OK reports whether the entity was produced without any data-quality issue.
func (r Result[T]) OK() bool {
	return len(r.Issues) == 0
}

type issueList []Issue

func (l *issueList) add(field, code, message string) {
	*l = append(*l, Issue{Field: field, Code: code, Message: message})
}
