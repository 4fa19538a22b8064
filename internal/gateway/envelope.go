package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// Envelope is the response wrapper every record store action returns.
type Envelope struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data,omitempty"`
	Error      json.RawMessage    `json:"error,omitempty"`
	Message    string             `json:"message,omitempty"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

// ErrorMessage extracts the store's error text, which may be a bare string or an object
// with a message field.
func (e *Envelope) ErrorMessage() string {
	if len(e.Error) > 0 {
		var text string
		if err := json.Unmarshal(e.Error, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Error, &obj); err == nil && obj.Message != "" {
			return strings.TrimSpace(obj.Message)
		}
	}
	if e.Message != "" {
		return strings.TrimSpace(e.Message)
	}
	return "record store reported failure"
}

// Page is one page of raw records.
type Page struct {
	Items      []canonical.Bag
	Pagination *domain.Pagination
}

// mapStoreError classifies a success=false response by its message.
func mapStoreError(action, message string) error {
	lower := strings.ToLower(message)
	details := map[string]any{"action": action, "store_message": message}
	switch {
	case strings.Contains(lower, "not found"):
		return apperrors.NewDomainError(apperrors.CodeNotFound, message, http.StatusNotFound, details)
	case strings.Contains(lower, "conflict"), strings.Contains(lower, "version"):
		return apperrors.NewConflict(message, details)
	case strings.Contains(lower, "invalid"), strings.Contains(lower, "required"):
		return apperrors.NewValidationError(message, details)
	default:
		return &apperrors.DomainError{
			Code:       apperrors.CodeInternal,
			Message:    "record store error: " + message,
			HTTPStatus: http.StatusInternalServerError,
			Details:    details,
		}
	}
}

func decodeRecords(data json.RawMessage) ([]canonical.Bag, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var items []canonical.Bag
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}
	// some actions wrap lists as {"items": [...]}
	var wrapped struct {
		Items []canonical.Bag `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Items, nil
}

func decodeRecord(data json.RawMessage) (canonical.Bag, error) {
	if len(data) == 0 || string(data) == "null" {
		return canonical.Bag{}, nil
	}
	var record canonical.Bag
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record, nil
}
