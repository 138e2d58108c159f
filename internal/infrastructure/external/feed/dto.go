// Package feed implements clients for external attendance feeds.
// Training departments export attendance as tabular data (a spreadsheet
// service or a plain CSV drop); this package fetches those exports and
// normalizes them into the shape the reconciliation pipeline consumes.
package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// API RESPONSE WRAPPERS
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse represents a generic API response wrapper.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// FEED DTOs
// ══════════════════════════════════════════════════════════════════════════════

// FeedDocumentDTO is a tabular feed as returned by the export API.
// Headers may be empty when the export leaves the header as the first row.
type FeedDocumentDTO struct {
	// Source is the export's name for itself (sheet title, file name).
	Source string `json:"source,omitempty"`

	// Headers carries column names when the export separates them out.
	Headers []string `json:"headers,omitempty"`

	// Rows are the data rows.
	Rows []RowDTO `json:"rows"`

	// ExportedAt is when the export was generated.
	ExportedAt *time.Time `json:"exported_at,omitempty"`
}

// RowDTO is one feed row. Exports disagree on row shape: some emit a JSON
// array of cells, some an object keyed by column name. The custom unmarshal
// accepts both and coerces every value to a string.
type RowDTO struct {
	// Cells holds the positional shape; nil when Fields is set.
	Cells []string

	// Fields holds the keyed shape; nil when Cells is set.
	Fields map[string]string
}

// UnmarshalJSON implements json.Unmarshaler for the two row shapes.
func (r *RowDTO) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case []interface{}:
		cells := make([]string, len(v))
		for i, cell := range v {
			cells[i] = coerceString(cell)
		}
		r.Cells = cells
		r.Fields = nil
		return nil

	case map[string]interface{}:
		fields := make(map[string]string, len(v))
		for key, value := range v {
			fields[key] = coerceString(value)
		}
		r.Fields = fields
		r.Cells = nil
		return nil

	default:
		return fmt.Errorf("feed row must be an array or an object, got %T", raw)
	}
}

// coerceString renders a JSON scalar as the string the cell would show.
// Spreadsheet exports routinely type numeric-looking UIDs as numbers.
func coerceString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		// Integral floats print without the trailing ".0" json gives them.
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR DTOs
// ══════════════════════════════════════════════════════════════════════════════

// APIErrorDTO is an error response from the export API.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("feed api error %s: %s", e.Code, e.Message)
	}
	return "feed api error: " + e.Message
}
