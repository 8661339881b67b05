package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"nbme-dashboard-go/models"
)

// Payload is a decoded API response body. Value is the result of decoding
// with json.Number, so it is one of map[string]any, []any, string,
// json.Number, bool or nil.
type Payload struct {
	Endpoint string
	Raw      json.RawMessage
	Value    any
}

func decode(endpoint string, body []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Payload{}, &models.ShapeError{Endpoint: endpoint, Expected: "JSON", Raw: truncate(string(body))}
	}
	return Payload{Endpoint: endpoint, Raw: json.RawMessage(body), Value: v}, nil
}

// List returns the body as a JSON array of any elements. Any other shape
// is a *models.ShapeError.
func (p Payload) List() ([]any, error) {
	list, ok := p.Value.([]any)
	if !ok {
		return nil, p.shapeError("list")
	}
	return list, nil
}

// Records returns the body as a list of mappings. Any other shape,
// including a list holding non-objects, is a *models.ShapeError.
func (p Payload) Records() ([]models.Record, error) {
	list, err := p.List()
	if err != nil {
		return nil, err
	}
	records := make([]models.Record, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, p.shapeError("list of objects")
		}
		records = append(records, models.Record(obj))
	}
	return records, nil
}

// Table normalizes the body for tabular display: a single mapping becomes
// a one-row table, a list of mappings is used as is.
func (p Payload) Table() ([]models.Record, error) {
	if obj, ok := p.Value.(map[string]any); ok {
		return []models.Record{obj}, nil
	}
	return p.Records()
}

// Pretty returns the body indented for the raw JSON viewer.
func (p Payload) Pretty() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, p.Raw, "", "  "); err != nil {
		return string(p.Raw)
	}
	return buf.String()
}

// Empty reports whether the body carries no data (null, [], {} or "").
func (p Payload) Empty() bool {
	switch v := p.Value.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case string:
		return v == ""
	}
	return false
}

func (p Payload) shapeError(expected string) error {
	raw := string(p.Raw)
	if s, ok := p.Value.(string); ok {
		raw = s
	}
	return &models.ShapeError{Endpoint: p.Endpoint, Expected: expected, Raw: truncate(raw)}
}

const maxRawInError = 2048

func truncate(s string) string {
	if len(s) <= maxRawInError {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:maxRawInError], len(s))
}
