package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one JSON object row returned by the exam-results API.
// Numbers are kept as json.Number so identifiers keep their original text.
type Record map[string]any

// Has reports whether the field is present, even when its value is null.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Text returns the field rendered as text and whether it was usable.
// Null, missing and nested values are not usable.
func (r Record) Text(field string) (string, bool) {
	return ValueText(r[field])
}

// Float returns the field as a number; missing, null and non-numeric
// values yield nil.
func (r Record) Float(field string) *float64 {
	return ValueFloat(r[field])
}

// ScoreRecord is one (student, score) pair from the scores endpoint.
type ScoreRecord struct {
	StudentID string   `json:"student_id"`
	Score     *float64 `json:"score"`
}

// Notice levels, matching the banners shown in the dashboard.
const (
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is a user-visible banner produced while handling an action.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func Success(msg string) Notice { return Notice{Level: LevelSuccess, Message: msg} }
func Warning(msg string) Notice { return Notice{Level: LevelWarning, Message: msg} }
func Failure(msg string) Notice { return Notice{Level: LevelError, Message: msg} }

// ValueText renders a decoded JSON scalar as text.
func ValueText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// ValueFloat converts a decoded JSON scalar to a finite float. Decimal
// numeric strings are accepted; hex floats, infinities, NaN and everything
// else are nil.
func ValueFloat(v any) *float64 {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		t = strings.TrimSpace(t)
		if strings.ContainsAny(t, "xX") {
			return nil
		}
		f, err = strconv.ParseFloat(t, 64)
	default:
		return nil
	}
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

// FormatValue renders any decoded JSON value for a table cell or CSV
// field. Null is empty and nested values are rendered as compact JSON.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	if s, ok := ValueText(v); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
