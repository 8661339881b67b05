package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyRequired means no API key was entered yet; nothing is resolved.
	ErrKeyRequired = errors.New("please enter your API key to proceed")
	// ErrUnauthorized means a non-master key is not in the school mapping.
	ErrUnauthorized = errors.New("invalid API key or unauthorized access")
	// ErrUnknownSchool means a school outside the configured enumeration was selected.
	ErrUnknownSchool = errors.New("unknown school identifier")
)

// UnknownErrorMessage is shown when the API gives no error message.
const UnknownErrorMessage = "Unknown error"

// APIError is a non-200 response or a transport failure (Status 0).
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request to %s failed: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("Error: %s", e.Message)
}

// ShapeError is a response whose JSON shape does not fit what the caller needs.
type ShapeError struct {
	Endpoint string
	Expected string
	Raw      string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("Unexpected response from API: %s", e.Raw)
}

// IncompleteRequestError is a request that still lacks required parameters
// and therefore must not be sent.
type IncompleteRequestError struct {
	Endpoint string
	Missing  []string
}

func (e *IncompleteRequestError) Error() string {
	return fmt.Sprintf("request to %s is incomplete: missing %s", e.Endpoint, strings.Join(e.Missing, ", "))
}
