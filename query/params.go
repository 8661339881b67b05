// Package query turns dashboard form input into request parameters for
// the exam-results API. Nothing here touches the network.
package query

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"nbme-dashboard-go/models"
)

// Parameter names understood by the API.
const (
	ParamAPIKey    = "api_key"
	ParamSchoolID  = "school_id"
	ParamStudentID = "student_id"
	ParamTestID    = "test_id"
)

const (
	invalidStudentIDs = "Please enter valid student IDs."
	noTestCatalog     = "Could not fetch available test IDs. Please check your API connection."
)

// Input is what the user typed or picked in the query form. School must
// already be resolved (see package access); "" means still pending.
type Input struct {
	APIKey     string
	School     string
	StudentIDs string   // free text, comma separated
	TestIDs    []string // selections from the known test catalog
}

// Request is a built parameter set for one endpoint.
type Request struct {
	Endpoint Endpoint
	Params   url.Values
	Notices  []models.Notice
	Missing  []string
}

// Complete reports whether every required parameter is present.
// Incomplete requests must not be sent.
func (r Request) Complete() bool { return len(r.Missing) == 0 }

// Err returns an *models.IncompleteRequestError for incomplete requests.
func (r Request) Err() error {
	if r.Complete() {
		return nil
	}
	return &models.IncompleteRequestError{Endpoint: r.Endpoint.Path, Missing: slices.Clone(r.Missing)}
}

// Build constructs the parameters for ep. knownTests is the test catalog
// used to validate test selections; it is only consulted for endpoints
// that batch test IDs.
func Build(ep Endpoint, in Input, knownTests []string) Request {
	req := Request{Endpoint: ep, Params: url.Values{}}
	req.Params.Set(ParamAPIKey, in.APIKey)

	if !ep.RequiresSchool() {
		return req
	}
	if in.School != "" {
		req.Params.Set(ParamSchoolID, in.School)
	} else {
		req.Missing = append(req.Missing, ParamSchoolID)
	}

	if ep.StudentBatch && in.StudentIDs != "" {
		if ids := ParseStudentIDs(in.StudentIDs); len(ids) > 0 {
			req.Params.Set(ParamStudentID, strings.Join(ids, ","))
		} else {
			req.Notices = append(req.Notices, models.Warning(invalidStudentIDs))
		}
	}

	if ep.TestBatch {
		if len(knownTests) == 0 {
			req.Notices = append(req.Notices, models.Failure(noTestCatalog))
			return req
		}
		selected, unknown := selectTests(in.TestIDs, knownTests)
		if len(selected) > 0 {
			req.Params.Set(ParamTestID, strings.Join(selected, ","))
		}
		if len(unknown) > 0 {
			req.Notices = append(req.Notices, models.Warning(
				fmt.Sprintf("Ignoring unknown test IDs: %s.", strings.Join(unknown, ", "))))
		}
	}
	return req
}

// ParseStudentIDs splits comma-separated input, trims each token and keeps
// the purely numeric ones in their original order.
func ParseStudentIDs(raw string) []string {
	var ids []string
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if isDigits(token) {
			ids = append(ids, token)
		}
	}
	return ids
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// selectTests keeps selections found in the catalog, in selection order,
// without duplicates.
func selectTests(selections, known []string) (selected, unknown []string) {
	for _, id := range selections {
		id = strings.TrimSpace(id)
		switch {
		case id == "" || slices.Contains(selected, id):
		case slices.Contains(known, id):
			selected = append(selected, id)
		default:
			unknown = append(unknown, id)
		}
	}
	return selected, unknown
}
