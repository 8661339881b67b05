package query

import "strings"

// SchoolRequirement says whether an endpoint takes school_id.
type SchoolRequirement int

const (
	SchoolNone SchoolRequirement = iota
	SchoolRequired
)

// Endpoint describes one exam-results API endpoint and the filters it accepts.
type Endpoint struct {
	Label        string            `json:"label"`
	Path         string            `json:"path"`
	School       SchoolRequirement `json:"-"`
	StudentBatch bool              `json:"student_batch"`
	TestBatch    bool              `json:"test_batch"`
}

// RequiresSchool reports whether school_id must be sent.
func (e Endpoint) RequiresSchool() bool { return e.School == SchoolRequired }

var endpoints = []Endpoint{
	{Label: "/exam-stats", Path: "exam-stats"},
	{Label: "/tests", Path: "tests"},
	{Label: "/students/tests", Path: "students/tests", School: SchoolRequired, StudentBatch: true},
	{Label: "/students", Path: "students", School: SchoolRequired, StudentBatch: true},
	{Label: "/students/scores", Path: "students/scores", School: SchoolRequired, StudentBatch: true, TestBatch: true},
	{Label: "/students/scores/details", Path: "students/scores/details", School: SchoolRequired, StudentBatch: true, TestBatch: true},
	{Label: "/students/usmle-results", Path: "students/usmle-results", School: SchoolRequired, StudentBatch: true},
}

// Endpoints returns the seven endpoints in display order.
func Endpoints() []Endpoint {
	out := make([]Endpoint, len(endpoints))
	copy(out, endpoints)
	return out
}

// Lookup finds an endpoint by path or label ("students" or "/students").
func Lookup(name string) (Endpoint, bool) {
	path := strings.Trim(strings.TrimSpace(name), "/")
	for _, e := range endpoints {
		if e.Path == path {
			return e, true
		}
	}
	return Endpoint{}, false
}
