package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbme-dashboard-go/models"
)

var catalog = []string{"SE-1", "SE-2", "CBSE"}

func mustLookup(t *testing.T, name string) Endpoint {
	t.Helper()
	ep, ok := Lookup(name)
	require.True(t, ok, name)
	return ep
}

func TestEndpointTable(t *testing.T) {
	eps := Endpoints()
	require.Len(t, eps, 7)

	var testBatch []string
	for _, ep := range eps {
		if ep.TestBatch {
			testBatch = append(testBatch, ep.Path)
			assert.True(t, ep.StudentBatch)
		}
		if ep.StudentBatch {
			assert.True(t, ep.RequiresSchool(), ep.Path)
		}
	}
	assert.Equal(t, []string{"students/scores", "students/scores/details"}, testBatch)

	ep := mustLookup(t, "/students/usmle-results")
	assert.Equal(t, "students/usmle-results", ep.Path)
	_, ok := Lookup("students/grades")
	assert.False(t, ok)
}

func TestBuildNeverAddsUnsupportedFilters(t *testing.T) {
	in := Input{APIKey: "k", School: "MedSchoolA", StudentIDs: "1,2", TestIDs: []string{"SE-1"}}
	for _, ep := range Endpoints() {
		req := Build(ep, in, catalog)
		assert.Equal(t, "k", req.Params.Get(ParamAPIKey), ep.Path)
		if !ep.RequiresSchool() {
			assert.NotContains(t, req.Params, ParamSchoolID, ep.Path)
		}
		if !ep.StudentBatch {
			assert.NotContains(t, req.Params, ParamStudentID, ep.Path)
		}
		if !ep.TestBatch {
			assert.NotContains(t, req.Params, ParamTestID, ep.Path)
		}
	}
}

func TestParseStudentIDs(t *testing.T) {
	cases := map[string][]string{
		"12, abc, 7":     {"12", "7"},
		"abc, xyz":       nil,
		" 3 ,,4,":        {"3", "4"},
		"1 2, -5, 6.0,9": {"9"},
		"":               nil,
		"007":            {"007"},
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseStudentIDs(input), input)
	}
}

func TestBuildStudentBatch(t *testing.T) {
	ep := mustLookup(t, "students")

	t.Run("mixed input keeps numeric tokens without warning", func(t *testing.T) {
		req := Build(ep, Input{APIKey: "k", School: "MedSchoolB", StudentIDs: "12, abc, 7"}, nil)
		assert.Equal(t, "12,7", req.Params.Get(ParamStudentID))
		assert.Empty(t, req.Notices)
		assert.True(t, req.Complete())
	})

	t.Run("no numeric tokens omits the field and warns", func(t *testing.T) {
		req := Build(ep, Input{APIKey: "k", School: "MedSchoolB", StudentIDs: "abc, xyz"}, nil)
		assert.NotContains(t, req.Params, ParamStudentID)
		require.Len(t, req.Notices, 1)
		assert.Equal(t, models.LevelWarning, req.Notices[0].Level)
		assert.Equal(t, "Please enter valid student IDs.", req.Notices[0].Message)
	})

	t.Run("empty input is silent", func(t *testing.T) {
		req := Build(ep, Input{APIKey: "k", School: "MedSchoolB"}, nil)
		assert.NotContains(t, req.Params, ParamStudentID)
		assert.Empty(t, req.Notices)
	})
}

func TestBuildPendingSchoolIsIncomplete(t *testing.T) {
	req := Build(mustLookup(t, "students/tests"), Input{APIKey: "k"}, nil)
	assert.False(t, req.Complete())
	assert.Equal(t, []string{ParamSchoolID}, req.Missing)

	var incomplete *models.IncompleteRequestError
	require.ErrorAs(t, req.Err(), &incomplete)
	assert.Equal(t, "students/tests", incomplete.Endpoint)

	// Endpoints without a school requirement are complete with only the key.
	assert.NoError(t, Build(mustLookup(t, "exam-stats"), Input{APIKey: "k"}, nil).Err())
}

func TestBuildTestBatch(t *testing.T) {
	ep := mustLookup(t, "students/scores")
	base := Input{APIKey: "k", School: "MedSchoolC"}

	t.Run("selections joined in order", func(t *testing.T) {
		in := base
		in.TestIDs = []string{"SE-2", "SE-1", "SE-2"}
		req := Build(ep, in, catalog)
		assert.Equal(t, "SE-2,SE-1", req.Params.Get(ParamTestID))
		assert.Empty(t, req.Notices)
	})

	t.Run("unknown selections dropped", func(t *testing.T) {
		in := base
		in.TestIDs = []string{"XX-9", "CBSE"}
		req := Build(ep, in, catalog)
		assert.Equal(t, "CBSE", req.Params.Get(ParamTestID))
		require.Len(t, req.Notices, 1)
		assert.Contains(t, req.Notices[0].Message, "XX-9")
	})

	t.Run("no selection omits test_id", func(t *testing.T) {
		req := Build(ep, base, catalog)
		assert.NotContains(t, req.Params, ParamTestID)
	})

	t.Run("missing catalog reports an error and omits test_id", func(t *testing.T) {
		in := base
		in.TestIDs = []string{"SE-1"}
		req := Build(ep, in, nil)
		assert.NotContains(t, req.Params, ParamTestID)
		require.Len(t, req.Notices, 1)
		assert.Equal(t, models.LevelError, req.Notices[0].Level)
		assert.True(t, req.Complete())
	})
}
