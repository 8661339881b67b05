package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nbme-dashboard-go/access"
	"nbme-dashboard-go/apiclient"
	"nbme-dashboard-go/dashboard"
	"nbme-dashboard-go/db"
	"nbme-dashboard-go/metrics"
	"nbme-dashboard-go/report"
)

const (
	masterKey = "a71ed21d7da1aead4e5088827d1c67fc"
	keyB      = "2d7ebd0c14a5c41d18172341920cd222"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tests":
			_, _ = w.Write([]byte(`[{"test_id":"SE-1"},{"test_id":"CBSE"}]`))
		case "/api/students":
			_, _ = w.Write([]byte(`[{"student_id":"1"},{"student_id":"2"}]`))
		case "/api/students/scores":
			_, _ = w.Write([]byte(`[{"student_id":"1","score":60}]`))
		case "/api/exam-stats":
			_, _ = w.Write([]byte(`[{"test_id":"SE-1","mean":70}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not found"}`))
		}
	}))
	t.Cleanup(upstream.Close)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	client := apiclient.New(upstream.URL+"/api", apiclient.WithMetrics(m))
	resolver := access.NewResolver(masterKey,
		[]string{"MedSchoolA", "MedSchoolB", "MedSchoolC", "MedSchoolD"},
		map[string]string{keyB: "MedSchoolB"})
	service := dashboard.NewService(client, resolver, m, zap.NewNop())
	h := NewAPIHandler(service, db.NewReportStore(4), zap.NewNop())
	return NewRouter(h, reg, zap.NewNop())
}

func do(router http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	w := do(newTestRouter(t), http.MethodGet, "/api/ping", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Pong!"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestCatalogs(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, http.MethodGet, "/api/schools", "", "")
	assert.JSONEq(t, `["MedSchoolA","MedSchoolB","MedSchoolC","MedSchoolD"]`, w.Body.String())

	w = do(router, http.MethodGet, "/api/tests", "", "")
	assert.JSONEq(t, `["SE-1","CBSE"]`, w.Body.String())

	w = do(router, http.MethodGet, "/api/endpoints", "", "")
	var endpoints []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &endpoints))
	assert.Len(t, endpoints, 7)
}

func TestRunQueryStatuses(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty key", `{"endpoint":"exam-stats"}`, http.StatusBadRequest},
		{"unknown key", `{"endpoint":"exam-stats","api_key":"nope"}`, http.StatusUnauthorized},
		{"unknown endpoint", `{"endpoint":"grades","api_key":"` + masterKey + `"}`, http.StatusBadRequest},
		{"master key without school", `{"endpoint":"students","api_key":"` + masterKey + `"}`, http.StatusUnprocessableEntity},
		{"upstream error", `{"endpoint":"students/scores/details","api_key":"` + keyB + `","test_ids":["SE-1"]}`, http.StatusBadGateway},
		{"ok", `{"endpoint":"exam-stats","api_key":"` + masterKey + `"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/query", "application/json", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestRunQueryMasksKey(t *testing.T) {
	w := do(newTestRouter(t), http.MethodPost, "/api/query", "application/json",
		`{"endpoint":"students","api_key":"`+keyB+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), keyB)

	var res struct {
		Params  map[string]string `json:"params"`
		Columns []string          `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "MedSchoolB", res.Params["school_id"])
	assert.Equal(t, []string{"student_id"}, res.Columns)
}

func TestReportLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/reports", "application/json",
		`{"api_key":"`+masterKey+`","school_id":"MedSchoolA"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rep report.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	require.NotEmpty(t, rep.ID)
	assert.Equal(t, []string{"student_id", "score", "At-Risk"}, rep.Columns)

	w = do(router, http.MethodGet, "/api/reports/"+rep.ID, "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/dataset/"+rep.ID+"/csv", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="at_risk_students.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "student_id,score,At-Risk\n1,60,true\n2,,false\n", w.Body.String())

	w = do(router, http.MethodGet, "/dataset/"+rep.ID+"/xlsx", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))
}

func TestUnknownReport(t *testing.T) {
	router := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/reports/missing", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/dataset/missing/csv", "", "").Code)
}

func TestBasicPage(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, http.MethodGet, "/basic", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Basic Functionality")
	assert.Contains(t, w.Body.String(), `<option value="SE-1"`)

	form := url.Values{"api_key": {keyB}, "endpoint": {"students"}}
	w = do(router, http.MethodPost, "/basic", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "API Key is valid for MedSchoolB.")
	assert.Contains(t, body, "<td>2</td>")
	assert.NotContains(t, body, keyB)

	form = url.Values{"api_key": {"nope"}, "endpoint": {"exam-stats"}}
	w = do(router, http.MethodPost, "/basic", "application/x-www-form-urlencoded", form.Encode())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API Key or unauthorized access.")
}

func TestDatasetPage(t *testing.T) {
	router := newTestRouter(t)

	form := url.Values{"api_key": {masterKey}, "school_id": {"MedSchoolA"}}
	w := do(router, http.MethodPost, "/dataset", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "1 of 2 students scored below the national mean on SE-1.")
	assert.Contains(t, body, `class="atrisk"`)
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "National Mean: 70")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	do(router, http.MethodPost, "/api/query", "application/json", `{"endpoint":"exam-stats","api_key":"`+masterKey+`"}`)

	w := do(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_requests_total")
}

func TestHistogramChart(t *testing.T) {
	mean := 70.0
	h := report.Histogram{
		Bins:     []report.Bin{{Lo: 60, Hi: 70, Count: 1}, {Lo: 70, Hi: 80, Count: 3}},
		Mean:     &mean,
		Min:      60,
		Max:      80,
		MaxCount: 3,
		Scores:   4,
	}
	c := newHistogramChart(h, "SE-1")
	require.NotNil(t, c)
	assert.Equal(t, "SE-1 Score Distribution", c.Title)
	require.Len(t, c.Bars, 2)
	assert.Equal(t, c.Left, c.Bars[0].X)
	assert.Equal(t, c.Top, c.Bars[1].Y)
	assert.InDelta(t, c.Bottom-c.Top, c.Bars[1].H, 1e-9)
	assert.InDelta(t, (c.Left+c.Right)/2, c.MeanX, 1e-9)
	assert.True(t, c.HasMean)
	assert.Equal(t, "National Mean: 70", c.MeanLabel)
	assert.Len(t, c.XTicks, 5)

	assert.Nil(t, newHistogramChart(report.Histogram{}, "SE-1"))
}
