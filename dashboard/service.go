// Package dashboard runs the two user flows of the exam-results dashboard:
// the Query Builder and the Risk Report Builder.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nbme-dashboard-go/access"
	"nbme-dashboard-go/apiclient"
	"nbme-dashboard-go/metrics"
	"nbme-dashboard-go/models"
	"nbme-dashboard-go/query"
	"nbme-dashboard-go/report"
)

const noDataMessage = "No data returned for this request."

// ErrUnknownEndpoint is returned for an endpoint outside the fixed set.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Fetcher is the cached fetch primitive.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) (apiclient.Payload, error)
	URL(endpoint string) string
}

// Service wires the fetcher, the key resolver and the report builder.
type Service struct {
	fetcher  Fetcher
	resolver *access.Resolver
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a Service. m may be nil.
func NewService(fetcher Fetcher, resolver *access.Resolver, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{fetcher: fetcher, resolver: resolver, metrics: m, logger: logger}
}

// Endpoints lists the queryable endpoints.
func (s *Service) Endpoints() []query.Endpoint { return query.Endpoints() }

// Schools lists the school identifiers selectable with the master key.
func (s *Service) Schools() []string { return s.resolver.Schools() }

// TestIDs returns the known test identifiers in catalog order. A failed or
// malformed catalog yields an empty list; the failure is only logged.
func (s *Service) TestIDs(ctx context.Context) []string {
	payload, err := s.fetcher.Fetch(ctx, "tests", url.Values{})
	if err != nil {
		s.logger.Warn("test catalog unavailable", zap.Error(err))
		return []string{}
	}
	list, err := payload.List()
	if err != nil {
		s.logger.Warn("test catalog is not a list", zap.Error(err))
		return []string{}
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := models.Record(obj).Text(report.FieldTestID); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// resolveSchool runs key resolution and school selection for both flows.
func (s *Service) resolveSchool(apiKey, selected string) (school string, notices []models.Notice, err error) {
	grant, err := s.resolver.Resolve(apiKey)
	if err != nil {
		return "", nil, err
	}
	school, err = s.resolver.SchoolFor(grant, selected)
	if err != nil {
		return "", nil, err
	}
	if !grant.Master {
		notices = append(notices, models.Success(fmt.Sprintf("API Key is valid for %s.", school)))
	}
	return school, notices, nil
}

// QueryForm is the Basic Functionality form.
type QueryForm struct {
	Endpoint   string   `json:"endpoint" form:"endpoint"`
	APIKey     string   `json:"api_key" form:"api_key"`
	School     string   `json:"school_id" form:"school_id"`
	StudentIDs string   `json:"student_ids" form:"student_ids"`
	TestIDs    []string `json:"test_ids" form:"test_ids"`
}

// QueryResult is what the Basic Functionality view shows after a fetch.
type QueryResult struct {
	Endpoint   query.Endpoint    `json:"endpoint"`
	RequestURL string            `json:"request_url"`
	Params     map[string]string `json:"params"` // api_key masked
	Payload    apiclient.Payload `json:"-"`
	Data       any               `json:"data"`
	Columns    []string          `json:"columns"`
	Rows       []models.Record   `json:"-"`
	Notices    []models.Notice   `json:"notices"`
}

// RunQuery builds the request for the form and sends it. Resolution
// failures and incomplete requests return before any request is built or
// sent. Upstream and shape failures are returned together with the partial
// result so the request that was sent can still be shown.
func (s *Service) RunQuery(ctx context.Context, form QueryForm) (*QueryResult, error) {
	ep, ok := query.Lookup(form.Endpoint)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEndpoint, form.Endpoint)
	}
	school, notices, err := s.resolveSchool(form.APIKey, form.School)
	if err != nil {
		return nil, err
	}

	var known []string
	if ep.TestBatch {
		known = s.TestIDs(ctx)
	}
	req := query.Build(ep, query.Input{
		APIKey:     form.APIKey,
		School:     school,
		StudentIDs: form.StudentIDs,
		TestIDs:    form.TestIDs,
	}, known)
	notices = append(notices, req.Notices...)

	res := &QueryResult{
		Endpoint:   ep,
		RequestURL: s.fetcher.URL(ep.Path),
		Params:     maskParams(req.Params),
		Notices:    notices,
	}
	if err := req.Err(); err != nil {
		return res, err
	}

	s.logger.Info("running query",
		zap.String("endpoint", ep.Path),
		zap.String("school_id", school),
		zap.Strings("params", paramNames(req.Params)))

	payload, err := s.fetcher.Fetch(ctx, ep.Path, req.Params)
	if err != nil {
		return res, err
	}
	res.Payload = payload
	res.Data = payload.Value
	if payload.Empty() {
		res.Notices = append(res.Notices, models.Warning(noDataMessage))
		return res, nil
	}

	rows, err := payload.Table()
	if err != nil {
		return res, err
	}
	res.Rows = rows
	res.Columns = columnsOf(rows)
	return res, nil
}

// ReportForm is the Generate Dataset form.
type ReportForm struct {
	APIKey string `json:"api_key" form:"api_key"`
	School string `json:"school_id" form:"school_id"`
}

// GenerateReport builds the at-risk dataset for one school with three
// requests: the roster, one batched score lookup and the exam statistics.
// Only a roster failure aborts; score and statistic failures are reported
// as notices on the returned report.
func (s *Service) GenerateReport(ctx context.Context, form ReportForm) (*report.Report, error) {
	school, notices, err := s.resolveSchool(form.APIKey, form.School)
	if err != nil {
		return nil, err
	}
	if school == "" {
		return nil, &models.IncompleteRequestError{Endpoint: "students", Missing: []string{query.ParamSchoolID}}
	}
	log := s.logger.With(zap.String("school_id", school))

	rosterPayload, err := s.fetcher.Fetch(ctx, "students", url.Values{
		query.ParamAPIKey:   {form.APIKey},
		query.ParamSchoolID: {school},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	roster, err := rosterPayload.Records()
	if err != nil {
		return nil, err
	}

	ids, missing := report.StudentIDs(roster)
	if missing > 0 {
		notices = append(notices, models.Warning(fmt.Sprintf("%d roster entries have no student_id and get no score.", missing)))
	}

	var scores []models.ScoreRecord
	scorePayload, err := s.fetcher.Fetch(ctx, "students/scores", url.Values{
		query.ParamAPIKey:    {form.APIKey},
		query.ParamSchoolID:  {school},
		query.ParamStudentID: {report.BatchStudentIDs(ids)},
		query.ParamTestID:    {report.TargetTest},
	})
	if err != nil {
		log.Warn("score lookup failed", zap.Error(err))
		notices = append(notices, models.Failure(errorMessage(err)))
	} else if list, err := scorePayload.List(); err != nil {
		log.Warn("score lookup returned unexpected shape", zap.Error(err))
		notices = append(notices, models.Warning(err.Error()))
	} else {
		scores = report.NormalizeScores(list)
	}

	var mean *float64
	statsPayload, err := s.fetcher.Fetch(ctx, "exam-stats", url.Values{})
	if err != nil {
		log.Warn("exam statistics unavailable", zap.Error(err))
		notices = append(notices, models.Failure(errorMessage(err)))
	} else if stats, err := statsPayload.Table(); err == nil {
		mean = report.NationalMean(stats, report.TargetTest)
	}

	rep := report.Build(roster, scores, mean)
	if mean == nil {
		notices = append(notices, models.Failure(fmt.Sprintf("Could not retrieve national mean for %s.", report.TargetTest)))
	}
	rep.ID = uuid.NewString()
	rep.School = school
	rep.Notices = notices
	s.metrics.ReportGenerated()

	log.Info("generated risk report",
		zap.String("report_id", rep.ID),
		zap.Int("students", len(rep.Rows)),
		zap.Int("scores", len(scores)),
		zap.Int("at_risk", rep.AtRiskCount()))
	return rep, nil
}

// errorMessage is the text shown to the user for err.
func errorMessage(err error) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

// ErrorMessage exposes the user-facing text for handlers and the CLI.
func ErrorMessage(err error) string {
	if errors.Is(err, models.ErrUnauthorized) {
		return "Invalid API Key or unauthorized access."
	}
	return errorMessage(err)
}
