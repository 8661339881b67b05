package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nbme-dashboard-go/dashboard"
	"nbme-dashboard-go/db"
	"nbme-dashboard-go/models"
)

// APIHandler holds the dependencies for the JSON API and the HTML views.
type APIHandler struct {
	Service *dashboard.Service
	Reports *db.ReportStore
	logger  *zap.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(service *dashboard.Service, reports *db.ReportStore, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		Service: service,
		Reports: reports,
		logger:  logger,
	}
}

// statusFor maps a flow error to an HTTP status.
func statusFor(err error) int {
	var (
		apiErr     *models.APIError
		shapeErr   *models.ShapeError
		incomplete *models.IncompleteRequestError
	)
	switch {
	case errors.Is(err, models.ErrKeyRequired), errors.Is(err, dashboard.ErrUnknownEndpoint):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrUnknownSchool), errors.As(err, &incomplete):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr), errors.As(err, &shapeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) abortWithError(c *gin.Context, err error, extra gin.H) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	body := gin.H{"error": dashboard.ErrorMessage(err)}
	var shapeErr *models.ShapeError
	if errors.As(err, &shapeErr) {
		body["raw"] = shapeErr.Raw
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// --- Catalog Handlers ---

// GetEndpoints handles GET /api/endpoints
func (h *APIHandler) GetEndpoints(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Endpoints())
}

// GetSchools handles GET /api/schools
func (h *APIHandler) GetSchools(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Schools())
}

// GetTests handles GET /api/tests. An unavailable catalog is an empty list.
func (h *APIHandler) GetTests(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.TestIDs(c.Request.Context()))
}

// --- Query Handler ---

// RunQuery handles POST /api/query
func (h *APIHandler) RunQuery(c *gin.Context) {
	var form dashboard.QueryForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	res, err := h.Service.RunQuery(c.Request.Context(), form)
	if err != nil {
		extra := gin.H{}
		if res != nil {
			extra["request_url"] = res.RequestURL
			extra["params"] = res.Params
			extra["notices"] = res.Notices
		}
		h.abortWithError(c, err, extra)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Report Handlers ---

// CreateReport handles POST /api/reports
func (h *APIHandler) CreateReport(c *gin.Context) {
	var form dashboard.ReportForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	rep, err := h.Service.GenerateReport(c.Request.Context(), form)
	if err != nil {
		h.abortWithError(c, err, nil)
		return
	}
	h.Reports.Put(rep)
	c.JSON(http.StatusCreated, rep)
}

// GetReport handles GET /api/reports/:reportId
func (h *APIHandler) GetReport(c *gin.Context) {
	rep := h.Reports.Get(c.Param("reportId"))
	if rep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
