package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nbme-dashboard-go/dashboard"
	"nbme-dashboard-go/models"
	"nbme-dashboard-go/query"
	"nbme-dashboard-go/report"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

type basicPage struct {
	Nav       string
	Endpoints []query.Endpoint
	Schools   []string
	Tests     []string
	Form      dashboard.QueryForm
	Result    *dashboard.QueryResult
	Raw       string
	Notices   []models.Notice
}

type datasetPage struct {
	Nav     string
	Schools []string
	Form    dashboard.ReportForm
	Report  *report.Report
	Chart   *histogramChart
	Notices []models.Notice
}

// noticesFor turns a flow error into banners. An empty key only asks for
// input; everything else is shown as an error.
func noticesFor(err error) []models.Notice {
	if errors.Is(err, models.ErrKeyRequired) {
		return []models.Notice{models.Warning("Please enter your API key to proceed.")}
	}
	if errors.Is(err, models.ErrUnauthorized) {
		return []models.Notice{models.Failure("Invalid API Key or unauthorized access.")}
	}
	return []models.Notice{models.Failure(dashboard.ErrorMessage(err))}
}

func (h *APIHandler) newBasicPage(c *gin.Context, form dashboard.QueryForm) basicPage {
	if form.Endpoint == "" {
		form.Endpoint = "exam-stats"
	}
	return basicPage{
		Nav:       "basic",
		Endpoints: h.Service.Endpoints(),
		Schools:   h.Service.Schools(),
		Tests:     h.Service.TestIDs(c.Request.Context()),
		Form:      form,
	}
}

// ShowBasic handles GET /basic
func (h *APIHandler) ShowBasic(c *gin.Context) {
	c.HTML(http.StatusOK, "basic.html", h.newBasicPage(c, dashboard.QueryForm{}))
}

// SubmitBasic handles POST /basic
func (h *APIHandler) SubmitBasic(c *gin.Context) {
	var form dashboard.QueryForm
	if err := c.ShouldBind(&form); err != nil {
		page := h.newBasicPage(c, form)
		page.Notices = []models.Notice{models.Failure("Invalid form: " + err.Error())}
		c.HTML(http.StatusBadRequest, "basic.html", page)
		return
	}

	page := h.newBasicPage(c, form)
	res, err := h.Service.RunQuery(c.Request.Context(), form)
	if res != nil {
		page.Result = res
		page.Notices = append(page.Notices, res.Notices...)
		if res.Payload.Raw != nil && !res.Payload.Empty() {
			page.Raw = res.Payload.Pretty()
		}
	}
	if err != nil {
		page.Notices = append(page.Notices, noticesFor(err)...)
		c.HTML(statusFor(err), "basic.html", page)
		return
	}
	c.HTML(http.StatusOK, "basic.html", page)
}

// ShowDataset handles GET /dataset
func (h *APIHandler) ShowDataset(c *gin.Context) {
	c.HTML(http.StatusOK, "dataset.html", datasetPage{Nav: "dataset", Schools: h.Service.Schools()})
}

// SubmitDataset handles POST /dataset
func (h *APIHandler) SubmitDataset(c *gin.Context) {
	page := datasetPage{Nav: "dataset", Schools: h.Service.Schools()}
	if err := c.ShouldBind(&page.Form); err != nil {
		page.Notices = []models.Notice{models.Failure("Invalid form: " + err.Error())}
		c.HTML(http.StatusBadRequest, "dataset.html", page)
		return
	}

	rep, err := h.Service.GenerateReport(c.Request.Context(), page.Form)
	if err != nil {
		page.Notices = noticesFor(err)
		c.HTML(statusFor(err), "dataset.html", page)
		return
	}
	h.Reports.Put(rep)
	page.Report = rep
	page.Notices = rep.Notices
	page.Chart = newHistogramChart(rep.Histogram(20), rep.TestID)
	c.HTML(http.StatusOK, "dataset.html", page)
}

// DownloadCSV handles GET /dataset/:reportId/csv
func (h *APIHandler) DownloadCSV(c *gin.Context) {
	h.download(c, report.CSVFileName, csvContentType, (*report.Report).WriteCSV)
}

// DownloadXLSX handles GET /dataset/:reportId/xlsx
func (h *APIHandler) DownloadXLSX(c *gin.Context) {
	h.download(c, report.XLSXFileName, xlsxContentType, (*report.Report).WriteXLSX)
}

func (h *APIHandler) download(c *gin.Context, name, contentType string, write func(*report.Report, io.Writer) error) {
	rep := h.Reports.Get(c.Param("reportId"))
	if rep == nil {
		c.String(http.StatusNotFound, "Report not found. Generate the dataset again.")
		return
	}
	var buf bytes.Buffer
	if err := write(rep, &buf); err != nil {
		h.logger.Error("report export failed", zap.String("report_id", rep.ID), zap.String("file", name), zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to export report")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
