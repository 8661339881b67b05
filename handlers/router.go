package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nbme-dashboard-go/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"selected": func(list []string, v string) bool {
			for _, s := range list {
				if s == v {
					return true
				}
			}
			return false
		},
		"deref": func(b *bool) bool { return b != nil && *b },
		"cell": func(r models.Record, col string) string {
			return models.FormatValue(r[col])
		},
	}).ParseFS(templatesFS, "templates/*.html"))
}

// NewRouter builds the gin engine: HTML views, the JSON API and /metrics.
func NewRouter(h *APIHandler, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(logger), gin.Recovery())
	router.SetHTMLTemplate(loadTemplates())

	router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/basic") })
	router.GET("/basic", h.ShowBasic)
	router.POST("/basic", h.SubmitBasic)
	router.GET("/dataset", h.ShowDataset)
	router.POST("/dataset", h.SubmitDataset)
	router.GET("/dataset/:reportId/csv", h.DownloadCSV)
	router.GET("/dataset/:reportId/xlsx", h.DownloadXLSX)

	api := router.Group("/api")
	{
		api.GET("/endpoints", h.GetEndpoints)
		api.GET("/schools", h.GetSchools)
		api.GET("/tests", h.GetTests)
		api.POST("/query", h.RunQuery)
		api.POST("/reports", h.CreateReport)
		api.GET("/reports/:reportId", h.GetReport)
		api.GET("/ping", PingHandler)
	}

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return router
}
