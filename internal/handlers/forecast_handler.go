package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"partnerpipeline/internal/models"
	"partnerpipeline/internal/pdf"
	"partnerpipeline/internal/services"
)

type ReportHandler struct {
	Service  *services.OpportunityService
	PDF      pdf.Generator
	Title    string
	Currency string
	log      *logrus.Logger
}

func NewReportHandler(service *services.OpportunityService, gen pdf.Generator, title string, log *logrus.Logger) *ReportHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReportHandler{Service: service, PDF: gen, Title: title, Currency: service.Currency(), log: log}
}

type stagesResponse struct {
	Stages    []models.Stage        `json:"stages"`
	Breakdown []models.StageSummary `json:"breakdown"`
}

// @Summary  Pipeline stages
// @Tags     Pipeline
// @Produce  json
// @Success  200  {object}  stagesResponse
// @Router   /pipeline/stages [get]
func (h *ReportHandler) Stages(c *gin.Context) {
	opps, err := h.Service.List(c.Request.Context(), models.OpportunityFilter{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stagesResponse{
		Stages:    h.Service.Engine().Catalog().Ordered(),
		Breakdown: h.Service.Forecaster().StageBreakdown(opps),
	})
}

// @Summary  Forecast dashboard
// @Tags     Forecast
// @Produce  json
// @Success  200  {object}  models.ForecastReport
// @Router   /forecast [get]
func (h *ReportHandler) GetForecast(c *gin.Context) {
	report, err := h.Service.Forecast(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary  Forecast PDF export
// @Tags     Forecast
// @Produce  application/pdf
// @Success  200  {file}  file
// @Router   /forecast/report.pdf [get]
func (h *ReportHandler) ExportPDF(c *gin.Context) {
	report, err := h.Service.Forecast(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	var buf bytes.Buffer
	generatedAt := time.Now().UTC()
	if err := h.PDF.RenderForecast(&buf, pdf.ForecastData{
		Title:       h.Title,
		Currency:    h.Currency,
		GeneratedAt: generatedAt,
		Report:      report,
	}); err != nil {
		h.log.WithError(err).Error("[report][pdf][err]")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "forecast_"+generatedAt.Format("20060102")+".pdf"))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
