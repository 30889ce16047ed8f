package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appreport "github.com/mezze/backend/internal/application/report"
	"github.com/mezze/backend/internal/domain/report"
	"github.com/mezze/backend/internal/interfaces/http/dto"
)

// ReportHandler exposes the derived timeseries: querying, spreadsheet
// export, and manual recompute
type ReportHandler struct {
	BaseHandler
	reports *appreport.Service
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *appreport.Service) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// RegisterRoutes registers the report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/reports")
	{
		group.GET("/timeseries", h.GetTimeSeries)
		group.GET("/timeseries/export", h.ExportTimeSeries)
		group.POST("/recompute", h.Recompute)
	}
}

// TimeSeriesRequest selects one metric's series. Granularity defaults
// to weekly when omitted.
type TimeSeriesRequest struct {
	Metric      string     `form:"metric" binding:"required"`
	Granularity string     `form:"granularity"`
	From        *time.Time `form:"from" time_format:"2006-01-02"`
	To          *time.Time `form:"to" time_format:"2006-01-02"`
	AccountID   string     `form:"account_id"`
	ProductID   string     `form:"product_id"`
}

func (r TimeSeriesRequest) toQuery() (report.TimeSeriesQuery, []dto.ValidationDetail) {
	var details []dto.ValidationDetail

	metric := report.Metric(r.Metric)
	if !metric.IsValid() {
		details = append(details, dto.ValidationDetail{Field: "metric", Message: "unknown metric: " + r.Metric})
	}
	granularity := report.Granularity(r.Granularity)
	if r.Granularity != "" && !granularity.IsValid() {
		details = append(details, dto.ValidationDetail{Field: "granularity", Message: "unknown granularity: " + r.Granularity})
	}

	query := report.TimeSeriesQuery{
		Metric:      metric,
		Granularity: granularity,
	}
	if r.From != nil {
		query.From = *r.From
	}
	if r.To != nil {
		query.To = *r.To
	}
	if r.AccountID != "" {
		id, err := uuid.Parse(r.AccountID)
		if err != nil {
			details = append(details, dto.ValidationDetail{Field: "account_id", Message: "must be a UUID"})
		} else {
			query.AccountID = &id
		}
	}
	if r.ProductID != "" {
		id, err := uuid.Parse(r.ProductID)
		if err != nil {
			details = append(details, dto.ValidationDetail{Field: "product_id", Message: "must be a UUID"})
		} else {
			query.ProductID = &id
		}
	}

	return query, details
}

// GetTimeSeries returns the points matching the query, ordered by
// period start
func (h *ReportHandler) GetTimeSeries(c *gin.Context) {
	var req TimeSeriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	query, details := req.toQuery()
	if len(details) > 0 {
		h.ValidationError(c, details)
		return
	}

	points, err := h.reports.Series(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, points)
}

// ExportTimeSeries downloads the points matching the query as an xlsx
// workbook
func (h *ReportHandler) ExportTimeSeries(c *gin.Context) {
	var req TimeSeriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	query, details := req.toQuery()
	if len(details) > 0 {
		h.ValidationError(c, details)
		return
	}

	data, err := h.reports.ExportXLSX(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("timeseries-%s-%s.xlsx", req.Metric, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// RecomputeRequest bounds the recompute to one period
type RecomputeRequest struct {
	From time.Time `json:"from" binding:"required" time_format:"2006-01-02"`
	To   time.Time `json:"to" binding:"required" time_format:"2006-01-02"`
}

// Recompute rebuilds the derived series for the period from committed
// facts. Recompute is idempotent; running it twice changes nothing.
func (h *ReportHandler) Recompute(c *gin.Context) {
	var req RecomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if !req.From.Before(req.To) {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: "from", Message: "from must be before to"},
		})
		return
	}

	results, err := h.reports.Recompute(c.Request.Context(), req.From, req.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, results)
}
