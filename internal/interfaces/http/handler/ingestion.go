package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appingestion "github.com/mezze/backend/internal/application/ingestion"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/interfaces/http/dto"
)

// IngestionHandler exposes run triggering and run history
type IngestionHandler struct {
	BaseHandler
	coordinator *appingestion.Coordinator
}

// NewIngestionHandler creates a new IngestionHandler
func NewIngestionHandler(coordinator *appingestion.Coordinator) *IngestionHandler {
	return &IngestionHandler{coordinator: coordinator}
}

// RegisterRoutes registers the ingestion routes
func (h *IngestionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/ingestion")
	{
		group.POST("/runs", h.TriggerRun)
		group.GET("/runs", h.ListRuns)
		group.GET("/runs/:id", h.GetRun)
		group.GET("/sources", h.ListSources)
	}
}

// TriggerRunRequest starts a manual run for one source. The window is
// optional; a zero window means the driver's default lookback.
type TriggerRunRequest struct {
	SourceCode  string     `json:"source_code" binding:"required"`
	WindowStart *time.Time `json:"window_start"`
	WindowEnd   *time.Time `json:"window_end"`
}

// TriggerRun starts a manual ingestion run and waits for its outcome.
// A run that started and then failed still answers 200: the outcome is
// in the run's status, not the HTTP status.
func (h *IngestionHandler) TriggerRun(c *gin.Context) {
	var req TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	code := ingestion.SourceCode(req.SourceCode)
	if !code.IsValid() {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: "source_code", Message: "unknown source code: " + req.SourceCode},
		})
		return
	}

	var window ingestion.Window
	if req.WindowStart != nil || req.WindowEnd != nil {
		if req.WindowStart == nil || req.WindowEnd == nil {
			h.ValidationError(c, []dto.ValidationDetail{
				{Field: "window_start", Message: "window_start and window_end must be given together"},
			})
			return
		}
		w, err := ingestion.NewWindow(*req.WindowStart, *req.WindowEnd)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{
				{Field: "window_start", Message: err.Error()},
			})
			return
		}
		window = w
	}

	run, err := h.coordinator.RunIngestion(c.Request.Context(), code, window, ingestion.RunTriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, run)
}

// ListRunsRequest filters the run history
type ListRunsRequest struct {
	dto.ListRequest
	SourceCode string     `form:"source_code"`
	Status     string     `form:"status"`
	Trigger    string     `form:"trigger"`
	Since      *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ListRuns returns the run history, newest first
func (h *IngestionHandler) ListRuns(c *gin.Context) {
	var req ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	query := ingestion.RunQuery{
		SourceCode: ingestion.SourceCode(req.SourceCode),
		Status:     ingestion.RunStatus(req.Status),
		Trigger:    ingestion.RunTrigger(req.Trigger),
	}
	if req.Since != nil {
		query.Since = *req.Since
	}

	filter := req.ToFilter()
	runs, total, err := h.coordinator.ListRuns(c.Request.Context(), query, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, runs, total, filter.Page, filter.PageSize)
}

// GetRun returns one run by ID
func (h *IngestionHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.coordinator.GetRun(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, run)
}

// SourceResponse is one registered source with its latest run
type SourceResponse struct {
	Code        string                  `json:"code"`
	DisplayName string                  `json:"display_name"`
	LatestRun   *ingestion.IngestionRun `json:"latest_run,omitempty"`
}

// ListSources returns every registered source and its latest run
func (h *IngestionHandler) ListSources(c *gin.Context) {
	statuses, err := h.coordinator.SourceStatuses(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]SourceResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, SourceResponse{
			Code:        s.Code.String(),
			DisplayName: s.DisplayName,
			LatestRun:   s.LatestRun,
		})
	}

	h.Success(c, out)
}
