package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appingestion "github.com/mezze/backend/internal/application/ingestion"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/interfaces/http/dto"
	"github.com/mezze/backend/internal/interfaces/http/middleware"
)

// ReviewHandler exposes the review queue: parked records and the
// operator decisions that settle them
type ReviewHandler struct {
	BaseHandler
	review *appingestion.ReviewService
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(review *appingestion.ReviewService) *ReviewHandler {
	return &ReviewHandler{review: review}
}

// RegisterRoutes registers the review routes
func (h *ReviewHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/review")
	{
		group.GET("", h.ListReview)
		group.GET("/:id", h.GetRecord)
		group.POST("/:id/resolve", h.Resolve)
	}
}

// ListReviewRequest filters the review queue
type ListReviewRequest struct {
	dto.ListRequest
	SourceCode string `form:"source_code"`
	State      string `form:"state"`
	RunID      string `form:"run_id"`
}

// ListReview returns records waiting on an operator, oldest first
func (h *ReviewHandler) ListReview(c *gin.Context) {
	var req ListReviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	query := ingestion.ReviewQuery{
		SourceCode: ingestion.SourceCode(req.SourceCode),
		State:      ingestion.RecordState(req.State),
	}
	if req.RunID != "" {
		runID, err := uuid.Parse(req.RunID)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{
				{Field: "run_id", Message: "must be a UUID"},
			})
			return
		}
		query.RunID = runID
	}

	filter := req.ToFilter()
	records, total, err := h.review.ListReview(c.Request.Context(), query, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

// GetRecord returns one record with its candidates and warnings
func (h *ReviewHandler) GetRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid record ID")
		return
	}

	record, err := h.review.GetRecord(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// ResolveRequest carries an operator's ruling. The operator is the
// bearer token's subject, never a request field.
type ResolveRequest struct {
	Action      string `json:"action" binding:"required"`
	CandidateID string `json:"candidate_id"`
	Reason      string `json:"reason"`
}

// Resolve applies a review decision to a parked record
func (h *ReviewHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid record ID")
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	decision := appingestion.ReviewDecision{
		Action:   appingestion.ReviewAction(req.Action),
		Reason:   req.Reason,
		Operator: middleware.GetOperator(c),
	}
	if req.CandidateID != "" {
		candidateID, err := uuid.Parse(req.CandidateID)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{
				{Field: "candidate_id", Message: "must be a UUID"},
			})
			return
		}
		decision.CandidateID = candidateID
	}

	record, err := h.review.Resolve(c.Request.Context(), id, decision)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}
