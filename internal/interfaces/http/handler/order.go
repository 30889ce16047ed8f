package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apptrade "github.com/mezze/backend/internal/application/trade"
	"github.com/mezze/backend/internal/domain/trade"
	"github.com/mezze/backend/internal/interfaces/http/dto"
)

// OrderHandler exposes committed orders, read-only. Orders enter the
// store only through the pipeline.
type OrderHandler struct {
	BaseHandler
	orders *apptrade.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders *apptrade.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/orders")
	{
		group.GET("", h.ListOrders)
		group.GET("/:id", h.GetOrder)
	}
}

// ListOrdersRequest filters the order list. The window is half-open:
// window_start <= order_date < window_end.
type ListOrdersRequest struct {
	dto.ListRequest
	SourceCode  string     `form:"source_code"`
	AccountID   string     `form:"account_id"`
	Status      string     `form:"status"`
	WindowStart *time.Time `form:"window_start" time_format:"2006-01-02"`
	WindowEnd   *time.Time `form:"window_end" time_format:"2006-01-02"`
}

// ListOrders returns orders with pagination
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	query := trade.OrderQuery{
		SourceCode: req.SourceCode,
		Status:     trade.OrderStatus(req.Status),
	}
	if req.AccountID != "" {
		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{
				{Field: "account_id", Message: "must be a UUID"},
			})
			return
		}
		query.AccountID = accountID
	}
	if req.WindowStart != nil {
		query.WindowStart = *req.WindowStart
	}
	if req.WindowEnd != nil {
		query.WindowEnd = *req.WindowEnd
	}

	filter := req.ToFilter()
	orders, total, err := h.orders.ListOrders(c.Request.Context(), query, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// GetOrder returns one order with its lines
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}
