package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apppartner "github.com/mezze/backend/internal/application/partner"
	"github.com/mezze/backend/internal/interfaces/http/dto"
)

// AccountHandler exposes the canonical accounts. Accounts are minted by
// the pipeline or by review decisions; this surface is read-only.
type AccountHandler struct {
	BaseHandler
	accounts *apppartner.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *apppartner.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes registers the account routes
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/accounts")
	{
		group.GET("", h.ListAccounts)
		group.GET("/:id", h.GetAccount)
		group.GET("/:id/orders", h.ListAccountOrders)
	}
}

// ListAccounts returns accounts with pagination
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := req.ToFilter()
	accounts, total, err := h.accounts.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, accounts, total, filter.Page, filter.PageSize)
}

// GetAccount returns one account by ID
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	account, err := h.accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// ListAccountOrders returns the account's orders, newest first
func (h *AccountHandler) ListAccountOrders(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := req.ToFilter()
	orders, total, err := h.accounts.ListAccountOrders(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}
