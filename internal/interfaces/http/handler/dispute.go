package handler

import (
	"time"

	feeapp "github.com/feeledger/backend/internal/application/fee"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DisputeHandler handles payment dispute API endpoints
type DisputeHandler struct {
	BaseHandler
	disputes *feeapp.DisputeService
}

// NewDisputeHandler creates a new DisputeHandler
func NewDisputeHandler(disputes *feeapp.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// OpenDisputeRequest opens a dispute against a fee calculation
// @Name HandlerOpenDisputeRequest
type OpenDisputeRequest struct {
	FeeCalculationID   string           `json:"fee_calculation_id" binding:"required,uuid" example:"7f1c2a4e-0b7d-4c1f-9a55-2d2f3e9c8b10"`
	Reason             string           `json:"reason" binding:"required,min=1,max=2000" example:"Client says the fee was paid by check in January"`
	ClaimedAmount      *decimal.Decimal `json:"claimed_amount" binding:"omitempty,decimal_positive" swaggertype:"string" example:"10620.00"`
	ClaimedPaymentDate *time.Time       `json:"claimed_payment_date" example:"2026-01-15T00:00:00Z"`
}

// ResolveDisputeRequest closes a dispute
// @Name HandlerResolveDisputeRequest
type ResolveDisputeRequest struct {
	Status string `json:"status" binding:"required,oneof=resolved_paid resolved_unpaid invalid" example:"resolved_paid"`
	Notes  string `json:"notes" binding:"max=2000" example:"Check located in the January deposit"`
}

// ListDisputesQuery filters the dispute list
type ListDisputesQuery struct {
	dto.ListRequest
	Status   string `form:"status" binding:"omitempty,oneof=open resolved_paid resolved_unpaid invalid"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
}

// Open godoc
// @ID           openDispute
// @Summary      Open a payment dispute
// @Tags         disputes
// @Accept       json
// @Produce      json
// @Param        request  body      OpenDisputeRequest  true  "Dispute"
// @Success      201      {object}  APIResponse[feeapp.DisputeResponse]
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /disputes [post]
func (h *DisputeHandler) Open(c *gin.Context) {
	tenantID, userID, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	var req OpenDisputeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	dispute, err := h.disputes.Open(c.Request.Context(), feeapp.OpenDisputeRequest{
		TenantID:           tenantID,
		UserID:             userID,
		FeeCalculationID:   uuid.MustParse(req.FeeCalculationID),
		Reason:             req.Reason,
		ClaimedAmount:      req.ClaimedAmount,
		ClaimedPaymentDate: req.ClaimedPaymentDate,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, dispute)
}

// Resolve godoc
// @ID           resolveDispute
// @Summary      Resolve a payment dispute
// @Tags         disputes
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Dispute ID"
// @Param        request  body      ResolveDisputeRequest  true  "Resolution"
// @Success      200      {object}  APIResponse[feeapp.DisputeResponse]
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /disputes/{id}/resolve [post]
func (h *DisputeHandler) Resolve(c *gin.Context) {
	tenantID, userID, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req ResolveDisputeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	dispute, err := h.disputes.Resolve(c.Request.Context(), feeapp.ResolveDisputeRequest{
		TenantID:  tenantID,
		UserID:    userID,
		DisputeID: id,
		Status:    fee.DisputeStatus(req.Status),
		Notes:     req.Notes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dispute)
}

// Get godoc
// @ID           getDispute
// @Summary      Get a payment dispute
// @Tags         disputes
// @Produce      json
// @Param        id   path      string  true  "Dispute ID"
// @Success      200  {object}  APIResponse[feeapp.DisputeResponse]
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /disputes/{id} [get]
func (h *DisputeHandler) Get(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	dispute, err := h.disputes.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dispute)
}

// List godoc
// @ID           listDisputes
// @Summary      List payment disputes
// @Tags         disputes
// @Produce      json
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Page size"
// @Param        status     query     string  false  "Dispute status"
// @Param        client_id  query     string  false  "Client ID"
// @Success      200        {object}  APIResponse[[]feeapp.DisputeResponse]
// @Failure      400        {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /disputes [get]
func (h *DisputeHandler) List(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	var q ListDisputesQuery
	if !h.bindQuery(c, &q) {
		return
	}
	filter := fee.DisputeFilter{
		Filter: listFilter(q.ListRequest),
		Status: fee.DisputeStatus(q.Status),
	}
	if q.ClientID != "" {
		clientID := uuid.MustParse(q.ClientID)
		filter.ClientID = &clientID
	}
	page, err := h.disputes.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
