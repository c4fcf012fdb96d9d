package handler

import (
	"time"

	feeapp "github.com/feeledger/backend/internal/application/fee"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LetterHandler records fee letter engagement
type LetterHandler struct {
	BaseHandler
	tracking *feeapp.LetterTrackingService
}

// NewLetterHandler creates a new LetterHandler
func NewLetterHandler(tracking *feeapp.LetterTrackingService) *LetterHandler {
	return &LetterHandler{tracking: tracking}
}

// LetterEventRequest carries the optional time of a letter event
// @Name HandlerLetterEventRequest
type LetterEventRequest struct {
	At *time.Time `json:"at" example:"2026-01-20T09:30:00Z"`
}

// MethodSelectedRequest records the payment method a client picked
// @Name HandlerMethodSelectedRequest
type MethodSelectedRequest struct {
	PaymentMethod string     `json:"payment_method" binding:"required,payment_method" example:"credit_card_installments"`
	At            *time.Time `json:"at" example:"2026-01-21T10:00:00Z"`
}

// Get godoc
// @ID           getLetterTracking
// @Summary      Get letter tracking of a fee
// @Tags         letters
// @Produce      json
// @Param        id   path      string  true  "Fee calculation ID"
// @Success      200  {object}  APIResponse[feeapp.LetterTrackingResponse]
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations/{id}/letter [get]
func (h *LetterHandler) Get(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	feeID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	tracking, err := h.tracking.Get(c.Request.Context(), tenantID, feeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, tracking)
}

// RecordSent godoc
// @ID           recordLetterSent
// @Summary      Record that the fee letter was sent
// @Description  Also moves a draft fee to sent
// @Tags         letters
// @Accept       json
// @Produce      json
// @Param        id       path      string              true   "Fee calculation ID"
// @Param        request  body      LetterEventRequest  false  "Event time, defaults to now"
// @Success      200      {object}  APIResponse[feeapp.LetterTrackingResponse]
// @Failure      404      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations/{id}/letter/sent [post]
func (h *LetterHandler) RecordSent(c *gin.Context) {
	tenantID, userID, feeID, req, ok := h.letterEvent(c)
	if !ok {
		return
	}
	tracking, err := h.tracking.RecordSent(c.Request.Context(), tenantID, userID, feeID, req.At)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, tracking)
}

// RecordOpened godoc
// @ID           recordLetterOpened
// @Summary      Record that the client opened the fee letter
// @Tags         letters
// @Accept       json
// @Produce      json
// @Param        id       path      string              true   "Fee calculation ID"
// @Param        request  body      LetterEventRequest  false  "Event time, defaults to now"
// @Success      200      {object}  APIResponse[feeapp.LetterTrackingResponse]
// @Failure      404      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations/{id}/letter/opened [post]
func (h *LetterHandler) RecordOpened(c *gin.Context) {
	tenantID, _, feeID, req, ok := h.letterEvent(c)
	if !ok {
		return
	}
	tracking, err := h.tracking.RecordOpened(c.Request.Context(), tenantID, feeID, req.At)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, tracking)
}

// RecordMethodSelected godoc
// @ID           recordLetterMethodSelected
// @Summary      Record the payment method the client selected
// @Tags         letters
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Fee calculation ID"
// @Param        request  body      MethodSelectedRequest  true  "Selected method"
// @Success      200      {object}  APIResponse[feeapp.LetterTrackingResponse]
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations/{id}/letter/method-selected [post]
func (h *LetterHandler) RecordMethodSelected(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	feeID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req MethodSelectedRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tracking, err := h.tracking.RecordMethodSelected(c.Request.Context(), tenantID, feeID, fee.PaymentMethod(req.PaymentMethod), req.At)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, tracking)
}

// letterEvent resolves the scope, fee ID and optional body shared by the
// sent and opened events
func (h *LetterHandler) letterEvent(c *gin.Context) (tenantID, userID, feeID uuid.UUID, req LetterEventRequest, ok bool) {
	tenantID, userID, ok = h.requestScope(c, false)
	if !ok {
		return
	}
	feeID, ok = h.uuidParam(c, "id")
	if !ok {
		return
	}
	if c.Request.ContentLength != 0 {
		ok = h.bindJSON(c, &req)
	}
	return
}
