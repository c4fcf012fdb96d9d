package handler

import (
	"fmt"
	"time"

	feeapp "github.com/feeledger/backend/internal/application/fee"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader lets clients retry a payment without recording it twice
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 255

// PaymentHandler handles actual payment API endpoints
type PaymentHandler struct {
	BaseHandler
	payments *feeapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *feeapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// InstallmentRequest is one installment of a split payment
// @Name HandlerInstallmentRequest
type InstallmentRequest struct {
	Number int             `json:"installment_number" binding:"required,gte=1" example:"1"`
	Date   time.Time       `json:"installment_date" binding:"required" example:"2026-02-15T00:00:00Z"`
	Amount decimal.Decimal `json:"installment_amount" binding:"decimal_positive" swaggertype:"string" example:"2500.00"`
}

// RecordPaymentRequest records what a client paid
// @Name HandlerRecordPaymentRequest
type RecordPaymentRequest struct {
	AmountPaid       decimal.Decimal      `json:"amount_paid" binding:"decimal_positive" swaggertype:"string" example:"10620.00"`
	PaymentDate      time.Time            `json:"payment_date" binding:"required" example:"2026-02-15T00:00:00Z"`
	PaymentMethod    string               `json:"payment_method" binding:"required,payment_method" example:"bank_transfer"`
	PaymentReference string               `json:"payment_reference" binding:"max=100" example:"TRX-20260215"`
	Notes            string               `json:"notes" binding:"max=2000"`
	AttachmentIDs    []string             `json:"attachment_ids" binding:"max=20,dive,required,max=255"`
	Installments     []InstallmentRequest `json:"installments" binding:"max=36,dive"`
}

// UpdatePaymentRequest changes the given fields of a payment
// @Name HandlerUpdatePaymentRequest
type UpdatePaymentRequest struct {
	AmountPaid       *decimal.Decimal `json:"amount_paid" binding:"omitempty,decimal_positive" swaggertype:"string" example:"10620.00"`
	PaymentDate      *time.Time       `json:"payment_date" example:"2026-02-15T00:00:00Z"`
	PaymentMethod    *string          `json:"payment_method" binding:"omitempty,payment_method" example:"checks"`
	PaymentReference *string          `json:"payment_reference" binding:"omitempty,max=100"`
	Notes            *string          `json:"notes" binding:"omitempty,max=2000"`
	AttachmentIDs    *[]string        `json:"attachment_ids" binding:"omitempty,max=20,dive,required,max=255"`
}

func (r UpdatePaymentRequest) toChanges() fee.PaymentChanges {
	changes := fee.PaymentChanges{
		AmountPaid:       r.AmountPaid,
		PaymentDate:      r.PaymentDate,
		PaymentReference: r.PaymentReference,
		Notes:            r.Notes,
		AttachmentIDs:    r.AttachmentIDs,
	}
	if r.PaymentMethod != nil {
		method := fee.PaymentMethod(*r.PaymentMethod)
		changes.PaymentMethod = &method
	}
	return changes
}

// Record godoc
// @ID           recordPayment
// @Summary      Record a payment against a fee
// @Description  Stores the payment, classifies its deviation from the expected amount and updates the fee status
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id               path      string                true   "Fee calculation ID"
// @Param        Idempotency-Key  header    string                false  "Client key that makes retries safe"
// @Param        request          body      RecordPaymentRequest  true   "Payment"
// @Success      200              {object}  APIResponse[feeapp.PaymentResponse]  "Replay of an earlier request with the same key"
// @Success      201              {object}  APIResponse[feeapp.PaymentResponse]
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      422      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	tenantID, userID, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	feeID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		h.BadRequest(c, fmt.Sprintf("%s must be at most %d characters", IdempotencyKeyHeader, maxIdempotencyKeyLen))
		return
	}
	var req RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	installments := make([]fee.InstallmentInput, 0, len(req.Installments))
	for _, inst := range req.Installments {
		installments = append(installments, fee.InstallmentInput{
			Number: inst.Number,
			Date:   inst.Date,
			Amount: inst.Amount,
		})
	}

	payment, err := h.payments.RecordPayment(c.Request.Context(), feeapp.RecordPaymentRequest{
		TenantID:         tenantID,
		UserID:           userID,
		FeeCalculationID: feeID,
		AmountPaid:       req.AmountPaid,
		PaymentDate:      req.PaymentDate,
		PaymentMethod:    fee.PaymentMethod(req.PaymentMethod),
		PaymentReference: req.PaymentReference,
		Notes:            req.Notes,
		AttachmentIDs:    req.AttachmentIDs,
		Installments:     installments,
		IdempotencyKey:   idempotencyKey,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if payment.Replayed {
		h.Success(c, payment)
		return
	}
	h.Created(c, payment)
}

// Get godoc
// @ID           getPayment
// @Summary      Get a payment
// @Description  Returns the payment with its installments, deviation and signed attachment links
// @Tags         payments
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  APIResponse[feeapp.PaymentResponse]
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.GetPayment(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, payment)
}

// Update godoc
// @ID           updatePayment
// @Summary      Update a payment
// @Description  Only the given fields change. A changed amount is classified again.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Payment ID"
// @Param        request  body      UpdatePaymentRequest  true  "Changed fields"
// @Success      200      {object}  APIResponse[feeapp.PaymentResponse]
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	tenantID, userID, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	payment, err := h.payments.UpdatePayment(c.Request.Context(), feeapp.UpdatePaymentRequest{
		TenantID:  tenantID,
		UserID:    userID,
		PaymentID: id,
		Changes:   req.toChanges(),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, payment)
}

// Delete godoc
// @ID           deletePayment
// @Summary      Delete a payment
// @Description  Removes the payment with its installments and deviation and refreshes the fee status
// @Tags         payments
// @Param        id   path  string  true  "Payment ID"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	tenantID, userID, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.payments.DeletePayment(c.Request.Context(), tenantID, userID, id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}
