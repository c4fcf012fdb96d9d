package handler

import (
	"time"

	feeapp "github.com/feeledger/backend/internal/application/fee"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeCalculationHandler handles fee calculation API endpoints
type FeeCalculationHandler struct {
	BaseHandler
	fees    *feeapp.FeeCalculationService
	clients fee.ClientResolver
}

// NewFeeCalculationHandler creates a new FeeCalculationHandler
func NewFeeCalculationHandler(fees *feeapp.FeeCalculationService, clients fee.ClientResolver) *FeeCalculationHandler {
	return &FeeCalculationHandler{fees: fees, clients: clients}
}

// PreviousYearRequest overrides the stored prior-year amounts
// @Name HandlerPreviousYearRequest
type PreviousYearRequest struct {
	AmountBeforeDiscount decimal.Decimal `json:"amount_before_discount" binding:"decimal_nonneg" swaggertype:"string" example:"9500.00"`
	AmountAfterDiscount  decimal.Decimal `json:"amount_after_discount" binding:"decimal_nonneg" swaggertype:"string" example:"9000.00"`
	AmountWithVAT        decimal.Decimal `json:"amount_with_vat" binding:"decimal_nonneg" swaggertype:"string" example:"10620.00"`
}

// BookkeepingRequest configures the monthly bookkeeping track
// @Name HandlerBookkeepingRequest
type BookkeepingRequest struct {
	MonthlyAmount             decimal.Decimal `json:"monthly_amount" binding:"decimal_nonneg" swaggertype:"string" example:"800.00"`
	ApplyInflationIndex       bool            `json:"apply_inflation_index"`
	InflationRatePercent      decimal.Decimal `json:"inflation_rate_percent" swaggertype:"string" example:"3"`
	IndexManualAdjustment     decimal.Decimal `json:"index_manual_adjustment" swaggertype:"string" example:"0"`
	RealAdjustment            decimal.Decimal `json:"real_adjustment" swaggertype:"string" example:"0"`
	RealAdjustmentReason      string          `json:"real_adjustment_reason" binding:"max=500"`
	ClientRequestedAdjustment decimal.Decimal `json:"client_requested_adjustment" swaggertype:"string" example:"0"`
}

// RetainerRequest configures the monthly retainer track. Inflation applies
// unless apply_inflation_index is false.
// @Name HandlerRetainerRequest
type RetainerRequest struct {
	MonthlyAmount                  decimal.Decimal `json:"monthly_amount" binding:"decimal_nonneg" swaggertype:"string" example:"1200.00"`
	ApplyInflationIndex            *bool           `json:"apply_inflation_index"`
	InflationRatePercent           decimal.Decimal `json:"inflation_rate_percent" swaggertype:"string" example:"3"`
	IndexManualAdjustmentMagnitude decimal.Decimal `json:"index_manual_adjustment" binding:"decimal_nonneg" swaggertype:"string" example:"0"`
	IndexManualAdjustmentNegative  bool            `json:"index_manual_adjustment_negative"`
	RealAdjustment                 decimal.Decimal `json:"real_adjustment" swaggertype:"string" example:"0"`
	RealAdjustmentReason           string          `json:"real_adjustment_reason" binding:"max=500"`
	ClientRequestedAdjustment      decimal.Decimal `json:"client_requested_adjustment" swaggertype:"string" example:"0"`
}

// FeeParamsRequest are the inputs of a fee calculation
// @Name HandlerFeeParamsRequest
type FeeParamsRequest struct {
	BaseAmount                decimal.Decimal      `json:"base_amount" binding:"decimal_nonneg" swaggertype:"string" example:"10000.00"`
	ApplyInflationIndex       bool                 `json:"apply_inflation_index" example:"true"`
	InflationRatePercent      decimal.Decimal      `json:"inflation_rate_percent" swaggertype:"string" example:"3"`
	IndexManualAdjustment     decimal.Decimal      `json:"index_manual_adjustment" swaggertype:"string" example:"0"`
	RealAdjustment            decimal.Decimal      `json:"real_adjustment" swaggertype:"string" example:"500"`
	RealAdjustmentReason      string               `json:"real_adjustment_reason" binding:"max=500" example:"Additional entity"`
	ClientRequestedAdjustment decimal.Decimal      `json:"client_requested_adjustment" swaggertype:"string" example:"-200"`
	ClientAdjustmentNote      string               `json:"client_adjustment_note" binding:"max=500"`
	PreviousYear              *PreviousYearRequest `json:"previous_year"`
	Bookkeeping               *BookkeepingRequest  `json:"bookkeeping"`
	Retainer                  *RetainerRequest     `json:"retainer"`
	DueDate                   *time.Time           `json:"due_date" example:"2026-03-31T00:00:00Z"`
	Notes                     string               `json:"notes" binding:"max=2000"`
	CustomText                string               `json:"custom_text" binding:"max=5000"`
}

// toParams converts the request to domain parameters
func (r FeeParamsRequest) toParams() fee.FeeParams {
	p := fee.FeeParams{
		BaseAmount:                r.BaseAmount,
		ApplyInflationIndex:       r.ApplyInflationIndex,
		InflationRatePercent:      r.InflationRatePercent,
		IndexManualAdjustment:     r.IndexManualAdjustment,
		RealAdjustment:            r.RealAdjustment,
		RealAdjustmentReason:      r.RealAdjustmentReason,
		ClientRequestedAdjustment: r.ClientRequestedAdjustment,
		ClientAdjustmentNote:      r.ClientAdjustmentNote,
		DueDate:                   r.DueDate,
		Notes:                     r.Notes,
		CustomText:                r.CustomText,
	}
	if r.PreviousYear != nil {
		p.PreviousYear = &fee.PreviousYearSnapshot{
			AmountBeforeDiscount: r.PreviousYear.AmountBeforeDiscount,
			AmountAfterDiscount:  r.PreviousYear.AmountAfterDiscount,
			AmountWithVAT:        r.PreviousYear.AmountWithVAT,
		}
	}
	if b := r.Bookkeeping; b != nil {
		p.Bookkeeping = &fee.BookkeepingParams{
			MonthlyAmount:             b.MonthlyAmount,
			ApplyInflationIndex:       b.ApplyInflationIndex,
			InflationRatePercent:      b.InflationRatePercent,
			IndexManualAdjustment:     b.IndexManualAdjustment,
			RealAdjustment:            b.RealAdjustment,
			RealAdjustmentReason:      b.RealAdjustmentReason,
			ClientRequestedAdjustment: b.ClientRequestedAdjustment,
		}
	}
	if rt := r.Retainer; rt != nil {
		p.Retainer = &fee.RetainerParams{
			MonthlyAmount:                  rt.MonthlyAmount,
			ApplyInflationIndex:            rt.ApplyInflationIndex,
			InflationRatePercent:           rt.InflationRatePercent,
			IndexManualAdjustmentMagnitude: rt.IndexManualAdjustmentMagnitude,
			IndexManualAdjustmentNegative:  rt.IndexManualAdjustmentNegative,
			RealAdjustment:                 rt.RealAdjustment,
			RealAdjustmentReason:           rt.RealAdjustmentReason,
			ClientRequestedAdjustment:      rt.ClientRequestedAdjustment,
		}
	}
	return p
}

// TaxYearURI is the tax year path parameter
type TaxYearURI struct {
	Year int `uri:"year" binding:"required,gte=2000,lte=2100"`
}

// ListFeeCalculationsQuery filters the fee calculation list
type ListFeeCalculationsQuery struct {
	dto.ListRequest
	TaxYear  int    `form:"tax_year" binding:"omitempty,gte=2000,lte=2100"`
	Status   string `form:"status" binding:"omitempty,oneof=draft sent paid partial_paid overdue cancelled"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
}

// MarkPaidRequest marks a fee as paid in full
// @Name HandlerMarkPaidRequest
type MarkPaidRequest struct {
	PaymentDate *time.Time `json:"payment_date" example:"2026-02-15T00:00:00Z"`
}

// PartialPaymentRequest records a partial payment on a fee
// @Name HandlerPartialPaymentRequest
type PartialPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"decimal_positive" swaggertype:"string" example:"5000.00"`
	PaymentDate *time.Time      `json:"payment_date" example:"2026-02-15T00:00:00Z"`
}

// CreateOrUpdate godoc
// @ID           saveFeeCalculation
// @Summary      Create or update a client's fee for a tax year
// @Description  Saves the fee of one client for one tax year. Amounts are recalculated only when an amount input changed.
// @Tags         fee-calculations
// @Accept       json
// @Produce      json
// @Param        clientRef  path      string            true  "Client ID or legacy branch reference"
// @Param        year       path      int               true  "Tax year"
// @Param        request    body      FeeParamsRequest  true  "Fee parameters"
// @Success      200        {object}  APIResponse[feeapp.SaveFeeResult]
// @Success      201        {object}  APIResponse[feeapp.SaveFeeResult]
// @Failure      400        {object}  ErrorResponse
// @Failure      401        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      422        {object}  ErrorResponse
// @Failure      500        {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /clients/{clientRef}/fee-calculations/{year} [put]
func (h *FeeCalculationHandler) CreateOrUpdate(c *gin.Context) {
	tenantID, userID, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	var uri TaxYearURI
	if !h.bind(c, c.ShouldBindUri(&uri)) {
		return
	}
	var req FeeParamsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	clientID, err := h.clients.Resolve(c.Request.Context(), tenantID, c.Param("clientRef"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.fees.CreateOrUpdate(c.Request.Context(), feeapp.CreateOrUpdateFeeRequest{
		TenantID: tenantID,
		UserID:   userID,
		ClientID: clientID,
		TaxYear:  uri.Year,
		Params:   req.toParams(),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if result.Created {
		h.Created(c, result)
		return
	}
	h.Success(c, result)
}

// Calculate godoc
// @ID           previewFeeCalculation
// @Summary      Preview a fee calculation
// @Description  Runs the calculator without saving anything
// @Tags         fee-calculations
// @Accept       json
// @Produce      json
// @Param        request  body      FeeParamsRequest  true  "Fee parameters"
// @Success      200      {object}  APIResponse[feeapp.FeeCalculationResponse]
// @Failure      400      {object}  ErrorResponse
// @Failure      422      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations/calculate [post]
func (h *FeeCalculationHandler) Calculate(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	var req FeeParamsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	preview, err := h.fees.Preview(c.Request.Context(), tenantID, req.toParams())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, preview)
}

// Get godoc
// @ID           getFeeCalculation
// @Summary      Get a fee calculation
// @Tags         fee-calculations
// @Produce      json
// @Param        id   path      string  true  "Fee calculation ID"
// @Success      200  {object}  APIResponse[feeapp.FeeCalculationResponse]
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations/{id} [get]
func (h *FeeCalculationHandler) Get(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	calc, err := h.fees.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, calc)
}

// List godoc
// @ID           listFeeCalculations
// @Summary      List fee calculations
// @Tags         fee-calculations
// @Produce      json
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Page size"
// @Param        tax_year   query     int     false  "Tax year"
// @Param        status     query     string  false  "Fee status"
// @Param        client_id  query     string  false  "Client ID"
// @Success      200        {object}  APIResponse[[]feeapp.FeeCalculationResponse]
// @Failure      400        {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations [get]
func (h *FeeCalculationHandler) List(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	var q ListFeeCalculationsQuery
	if !h.bindQuery(c, &q) {
		return
	}

	filter := fee.FeeCalculationFilter{
		Filter:  listFilter(q.ListRequest),
		TaxYear: q.TaxYear,
		Status:  fee.FeeStatus(q.Status),
	}
	if q.ClientID != "" {
		clientID := uuid.MustParse(q.ClientID)
		filter.ClientID = &clientID
	}

	page, err := h.fees.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// MarkPaid godoc
// @ID           markFeeCalculationPaid
// @Summary      Mark a fee as paid
// @Tags         fee-calculations
// @Accept       json
// @Produce      json
// @Param        id       path      string           true   "Fee calculation ID"
// @Param        request  body      MarkPaidRequest  false  "Payment date, defaults to now"
// @Success      200      {object}  APIResponse[feeapp.FeeCalculationResponse]
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      422      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations/{id}/mark-paid [post]
func (h *FeeCalculationHandler) MarkPaid(c *gin.Context) {
	tenantID, userID, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req MarkPaidRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	calc, err := h.fees.MarkPaid(c.Request.Context(), tenantID, userID, id, req.PaymentDate)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, calc)
}

// MarkPartialPayment godoc
// @ID           markFeeCalculationPartialPayment
// @Summary      Record a partial payment on a fee
// @Tags         fee-calculations
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Fee calculation ID"
// @Param        request  body      PartialPaymentRequest  true  "Partial payment"
// @Success      200      {object}  APIResponse[feeapp.FeeCalculationResponse]
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      422      {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /fee-calculations/{id}/partial-payment [post]
func (h *FeeCalculationHandler) MarkPartialPayment(c *gin.Context) {
	tenantID, userID, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req PartialPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	calc, err := h.fees.MarkPartialPayment(c.Request.Context(), tenantID, userID, id, req.Amount, req.PaymentDate)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, calc)
}

// listFilter converts list query parameters to a repository filter
func listFilter(r dto.ListRequest) shared.Filter {
	return shared.Filter{
		Page:     r.Page,
		PageSize: r.PageSize,
		OrderBy:  r.OrderBy,
		OrderDir: r.OrderDir,
		Search:   r.Search,
	}.Normalize()
}
