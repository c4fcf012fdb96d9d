package handler

import (
	feeapp "github.com/feeledger/backend/internal/application/fee"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the audit trail of fee entities
type AuditHandler struct {
	BaseHandler
	trail *feeapp.AuditTrailService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(trail *feeapp.AuditTrailService) *AuditHandler {
	return &AuditHandler{trail: trail}
}

// History godoc
// @ID           getAuditHistory
// @Summary      Get the audit history of an entity
// @Description  Newest entries first
// @Tags         audit
// @Produce      json
// @Param        entityType  path      string  true   "FeeCalculation, ActualPayment or PaymentDispute"
// @Param        id          path      string  true   "Entity ID"
// @Param        page        query     int     false  "Page number"
// @Param        page_size   query     int     false  "Page size"
// @Success      200         {object}  APIResponse[[]feeapp.AuditEntryResponse]
// @Failure      400         {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /audit/{entityType}/{id} [get]
func (h *AuditHandler) History(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var q dto.ListRequest
	if !h.bindQuery(c, &q) {
		return
	}
	entries, err := h.trail.History(c.Request.Context(), tenantID, c.Param("entityType"), id, listFilter(q))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entries)
}
