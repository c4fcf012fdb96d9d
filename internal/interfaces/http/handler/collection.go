package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	feeapp "github.com/feeledger/backend/internal/application/fee"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/export"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// CollectionHandler serves the collections dashboard and the group rollup
type CollectionHandler struct {
	BaseHandler
	collections *feeapp.CollectionService
	rollups     *feeapp.GroupRollupService
	now         func() time.Time
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(collections *feeapp.CollectionService, rollups *feeapp.GroupRollupService) *CollectionHandler {
	return &CollectionHandler{collections: collections, rollups: rollups, now: time.Now}
}

// KPIQuery restricts KPIs to letters sent within a date range
type KPIQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// DashboardQuery filters and orders dashboard rows
type DashboardQuery struct {
	dto.ListRequest
	TaxYear       int    `form:"tax_year" binding:"omitempty,gte=2000,lte=2100"`
	StatusBucket  string `form:"status" binding:"omitempty,oneof=sent_not_opened opened_not_selected selected_not_paid partial_paid paid disputed"`
	PaymentMethod string `form:"payment_method" binding:"omitempty,payment_method"`
	Elapsed       string `form:"elapsed" binding:"omitempty,oneof=0-7 8-14 15-30 31-60 60+"`
	AlertsOnly    bool   `form:"alerts_only"`
	SortBy        string `form:"sort_by" binding:"omitempty,oneof=client_name total sent_at days_since_sent"`
	SortDesc      bool   `form:"sort_desc"`
}

func (q DashboardQuery) filter() fee.DashboardFilter {
	return fee.DashboardFilter{
		TaxYear:       q.TaxYear,
		StatusBucket:  fee.StatusBucket(q.StatusBucket),
		PaymentMethod: fee.PaymentMethod(q.PaymentMethod),
		Elapsed:       fee.ElapsedBucket(q.Elapsed),
		Search:        q.Search,
		AlertsOnly:    q.AlertsOnly,
	}
}

func (q DashboardQuery) sort() fee.DashboardSort {
	return fee.DashboardSort{Field: fee.DashboardSortField(q.SortBy), Desc: q.SortDesc}
}

// RollupQuery selects the tax year of the group rollup
type RollupQuery struct {
	Year int `form:"year" binding:"required,gte=2000,lte=2100"`
}

// GetKPIs godoc
// @ID           getCollectionKPIs
// @Summary      Get collection KPIs
// @Description  Portfolio totals, collection rate and alert counts. The range filters letters by sent date.
// @Tags         collections
// @Produce      json
// @Param        from  query     string  false  "First sent date (YYYY-MM-DD)"
// @Param        to    query     string  false  "Last sent date (YYYY-MM-DD)"
// @Success      200   {object}  APIResponse[fee.CollectionKPIs]
// @Failure      400   {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /collections/kpis [get]
func (h *CollectionHandler) GetKPIs(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	var q KPIQuery
	if !h.bindQuery(c, &q) {
		return
	}

	var window *shared.DateRange
	if q.From != "" || q.To != "" {
		window = &shared.DateRange{}
		if q.From != "" {
			window.From, _ = time.Parse(time.DateOnly, q.From)
		}
		if q.To != "" {
			to, _ := time.Parse(time.DateOnly, q.To)
			window.To = to.Add(24*time.Hour - time.Nanosecond)
		}
	}

	kpis, err := h.collections.GetKPIs(c.Request.Context(), tenantID, window)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, kpis)
}

// GetDashboard godoc
// @ID           getCollectionDashboard
// @Summary      List collection dashboard rows
// @Tags         collections
// @Produce      json
// @Param        page            query     int     false  "Page number"
// @Param        page_size       query     int     false  "Page size"
// @Param        search          query     string  false  "Client name or ID"
// @Param        tax_year        query     int     false  "Tax year"
// @Param        status          query     string  false  "Status bucket"
// @Param        payment_method  query     string  false  "Payment method"
// @Param        elapsed         query     string  false  "Days since sent bucket"
// @Param        alerts_only     query     bool    false  "Only rows with alerts"
// @Param        sort_by         query     string  false  "Sort field"
// @Param        sort_desc       query     bool    false  "Descending order"
// @Success      200             {object}  APIResponse[[]fee.CollectionRow]
// @Failure      400             {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /collections/dashboard [get]
func (h *CollectionHandler) GetDashboard(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	var q DashboardQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.collections.GetDashboardRows(c.Request.Context(), tenantID, q.filter(), q.sort(), listFilter(q.ListRequest))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ExportDashboard godoc
// @ID           exportCollectionDashboard
// @Summary      Export dashboard rows as XLSX
// @Description  Writes every row matching the filters, ignoring pagination
// @Tags         collections
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        tax_year        query  int     false  "Tax year"
// @Param        status          query  string  false  "Status bucket"
// @Param        payment_method  query  string  false  "Payment method"
// @Param        elapsed         query  string  false  "Days since sent bucket"
// @Param        alerts_only     query  bool    false  "Only rows with alerts"
// @Param        search          query  string  false  "Client name or ID"
// @Success      200             {file}  file
// @Failure      400             {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /collections/dashboard/export [get]
func (h *CollectionHandler) ExportDashboard(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	var q DashboardQuery
	if !h.bindQuery(c, &q) {
		return
	}

	var buf bytes.Buffer
	rows, err := h.collections.ExportDashboard(c.Request.Context(), tenantID, q.filter(), q.sort(), &buf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(q.TaxYear, h.now())+`"`)
	c.Header("X-Total-Count", strconv.Itoa(rows))
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

// GetGroupRollup godoc
// @ID           getGroupRollup
// @Summary      Roll up fee status by client group
// @Description  Groups with their members' status, followed by clients outside any group
// @Tags         collections
// @Produce      json
// @Param        year  query     int  true  "Tax year"
// @Success      200   {object}  APIResponse[[]fee.RollupRow]
// @Failure      400   {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /collections/groups [get]
func (h *CollectionHandler) GetGroupRollup(c *gin.Context) {
	tenantID, _, ok := h.requestScope(c, false)
	if !ok {
		return
	}
	var q RollupQuery
	if !h.bindQuery(c, &q) {
		return
	}
	rows, err := h.rollups.Rollup(c.Request.Context(), tenantID, q.Year)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, rows)
}
