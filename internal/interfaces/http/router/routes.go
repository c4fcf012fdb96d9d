package router

import (
	"github.com/feeledger/backend/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers mounted under the versioned API
type Handlers struct {
	Fees        *handler.FeeCalculationHandler
	Payments    *handler.PaymentHandler
	Letters     *handler.LetterHandler
	Collections *handler.CollectionHandler
	Disputes    *handler.DisputeHandler
	Audit       *handler.AuditHandler
	System      *handler.SystemHandler
}

// FeeLedgerGroups builds the domain groups of the fee ledger API
func FeeLedgerGroups(h Handlers) []RouteRegistrar {
	clientRoutes := NewDomainGroup("clients", "/clients")
	clientRoutes.PUT("/:clientRef/fee-calculations/:year", h.Fees.CreateOrUpdate)

	feeRoutes := NewDomainGroup("fees", "/fee-calculations")
	feeRoutes.GET("", h.Fees.List)
	feeRoutes.POST("/calculate", h.Fees.Calculate)
	feeRoutes.GET("/:id", h.Fees.Get)
	feeRoutes.POST("/:id/mark-paid", h.Fees.MarkPaid)
	feeRoutes.POST("/:id/partial-payment", h.Fees.MarkPartialPayment)
	feeRoutes.POST("/:id/payments", h.Payments.Record)

	letterRoutes := feeRoutes.Group("letters", "/:id/letter")
	letterRoutes.GET("", h.Letters.Get)
	letterRoutes.POST("/sent", h.Letters.RecordSent)
	letterRoutes.POST("/opened", h.Letters.RecordOpened)
	letterRoutes.POST("/method-selected", h.Letters.RecordMethodSelected)

	paymentRoutes := NewDomainGroup("payments", "/payments")
	paymentRoutes.GET("/:id", h.Payments.Get)
	paymentRoutes.PUT("/:id", h.Payments.Update)
	paymentRoutes.DELETE("/:id", h.Payments.Delete)

	collectionRoutes := NewDomainGroup("collections", "/collections")
	collectionRoutes.GET("/kpis", h.Collections.GetKPIs)
	collectionRoutes.GET("/dashboard", h.Collections.GetDashboard)
	collectionRoutes.GET("/dashboard/export", h.Collections.ExportDashboard)
	collectionRoutes.GET("/groups", h.Collections.GetGroupRollup)

	disputeRoutes := NewDomainGroup("disputes", "/disputes")
	disputeRoutes.POST("", h.Disputes.Open)
	disputeRoutes.GET("", h.Disputes.List)
	disputeRoutes.GET("/:id", h.Disputes.Get)
	disputeRoutes.POST("/:id/resolve", h.Disputes.Resolve)

	auditRoutes := NewDomainGroup("audit", "/audit")
	auditRoutes.GET("/:entityType/:id", h.Audit.History)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)

	return []RouteRegistrar{
		clientRoutes,
		feeRoutes,
		paymentRoutes,
		collectionRoutes,
		disputeRoutes,
		auditRoutes,
		systemRoutes,
	}
}
