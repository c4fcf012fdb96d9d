package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feeledger/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group)
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterMiddleware(t *testing.T) {
	engine := gin.New()
	var calls []string
	mark := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			calls = append(calls, name)
			c.Next()
		}
	}

	r := NewRouter(engine, WithMiddleware(mark("option")))
	r.Use(mark("use"))
	group := NewDomainGroup("test", "/test").Use(mark("group"))
	group.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Register(group)
	r.Setup()
	engine.GET("/outside", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodGet, "/api/v1/test/ping").Code)
	assert.Equal(t, []string{"option", "use", "group"}, calls)

	calls = nil
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/outside").Code)
	assert.Empty(t, calls)
}

func TestDomainGroup_Methods(t *testing.T) {
	tests := []struct {
		method   string
		register func(g *DomainGroup, h gin.HandlerFunc)
	}{
		{http.MethodGet, func(g *DomainGroup, h gin.HandlerFunc) { g.GET("/items/:id", h) }},
		{http.MethodPost, func(g *DomainGroup, h gin.HandlerFunc) { g.POST("/items/:id", h) }},
		{http.MethodPut, func(g *DomainGroup, h gin.HandlerFunc) { g.PUT("/items/:id", h) }},
		{http.MethodDelete, func(g *DomainGroup, h gin.HandlerFunc) { g.DELETE("/items/:id", h) }},
		{http.MethodPatch, func(g *DomainGroup, h gin.HandlerFunc) { g.Handle(http.MethodPatch, "/items/:id", h) }},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			engine := gin.New()
			g := NewDomainGroup("test", "/test")
			tt.register(g, func(c *gin.Context) {
				c.String(http.StatusOK, c.Param("id"))
			})
			g.RegisterRoutes(engine.Group("/api/v1"))

			w := serve(engine, tt.method, "/api/v1/test/items/42")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "42", w.Body.String())
		})
	}
}

func TestDomainGroup_Subgroup(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("fees", "/fee-calculations")
	g.GET("", func(c *gin.Context) { c.String(http.StatusOK, "list") })
	letters := g.Group("letters", "/:id/letter")
	letters.POST("/sent", func(c *gin.Context) { c.String(http.StatusOK, "sent "+c.Param("id")) })

	assert.Equal(t, "letters", letters.Name())
	assert.Equal(t, "/:id/letter", letters.Prefix())

	g.RegisterRoutes(engine.Group("/api/v1"))

	assert.Equal(t, "list", serve(engine, http.MethodGet, "/api/v1/fee-calculations").Body.String())
	assert.Equal(t, "sent 7", serve(engine, http.MethodPost, "/api/v1/fee-calculations/7/letter/sent").Body.String())
}

func TestRouterRoutes(t *testing.T) {
	r := NewRouter(gin.New())
	g := NewDomainGroup("disputes", "/disputes")
	g.POST("", func(*gin.Context) {})
	g.Group("resolution", "/:id").POST("/resolve", func(*gin.Context) {})
	r.Register(g)

	assert.Equal(t, []RouteInfo{
		{Group: "disputes", Method: http.MethodPost, Path: "/api/v1/disputes"},
		{Group: "resolution", Method: http.MethodPost, Path: "/api/v1/disputes/:id/resolve"},
	}, r.Routes())
}

func TestFeeLedgerGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register(FeeLedgerGroups(Handlers{
		Fees:        handler.NewFeeCalculationHandler(nil, nil),
		Payments:    handler.NewPaymentHandler(nil),
		Letters:     handler.NewLetterHandler(nil),
		Collections: handler.NewCollectionHandler(nil, nil),
		Disputes:    handler.NewDisputeHandler(nil),
		Audit:       handler.NewAuditHandler(nil),
		System:      handler.NewSystemHandler("fee-ledger", "test"),
	})...)

	require.NotPanics(t, r.Setup)

	paths := make(map[string]bool)
	for _, route := range r.Routes() {
		paths[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"PUT /api/v1/clients/:clientRef/fee-calculations/:year",
		"GET /api/v1/fee-calculations",
		"POST /api/v1/fee-calculations/calculate",
		"GET /api/v1/fee-calculations/:id",
		"POST /api/v1/fee-calculations/:id/mark-paid",
		"POST /api/v1/fee-calculations/:id/partial-payment",
		"POST /api/v1/fee-calculations/:id/payments",
		"GET /api/v1/fee-calculations/:id/letter",
		"POST /api/v1/fee-calculations/:id/letter/sent",
		"POST /api/v1/fee-calculations/:id/letter/opened",
		"POST /api/v1/fee-calculations/:id/letter/method-selected",
		"GET /api/v1/payments/:id",
		"PUT /api/v1/payments/:id",
		"DELETE /api/v1/payments/:id",
		"GET /api/v1/collections/kpis",
		"GET /api/v1/collections/dashboard",
		"GET /api/v1/collections/dashboard/export",
		"GET /api/v1/collections/groups",
		"POST /api/v1/disputes",
		"GET /api/v1/disputes",
		"GET /api/v1/disputes/:id",
		"POST /api/v1/disputes/:id/resolve",
		"GET /api/v1/audit/:entityType/:id",
		"GET /api/v1/system/info",
	} {
		assert.True(t, paths[want], "missing route %s", want)
	}

	w := serve(engine, http.MethodGet, "/api/v1/system/info")
	assert.Equal(t, http.StatusOK, w.Code)
}
