package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProfiling_LabelsRequestContext(t *testing.T) {
	tenant := uuid.NewString()
	var route, controller, method, tenantLabel string

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(TenantIDKey, tenant) })
	router.Use(Profiling(DefaultProfilingConfig()))
	router.GET("/api/v1/fee-calculations/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		route, _ = pprof.Label(ctx, ProfilingLabelRoute)
		controller, _ = pprof.Label(ctx, ProfilingLabelController)
		method, _ = pprof.Label(ctx, ProfilingLabelMethod)
		tenantLabel, _ = pprof.Label(ctx, ProfilingLabelTenantID)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fee-calculations/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v1/fee-calculations/:id", route)
	assert.Equal(t, "fee-calculations", controller)
	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, tenant, tenantLabel)
}

func TestProfiling_SkipsAndDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProfilingConfig
		path string
	}{
		{"disabled", ProfilingConfig{Enabled: false}, "/api/v1/collections/kpis"},
		{"skip path", DefaultProfilingConfig(), "/health"},
		{"skip prefix", DefaultProfilingConfig(), "/swagger/index.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labelled := true
			router := gin.New()
			router.Use(Profiling(tt.cfg))
			router.GET(tt.path, func(c *gin.Context) {
				_, labelled = pprof.Label(c.Request.Context(), ProfilingLabelMethod)
				c.Status(http.StatusOK)
			})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.False(t, labelled)
		})
	}
}

func TestControllerFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/fee-calculations/:id", "fee-calculations"},
		{"/api/v1/clients/:clientRef/fee-calculations/:year", "clients"},
		{"/api/v2/collections/kpis", "collections"},
		{"/health", "health"},
		{"/api/v1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, controllerFromRoute(tt.route), tt.route)
	}
}
