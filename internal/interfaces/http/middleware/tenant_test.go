package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feeledger/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func tenantRouter(mws ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mws...)
	router.GET("/api/v1/disputes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant":     GetTenantID(c),
			"ctx_tenant": logger.GetTenantID(c.Request.Context()),
		})
	})
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestTenantMiddleware_Header(t *testing.T) {
	tenantID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/disputes", nil)
	req.Header.Set(TenantHeaderKey, tenantID)
	rec := httptest.NewRecorder()

	tenantRouter(TenantMiddleware()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tenant":"`+tenantID+`"`)
	assert.Contains(t, rec.Body.String(), `"ctx_tenant":"`+tenantID+`"`)
}

func TestTenantMiddleware_JWTOverridesHeader(t *testing.T) {
	jwtTenant := uuid.NewString()
	setJWT := func(c *gin.Context) {
		c.Set(JWTTenantIDKey, jwtTenant)
		c.Next()
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/disputes", nil)
	req.Header.Set(TenantHeaderKey, uuid.NewString())
	rec := httptest.NewRecorder()

	tenantRouter(setJWT, TenantMiddleware()).ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), `"tenant":"`+jwtTenant+`"`)
}

func TestTenantMiddleware_Rejections(t *testing.T) {
	t.Run("missing tenant", func(t *testing.T) {
		rec := httptest.NewRecorder()
		tenantRouter(TenantMiddleware()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/disputes", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/disputes", nil)
		req.Header.Set(TenantHeaderKey, "acme")
		rec := httptest.NewRecorder()
		tenantRouter(TenantMiddleware()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid tenant ID format")
	})

	t.Run("header disabled", func(t *testing.T) {
		cfg := DefaultTenantConfig()
		cfg.HeaderEnabled = false
		req := httptest.NewRequest(http.MethodGet, "/api/v1/disputes", nil)
		req.Header.Set(TenantHeaderKey, uuid.NewString())
		rec := httptest.NewRecorder()
		tenantRouter(TenantMiddlewareWithConfig(cfg)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTenantMiddleware_SkipAndOptional(t *testing.T) {
	rec := httptest.NewRecorder()
	tenantRouter(TenantMiddleware()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	cfg := DefaultTenantConfig()
	cfg.Required = false
	rec = httptest.NewRecorder()
	tenantRouter(TenantMiddlewareWithConfig(cfg)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/disputes", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetTenantUUID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	id, err := GetTenantUUID(c)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)

	want := uuid.New()
	c.Set(TenantIDKey, want.String())
	id, err = GetTenantUUID(c)
	assert.NoError(t, err)
	assert.Equal(t, want, id)
}
