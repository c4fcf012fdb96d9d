package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/feeledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*gin.Context)
		want  string
	}{
		{
			name:  "from context",
			setup: func(c *gin.Context) { c.Set(middleware.RequestIDKey, "ctx-id") },
			want:  "ctx-id",
		},
		{
			name:  "from header",
			setup: func(c *gin.Context) { c.Request.Header.Set(middleware.RequestIDHeader, "header-id") },
			want:  "header-id",
		},
		{
			name: "context wins",
			setup: func(c *gin.Context) {
				c.Set(middleware.RequestIDKey, "ctx-id")
				c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
			},
			want: "ctx-id",
		},
		{name: "unset", setup: func(*gin.Context) {}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/")
			tt.setup(c)
			assert.Equal(t, tt.want, getRequestID(c))
		})
	}
}

func TestGetTenantID(t *testing.T) {
	resolved := uuid.New()
	claim := uuid.New()
	header := uuid.New()

	tests := []struct {
		name    string
		setup   func(*gin.Context)
		want    uuid.UUID
		wantErr bool
	}{
		{
			name: "middleware value wins",
			setup: func(c *gin.Context) {
				c.Set(middleware.TenantIDKey, resolved.String())
				c.Set(middleware.JWTTenantIDKey, claim.String())
				c.Request.Header.Set(middleware.TenantHeaderKey, header.String())
			},
			want: resolved,
		},
		{
			name: "claim before header",
			setup: func(c *gin.Context) {
				c.Set(middleware.JWTTenantIDKey, claim.String())
				c.Request.Header.Set(middleware.TenantHeaderKey, header.String())
			},
			want: claim,
		},
		{
			name:  "header",
			setup: func(c *gin.Context) { c.Request.Header.Set(middleware.TenantHeaderKey, header.String()) },
			want:  header,
		},
		{
			name:    "malformed",
			setup:   func(c *gin.Context) { c.Request.Header.Set(middleware.TenantHeaderKey, "acme") },
			wantErr: true,
		},
		{name: "missing", setup: func(*gin.Context) {}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/")
			tt.setup(c)
			got, err := getTenantID(c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetUserID(t *testing.T) {
	claim := uuid.New()
	header := uuid.New()

	c, _ := newTestContext(http.MethodGet, "/")
	c.Set(middleware.JWTUserIDKey, claim.String())
	c.Request.Header.Set(UserHeaderKey, header.String())
	got, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, claim, got)

	c, _ = newTestContext(http.MethodGet, "/")
	c.Request.Header.Set(UserHeaderKey, header.String())
	got, err = getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, header, got)

	c, _ = newTestContext(http.MethodGet, "/")
	_, err = getUserID(c)
	assert.ErrorIs(t, err, errMissingUser)
}

func TestBaseHandler_RequestScope(t *testing.T) {
	h := &BaseHandler{}
	tenantID := uuid.New()

	t.Run("missing tenant answers 401", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		_, _, ok := h.requestScope(c, false)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeResponse(t, w).Error.Code)
	})

	t.Run("user optional", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/")
		c.Request.Header.Set(middleware.TenantHeaderKey, tenantID.String())
		gotTenant, gotUser, ok := h.requestScope(c, false)
		assert.True(t, ok)
		assert.Equal(t, tenantID, gotTenant)
		assert.Equal(t, uuid.Nil, gotUser)
	})

	t.Run("user required", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		c.Request.Header.Set(middleware.TenantHeaderKey, tenantID.String())
		_, _, ok := h.requestScope(c, true)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestBaseHandler_UUIDParam(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext(http.MethodGet, "/")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	_, ok := h.uuidParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "id", resp.Error.Details[0].Field)

	id := uuid.New()
	c, _ = newTestContext(http.MethodGet, "/")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := h.uuidParam(c, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestBaseHandler_Responses(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext(http.MethodGet, "/")
	h.Success(c, map[string]string{"k": "v"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)

	c, w = newTestContext(http.MethodGet, "/")
	h.SuccessWithMeta(c, []int{1, 2}, 45, 2, 20)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	c, w = newTestContext(http.MethodPost, "/")
	h.Created(c, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newTestContext(http.MethodDelete, "/")
	h.NoContent(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)

	c, w = newTestContext(http.MethodGet, "/")
	c.Set(middleware.RequestIDKey, "req-1")
	h.NotFound(c, "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp = decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}

func TestBaseHandler_HandleDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{
			name:       "not found",
			err:        shared.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("load fee: %w", shared.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
		},
		{
			name:       "client adjustment positive keeps its field",
			err:        fee.NewValidationError(fee.CodeClientAdjustmentPositive, "client_requested_adjustment", "must not be positive"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeClientAdjustmentPositive,
			wantField:  "client_requested_adjustment",
		},
		{
			name:       "plain validation",
			err:        fee.NewValidationError(fee.CodeValidation, "tax_year", "out of range"),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
			wantField:  "tax_year",
		},
		{
			name:       "invalid state",
			err:        shared.ErrInvalidState,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeInvalidState,
		},
		{
			name:       "concurrency conflict",
			err:        shared.ErrConcurrencyConflict,
			wantStatus: http.StatusConflict,
			wantCode:   dto.ErrCodeConcurrencyConflict,
		},
		{
			name:       "persistence hidden",
			err:        fee.NewPersistenceError("save payment", errors.New("pq: deadlock detected")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodePersistence,
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext(http.MethodGet, "/")
			h.HandleDomainError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "deadlock")
			if tt.wantField != "" {
				require.Len(t, resp.Error.Details, 1)
				assert.Equal(t, tt.wantField, resp.Error.Details[0].Field)
			}
		})
	}
}

func TestBaseHandler_Bind(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodPost, "/")
	assert.False(t, h.bind(c, errors.New("unexpected EOF")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w).Error.Code)

	c, _ = newTestContext(http.MethodPost, "/")
	assert.True(t, h.bind(c, nil))
}
