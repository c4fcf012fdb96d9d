package handler

import (
	"errors"
	"net/http"

	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/logger"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/feeledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserHeaderKey carries the acting user when no JWT claim is present
const UserHeaderKey = "X-User-ID"

var (
	errMissingTenant = errors.New("tenant ID not found in context")
	errMissingUser   = errors.New("user ID not found in context")
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getTenantID returns the tenant resolved by the tenant middleware, falling
// back to the JWT claim and the X-Tenant-ID header.
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	for _, candidate := range []string{
		middleware.GetTenantID(c),
		middleware.GetJWTTenantID(c),
		c.GetHeader(middleware.TenantHeaderKey),
	} {
		if candidate != "" {
			return uuid.Parse(candidate)
		}
	}
	return uuid.Nil, errMissingTenant
}

// getUserID extracts user ID from JWT claims, falling back to X-User-ID
func getUserID(c *gin.Context) (uuid.UUID, error) {
	userID := middleware.GetJWTUserID(c)
	if userID == "" {
		userID = c.GetHeader(UserHeaderKey)
	}
	if userID == "" {
		return uuid.Nil, errMissingUser
	}
	return uuid.Parse(userID)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, message string, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(message, getRequestID(c), details))
}

// requestScope resolves tenant and, when needUser is set, the acting user.
// It writes a 401 and returns false when either is missing or malformed.
func (h *BaseHandler) requestScope(c *gin.Context, needUser bool) (tenantID, userID uuid.UUID, ok bool) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Tenant identification required")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = getUserID(c)
	if err != nil && needUser {
		h.Unauthorized(c, "User identification required")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, userID, true
}

// uuidParam parses a UUID path parameter, answering 400 when it is malformed
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.ValidationError(c, "Invalid "+name, []dto.ValidationDetail{{Field: name, Message: "Invalid UUID format"}})
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds the request body, answering 400 on malformed JSON or
// failed validation
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	return h.bind(c, c.ShouldBindJSON(req))
}

// bindQuery binds query parameters like bindJSON does the body
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	return h.bind(c, c.ShouldBindQuery(req))
}

func (h *BaseHandler) bind(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		middleware.HandleValidationError(c, err)
		return false
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request: "+err.Error())
	return false
}

// HandleDomainError converts domain errors to HTTP responses. Validation
// errors keep their field; storage failures are logged and hidden.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var validationErr *fee.ValidationError
	if errors.As(err, &validationErr) {
		code := dto.NormalizeErrorCode(validationErr.Code)
		resp := dto.NewErrorResponseWithRequestID(code, validationErr.Message, requestID)
		if validationErr.Field != "" {
			resp.Error.Details = []dto.ValidationDetail{{Field: validationErr.Field, Message: validationErr.Message}}
		}
		c.JSON(dto.GetHTTPStatus(code), resp)
		return
	}

	if fee.IsPersistenceError(err) {
		logger.GetGinLogger(c).Error("Persistence failure", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodePersistence, "The change could not be saved")
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
		}
		c.JSON(status, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	logger.GetGinLogger(c).Error("Unexpected error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}
