package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentBody struct {
	AmountPaid    decimal.Decimal  `json:"amount_paid" binding:"decimal_positive"`
	Discount      *decimal.Decimal `json:"discount" binding:"omitempty,decimal_nonneg"`
	PaymentMethod string           `json:"payment_method" binding:"required,payment_method"`
}

func validationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	require.NoError(t, SetupValidator())

	router := gin.New()
	router.Use(RequestID())
	router.POST("/payments", func(c *gin.Context) {
		var req paymentBody
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleValidationError(t *testing.T) {
	router := validationRouter(t)

	t.Run("valid body", func(t *testing.T) {
		rec := postJSON(router, `{"amount_paid":"1180.00","discount":"0","payment_method":"bank_transfer"}`)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("invalid fields reported by json name", func(t *testing.T) {
		rec := postJSON(router, `{"amount_paid":"0","discount":"-5","payment_method":"barter"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, rec.Header().Get(RequestIDHeader), resp.Error.RequestID)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "Must be a positive amount", fields["amount_paid"])
		assert.Equal(t, "Must be a non-negative amount", fields["discount"])
		assert.Equal(t, "Unknown payment method", fields["payment_method"])
	})

	t.Run("missing required field", func(t *testing.T) {
		rec := postJSON(router, `{"amount_paid":"10"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "This field is required")
	})
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	resp := FormatValidationErrors(assert.AnError, "req-1")
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestValidationMessage(t *testing.T) {
	type sample struct {
		Name   string `json:"name" validate:"min=3"`
		Status string `json:"status" validate:"oneof=open invalid"`
		Year   int    `json:"year" validate:"gte=2000"`
	}
	v := validator.New()
	require.NoError(t, RegisterValidations(v))

	err := v.Struct(sample{Name: "ab", Status: "x", Year: 1999})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	got := map[string]string{}
	for _, e := range verrs {
		got[e.Field()] = validationMessage(e)
	}
	assert.Equal(t, "Must be at least 3 characters", got["name"])
	assert.Equal(t, "Must be one of: open invalid", got["status"])
	assert.Equal(t, "Must be greater than or equal to 2000", got["year"])
}
