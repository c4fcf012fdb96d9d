package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	feeapp "github.com/feeledger/backend/internal/application/fee"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/cache"
	"github.com/feeledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testTenantID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testUserID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testNow      = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
)

func init() {
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

func fixedClock() time.Time { return testNow }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// apiFixture wires the real application services over mocked repositories
type apiFixture struct {
	engine      *gin.Engine
	fees        *MockFeeCalculationRepository
	payments    *MockPaymentRepository
	deviations  *MockDeviationRepository
	classifier  *MockDeviationClassifier
	disputes    *MockDisputeRepository
	letters     *MockLetterTrackingRepository
	collections *MockCollectionReadRepository
	rollups     *MockRollupReadRepository
	clients     *MockClientResolver
	audit       *MockAuditTrailReader
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		fees:        new(MockFeeCalculationRepository),
		payments:    new(MockPaymentRepository),
		deviations:  new(MockDeviationRepository),
		classifier:  new(MockDeviationClassifier),
		disputes:    new(MockDisputeRepository),
		letters:     new(MockLetterTrackingRepository),
		collections: new(MockCollectionReadRepository),
		rollups:     new(MockRollupReadRepository),
		clients:     new(MockClientResolver),
		audit:       new(MockAuditTrailReader),
	}

	feeSvc := feeapp.NewFeeCalculationService(f.fees, nil, nil, nil)
	feeSvc.SetClock(fixedClock)
	paymentSvc := feeapp.NewPaymentService(f.fees, f.payments, f.deviations, f.classifier, fee.DefaultVATRate, nil, nil)
	paymentSvc.SetClock(fixedClock)
	idempotency := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idempotency.Close() })
	paymentSvc.SetIdempotencyStore(idempotency, shared.DefaultIdempotencyConfig())
	collectionSvc := feeapp.NewCollectionService(f.collections, nil, feeapp.CollectionOptions{Locale: "en"}, nil)
	collectionSvc.SetClock(fixedClock)
	rollupSvc := feeapp.NewGroupRollupService(f.rollups, "en", nil)
	disputeSvc := feeapp.NewDisputeService(f.disputes, f.fees, nil, nil)
	disputeSvc.SetClock(fixedClock)
	letterSvc := feeapp.NewLetterTrackingService(f.letters, feeSvc, nil, nil)
	letterSvc.SetClock(fixedClock)

	fees := NewFeeCalculationHandler(feeSvc, f.clients)
	payments := NewPaymentHandler(paymentSvc)
	collections := NewCollectionHandler(collectionSvc, rollupSvc)
	collections.now = fixedClock
	disputes := NewDisputeHandler(disputeSvc)
	letters := NewLetterHandler(letterSvc)
	audit := NewAuditHandler(feeapp.NewAuditTrailService(f.audit))

	f.engine = gin.New()
	api := f.engine.Group("/api/v1")
	api.PUT("/clients/:clientRef/fee-calculations/:year", fees.CreateOrUpdate)
	api.GET("/fee-calculations", fees.List)
	api.POST("/fee-calculations/calculate", fees.Calculate)
	api.GET("/fee-calculations/:id", fees.Get)
	api.POST("/fee-calculations/:id/mark-paid", fees.MarkPaid)
	api.POST("/fee-calculations/:id/partial-payment", fees.MarkPartialPayment)
	api.POST("/fee-calculations/:id/payments", payments.Record)
	api.GET("/fee-calculations/:id/letter", letters.Get)
	api.POST("/fee-calculations/:id/letter/sent", letters.RecordSent)
	api.POST("/fee-calculations/:id/letter/opened", letters.RecordOpened)
	api.POST("/fee-calculations/:id/letter/method-selected", letters.RecordMethodSelected)
	api.GET("/payments/:id", payments.Get)
	api.PUT("/payments/:id", payments.Update)
	api.DELETE("/payments/:id", payments.Delete)
	api.GET("/collections/kpis", collections.GetKPIs)
	api.GET("/collections/dashboard", collections.GetDashboard)
	api.GET("/collections/dashboard/export", collections.ExportDashboard)
	api.GET("/collections/groups", collections.GetGroupRollup)
	api.POST("/disputes", disputes.Open)
	api.GET("/disputes", disputes.List)
	api.GET("/disputes/:id", disputes.Get)
	api.POST("/disputes/:id/resolve", disputes.Resolve)
	api.GET("/audit/:entityType/:id", audit.History)
	return f
}

// do sends a request as the test tenant and user. A nil body sends no body.
func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return f.doWithHeaders(t, method, path, body, nil)
}

// doWithHeaders is do with extra request headers
func (f *apiFixture) doWithHeaders(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := newJSONRequest(t, method, path, body)
	req.Header.Set(middleware.TenantHeaderKey, testTenantID.String())
	req.Header.Set(UserHeaderKey, testUserID.String())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// envelope decodes the standard response with a typed payload
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// errorFields lists the fields named in a validation error
func errorFields[T any](env envelope[T]) []string {
	if env.Error == nil {
		return nil
	}
	fields := make([]string, 0, len(env.Error.Details))
	for _, d := range env.Error.Details {
		fields = append(fields, d.Field)
	}
	return fields
}

// storedFee builds a persisted fee calculation computed from base at 3% inflation
func storedFee(t *testing.T, base string, status fee.FeeStatus) *fee.FeeCalculation {
	t.Helper()
	calc, err := fee.NewFeeCalculation(testTenantID, uuid.New(), 2025, testUserID)
	require.NoError(t, err)
	require.NoError(t, calc.Recalculate(fee.NewCalculator(fee.DefaultVATRate), fee.FeeParams{
		BaseAmount:           dec(base),
		ApplyInflationIndex:  true,
		InflationRatePercent: dec("3"),
	}, testNow))
	calc.Status = status
	return calc
}
