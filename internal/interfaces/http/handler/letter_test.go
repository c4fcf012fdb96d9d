package handler

import (
	"net/http"
	"testing"
	"time"

	feeapp "github.com/feeledger/backend/internal/application/fee"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLetterHandler_RecordSent_MovesDraftToSent(t *testing.T) {
	f := newAPIFixture(t)
	calc := storedFee(t, "10000", fee.FeeStatusDraft)
	f.fees.On("FindByIDForTenant", mock.Anything, testTenantID, calc.ID).Return(calc, nil)
	f.fees.On("SaveWithLock", mock.Anything, calc).Return(nil)
	f.letters.On("FindByFeeCalculation", mock.Anything, testTenantID, calc.ID).Return(nil, nil)
	f.letters.On("Save", mock.Anything, mock.AnythingOfType("*fee.LetterTracking")).Return(nil)

	w := f.do(t, http.MethodPost, "/api/v1/fee-calculations/"+calc.ID.String()+"/letter/sent", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[feeapp.LetterTrackingResponse](t, w)
	require.NotNil(t, env.Data.SentAt)
	assert.True(t, env.Data.SentAt.Equal(testNow))
	assert.Equal(t, fee.FeeStatusSent, calc.Status)
	f.letters.AssertExpectations(t)
}

func TestLetterHandler_RecordOpened_CountsOpens(t *testing.T) {
	f := newAPIFixture(t)
	calc := storedFee(t, "10000", fee.FeeStatusSent)
	first := testNow.Add(-time.Hour)
	tracking := fee.NewLetterTracking(testTenantID, calc.ID, calc.ClientID)
	tracking.MarkOpened(first)
	f.letters.On("FindByFeeCalculation", mock.Anything, testTenantID, calc.ID).Return(tracking, nil)
	f.letters.On("Save", mock.Anything, tracking).Return(nil)

	w := f.do(t, http.MethodPost, "/api/v1/fee-calculations/"+calc.ID.String()+"/letter/opened", map[string]any{
		"at": testNow,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[feeapp.LetterTrackingResponse](t, w)
	assert.Equal(t, 2, env.Data.OpenCount)
	require.NotNil(t, env.Data.OpenedAt)
	assert.True(t, env.Data.OpenedAt.Equal(first))
}

func TestLetterHandler_RecordOpened_UnknownFee(t *testing.T) {
	f := newAPIFixture(t)
	id := uuid.New()
	f.letters.On("FindByFeeCalculation", mock.Anything, testTenantID, id).Return(nil, nil)
	f.fees.On("FindByIDForTenant", mock.Anything, testTenantID, id).Return(nil, nil)

	w := f.do(t, http.MethodPost, "/api/v1/fee-calculations/"+id.String()+"/letter/opened", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	f.letters.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestLetterHandler_RecordMethodSelected(t *testing.T) {
	f := newAPIFixture(t)
	calc := storedFee(t, "10000", fee.FeeStatusSent)
	f.letters.On("FindByFeeCalculation", mock.Anything, testTenantID, calc.ID).Return(nil, nil)
	f.fees.On("FindByIDForTenant", mock.Anything, testTenantID, calc.ID).Return(calc, nil)
	f.letters.On("Save", mock.Anything, mock.AnythingOfType("*fee.LetterTracking")).Return(nil)

	w := f.do(t, http.MethodPost, "/api/v1/fee-calculations/"+calc.ID.String()+"/letter/method-selected", map[string]any{
		"payment_method": "credit_card_installments",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[feeapp.LetterTrackingResponse](t, w)
	require.NotNil(t, env.Data.PaymentMethodSelected)
	assert.Equal(t, fee.PaymentMethodCreditCardInstallments, *env.Data.PaymentMethodSelected)
	assert.Equal(t, 1, env.Data.OpenCount)
}

func TestLetterHandler_RecordMethodSelected_UnknownMethod(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/fee-calculations/"+uuid.NewString()+"/letter/method-selected", map[string]any{
		"payment_method": "barter",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorFields(decode[any](t, w)), "payment_method")
}

func TestLetterHandler_Get(t *testing.T) {
	f := newAPIFixture(t)
	calc := storedFee(t, "10000", fee.FeeStatusSent)
	missing := uuid.New()
	tracking := fee.NewLetterTracking(testTenantID, calc.ID, calc.ClientID)
	f.letters.On("FindByFeeCalculation", mock.Anything, testTenantID, calc.ID).Return(tracking, nil)
	f.letters.On("FindByFeeCalculation", mock.Anything, testTenantID, missing).Return(nil, nil)

	w := f.do(t, http.MethodGet, "/api/v1/fee-calculations/"+calc.ID.String()+"/letter", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, calc.ID, decode[feeapp.LetterTrackingResponse](t, w).Data.FeeCalculationID)

	w = f.do(t, http.MethodGet, "/api/v1/fee-calculations/"+missing.String()+"/letter", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
