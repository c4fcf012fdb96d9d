package fee

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func TestCalculator_Calculate_Examples(t *testing.T) {
	calc := NewCalculator(DefaultVATRate)

	t.Run("inflation applied", func(t *testing.T) {
		result, err := calc.Calculate(CalculationInput{
			BaseAmount:           d("10000"),
			InflationRatePercent: d("3"),
			ApplyInflationIndex:  true,
		})
		require.NoError(t, err)
		assert.True(t, result.InflationAdjustment.Equal(d("300")))
		assert.True(t, result.FinalAmount.Equal(d("10300")))
		assert.True(t, result.VATAmount.Equal(d("1854")))
		assert.True(t, result.TotalWithVAT.Equal(d("12154")))
	})

	t.Run("client discount", func(t *testing.T) {
		result, err := calc.Calculate(CalculationInput{
			BaseAmount:                d("10000"),
			InflationRatePercent:      d("3"),
			ApplyInflationIndex:       true,
			ClientRequestedAdjustment: d("-500"),
		})
		require.NoError(t, err)
		assert.True(t, result.FinalAmount.Equal(d("9800")))
		assert.True(t, result.VATAmount.Equal(d("1764")))
		assert.True(t, result.TotalWithVAT.Equal(d("11564")))
	})
}

func TestCalculator_Calculate_InflationDisabledIgnoresIndex(t *testing.T) {
	calc := NewCalculator(DefaultVATRate)

	result, err := calc.Calculate(CalculationInput{
		BaseAmount:            d("10000"),
		InflationRatePercent:  d("3"),
		ApplyInflationIndex:   false,
		IndexManualAdjustment: d("250"),
		RealAdjustment:        d("100"),
	})
	require.NoError(t, err)
	assert.True(t, result.InflationAdjustment.IsZero())
	assert.True(t, result.IndexManualAdjustment.IsZero())
	assert.True(t, result.FinalAmount.Equal(d("10100")))
}

func TestCalculator_Calculate_ManualIndexAddsToAutomatic(t *testing.T) {
	calc := NewCalculator(DefaultVATRate)

	result, err := calc.Calculate(CalculationInput{
		BaseAmount:            d("10000"),
		InflationRatePercent:  d("3"),
		ApplyInflationIndex:   true,
		IndexManualAdjustment: d("-50"),
	})
	require.NoError(t, err)
	assert.True(t, result.InflationAuto.Equal(d("300")))
	assert.True(t, result.InflationAdjustment.Equal(d("250")))
	assert.True(t, result.FinalAmount.Equal(d("10250")))
}

func TestCalculator_Calculate_CeilsEveryStep(t *testing.T) {
	calc := NewCalculator(DefaultVATRate)

	// 1234 * 2.5% = 30.85 -> 31; 1234 + 31 + 0.2 = 1265.2 -> 1266; 1266 * 0.18 = 227.88 -> 228
	result, err := calc.Calculate(CalculationInput{
		BaseAmount:           d("1234"),
		InflationRatePercent: d("2.5"),
		ApplyInflationIndex:  true,
		RealAdjustment:       d("0.2"),
	})
	require.NoError(t, err)
	assert.True(t, result.InflationAuto.Equal(d("31")))
	assert.True(t, result.AdjustedAmount.Equal(d("1266")))
	assert.True(t, result.VATAmount.Equal(d("228")))
	assert.True(t, result.TotalWithVAT.Equal(d("1494")))
}

func TestCalculator_Calculate_VATIsCeilingOfFinal(t *testing.T) {
	calc := NewCalculator(DefaultVATRate)

	for _, base := range []string{"0", "1", "7", "99", "1001", "12345", "99999"} {
		t.Run(base, func(t *testing.T) {
			result, err := calc.Calculate(CalculationInput{BaseAmount: d(base)})
			require.NoError(t, err)
			assert.True(t, result.VATAmount.Equal(result.FinalAmount.Mul(DefaultVATRate).Ceil()))
			assert.True(t, result.TotalWithVAT.GreaterThanOrEqual(result.FinalAmount))
		})
	}
}

func TestCalculator_Calculate_ClientAdjustmentGuard(t *testing.T) {
	calc := NewCalculator(DefaultVATRate)

	_, err := calc.Calculate(CalculationInput{
		BaseAmount:                d("10000"),
		ClientRequestedAdjustment: d("1"),
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	for _, adj := range []string{"0", "-1", "-10000"} {
		_, err := calc.Calculate(CalculationInput{
			BaseAmount:                d("10000"),
			ClientRequestedAdjustment: d(adj),
		})
		assert.NoError(t, err, "adjustment %s", adj)
	}
}

func TestCalculator_Calculate_Deterministic(t *testing.T) {
	calc := NewCalculator(DefaultVATRate)
	in := CalculationInput{
		BaseAmount:                d("8765.43"),
		InflationRatePercent:      d("3.7"),
		ApplyInflationIndex:       true,
		IndexManualAdjustment:     d("12.5"),
		RealAdjustment:            d("-40"),
		ClientRequestedAdjustment: d("-15.25"),
		PreviousYearTotalWithVAT:  dp("10000"),
	}

	first, err := calc.Calculate(in)
	require.NoError(t, err)
	second, err := calc.Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculator_Calculate_YearOverYear(t *testing.T) {
	calc := NewCalculator(DefaultVATRate)

	t.Run("with previous year", func(t *testing.T) {
		result, err := calc.Calculate(CalculationInput{
			BaseAmount:               d("10000"),
			InflationRatePercent:     d("3"),
			ApplyInflationIndex:      true,
			PreviousYearTotalWithVAT: dp("11800"),
		})
		require.NoError(t, err)
		assert.True(t, result.YearOverYearChangeAmount.Equal(d("354")))
		assert.True(t, result.YearOverYearChangePercent.Equal(d("3")))
	})

	t.Run("without previous year", func(t *testing.T) {
		result, err := calc.Calculate(CalculationInput{BaseAmount: d("10000")})
		require.NoError(t, err)
		assert.True(t, result.YearOverYearChangeAmount.IsZero())
		assert.True(t, result.YearOverYearChangePercent.IsZero())
	})

	t.Run("zero previous year", func(t *testing.T) {
		result, err := calc.Calculate(CalculationInput{
			BaseAmount:               d("10000"),
			PreviousYearTotalWithVAT: dp("0"),
		})
		require.NoError(t, err)
		assert.True(t, result.YearOverYearChangeAmount.IsZero())
	})
}

func TestCalculator_DiscountFieldsAlwaysZero(t *testing.T) {
	calc := NewCalculator(DefaultVATRate)

	result, err := calc.Calculate(CalculationInput{
		BaseAmount:                d("5000"),
		ClientRequestedAdjustment: d("-100"),
	})
	require.NoError(t, err)
	assert.True(t, result.DiscountAmount.IsZero())
	assert.True(t, result.DiscountPercentage.IsZero())
	assert.True(t, result.AmountAfterDiscount.Equal(result.FinalAmount))
}

func TestNewCalculator_FallsBackToDefaultRate(t *testing.T) {
	assert.True(t, NewCalculator(decimal.Zero).VATRate().Equal(DefaultVATRate))
	assert.True(t, NewCalculator(d("0.17")).VATRate().Equal(d("0.17")))
}

func TestReverseVAT(t *testing.T) {
	tests := []struct {
		name      string
		paid      string
		beforeVAT string
		vat       string
		withVAT   string
	}{
		{"evenly divisible", "11800", "10000.00", "1800.00", "11800.00"},
		{"rounds half up to cents", "100", "84.75", "15.26", "100.01"},
		{"small amount", "1", "0.85", "0.15", "1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ReverseVAT(d(tt.paid), DefaultVATRate)
			assert.True(t, b.BeforeVAT.Equal(d(tt.beforeVAT)), "before vat %s", b.BeforeVAT)
			assert.True(t, b.VAT.Equal(d(tt.vat)), "vat %s", b.VAT)
			assert.True(t, b.WithVAT.Equal(d(tt.withVAT)), "with vat %s", b.WithVAT)
		})
	}
}
