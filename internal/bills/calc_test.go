package bills

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bananabill/backend/pkg/config"
	apperrors "github.com/bananabill/backend/pkg/errors"
)

func defaultBillingConfig() config.BillingConfig {
	return config.BillingConfig{
		BoxWeightKg:      decimal.RequireFromString("1.0"),
		DandaRate:        decimal.RequireFromString("0.07"),
		WeightScale:      2,
		MoneyScale:       2,
		MaxBillsPerMonth: 99999,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateWorkedExample(t *testing.T) {
	calc := NewCalculator(defaultBillingConfig())

	got, err := calc.Calculate(CalcInput{
		GrossWeight: dec("100.00"),
		PattiWeight: dec("5.00"),
		BoxCount:    10,
		TutWastage:  dec("2.00"),
		RatePerKg:   dec("50.00"),
		Majuri:      dec("500.00"),
	})
	require.NoError(t, err)

	require.True(t, got.BaseNetWeight.Equal(dec("85.00")), "base net %s", got.BaseNetWeight)
	require.True(t, got.DandaWeight.Equal(dec("5.95")), "danda %s", got.DandaWeight)
	require.True(t, got.ChargeableWeight.Equal(dec("92.95")), "chargeable %s", got.ChargeableWeight)
	require.True(t, got.TotalAmount.Equal(dec("4647.50")), "total %s", got.TotalAmount)
	require.True(t, got.NetAmount.Equal(dec("4147.50")), "net %s", got.NetAmount)
}

func TestCalculateTutAddsToChargeableWeight(t *testing.T) {
	calc := NewCalculator(defaultBillingConfig())

	withoutTut, err := calc.Calculate(CalcInput{
		GrossWeight: dec("100.00"),
		PattiWeight: dec("5.00"),
		BoxCount:    10,
		TutWastage:  decimal.Zero,
		RatePerKg:   dec("50.00"),
	})
	require.NoError(t, err)

	withTut, err := calc.Calculate(CalcInput{
		GrossWeight: dec("100.00"),
		PattiWeight: dec("5.00"),
		BoxCount:    10,
		TutWastage:  dec("2.00"),
		RatePerKg:   dec("50.00"),
	})
	require.NoError(t, err)

	diff := withTut.ChargeableWeight.Sub(withoutTut.ChargeableWeight)
	require.True(t, diff.Equal(dec("2.00")), "tut must increase chargeable weight, diff %s", diff)
	require.True(t, withTut.TotalAmount.GreaterThan(withoutTut.TotalAmount))
}

func TestCalculateClampsNegativeBaseNet(t *testing.T) {
	calc := NewCalculator(defaultBillingConfig())

	got, err := calc.Calculate(CalcInput{
		GrossWeight: dec("5.00"),
		PattiWeight: dec("3.00"),
		BoxCount:    10,
		TutWastage:  dec("1.00"),
		RatePerKg:   dec("40.00"),
	})
	require.NoError(t, err)

	require.True(t, got.BaseNetWeight.IsZero(), "base net clamps to zero, got %s", got.BaseNetWeight)
	require.True(t, got.DandaWeight.IsZero())
	// Tut is still chargeable even when the base net collapses.
	require.True(t, got.ChargeableWeight.Equal(dec("1.00")))
	require.True(t, got.TotalAmount.Equal(dec("40.00")))
}

func TestCalculateClampsNegativeNetAmount(t *testing.T) {
	calc := NewCalculator(defaultBillingConfig())

	got, err := calc.Calculate(CalcInput{
		GrossWeight: dec("10.00"),
		PattiWeight: dec("1.00"),
		BoxCount:    2,
		RatePerKg:   dec("10.00"),
		Majuri:      dec("500.00"),
	})
	require.NoError(t, err)
	require.True(t, got.NetAmount.IsZero(), "net amount clamps to zero, got %s", got.NetAmount)
	require.True(t, got.TotalAmount.GreaterThan(decimal.Zero))
}

func TestCalculateHalfUpRounding(t *testing.T) {
	cfg := defaultBillingConfig()
	calc := NewCalculator(cfg)

	// base net 2.50 * 0.07 = 0.175, the exact half rounds up to 0.18.
	got, err := calc.Calculate(CalcInput{
		GrossWeight: dec("2.50"),
		RatePerKg:   dec("1.00"),
	})
	require.NoError(t, err)
	require.True(t, got.DandaWeight.Equal(dec("0.18")), "expected half-up danda, got %s", got.DandaWeight)
}

func TestCalculateDeterministic(t *testing.T) {
	calc := NewCalculator(defaultBillingConfig())
	in := CalcInput{
		GrossWeight: dec("873.42"),
		PattiWeight: dec("12.18"),
		BoxCount:    37,
		TutWastage:  dec("4.50"),
		RatePerKg:   dec("47.25"),
		Majuri:      dec("1200.00"),
	}

	first, err := calc.Calculate(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := calc.Calculate(in)
		require.NoError(t, err)
		require.True(t, first.NetAmount.Equal(again.NetAmount))
		require.True(t, first.ChargeableWeight.Equal(again.ChargeableWeight))
	}
}

func TestCalculateValidation(t *testing.T) {
	calc := NewCalculator(defaultBillingConfig())

	cases := []struct {
		name string
		in   CalcInput
	}{
		{"zero gross", CalcInput{RatePerKg: dec("10.00")}},
		{"negative gross", CalcInput{GrossWeight: dec("-1.00"), RatePerKg: dec("10.00")}},
		{"negative patti", CalcInput{GrossWeight: dec("10.00"), PattiWeight: dec("-1.00"), RatePerKg: dec("10.00")}},
		{"negative boxes", CalcInput{GrossWeight: dec("10.00"), BoxCount: -1, RatePerKg: dec("10.00")}},
		{"negative tut", CalcInput{GrossWeight: dec("10.00"), TutWastage: dec("-1.00"), RatePerKg: dec("10.00")}},
		{"zero rate", CalcInput{GrossWeight: dec("10.00")}},
		{"negative majuri", CalcInput{GrossWeight: dec("10.00"), RatePerKg: dec("10.00"), Majuri: dec("-1.00")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := calc.Calculate(tc.in)
			require.Error(t, err)
			require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
		})
	}
}
