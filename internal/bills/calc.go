package bills

import (
	"github.com/shopspring/decimal"

	"github.com/bananabill/backend/pkg/config"
	apperrors "github.com/bananabill/backend/pkg/errors"
)

// CalcInput carries the raw weighment and pricing figures for one bill.
type CalcInput struct {
	GrossWeight decimal.Decimal
	PattiWeight decimal.Decimal
	BoxCount    int
	TutWastage  decimal.Decimal
	RatePerKg   decimal.Decimal
	Majuri      decimal.Decimal
}

// CalcResult holds every derived figure of the weighment formula.
type CalcResult struct {
	BaseNetWeight    decimal.Decimal
	DandaWeight      decimal.Decimal
	ChargeableWeight decimal.Decimal
	TotalAmount      decimal.Decimal
	NetAmount        decimal.Decimal
}

// Calculator derives bill amounts from weighment inputs. The pipeline is
// pure: same input and config always produce the same result.
type Calculator struct {
	cfg config.BillingConfig
}

// NewCalculator builds a calculator with the given billing constants.
func NewCalculator(cfg config.BillingConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate runs the five-step pipeline:
//
//	base net   = max(0, gross - patti - boxes*boxWeight)
//	danda      = round(base net * dandaRate)
//	chargeable = base net + danda + tut
//	total      = round(chargeable * rate)
//	net        = max(0, total - majuri)
//
// Tut wastage is added to the chargeable weight, not subtracted. That is
// the trading house rule: tut is weighed separately and still billed.
// Rounding is half-up at the configured scales.
func (c *Calculator) Calculate(in CalcInput) (CalcResult, error) {
	if err := c.validate(in); err != nil {
		return CalcResult{}, err
	}

	boxWeight := c.cfg.BoxWeightKg.Mul(decimal.NewFromInt(int64(in.BoxCount)))
	baseNet := in.GrossWeight.Sub(in.PattiWeight).Sub(boxWeight)
	if baseNet.IsNegative() {
		baseNet = decimal.Zero
	}
	baseNet = baseNet.Round(c.cfg.WeightScale)

	danda := baseNet.Mul(c.cfg.DandaRate).Round(c.cfg.WeightScale)
	chargeable := baseNet.Add(danda).Add(in.TutWastage).Round(c.cfg.WeightScale)

	total := chargeable.Mul(in.RatePerKg).Round(c.cfg.MoneyScale)
	net := total.Sub(in.Majuri)
	if net.IsNegative() {
		net = decimal.Zero
	}
	net = net.Round(c.cfg.MoneyScale)

	return CalcResult{
		BaseNetWeight:    baseNet,
		DandaWeight:      danda,
		ChargeableWeight: chargeable,
		TotalAmount:      total,
		NetAmount:        net,
	}, nil
}

func (c *Calculator) validate(in CalcInput) error {
	switch {
	case in.GrossWeight.IsZero() || in.GrossWeight.IsNegative():
		return apperrors.New(apperrors.CodeValidation, "gross weight must be positive")
	case in.PattiWeight.IsNegative():
		return apperrors.New(apperrors.CodeValidation, "patti weight must not be negative")
	case in.BoxCount < 0:
		return apperrors.New(apperrors.CodeValidation, "box count must not be negative")
	case in.TutWastage.IsNegative():
		return apperrors.New(apperrors.CodeValidation, "tut wastage must not be negative")
	case in.RatePerKg.IsZero() || in.RatePerKg.IsNegative():
		return apperrors.New(apperrors.CodeValidation, "rate per kg must be positive")
	case in.Majuri.IsNegative():
		return apperrors.New(apperrors.CodeValidation, "majuri must not be negative")
	}
	return nil
}
