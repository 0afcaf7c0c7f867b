package enums

import "fmt"

// PaymentType classifies a payment history entry.
type PaymentType string

const (
	PaymentTypePayment     PaymentType = "PAYMENT"
	PaymentTypeRefund      PaymentType = "REFUND"
	PaymentTypeAdjustment  PaymentType = "ADJUSTMENT"
	PaymentTypeAdvanceUsed PaymentType = "ADVANCE_USED"
)

var validPaymentTypes = []PaymentType{
	PaymentTypePayment,
	PaymentTypeRefund,
	PaymentTypeAdjustment,
	PaymentTypeAdvanceUsed,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
