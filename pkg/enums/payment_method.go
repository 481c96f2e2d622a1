package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod describes how a purchase payment was settled outside the platform.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodOther        PaymentMethod = "other"
)

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// ParsePaymentMethod accepts any casing and treats spaces and hyphens as
// underscores, so "Bank Transfer" parses as PaymentMethodBankTransfer.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if method := PaymentMethod(normalized); method.IsValid() {
		return method, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
