package enums

import "fmt"

// OrderParty selects which side of a purchase order the acting shop is on.
type OrderParty string

const (
	OrderPartyBuyer  OrderParty = "buyer"
	OrderPartySeller OrderParty = "seller"
	OrderPartyAny    OrderParty = "any"
)

var validOrderParties = []OrderParty{
	OrderPartyBuyer,
	OrderPartySeller,
	OrderPartyAny,
}

// String implements fmt.Stringer.
func (p OrderParty) String() string {
	return string(p)
}

// IsValid reports whether the value is a known OrderParty.
func (p OrderParty) IsValid() bool {
	for _, candidate := range validOrderParties {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseOrderParty converts raw input into a OrderParty.
func ParseOrderParty(value string) (OrderParty, error) {
	for _, candidate := range validOrderParties {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order party %q", value)
}
