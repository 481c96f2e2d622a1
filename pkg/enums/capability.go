package enums

import "fmt"

// Capability names a permission a shop member may hold.
type Capability string

const (
	CapabilityAll                    Capability = "*"
	CapabilityManagePurchases        Capability = "manage_purchases"
	CapabilityApprovePurchases       Capability = "approve_purchases"
	CapabilityRecordPurchasePayments Capability = "record_purchase_payments"
	CapabilityTransferStock          Capability = "transfer_stock"
)

var validCapabilities = []Capability{
	CapabilityAll,
	CapabilityManagePurchases,
	CapabilityApprovePurchases,
	CapabilityRecordPurchasePayments,
	CapabilityTransferStock,
}

// String implements fmt.Stringer.
func (c Capability) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Capability.
func (c Capability) IsValid() bool {
	for _, candidate := range validCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCapability converts raw input into a Capability.
func ParseCapability(value string) (Capability, error) {
	for _, candidate := range validCapabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capability %q", value)
}
