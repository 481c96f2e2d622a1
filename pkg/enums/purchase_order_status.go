package enums

import "fmt"

// PurchaseOrderStatus tracks the lifecycle of a cross-shop purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending   PurchaseOrderStatus = "pending"
	PurchaseOrderStatusApproved  PurchaseOrderStatus = "approved"
	PurchaseOrderStatusRejected  PurchaseOrderStatus = "rejected"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "cancelled"
	PurchaseOrderStatusCompleted PurchaseOrderStatus = "completed"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusPending,
	PurchaseOrderStatusApproved,
	PurchaseOrderStatusRejected,
	PurchaseOrderStatusCancelled,
	PurchaseOrderStatusCompleted,
}

// String implements fmt.Stringer.
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}

// IsTerminal reports whether no further transition can leave the status.
func (s PurchaseOrderStatus) IsTerminal() bool {
	switch s {
	case PurchaseOrderStatusRejected, PurchaseOrderStatusCancelled, PurchaseOrderStatusCompleted:
		return true
	default:
		return false
	}
}
