package purchaseorders

import "github.com/shopbridge/shopbridge-backend/pkg/enums"

// transitionRule names who may take an edge. An empty capability means any
// active member of the acting shop.
type transitionRule struct {
	party      enums.OrderParty
	capability enums.Capability
}

var transitions = map[enums.PurchaseOrderStatus]map[enums.PurchaseOrderStatus]transitionRule{
	enums.PurchaseOrderStatusPending: {
		enums.PurchaseOrderStatusApproved:  {party: enums.OrderPartySeller, capability: enums.CapabilityApprovePurchases},
		enums.PurchaseOrderStatusRejected:  {party: enums.OrderPartySeller, capability: enums.CapabilityApprovePurchases},
		enums.PurchaseOrderStatusCancelled: {party: enums.OrderPartyAny},
	},
	enums.PurchaseOrderStatusApproved: {
		enums.PurchaseOrderStatusCancelled: {party: enums.OrderPartyAny},
		enums.PurchaseOrderStatusCompleted: {party: enums.OrderPartyBuyer},
	},
}

// display order for AllowedTargets
var statusOrder = []enums.PurchaseOrderStatus{
	enums.PurchaseOrderStatusApproved,
	enums.PurchaseOrderStatusRejected,
	enums.PurchaseOrderStatusCompleted,
	enums.PurchaseOrderStatusCancelled,
}

func ruleFor(from, to enums.PurchaseOrderStatus) (transitionRule, bool) {
	rule, ok := transitions[from][to]
	return rule, ok
}

// CanTransition reports whether the table has an edge from -> to.
func CanTransition(from, to enums.PurchaseOrderStatus) bool {
	_, ok := ruleFor(from, to)
	return ok
}

// AllowedTargets lists the statuses reachable from the given one.
func AllowedTargets(from enums.PurchaseOrderStatus) []enums.PurchaseOrderStatus {
	out := make([]enums.PurchaseOrderStatus, 0, 3)
	for _, to := range statusOrder {
		if CanTransition(from, to) {
			out = append(out, to)
		}
	}
	return out
}

// AllowedTargetsFor lists the statuses the given party may move the order to.
func AllowedTargetsFor(from enums.PurchaseOrderStatus, party enums.OrderParty) []enums.PurchaseOrderStatus {
	out := make([]enums.PurchaseOrderStatus, 0, 3)
	for _, to := range statusOrder {
		rule, ok := ruleFor(from, to)
		if ok && rule.permits(party) {
			out = append(out, to)
		}
	}
	return out
}

func (r transitionRule) permits(party enums.OrderParty) bool {
	return r.party == enums.OrderPartyAny || r.party == party
}
