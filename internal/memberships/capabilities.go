package memberships

import "github.com/shopbridge/shopbridge-backend/pkg/enums"

// roleCapabilities are the grants every member of a role receives before
// explicit permissions are added.
var roleCapabilities = map[enums.MemberRole][]enums.Capability{
	enums.MemberRoleOwner: {enums.CapabilityAll},
	enums.MemberRoleManager: {
		enums.CapabilityManagePurchases,
		enums.CapabilityApprovePurchases,
		enums.CapabilityRecordPurchasePayments,
		enums.CapabilityTransferStock,
	},
	enums.MemberRoleCashier:    {enums.CapabilityRecordPurchasePayments},
	enums.MemberRoleStockClerk: {enums.CapabilityTransferStock},
	enums.MemberRoleViewer:     {},
}

// Grants returns the effective capability set of a role plus its explicit
// permissions. Unknown permission strings are ignored.
func Grants(role enums.MemberRole, permissions []string) map[enums.Capability]struct{} {
	out := make(map[enums.Capability]struct{})
	for _, capability := range roleCapabilities[role] {
		out[capability] = struct{}{}
	}
	for _, raw := range permissions {
		capability, err := enums.ParseCapability(raw)
		if err != nil {
			continue
		}
		out[capability] = struct{}{}
	}
	return out
}

// Allows reports whether the grant set covers the capability.
func Allows(grants map[enums.Capability]struct{}, capability enums.Capability) bool {
	if _, ok := grants[enums.CapabilityAll]; ok {
		return true
	}
	_, ok := grants[capability]
	return ok
}
