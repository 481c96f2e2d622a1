package enums

// MemberRole is a shop-level role. Capabilities per role live in
// internal/memberships.
type MemberRole string

const (
	MemberRoleOwner      MemberRole = "owner"
	MemberRoleManager    MemberRole = "manager"
	MemberRoleCashier    MemberRole = "cashier"
	MemberRoleStockClerk MemberRole = "stock_clerk"
	MemberRoleViewer     MemberRole = "viewer"
)

func (m MemberRole) String() string {
	return string(m)
}

func (m MemberRole) IsValid() bool {
	switch m {
	case MemberRoleOwner, MemberRoleManager, MemberRoleCashier, MemberRoleStockClerk, MemberRoleViewer:
		return true
	default:
		return false
	}
}
