package enums

import "fmt"

// MembershipStatus is where a user's membership of a shop stands. Only
// active memberships carry the role's capabilities; invited users have not
// accepted yet and removed users keep their row for audit.
type MembershipStatus string

const (
	MembershipStatusInvited MembershipStatus = "invited"
	MembershipStatusActive  MembershipStatus = "active"
	MembershipStatusRemoved MembershipStatus = "removed"
)

func (m MembershipStatus) String() string {
	return string(m)
}

func (m MembershipStatus) IsValid() bool {
	switch m {
	case MembershipStatusInvited, MembershipStatusActive, MembershipStatusRemoved:
		return true
	}
	return false
}

// GrantsAccess reports whether a member in this status may act for the shop.
func (m MembershipStatus) GrantsAccess() bool {
	return m == MembershipStatusActive
}

func ParseMembershipStatus(value string) (MembershipStatus, error) {
	if status := MembershipStatus(value); status.IsValid() {
		return status, nil
	}
	return "", fmt.Errorf("invalid membership status %q", value)
}
