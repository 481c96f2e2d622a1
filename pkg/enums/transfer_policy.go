package enums

import "fmt"

// TransferPolicy controls how stock transfers are checked against ordered quantities.
type TransferPolicy string

const (
	TransferPolicyStrict     TransferPolicy = "strict"
	TransferPolicyPermissive TransferPolicy = "permissive"
)

var validTransferPolicies = []TransferPolicy{
	TransferPolicyStrict,
	TransferPolicyPermissive,
}

// String implements fmt.Stringer.
func (p TransferPolicy) String() string {
	return string(p)
}

// IsValid reports whether the value is a known TransferPolicy.
func (p TransferPolicy) IsValid() bool {
	for _, candidate := range validTransferPolicies {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseTransferPolicy converts raw input into a TransferPolicy.
func ParseTransferPolicy(value string) (TransferPolicy, error) {
	for _, candidate := range validTransferPolicies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer policy %q", value)
}
