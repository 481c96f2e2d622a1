package memberships

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

var (
	// ErrMissingCapability is wrapped by Require when the member lacks a grant.
	ErrMissingCapability = errors.New("missing capability")
	// ErrNotMember is wrapped by RequireMember when no active membership exists.
	ErrNotMember = errors.New("not a shop member")
)

// Authorizer answers whether a user acting for a shop may perform an action.
type Authorizer interface {
	WithTx(tx *gorm.DB) Authorizer
	HasCapability(ctx context.Context, userID, shopID uuid.UUID, capability enums.Capability) (bool, error)
	IsMember(ctx context.Context, userID, shopID uuid.UUID) (bool, error)
	Require(ctx context.Context, userID, shopID uuid.UUID, capability enums.Capability) error
	RequireMember(ctx context.Context, userID, shopID uuid.UUID) error
}

// Oracle resolves capabilities from shop memberships.
type Oracle struct {
	repo *Repository
}

// NewOracle builds an oracle on top of the membership repository.
func NewOracle(repo *Repository) *Oracle {
	return &Oracle{repo: repo}
}

// WithTx binds lookups to the caller's transaction.
func (o *Oracle) WithTx(tx *gorm.DB) Authorizer {
	if tx == nil {
		return o
	}
	return &Oracle{repo: o.repo.WithTx(tx)}
}

// HasCapability reports whether the user's active membership in the shop
// grants the capability.
func (o *Oracle) HasCapability(ctx context.Context, userID, shopID uuid.UUID, capability enums.Capability) (bool, error) {
	membership, err := o.activeMembership(ctx, userID, shopID)
	if err != nil || membership == nil {
		return false, err
	}
	return Allows(Grants(membership.Role, membership.Permissions), capability), nil
}

// IsMember reports whether the user holds an active membership in the shop.
func (o *Oracle) IsMember(ctx context.Context, userID, shopID uuid.UUID) (bool, error) {
	membership, err := o.activeMembership(ctx, userID, shopID)
	if err != nil {
		return false, err
	}
	return membership != nil, nil
}

// Require fails with a forbidden error naming the missing capability.
func (o *Oracle) Require(ctx context.Context, userID, shopID uuid.UUID, capability enums.Capability) error {
	ok, err := o.HasCapability(ctx, userID, shopID, capability)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop membership")
	}
	if ok {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrMissingCapability, fmt.Sprintf("missing capability %s", capability)).
		WithDetails(map[string]any{
			"capability": capability,
			"shop_id":    shopID,
		})
}

// RequireMember fails with a forbidden error unless the user is an active member.
func (o *Oracle) RequireMember(ctx context.Context, userID, shopID uuid.UUID) error {
	ok, err := o.IsMember(ctx, userID, shopID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop membership")
	}
	if ok {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrNotMember, "user is not a member of the shop").
		WithDetails(map[string]any{"shop_id": shopID})
}

func (o *Oracle) activeMembership(ctx context.Context, userID, shopID uuid.UUID) (*models.ShopMembership, error) {
	if userID == uuid.Nil || shopID == uuid.Nil {
		return nil, nil
	}
	membership, err := o.repo.GetMembership(ctx, userID, shopID)
	if err != nil || membership == nil {
		return nil, err
	}
	if !membership.Status.GrantsAccess() {
		return nil, nil
	}
	return membership, nil
}
