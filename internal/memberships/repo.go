package memberships

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// Repository exposes membership persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// GetMembership retrieves a membership by user and shop. It returns nil when
// the user has no membership row for the shop.
func (r *Repository) GetMembership(ctx context.Context, userID, shopID uuid.UUID) (*models.ShopMembership, error) {
	var membership models.ShopMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND shop_id = ?", userID, shopID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &membership, nil
}

// CreateMembership persists a new membership record.
func (r *Repository) CreateMembership(ctx context.Context, shopID, userID uuid.UUID, role enums.MemberRole, status enums.MembershipStatus, permissions []string) (*models.ShopMembership, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid member role %q", role)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid membership status %q", status)
	}
	if permissions == nil {
		permissions = []string{}
	}

	membership := &models.ShopMembership{
		ShopID:      shopID,
		UserID:      userID,
		Role:        role,
		Status:      status,
		Permissions: permissions,
	}

	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}
