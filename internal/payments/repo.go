package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
)

// Repository appends payment ledger rows. Payments are never updated or
// removed here.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Insert appends a payment.
func (r *Repository) Insert(ctx context.Context, payment *models.PurchasePayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}
