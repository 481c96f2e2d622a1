package stocktransfers

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
)

// Repository appends transfer receipts.
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

// Insert appends a receipt.
func (r *Repository) Insert(ctx context.Context, receipt *models.StockTransfer) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}
