package product

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/shopbridge/shopbridge-backend/pkg/db"
	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/pagination"
)

// Repository is the product ledger. Every stock mutation goes through the
// row-locking helpers here, for purchase transfers and sale paths alike.
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

// Get loads a product without locking it. Missing rows return nil.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the products with the given ids, unlocked, keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// LockForUpdate loads one product under a row lock. Missing rows return nil.
func (r *Repository) LockForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// LockManyForUpdate locks the products in ascending id order so concurrent
// batches touching overlapping products cannot deadlock each other.
func (r *Repository) LockManyForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	ordered := append([]uuid.UUID(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	out := make(map[uuid.UUID]models.Product, len(ordered))
	for _, id := range ordered {
		if _, seen := out[id]; seen {
			continue
		}
		product, err := r.LockForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if product != nil {
			out[id] = *product
		}
	}
	return out, nil
}

// FindByIdentityForUpdate locks the shop's product matching name and sku.
// It returns nil when the shop has no such product.
func (r *Repository) FindByIdentityForUpdate(ctx context.Context, shopID uuid.UUID, name, sku string) (*models.Product, error) {
	var product models.Product
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).
		Where("shop_id = ? AND name = ? AND sku = ?", shopID, name, sku).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// Decrement removes qty from the product's stock. The update only applies
// while enough stock is on hand; otherwise ErrInsufficientStock is returned
// and the row is unchanged.
func (r *Repository) Decrement(ctx context.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("decrement quantity must be positive")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND current_stock >= ?", id, qty).
		UpdateColumn("current_stock", gorm.Expr("current_stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Increment adds qty to the product's stock.
func (r *Repository) Increment(ctx context.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("increment quantity must be positive")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("current_stock", gorm.Expr("current_stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Create inserts a product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product == nil {
		return nil, fmt.Errorf("product is required")
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// ListByShop pages through a shop's products, newest first.
func (r *Repository) ListByShop(ctx context.Context, shopID uuid.UUID, activeOnly bool, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("shop_id = ?", shopID)
	if activeOnly {
		qb = qb.Where("is_active = ?", true)
	}

	var rows []models.Product
	if err := qb.Scopes(pagination.Keyset(cursor, params.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}

	page, next := pagination.Trim(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	out := make([]ProductDTO, 0, len(page))
	for i := range page {
		out = append(out, ToDTO(page[i]))
	}
	return &ListResult{Products: out, NextCursor: next}, nil
}
