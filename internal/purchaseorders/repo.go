package purchaseorders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/shopbridge/shopbridge-backend/pkg/db"
	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	"github.com/shopbridge/shopbridge-backend/pkg/pagination"
)

// Repository persists purchase orders and reads their payment and transfer
// ledgers. Locking reads must run on a transaction handle.
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

// LockOrder loads the order under a row lock. Missing or deleted orders
// return nil.
func (r *Repository) LockOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindOrder loads the order with its live items.
func (r *Repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// Items returns the order's live items.
func (r *Repository) Items(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrderItem, error) {
	var items []models.PurchaseOrderItem
	err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", orderID).
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error
	return items, err
}

// ReferenceExists checks every order, deleted ones included.
func (r *Repository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.PurchaseOrder{}).
		Where("reference_number = ?", reference).
		Count(&count).Error
	return count > 0, err
}

// CreateOrder inserts the order together with its items.
func (r *Repository) CreateOrder(ctx context.Context, order *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// ReplaceItems tombstones the current items and inserts the new set.
func (r *Repository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.PurchaseOrderItem, now time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderItem{}).
		Where("purchase_order_id = ?", orderID).
		UpdateColumn("deleted_at", now).Error
	if err != nil {
		return err
	}
	for i := range items {
		items[i].PurchaseOrderID = orderID
	}
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// UpdateFields applies column updates to a live order.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetTotalPaid stores the running payment total computed under the order lock.
func (r *Repository) SetTotalPaid(ctx context.Context, id uuid.UUID, total decimal.Decimal, now time.Time) error {
	return r.UpdateFields(ctx, id, map[string]any{
		"total_paid": total,
		"updated_at": now,
	})
}

// SoftDelete tombstones the order and its items.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderItem{}).
		Where("purchase_order_id = ?", id).
		UpdateColumn("deleted_at", now).Error
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"deleted_at": now, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListFilter narrows ListOrders.
type ListFilter struct {
	ShopID uuid.UUID
	Party  enums.OrderParty
	Status *enums.PurchaseOrderStatus
	Cursor *pagination.Cursor
	Limit  int
}

// ListOrders returns orders for a shop, newest first. It fetches one row
// past the limit so callers can detect another page.
func (r *Repository) ListOrders(ctx context.Context, filter ListFilter) ([]models.PurchaseOrder, error) {
	qb := r.db.WithContext(ctx).Model(&models.PurchaseOrder{})
	switch filter.Party {
	case enums.OrderPartyBuyer:
		qb = qb.Where("buyer_shop_id = ?", filter.ShopID)
	case enums.OrderPartySeller:
		qb = qb.Where("seller_shop_id = ?", filter.ShopID)
	default:
		qb = qb.Where("(buyer_shop_id = ? OR seller_shop_id = ?)", filter.ShopID, filter.ShopID)
	}
	if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}

	var rows []models.PurchaseOrder
	err := qb.Scopes(pagination.Keyset(filter.Cursor, filter.Limit)).Find(&rows).Error
	return rows, err
}

// CountItems returns live item counts keyed by order id.
func (r *Repository) CountItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PurchaseOrderID uuid.UUID
		Count           int
	}
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderItem{}).
		Select("purchase_order_id, COUNT(*) AS count").
		Where("purchase_order_id IN ?", orderIDs).
		Group("purchase_order_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PurchaseOrderID] = row.Count
	}
	return out, nil
}

// Payments returns the order's payments in the order they were paid.
func (r *Repository) Payments(ctx context.Context, orderID uuid.UUID) ([]models.PurchasePayment, error) {
	var rows []models.PurchasePayment
	err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", orderID).
		Order("paid_at ASC").Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// Transfers returns the order's transfer receipts in the order they were made.
func (r *Repository) Transfers(ctx context.Context, orderID uuid.UUID) ([]models.StockTransfer, error) {
	var rows []models.StockTransfer
	err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", orderID).
		Order("transferred_at ASC").Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// TransferredByProduct sums transferred quantities per seller product.
func (r *Repository) TransferredByProduct(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []struct {
		ProductID uuid.UUID
		Total     int
	}
	err := r.db.WithContext(ctx).
		Model(&models.StockTransfer{}).
		Select("product_id, SUM(quantity) AS total").
		Where("purchase_order_id = ?", orderID).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row.Total
	}
	return out, nil
}
