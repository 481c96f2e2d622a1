package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// Product is one shop's inventory entry. Two shops stocking "the same" item
// hold separate rows matched by (shop_id, name, sku).
type Product struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ShopID         uuid.UUID         `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:ux_products_shop_name_sku"`
	Name           string            `gorm:"column:name;not null;uniqueIndex:ux_products_shop_name_sku"`
	SKU            string            `gorm:"column:sku;not null;uniqueIndex:ux_products_shop_name_sku"`
	Barcode        *string           `gorm:"column:barcode"`
	Description    *string           `gorm:"column:description"`
	Category       *string           `gorm:"column:category"`
	Unit           enums.ProductUnit `gorm:"column:unit;type:text;not null;default:'piece'"`
	CostPrice      decimal.Decimal   `gorm:"column:cost_price;type:numeric(14,2);not null;default:0"`
	SellingPrice   decimal.Decimal   `gorm:"column:selling_price;type:numeric(14,2);not null;default:0"`
	WholesalePrice decimal.Decimal   `gorm:"column:wholesale_price;type:numeric(14,2);not null;default:0"`
	CurrentStock   int               `gorm:"column:current_stock;not null;default:0;check:chk_products_current_stock,current_stock >= 0"`
	ReorderLevel   int               `gorm:"column:reorder_level;not null;default:0"`
	IsActive       bool              `gorm:"column:is_active;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
