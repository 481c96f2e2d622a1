package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// ProductDTO represents a shop product returned to clients.
type ProductDTO struct {
	ID             uuid.UUID         `json:"id"`
	ShopID         uuid.UUID         `json:"shop_id"`
	Name           string            `json:"name"`
	SKU            string            `json:"sku"`
	Barcode        *string           `json:"barcode,omitempty"`
	Description    *string           `json:"description,omitempty"`
	Category       *string           `json:"category,omitempty"`
	Unit           enums.ProductUnit `json:"unit"`
	CostPrice      decimal.Decimal   `json:"cost_price"`
	SellingPrice   decimal.Decimal   `json:"selling_price"`
	WholesalePrice decimal.Decimal   `json:"wholesale_price"`
	CurrentStock   int               `json:"current_stock"`
	ReorderLevel   int               `json:"reorder_level"`
	LowStock       bool              `json:"low_stock"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ListResult is one page of products.
type ListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:             p.ID,
		ShopID:         p.ShopID,
		Name:           p.Name,
		SKU:            p.SKU,
		Barcode:        cloneString(p.Barcode),
		Description:    cloneString(p.Description),
		Category:       cloneString(p.Category),
		Unit:           p.Unit,
		CostPrice:      p.CostPrice,
		SellingPrice:   p.SellingPrice,
		WholesalePrice: p.WholesalePrice,
		CurrentStock:   p.CurrentStock,
		ReorderLevel:   p.ReorderLevel,
		LowStock:       p.CurrentStock <= p.ReorderLevel,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
