package product

import (
	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
)

// CopyForShop builds a new product for shopID from src with qty on hand.
//
// Copied: Name, SKU, Barcode, Description, Category, Unit, CostPrice,
// SellingPrice, WholesalePrice, ReorderLevel.
// Reset: ID, CreatedAt, UpdatedAt (assigned on insert), ShopID (target shop),
// CurrentStock (qty), IsActive (true).
//
// The struct literal lists every field so a new Product column fails review
// here instead of being silently dropped.
func CopyForShop(src models.Product, shopID uuid.UUID, qty int) models.Product {
	return models.Product{
		ID:             uuid.Nil,
		ShopID:         shopID,
		Name:           src.Name,
		SKU:            src.SKU,
		Barcode:        cloneString(src.Barcode),
		Description:    cloneString(src.Description),
		Category:       cloneString(src.Category),
		Unit:           src.Unit,
		CostPrice:      src.CostPrice,
		SellingPrice:   src.SellingPrice,
		WholesalePrice: src.WholesalePrice,
		CurrentStock:   qty,
		ReorderLevel:   src.ReorderLevel,
		IsActive:       true,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
