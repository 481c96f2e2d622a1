package migrate

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
)

// schemaModels lists every persisted model in dependency order.
func schemaModels() []any {
	return []any{
		&models.Shop{},
		&models.ShopMembership{},
		&models.Product{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderItem{},
		&models.PurchasePayment{},
		&models.StockTransfer{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// AutoMigrate builds the schema from the GORM models. It backs the sqlite
// driver, which cannot run the Postgres SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if err := db.AutoMigrate(schemaModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
