// Package testutil provides sqlite-backed fixtures shared by service tests.
package testutil

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shopbridge/shopbridge-backend/pkg/db"
	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	"github.com/shopbridge/shopbridge-backend/pkg/migrate"
)

// OpenDB opens a private in-memory sqlite database with the full schema.
// The pool holds one connection, so every statement inside a transaction
// must run on that transaction's handle.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:shopbridge_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// NewTxRunner wraps the connection in the production transaction runner.
func NewTxRunner(conn *gorm.DB) *db.Client {
	return db.NewWithConn(conn, 0, 0)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts the clock at the given instant.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// CreateShop inserts a shop with the given status.
func CreateShop(t testing.TB, conn *gorm.DB, name string, status enums.ShopStatus) *models.Shop {
	t.Helper()
	shop := &models.Shop{
		Name:    name,
		Status:  status,
		OwnerID: uuid.New(),
	}
	if err := conn.Create(shop).Error; err != nil {
		t.Fatalf("create shop: %v", err)
	}
	return shop
}

// AddMember inserts an active membership and returns the member's user id.
func AddMember(t testing.TB, conn *gorm.DB, shopID uuid.UUID, role enums.MemberRole, permissions ...string) uuid.UUID {
	t.Helper()
	return AddMembership(t, conn, shopID, uuid.New(), role, enums.MembershipStatusActive, permissions...)
}

// AddMembership inserts a membership for an existing user id.
func AddMembership(t testing.TB, conn *gorm.DB, shopID, userID uuid.UUID, role enums.MemberRole, status enums.MembershipStatus, permissions ...string) uuid.UUID {
	t.Helper()
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
	if err := conn.Create(membership).Error; err != nil {
		t.Fatalf("create membership: %v", err)
	}
	return userID
}

// CreateProduct inserts an active product with the given stock and selling price.
func CreateProduct(t testing.TB, conn *gorm.DB, shopID uuid.UUID, name, sku string, stock int, price string) *models.Product {
	t.Helper()
	barcode := "BC-" + sku
	product := &models.Product{
		ShopID:         shopID,
		Name:           name,
		SKU:            sku,
		Barcode:        &barcode,
		Unit:           enums.ProductUnitPiece,
		CostPrice:      decimal.RequireFromString(price).Div(decimal.NewFromInt(2)).Round(2),
		SellingPrice:   decimal.RequireFromString(price),
		WholesalePrice: decimal.RequireFromString(price),
		CurrentStock:   stock,
		ReorderLevel:   2,
		IsActive:       true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// ReloadProduct reads the product's current row.
func ReloadProduct(t testing.TB, conn *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product
}

// OutboxEvents returns the event types recorded for an aggregate, oldest first.
func OutboxEvents(t testing.TB, conn *gorm.DB, aggregateID uuid.UUID) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	if err := conn.Where("aggregate_id = ?", aggregateID).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

// OrderLine is one line of a seeded purchase order.
type OrderLine struct {
	Product   *models.Product
	Quantity  int
	UnitPrice string
}

// SeedOrder inserts a purchase order in the given status without going
// through the workflow.
func SeedOrder(t testing.TB, conn *gorm.DB, buyerShopID, sellerShopID uuid.UUID, status enums.PurchaseOrderStatus, lines ...OrderLine) *models.PurchaseOrder {
	t.Helper()
	total := decimal.Zero
	items := make([]models.PurchaseOrderItem, 0, len(lines))
	for _, line := range lines {
		price := decimal.RequireFromString(line.UnitPrice)
		lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(lineTotal)
		items = append(items, models.PurchaseOrderItem{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			SKU:         line.Product.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   price,
			TotalPrice:  lineTotal,
		})
	}
	order := &models.PurchaseOrder{
		ReferenceNumber: "PO-20260301-" + strings.ToUpper(uuid.NewString()[:4]),
		BuyerShopID:     buyerShopID,
		SellerShopID:    sellerShopID,
		Status:          status,
		TotalAmount:     total,
		TotalPaid:       decimal.Zero,
		CreatedByUserID: uuid.New(),
		Items:           items,
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed purchase order: %v", err)
	}
	return order
}

// ReloadOrder reads the order row, including soft-deleted ones.
func ReloadOrder(t testing.TB, conn *gorm.DB, id uuid.UUID) models.PurchaseOrder {
	t.Helper()
	var order models.PurchaseOrder
	if err := conn.Unscoped().First(&order, "id = ?", id).Error; err != nil {
		t.Fatalf("reload purchase order: %v", err)
	}
	return order
}
