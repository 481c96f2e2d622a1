package stocktransfers

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/internal/memberships"
	product "github.com/shopbridge/shopbridge-backend/internal/products"
	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	"github.com/shopbridge/shopbridge-backend/internal/testutil"
	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox"
)

type fixture struct {
	conn   *gorm.DB
	clock  *testutil.Clock
	buyer  *models.Shop
	seller *models.Shop
	clerk  uuid.UUID
	viewer uuid.UUID
	rice   *models.Product
	oil    *models.Product
	beans  *models.Product
	order  *models.PurchaseOrder
}

func newFixture(t *testing.T, status enums.PurchaseOrderStatus) *fixture {
	t.Helper()
	conn := testutil.OpenDB(t)
	f := &fixture{conn: conn, clock: testutil.NewClock(time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC))}
	f.buyer = testutil.CreateShop(t, conn, "Buyer Mart", enums.ShopStatusActive)
	f.seller = testutil.CreateShop(t, conn, "Seller Wholesale", enums.ShopStatusActive)
	f.clerk = testutil.AddMember(t, conn, f.seller.ID, enums.MemberRoleStockClerk)
	f.viewer = testutil.AddMember(t, conn, f.seller.ID, enums.MemberRoleViewer)
	f.rice = testutil.CreateProduct(t, conn, f.seller.ID, "Rice 5kg", "RICE-5", 40, "5.00")
	f.oil = testutil.CreateProduct(t, conn, f.seller.ID, "Oil 1L", "OIL-1", 12, "20.00")
	f.beans = testutil.CreateProduct(t, conn, f.seller.ID, "Beans 400g", "BEAN-4", 4, "1.20")
	f.order = testutil.SeedOrder(t, conn, f.buyer.ID, f.seller.ID, status,
		testutil.OrderLine{Product: f.rice, Quantity: 10, UnitPrice: "5.00"},
		testutil.OrderLine{Product: f.oil, Quantity: 3, UnitPrice: "20.00"},
		testutil.OrderLine{Product: f.beans, Quantity: 10, UnitPrice: "1.20"},
	)
	return f
}

func (f *fixture) service(t *testing.T, policy enums.TransferPolicy) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Tx:        testutil.NewTxRunner(f.conn),
		Auth:      memberships.NewOracle(memberships.NewRepository(f.conn)),
		Orders:    purchaseorders.NewRepository(f.conn),
		Products:  product.NewRepository(f.conn),
		Transfers: NewRepository(f.conn),
		Outbox:    outbox.NewService(outbox.NewRepository(f.conn), nil),
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Clock:     f.clock.Now,
		Policy:    policy,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func (f *fixture) sellerActor() purchaseorders.Actor {
	return purchaseorders.Actor{UserID: f.clerk, ShopID: f.seller.ID}
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	return testutil.ReloadProduct(t, f.conn, id).CurrentStock
}

func (f *fixture) buyerProduct(t *testing.T, name, sku string) *models.Product {
	t.Helper()
	var p models.Product
	err := f.conn.Where("shop_id = ? AND name = ? AND sku = ?", f.buyer.ID, name, sku).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("load buyer product: %v", err)
	}
	return &p
}

func TestTransferMergesAndCopiesBuyerProducts(t *testing.T) {
	f := newFixture(t, enums.PurchaseOrderStatusApproved)
	existingOil := testutil.CreateProduct(t, f.conn, f.buyer.ID, "Oil 1L", "OIL-1", 1, "24.00")
	svc := f.service(t, enums.TransferPolicyStrict)

	result, err := svc.TransferStock(context.Background(), TransferInput{
		Actor:   f.sellerActor(),
		OrderID: f.order.ID,
		Items: []LineInput{
			{ProductID: f.rice.ID, Quantity: 10, Notes: "pallet 1"},
			{ProductID: f.oil.ID, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := f.stock(t, f.rice.ID); got != 30 {
		t.Fatalf("seller rice stock = %d, want 30", got)
	}
	if got := f.stock(t, f.oil.ID); got != 9 {
		t.Fatalf("seller oil stock = %d, want 9", got)
	}
	if got := f.stock(t, existingOil.ID); got != 4 {
		t.Fatalf("buyer oil stock = %d, want 4", got)
	}

	copied := f.buyerProduct(t, "Rice 5kg", "RICE-5")
	if copied == nil {
		t.Fatalf("buyer rice product was not created")
	}
	if copied.ID == f.rice.ID || copied.CurrentStock != 10 || !copied.IsActive {
		t.Fatalf("unexpected copy: %+v", copied)
	}
	if !copied.SellingPrice.Equal(f.rice.SellingPrice) || copied.Barcode == nil || *copied.Barcode != *f.rice.Barcode || copied.Unit != f.rice.Unit {
		t.Fatalf("descriptive fields not copied: %+v", copied)
	}

	if len(result.Transfers) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(result.Transfers))
	}
	riceReceipt, oilReceipt := result.Transfers[0], result.Transfers[1]
	if !riceReceipt.BuyerProductCreated || riceReceipt.BuyerProductID != copied.ID || riceReceipt.Notes == nil || *riceReceipt.Notes != "pallet 1" {
		t.Fatalf("unexpected rice receipt %+v", riceReceipt)
	}
	if oilReceipt.BuyerProductCreated || oilReceipt.BuyerProductID != existingOil.ID {
		t.Fatalf("unexpected oil receipt %+v", oilReceipt)
	}
	if !riceReceipt.TransferredAt.Equal(f.clock.Now()) {
		t.Fatalf("transferred_at should come from the injected clock, got %s", riceReceipt.TransferredAt)
	}

	events := testutil.OutboxEvents(t, f.conn, f.order.ID)
	if len(events) != 1 || events[0] != enums.EventStockTransferred {
		t.Fatalf("unexpected outbox events %v", events)
	}

	listed, err := svc.List(context.Background(), purchaseorders.Actor{UserID: f.viewer, ShopID: f.seller.ID}, f.order.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 listed receipts, got %d", len(listed))
	}
}

func TestInsufficientStockRollsBackWholeBatch(t *testing.T) {
	f := newFixture(t, enums.PurchaseOrderStatusApproved)
	svc := f.service(t, enums.TransferPolicyStrict)

	_, err := svc.TransferStock(context.Background(), TransferInput{
		Actor:   f.sellerActor(),
		OrderID: f.order.ID,
		Items: []LineInput{
			{ProductID: f.rice.ID, Quantity: 10},
			{ProductID: f.oil.ID, Quantity: 3},
			{ProductID: f.beans.ID, Quantity: 10},
		},
	})
	if !errors.Is(err, product.ErrInsufficientStock) || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected insufficient stock conflict, got %v", err)
	}
	if msg := pkgerrors.As(err).Message(); msg != "insufficient stock: available 4, requested 10" {
		t.Fatalf("unexpected message %q", msg)
	}

	if got := f.stock(t, f.beans.ID); got != 4 {
		t.Fatalf("beans stock = %d, want 4", got)
	}
	if got := f.stock(t, f.rice.ID); got != 40 {
		t.Fatalf("rice stock = %d after rollback, want 40", got)
	}
	if got := f.stock(t, f.oil.ID); got != 12 {
		t.Fatalf("oil stock = %d after rollback, want 12", got)
	}
	if p := f.buyerProduct(t, "Rice 5kg", "RICE-5"); p != nil {
		t.Fatalf("buyer product must not survive rollback")
	}
	var receipts int64
	if err := f.conn.Model(&models.StockTransfer{}).Count(&receipts).Error; err != nil {
		t.Fatalf("count receipts: %v", err)
	}
	if receipts != 0 {
		t.Fatalf("receipts must not survive rollback, found %d", receipts)
	}
	if events := testutil.OutboxEvents(t, f.conn, f.order.ID); len(events) != 0 {
		t.Fatalf("no events expected, got %v", events)
	}
}

func TestStrictPolicyCapsCumulativeQuantity(t *testing.T) {
	f := newFixture(t, enums.PurchaseOrderStatusApproved)
	svc := f.service(t, enums.TransferPolicyStrict)
	ctx := context.Background()

	if _, err := svc.TransferStock(ctx, TransferInput{Actor: f.sellerActor(), OrderID: f.order.ID, Items: []LineInput{{ProductID: f.rice.ID, Quantity: 6}}}); err != nil {
		t.Fatalf("first partial transfer: %v", err)
	}
	f.clock.Advance(time.Hour)

	_, err := svc.TransferStock(ctx, TransferInput{Actor: f.sellerActor(), OrderID: f.order.ID, Items: []LineInput{{ProductID: f.rice.ID, Quantity: 5}}})
	if !errors.Is(err, ErrTransferExceedsOrdered) || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected exceeds ordered, got %v", err)
	}
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	if details["ordered"] != 10 || details["transferred"] != 6 || details["requested"] != 5 {
		t.Fatalf("unexpected details %v", details)
	}

	if _, err := svc.TransferStock(ctx, TransferInput{Actor: f.sellerActor(), OrderID: f.order.ID, Items: []LineInput{{ProductID: f.rice.ID, Quantity: 4}}}); err != nil {
		t.Fatalf("transfer up to the ordered quantity: %v", err)
	}
	if got := f.stock(t, f.rice.ID); got != 30 {
		t.Fatalf("rice stock = %d, want 30", got)
	}
	if p := f.buyerProduct(t, "Rice 5kg", "RICE-5"); p == nil || p.CurrentStock != 10 {
		t.Fatalf("buyer should hold 10 rice after two transfers, got %+v", p)
	}

	extra := testutil.CreateProduct(t, f.conn, f.seller.ID, "Sugar 1kg", "SUG-1", 50, "2.00")
	_, err = svc.TransferStock(ctx, TransferInput{Actor: f.sellerActor(), OrderID: f.order.ID, Items: []LineInput{{ProductID: extra.ID, Quantity: 1}}})
	if !errors.Is(err, ErrTransferExceedsOrdered) {
		t.Fatalf("product not on the order should be rejected, got %v", err)
	}
}

func TestPermissivePolicyAllowsOverTransfer(t *testing.T) {
	f := newFixture(t, enums.PurchaseOrderStatusApproved)
	svc := f.service(t, enums.TransferPolicyPermissive)
	extra := testutil.CreateProduct(t, f.conn, f.seller.ID, "Sugar 1kg", "SUG-1", 50, "2.00")

	_, err := svc.TransferStock(context.Background(), TransferInput{
		Actor:   f.sellerActor(),
		OrderID: f.order.ID,
		Items: []LineInput{
			{ProductID: f.rice.ID, Quantity: 15},
			{ProductID: extra.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("permissive transfer: %v", err)
	}
	if got := f.stock(t, f.rice.ID); got != 25 {
		t.Fatalf("rice stock = %d, want 25", got)
	}
}

func TestTransferPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("order must be approved", func(t *testing.T) {
		for _, status := range []enums.PurchaseOrderStatus{enums.PurchaseOrderStatusPending, enums.PurchaseOrderStatusCompleted, enums.PurchaseOrderStatusCancelled} {
			f := newFixture(t, status)
			_, err := f.service(t, "").TransferStock(ctx, TransferInput{Actor: f.sellerActor(), OrderID: f.order.ID, Items: []LineInput{{ProductID: f.rice.ID, Quantity: 1}}})
			if !errors.Is(err, ErrTransferNotAllowed) || !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				t.Fatalf("%s: expected transfer not allowed, got %v", status, err)
			}
		}
	})

	t.Run("acting shop must be the seller", func(t *testing.T) {
		f := newFixture(t, enums.PurchaseOrderStatusApproved)
		owner := testutil.AddMember(t, f.conn, f.buyer.ID, enums.MemberRoleOwner)
		_, err := f.service(t, "").TransferStock(ctx, TransferInput{
			Actor:   purchaseorders.Actor{UserID: owner, ShopID: f.buyer.ID},
			OrderID: f.order.ID,
			Items:   []LineInput{{ProductID: f.rice.ID, Quantity: 1}},
		})
		if !errors.Is(err, ErrTransferNotAllowed) || !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
			t.Fatalf("expected forbidden transfer, got %v", err)
		}
	})

	t.Run("member needs transfer_stock", func(t *testing.T) {
		f := newFixture(t, enums.PurchaseOrderStatusApproved)
		_, err := f.service(t, "").TransferStock(ctx, TransferInput{
			Actor:   purchaseorders.Actor{UserID: f.viewer, ShopID: f.seller.ID},
			OrderID: f.order.ID,
			Items:   []LineInput{{ProductID: f.rice.ID, Quantity: 1}},
		})
		if !errors.Is(err, memberships.ErrMissingCapability) {
			t.Fatalf("expected missing capability, got %v", err)
		}
		if got := f.stock(t, f.rice.ID); got != 40 {
			t.Fatalf("stock changed on rejected transfer: %d", got)
		}
	})

	for _, policy := range []enums.TransferPolicy{"", enums.TransferPolicyStrict, enums.TransferPolicyPermissive} {
		t.Run("seller must own the product/policy="+string(policy), func(t *testing.T) {
			f := newFixture(t, enums.PurchaseOrderStatusApproved)
			foreign := testutil.CreateProduct(t, f.conn, f.buyer.ID, "Own Brand", "OWN-1", 9, "1.00")
			_, err := f.service(t, policy).TransferStock(ctx, TransferInput{
				Actor:   f.sellerActor(),
				OrderID: f.order.ID,
				Items: []LineInput{
					{ProductID: f.rice.ID, Quantity: 2},
					{ProductID: foreign.ID, Quantity: 1},
				},
			})
			if !errors.Is(err, ErrProductNotOwnedBySeller) || !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
				t.Fatalf("expected product not owned, got %v", err)
			}
			if errors.Is(err, ErrTransferExceedsOrdered) {
				t.Fatalf("foreign product reported as over-transfer: %v", err)
			}
			if got := f.stock(t, foreign.ID); got != 9 {
				t.Fatalf("foreign product stock changed: %d", got)
			}
			if got := f.stock(t, f.rice.ID); got != 40 {
				t.Fatalf("rice stock = %d after rollback, want 40", got)
			}
		})
	}
}

func TestTransferValidatesInput(t *testing.T) {
	f := newFixture(t, enums.PurchaseOrderStatusApproved)
	svc := f.service(t, "")
	cases := map[string]TransferInput{
		"no items":      {Actor: f.sellerActor(), OrderID: f.order.ID},
		"zero quantity": {Actor: f.sellerActor(), OrderID: f.order.ID, Items: []LineInput{{ProductID: f.rice.ID}}},
		"duplicate": {Actor: f.sellerActor(), OrderID: f.order.ID, Items: []LineInput{
			{ProductID: f.rice.ID, Quantity: 1}, {ProductID: f.rice.ID, Quantity: 1},
		}},
		"missing order": {Actor: f.sellerActor(), Items: []LineInput{{ProductID: f.rice.ID, Quantity: 1}}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.TransferStock(context.Background(), input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := NewService(ServiceParams{Policy: "lenient"}); err == nil {
		t.Fatalf("expected constructor error")
	}
}
