package stocktransfers_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopbridge/shopbridge-backend/internal/memberships"
	"github.com/shopbridge/shopbridge-backend/internal/payments"
	product "github.com/shopbridge/shopbridge-backend/internal/products"
	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	"github.com/shopbridge/shopbridge-backend/internal/shops"
	"github.com/shopbridge/shopbridge-backend/internal/stocktransfers"
	"github.com/shopbridge/shopbridge-backend/internal/testutil"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
	"github.com/shopbridge/shopbridge-backend/pkg/metrics"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox"
)

func TestPurchaseOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	conn := testutil.OpenDB(t)
	clock := testutil.NewClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	tx := testutil.NewTxRunner(conn)
	auth := memberships.NewOracle(memberships.NewRepository(conn))
	orderRepo := purchaseorders.NewRepository(conn)
	productRepo := product.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	ops := metrics.NewOperationMetrics(prometheus.NewRegistry())

	orders, err := purchaseorders.NewService(purchaseorders.ServiceParams{
		Tx: tx, Auth: auth, Repo: orderRepo, Products: productRepo, Shops: shops.NewRepository(conn),
		Outbox: emitter, Logger: logg, Metrics: ops, Clock: clock.Now,
	})
	require.NoError(t, err)
	ledger, err := payments.NewService(payments.ServiceParams{
		Tx: tx, Auth: auth, Orders: orderRepo, Payments: payments.NewRepository(conn),
		Outbox: emitter, Logger: logg, Metrics: ops, Clock: clock.Now,
	})
	require.NoError(t, err)
	engine, err := stocktransfers.NewService(stocktransfers.ServiceParams{
		Tx: tx, Auth: auth, Orders: orderRepo, Products: productRepo, Transfers: stocktransfers.NewRepository(conn),
		Outbox: emitter, Logger: logg, Metrics: ops, Clock: clock.Now,
	})
	require.NoError(t, err)

	buyerShop := testutil.CreateShop(t, conn, "Corner Store", enums.ShopStatusActive)
	sellerShop := testutil.CreateShop(t, conn, "Central Depot", enums.ShopStatusActive)
	buyer := purchaseorders.Actor{UserID: testutil.AddMember(t, conn, buyerShop.ID, enums.MemberRoleOwner), ShopID: buyerShop.ID}
	seller := purchaseorders.Actor{UserID: testutil.AddMember(t, conn, sellerShop.ID, enums.MemberRoleManager), ShopID: sellerShop.ID}
	rice := testutil.CreateProduct(t, conn, sellerShop.ID, "Rice 5kg", "RICE-5", 40, "6.50")
	oil := testutil.CreateProduct(t, conn, sellerShop.ID, "Oil 1L", "OIL-1", 12, "22.00")

	created, err := orders.Create(ctx, purchaseorders.CreateInput{
		Actor:        buyer,
		SellerShopID: sellerShop.ID,
		Items: []purchaseorders.ItemInput{
			{ProductID: rice.ID, Quantity: 10, UnitPrice: decimal.RequireFromString("5")},
			{ProductID: oil.ID, Quantity: 3, UnitPrice: decimal.RequireFromString("20")},
		},
	})
	require.NoError(t, err)
	require.True(t, created.TotalAmount.Equal(decimal.RequireFromString("110")))
	require.Equal(t, enums.PurchaseOrderStatusPending, created.Status)

	clock.Advance(time.Hour)
	approved, err := orders.Transition(ctx, purchaseorders.TransitionInput{Actor: seller, OrderID: created.ID, To: enums.PurchaseOrderStatusApproved})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusApproved, approved.Status)

	clock.Advance(time.Hour)
	transferred, err := engine.TransferStock(ctx, stocktransfers.TransferInput{
		Actor:   seller,
		OrderID: created.ID,
		Items: []stocktransfers.LineInput{
			{ProductID: rice.ID, Quantity: 10},
			{ProductID: oil.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, transferred.Transfers, 2)
	require.Equal(t, 30, testutil.ReloadProduct(t, conn, rice.ID).CurrentStock)
	require.Equal(t, 9, testutil.ReloadProduct(t, conn, oil.ID).CurrentStock)
	for _, receipt := range transferred.Transfers {
		require.True(t, receipt.BuyerProductCreated)
		copied := testutil.ReloadProduct(t, conn, receipt.BuyerProductID)
		require.Equal(t, buyerShop.ID, copied.ShopID)
		require.Equal(t, receipt.Quantity, copied.CurrentStock)
	}

	first, err := ledger.RecordPayment(ctx, payments.RecordInput{Actor: buyer, OrderID: created.ID, Amount: decimal.RequireFromString("60"), Method: enums.PaymentMethodBankTransfer})
	require.NoError(t, err)
	require.True(t, first.RemainingBalance.Equal(decimal.RequireFromString("50")))
	require.False(t, first.IsFullyPaid)

	second, err := ledger.RecordPayment(ctx, payments.RecordInput{Actor: buyer, OrderID: created.ID, Amount: decimal.RequireFromString("50"), Method: enums.PaymentMethodCash})
	require.NoError(t, err)
	require.True(t, second.IsFullyPaid)
	require.True(t, second.RemainingBalance.IsZero())

	clock.Advance(time.Hour)
	completed, err := orders.Transition(ctx, purchaseorders.TransitionInput{Actor: buyer, OrderID: created.ID, To: enums.PurchaseOrderStatusCompleted, Note: "received in full"})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseOrderStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.True(t, completed.CompletedAt.Equal(clock.Now()))
	require.Empty(t, completed.AllowedTransitions)

	detail, err := orders.Get(ctx, seller, created.ID)
	require.NoError(t, err)
	require.Len(t, detail.Payments, 2)
	require.Len(t, detail.Transfers, 2)
	require.True(t, detail.IsFullyPaid)
	for _, line := range detail.Fulfillment {
		require.Zero(t, line.Outstanding)
	}

	require.Equal(t, []enums.OutboxEventType{
		enums.EventPurchaseOrderCreated,
		enums.EventPurchaseOrderStatusChanged,
		enums.EventStockTransferred,
		enums.EventPurchasePaymentRecorded,
		enums.EventPurchasePaymentRecorded,
		enums.EventPurchaseOrderStatusChanged,
	}, testutil.OutboxEvents(t, conn, created.ID))
}
