//go:build db

package payments_test

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shopbridge/shopbridge-backend/internal/memberships"
	"github.com/shopbridge/shopbridge-backend/internal/payments"
	product "github.com/shopbridge/shopbridge-backend/internal/products"
	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	"github.com/shopbridge/shopbridge-backend/internal/stocktransfers"
	"github.com/shopbridge/shopbridge-backend/internal/testutil"
	"github.com/shopbridge/shopbridge-backend/pkg/db"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
	"github.com/shopbridge/shopbridge-backend/pkg/migrate"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox"
)

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("SHOPBRIDGE_DB_DSN")
	if dsn == "" {
		t.Skip("SHOPBRIDGE_DB_DSN not set")
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(16)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrate.AutoMigrate(conn))
	return conn
}

func TestConcurrentPaymentsNeverOverpay(t *testing.T) {
	conn := openPostgres(t)
	buyer := testutil.CreateShop(t, conn, "Race Buyer "+time.Now().Format(time.RFC3339Nano), enums.ShopStatusActive)
	seller := testutil.CreateShop(t, conn, "Race Seller "+time.Now().Format(time.RFC3339Nano), enums.ShopStatusActive)
	cashier := testutil.AddMember(t, conn, buyer.ID, enums.MemberRoleCashier)
	rice := testutil.CreateProduct(t, conn, seller.ID, "Rice 5kg", "RICE-5", 40, "5.00")
	oil := testutil.CreateProduct(t, conn, seller.ID, "Oil 1L", "OIL-1", 12, "20.00")
	order := testutil.SeedOrder(t, conn, buyer.ID, seller.ID, enums.PurchaseOrderStatusApproved,
		testutil.OrderLine{Product: rice, Quantity: 10, UnitPrice: "5.00"},
		testutil.OrderLine{Product: oil, Quantity: 3, UnitPrice: "20.00"},
	)

	svc, err := payments.NewService(payments.ServiceParams{
		Tx:       db.NewWithConn(conn, 10*time.Second, 0),
		Auth:     memberships.NewOracle(memberships.NewRepository(conn)),
		Orders:   purchaseorders.NewRepository(conn),
		Payments: payments.NewRepository(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Clock:    time.Now,
	})
	require.NoError(t, err)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordPayment(context.Background(), payments.RecordInput{
				Actor:   purchaseorders.Actor{UserID: cashier, ShopID: buyer.ID},
				OrderID: order.ID,
				Amount:  decimal.RequireFromString("20"),
				Method:  enums.PaymentMethodCash,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, payments.ErrOverpaymentRejected):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 5, succeeded)
	require.Equal(t, attempts-5, rejected)
	reloaded := testutil.ReloadOrder(t, conn, order.ID)
	require.True(t, reloaded.TotalPaid.Equal(decimal.RequireFromString("100")), "total paid %s", reloaded.TotalPaid)
}

func TestConcurrentTransfersNeverOversell(t *testing.T) {
	conn := openPostgres(t)
	suffix := time.Now().Format(time.RFC3339Nano)
	seller := testutil.CreateShop(t, conn, "Race Seller "+suffix, enums.ShopStatusActive)
	clerk := testutil.AddMember(t, conn, seller.ID, enums.MemberRoleStockClerk)
	rice := testutil.CreateProduct(t, conn, seller.ID, "Rice 5kg", "RICE-"+suffix, 10, "5.00")

	svc, err := stocktransfers.NewService(stocktransfers.ServiceParams{
		Tx:        db.NewWithConn(conn, 10*time.Second, 0),
		Auth:      memberships.NewOracle(memberships.NewRepository(conn)),
		Orders:    purchaseorders.NewRepository(conn),
		Products:  product.NewRepository(conn),
		Transfers: stocktransfers.NewRepository(conn),
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Clock:     time.Now,
	})
	require.NoError(t, err)

	// Separate buyers so the order row locks do not serialize the transfers;
	// only the seller product lock stands between them.
	const buyers = 4
	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		buyer := testutil.CreateShop(t, conn, "Race Buyer "+suffix+"-"+string(rune('A'+i)), enums.ShopStatusActive)
		order := testutil.SeedOrder(t, conn, buyer.ID, seller.ID, enums.PurchaseOrderStatusApproved,
			testutil.OrderLine{Product: rice, Quantity: 5, UnitPrice: "5.00"},
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TransferStock(context.Background(), stocktransfers.TransferInput{
				Actor:   purchaseorders.Actor{UserID: clerk, ShopID: seller.ID},
				OrderID: order.ID,
				Items:   []stocktransfers.LineInput{{ProductID: rice.ID, Quantity: 5}},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, errors.Is(err, product.ErrInsufficientStock) || pkgerrors.IsCode(err, pkgerrors.CodeContention), "unexpected error: %v", err)
	}
	require.Equal(t, 2, succeeded)
	require.Zero(t, testutil.ReloadProduct(t, conn, rice.ID).CurrentStock)
}
