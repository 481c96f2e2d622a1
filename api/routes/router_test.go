package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	pkgAuth "github.com/shopbridge/shopbridge-backend/pkg/auth"
	"github.com/shopbridge/shopbridge-backend/pkg/config"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
	"github.com/shopbridge/shopbridge-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrders struct {
	purchaseorders.Service
	created int
}

func (s *stubOrders) Create(_ context.Context, in purchaseorders.CreateInput) (*purchaseorders.OrderDetail, error) {
	s.created++
	return &purchaseorders.OrderDetail{
		ID:          uuid.New(),
		BuyerShopID: in.Actor.ShopID,
		Status:      enums.PurchaseOrderStatusPending,
	}, nil
}

func (s *stubOrders) List(context.Context, purchaseorders.ListInput) (*purchaseorders.ListResult, error) {
	return &purchaseorders.ListResult{Orders: []purchaseorders.OrderSummary{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "shopbridge", ExpirationMinutes: 15},
		Purchasing: config.PurchasingConfig{
			IdempotencyTTL: time.Hour,
		},
	}
}

func newTestRouter(t *testing.T, orders purchaseorders.Service) (http.Handler, *config.Config) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, client, prometheus.NewRegistry(), orders, nil, nil, nil), cfg
}

func bearer(t *testing.T, cfg *config.Config, shopID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:       uuid.New(),
		ActiveShopID: shopID,
		JTI:          uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestPurchaseOrdersRequireToken(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/purchase-orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPurchaseOrdersRequireActiveShop(t *testing.T) {
	router, cfg := newTestRouter(t, &stubOrders{})
	token := bearer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchase-orders", nil)
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without active shop, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d", rec.Code)
	}
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	orders := &stubOrders{}
	router, cfg := newTestRouter(t, orders)
	shopID := uuid.New()
	token := bearer(t, cfg, &shopID)
	body := `{"seller_shop_id":"` + uuid.NewString() + `","items":[{"product_id":"` + uuid.NewString() + `","quantity":2,"unit_price":"3.50"}]}`

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders", strings.NewReader(body))
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "create-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs")
	}
	if orders.created != 1 {
		t.Fatalf("expected a single create, got %d", orders.created)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-orders", strings.NewReader(body))
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", rec.Code)
	}
}
