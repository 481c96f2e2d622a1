package purchasing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopbridge/shopbridge-backend/api/middleware"
	"github.com/shopbridge/shopbridge-backend/internal/payments"
	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	"github.com/shopbridge/shopbridge-backend/internal/stocktransfers"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
)

type stubOrderService struct {
	create     func(context.Context, purchaseorders.CreateInput) (*purchaseorders.OrderDetail, error)
	update     func(context.Context, purchaseorders.UpdateItemsInput) (*purchaseorders.OrderDetail, error)
	transition func(context.Context, purchaseorders.TransitionInput) (*purchaseorders.OrderDetail, error)
	del        func(context.Context, purchaseorders.DeleteInput) error
	get        func(context.Context, purchaseorders.Actor, uuid.UUID) (*purchaseorders.OrderDetail, error)
	list       func(context.Context, purchaseorders.ListInput) (*purchaseorders.ListResult, error)
}

func (s stubOrderService) Create(ctx context.Context, in purchaseorders.CreateInput) (*purchaseorders.OrderDetail, error) {
	return s.create(ctx, in)
}

func (s stubOrderService) UpdateItems(ctx context.Context, in purchaseorders.UpdateItemsInput) (*purchaseorders.OrderDetail, error) {
	return s.update(ctx, in)
}

func (s stubOrderService) Transition(ctx context.Context, in purchaseorders.TransitionInput) (*purchaseorders.OrderDetail, error) {
	return s.transition(ctx, in)
}

func (s stubOrderService) Delete(ctx context.Context, in purchaseorders.DeleteInput) error {
	return s.del(ctx, in)
}

func (s stubOrderService) Get(ctx context.Context, actor purchaseorders.Actor, id uuid.UUID) (*purchaseorders.OrderDetail, error) {
	return s.get(ctx, actor, id)
}

func (s stubOrderService) List(ctx context.Context, in purchaseorders.ListInput) (*purchaseorders.ListResult, error) {
	return s.list(ctx, in)
}

type stubPaymentService struct {
	record func(context.Context, payments.RecordInput) (*payments.Result, error)
}

func (s stubPaymentService) RecordPayment(ctx context.Context, in payments.RecordInput) (*payments.Result, error) {
	return s.record(ctx, in)
}

func (s stubPaymentService) List(context.Context, purchaseorders.Actor, uuid.UUID) ([]purchaseorders.PaymentDTO, error) {
	return []purchaseorders.PaymentDTO{}, nil
}

type stubTransferService struct {
	transfer func(context.Context, stocktransfers.TransferInput) (*stocktransfers.TransferResult, error)
	list     func(context.Context, purchaseorders.Actor, uuid.UUID) ([]purchaseorders.TransferDTO, error)
}

func (s stubTransferService) TransferStock(ctx context.Context, in stocktransfers.TransferInput) (*stocktransfers.TransferResult, error) {
	return s.transfer(ctx, in)
}

func (s stubTransferService) List(ctx context.Context, actor purchaseorders.Actor, id uuid.UUID) ([]purchaseorders.TransferDTO, error) {
	return s.list(ctx, actor, id)
}

var (
	testLogger = logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	testUser   = uuid.New()
	testShop   = uuid.New()
	testOrder  = uuid.New()
)

func newRequest(method, target, body string, withShop bool, orderID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), testUser.String())
	if withShop {
		ctx = middleware.WithShopID(ctx, testShop.String())
	}
	if orderID != "" {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("orderId", orderID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string, map[string]any) {
	t.Helper()
	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return payload.Error.Code, payload.Error.Message, payload.Error.Details
}

func TestCreateOrder(t *testing.T) {
	seller := uuid.New()
	product := uuid.New()
	body := `{"seller_shop_id":"` + seller.String() + `","items":[{"product_id":"` + product.String() + `","quantity":10,"unit_price":"5.00"}],"notes":"  weekly restock  "}`

	t.Run("success", func(t *testing.T) {
		var captured purchaseorders.CreateInput
		svc := stubOrderService{create: func(_ context.Context, in purchaseorders.CreateInput) (*purchaseorders.OrderDetail, error) {
			captured = in
			return &purchaseorders.OrderDetail{ID: testOrder, Status: enums.PurchaseOrderStatusPending}, nil
		}}
		rec := serve(CreateOrder(svc, testLogger), newRequest(http.MethodPost, "/api/v1/purchase-orders", body, true, ""))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.Actor.UserID != testUser || captured.Actor.ShopID != testShop || captured.SellerShopID != seller {
			t.Fatalf("unexpected input %+v", captured)
		}
		if len(captured.Items) != 1 || captured.Items[0].ProductID != product || captured.Items[0].Quantity != 10 || !captured.Items[0].UnitPrice.Equal(decimal.RequireFromString("5")) {
			t.Fatalf("unexpected items %+v", captured.Items)
		}
		if captured.Notes != "weekly restock" {
			t.Fatalf("notes should be trimmed, got %q", captured.Notes)
		}
	})

	t.Run("missing active shop", func(t *testing.T) {
		rec := serve(CreateOrder(stubOrderService{}, testLogger), newRequest(http.MethodPost, "/api/v1/purchase-orders", body, false, ""))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		bad := `{"seller_shop_id":"nope","items":[]}`
		rec := serve(CreateOrder(stubOrderService{}, testLogger), newRequest(http.MethodPost, "/api/v1/purchase-orders", bad, true, ""))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("seller unavailable", func(t *testing.T) {
		svc := stubOrderService{create: func(context.Context, purchaseorders.CreateInput) (*purchaseorders.OrderDetail, error) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, purchaseorders.ErrSellerUnavailable, "seller shop is not accepting orders")
		}}
		rec := serve(CreateOrder(svc, testLogger), newRequest(http.MethodPost, "/api/v1/purchase-orders", body, true, ""))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestListOrdersParsesFilters(t *testing.T) {
	var captured purchaseorders.ListInput
	svc := stubOrderService{list: func(_ context.Context, in purchaseorders.ListInput) (*purchaseorders.ListResult, error) {
		captured = in
		return &purchaseorders.ListResult{Orders: []purchaseorders.OrderSummary{}}, nil
	}}

	rec := serve(ListOrders(svc, testLogger), newRequest(http.MethodGet, "/api/v1/purchase-orders?party=Seller&status=approved&limit=5&cursor=abc", "", true, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.Party != enums.OrderPartySeller || captured.Status == nil || *captured.Status != enums.PurchaseOrderStatusApproved {
		t.Fatalf("unexpected filters %+v", captured)
	}
	if captured.Params.Limit != 5 || captured.Params.Cursor != "abc" {
		t.Fatalf("unexpected paging %+v", captured.Params)
	}

	rec = serve(ListOrders(svc, testLogger), newRequest(http.MethodGet, "/api/v1/purchase-orders", "", true, ""))
	if rec.Code != http.StatusOK || captured.Party != enums.OrderPartyAny || captured.Status != nil {
		t.Fatalf("expected defaults, got %d %+v", rec.Code, captured)
	}

	for _, query := range []string{"?party=middleman", "?status=shipped", "?limit=500"} {
		rec := serve(ListOrders(svc, testLogger), newRequest(http.MethodGet, "/api/v1/purchase-orders"+query, "", true, ""))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestTransitionOrder(t *testing.T) {
	var captured purchaseorders.TransitionInput
	svc := stubOrderService{transition: func(_ context.Context, in purchaseorders.TransitionInput) (*purchaseorders.OrderDetail, error) {
		captured = in
		if in.To == enums.PurchaseOrderStatusRejected {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, purchaseorders.ErrInvalidTransition, "cannot move purchase order from rejected to rejected").
				WithDetails(map[string]any{"current": "rejected", "requested": "rejected"})
		}
		return &purchaseorders.OrderDetail{ID: in.OrderID, Status: in.To}, nil
	}}
	path := "/api/v1/purchase-orders/" + testOrder.String() + "/transition"

	rec := serve(TransitionOrder(svc, testLogger), newRequest(http.MethodPost, path, `{"status":"APPROVED","note":"ok"}`, true, testOrder.String()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.OrderID != testOrder || captured.To != enums.PurchaseOrderStatusApproved || captured.Note != "ok" {
		t.Fatalf("unexpected input %+v", captured)
	}

	rec = serve(TransitionOrder(svc, testLogger), newRequest(http.MethodPost, path, `{"status":"rejected"}`, true, testOrder.String()))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	code, _, details := decodeError(t, rec)
	if code != string(pkgerrors.CodeStateConflict) || details["current"] != "rejected" {
		t.Fatalf("unexpected error %s %v", code, details)
	}

	rec = serve(TransitionOrder(svc, testLogger), newRequest(http.MethodPost, path, `{"status":"shipped"}`, true, testOrder.String()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}

	rec = serve(TransitionOrder(svc, testLogger), newRequest(http.MethodPost, "/api/v1/purchase-orders/nope/transition", `{"status":"approved"}`, true, "nope"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad order id, got %d", rec.Code)
	}
}

func TestDeleteOrder(t *testing.T) {
	var deleted uuid.UUID
	svc := stubOrderService{del: func(_ context.Context, in purchaseorders.DeleteInput) error {
		deleted = in.OrderID
		return nil
	}}
	rec := serve(DeleteOrder(svc, testLogger), newRequest(http.MethodDelete, "/api/v1/purchase-orders/"+testOrder.String(), "", true, testOrder.String()))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if deleted != testOrder {
		t.Fatalf("deleted %s, want %s", deleted, testOrder)
	}
}

func TestRecordPayment(t *testing.T) {
	path := "/api/v1/purchase-orders/" + testOrder.String() + "/payments"
	var captured payments.RecordInput
	svc := stubPaymentService{record: func(_ context.Context, in payments.RecordInput) (*payments.Result, error) {
		captured = in
		if in.Amount.GreaterThan(decimal.NewFromInt(50)) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, payments.ErrOverpaymentRejected, "payment exceeds remaining balance").
				WithDetails(map[string]any{"remaining_balance": "50.00", "attempted_amount": in.Amount.StringFixed(2)})
		}
		return &payments.Result{TotalPaid: decimal.NewFromInt(110), IsFullyPaid: true}, nil
	}}

	rec := serve(RecordPayment(svc, testLogger), newRequest(http.MethodPost, path, `{"amount":"50","payment_method":"Bank_Transfer","reference_number":" TX-1 "}`, true, testOrder.String()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Method != enums.PaymentMethodBankTransfer || captured.Reference != "TX-1" || captured.OrderID != testOrder {
		t.Fatalf("unexpected input %+v", captured)
	}

	rec = serve(RecordPayment(svc, testLogger), newRequest(http.MethodPost, path, `{"amount":"60","payment_method":"cash"}`, true, testOrder.String()))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	_, _, details := decodeError(t, rec)
	if details["remaining_balance"] != "50.00" || details["attempted_amount"] != "60.00" {
		t.Fatalf("unexpected details %v", details)
	}

	rec = serve(RecordPayment(svc, testLogger), newRequest(http.MethodPost, path, `{"amount":"10","payment_method":"barter"}`, true, testOrder.String()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown method, got %d", rec.Code)
	}

	rec = serve(RecordPayment(svc, testLogger), newRequest(http.MethodPost, path, `{"amount":"10.005","payment_method":"cash"}`, true, testOrder.String()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for sub-cent amount, got %d", rec.Code)
	}
}

func TestTransferStock(t *testing.T) {
	path := "/api/v1/purchase-orders/" + testOrder.String() + "/transfers"
	rice := uuid.New()
	var captured stocktransfers.TransferInput
	svc := stubTransferService{
		transfer: func(_ context.Context, in stocktransfers.TransferInput) (*stocktransfers.TransferResult, error) {
			captured = in
			if in.Items[0].Quantity > 4 {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock: available 4, requested 10")
			}
			return &stocktransfers.TransferResult{PurchaseOrderID: in.OrderID}, nil
		},
		list: func(context.Context, purchaseorders.Actor, uuid.UUID) ([]purchaseorders.TransferDTO, error) {
			return []purchaseorders.TransferDTO{{ID: uuid.New(), Quantity: 4}}, nil
		},
	}

	rec := serve(TransferStock(svc, testLogger), newRequest(http.MethodPost, path, `{"items":[{"product_id":"`+rice.String()+`","quantity":4,"notes":"pallet 1"}]}`, true, testOrder.String()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(captured.Items) != 1 || captured.Items[0].ProductID != rice || captured.Items[0].Notes != "pallet 1" {
		t.Fatalf("unexpected input %+v", captured)
	}

	rec = serve(TransferStock(svc, testLogger), newRequest(http.MethodPost, path, `{"items":[{"product_id":"`+rice.String()+`","quantity":10}]}`, true, testOrder.String()))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if _, msg, _ := decodeError(t, rec); msg != "insufficient stock: available 4, requested 10" {
		t.Fatalf("unexpected message %q", msg)
	}

	rec = serve(ListTransfers(svc, testLogger), newRequest(http.MethodGet, path, "", true, testOrder.String()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
