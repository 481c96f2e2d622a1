package stocktransfers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/internal/memberships"
	product "github.com/shopbridge/shopbridge-backend/internal/products"
	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	"github.com/shopbridge/shopbridge-backend/pkg/db"
	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
	"github.com/shopbridge/shopbridge-backend/pkg/metrics"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox/payloads"
)

// Service moves stock from a seller's products into the buyer's catalog.
type Service interface {
	TransferStock(ctx context.Context, input TransferInput) (*TransferResult, error)
	List(ctx context.Context, actor purchaseorders.Actor, orderID uuid.UUID) ([]purchaseorders.TransferDTO, error)
}

// ServiceParams wires the engine's collaborators.
type ServiceParams struct {
	Tx        db.TxRunner
	Auth      memberships.Authorizer
	Orders    *purchaseorders.Repository
	Products  *product.Repository
	Transfers *Repository
	Outbox    outbox.Emitter
	Logger    *logger.Logger
	Metrics   *metrics.OperationMetrics
	Clock     func() time.Time
	Policy    enums.TransferPolicy
}

type service struct {
	tx        db.TxRunner
	auth      memberships.Authorizer
	orders    *purchaseorders.Repository
	products  *product.Repository
	transfers *Repository
	outbox    outbox.Emitter
	logg      *logger.Logger
	metrics   *metrics.OperationMetrics
	clock     func() time.Time
	policy    enums.TransferPolicy
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Auth == nil {
		return nil, fmt.Errorf("authorizer required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Transfers == nil {
		return nil, fmt.Errorf("transfer repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Clock == nil {
		return nil, fmt.Errorf("clock required")
	}
	policy := params.Policy
	if policy == "" {
		policy = enums.TransferPolicyStrict
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("unknown transfer policy %q", policy)
	}
	return &service{
		tx:        params.Tx,
		auth:      params.Auth,
		orders:    params.Orders,
		products:  params.Products,
		transfers: params.Transfers,
		outbox:    params.Outbox,
		logg:      params.Logger,
		metrics:   params.Metrics,
		clock:     params.Clock,
		policy:    policy,
	}, nil
}

// TransferStock runs the whole batch in one transaction. Seller products are
// locked in ascending id order before any line is applied; a failing line
// rolls back every line before it.
func (s *service) TransferStock(ctx context.Context, input TransferInput) (_ *TransferResult, err error) {
	done := s.metrics.Track("stock.transfer")
	defer func() { done(err) }()

	if err := validateTransferInput(input); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	var (
		result *TransferResult
		order  *models.PurchaseOrder
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		products := s.products.WithTx(tx)
		receipts := s.transfers.WithTx(tx)

		var err error
		order, err = orders.LockOrder(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase order")
		}
		if order == nil {
			return purchaseorders.OrderNotFound(input.OrderID)
		}
		if order.SellerShopID != input.Actor.ShopID {
			return notSeller(input.Actor.ShopID)
		}
		if err := s.auth.WithTx(tx).Require(ctx, input.Actor.UserID, input.Actor.ShopID, enums.CapabilityTransferStock); err != nil {
			return err
		}
		if order.Status != enums.PurchaseOrderStatusApproved {
			return notApproved(order.Status)
		}

		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, line := range input.Items {
			ids = append(ids, line.ProductID)
		}
		locked, err := products.LockManyForUpdate(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock seller products")
		}
		// Ownership is settled for every line before quantities are compared,
		// so a foreign product is reported as such under either policy.
		for _, line := range input.Items {
			source, ok := locked[line.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "seller product not found").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
			if source.ShopID != order.SellerShopID {
				return productNotOwned(source.ID, order.SellerShopID)
			}
		}
		if s.policy == enums.TransferPolicyStrict {
			if err := checkOrderedQuantities(ctx, orders, order.ID, input.Items); err != nil {
				return err
			}
		}

		result = &TransferResult{
			PurchaseOrderID: order.ID,
			Transfers:       make([]purchaseorders.TransferDTO, 0, len(input.Items)),
		}
		lines := make([]payloads.StockTransferredLine, 0, len(input.Items))
		for i, line := range input.Items {
			source := locked[line.ProductID]
			receipt, err := s.moveLine(ctx, products, order, source, line, input.Actor.UserID, now.Add(time.Duration(i)*time.Microsecond))
			if err != nil {
				return err
			}
			if err := receipts.Insert(ctx, receipt); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert transfer receipt")
			}
			result.Transfers = append(result.Transfers, purchaseorders.TransferToDTO(*receipt))
			lines = append(lines, payloads.StockTransferredLine{
				TransferID:          receipt.ID,
				SellerProductID:     receipt.ProductID,
				BuyerProductID:      receipt.BuyerProductID,
				BuyerProductCreated: receipt.BuyerProductCreated,
				Quantity:            receipt.Quantity,
			})
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockTransferred,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor.OutboxRef(),
			OccurredAt:    now,
			Data: payloads.StockTransferredEvent{
				PurchaseOrderID: order.ID,
				BuyerShopID:     order.BuyerShopID,
				SellerShopID:    order.SellerShopID,
				Lines:           lines,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue stock transfer event")
		}
		return nil
	})

	logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"shop_id":    input.Actor.ShopID.String(),
		"user_id":    input.Actor.UserID.String(),
		"line_count": len(input.Items),
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
			s.logg.Warn(s.logg.WithField(logCtx, "error_code", typed.Code()), "stock transfer rejected: "+typed.Message())
		} else {
			s.logg.Error(logCtx, "stock transfer failed", err)
		}
		return nil, err
	}
	s.logg.Info(s.logg.WithField(logCtx, "reference_number", order.ReferenceNumber), "stock transferred")
	return result, nil
}

// moveLine decrements an owned seller product and credits the buyer's matching
// product, creating it from the seller's when the buyer has none.
func (s *service) moveLine(ctx context.Context, products *product.Repository, order *models.PurchaseOrder, source models.Product, line LineInput, userID uuid.UUID, at time.Time) (*models.StockTransfer, error) {
	if source.CurrentStock < line.Quantity {
		return nil, product.InsufficientStockError(source.ID, source.CurrentStock, line.Quantity)
	}
	if err := products.Decrement(ctx, source.ID, line.Quantity); err != nil {
		if errors.Is(err, product.ErrInsufficientStock) {
			return nil, product.InsufficientStockError(source.ID, source.CurrentStock, line.Quantity)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement seller stock")
	}

	target, err := products.FindByIdentityForUpdate(ctx, order.BuyerShopID, source.Name, source.SKU)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock buyer product")
	}
	created := false
	if target != nil {
		if err := products.Increment(ctx, target.ID, line.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment buyer stock")
		}
	} else {
		copied := product.CopyForShop(source, order.BuyerShopID, line.Quantity)
		copied.CreatedAt = at
		copied.UpdatedAt = at
		target, err = products.Create(ctx, &copied)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeContention, err, "buyer product created by a concurrent transfer")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create buyer product")
		}
		created = true
	}

	return &models.StockTransfer{
		PurchaseOrderID:     order.ID,
		ProductID:           source.ID,
		BuyerProductID:      target.ID,
		BuyerProductCreated: created,
		Quantity:            line.Quantity,
		Notes:               optional(line.Notes),
		TransferredByUserID: userID,
		TransferredAt:       at,
		CreatedAt:           at,
	}, nil
}

// checkOrderedQuantities rejects lines for products not on the order and
// lines that would push the cumulative transferred quantity past the ordered
// quantity.
func checkOrderedQuantities(ctx context.Context, orders *purchaseorders.Repository, orderID uuid.UUID, lines []LineInput) error {
	items, err := orders.Items(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order items")
	}
	ordered := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		ordered[item.ProductID] += item.Quantity
	}
	transferred, err := orders.TransferredByProduct(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum transferred quantities")
	}
	for _, line := range lines {
		want := ordered[line.ProductID]
		moved := transferred[line.ProductID]
		if want == 0 || moved+line.Quantity > want {
			return exceedsOrdered(line.ProductID, want, moved, line.Quantity)
		}
	}
	return nil
}

func (s *service) List(ctx context.Context, actor purchaseorders.Actor, orderID uuid.UUID) ([]purchaseorders.TransferDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}
	if order == nil {
		return nil, purchaseorders.OrderNotFound(orderID)
	}
	if _, ok := purchaseorders.PartyOf(order, actor.ShopID); !ok {
		return nil, purchaseorders.NotOrderParty(actor.ShopID)
	}
	if err := s.auth.RequireMember(ctx, actor.UserID, actor.ShopID); err != nil {
		return nil, err
	}
	rows, err := s.orders.Transfers(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock transfers")
	}
	out := make([]purchaseorders.TransferDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, purchaseorders.TransferToDTO(row))
	}
	return out, nil
}

func validateTransferInput(input TransferInput) error {
	if err := input.Actor.Validate(); err != nil {
		return err
	}
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for i, line := range input.Items {
		details := map[string]any{"index": i, "product_id": line.ProductID}
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required").WithDetails(details)
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").WithDetails(details)
		}
		if _, dup := seen[line.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "product listed more than once").WithDetails(details)
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
