package purchaseorders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/internal/memberships"
	product "github.com/shopbridge/shopbridge-backend/internal/products"
	"github.com/shopbridge/shopbridge-backend/internal/shops"
	"github.com/shopbridge/shopbridge-backend/pkg/db"
	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
	"github.com/shopbridge/shopbridge-backend/pkg/metrics"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox/payloads"
	"github.com/shopbridge/shopbridge-backend/pkg/pagination"
)

const defaultReferenceAttempts = 5

// Service runs the purchase order lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*OrderDetail, error)
	UpdateItems(ctx context.Context, input UpdateItemsInput) (*OrderDetail, error)
	Transition(ctx context.Context, input TransitionInput) (*OrderDetail, error)
	Delete(ctx context.Context, input DeleteInput) error
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
}

// ServiceParams wires the workflow's collaborators.
type ServiceParams struct {
	Tx                db.TxRunner
	Auth              memberships.Authorizer
	Repo              *Repository
	Products          *product.Repository
	Shops             *shops.Repository
	Outbox            outbox.Emitter
	Logger            *logger.Logger
	Metrics           *metrics.OperationMetrics
	Clock             func() time.Time
	ReferenceAttempts int
	References        ReferenceGenerator
}

type service struct {
	tx                db.TxRunner
	auth              memberships.Authorizer
	repo              *Repository
	products          *product.Repository
	shops             *shops.Repository
	outbox            outbox.Emitter
	logg              *logger.Logger
	metrics           *metrics.OperationMetrics
	clock             func() time.Time
	referenceAttempts int
	references        ReferenceGenerator
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Auth == nil {
		return nil, fmt.Errorf("authorizer required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop repository required")
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
	attempts := params.ReferenceAttempts
	if attempts <= 0 {
		attempts = defaultReferenceAttempts
	}
	references := params.References
	if references == nil {
		references = NewReferenceNumber
	}
	return &service{
		tx:                params.Tx,
		auth:              params.Auth,
		repo:              params.Repo,
		products:          params.Products,
		shops:             params.Shops,
		outbox:            params.Outbox,
		logg:              params.Logger,
		metrics:           params.Metrics,
		clock:             params.Clock,
		referenceAttempts: attempts,
		references:        references,
	}, nil
}

func (s *service) now() time.Time {
	return s.clock().UTC()
}

func (s *service) Create(ctx context.Context, input CreateInput) (_ *OrderDetail, err error) {
	done := s.metrics.Track("purchase_order.create")
	defer func() { done(err) }()

	if err := input.Actor.Validate(); err != nil {
		return nil, err
	}
	if input.SellerShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller shop id required")
	}
	if input.SellerShopID == input.Actor.ShopID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller shops must differ")
	}
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	now := s.now()
	var detail *OrderDetail
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.auth.WithTx(tx).Require(ctx, input.Actor.UserID, input.Actor.ShopID, enums.CapabilityManagePurchases); err != nil {
			return err
		}

		seller, err := s.shops.WithTx(tx).FindByID(ctx, input.SellerShopID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller shop")
		}
		if !shops.IsTrading(seller) {
			return sellerUnavailable(input.SellerShopID)
		}

		catalog, err := s.products.WithTx(tx).FindByIDs(ctx, itemProductIDs(input.Items))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		items, total, err := buildItems(input.Items, seller.ID, catalog, now)
		if err != nil {
			return err
		}

		reference, err := s.allocateReference(ctx, repo, now)
		if err != nil {
			return err
		}

		order := &models.PurchaseOrder{
			ReferenceNumber: reference,
			BuyerShopID:     input.Actor.ShopID,
			SellerShopID:    seller.ID,
			Status:          enums.PurchaseOrderStatusPending,
			TotalAmount:     total,
			TotalPaid:       decimal.Zero,
			Notes:           strings.TrimSpace(input.Notes),
			CreatedByUserID: input.Actor.UserID,
			Items:           items,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "reference number already taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}

		if err := s.emit(ctx, tx, input.Actor, order.ID, enums.EventPurchaseOrderCreated, now, payloads.PurchaseOrderCreatedEvent{
			PurchaseOrderID: order.ID,
			ReferenceNumber: order.ReferenceNumber,
			BuyerShopID:     order.BuyerShopID,
			SellerShopID:    order.SellerShopID,
			TotalAmount:     order.TotalAmount,
			ItemCount:       len(order.Items),
		}); err != nil {
			return err
		}

		detail = buildDetail(*order, enums.OrderPartyBuyer, nil, nil)
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "purchase order create failed", input.Actor, uuid.Nil, err)
		return nil, err
	}

	s.logChange(ctx, "purchase order created", input.Actor, detail)
	return detail, nil
}

func (s *service) allocateReference(ctx context.Context, repo *Repository, now time.Time) (string, error) {
	for attempt := 0; attempt < s.referenceAttempts; attempt++ {
		candidate, err := s.references(now)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reference number")
		}
		exists, err := repo.ReferenceExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check reference number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique reference number").
		WithDetails(map[string]any{"attempts": s.referenceAttempts})
}

func (s *service) UpdateItems(ctx context.Context, input UpdateItemsInput) (_ *OrderDetail, err error) {
	done := s.metrics.Track("purchase_order.update_items")
	defer func() { done(err) }()

	if err := input.Actor.Validate(); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	now := s.now()
	var detail *OrderDetail
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockForParty(ctx, repo, input.OrderID, input.Actor)
		if err != nil {
			return err
		}
		if order.BuyerShopID != input.Actor.ShopID {
			return WrongParty(enums.OrderPartyBuyer)
		}
		if err := s.auth.WithTx(tx).Require(ctx, input.Actor.UserID, input.Actor.ShopID, enums.CapabilityManagePurchases); err != nil {
			return err
		}
		if order.Status != enums.PurchaseOrderStatusPending {
			return orderNotEditable(order.Status)
		}

		catalog, err := s.products.WithTx(tx).FindByIDs(ctx, itemProductIDs(input.Items))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		items, total, err := buildItems(input.Items, order.SellerShopID, catalog, now)
		if err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, order.ID, items, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace purchase order items")
		}
		if err := repo.UpdateFields(ctx, order.ID, map[string]any{
			"total_amount": total,
			"notes":        appendNote(order.Notes, input.Notes),
			"updated_at":   now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}

		if err := s.emit(ctx, tx, input.Actor, order.ID, enums.EventPurchaseOrderUpdated, now, payloads.PurchaseOrderUpdatedEvent{
			PurchaseOrderID: order.ID,
			ReferenceNumber: order.ReferenceNumber,
			BuyerShopID:     order.BuyerShopID,
			SellerShopID:    order.SellerShopID,
			TotalAmount:     total,
			ItemCount:       len(items),
		}); err != nil {
			return err
		}

		detail, err = s.loadDetail(ctx, repo, order.ID, enums.OrderPartyBuyer)
		return err
	})
	if err != nil {
		s.logFailure(ctx, "purchase order update failed", input.Actor, input.OrderID, err)
		return nil, err
	}

	s.logChange(ctx, "purchase order items replaced", input.Actor, detail)
	return detail, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (_ *OrderDetail, err error) {
	done := s.metrics.Track("purchase_order.transition")
	defer func() { done(err) }()

	if err := input.Actor.Validate(); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	if !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown purchase order status").
			WithDetails(map[string]any{"requested": input.To})
	}

	now := s.now()
	var (
		detail *OrderDetail
		from   enums.PurchaseOrderStatus
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockForParty(ctx, repo, input.OrderID, input.Actor)
		if err != nil {
			return err
		}
		party, _ := PartyOf(order, input.Actor.ShopID)
		from = order.Status

		rule, ok := ruleFor(order.Status, input.To)
		if !ok {
			return invalidTransition(order.Status, input.To)
		}
		if !rule.permits(party) {
			return WrongParty(rule.party)
		}
		auth := s.auth.WithTx(tx)
		if rule.capability != "" {
			err = auth.Require(ctx, input.Actor.UserID, input.Actor.ShopID, rule.capability)
		} else {
			err = auth.RequireMember(ctx, input.Actor.UserID, input.Actor.ShopID)
		}
		if err != nil {
			return err
		}

		updates := map[string]any{
			"status":     input.To,
			"notes":      appendNote(order.Notes, input.Note),
			"updated_at": now,
		}
		switch input.To {
		case enums.PurchaseOrderStatusApproved:
			updates["approved_by_user_id"] = input.Actor.UserID
			updates["approved_at"] = now
		case enums.PurchaseOrderStatusRejected:
			updates["rejected_at"] = now
		case enums.PurchaseOrderStatusCancelled:
			updates["cancelled_at"] = now
		case enums.PurchaseOrderStatusCompleted:
			updates["completed_at"] = now
		}
		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order status")
		}

		if err := s.emit(ctx, tx, input.Actor, order.ID, enums.EventPurchaseOrderStatusChanged, now, payloads.PurchaseOrderStatusChangedEvent{
			PurchaseOrderID: order.ID,
			ReferenceNumber: order.ReferenceNumber,
			BuyerShopID:     order.BuyerShopID,
			SellerShopID:    order.SellerShopID,
			From:            order.Status,
			To:              input.To,
			ActingShopID:    input.Actor.ShopID,
			ChangedAt:       now,
		}); err != nil {
			return err
		}

		detail, err = s.loadDetail(ctx, repo, order.ID, party)
		return err
	})
	if err != nil {
		s.logFailure(ctx, "purchase order transition failed", input.Actor, input.OrderID, err)
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"from_status": from, "to_status": input.To})
	s.logChange(logCtx, "purchase order status changed", input.Actor, detail)
	return detail, nil
}

func (s *service) Delete(ctx context.Context, input DeleteInput) (err error) {
	done := s.metrics.Track("purchase_order.delete")
	defer func() { done(err) }()

	if err := input.Actor.Validate(); err != nil {
		return err
	}
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}

	now := s.now()
	var reference string
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockForParty(ctx, repo, input.OrderID, input.Actor)
		if err != nil {
			return err
		}
		if order.BuyerShopID != input.Actor.ShopID {
			return WrongParty(enums.OrderPartyBuyer)
		}
		if err := s.auth.WithTx(tx).RequireMember(ctx, input.Actor.UserID, input.Actor.ShopID); err != nil {
			return err
		}
		if order.Status != enums.PurchaseOrderStatusPending {
			return orderNotEditable(order.Status)
		}
		if err := repo.SoftDelete(ctx, order.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete purchase order")
		}
		reference = order.ReferenceNumber

		return s.emit(ctx, tx, input.Actor, order.ID, enums.EventPurchaseOrderDeleted, now, payloads.PurchaseOrderDeletedEvent{
			PurchaseOrderID: order.ID,
			ReferenceNumber: order.ReferenceNumber,
			BuyerShopID:     order.BuyerShopID,
			SellerShopID:    order.SellerShopID,
			DeletedAt:       now,
		})
	})
	if err != nil {
		s.logFailure(ctx, "purchase order delete failed", input.Actor, input.OrderID, err)
		return err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, input.OrderID.String()), map[string]any{
		"reference_number": reference,
		"shop_id":          input.Actor.ShopID.String(),
	})
	s.logg.Info(logCtx, "purchase order deleted")
	return nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}
	if order == nil {
		return nil, OrderNotFound(orderID)
	}
	party, ok := PartyOf(order, actor.ShopID)
	if !ok {
		return nil, NotOrderParty(actor.ShopID)
	}
	if err := s.auth.RequireMember(ctx, actor.UserID, actor.ShopID); err != nil {
		return nil, err
	}
	payments, err := s.repo.Payments(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase payments")
	}
	transfers, err := s.repo.Transfers(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock transfers")
	}
	return buildDetail(*order, party, payments, transfers), nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if err := input.Actor.Validate(); err != nil {
		return nil, err
	}
	party := input.Party
	if party == "" {
		party = enums.OrderPartyAny
	}
	if !party.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be buyer, seller or any")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown purchase order status")
	}
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if err := s.auth.RequireMember(ctx, input.Actor.UserID, input.Actor.ShopID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListOrders(ctx, ListFilter{
		ShopID: input.Actor.ShopID,
		Party:  party,
		Status: input.Status,
		Cursor: cursor,
		Limit:  input.Params.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}
	page, next := pagination.Trim(rows, input.Params.Limit, func(o models.PurchaseOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	ids := make([]uuid.UUID, 0, len(page))
	for _, order := range page {
		ids = append(ids, order.ID)
	}
	counts, err := s.repo.CountItems(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count purchase order items")
	}

	out := make([]OrderSummary, 0, len(page))
	for _, order := range page {
		out = append(out, toSummary(order, counts[order.ID]))
	}
	return &ListResult{Orders: out, NextCursor: next}, nil
}

// lockForParty locks the order and checks the actor's shop is buyer or seller.
func (s *service) lockForParty(ctx context.Context, repo *Repository, orderID uuid.UUID, actor Actor) (*models.PurchaseOrder, error) {
	order, err := repo.LockOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase order")
	}
	if order == nil {
		return nil, OrderNotFound(orderID)
	}
	if _, ok := PartyOf(order, actor.ShopID); !ok {
		return nil, NotOrderParty(actor.ShopID)
	}
	return order, nil
}

func (s *service) loadDetail(ctx context.Context, repo *Repository, orderID uuid.UUID, party enums.OrderParty) (*OrderDetail, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload purchase order")
	}
	if order == nil {
		return nil, OrderNotFound(orderID)
	}
	payments, err := repo.Payments(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase payments")
	}
	transfers, err := repo.Transfers(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock transfers")
	}
	return buildDetail(*order, party, payments, transfers), nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, orderID uuid.UUID, eventType enums.OutboxEventType, now time.Time, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   orderID,
		Actor:         actor.OutboxRef(),
		Data:          data,
		OccurredAt:    now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue "+string(eventType))
	}
	return nil
}

func (s *service) logChange(ctx context.Context, msg string, actor Actor, detail *OrderDetail) {
	logCtx := s.logg.WithOrderID(ctx, detail.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"reference_number": detail.ReferenceNumber,
		"status":           detail.Status,
		"shop_id":          actor.ShopID.String(),
		"user_id":          actor.UserID.String(),
	})
	s.logg.Info(logCtx, msg)
}

func (s *service) logFailure(ctx context.Context, msg string, actor Actor, orderID uuid.UUID, err error) {
	fields := map[string]any{
		"shop_id": actor.ShopID.String(),
		"user_id": actor.UserID.String(),
	}
	if orderID != uuid.Nil {
		fields["purchase_order_id"] = orderID.String()
	}
	logCtx := s.logg.WithFields(ctx, fields)
	if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
		logCtx = s.logg.WithField(logCtx, "error_code", typed.Code())
		s.logg.Warn(logCtx, msg+": "+typed.Message())
		return
	}
	s.logg.Error(logCtx, msg, err)
}
