package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/internal/memberships"
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

// Service records and lists payments against purchase orders.
type Service interface {
	RecordPayment(ctx context.Context, input RecordInput) (*Result, error)
	List(ctx context.Context, actor purchaseorders.Actor, orderID uuid.UUID) ([]purchaseorders.PaymentDTO, error)
}

// ServiceParams wires the ledger's collaborators.
type ServiceParams struct {
	Tx       db.TxRunner
	Auth     memberships.Authorizer
	Orders   *purchaseorders.Repository
	Payments *Repository
	Outbox   outbox.Emitter
	Logger   *logger.Logger
	Metrics  *metrics.OperationMetrics
	Clock    func() time.Time
}

type service struct {
	tx       db.TxRunner
	auth     memberships.Authorizer
	orders   *purchaseorders.Repository
	payments *Repository
	outbox   outbox.Emitter
	logg     *logger.Logger
	metrics  *metrics.OperationMetrics
	clock    func() time.Time
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
	if params.Payments == nil {
		return nil, fmt.Errorf("payment repository required")
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
	return &service{
		tx:       params.Tx,
		auth:     params.Auth,
		orders:   params.Orders,
		payments: params.Payments,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		clock:    params.Clock,
	}, nil
}

// RecordPayment appends a payment under the order's row lock. The balance
// check and the total_paid write happen against the locked row, so
// concurrent payments can never sum past the order total.
func (s *service) RecordPayment(ctx context.Context, input RecordInput) (_ *Result, err error) {
	done := s.metrics.Track("payment.record")
	defer func() { done(err) }()

	if err := validateRecordInput(input); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	var (
		result *Result
		order  *models.PurchaseOrder
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		order, err = orders.LockOrder(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase order")
		}
		if order == nil {
			return purchaseorders.OrderNotFound(input.OrderID)
		}
		party, ok := purchaseorders.PartyOf(order, input.Actor.ShopID)
		if !ok {
			return purchaseorders.NotOrderParty(input.Actor.ShopID)
		}
		if party != enums.OrderPartyBuyer {
			return purchaseorders.WrongParty(enums.OrderPartyBuyer)
		}
		if err := s.auth.WithTx(tx).Require(ctx, input.Actor.UserID, input.Actor.ShopID, enums.CapabilityRecordPurchasePayments); err != nil {
			return err
		}
		if order.Status != enums.PurchaseOrderStatusApproved && order.Status != enums.PurchaseOrderStatusCompleted {
			return orderNotPayable(order.Status)
		}
		remaining := order.RemainingBalance()
		if input.Amount.GreaterThan(remaining) {
			return overpayment(remaining, input.Amount)
		}

		payment := &models.PurchasePayment{
			PurchaseOrderID:  order.ID,
			Amount:           input.Amount,
			Method:           input.Method,
			ReferenceNumber:  optional(input.Reference),
			Notes:            optional(input.Notes),
			RecordedByUserID: input.Actor.UserID,
			PaidAt:           now,
			CreatedAt:        now,
		}
		if err := s.payments.WithTx(tx).Insert(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert purchase payment")
		}

		order.TotalPaid = order.TotalPaid.Add(input.Amount)
		if err := orders.SetTotalPaid(ctx, order.ID, order.TotalPaid, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update total paid")
		}

		result = &Result{
			Payment:          purchaseorders.PaymentToDTO(*payment),
			TotalPaid:        order.TotalPaid,
			RemainingBalance: order.RemainingBalance(),
			IsFullyPaid:      order.IsFullyPaid(),
		}

		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchasePaymentRecorded,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor.OutboxRef(),
			OccurredAt:    now,
			Data: payloads.PurchasePaymentRecordedEvent{
				PurchaseOrderID:  order.ID,
				PaymentID:        payment.ID,
				BuyerShopID:      order.BuyerShopID,
				SellerShopID:     order.SellerShopID,
				Amount:           payment.Amount,
				Method:           payment.Method,
				TotalPaid:        result.TotalPaid,
				RemainingBalance: result.RemainingBalance,
				IsFullyPaid:      result.IsFullyPaid,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue payment event")
		}
		return nil
	})

	logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"shop_id": input.Actor.ShopID.String(),
		"user_id": input.Actor.UserID.String(),
		"amount":  input.Amount.StringFixed(2),
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
			s.logg.Warn(s.logg.WithField(logCtx, "error_code", typed.Code()), "purchase payment rejected: "+typed.Message())
		} else {
			s.logg.Error(logCtx, "purchase payment failed", err)
		}
		return nil, err
	}

	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"reference_number":  order.ReferenceNumber,
		"total_paid":        result.TotalPaid.StringFixed(2),
		"remaining_balance": result.RemainingBalance.StringFixed(2),
	})
	s.logg.Info(logCtx, "purchase payment recorded")
	return result, nil
}

func (s *service) List(ctx context.Context, actor purchaseorders.Actor, orderID uuid.UUID) ([]purchaseorders.PaymentDTO, error) {
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
	rows, err := s.orders.Payments(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase payments")
	}
	out := make([]purchaseorders.PaymentDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, purchaseorders.PaymentToDTO(row))
	}
	return out, nil
}

func validateRecordInput(input RecordInput) error {
	if err := input.Actor.Validate(); err != nil {
		return err
	}
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !input.Amount.Equal(input.Amount.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount allows at most two decimal places")
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"payment_method": input.Method})
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
