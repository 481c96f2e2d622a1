package purchaseorders

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrOrderNotEditable  = errors.New("order not editable")
	ErrSellerUnavailable = errors.New("seller unavailable")
	ErrNotOrderParty     = errors.New("shop is not a party to the order")
	ErrWrongParty        = errors.New("operation belongs to the other party")
)

// TransitionError is the typed form of an invalid transition.
type TransitionError struct {
	Current   enums.PurchaseOrderStatus
	Requested enums.PurchaseOrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move purchase order from %s to %s", e.Current, e.Requested)
}

// Is lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func invalidTransition(current, requested enums.PurchaseOrderStatus) *pkgerrors.Error {
	cause := &TransitionError{Current: current, Requested: requested}
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, cause, cause.Error()).
		WithDetails(map[string]any{
			"current":   current,
			"requested": requested,
		})
}

func orderNotEditable(status enums.PurchaseOrderStatus) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrOrderNotEditable, fmt.Sprintf("purchase order is %s; only pending orders can be changed", status)).
		WithDetails(map[string]any{
			"current":  status,
			"required": enums.PurchaseOrderStatusPending,
		})
}

func sellerUnavailable(sellerShopID uuid.UUID) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrSellerUnavailable, "seller shop is missing or not active").
		WithDetails(map[string]any{"seller_shop_id": sellerShopID})
}

// NotOrderParty is returned when the acting shop is neither buyer nor seller.
func NotOrderParty(shopID uuid.UUID) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrNotOrderParty, "shop is not a party to this purchase order").
		WithDetails(map[string]any{"shop_id": shopID})
}

// WrongParty is returned when the acting shop is on the wrong side of the order.
func WrongParty(required enums.OrderParty) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrWrongParty, fmt.Sprintf("only the %s shop can perform this operation", required)).
		WithDetails(map[string]any{"required_party": required})
}

// OrderNotFound is the shared not-found error for purchase orders.
func OrderNotFound(orderID uuid.UUID) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found").
		WithDetails(map[string]any{"purchase_order_id": orderID})
}
