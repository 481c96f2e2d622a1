package payments

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

var (
	ErrOrderNotApprovedOrCompleted = errors.New("order not approved or completed")
	ErrOverpaymentRejected         = errors.New("overpayment rejected")
)

func orderNotPayable(status enums.PurchaseOrderStatus) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrOrderNotApprovedOrCompleted, fmt.Sprintf("payments require an approved or completed order; order is %s", status)).
		WithDetails(map[string]any{
			"current":  status,
			"required": []enums.PurchaseOrderStatus{enums.PurchaseOrderStatusApproved, enums.PurchaseOrderStatusCompleted},
		})
}

func overpayment(remaining, attempted decimal.Decimal) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrOverpaymentRejected, fmt.Sprintf("payment of %s exceeds remaining balance %s", attempted.StringFixed(2), remaining.StringFixed(2))).
		WithDetails(map[string]any{
			"remaining_balance": remaining.StringFixed(2),
			"attempted_amount":  attempted.StringFixed(2),
		})
}
