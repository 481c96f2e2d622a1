package product

import (
	"errors"
	"fmt"

	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

// ErrInsufficientStock means a product holds less stock than requested.
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError reports the available and requested quantities.
func InsufficientStockError(productID fmt.Stringer, available, requested int) *pkgerrors.Error {
	return pkgerrors.Wrap(
		pkgerrors.CodeConflict,
		ErrInsufficientStock,
		fmt.Sprintf("insufficient stock: available %d, requested %d", available, requested),
	).WithDetails(map[string]any{
		"product_id": productID.String(),
		"available":  available,
		"requested":  requested,
	})
}
