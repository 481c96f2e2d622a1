package purchasing

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/api/middleware"
	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

// actorFromRequest reads the caller and the shop the token acts for.
func actorFromRequest(r *http.Request) (purchaseorders.Actor, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return purchaseorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	shopID := middleware.ShopIDFromContext(r.Context())
	if shopID == "" {
		return purchaseorders.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "active shop missing")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return purchaseorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	sid, err := uuid.Parse(shopID)
	if err != nil {
		return purchaseorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid shop id")
	}
	return purchaseorders.Actor{UserID: uid, ShopID: sid}, nil
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}
