package purchaseorders

import (
	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox"
)

// Actor is the user performing an operation and the shop they act for.
type Actor struct {
	UserID uuid.UUID
	ShopID uuid.UUID
}

// Validate rejects an actor without a user or shop context.
func (a Actor) Validate() error {
	if a.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if a.ShopID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	return nil
}

// OutboxRef is the actor as recorded on emitted events.
func (a Actor) OutboxRef() *outbox.ActorRef {
	shopID := a.ShopID
	return &outbox.ActorRef{UserID: a.UserID, ShopID: &shopID}
}

// PartyOf reports which side of the order shopID is on. ok is false when the
// shop is neither buyer nor seller.
func PartyOf(order *models.PurchaseOrder, shopID uuid.UUID) (party enums.OrderParty, ok bool) {
	if order == nil || shopID == uuid.Nil {
		return "", false
	}
	switch shopID {
	case order.BuyerShopID:
		return enums.OrderPartyBuyer, true
	case order.SellerShopID:
		return enums.OrderPartySeller, true
	default:
		return "", false
	}
}
