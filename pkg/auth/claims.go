package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	ActiveShopID *uuid.UUID
	JTI          string
}

// AccessTokenClaims represents the typed JWT issued by the identity service.
// Only the user and the shop the user is acting for are read here; roles and
// capabilities are resolved per request from shop memberships.
type AccessTokenClaims struct {
	UserID       uuid.UUID  `json:"user_id"`
	ActiveShopID *uuid.UUID `json:"active_shop_id,omitempty"`
	jwt.RegisteredClaims
}
