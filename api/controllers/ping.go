package controllers

import (
	"net/http"

	"github.com/shopbridge/shopbridge-backend/api/middleware"
	"github.com/shopbridge/shopbridge-backend/api/responses"
)

// Whoami echoes the identity the access token resolved to.
func Whoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"user_id": middleware.UserIDFromContext(r.Context())}
		if shop := middleware.ShopIDFromContext(r.Context()); shop != "" {
			payload["active_shop_id"] = shop
		}
		responses.WriteSuccess(w, payload)
	}
}
