package middleware

import (
	"net/http"

	"github.com/shopbridge/shopbridge-backend/api/responses"
	pkgAuth "github.com/shopbridge/shopbridge-backend/pkg/auth"
	"github.com/shopbridge/shopbridge-backend/pkg/config"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
	"github.com/shopbridge/shopbridge-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// user and the shop the token was issued for.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	verifier, verifierErr := pkgAuth.NewVerifier(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifierErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, verifierErr, "token verification not configured"))
				return
			}

			token, err := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing credentials"))
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}
			if shop := claims.ActiveShopID; shop != nil {
				ctx = WithShopID(ctx, shop.String())
				if logg != nil {
					ctx = logg.WithShopID(ctx, shop.String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ShopContext rejects requests whose token carries no active shop.
func ShopContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ShopIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "active shop missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
