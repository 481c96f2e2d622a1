package product

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/internal/memberships"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
	"github.com/shopbridge/shopbridge-backend/pkg/pagination"
)

// Service exposes read access to shop catalogs.
type Service interface {
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListByShop(ctx context.Context, userID, shopID uuid.UUID, params pagination.Params) (*ListResult, error)
}

type service struct {
	repo *Repository
	auth memberships.Authorizer
}

// NewService builds the catalog read service.
func NewService(repo *Repository, auth memberships.Authorizer) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	if auth == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "authorizer required")
	}
	return &service{repo: repo, auth: auth}, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if p == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := ToDTO(*p)
	return &dto, nil
}

// ListByShop returns a shop's catalog. Members see every product; other
// users only see active products, which is what buyers order from.
func (s *service) ListByShop(ctx context.Context, userID, shopID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	member, err := s.auth.IsMember(ctx, userID, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop membership")
	}
	result, err := s.repo.ListByShop(ctx, shopID, !member, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}
