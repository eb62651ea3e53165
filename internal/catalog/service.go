package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/pagination"
)

type catalogRepository interface {
	SearchListings(ctx context.Context, filter ListingFilter) ([]models.ProductInfo, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListOpenShops(ctx context.Context) ([]models.Shop, error)
	FindShopByOwner(ctx context.Context, userID uuid.UUID) (*models.Shop, error)
	UpdateShopState(ctx context.Context, shopID uint64, state bool) error
}

// SearchParams filters the public product search.
type SearchParams struct {
	Query      string
	ShopID     *uint64
	CategoryID *uint64
	Limit      int
	Cursor     string
}

// Service exposes the catalog reads and the partner state toggle.
type Service interface {
	SearchProducts(ctx context.Context, params SearchParams) (*ListingPage, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListShops(ctx context.Context) ([]ShopDTO, error)
	GetPartnerState(ctx context.Context, userID uuid.UUID) (*ShopDTO, error)
	SetPartnerState(ctx context.Context, userID uuid.UUID, raw string) (*ShopDTO, error)
}

type service struct {
	repo catalogRepository
}

// NewService builds the catalog service.
func NewService(repo catalogRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) SearchProducts(ctx context.Context, params SearchParams) (*ListingPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ListingFilter{
		Query:      params.Query,
		ShopID:     params.ShopID,
		CategoryID: params.CategoryID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
	}
	if cursor != nil {
		filter.AfterID = cursor.ID
	}

	rows, err := s.repo.SearchListings(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search listings")
	}
	rows, next := pagination.Page(rows, params.Limit, func(p models.ProductInfo) uint64 { return p.ID })

	page := &ListingPage{Items: make([]ListingDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		page.Items = append(page.Items, ListingFromModel(&rows[i]))
	}
	return page, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryFromModel(row))
	}
	return out, nil
}

func (s *service) ListShops(ctx context.Context) ([]ShopDTO, error) {
	rows, err := s.repo.ListOpenShops(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shops")
	}
	out := make([]ShopDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ShopFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) GetPartnerState(ctx context.Context, userID uuid.UUID) (*ShopDTO, error) {
	shop, err := s.ownedShop(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := ShopFromModel(shop)
	return &dto, nil
}

func (s *service) SetPartnerState(ctx context.Context, userID uuid.UUID, raw string) (*ShopDTO, error) {
	state, err := ParseState(raw)
	if err != nil {
		return nil, err
	}
	shop, err := s.ownedShop(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateShopState(ctx, shop.ID, state); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop state")
	}
	shop.State = state
	dto := ShopFromModel(shop)
	return &dto, nil
}

func (s *service) ownedShop(ctx context.Context, userID uuid.UUID) (*models.Shop, error) {
	shop, err := s.repo.FindShopByOwner(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no shop bound to this account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	return shop, nil
}
