package basket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/internal/orders"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

type basketRepository interface {
	GetOrCreateBasket(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	FindBasket(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	CreateItem(ctx context.Context, orderID, productInfoID uint64, quantity int) error
	UpdateItemQuantity(ctx context.Context, orderID, productInfoID uint64, quantity int) (int64, error)
	DeleteItems(ctx context.Context, orderID uint64, productInfoIDs []uint64) (int64, error)
	ListingExists(ctx context.Context, productInfoID uint64) (bool, error)
}

// Service manages the single open basket of a user.
type Service interface {
	View(ctx context.Context, userID uuid.UUID) (*orders.OrderDTO, error)
	AddItems(ctx context.Context, userID uuid.UUID, items []json.RawMessage) (*AddResult, error)
	UpdateQuantities(ctx context.Context, userID uuid.UUID, items []json.RawMessage) (*UpdateResult, error)
	RemoveItems(ctx context.Context, userID uuid.UUID, items []json.RawMessage) (*RemoveResult, error)
}

type service struct {
	repo basketRepository
	logg *logger.Logger
}

func NewService(repo basketRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("basket repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

// View returns the basket with computed totals, or nil when the user has none.
func (s *service) View(ctx context.Context, userID uuid.UUID) (*orders.OrderDTO, error) {
	basket, err := s.repo.FindBasket(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load basket")
	}
	dto := orders.FromModel(basket)
	return &dto, nil
}

func (s *service) AddItems(ctx context.Context, userID uuid.UUID, items []json.RawMessage) (*AddResult, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items are required")
	}
	basket, err := s.basket(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &AddResult{}
	for i, raw := range items {
		var item addItem
		if err := json.Unmarshal(raw, &item); err != nil || item.ProductInfo == nil || item.Quantity == nil {
			result.Errors = append(result.Errors, itemError(i, pkgerrors.CodeValidation, "product_info and quantity must be integers"))
			continue
		}
		if *item.Quantity < 1 {
			result.Errors = append(result.Errors, itemError(i, pkgerrors.CodeValidation, "quantity must be at least 1"))
			continue
		}
		exists, err := s.repo.ListingExists(ctx, *item.ProductInfo)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check listing")
		}
		if !exists {
			result.Errors = append(result.Errors, itemError(i, pkgerrors.CodeNotFound, "listing not found"))
			continue
		}
		if err := s.repo.CreateItem(ctx, basket.ID, *item.ProductInfo, *item.Quantity); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				result.Errors = append(result.Errors, itemError(i, pkgerrors.CodeConflict, "listing already in basket"))
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add basket item")
		}
		result.Created++
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": basket.ID,
		"created":  result.Created,
		"skipped":  len(result.Errors),
	}), "basket items added")
	return result, nil
}

// UpdateQuantities sets quantities of lines addressed by listing id.
func (s *service) UpdateQuantities(ctx context.Context, userID uuid.UUID, items []json.RawMessage) (*UpdateResult, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items are required")
	}
	basket, err := s.basket(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{}
	for i, raw := range items {
		var item quantityItem
		if err := json.Unmarshal(raw, &item); err != nil || item.ID == nil || item.Quantity == nil {
			result.Errors = append(result.Errors, itemError(i, pkgerrors.CodeValidation, "id and quantity must be integers"))
			continue
		}
		if *item.Quantity < 1 {
			result.Errors = append(result.Errors, itemError(i, pkgerrors.CodeValidation, "quantity must be at least 1"))
			continue
		}
		rows, err := s.repo.UpdateItemQuantity(ctx, basket.ID, *item.ID, *item.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update basket item")
		}
		if rows == 0 {
			result.Errors = append(result.Errors, itemError(i, pkgerrors.CodeNotFound, "listing not in basket"))
			continue
		}
		result.Updated += int(rows)
	}
	return result, nil
}

// RemoveItems deletes lines by listing id.
func (s *service) RemoveItems(ctx context.Context, userID uuid.UUID, items []json.RawMessage) (*RemoveResult, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items are required")
	}

	result := &RemoveResult{}
	ids := make([]uint64, 0, len(items))
	for i, raw := range items {
		var id uint64
		if err := json.Unmarshal(raw, &id); err != nil {
			result.Errors = append(result.Errors, itemError(i, pkgerrors.CodeValidation, "item must be an integer listing id"))
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return result, nil
	}

	basket, err := s.basket(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.DeleteItems(ctx, basket.ID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove basket items")
	}
	result.Deleted = int(rows)
	return result, nil
}

func (s *service) basket(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	basket, err := s.repo.GetOrCreateBasket(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load basket")
	}
	return basket, nil
}

func itemError(index int, code pkgerrors.Code, message string) ItemError {
	return ItemError{Index: index, Code: code, Message: message}
}
