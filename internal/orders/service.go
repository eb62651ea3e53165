package orders

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type shopFinder interface {
	FindShopByOwner(ctx context.Context, userID uuid.UUID) (*models.Shop, error)
}

// Service covers placement and read access to orders.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, orderID, contactID uint64) (*OrderDTO, error)
	ListPlacedOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	ListPartnerOrders(ctx context.Context, shopUserID uuid.UUID) ([]OrderDTO, error)
	GetOrder(ctx context.Context, userID uuid.UUID, orderID uint64) (*OrderDTO, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	shops  shopFinder
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, shops shopFinder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if shops == nil {
		return nil, fmt.Errorf("shop finder required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		shops:  shops,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// PlaceOrder turns the user's basket into a new order bound to contactID and
// queues the confirmation e-mail through the outbox.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, orderID, contactID uint64) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == 0 || contactID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and contact are required")
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindContact(ctx, userID, contactID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contact")
		}

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusNew) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a basket").
				WithDetails(map[string]any{"status": order.Status})
		}

		count, err := repo.CountItems(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count basket items")
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "basket is empty")
		}

		ok, err := repo.PlaceBasket(ctx, userID, orderID, contactID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a basket")
		}

		placed, err = repo.FindPlacedForUser(ctx, userID, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   strconv.FormatUint(orderID, 10),
			Actor:         &outbox.ActorRef{UserID: userID},
			OccurredAt:    s.now().UTC(),
			Data: payloads.OrderPlacedEvent{
				OrderID:   orderID,
				UserID:    userID,
				ContactID: contactID,
				TotalSum:  Total(placed.Items).StringFixed(2),
				ItemCount: len(placed.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, orderID)
	s.logg.Info(ctx, "order placed")

	dto := FromModel(placed)
	return &dto, nil
}

func (s *service) ListPlacedOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListPlaced(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return mapOrders(rows), nil
}

// ListPartnerOrders returns placed orders that contain the account's shop
// listings. Items and totals cover only that shop's share.
func (s *service) ListPartnerOrders(ctx context.Context, shopUserID uuid.UUID) ([]OrderDTO, error) {
	shop, err := s.shops.FindShopByOwner(ctx, shopUserID)
	if err != nil {
		if db.IsNotFound(err) {
			return []OrderDTO{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	rows, err := s.repo.ListForShop(ctx, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list partner orders")
	}
	return mapOrders(rows), nil
}

func (s *service) GetOrder(ctx context.Context, userID uuid.UUID, orderID uint64) (*OrderDTO, error) {
	order, err := s.repo.FindPlacedForUser(ctx, userID, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	dto := FromModel(order)
	return &dto, nil
}

func mapOrders(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
