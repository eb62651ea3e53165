package basket

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/internal/orders"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
)

// Repository exposes persistence operations for the basket order.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a basket repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// GetOrCreateBasket returns the user's basket, creating it when missing.
// Concurrent creators converge on the row that won the partial unique index.
func (r *Repository) GetOrCreateBasket(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	order, err := r.findBasketRow(ctx, userID)
	if err == nil {
		return order, nil
	}
	if !db.IsNotFound(err) {
		return nil, err
	}

	created := &models.Order{UserID: userID, Status: enums.OrderStatusBasket}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return r.findBasketRow(ctx, userID)
		}
		return nil, err
	}
	return created, nil
}

// FindBasket loads the basket with its item graph without creating one.
func (r *Repository) FindBasket(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := orders.PreloadDetail(r.db.WithContext(ctx)).
		Where("user_id = ? AND status = ?", userID, enums.OrderStatusBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateItem adds a line. A second line for the same listing is a conflict.
func (r *Repository) CreateItem(ctx context.Context, orderID, productInfoID uint64, quantity int) error {
	item := models.OrderItem{OrderID: orderID, ProductInfoID: productInfoID, Quantity: quantity}
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "listing already in basket")
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateItemQuantity(ctx context.Context, orderID, productInfoID uint64, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND product_info_id = ?", orderID, productInfoID).
		Update("quantity", quantity)
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteItems(ctx context.Context, orderID uint64, productInfoIDs []uint64) (int64, error) {
	if len(productInfoIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("order_id = ? AND product_info_id IN ?", orderID, productInfoIDs).
		Delete(&models.OrderItem{})
	return res.RowsAffected, res.Error
}

func (r *Repository) ListingExists(ctx context.Context, productInfoID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductInfo{}).
		Where("id = ?", productInfoID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) findBasketRow(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.OrderStatusBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
