package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
)

// Repository defines persistence operations for placed orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orderID uint64) (*models.Order, error)
	FindContact(ctx context.Context, userID uuid.UUID, contactID uint64) (*models.Contact, error)
	CountItems(ctx context.Context, orderID uint64) (int64, error)
	PlaceBasket(ctx context.Context, userID uuid.UUID, orderID, contactID uint64) (bool, error)
	FindPlacedForUser(ctx context.Context, userID uuid.UUID, orderID uint64) (*models.Order, error)
	ListPlaced(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListForShop(ctx context.Context, shopID uint64) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, orderID uint64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindContact(ctx context.Context, userID uuid.UUID, contactID uint64) (*models.Contact, error) {
	var contact models.Contact
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contactID, userID).
		First(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *repository) CountItems(ctx context.Context, orderID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

// PlaceBasket moves the user's basket to new in a single conditional update
// and reports whether a row matched.
func (r *repository) PlaceBasket(ctx context.Context, userID uuid.UUID, orderID, contactID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND user_id = ? AND status = ?", orderID, userID, enums.OrderStatusBasket).
		Updates(map[string]any{
			"status":     enums.OrderStatusNew,
			"contact_id": contactID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindPlacedForUser(ctx context.Context, userID uuid.UUID, orderID uint64) (*models.Order, error) {
	var order models.Order
	err := PreloadDetail(r.db.WithContext(ctx)).
		Where("id = ? AND user_id = ? AND status <> ?", orderID, userID, enums.OrderStatusBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListPlaced(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := PreloadDetail(r.db.WithContext(ctx)).
		Where("user_id = ? AND status <> ?", userID, enums.OrderStatusBasket).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListForShop returns placed orders containing at least one listing of the
// shop. Only that shop's items are loaded.
func (r *repository) ListForShop(ctx context.Context, shopID uint64) ([]models.Order, error) {
	shopListings := func() *gorm.DB {
		return r.db.Model(&models.ProductInfo{}).Select("id").Where("shop_id = ?", shopID)
	}

	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Contact").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Where("product_info_id IN (?)", shopListings()).Order("id ASC")
		}).
		Preload("Items.ProductInfo.Product.Category").
		Preload("Items.ProductInfo.Shop").
		Preload("Items.ProductInfo.ProductParameters", orderedByID).
		Preload("Items.ProductInfo.ProductParameters.Parameter").
		Where("status <> ?", enums.OrderStatusBasket).
		Where("id IN (?)", r.db.Model(&models.OrderItem{}).
			Select("order_id").
			Where("product_info_id IN (?)", shopListings())).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// PreloadDetail loads contact, items and the listing graph of each item.
func PreloadDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Contact").
		Preload("Items", orderedByID).
		Preload("Items.ProductInfo.Product.Category").
		Preload("Items.ProductInfo.Shop").
		Preload("Items.ProductInfo.ProductParameters", orderedByID).
		Preload("Items.ProductInfo.ProductParameters.Parameter")
}

func orderedByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
