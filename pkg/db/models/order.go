package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/enums"
)

// Order doubles as the shopping basket while Status is basket.
type Order struct {
	ID        uint64            `gorm:"column:id;primaryKey"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'basket'"`
	ContactID *uint64           `gorm:"column:contact_id"`
	Contact   *Contact          `gorm:"foreignKey:ContactID"`
	Items     []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

type OrderItem struct {
	ID            uint64       `gorm:"column:id;primaryKey"`
	OrderID       uint64       `gorm:"column:order_id;not null"`
	ProductInfoID uint64       `gorm:"column:product_info_id;not null"`
	Quantity      int          `gorm:"column:quantity;not null"`
	ProductInfo   *ProductInfo `gorm:"foreignKey:ProductInfoID"`
}

// Contact is a delivery address book entry.
type Contact struct {
	ID        uint64    `gorm:"column:id;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Phone     string    `gorm:"column:phone;not null"`
	City      string    `gorm:"column:city;not null"`
	Street    string    `gorm:"column:street;not null"`
	House     string    `gorm:"column:house;not null"`
	Structure *string   `gorm:"column:structure"`
	Building  *string   `gorm:"column:building"`
	Apartment *string   `gorm:"column:apartment"`
}
