package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shop is a supplier storefront. State gates visibility and ordering.
type Shop struct {
	ID     uint64     `gorm:"column:id;primaryKey"`
	Name   string     `gorm:"column:name;not null;uniqueIndex"`
	URL    *string    `gorm:"column:url"`
	State  bool       `gorm:"column:state;not null;default:true"`
	UserID *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`
}

// Category ids come from supplier feeds, so they are assigned explicitly.
type Category struct {
	ID    uint64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name  string `gorm:"column:name;not null"`
	Shops []Shop `gorm:"many2many:shop_categories;joinForeignKey:CategoryID;joinReferences:ShopID"`
}

// ShopCategory is the join row between shops and categories.
type ShopCategory struct {
	ShopID     uint64 `gorm:"column:shop_id;primaryKey"`
	CategoryID uint64 `gorm:"column:category_id;primaryKey"`
}

func (ShopCategory) TableName() string { return "shop_categories" }

type Product struct {
	ID         uint64    `gorm:"column:id;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	CategoryID uint64    `gorm:"column:category_id;not null"`
	Category   *Category `gorm:"foreignKey:CategoryID"`
}

// ProductInfo is a per-shop listing of a product. (product, shop, external_id)
// is the natural key used by re-imports.
type ProductInfo struct {
	ID                uint64             `gorm:"column:id;primaryKey"`
	ProductID         uint64             `gorm:"column:product_id;not null"`
	ShopID            uint64             `gorm:"column:shop_id;not null"`
	ExternalID        uint64             `gorm:"column:external_id;not null"`
	Model             string             `gorm:"column:model;not null;default:''"`
	Quantity          int                `gorm:"column:quantity;not null;default:0"`
	Price             decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	PriceRRC          decimal.Decimal    `gorm:"column:price_rrc;type:numeric(12,2);not null;default:0"`
	Product           *Product           `gorm:"foreignKey:ProductID"`
	Shop              *Shop              `gorm:"foreignKey:ShopID"`
	ProductParameters []ProductParameter `gorm:"foreignKey:ProductInfoID;constraint:OnDelete:CASCADE"`
}

type Parameter struct {
	ID   uint64 `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;not null;uniqueIndex"`
}

type ProductParameter struct {
	ID            uint64     `gorm:"column:id;primaryKey"`
	ProductInfoID uint64     `gorm:"column:product_info_id;not null"`
	ParameterID   uint64     `gorm:"column:parameter_id;not null"`
	Value         string     `gorm:"column:value;not null;default:''"`
	Parameter     *Parameter `gorm:"foreignKey:ParameterID"`
}
