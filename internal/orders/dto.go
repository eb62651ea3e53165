package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gosha22008/orders-backend/internal/catalog"
	"github.com/gosha22008/orders-backend/internal/contacts"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
)

// OrderItemDTO is one line of an order or basket.
type OrderItemDTO struct {
	ID          uint64             `json:"id"`
	ProductInfo catalog.ListingDTO `json:"product_info"`
	Quantity    int                `json:"quantity"`
	Sum         decimal.Decimal    `json:"sum"`
}

// OrderDTO is the read model of an order. TotalSum is computed on read.
type OrderDTO struct {
	ID        uint64               `json:"id"`
	Status    enums.OrderStatus    `json:"status"`
	CreatedAt time.Time            `json:"dt"`
	Contact   *contacts.ContactDTO `json:"contact,omitempty"`
	Items     []OrderItemDTO       `json:"ordered_items"`
	TotalSum  decimal.Decimal      `json:"total_sum"`
}

// PlaceOrderRequest is the POST /order body.
type PlaceOrderRequest struct {
	ID      uint64 `json:"id" validate:"required"`
	Contact uint64 `json:"contact" validate:"required"`
}

// FromModel maps an order with its loaded items. The total covers exactly
// the items that were loaded.
func FromModel(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:        o.ID,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		Contact:   contacts.FromModel(o.Contact),
		Items:     make([]OrderItemDTO, 0, len(o.Items)),
	}
	for i := range o.Items {
		item := &o.Items[i]
		line := OrderItemDTO{
			ID:          item.ID,
			ProductInfo: catalog.ListingFromModel(item.ProductInfo),
			Quantity:    item.Quantity,
		}
		line.Sum = LineTotal(item)
		dto.Items = append(dto.Items, line)
	}
	dto.TotalSum = Total(o.Items)
	return dto
}

// LineTotal is quantity times the listing price.
func LineTotal(item *models.OrderItem) decimal.Decimal {
	if item == nil || item.ProductInfo == nil {
		return decimal.Zero
	}
	return item.ProductInfo.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Total sums the line totals of items.
func Total(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(LineTotal(&items[i]))
	}
	return total
}
