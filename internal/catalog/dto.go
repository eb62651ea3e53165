package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/gosha22008/orders-backend/pkg/db/models"
)

// ShopDTO is the public shape of a shop.
type ShopDTO struct {
	ID    uint64  `json:"id"`
	Name  string  `json:"name"`
	URL   *string `json:"url,omitempty"`
	State bool    `json:"state"`
}

// CategoryDTO lists a category and the shops that carry it.
type CategoryDTO struct {
	ID    uint64   `json:"id"`
	Name  string   `json:"name"`
	Shops []uint64 `json:"shops"`
}

// ProductDTO is the shared product a listing points at.
type ProductDTO struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ParameterDTO is one name/value characteristic of a listing.
type ParameterDTO struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

// ListingDTO is a shop specific offer of a product.
type ListingDTO struct {
	ID         uint64          `json:"id"`
	ExternalID uint64          `json:"external_id"`
	Model      string          `json:"model"`
	Product    ProductDTO      `json:"product"`
	Shop       ShopDTO         `json:"shop"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	PriceRRC   decimal.Decimal `json:"price_rrc"`
	Parameters []ParameterDTO  `json:"product_parameters"`
}

// ListingPage is a cursor page of listings.
type ListingPage struct {
	Items      []ListingDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ShopFromModel maps a shop row.
func ShopFromModel(s *models.Shop) ShopDTO {
	if s == nil {
		return ShopDTO{}
	}
	return ShopDTO{ID: s.ID, Name: s.Name, URL: s.URL, State: s.State}
}

// CategoryFromModel maps a category row with its preloaded shops.
func CategoryFromModel(c models.Category) CategoryDTO {
	shops := make([]uint64, 0, len(c.Shops))
	for _, shop := range c.Shops {
		shops = append(shops, shop.ID)
	}
	return CategoryDTO{ID: c.ID, Name: c.Name, Shops: shops}
}

// ListingFromModel maps a listing row. Missing relations map to zero values.
func ListingFromModel(p *models.ProductInfo) ListingDTO {
	if p == nil {
		return ListingDTO{}
	}
	dto := ListingDTO{
		ID:         p.ID,
		ExternalID: p.ExternalID,
		Model:      p.Model,
		Shop:       ShopFromModel(p.Shop),
		Quantity:   p.Quantity,
		Price:      p.Price,
		PriceRRC:   p.PriceRRC,
		Parameters: make([]ParameterDTO, 0, len(p.ProductParameters)),
	}
	if p.Product != nil {
		dto.Product = ProductDTO{ID: p.Product.ID, Name: p.Product.Name}
		if p.Product.Category != nil {
			dto.Product.Category = p.Product.Category.Name
		}
	}
	for _, pp := range p.ProductParameters {
		name := ""
		if pp.Parameter != nil {
			name = pp.Parameter.Name
		}
		dto.Parameters = append(dto.Parameters, ParameterDTO{Parameter: name, Value: pp.Value})
	}
	return dto
}
