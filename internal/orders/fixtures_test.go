package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/internal/catalog"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
)

type seeder struct {
	t       *testing.T
	conn    *gorm.DB
	catalog *catalog.Repository
}

func newSeeder(t *testing.T, conn *gorm.DB) *seeder {
	return &seeder{t: t, conn: conn, catalog: catalog.NewRepository(conn)}
}

func (s *seeder) user(email string, accountType enums.AccountType) uuid.UUID {
	s.t.Helper()
	user := models.User{Email: email, PasswordHash: "x", AccountType: accountType, IsActive: true}
	require.NoError(s.t, s.conn.Create(&user).Error)
	return user.ID
}

// shop creates a shop owned by owner with one category.
func (s *seeder) shop(name string, owner uuid.UUID) uint64 {
	s.t.Helper()
	ctx := context.Background()
	id, err := s.catalog.UpsertShop(ctx, name)
	require.NoError(s.t, err)
	bound, err := s.catalog.BindShopOwner(ctx, id, owner)
	require.NoError(s.t, err)
	require.True(s.t, bound)
	_, err = s.catalog.UpsertCategory(ctx, 1, "Phones")
	require.NoError(s.t, err)
	return id
}

func (s *seeder) listing(shopID, externalID uint64, name, price string) uint64 {
	s.t.Helper()
	ctx := context.Background()
	productID, err := s.catalog.UpsertProduct(ctx, name, 1)
	require.NoError(s.t, err)
	id, err := s.catalog.CreateListing(ctx, catalog.NewListing{
		ProductID:  productID,
		ShopID:     shopID,
		ExternalID: externalID,
		Model:      "m/" + name,
		Quantity:   10,
		Price:      decimal.RequireFromString(price),
		PriceRRC:   decimal.RequireFromString(price),
	})
	require.NoError(s.t, err)
	return id
}

func (s *seeder) contact(userID uuid.UUID) uint64 {
	s.t.Helper()
	contact := models.Contact{UserID: userID, Phone: "+7000", City: "Moscow", Street: "Lenina", House: "1"}
	require.NoError(s.t, s.conn.Create(&contact).Error)
	return contact.ID
}

// order creates an order in status with quantity per listing id.
func (s *seeder) order(userID uuid.UUID, status enums.OrderStatus, lines map[uint64]int) uint64 {
	s.t.Helper()
	order := models.Order{UserID: userID, Status: status}
	require.NoError(s.t, s.conn.Create(&order).Error)
	for listingID, qty := range lines {
		require.NoError(s.t, s.conn.Create(&models.OrderItem{
			OrderID:       order.ID,
			ProductInfoID: listingID,
			Quantity:      qty,
		}).Error)
	}
	return order.ID
}
