package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/db/dbtest"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
)

func seedUser(t *testing.T, conn *gorm.DB, email string) uuid.UUID {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "x", AccountType: enums.AccountTypeShop}
	require.NoError(t, conn.Create(&user).Error)
	return user.ID
}

func seedListing(t *testing.T, repo *Repository, shopID, categoryID, externalID uint64, name, price string) uint64 {
	t.Helper()
	ctx := context.Background()
	productID, err := repo.UpsertProduct(ctx, name, categoryID)
	require.NoError(t, err)
	id, err := repo.CreateListing(ctx, NewListing{
		ProductID:  productID,
		ShopID:     shopID,
		ExternalID: externalID,
		Model:      "model/" + name,
		Quantity:   3,
		Price:      decimal.RequireFromString(price),
		PriceRRC:   decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return id
}

func TestUpsertShopIsIdempotent(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	first, err := repo.UpsertShop(ctx, "Связной")
	require.NoError(t, err)
	second, err := repo.UpsertShop(ctx, "Связной")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	shop, err := repo.FindShopByID(ctx, first)
	require.NoError(t, err)
	assert.True(t, shop.State)

	_, err = repo.UpsertShop(ctx, "  ")
	assert.Error(t, err)
}

func TestUpsertCategoryRenames(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	id, err := repo.UpsertCategory(ctx, 224, "Смартфоны")
	require.NoError(t, err)
	require.EqualValues(t, 224, id)

	_, err = repo.UpsertCategory(ctx, 224, "Телефоны")
	require.NoError(t, err)

	var category models.Category
	require.NoError(t, conn.First(&category, 224).Error)
	assert.Equal(t, "Телефоны", category.Name)
}

func TestAttachCategoryToShopOnce(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	shopID, err := repo.UpsertShop(ctx, "shop")
	require.NoError(t, err)
	_, err = repo.UpsertCategory(ctx, 1, "phones")
	require.NoError(t, err)

	require.NoError(t, repo.AttachCategoryToShop(ctx, 1, shopID))
	require.NoError(t, repo.AttachCategoryToShop(ctx, 1, shopID))

	var count int64
	require.NoError(t, conn.Model(&models.ShopCategory{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	require.Len(t, categories[0].Shops, 1)
	assert.Equal(t, shopID, categories[0].Shops[0].ID)
}

func TestUpsertProductByNameAndCategory(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	_, err := repo.UpsertCategory(ctx, 1, "phones")
	require.NoError(t, err)
	_, err = repo.UpsertCategory(ctx, 2, "cases")
	require.NoError(t, err)

	a, err := repo.UpsertProduct(ctx, "iPhone", 1)
	require.NoError(t, err)
	b, err := repo.UpsertProduct(ctx, "iPhone", 1)
	require.NoError(t, err)
	c, err := repo.UpsertProduct(ctx, "iPhone", 2)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCreateListingDuplicateIsConflict(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	shopID, err := repo.UpsertShop(ctx, "shop")
	require.NoError(t, err)
	_, err = repo.UpsertCategory(ctx, 1, "phones")
	require.NoError(t, err)

	seedListing(t, repo, shopID, 1, 4216292, "iPhone", "110000")
	productID, err := repo.UpsertProduct(ctx, "iPhone", 1)
	require.NoError(t, err)

	_, err = repo.CreateListing(ctx, NewListing{ProductID: productID, ShopID: shopID, ExternalID: 4216292, Price: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestProductParametersAndReplace(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	shopID, err := repo.UpsertShop(ctx, "shop")
	require.NoError(t, err)
	otherShop, err := repo.UpsertShop(ctx, "other")
	require.NoError(t, err)
	_, err = repo.UpsertCategory(ctx, 1, "phones")
	require.NoError(t, err)

	listingID := seedListing(t, repo, shopID, 1, 1, "iPhone", "100")
	seedListing(t, repo, shopID, 1, 2, "Galaxy", "90")
	otherListing := seedListing(t, repo, otherShop, 1, 1, "iPhone", "95")

	paramID, err := repo.UpsertParameter(ctx, "Цвет")
	require.NoError(t, err)
	again, err := repo.UpsertParameter(ctx, "Цвет")
	require.NoError(t, err)
	assert.Equal(t, paramID, again)

	require.NoError(t, repo.CreateProductParameter(ctx, listingID, paramID, "black"))
	require.NoError(t, repo.CreateProductParameter(ctx, otherListing, paramID, "white"))
	err = repo.CreateProductParameter(ctx, listingID, paramID, "red")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	listing, err := repo.FindListing(ctx, listingID)
	require.NoError(t, err)
	require.Len(t, listing.ProductParameters, 1)
	assert.Equal(t, "Цвет", listing.ProductParameters[0].Parameter.Name)
	assert.Equal(t, "phones", listing.Product.Category.Name)

	deleted, err := repo.ReplaceListingsForShop(ctx, shopID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.ProductInfo{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)
	require.NoError(t, conn.Model(&models.ProductParameter{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)
}

func TestBindShopOwnerOnlyWhenUnowned(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := seedUser(t, conn, "owner@example.com")
	intruder := seedUser(t, conn, "intruder@example.com")

	shopID, err := repo.UpsertShop(ctx, "shop")
	require.NoError(t, err)

	claimed, err := repo.BindShopOwner(ctx, shopID, owner)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.BindShopOwner(ctx, shopID, intruder)
	require.NoError(t, err)
	assert.False(t, claimed)

	shop, err := repo.FindShopByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, shopID, shop.ID)
}

func TestSearchListingsFilters(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	open, err := repo.UpsertShop(ctx, "open")
	require.NoError(t, err)
	closed, err := repo.UpsertShop(ctx, "closed")
	require.NoError(t, err)
	require.NoError(t, repo.UpdateShopState(ctx, closed, false))
	_, err = repo.UpsertCategory(ctx, 1, "phones")
	require.NoError(t, err)
	_, err = repo.UpsertCategory(ctx, 2, "cases")
	require.NoError(t, err)

	first := seedListing(t, repo, open, 1, 1, "Apple iPhone XS", "100")
	second := seedListing(t, repo, open, 2, 2, "iPhone case 100%", "10")
	seedListing(t, repo, closed, 1, 3, "Apple iPhone XR", "80")

	all, err := repo.SearchListings(ctx, ListingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].ID)
	require.NotNil(t, all[0].Shop)
	assert.Equal(t, "open", all[0].Shop.Name)

	byQuery, err := repo.SearchListings(ctx, ListingFilter{Query: "IPHONE"})
	require.NoError(t, err)
	assert.Len(t, byQuery, 2)

	literal, err := repo.SearchListings(ctx, ListingFilter{Query: "100%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, second, literal[0].ID)

	category := uint64(2)
	byCategory, err := repo.SearchListings(ctx, ListingFilter{CategoryID: &category})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	after, err := repo.SearchListings(ctx, ListingFilter{AfterID: first, Limit: 5})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, second, after[0].ID)

	// SQLite LOWER only folds ASCII; Postgres uses ILIKE (see nameMatch).
	cyrillic := seedListing(t, repo, open, 1, 4, "Apple смартфон", "90")
	byCyrillic, err := repo.SearchListings(ctx, ListingFilter{Query: "СМАРТФОН"})
	require.NoError(t, err)
	require.Len(t, byCyrillic, 1)
	assert.Equal(t, cyrillic, byCyrillic[0].ID)

	shops, err := repo.ListOpenShops(ctx)
	require.NoError(t, err)
	require.Len(t, shops, 1)
	assert.Equal(t, "open", shops[0].Name)
}

func TestUpdateShopStateMissing(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.UpdateShopState(context.Background(), 99, true)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNameMatchUsesILIKEOnPostgres(t *testing.T) {
	clause, arg := nameMatch("postgres", "СМАРТ_фон")
	assert.Equal(t, `products.name ILIKE ? ESCAPE '\'`, clause)
	assert.Equal(t, `%смарт\_фон%`, arg)

	clause, _ = nameMatch("sqlite", "x")
	assert.Equal(t, `LOWER(products.name) LIKE ? ESCAPE '\'`, clause)
}
