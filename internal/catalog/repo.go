package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
)

// Repository is the catalog store. Every write is an idempotent
// upsert-by-natural-key except CreateListing and CreateProductParameter,
// which report duplicates as CONFLICT.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to catalog operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// NewListing holds the fields of a single shop listing.
type NewListing struct {
	ProductID  uint64
	ShopID     uint64
	ExternalID uint64
	Model      string
	Quantity   int
	Price      decimal.Decimal
	PriceRRC   decimal.Decimal
}

// UpsertShop returns the id of the shop named name, creating it if needed.
func (r *Repository) UpsertShop(ctx context.Context, name string) (uint64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("shop name is required")
	}
	shop := models.Shop{Name: name, State: true}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&shop).Error; err != nil {
		return 0, err
	}
	var existing models.Shop
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err != nil {
		return 0, err
	}
	return existing.ID, nil
}

// UpsertCategory creates the category with the explicit id or renames it.
func (r *Repository) UpsertCategory(ctx context.Context, id uint64, name string) (uint64, error) {
	if id == 0 {
		return 0, fmt.Errorf("category id is required")
	}
	category := models.Category{ID: id, Name: name}
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).
		Create(&category).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AttachCategoryToShop adds the category to the shop's set if absent.
func (r *Repository) AttachCategoryToShop(ctx context.Context, categoryID, shopID uint64) error {
	link := models.ShopCategory{ShopID: shopID, CategoryID: categoryID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

// UpsertProduct get-or-creates a product by (name, category).
func (r *Repository) UpsertProduct(ctx context.Context, name string, categoryID uint64) (uint64, error) {
	product := models.Product{Name: name, CategoryID: categoryID}
	if err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "category_id"}},
			DoNothing: true,
		}).
		Create(&product).Error; err != nil {
		return 0, err
	}
	var existing models.Product
	if err := r.db.WithContext(ctx).
		Where("name = ? AND category_id = ?", name, categoryID).
		First(&existing).Error; err != nil {
		return 0, err
	}
	return existing.ID, nil
}

// ReplaceListingsForShop deletes every listing of the shop together with its
// parameter values and returns how many listings were removed.
func (r *Repository) ReplaceListingsForShop(ctx context.Context, shopID uint64) (int64, error) {
	listings := r.db.Model(&models.ProductInfo{}).Select("id").Where("shop_id = ?", shopID)
	if err := r.db.WithContext(ctx).
		Where("product_info_id IN (?)", listings).
		Delete(&models.ProductParameter{}).Error; err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Where("shop_id = ?", shopID).Delete(&models.ProductInfo{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CreateListing inserts a listing; an existing (product, shop, external id)
// is a CONFLICT.
func (r *Repository) CreateListing(ctx context.Context, in NewListing) (uint64, error) {
	listing := &models.ProductInfo{
		ProductID:  in.ProductID,
		ShopID:     in.ShopID,
		ExternalID: in.ExternalID,
		Model:      in.Model,
		Quantity:   in.Quantity,
		Price:      in.Price,
		PriceRRC:   in.PriceRRC,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return 0, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "listing already exists").
				WithDetails(map[string]any{"external_id": listing.ExternalID})
		}
		return 0, err
	}
	return listing.ID, nil
}

// UpsertParameter get-or-creates a parameter by name.
func (r *Repository) UpsertParameter(ctx context.Context, name string) (uint64, error) {
	param := models.Parameter{Name: name}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&param).Error; err != nil {
		return 0, err
	}
	var existing models.Parameter
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err != nil {
		return 0, err
	}
	return existing.ID, nil
}

// CreateProductParameter stores a parameter value for a listing.
func (r *Repository) CreateProductParameter(ctx context.Context, productInfoID, parameterID uint64, value string) error {
	row := models.ProductParameter{ProductInfoID: productInfoID, ParameterID: parameterID, Value: value}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "parameter already set for listing").
				WithDetails(map[string]any{"product_info": productInfoID, "parameter": parameterID})
		}
		return err
	}
	return nil
}

// BindShopOwner sets the shop owner when the shop has none. It reports
// whether the row was claimed.
func (r *Repository) BindShopOwner(ctx context.Context, shopID uint64, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ? AND user_id IS NULL", shopID).
		Update("user_id", userID)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, "") {
			return false, pkgerrors.Wrap(pkgerrors.CodeConflict, res.Error, "account already owns a shop")
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindShopByID loads a shop.
func (r *Repository) FindShopByID(ctx context.Context, id uint64) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// FindShopByOwner loads the shop owned by userID.
func (r *Repository) FindShopByOwner(ctx context.Context, userID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// UpdateShopState toggles whether the shop accepts orders.
func (r *Repository) UpdateShopState(ctx context.Context, shopID uint64, state bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", shopID).
		UpdateColumn("state", state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListOpenShops returns shops that currently accept orders.
func (r *Repository) ListOpenShops(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	if err := r.db.WithContext(ctx).
		Where("state = ?", true).
		Order("name ASC").
		Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

// ListCategories returns all categories with their shops.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).
		Preload("Shops").
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ListingFilter narrows SearchListings.
type ListingFilter struct {
	Query      string
	ShopID     *uint64
	CategoryID *uint64
	AfterID    uint64
	Limit      int
}

// SearchListings returns listings of open shops ordered by id.
func (r *Repository) SearchListings(ctx context.Context, filter ListingFilter) ([]models.ProductInfo, error) {
	q := r.db.WithContext(ctx).
		Model(&models.ProductInfo{}).
		Select("product_infos.*").
		Joins("JOIN shops ON shops.id = product_infos.shop_id").
		Joins("JOIN products ON products.id = product_infos.product_id").
		Where("shops.state = ?", true)

	if query := strings.TrimSpace(filter.Query); query != "" {
		clause, arg := nameMatch(r.db.Dialector.Name(), query)
		q = q.Where(clause, arg)
	}
	if filter.ShopID != nil {
		q = q.Where("product_infos.shop_id = ?", *filter.ShopID)
	}
	if filter.CategoryID != nil {
		q = q.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.AfterID > 0 {
		q = q.Where("product_infos.id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var listings []models.ProductInfo
	if err := withListingPreloads(q).Order("product_infos.id ASC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// FindListing loads a single listing with its relations.
func (r *Repository) FindListing(ctx context.Context, id uint64) (*models.ProductInfo, error) {
	var listing models.ProductInfo
	if err := withListingPreloads(r.db.WithContext(ctx)).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func withListingPreloads(q *gorm.DB) *gorm.DB {
	return q.Preload("Product.Category").
		Preload("Shop").
		Preload("ProductParameters", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_parameters.id ASC")
		}).
		Preload("ProductParameters.Parameter")
}

// nameMatch builds the case-insensitive product name filter. Postgres folds
// any script with ILIKE; SQLite's LOWER only folds ASCII.
func nameMatch(dialect, query string) (string, string) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	if dialect == "postgres" {
		return `products.name ILIKE ? ESCAPE '\'`, pattern
	}
	return `LOWER(products.name) LIKE ? ESCAPE '\'`, pattern
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
