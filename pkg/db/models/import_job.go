package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/enums"
)

// ImportJob records one asynchronous price-list import.
type ImportJob struct {
	UUIDKey
	ShopUserID         uuid.UUID          `gorm:"column:shop_user_id;type:uuid;not null;index"`
	ShopID             *uint64            `gorm:"column:shop_id"`
	ShopName           string             `gorm:"column:shop_name;not null"`
	Status             enums.ImportStatus `gorm:"column:status;type:import_status;not null;default:'pending'"`
	Source             enums.ImportSource `gorm:"column:source;not null"`
	Feed               string             `gorm:"column:feed;type:text;not null"`
	CategoriesImported int                `gorm:"column:categories_imported;not null;default:0"`
	GoodsImported      int                `gorm:"column:goods_imported;not null;default:0"`
	ParametersImported int                `gorm:"column:parameters_imported;not null;default:0"`
	ListingsReplaced   int64              `gorm:"column:listings_replaced;not null;default:0"`
	Error              *string            `gorm:"column:error"`
	StartedAt          *time.Time         `gorm:"column:started_at"`
	FinishedAt         *time.Time         `gorm:"column:finished_at"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Done reports whether the job reached a terminal status.
func (j ImportJob) Done() bool {
	return j.Status == enums.ImportStatusSucceeded || j.Status == enums.ImportStatusFailed
}
