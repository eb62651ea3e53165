package importer

import (
	"time"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
)

// Result counts what one import wrote.
type Result struct {
	ShopID     uint64 `json:"shop_id"`
	Categories int    `json:"categories"`
	Goods      int    `json:"goods"`
	Parameters int    `json:"parameters"`
	Replaced   int64  `json:"listings_replaced"`
}

// JobDTO is the polling view of an import job.
type JobDTO struct {
	ID                 uuid.UUID          `json:"id"`
	Status             enums.ImportStatus `json:"status"`
	Done               bool               `json:"done"`
	Source             enums.ImportSource `json:"source"`
	ShopName           string             `json:"shop"`
	ShopID             *uint64            `json:"shop_id,omitempty"`
	CategoriesImported int                `json:"categories_imported"`
	GoodsImported      int                `json:"goods_imported"`
	ParametersImported int                `json:"parameters_imported"`
	ListingsReplaced   int64              `json:"listings_replaced"`
	Error              *string            `json:"error,omitempty"`
	StartedAt          *time.Time         `json:"started_at,omitempty"`
	FinishedAt         *time.Time         `json:"finished_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

func JobFromModel(j *models.ImportJob) *JobDTO {
	if j == nil {
		return nil
	}
	return &JobDTO{
		ID:                 j.ID,
		Status:             j.Status,
		Done:               j.Done(),
		Source:             j.Source,
		ShopName:           j.ShopName,
		ShopID:             j.ShopID,
		CategoriesImported: j.CategoriesImported,
		GoodsImported:      j.GoodsImported,
		ParametersImported: j.ParametersImported,
		ListingsReplaced:   j.ListingsReplaced,
		Error:              j.Error,
		StartedAt:          j.StartedAt,
		FinishedAt:         j.FinishedAt,
		CreatedAt:          j.CreatedAt,
	}
}
