package importer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
)

// JobRepository persists import_jobs rows.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository binds a GORM DB to import job operations.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *JobRepository) WithTx(tx *gorm.DB) *JobRepository {
	return &JobRepository{db: tx}
}

// Create inserts a pending job.
func (r *JobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// FindByID loads a job.
func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindForUser loads a job owned by userID.
func (r *JobRepository) FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.db.WithContext(ctx).
		Where("id = ? AND shop_user_id = ?", id, userID).
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkRunning moves a pending job to running. It reports false when another
// worker already claimed the job.
func (r *JobRepository) MarkRunning(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", id, enums.ImportStatusPending).
		Updates(map[string]any{
			"status":     enums.ImportStatusRunning,
			"started_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkSucceeded stores the counters of a finished import.
func (r *JobRepository) MarkSucceeded(ctx context.Context, id uuid.UUID, result Result, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              enums.ImportStatusSucceeded,
			"shop_id":             result.ShopID,
			"categories_imported": result.Categories,
			"goods_imported":      result.Goods,
			"parameters_imported": result.Parameters,
			"listings_replaced":   result.Replaced,
			"error":               nil,
			"finished_at":         at,
			"updated_at":          at,
		}).Error
}

// MarkFailed records the failure message of a job.
func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.ImportStatusFailed,
			"error":       message,
			"finished_at": at,
			"updated_at":  at,
		}).Error
}

// FailStale fails running or pending jobs last touched before cutoff.
func (r *JobRepository) FailStale(ctx context.Context, cutoff time.Time, message string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("status IN ? AND updated_at < ?", []enums.ImportStatus{enums.ImportStatusPending, enums.ImportStatusRunning}, cutoff).
		Updates(map[string]any{
			"status":      enums.ImportStatusFailed,
			"error":       message,
			"finished_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}
