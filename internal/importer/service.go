package importer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/internal/catalog"
	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/lock"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/metrics"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
)

const lockScope = "import"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lockFactory interface {
	For(key string) (lock.Lock, error)
}

type lockKeyer interface {
	LockKey(scope, id string) string
}

// EnqueueRequest asks for a price-list import on behalf of a shop account.
// An empty Feed means the configured feed file is imported.
type EnqueueRequest struct {
	UserID      uuid.UUID
	AccountType enums.AccountType
	Feed        []byte
}

// ServiceParams wires the importer.
type ServiceParams struct {
	DB      txRunner
	Jobs    *JobRepository
	Outbox  outbox.Emitter
	Locks   lockFactory
	Keys    lockKeyer
	Metrics *metrics.ImportMetrics
	Config  config.ImportConfig
	Logger  *logger.Logger
}

// Service queues and runs price-list imports.
type Service struct {
	db      txRunner
	jobs    *JobRepository
	outbox  outbox.Emitter
	locks   lockFactory
	keys    lockKeyer
	metrics *metrics.ImportMetrics
	cfg     config.ImportConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService validates the importer dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Jobs == nil {
		return nil, fmt.Errorf("import job repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Locks == nil || params.Keys == nil {
		return nil, fmt.Errorf("lock factory and key builder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		db:      params.DB,
		jobs:    params.Jobs,
		outbox:  params.Outbox,
		locks:   params.Locks,
		keys:    params.Keys,
		metrics: params.Metrics,
		cfg:     params.Config,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Enqueue validates the feed, stores a pending job and emits the event the
// worker picks the job up from.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (*JobDTO, error) {
	if req.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if req.AccountType != enums.AccountTypeShop {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only shop accounts can import price lists")
	}

	data, source, err := s.feedBody(req.Feed)
	if err != nil {
		return nil, err
	}
	feed, err := ParseFeed(data)
	if err != nil {
		invalid := pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price list")
		if typed := pkgerrors.As(err); typed != nil {
			invalid = invalid.WithDetails(typed.Details())
		}
		return nil, invalid
	}

	job := &models.ImportJob{
		ShopUserID: req.UserID,
		ShopName:   feed.Shop,
		Status:     enums.ImportStatusPending,
		Source:     source,
		Feed:       string(data),
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.jobs.WithTx(tx).Create(ctx, job); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create import job")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventCatalogImportRequested,
			AggregateType: enums.AggregateImportJob,
			AggregateID:   job.ID.String(),
			Actor:         &outbox.ActorRef{UserID: req.UserID, AccountType: req.AccountType},
			Data: payloads.CatalogImportRequestedEvent{
				JobID:      job.ID,
				ShopUserID: req.UserID,
				ShopName:   feed.Shop,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit import event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithJobID(ctx, job.ID.String())
	s.logg.Info(logCtx, "catalog import queued")
	return JobFromModel(job), nil
}

func (s *Service) feedBody(upload []byte) ([]byte, enums.ImportSource, error) {
	source := enums.ImportSourceUpload
	data := upload
	if len(data) == 0 {
		if s.cfg.FeedPath == "" {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "price list body required")
		}
		raw, err := os.ReadFile(s.cfg.FeedPath)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read configured price list")
		}
		data = raw
		source = enums.ImportSourceConfigured
	}
	if s.cfg.MaxFeedBytes > 0 && int64(len(data)) > s.cfg.MaxFeedBytes {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "price list too large").
			WithDetails(map[string]any{"max_bytes": s.cfg.MaxFeedBytes})
	}
	return data, source, nil
}

// GetJob returns a job owned by userID.
func (s *Service) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*JobDTO, error) {
	job, err := s.jobs.FindForUser(ctx, userID, jobID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load import job")
	}
	return JobFromModel(job), nil
}

// Run executes a pending job and records its outcome. The returned error is
// non-nil only when the job state itself could not be read or written; an
// import failure is stored on the job.
func (s *Service) Run(ctx context.Context, jobID uuid.UUID) (*JobDTO, error) {
	logCtx := s.logg.WithJobID(ctx, jobID.String())

	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load import job")
	}
	if job.Status != enums.ImportStatusPending {
		s.logg.Info(logCtx, "import job already handled")
		return JobFromModel(job), nil
	}

	started := s.now().UTC()
	claimed, err := s.jobs.MarkRunning(ctx, job.ID, started)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark import running")
	}
	if !claimed {
		s.logg.Info(logCtx, "import job claimed elsewhere")
		return JobFromModel(job), nil
	}

	result, importErr := s.Import(ctx, job)
	finished := s.now().UTC()
	if importErr != nil {
		outcome := metrics.ImportResultFailed
		if pkgerrors.IsCode(importErr, pkgerrors.CodeStateConflict) {
			outcome = metrics.ImportResultLocked
		}
		s.metrics.Observe(outcome, finished.Sub(started), 0)
		s.logg.Error(logCtx, "catalog import failed", importErr)
		if err := s.jobs.MarkFailed(ctx, job.ID, importErr.Error(), finished); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark import failed")
		}
	} else {
		s.metrics.Observe(metrics.ImportResultSucceeded, finished.Sub(started), result.Goods)
		if err := s.jobs.MarkSucceeded(ctx, job.ID, result, finished); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark import succeeded")
		}
		s.logg.Info(s.logg.WithShopID(logCtx, result.ShopID), "catalog import finished")
	}

	updated, err := s.jobs.FindByID(ctx, job.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload import job")
	}
	return JobFromModel(updated), nil
}

// Import writes the job's feed into the catalog under the shop lock. The
// whole write is one transaction, so a failed import leaves the previous
// listings of the shop in place.
func (s *Service) Import(ctx context.Context, job *models.ImportJob) (Result, error) {
	if job == nil {
		return Result{}, fmt.Errorf("import job required")
	}
	feed, err := ParseFeed([]byte(job.Feed))
	if err != nil {
		return Result{}, err
	}

	lk, err := s.locks.For(s.keys.LockKey(lockScope, feed.Shop))
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build import lock")
	}
	acquired, err := lk.Acquire(ctx)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire import lock")
	}
	if !acquired {
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "import already running for shop").
			WithDetails(map[string]any{"shop": feed.Shop})
	}
	defer func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release import lock failed")
		}
	}()

	var result Result
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = writeFeed(ctx, catalog.NewRepository(tx), feed, job.ShopUserID)
		return err
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return Result{}, err
		}
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeImportFailed, err, "write price list")
	}
	return result, nil
}

func writeFeed(ctx context.Context, repo *catalog.Repository, feed *Feed, owner uuid.UUID) (Result, error) {
	var result Result

	shopID, err := repo.UpsertShop(ctx, feed.Shop)
	if err != nil {
		return result, fmt.Errorf("upsert shop: %w", err)
	}
	result.ShopID = shopID
	if err := claimShop(ctx, repo, shopID, owner); err != nil {
		return result, err
	}

	for _, c := range feed.Categories {
		if _, err := repo.UpsertCategory(ctx, c.ID, c.Name); err != nil {
			return result, fmt.Errorf("upsert category %d: %w", c.ID, err)
		}
		if err := repo.AttachCategoryToShop(ctx, c.ID, shopID); err != nil {
			return result, fmt.Errorf("attach category %d: %w", c.ID, err)
		}
		result.Categories++
	}

	replaced, err := repo.ReplaceListingsForShop(ctx, shopID)
	if err != nil {
		return result, fmt.Errorf("replace listings: %w", err)
	}
	result.Replaced = replaced

	params := map[string]uint64{}
	for i, g := range feed.Goods {
		productID, err := repo.UpsertProduct(ctx, g.Name, g.Category)
		if err != nil {
			return result, fmt.Errorf("goods[%d]: upsert product: %w", i, err)
		}
		listingID, err := repo.CreateListing(ctx, catalog.NewListing{
			ProductID:  productID,
			ShopID:     shopID,
			ExternalID: g.ID,
			Model:      g.Model,
			Quantity:   g.Quantity,
			Price:      g.Price,
			PriceRRC:   g.PriceRRC,
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				return result, pkgerrors.Wrap(pkgerrors.CodeImportFailed, err, fmt.Sprintf("goods[%d]: duplicate listing", i))
			}
			return result, fmt.Errorf("goods[%d]: create listing: %w", i, err)
		}
		for _, p := range g.Parameters {
			paramID, ok := params[p.Name]
			if !ok {
				paramID, err = repo.UpsertParameter(ctx, p.Name)
				if err != nil {
					return result, fmt.Errorf("goods[%d]: upsert parameter %q: %w", i, p.Name, err)
				}
				params[p.Name] = paramID
			}
			if err := repo.CreateProductParameter(ctx, listingID, paramID, p.Value); err != nil {
				return result, fmt.Errorf("goods[%d]: parameter %q: %w", i, p.Name, err)
			}
			result.Parameters++
		}
		result.Goods++
	}
	return result, nil
}

// claimShop binds an unowned shop to the importing account and rejects
// imports into a shop owned by someone else.
func claimShop(ctx context.Context, repo *catalog.Repository, shopID uint64, owner uuid.UUID) error {
	shop, err := repo.FindShopByID(ctx, shopID)
	if err != nil {
		return fmt.Errorf("load shop: %w", err)
	}
	if shop.UserID != nil {
		if *shop.UserID != owner {
			return pkgerrors.New(pkgerrors.CodeForbidden, "shop belongs to another account").
				WithDetails(map[string]any{"shop": shop.Name})
		}
		return nil
	}
	if _, err := repo.BindShopOwner(ctx, shopID, owner); err != nil {
		return err
	}
	return nil
}
