package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/api/middleware"
	"github.com/gosha22008/orders-backend/api/responses"
	"github.com/gosha22008/orders-backend/api/validators"
	"github.com/gosha22008/orders-backend/internal/catalog"
	"github.com/gosha22008/orders-backend/internal/importer"
	"github.com/gosha22008/orders-backend/internal/orders"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

// ImportJobs is the importer surface used by the partner endpoints.
type ImportJobs interface {
	Enqueue(ctx context.Context, req importer.EnqueueRequest) (*importer.JobDTO, error)
	GetJob(ctx context.Context, userID, jobID uuid.UUID) (*importer.JobDTO, error)
}

// PartnerUpdate queues a price-list import. The YAML feed may be sent as the
// request body; an empty body imports the configured feed file.
func PartnerUpdate(svc ImportJobs, maxFeedBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("import service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body := r.Body
		if maxFeedBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, maxFeedBytes)
		}
		feed, err := io.ReadAll(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price list too large").WithDetails(map[string]any{"limit_bytes": tooLarge.Limit}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read price list"))
			return
		}
		if len(strings.TrimSpace(string(feed))) == 0 {
			feed = nil
		}

		job, err := svc.Enqueue(r.Context(), importer.EnqueueRequest{
			UserID:      userID,
			AccountType: middleware.AccountTypeFromContext(r.Context()),
			Feed:        feed,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, job)
	}
}

func PartnerImportStatus(svc ImportJobs, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("import service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		jobID, err := validators.ParsePathUUID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.GetJob(r.Context(), userID, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

func PartnerStateGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shop, err := svc.GetPartnerState(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}

type partnerStateBody struct {
	State json.RawMessage `json:"state" validate:"required"`
}

// PartnerStateSet toggles whether the caller's shop takes orders. The state
// may be a JSON string ("on", "no", ...), boolean or 0/1.
func PartnerStateSet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body partnerStateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shop, err := svc.SetPartnerState(r.Context(), userID, rawState(body.State))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}

func rawState(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(value))
}

// PartnerOrders lists placed orders containing the caller's listings.
func PartnerOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListPartnerOrders(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
