package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gosha22008/orders-backend/api/middleware"
	"github.com/gosha22008/orders-backend/internal/basket"
	"github.com/gosha22008/orders-backend/internal/catalog"
	"github.com/gosha22008/orders-backend/internal/contacts"
	"github.com/gosha22008/orders-backend/internal/importer"
	"github.com/gosha22008/orders-backend/internal/orders"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

func authed(req *http.Request, userID uuid.UUID, accountType enums.AccountType) *http.Request {
	ctx := middleware.WithAccountType(middleware.WithUserID(req.Context(), userID.String()), accountType)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

type stubBasket struct {
	view  *orders.OrderDTO
	items []json.RawMessage
}

func (s *stubBasket) View(context.Context, uuid.UUID) (*orders.OrderDTO, error) { return s.view, nil }

func (s *stubBasket) AddItems(_ context.Context, _ uuid.UUID, items []json.RawMessage) (*basket.AddResult, error) {
	s.items = items
	return &basket.AddResult{Created: len(items)}, nil
}

func (s *stubBasket) UpdateQuantities(context.Context, uuid.UUID, []json.RawMessage) (*basket.UpdateResult, error) {
	return &basket.UpdateResult{}, nil
}

func (s *stubBasket) RemoveItems(context.Context, uuid.UUID, []json.RawMessage) (*basket.RemoveResult, error) {
	return &basket.RemoveResult{}, nil
}

func TestBasketViewWithoutBasketReturnsEmptyList(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/basket", nil), uuid.New(), enums.AccountTypeBuyer)
	rec := httptest.NewRecorder()
	BasketView(&stubBasket{}, logger.Nop())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []orders.OrderDTO
	decodeData(t, rec, &out)
	require.Empty(t, out)
	require.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestBasketAddForwardsRawItems(t *testing.T) {
	svc := &stubBasket{}
	body := `{"items":[{"product_info":1,"quantity":2},"junk"]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/basket", strings.NewReader(body)), uuid.New(), enums.AccountTypeBuyer)
	rec := httptest.NewRecorder()
	BasketAdd(svc, logger.Nop())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.items, 2)
	require.JSONEq(t, `"junk"`, string(svc.items[1]))
}

func TestBasketRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	BasketView(&stubBasket{}, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/basket", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubImports struct {
	req importer.EnqueueRequest
}

func (s *stubImports) Enqueue(_ context.Context, req importer.EnqueueRequest) (*importer.JobDTO, error) {
	s.req = req
	return &importer.JobDTO{ID: uuid.New(), Status: enums.ImportStatusPending}, nil
}

func (s *stubImports) GetJob(_ context.Context, _ uuid.UUID, jobID uuid.UUID) (*importer.JobDTO, error) {
	return &importer.JobDTO{ID: jobID, Status: enums.ImportStatusSucceeded}, nil
}

func TestPartnerUpdateForwardsUploadedFeed(t *testing.T) {
	svc := &stubImports{}
	userID := uuid.New()
	feed := "shop: Связной\ncategories: []\ngoods: []\n"
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/partner/update", strings.NewReader(feed)), userID, enums.AccountTypeShop)
	rec := httptest.NewRecorder()
	PartnerUpdate(svc, 1024, logger.Nop())(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, userID, svc.req.UserID)
	require.Equal(t, enums.AccountTypeShop, svc.req.AccountType)
	require.Equal(t, feed, string(svc.req.Feed))
}

func TestPartnerUpdateEmptyBodyUsesConfiguredFeed(t *testing.T) {
	svc := &stubImports{}
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/partner/update", strings.NewReader("  \n")), uuid.New(), enums.AccountTypeShop)
	rec := httptest.NewRecorder()
	PartnerUpdate(svc, 1024, logger.Nop())(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Nil(t, svc.req.Feed)
}

func TestPartnerUpdateRejectsOversizedFeed(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/partner/update", strings.NewReader(strings.Repeat("x", 64))), uuid.New(), enums.AccountTypeShop)
	rec := httptest.NewRecorder()
	PartnerUpdate(&stubImports{}, 16, logger.Nop())(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPartnerImportStatusParsesJobID(t *testing.T) {
	jobID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/partner/update/"+jobID.String(), nil), uuid.New(), enums.AccountTypeShop)
	req = withURLParam(req, "jobId", jobID.String())
	rec := httptest.NewRecorder()
	PartnerImportStatus(&stubImports{}, logger.Nop())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var job importer.JobDTO
	decodeData(t, rec, &job)
	require.Equal(t, jobID, job.ID)
}

type stubCatalog struct {
	catalog.Service
	raw string
}

func (s *stubCatalog) SetPartnerState(_ context.Context, _ uuid.UUID, raw string) (*catalog.ShopDTO, error) {
	s.raw = raw
	return &catalog.ShopDTO{ID: 1, Name: "Связной"}, nil
}

func TestPartnerStateAcceptsStringsAndBooleans(t *testing.T) {
	cases := map[string]string{
		`{"state":"off"}`: "off",
		`{"state":true}`:  "true",
		`{"state":0}`:     "0",
	}
	for body, want := range cases {
		svc := &stubCatalog{}
		req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/partner/state", strings.NewReader(body)), uuid.New(), enums.AccountTypeShop)
		rec := httptest.NewRecorder()
		PartnerStateSet(svc, logger.Nop())(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, body)
		require.Equal(t, want, svc.raw, body)
	}
}

type stubContacts struct {
	contacts.Service
	deleted uint64
	updated uint64
}

func (s *stubContacts) Delete(_ context.Context, _ uuid.UUID, contactID uint64) error {
	if contactID == 404 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}
	s.deleted = contactID
	return nil
}

func (s *stubContacts) Update(_ context.Context, _ uuid.UUID, contactID uint64, _ contacts.UpdateContactRequest) (*contacts.ContactDTO, error) {
	s.updated = contactID
	return &contacts.ContactDTO{ID: contactID}, nil
}

func TestContactDeleteByBodyOrPath(t *testing.T) {
	svc := &stubContacts{}
	user := uuid.New()

	req := authed(httptest.NewRequest(http.MethodDelete, "/api/v1/user/contact", strings.NewReader(`{"contact_id":5}`)), user, enums.AccountTypeBuyer)
	rec := httptest.NewRecorder()
	ContactDelete(svc, logger.Nop())(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint64(5), svc.deleted)

	req = authed(httptest.NewRequest(http.MethodDelete, "/api/v1/user/contact/9", nil), user, enums.AccountTypeBuyer)
	req = withURLParam(req, "contactId", "9")
	rec = httptest.NewRecorder()
	ContactDelete(svc, logger.Nop())(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint64(9), svc.deleted)

	req = authed(httptest.NewRequest(http.MethodDelete, "/api/v1/user/contact", strings.NewReader(`{"contact_id":404}`)), user, enums.AccountTypeBuyer)
	rec = httptest.NewRecorder()
	ContactDelete(svc, logger.Nop())(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	req = authed(httptest.NewRequest(http.MethodDelete, "/api/v1/user/contact", strings.NewReader(`{}`)), user, enums.AccountTypeBuyer)
	rec = httptest.NewRecorder()
	ContactDelete(svc, logger.Nop())(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactUpdateReadsContactIDFromBody(t *testing.T) {
	svc := &stubContacts{}
	req := authed(httptest.NewRequest(http.MethodPut, "/api/v1/user/contact", strings.NewReader(`{"contact_id":3,"city":"Moscow"}`)), uuid.New(), enums.AccountTypeBuyer)
	rec := httptest.NewRecorder()
	ContactUpdate(svc, logger.Nop())(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint64(3), svc.updated)
}
