package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosha22008/orders-backend/pkg/auth"
	"github.com/gosha22008/orders-backend/pkg/auth/session"
	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer   abc "))
	assert.Equal(t, "abc", bearerToken("abc"))
	assert.Equal(t, "", bearerToken("Bearer "))
	assert.Equal(t, "", bearerToken(""))
}

func TestAuthRejects(t *testing.T) {
	valid, _ := mintTestToken(t, testJWT, uuid.New(), enums.AccountTypeBuyer)

	cases := []struct {
		name     string
		header   string
		sessions stubSessionVerifier
		want     int
	}{
		{"missing token", "", stubSessionVerifier{ok: true}, http.StatusUnauthorized},
		{"bare scheme", "Bearer ", stubSessionVerifier{ok: true}, http.StatusUnauthorized},
		{"garbage", "Bearer invalid", stubSessionVerifier{ok: true}, http.StatusUnauthorized},
		{"revoked session", "Bearer " + valid, stubSessionVerifier{ok: false}, http.StatusUnauthorized},
		{"session store down", "Bearer " + valid, stubSessionVerifier{err: errors.New("redis down")}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			Auth(testJWT, tc.sessions, nil)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAuthStoresPrincipal(t *testing.T) {
	userID := uuid.New()
	token, accessID := mintTestToken(t, testJWT, userID, enums.AccountTypeShop)

	var got Principal
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Principal{UserID: userID.String(), AccountType: enums.AccountTypeShop, AccessID: accessID}, got)
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, UserIDFromContext(ctx))
	assert.Equal(t, uuid.Nil, UserUUIDFromContext(ctx))

	id := uuid.New()
	ctx = WithAccountType(WithUserID(ctx, id.String()), enums.AccountTypeBuyer)
	assert.Equal(t, id, UserUUIDFromContext(ctx))
	assert.Equal(t, enums.AccountTypeBuyer, AccountTypeFromContext(ctx))
	assert.Empty(t, AccessIDFromContext(ctx))
}

func TestRequireAccountType(t *testing.T) {
	handler := RequireAccountType(nil, enums.AccountTypeShop)(http.HandlerFunc(okHandler))

	cases := []struct {
		name        string
		user        string
		accountType enums.AccountType
		want        int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"buyer", uuid.NewString(), enums.AccountTypeBuyer, http.StatusForbidden},
		{"shop", uuid.NewString(), enums.AccountTypeShop, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/partner/state", nil)
			ctx := req.Context()
			if tc.user != "" {
				ctx = WithAccountType(WithUserID(ctx, tc.user), tc.accountType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req.WithContext(ctx))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, accountType enums.AccountType) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:      userID,
		AccountType: accountType,
		JTI:         accessID,
	})
	require.NoError(t, err)
	return token, accessID
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	return s.ok, s.err
}
