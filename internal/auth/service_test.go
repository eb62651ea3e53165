package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/internal/users"
	pkgAuth "github.com/gosha22008/orders-backend/pkg/auth"
	"github.com/gosha22008/orders-backend/pkg/auth/session"
	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db"
	"github.com/gosha22008/orders-backend/pkg/db/dbtest"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
)

const strongPassword = "c0rrect-horse-battery"

var (
	testJWT = config.JWTConfig{Secret: "secret", Issuer: "orders", ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}
	testPwd = config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
		ResetTokenTTL:    time.Hour,
	}
)

type stubSession struct {
	sessions map[string]string
	owners   map[string]uuid.UUID
}

func newStubSession() *stubSession {
	return &stubSession{sessions: map[string]string{}, owners: map[string]uuid.UUID{}}
}

func (s *stubSession) Generate(_ context.Context, accessID string, userID uuid.UUID) (string, error) {
	token := "refresh-" + accessID
	s.sessions[accessID] = token
	s.owners[accessID] = userID
	return token, nil
}

func (s *stubSession) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	stored, ok := s.sessions[oldAccessID]
	if !ok || stored != provided || s.owners[oldAccessID] != userID {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	next := session.NewAccessID()
	token, err := s.Generate(ctx, next, userID)
	return next, token, err
}

func (s *stubSession) Revoke(_ context.Context, accessID string) error {
	delete(s.sessions, accessID)
	return nil
}

type fixture struct {
	conn     *gorm.DB
	register RegisterService
	svc      *service
	sessions *stubSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.FromGorm(conn)
	emitter := outbox.NewWriter(outbox.NewRepository(conn), logger.Nop())

	reg, err := NewRegisterService(RegisterServiceParams{DB: client, Outbox: emitter, PasswordConfig: testPwd})
	require.NoError(t, err)

	sessions := newStubSession()
	svc, err := NewService(ServiceParams{
		DB:             client,
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		Outbox:         emitter,
		JWTConfig:      testJWT,
		PasswordConfig: testPwd,
		Logger:         logger.Nop(),
	})
	require.NoError(t, err)
	return &fixture{conn: conn, register: reg, svc: svc.(*service), sessions: sessions}
}

func (f *fixture) registerAndConfirm(t *testing.T, email string) *users.UserDTO {
	t.Helper()
	ctx := context.Background()
	user, err := f.register.Register(ctx, RegisterRequest{FirstName: "Ivan", LastName: "Petrov", Email: email, Password: strongPassword})
	require.NoError(t, err)
	var token models.ConfirmEmailToken
	require.NoError(t, f.conn.Where("user_id = ?", user.ID).First(&token).Error)
	_, err = f.svc.ConfirmEmail(ctx, ConfirmEmailRequest{Email: email, Token: token.Key})
	require.NoError(t, err)
	return user
}

func eventsOf(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", eventType).Find(&rows).Error)
	return rows
}

func TestRegisterCreatesInactiveUserAndEvent(t *testing.T) {
	f := newFixture(t)
	user, err := f.register.Register(context.Background(), RegisterRequest{
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     " Ivan@Example.com ",
		Password:  strongPassword,
		Type:      "shop",
	})
	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", user.Email)
	assert.False(t, user.IsActive)
	assert.Equal(t, enums.AccountTypeShop, user.Type)

	var tokens int64
	require.NoError(t, f.conn.Model(&models.ConfirmEmailToken{}).Where("user_id = ?", user.ID).Count(&tokens).Error)
	assert.EqualValues(t, 1, tokens)

	events := eventsOf(t, f.conn, enums.EventUserRegistered)
	require.Len(t, events, 1)
	env, err := outbox.DecodeEnvelope(events[0].Payload)
	require.NoError(t, err)
	var data payloads.UserRegisteredEvent
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, user.ID, data.UserID)
}

func TestRegisterRejectsWeakPasswordAndDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.register.Register(ctx, RegisterRequest{Email: "weak@example.com", Password: "1234"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Len(t, details["password"], 2)

	_, err = f.register.Register(ctx, RegisterRequest{Email: "dup@example.com", Password: strongPassword})
	require.NoError(t, err)
	_, err = f.register.Register(ctx, RegisterRequest{Email: "DUP@example.com", Password: strongPassword})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.register.Register(ctx, RegisterRequest{Email: "admin@example.com", Password: strongPassword, Type: "admin"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestConfirmEmailActivatesAndConsumesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.register.Register(ctx, RegisterRequest{Email: "c@example.com", Password: strongPassword})
	require.NoError(t, err)

	_, err = f.svc.ConfirmEmail(ctx, ConfirmEmailRequest{Email: "c@example.com", Token: "wrong"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var token models.ConfirmEmailToken
	require.NoError(t, f.conn.Where("user_id = ?", user.ID).First(&token).Error)

	_, err = f.svc.ConfirmEmail(ctx, ConfirmEmailRequest{Email: "other@example.com", Token: token.Key})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	confirmed, err := f.svc.ConfirmEmail(ctx, ConfirmEmailRequest{Email: "c@example.com", Token: token.Key})
	require.NoError(t, err)
	assert.True(t, confirmed.IsActive)

	var remaining int64
	require.NoError(t, f.conn.Model(&models.ConfirmEmailToken{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestLoginRequiresActiveAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.register.Register(ctx, RegisterRequest{Email: "pending@example.com", Password: strongPassword})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "pending@example.com", Password: strongPassword})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginIssuesTokensAndRefreshRotates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.registerAndConfirm(t, "login@example.com")

	_, err := f.svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "nope-nope-nope"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "LOGIN@example.com", Password: strongPassword})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.AccountTypeBuyer, claims.AccountType)

	pair, err := f.svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

	_, err = f.svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	next, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, next.ID))
	assert.Empty(t, f.sessions.sessions)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.registerAndConfirm(t, "reset@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, PasswordResetRequest{Email: "ghost@example.com"}))
	assert.Empty(t, eventsOf(t, f.conn, enums.EventPasswordResetRequested))

	require.NoError(t, f.svc.RequestPasswordReset(ctx, PasswordResetRequest{Email: "reset@example.com"}))
	events := eventsOf(t, f.conn, enums.EventPasswordResetRequested)
	require.Len(t, events, 1)

	var token models.PasswordResetToken
	require.NoError(t, f.conn.Where("user_id = ?", user.ID).First(&token).Error)

	err := f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token.Key, Password: "short"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "other@example.com", Token: token.Key, Password: "an0ther-Long-phrase"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token.Key, Password: "an0ther-Long-phrase"}))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "reset@example.com", Password: "an0ther-Long-phrase"})
	require.NoError(t, err)

	var remaining int64
	require.NoError(t, f.conn.Model(&models.PasswordResetToken{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.registerAndConfirm(t, "late@example.com")

	_, err := NewTokenRepository(f.conn).CreateResetToken(ctx, user.ID, "expired-key", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: "expired-key", Password: "an0ther-Long-phrase"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	removed, err := NewTokenRepository(f.conn).DeleteExpiredResetTokens(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}
