package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db/dbtest"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/security"
)

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestCreateKeepsInactiveFlag(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	inactive := false

	user, err := repo.Create(ctx, CreateUserDTO{Email: "new@example.com", PasswordHash: "x", IsActive: &inactive})
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, enums.AccountTypeBuyer, stored.AccountType)

	require.NoError(t, repo.Activate(ctx, user.ID))
	stored, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestUpdateAccount(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	user, err := repo.Create(ctx, CreateUserDTO{Email: "anna@example.com", PasswordHash: "x", FirstName: "Anna"})
	require.NoError(t, err)

	svc, err := NewService(repo, testPasswordCfg)
	require.NoError(t, err)

	company := " Acme "
	password := "n3w-Secret-phrase"
	updated, err := svc.UpdateAccount(ctx, user.ID, UpdateAccountRequest{Company: &company, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Company)
	assert.Equal(t, "Anna", updated.FirstName)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword(password, stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateAccountRejectsWeakPassword(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	user, err := repo.Create(ctx, CreateUserDTO{Email: "anna@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	svc, err := NewService(repo, testPasswordCfg)
	require.NoError(t, err)

	weak := "anna"
	_, err = svc.UpdateAccount(ctx, user.ID, UpdateAccountRequest{Password: &weak})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Len(t, details["password"], 2)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", stored.PasswordHash)
}

func TestGetAccountUnknownUser(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)), testPasswordCfg)
	require.NoError(t, err)

	_, err = svc.GetAccount(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.GetAccount(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
