package contacts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/db/dbtest"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
)

func seedUser(t *testing.T, conn *gorm.DB, email string) uuid.UUID {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "x", AccountType: enums.AccountTypeBuyer, IsActive: true}
	require.NoError(t, conn.Create(&user).Error)
	return user.ID
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func validRequest() CreateContactRequest {
	apt := "12"
	return CreateContactRequest{Phone: "+79990001122", City: "Moscow", Street: "Tverskaya", House: "7", Apartment: &apt}
}

func TestCreateAndList(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, conn, "buyer@example.com")

	created, err := svc.Create(ctx, user, validRequest())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	require.NotNil(t, created.Apartment)
	assert.Equal(t, "12", *created.Apartment)
	assert.Nil(t, created.Building)

	list, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestCreateRequiresAddressFields(t *testing.T) {
	svc, conn := newTestService(t)
	user := seedUser(t, conn, "buyer@example.com")

	req := validRequest()
	req.City = "  "
	req.House = ""
	_, err := svc.Create(context.Background(), user, req)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, []string{"city", "house"}, typed.Details().(map[string]any)["fields"])
}

func TestUpdateIsScopedToOwner(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, conn, "owner@example.com")
	other := seedUser(t, conn, "other@example.com")

	created, err := svc.Create(ctx, owner, validRequest())
	require.NoError(t, err)

	city := "Kazan"
	_, err = svc.Update(ctx, other, created.ID, UpdateContactRequest{City: &city})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	updated, err := svc.Update(ctx, owner, created.ID, UpdateContactRequest{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Kazan", updated.City)
	assert.Equal(t, "Tverskaya", updated.Street)

	blank := ""
	_, err = svc.Update(ctx, owner, created.ID, UpdateContactRequest{Phone: &blank})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteIsScopedToOwner(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, conn, "owner@example.com")
	other := seedUser(t, conn, "other@example.com")

	created, err := svc.Create(ctx, owner, validRequest())
	require.NoError(t, err)

	err = svc.Delete(ctx, other, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, owner, created.ID))
	_, err = svc.ContactOf(ctx, owner, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
