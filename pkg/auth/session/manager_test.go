package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := value.([]byte); ok {
		m.data[key] = string(b)
		return nil
	}
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) record(t *testing.T, key string) record {
	t.Helper()
	var rec record
	require.NoError(t, json.Unmarshal([]byte(m.data[key]), &rec))
	return rec
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, ttl: time.Hour, now: time.Now}
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, "access-123", userID)
	require.NoError(t, err)
	rec := store.record(t, "sess:access-123")
	require.Equal(t, userID, rec.UserID)
	require.Equal(t, hashToken(token), rec.TokenHash)
	require.NotContains(t, store.data["sess:access-123"], token)

	_, _, err = manager.Rotate(ctx, "access-123", userID, "wrong")
	require.True(t, errors.Is(err, ErrInvalidRefreshToken))

	newAccessID, newToken, err := manager.Rotate(ctx, "access-123", userID, token)
	require.NoError(t, err)
	require.NotContains(t, store.data, "sess:access-123")
	require.Equal(t, hashToken(newToken), store.record(t, "sess:"+newAccessID).TokenHash)

	_, _, err = manager.Rotate(ctx, "access-123", userID, token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken, "a refresh token is single use")
}

func TestManagerRotateRejectsOtherUser(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, "access-1", uuid.New(), token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	require.Contains(t, store.data, "sess:access-1")
}

func TestManagerRotateUnknownSession(t *testing.T) {
	manager := newTestManager(newMockStore())
	_, _, err := manager.Rotate(context.Background(), "missing", uuid.New(), "token")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestManagerRevokeAndHasSession(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-9", uuid.New())
	require.NoError(t, err)

	ok, err := manager.HasSession(ctx, "access-9")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, "access-9"))
	ok, err = manager.HasSession(ctx, "access-9")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = manager.HasSession(ctx, " ")
	require.Error(t, err)
}

func TestManagerRotateRejectsCorruptRecord(t *testing.T) {
	store := newMockStore()
	store.data["sess:bad"] = "not-json"
	_, _, err := newTestManager(store).Rotate(context.Background(), "bad", uuid.New(), "token")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}
