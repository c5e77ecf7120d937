package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gyanoda/user-service/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionCache(client, 168*time.Hour, zap.NewNop()), mr
}

func cachedUser() *entity.User {
	return &entity.User{
		ID:         primitive.NewObjectID(),
		Name:       "Ann",
		Email:      "ann@example.com",
		Phone:      "+919876543210",
		Location:   "Kolkata",
		Password:   "$2a$10$abcdefghijklmnopqrstuv",
		Avatar:     entity.Avatar{ID: "avatars/key.png", URL: "https://cdn.example.com/avatars/key.png"},
		Role:       entity.RoleUser,
		IsVerified: true,
		Provider:   entity.ProviderEmail,
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestSessionCache_PopulateGet_RoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	user := cachedUser()
	id := user.ID.Hex()

	require.NoError(t, cache.Populate(ctx, id, user))

	got, err := cache.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Name, got.Name)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, user.Phone, got.Phone)
	assert.Equal(t, user.Avatar, got.Avatar)
	assert.Equal(t, user.Role, got.Role)
	assert.True(t, got.IsVerified)
	assert.True(t, got.CreatedAt.Equal(user.CreatedAt))

	// The password hash never survives the snapshot.
	assert.Empty(t, got.Password)
	raw, err := mr.Get("session:" + id)
	require.NoError(t, err)
	assert.NotContains(t, raw, "$2a$10$")

	// Snapshot carries the configured TTL.
	assert.Equal(t, 168*time.Hour, mr.TTL("session:"+id))
}

func TestSessionCache_Get_MissIsNilNil(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), primitive.NewObjectID().Hex())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	user := cachedUser()
	id := user.ID.Hex()

	require.NoError(t, cache.Populate(ctx, id, user))
	require.NoError(t, cache.Invalidate(ctx, id))

	got, err := cache.Get(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionCache_Refresh_ReplacesStaleSnapshot(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	stale := cachedUser()
	id := stale.ID.Hex()
	require.NoError(t, cache.Populate(ctx, id, stale))

	fresh := *stale
	fresh.Name = "Ann Updated"
	fresh.Role = entity.RoleAdmin

	got, err := cache.Refresh(ctx, id, func(ctx context.Context) (*entity.User, error) {
		return &fresh, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann Updated", got.Name)

	reread, err := cache.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, reread)
	assert.Equal(t, "Ann Updated", reread.Name)
	assert.Equal(t, entity.RoleAdmin, reread.Role)
}

func TestSessionCache_Refresh_LoadFailureLeavesEntryInvalidated(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	stale := cachedUser()
	id := stale.ID.Hex()
	require.NoError(t, cache.Populate(ctx, id, stale))

	_, err := cache.Refresh(ctx, id, func(ctx context.Context) (*entity.User, error) {
		return nil, errors.New("store unavailable")
	})
	require.Error(t, err)

	// The stale entry must not survive a failed reload.
	got, err := cache.Get(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	user := cachedUser()
	id := user.ID.Hex()

	require.NoError(t, cache.Populate(ctx, id, user))
	mr.FastForward(168*time.Hour + time.Second)

	got, err := cache.Get(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
