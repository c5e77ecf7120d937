package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gyanoda/user-service/internal/entity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionCache keeps a JSON snapshot of each logged-in user in Redis, keyed
// by user id. The snapshot never includes the password hash. A snapshot's
// presence doubles as the session-liveness check for refresh-token use.
type SessionCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSessionCache(rds *redis.Client, ttl time.Duration, logger *zap.Logger) *SessionCache {
	return &SessionCache{
		redis:  rds,
		ttl:    ttl,
		logger: logger.Named("SessionCache"),
	}
}

func sessionKey(userID string) string {
	return "session:" + userID
}

// Populate writes the snapshot with the configured TTL.
func (c *SessionCache) Populate(ctx context.Context, userID string, user *entity.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, sessionKey(userID), data, c.ttl).Err(); err != nil {
		c.logger.Error("Failed to populate session cache", zap.String("userID", userID), zap.Error(err))
		return err
	}
	return nil
}

// Get returns (nil, nil) on a cache miss.
func (c *SessionCache) Get(ctx context.Context, userID string) (*entity.User, error) {
	data, err := c.redis.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to read session cache", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	var user entity.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *SessionCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.redis.Del(ctx, sessionKey(userID)).Err(); err != nil {
		c.logger.Error("Failed to invalidate session cache", zap.String("userID", userID), zap.Error(err))
		return err
	}
	return nil
}

// Refresh is the scoped invalidate-then-repopulate wrapper every mutating
// operation goes through: the stale entry is dropped before load runs, and
// whatever load returns becomes the new snapshot. The cache can therefore
// never serve pre-mutation data within the same request.
func (c *SessionCache) Refresh(ctx context.Context, userID string, load func(ctx context.Context) (*entity.User, error)) (*entity.User, error) {
	if err := c.Invalidate(ctx, userID); err != nil {
		return nil, err
	}
	user, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Populate(ctx, userID, user); err != nil {
		return nil, err
	}
	return user, nil
}
