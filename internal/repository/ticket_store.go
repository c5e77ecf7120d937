package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TicketStore records consumed activation-ticket IDs so a ticket cannot be
// replayed after a successful activation. Markers live only slightly longer
// than the ticket itself, after which expiry makes replay impossible anyway.
type TicketStore struct {
	redis  *redis.Client
	logger *zap.Logger
}

func NewTicketStore(rds *redis.Client, logger *zap.Logger) *TicketStore {
	return &TicketStore{
		redis:  rds,
		logger: logger.Named("TicketStore"),
	}
}

// Consume marks the ticket id as used. Returns false when the marker was
// already present, i.e. the ticket has been consumed before.
func (s *TicketStore) Consume(ctx context.Context, ticketID string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, "activation:consumed:"+ticketID, 1, ttl).Result()
	if err != nil {
		s.logger.Error("Failed to mark activation ticket consumed", zap.String("ticketID", ticketID), zap.Error(err))
		return false, err
	}
	return ok, nil
}
