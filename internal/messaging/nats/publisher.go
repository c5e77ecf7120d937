package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gyanoda/user-service/internal/config"
	"github.com/gyanoda/user-service/internal/entity"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	UserRegisteredSubject = "user.registered"
	UserActivatedSubject  = "user.activated"
	UserDeletedSubject    = "user.deleted"
)

// Publisher emits account lifecycle events for downstream services
// (course enrollment, analytics). Delivery is fire-and-forget.
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

type registeredEvent struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type activatedEvent struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type deletedEvent struct {
	ID string `json:"id"`
}

func NewPublisher(cfg *config.NATSConfig, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.ConnectTimeout),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))

	return &Publisher{nc: nc, logger: logger.Named("NATSPublisher")}, nil
}

func (p *Publisher) PublishUserRegistered(ctx context.Context, email, name string) error {
	return p.publish(UserRegisteredSubject, registeredEvent{Email: email, Name: name})
}

func (p *Publisher) PublishUserActivated(ctx context.Context, user *entity.User) error {
	return p.publish(UserActivatedSubject, activatedEvent{
		ID:    user.ID.Hex(),
		Email: user.Email,
		Name:  user.Name,
	})
}

func (p *Publisher) PublishUserDeleted(ctx context.Context, userID string) error {
	return p.publish(UserDeletedSubject, deletedEvent{ID: userID})
}

func (p *Publisher) publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish NATS message", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to publish NATS message for %s: %w", subject, err)
	}
	p.logger.Info("Published NATS message", zap.String("subject", subject))
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		if err := p.nc.Drain(); err != nil {
			p.logger.Error("Error draining NATS connection", zap.Error(err))
		}
		p.nc.Close()
	}
}
