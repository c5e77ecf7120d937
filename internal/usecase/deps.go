package usecase

import (
	"context"
	"time"

	"github.com/gyanoda/user-service/internal/entity"
	"github.com/gyanoda/user-service/internal/notifier"
	"github.com/gyanoda/user-service/internal/token"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the credential store (Mongo in production).
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByPhone(ctx context.Context, phone string) (*entity.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error)
	Create(ctx context.Context, user *entity.User) (primitive.ObjectID, error)
	VerifyAndMaterialize(ctx context.Context, pending *entity.PendingUser) (*entity.User, error)
	UpdateFields(ctx context.Context, userID primitive.ObjectID, fields bson.M) (*entity.User, error)
	UpdatePassword(ctx context.Context, userID primitive.ObjectID, passwordHash string) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
	List(ctx context.Context, skip, limit int64) ([]*entity.User, error)
}

// SessionCache is the Redis-backed user snapshot cache.
type SessionCache interface {
	Populate(ctx context.Context, userID string, user *entity.User) error
	Get(ctx context.Context, userID string) (*entity.User, error)
	Invalidate(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID string, load func(ctx context.Context) (*entity.User, error)) (*entity.User, error)
}

// TicketStore tracks consumed activation tickets for single-use semantics.
type TicketStore interface {
	Consume(ctx context.Context, ticketID string, ttl time.Duration) (bool, error)
}

// TokenIssuer mints and verifies all token kinds.
type TokenIssuer interface {
	IssueActivationTicket(pending *entity.PendingUser) (string, string, error)
	VerifyActivationTicket(ticket, suppliedCode string) (*entity.PendingUser, string, error)
	ActivationTTL() time.Duration
	IssueSession(userID string) (*token.TokenPair, error)
	IssueAccess(userID string) (string, time.Time, error)
	VerifyRefresh(tokenStr string) (string, error)
	IssuePasswordReset(userID string) (string, error)
	VerifyPasswordReset(tokenStr string) (string, error)
}

// Notifier fans a notification out across the configured channels.
type Notifier interface {
	Dispatch(ctx context.Context, n notifier.Notification) []notifier.Result
}

// EmailChannel is the single-channel path used by OTP resend, and the
// carrier for password-reset links.
type EmailChannel interface {
	Send(ctx context.Context, n notifier.Notification) error
	SendPasswordReset(ctx context.Context, toEmail, toName, resetLink string) error
}

// EventPublisher emits account lifecycle events (NATS in production).
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, email, name string) error
	PublishUserActivated(ctx context.Context, user *entity.User) error
	PublishUserDeleted(ctx context.Context, userID string) error
}

// AvatarStorage holds avatar images (MinIO in production).
type AvatarStorage interface {
	Upload(ctx context.Context, originalFileName, contentType string, data []byte) (string, string, error)
	Delete(ctx context.Context, objectKey string) error
}
