package usecase

import (
	"context"
	"time"

	"github.com/gyanoda/user-service/internal/entity"
	"github.com/gyanoda/user-service/internal/notifier"
	"github.com/gyanoda/user-service/internal/token"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockUserStore struct{ mock.Mock }

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserStore) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserStore) FindByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserStore) Create(ctx context.Context, user *entity.User) (primitive.ObjectID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}
func (m *MockUserStore) VerifyAndMaterialize(ctx context.Context, pending *entity.PendingUser) (*entity.User, error) {
	args := m.Called(ctx, pending)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserStore) UpdateFields(ctx context.Context, userID primitive.ObjectID, fields bson.M) (*entity.User, error) {
	args := m.Called(ctx, userID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserStore) UpdatePassword(ctx context.Context, userID primitive.ObjectID, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}
func (m *MockUserStore) Delete(ctx context.Context, userID primitive.ObjectID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
func (m *MockUserStore) List(ctx context.Context, skip, limit int64) ([]*entity.User, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

type MockSessionCache struct{ mock.Mock }

func (m *MockSessionCache) Populate(ctx context.Context, userID string, user *entity.User) error {
	args := m.Called(ctx, userID, user)
	return args.Error(0)
}
func (m *MockSessionCache) Get(ctx context.Context, userID string) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockSessionCache) Invalidate(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
// Refresh delegates to load unless the recorded call pins a result, so
// tests can assert on the underlying store call.
func (m *MockSessionCache) Refresh(ctx context.Context, userID string, load func(ctx context.Context) (*entity.User, error)) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	if args.Get(0) != nil {
		return args.Get(0).(*entity.User), nil
	}
	return load(ctx)
}

type MockTicketStore struct{ mock.Mock }

func (m *MockTicketStore) Consume(ctx context.Context, ticketID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, ticketID, ttl)
	return args.Bool(0), args.Error(1)
}

type MockTokenIssuer struct{ mock.Mock }

func (m *MockTokenIssuer) IssueActivationTicket(pending *entity.PendingUser) (string, string, error) {
	args := m.Called(pending)
	return args.String(0), args.String(1), args.Error(2)
}
func (m *MockTokenIssuer) VerifyActivationTicket(ticket, suppliedCode string) (*entity.PendingUser, string, error) {
	args := m.Called(ticket, suppliedCode)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*entity.PendingUser), args.String(1), args.Error(2)
}
func (m *MockTokenIssuer) ActivationTTL() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}
func (m *MockTokenIssuer) IssueSession(userID string) (*token.TokenPair, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*token.TokenPair), args.Error(1)
}
func (m *MockTokenIssuer) IssueAccess(userID string) (string, time.Time, error) {
	args := m.Called(userID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
func (m *MockTokenIssuer) VerifyRefresh(tokenStr string) (string, error) {
	args := m.Called(tokenStr)
	return args.String(0), args.Error(1)
}
func (m *MockTokenIssuer) IssuePasswordReset(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}
func (m *MockTokenIssuer) VerifyPasswordReset(tokenStr string) (string, error) {
	args := m.Called(tokenStr)
	return args.String(0), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Dispatch(ctx context.Context, n notifier.Notification) []notifier.Result {
	args := m.Called(ctx, n)
	return args.Get(0).([]notifier.Result)
}

type MockEmailChannel struct{ mock.Mock }

func (m *MockEmailChannel) Send(ctx context.Context, n notifier.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
func (m *MockEmailChannel) SendPasswordReset(ctx context.Context, toEmail, toName, resetLink string) error {
	args := m.Called(ctx, toEmail, toName, resetLink)
	return args.Error(0)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) PublishUserRegistered(ctx context.Context, email, name string) error {
	args := m.Called(ctx, email, name)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishUserActivated(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishUserDeleted(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockAvatarStorage struct{ mock.Mock }

func (m *MockAvatarStorage) Upload(ctx context.Context, originalFileName, contentType string, data []byte) (string, string, error) {
	args := m.Called(ctx, originalFileName, contentType, data)
	return args.String(0), args.String(1), args.Error(2)
}
func (m *MockAvatarStorage) Delete(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}
