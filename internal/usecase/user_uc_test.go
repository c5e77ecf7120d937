package usecase

import (
	"context"
	"testing"

	"github.com/gyanoda/user-service/internal/entity"
	"github.com/gyanoda/user-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type userFixture struct {
	uc      *UserUsecase
	store   *MockUserStore
	cache   *MockSessionCache
	avatars *MockAvatarStorage
	events  *MockEventPublisher
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		store:   new(MockUserStore),
		cache:   new(MockSessionCache),
		avatars: new(MockAvatarStorage),
		events:  new(MockEventPublisher),
	}
	f.uc = NewUserUsecase(f.store, f.cache, f.avatars, f.events, zap.NewNop(), "IN")
	return f
}

func storedUser(t *testing.T, password string) *entity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &entity.User{
		ID:         primitive.NewObjectID(),
		Name:       "Ann",
		Email:      "ann@example.com",
		Phone:      "+919876543210",
		Password:   string(hash),
		Avatar:     entity.Avatar{ID: "avatars/old-key.png", URL: "https://cdn.example.com/avatars/old-key.png"},
		Role:       entity.RoleUser,
		IsVerified: true,
		Provider:   entity.ProviderEmail,
	}
}

func TestUserUsecase_Me_ServesThroughCacheRefresh(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	user := storedUser(t, "secret123")

	f.cache.On("Refresh", ctx, user.ID.Hex()).Return(nil, nil).Once()
	f.store.On("FindByID", ctx, user.ID).Return(user, nil).Once()

	got, err := f.uc.Me(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, user, got)
	f.cache.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestUserUsecase_Me_MalformedID(t *testing.T) {
	f := newUserFixture(t)
	_, err := f.uc.Me(context.Background(), "not-an-object-id")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserUsecase_UpdateInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("PartialUpdate_NormalizesPhone", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "secret123")

		f.cache.On("Refresh", ctx, user.ID.Hex()).Return(nil, nil).Once()
		f.store.On("UpdateFields", ctx, user.ID, mock.MatchedBy(func(fields bson.M) bool {
			_, emailSet := fields["email"]
			return fields["name"] == "Ann Updated" &&
				fields["phone"] == "+919876543210" &&
				!emailSet
		})).Return(user, nil).Once()

		_, err := f.uc.UpdateInfo(ctx, user.ID.Hex(), UpdateInfoInput{
			Name:  "Ann Updated",
			Phone: "9876543210",
		})
		require.NoError(t, err)
		f.store.AssertExpectations(t)
	})

	t.Run("EmailTakenByAnotherAccount", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "secret123")
		other := storedUser(t, "secret123")

		f.store.On("FindByEmail", ctx, "taken@example.com").Return(other, nil).Once()

		_, err := f.uc.UpdateInfo(ctx, user.ID.Hex(), UpdateInfoInput{Email: "Taken@Example.com"})
		assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
		f.store.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("OwnEmail_NotADuplicate", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "secret123")

		f.store.On("FindByEmail", ctx, "ann@example.com").Return(user, nil).Once()
		f.cache.On("Refresh", ctx, user.ID.Hex()).Return(nil, nil).Once()
		f.store.On("UpdateFields", ctx, user.ID, mock.Anything).Return(user, nil).Once()

		_, err := f.uc.UpdateInfo(ctx, user.ID.Hex(), UpdateInfoInput{Email: "Ann@Example.com"})
		require.NoError(t, err)
	})

	t.Run("NothingToUpdate", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "secret123")
		_, err := f.uc.UpdateInfo(ctx, user.ID.Hex(), UpdateInfoInput{})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestUserUsecase_UpdatePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "old-password")

		f.store.On("FindByID", ctx, user.ID).Return(user, nil).Twice()
		f.store.On("UpdatePassword", ctx, user.ID, mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-password")) == nil
		})).Return(nil).Once()
		f.cache.On("Refresh", ctx, user.ID.Hex()).Return(nil, nil).Once()

		err := f.uc.UpdatePassword(ctx, user.ID.Hex(), "old-password", "new-password")
		require.NoError(t, err)
		f.store.AssertExpectations(t)
	})

	t.Run("WrongOldPassword", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "old-password")

		f.store.On("FindByID", ctx, user.ID).Return(user, nil).Once()

		err := f.uc.UpdatePassword(ctx, user.ID.Hex(), "wrong", "new-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		f.store.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SocialAccountWithoutPassword", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "old-password")
		user.Password = ""

		f.store.On("FindByID", ctx, user.ID).Return(user, nil).Once()

		err := f.uc.UpdatePassword(ctx, user.ID.Hex(), "anything", "new-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserUsecase_UpdateAvatar(t *testing.T) {
	ctx := context.Background()
	data := []byte("fake-image-bytes")

	t.Run("ReplacesAndDeletesOldObject", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "secret123")
		updated := *user
		updated.Avatar = entity.Avatar{ID: "avatars/new-key.png", URL: "https://cdn.example.com/avatars/new-key.png"}

		f.store.On("FindByID", ctx, user.ID).Return(user, nil).Once()
		f.avatars.On("Upload", ctx, "me.png", "image/png", data).
			Return("avatars/new-key.png", "https://cdn.example.com/avatars/new-key.png", nil).Once()
		f.cache.On("Refresh", ctx, user.ID.Hex()).Return(&updated, nil).Once()
		f.avatars.On("Delete", ctx, "avatars/old-key.png").Return(nil).Once()

		got, err := f.uc.UpdateAvatar(ctx, user.ID.Hex(), "me.png", "image/png", data)
		require.NoError(t, err)
		assert.Equal(t, "avatars/new-key.png", got.Avatar.ID)
		f.avatars.AssertExpectations(t)
	})

	t.Run("SocialAvatarReference_NotDeleted", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "secret123")
		user.Avatar = entity.Avatar{ID: "google_g-123", URL: "https://lh3.example.com/pic.jpg"}
		updated := *user
		updated.Avatar = entity.Avatar{ID: "avatars/new-key.png", URL: "https://cdn.example.com/avatars/new-key.png"}

		f.store.On("FindByID", ctx, user.ID).Return(user, nil).Once()
		f.avatars.On("Upload", ctx, "me.png", "image/png", data).
			Return("avatars/new-key.png", "https://cdn.example.com/avatars/new-key.png", nil).Once()
		f.cache.On("Refresh", ctx, user.ID.Hex()).Return(&updated, nil).Once()

		_, err := f.uc.UpdateAvatar(ctx, user.ID.Hex(), "me.png", "image/png", data)
		require.NoError(t, err)
		f.avatars.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.uc.UpdateAvatar(ctx, primitive.NewObjectID().Hex(), "me.png", "image/png", nil)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestUserUsecase_UpdateRole(t *testing.T) {
	ctx := context.Background()

	t.Run("LoggedInTarget_SnapshotRepopulated", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "secret123")
		promoted := *user
		promoted.Role = entity.RoleAdmin

		f.store.On("FindByEmail", ctx, "ann@example.com").Return(user, nil).Once()
		f.store.On("UpdateFields", ctx, user.ID, bson.M{"role": entity.RoleAdmin}).Return(&promoted, nil).Once()
		f.cache.On("Get", ctx, user.ID.Hex()).Return(user, nil).Once()
		f.cache.On("Populate", ctx, user.ID.Hex(), &promoted).Return(nil).Once()

		got, err := f.uc.UpdateRole(ctx, "ann@example.com", entity.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, entity.RoleAdmin, got.Role)
		f.cache.AssertExpectations(t)
	})

	t.Run("LoggedOutTarget_NoSnapshotWritten", func(t *testing.T) {
		f := newUserFixture(t)
		user := storedUser(t, "secret123")
		promoted := *user
		promoted.Role = entity.RoleAdmin

		f.store.On("FindByEmail", ctx, "ann@example.com").Return(user, nil).Once()
		f.store.On("UpdateFields", ctx, user.ID, bson.M{"role": entity.RoleAdmin}).Return(&promoted, nil).Once()
		f.cache.On("Get", ctx, user.ID.Hex()).Return(nil, nil).Once()

		got, err := f.uc.UpdateRole(ctx, "ann@example.com", entity.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, entity.RoleAdmin, got.Role)

		// Repopulating here would revive the logged-out user's refresh.
		f.cache.AssertNotCalled(t, "Populate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.uc.UpdateRole(ctx, "ann@example.com", "superuser")
		assert.ErrorIs(t, err, ErrValidation)
		f.store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})
}

func TestUserUsecase_DeleteUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	user := storedUser(t, "secret123")

	f.store.On("FindByID", ctx, user.ID).Return(user, nil).Once()
	f.store.On("Delete", ctx, user.ID).Return(nil).Once()
	f.cache.On("Invalidate", ctx, user.ID.Hex()).Return(nil).Once()
	f.avatars.On("Delete", ctx, "avatars/old-key.png").Return(nil).Once()
	f.events.On("PublishUserDeleted", ctx, user.ID.Hex()).Return(nil).Once()

	err := f.uc.DeleteUser(ctx, user.ID.Hex())
	require.NoError(t, err)

	f.store.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.avatars.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestUserUsecase_ListUsers_ClampsPaging(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	f.store.On("List", ctx, int64(0), int64(100)).Return([]*entity.User{}, nil).Twice()

	_, err := f.uc.ListUsers(ctx, -5, 0)
	require.NoError(t, err)
	_, err = f.uc.ListUsers(ctx, 0, 5000)
	require.NoError(t, err)
	f.store.AssertExpectations(t)
}
