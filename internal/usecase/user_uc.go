package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gyanoda/user-service/internal/entity"
	"github.com/gyanoda/user-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserUsecase covers profile self-service and the admin surface. Every
// mutation runs through the session cache Refresh wrapper so the snapshot
// a subsequent request reads is never older than the write.
type UserUsecase struct {
	store         UserStore
	cache         SessionCache
	avatars       AvatarStorage
	events        EventPublisher
	logger        *zap.Logger
	defaultRegion string
}

func NewUserUsecase(
	store UserStore,
	cache SessionCache,
	avatars AvatarStorage,
	events EventPublisher,
	logger *zap.Logger,
	defaultRegion string,
) *UserUsecase {
	return &UserUsecase{
		store:         store,
		cache:         cache,
		avatars:       avatars,
		events:        events,
		logger:        logger.Named("UserUsecase"),
		defaultRegion: defaultRegion,
	}
}

// Me serves the profile through the cache: invalidate, reload from the
// store, repopulate. A deleted account falls out naturally because the
// reload fails.
func (u *UserUsecase) Me(ctx context.Context, userID string) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed user id", ErrValidation)
	}
	return u.cache.Refresh(ctx, userID, func(ctx context.Context) (*entity.User, error) {
		return u.store.FindByID(ctx, oid)
	})
}

type UpdateInfoInput struct {
	Name     string
	Email    string
	Phone    string
	Location string
}

// UpdateInfo applies a partial profile update. A changed email is checked
// against other accounts before the write; the unique indexes still back
// this up against races.
func (u *UserUsecase) UpdateInfo(ctx context.Context, userID string, in UpdateInfoInput) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed user id", ErrValidation)
	}

	fields := bson.M{}
	if in.Name != "" {
		fields["name"] = in.Name
	}
	if in.Location != "" {
		fields["location"] = in.Location
	}
	if in.Email != "" {
		if !emailPattern.MatchString(in.Email) {
			return nil, fmt.Errorf("%w: please enter a valid email", ErrValidation)
		}
		email := repository.NormalizeEmail(in.Email)
		other, err := u.store.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		if other != nil && other.ID != oid {
			return nil, repository.ErrDuplicateEmail
		}
		fields["email"] = email
	}
	if in.Phone != "" {
		phone, err := repository.NormalizePhone(in.Phone, u.defaultRegion)
		if err != nil {
			return nil, fmt.Errorf("%w: please enter a valid mobile number", ErrValidation)
		}
		fields["phone"] = phone
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	return u.cache.Refresh(ctx, userID, func(ctx context.Context) (*entity.User, error) {
		return u.store.UpdateFields(ctx, oid, fields)
	})
}

// UpdatePassword verifies the old password against the stored hash before
// accepting the new one. Social accounts without a password cannot use
// this path.
func (u *UserUsecase) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: old and new passwords are required", ErrValidation)
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("%w: malformed user id", ErrValidation)
	}

	user, err := u.store.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	if user.Password == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := u.store.UpdatePassword(ctx, oid, string(hash)); err != nil {
		return err
	}

	_, err = u.cache.Refresh(ctx, userID, func(ctx context.Context) (*entity.User, error) {
		return u.store.FindByID(ctx, oid)
	})
	return err
}

// UpdateAvatar uploads the new image first, then swaps the stored
// reference, then removes the previous object. Social avatar references
// are not object keys and are left alone.
func (u *UserUsecase) UpdateAvatar(ctx context.Context, userID, fileName, contentType string, data []byte) (*entity.User, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: avatar file is empty", ErrValidation)
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed user id", ErrValidation)
	}

	current, err := u.store.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	objectKey, fileURL, err := u.avatars.Upload(ctx, fileName, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("%w: avatar upload failed", ErrUpstream)
	}

	updated, err := u.cache.Refresh(ctx, userID, func(ctx context.Context) (*entity.User, error) {
		return u.store.UpdateFields(ctx, oid, bson.M{
			"avatar": entity.Avatar{ID: objectKey, URL: fileURL},
		})
	})
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(current.Avatar.ID, "avatars/") {
		if err := u.avatars.Delete(ctx, current.Avatar.ID); err != nil {
			u.logger.Warn("Failed to delete replaced avatar", zap.String("key", current.Avatar.ID), zap.Error(err))
		}
	}
	return updated, nil
}

// ListUsers returns accounts newest-first for the admin view.
func (u *UserUsecase) ListUsers(ctx context.Context, skip, limit int64) ([]*entity.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return u.store.List(ctx, skip, limit)
}

// UpdateRole changes an account's role, addressed by email as the admin
// console does. The target's snapshot is repopulated only when one exists:
// a snapshot's presence is session liveness, so writing one for a
// logged-out user would re-arm their refresh token.
func (u *UserUsecase) UpdateRole(ctx context.Context, email, role string) (*entity.User, error) {
	if role != entity.RoleUser && role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrValidation, entity.RoleUser, entity.RoleAdmin)
	}

	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	updated, err := u.store.UpdateFields(ctx, user.ID, bson.M{"role": role})
	if err != nil {
		return nil, err
	}

	snapshot, err := u.cache.Get(ctx, user.ID.Hex())
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		if err := u.cache.Populate(ctx, user.ID.Hex(), updated); err != nil {
			return nil, err
		}
	}

	u.logger.Info("Role updated", zap.String("userID", user.ID.Hex()), zap.String("role", role))
	return updated, nil
}

// DeleteUser removes the account, its cached session, and its stored
// avatar object, then announces the deletion.
func (u *UserUsecase) DeleteUser(ctx context.Context, userID string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("%w: malformed user id", ErrValidation)
	}

	user, err := u.store.FindByID(ctx, oid)
	if err != nil {
		return err
	}

	if err := u.store.Delete(ctx, oid); err != nil {
		return err
	}
	if err := u.cache.Invalidate(ctx, userID); err != nil {
		u.logger.Warn("Failed to invalidate session for deleted user", zap.String("userID", userID), zap.Error(err))
	}
	if strings.HasPrefix(user.Avatar.ID, "avatars/") {
		if err := u.avatars.Delete(ctx, user.Avatar.ID); err != nil {
			u.logger.Warn("Failed to delete avatar of removed user", zap.String("key", user.Avatar.ID), zap.Error(err))
		}
	}
	if err := u.events.PublishUserDeleted(ctx, userID); err != nil {
		u.logger.Warn("Failed to publish user.deleted event", zap.Error(err))
	}

	u.logger.Info("User deleted", zap.String("userID", userID))
	return nil
}
