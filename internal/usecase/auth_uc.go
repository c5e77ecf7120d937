package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/gyanoda/user-service/internal/entity"
	"github.com/gyanoda/user-service/internal/notifier"
	"github.com/gyanoda/user-service/internal/platform/metrics"
	"github.com/gyanoda/user-service/internal/repository"
	"github.com/gyanoda/user-service/internal/token"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthUsecase drives the registration/activation state machine
// (Unregistered -> Pending -> Verified), login, session refresh, social
// identity reconciliation, and the password reset flow.
type AuthUsecase struct {
	store         UserStore
	cache         SessionCache
	tickets       TicketStore
	tokens        TokenIssuer
	dispatcher    Notifier
	mailer        EmailChannel
	events        EventPublisher
	metrics       *metrics.Manager
	logger        *zap.Logger
	defaultRegion string
	resetURL      string
}

func NewAuthUsecase(
	store UserStore,
	cache SessionCache,
	tickets TicketStore,
	tokens TokenIssuer,
	dispatcher Notifier,
	mailer EmailChannel,
	events EventPublisher,
	mm *metrics.Manager,
	logger *zap.Logger,
	defaultRegion, resetURL string,
) *AuthUsecase {
	return &AuthUsecase{
		store:         store,
		cache:         cache,
		tickets:       tickets,
		tokens:        tokens,
		dispatcher:    dispatcher,
		mailer:        mailer,
		events:        events,
		metrics:       mm,
		logger:        logger.Named("AuthUsecase"),
		defaultRegion: defaultRegion,
		resetURL:      resetURL,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Location string
}

type RegisterOutput struct {
	ActivationToken string
	Email           string
}

// Register runs the Unregistered -> Pending transition. The pending account
// lives entirely inside the returned signed ticket: no row is written. Both
// existence checks run before the ticket is minted; email+phone both taken
// is reported as one combined error.
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Phone == "" {
		return nil, fmt.Errorf("%w: name, email, password and phone are required", ErrValidation)
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, fmt.Errorf("%w: please enter a valid email", ErrValidation)
	}
	if len(in.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	email := repository.NormalizeEmail(in.Email)
	phone, err := repository.NormalizePhone(in.Phone, u.defaultRegion)
	if err != nil {
		return nil, fmt.Errorf("%w: please enter a valid mobile number", ErrValidation)
	}

	emailTaken, err := u.exists(ctx, func(ctx context.Context) (*entity.User, error) {
		return u.store.FindByEmail(ctx, email)
	})
	if err != nil {
		return nil, err
	}
	phoneTaken, err := u.exists(ctx, func(ctx context.Context) (*entity.User, error) {
		return u.store.FindByPhone(ctx, phone)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case emailTaken && phoneTaken:
		return nil, ErrDuplicateBoth
	case emailTaken:
		return nil, repository.ErrDuplicateEmail
	case phoneTaken:
		return nil, repository.ErrDuplicatePhone
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	pending := &entity.PendingUser{
		Name:     in.Name,
		Email:    email,
		Phone:    phone,
		Location: in.Location,
		Password: string(hash),
	}

	ticket, code, err := u.tokens.IssueActivationTicket(pending)
	if err != nil {
		return nil, err
	}

	results := u.dispatcher.Dispatch(ctx, notifier.Notification{
		Kind:  notifier.KindActivation,
		Name:  pending.Name,
		Email: pending.Email,
		Phone: pending.Phone,
		Code:  code,
	})
	u.countNotifications(results)

	// The email channel carries the registration context the client needs;
	// SMS and WhatsApp are best-effort extras. Only a delivered
	// registration counts as one.
	if !notifier.Succeeded(results, notifier.ChannelEmail) {
		return nil, fmt.Errorf("%w: could not deliver activation code", ErrUpstream)
	}
	u.metrics.RegistrationsTotal.Inc()

	if err := u.events.PublishUserRegistered(ctx, pending.Email, pending.Name); err != nil {
		u.logger.Warn("Failed to publish user.registered event", zap.Error(err))
	}

	u.logger.Info("Registration ticket issued", zap.String("email", pending.Email))
	return &RegisterOutput{ActivationToken: ticket, Email: pending.Email}, nil
}

// Activate runs Pending -> Verified. The ticket is verified, marked
// consumed (replay fails even with the right code), uniqueness is
// re-checked to close the register/activate race window, and the account
// is materialized with an upsert-by-email. Confirmation notifications are
// best-effort and never roll back verification.
func (u *AuthUsecase) Activate(ctx context.Context, ticket, code string) error {
	if ticket == "" || code == "" {
		return fmt.Errorf("%w: activation token and code are required", ErrValidation)
	}

	pending, ticketID, err := u.tokens.VerifyActivationTicket(ticket, code)
	if err != nil {
		u.logger.Warn("Activation ticket rejected", zap.Error(err))
		return ErrInvalidCode
	}

	emailTaken, err := u.exists(ctx, func(ctx context.Context) (*entity.User, error) {
		return u.store.FindByEmail(ctx, pending.Email)
	})
	if err != nil {
		return err
	}
	if emailTaken {
		return repository.ErrDuplicateEmail
	}
	phoneTaken, err := u.exists(ctx, func(ctx context.Context) (*entity.User, error) {
		return u.store.FindByPhone(ctx, pending.Phone)
	})
	if err != nil {
		return err
	}
	if phoneTaken {
		return repository.ErrDuplicatePhone
	}

	// Consumed marker outlives the ticket so an expired-then-replayed
	// ticket cannot slip through. If the write below fails the code is
	// burned and the user registers again; the marker TTL keeps that
	// window short.
	fresh, err := u.tickets.Consume(ctx, ticketID, u.tokens.ActivationTTL()+time.Minute)
	if err != nil {
		return err
	}
	if !fresh {
		u.logger.Warn("Replayed activation ticket rejected", zap.String("ticketID", ticketID))
		return ErrInvalidCode
	}

	user, err := u.store.VerifyAndMaterialize(ctx, pending)
	if err != nil {
		return err
	}
	u.metrics.ActivationsTotal.Inc()

	results := u.dispatcher.Dispatch(ctx, notifier.Notification{
		Kind:  notifier.KindConfirmation,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	})
	u.countNotifications(results)

	if err := u.events.PublishUserActivated(ctx, user); err != nil {
		u.logger.Warn("Failed to publish user.activated event", zap.Error(err))
	}

	u.logger.Info("Account activated", zap.String("userID", user.ID.Hex()))
	return nil
}

// ResendOtp mints a fresh ticket from the stored account fields and
// redelivers over the email channel only.
func (u *AuthUsecase) ResendOtp(ctx context.Context, email string) (*RegisterOutput, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	pending := &entity.PendingUser{
		Name:     user.Name,
		Email:    user.Email,
		Phone:    user.Phone,
		Location: user.Location,
		Password: user.Password,
	}

	ticket, code, err := u.tokens.IssueActivationTicket(pending)
	if err != nil {
		return nil, err
	}

	err = u.mailer.Send(ctx, notifier.Notification{
		Kind:  notifier.KindActivation,
		Name:  user.Name,
		Email: user.Email,
		Code:  code,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: could not deliver activation code", ErrUpstream)
	}

	return &RegisterOutput{ActivationToken: ticket, Email: user.Email}, nil
}

// Login authenticates an email-provider account. An unverified account
// fails with a distinct error from bad credentials.
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (*entity.User, *token.TokenPair, error) {
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !user.IsVerified {
		return nil, nil, ErrNotVerified
	}
	if user.Password == "" {
		// Pure social account: there is no password to compare against.
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := u.tokens.IssueSession(user.ID.Hex())
	if err != nil {
		return nil, nil, err
	}
	if err := u.cache.Populate(ctx, user.ID.Hex(), user); err != nil {
		return nil, nil, err
	}

	u.metrics.LoginsTotal.Inc()
	u.logger.Info("Login successful", zap.String("userID", user.ID.Hex()))
	return user, pair, nil
}

// Logout drops the session cache entry and nothing else; the cookies are
// cleared by the handler.
func (u *AuthUsecase) Logout(ctx context.Context, userID string) error {
	return u.cache.Invalidate(ctx, userID)
}

// RefreshSession exchanges a valid refresh token for a new access token.
// The cached snapshot doubles as session liveness: logout (or admin
// delete) kills refresh even while the refresh token is unexpired.
func (u *AuthUsecase) RefreshSession(ctx context.Context, refreshToken string) (string, time.Time, *entity.User, error) {
	userID, err := u.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", time.Time{}, nil, ErrUnauthorized
	}

	snapshot, err := u.cache.Get(ctx, userID)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	if snapshot == nil {
		return "", time.Time{}, nil, ErrUnauthorized
	}

	access, expires, err := u.tokens.IssueAccess(userID)
	if err != nil {
		return "", time.Time{}, nil, err
	}

	// Re-populate to slide the session TTL forward.
	if err := u.cache.Populate(ctx, userID, snapshot); err != nil {
		return "", time.Time{}, nil, err
	}

	return access, expires, snapshot, nil
}

// SocialSignIn reconciles an external provider profile with the credential
// store: create-verified on first sign-in, overwrite name/avatar/provider
// (and merge a supplied phone) on return visits. Social accounts without a
// phone store none; the sparse unique index tolerates its absence.
func (u *AuthUsecase) SocialSignIn(ctx context.Context, provider string, profile entity.SocialProfile) (*entity.User, *token.TokenPair, error) {
	if profile.Email == "" || profile.ExternalID == "" {
		return nil, nil, fmt.Errorf("%w: provider profile is missing email or id", ErrValidation)
	}

	email := repository.NormalizeEmail(profile.Email)
	avatar := entity.Avatar{
		ID:  fmt.Sprintf("%s_%s", provider, profile.ExternalID),
		URL: profile.Picture,
	}

	var phone string
	if profile.Phone != "" {
		normalized, err := repository.NormalizePhone(profile.Phone, u.defaultRegion)
		if err == nil {
			phone = normalized
		}
	}

	user, err := u.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		user = &entity.User{
			Name:       profile.Name,
			Email:      email,
			Phone:      phone,
			Avatar:     avatar,
			Role:       entity.RoleUser,
			IsVerified: true,
			Provider:   provider,
		}
		if _, err := u.store.Create(ctx, user); err != nil {
			return nil, nil, err
		}
	case err != nil:
		return nil, nil, err
	default:
		fields := bson.M{
			"name":     profile.Name,
			"avatar":   avatar,
			"provider": provider,
		}
		if phone != "" {
			fields["phone"] = phone
		}
		user, err = u.store.UpdateFields(ctx, user.ID, fields)
		if err != nil {
			return nil, nil, err
		}
	}

	pair, err := u.tokens.IssueSession(user.ID.Hex())
	if err != nil {
		return nil, nil, err
	}
	if err := u.cache.Populate(ctx, user.ID.Hex(), user); err != nil {
		return nil, nil, err
	}

	u.metrics.SocialSignInsTotal.WithLabelValues(provider).Inc()
	u.logger.Info("Social sign-in reconciled", zap.String("provider", provider), zap.String("userID", user.ID.Hex()))
	return user, pair, nil
}

// ForgetPassword mints a 1-hour reset token and emails the reset link.
func (u *AuthUsecase) ForgetPassword(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	resetToken, err := u.tokens.IssuePasswordReset(user.ID.Hex())
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/%s/%s", u.resetURL, user.ID.Hex(), resetToken)
	if err := u.mailer.SendPasswordReset(ctx, user.Email, user.Name, link); err != nil {
		return fmt.Errorf("%w: could not deliver reset email", ErrUpstream)
	}

	u.logger.Info("Password reset link issued", zap.String("userID", user.ID.Hex()))
	return nil
}

// ValidateResetToken checks the reset link parameters without mutating
// anything; the GET half of the reset flow.
func (u *AuthUsecase) ValidateResetToken(ctx context.Context, userID, resetToken string) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed user id", ErrValidation)
	}

	user, err := u.store.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	tokenUserID, err := u.tokens.VerifyPasswordReset(resetToken)
	if err != nil || tokenUserID != userID {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// ResetPassword consumes the reset link: re-hashes, updates the stored
// hash, and drops the session cache entry so stale sessions die.
func (u *AuthUsecase) ResetPassword(ctx context.Context, userID, resetToken, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	user, err := u.ValidateResetToken(ctx, userID, resetToken)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := u.store.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	if err := u.cache.Invalidate(ctx, user.ID.Hex()); err != nil {
		u.logger.Warn("Failed to invalidate session after password reset", zap.String("userID", user.ID.Hex()), zap.Error(err))
	}

	u.logger.Info("Password reset completed", zap.String("userID", user.ID.Hex()))
	return nil
}

func (u *AuthUsecase) exists(ctx context.Context, find func(ctx context.Context) (*entity.User, error)) (bool, error) {
	_, err := find(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (u *AuthUsecase) countNotifications(results []notifier.Result) {
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "error"
		}
		u.metrics.NotificationsTotal.WithLabelValues(r.Channel, status).Inc()
	}
}
