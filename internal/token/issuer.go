package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gyanoda/user-service/internal/config"
	"github.com/gyanoda/user-service/internal/entity"
)

var (
	ErrMissingSecret   = errors.New("token signing secret is not configured")
	ErrInvalidCode     = errors.New("invalid activation code")
	ErrTicketExpired   = errors.New("activation ticket expired")
	ErrTicketMalformed = errors.New("activation ticket malformed")
	ErrInvalidToken    = errors.New("invalid or expired token")
)

// TokenPair is an access/refresh pair for one session. AccessExpiresAt is
// always strictly earlier than RefreshExpiresAt.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type activationClaims struct {
	User           entity.PendingUser `json:"user"`
	ActivationCode string             `json:"activationCode"`
	jwt.RegisteredClaims
}

type sessionClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies every token kind the service uses: activation
// tickets, session pairs, and password-reset tokens. Each kind is signed
// with its own secret.
type Issuer struct {
	cfg config.TokensConfig
}

func NewIssuer(cfg config.TokensConfig) (*Issuer, error) {
	if cfg.ActivationSecret == "" || cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.ResetSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, config.ErrTokenTTLOrder
	}
	return &Issuer{cfg: cfg}, nil
}

// generateCode draws a 4-digit code uniformly from [1000, 9999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", 1000+n.Int64()), nil
}

// IssueActivationTicket embeds the pending user and a fresh 4-digit code in
// a signed token. The ticket is the only registration state the server
// keeps; no database row exists until activation.
func (i *Issuer) IssueActivationTicket(pending *entity.PendingUser) (string, string, error) {
	code, err := generateCode()
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	claims := activationClaims{
		User:           *pending,
		ActivationCode: code,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.ActivationTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.ActivationSecret))
	if err != nil {
		return "", "", err
	}
	return signed, code, nil
}

// VerifyActivationTicket checks signature and expiry via token parsing,
// then checks the supplied code as a separate step: a mismatched code fails
// with ErrInvalidCode even when the ticket itself is valid. Returns the
// pending user and the ticket id for single-use bookkeeping.
func (i *Issuer) VerifyActivationTicket(ticket, suppliedCode string) (*entity.PendingUser, string, error) {
	var claims activationClaims
	_, err := jwt.ParseWithClaims(ticket, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(i.cfg.ActivationSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, "", ErrTicketExpired
		}
		return nil, "", ErrTicketMalformed
	}

	if claims.ActivationCode != suppliedCode {
		return nil, "", ErrInvalidCode
	}
	return &claims.User, claims.ID, nil
}

// ActivationTTL is the ticket lifetime, exposed so consumed-ticket markers
// can outlive the ticket they guard.
func (i *Issuer) ActivationTTL() time.Duration {
	return i.cfg.ActivationTTL
}

// IssueSession mints an access/refresh pair carrying the single claim {id}.
func (i *Issuer) IssueSession(userID string) (*TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(i.cfg.AccessTTL)
	refreshExp := now.Add(i.cfg.RefreshTTL)

	access, err := i.signSession(userID, now, accessExp, i.cfg.AccessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := i.signSession(userID, now, refreshExp, i.cfg.RefreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess mints a standalone access token, used by the refresh flow.
func (i *Issuer) IssueAccess(userID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(i.cfg.AccessTTL)
	signed, err := i.signSession(userID, now, exp, i.cfg.AccessSecret)
	return signed, exp, err
}

func (i *Issuer) signSession(userID string, issued, expires time.Time, secret string) (string, error) {
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (i *Issuer) VerifyAccess(tokenStr string) (string, error) {
	return i.verifySession(tokenStr, i.cfg.AccessSecret)
}

func (i *Issuer) VerifyRefresh(tokenStr string) (string, error) {
	return i.verifySession(tokenStr, i.cfg.RefreshSecret)
}

func (i *Issuer) verifySession(tokenStr, secret string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// IssuePasswordReset mints a 1-hour token for the email reset link. Single
// use is by intent only: consuming it does not mark store-side state.
func (i *Issuer) IssuePasswordReset(userID string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.ResetTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.ResetSecret))
}

func (i *Issuer) VerifyPasswordReset(tokenStr string) (string, error) {
	return i.verifySession(tokenStr, i.cfg.ResetSecret)
}
