package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account providers. Password is required only for ProviderEmail accounts;
// social accounts are created already verified.
const (
	ProviderEmail    = "email"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Avatar is the stored image reference: ID is the object key at the image
// host (or "<provider>_<externalID>" for social avatars), URL is public.
type Avatar struct {
	ID  string `json:"id" bson:"id,omitempty"`
	URL string `json:"url" bson:"url,omitempty"`
}

// User is the credential-store record. Password holds the bcrypt hash and
// is never serialized into API responses or cache snapshots.
type User struct {
	ID         primitive.ObjectID `json:"id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Phone      string             `json:"phone,omitempty"`
	Location   string             `json:"location,omitempty"`
	Password   string             `json:"-"`
	Avatar     Avatar             `json:"avatar"`
	Role       string             `json:"role"`
	IsVerified bool               `json:"isVerified"`
	Provider   string             `json:"provider"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// PendingUser is the payload carried inside a signed activation ticket.
// No database row exists while an account is pending: the ticket is the
// only state, so these fields must be complete enough to materialize the
// account at activation time.
type PendingUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location,omitempty"`
	Password string `json:"password"` // bcrypt hash, never the raw password
}

// SocialProfile is what an external identity provider hands us after the
// client-side OAuth exchange.
type SocialProfile struct {
	ExternalID string
	Email      string
	Name       string
	Picture    string
	Phone      string
}
