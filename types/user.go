package types

import "time"

// Provider identifies the authentication method that owns an identity.
// The empty value means the provider is unset.
type Provider string

const (
	ProviderUnset       Provider = ""
	ProviderCredentials Provider = "credentials"
	ProviderGoogle      Provider = "google"
	ProviderGitHub      Provider = "github"
	ProviderTwitter     Provider = "twitter"
)

// IsSet reports whether a provider tag has been recorded.
func (p Provider) IsSet() bool {
	return p != ProviderUnset
}

// IsFederated reports whether the provider is an OAuth-style provider.
func (p Provider) IsFederated() bool {
	return p.IsSet() && p != ProviderCredentials
}

// Identity represents one authenticable account.
// Exactly one identity exists per email address.
type Identity struct {
	// ID is the opaque identifier assigned at creation.
	ID string `json:"id" db:"id"`

	// Email is the natural key of the identity.
	Email string `json:"email" db:"email"`

	// PasswordHash is empty unless the identity was established
	// through the credentials provider. Never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Provider records which authentication method established the identity.
	Provider Provider `json:"provider,omitempty" db:"provider"`

	// DisplayName is usually "first last".
	DisplayName string `json:"name" db:"name"`

	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`

	// PictureURL points to the profile picture, if any.
	PictureURL string `json:"image,omitempty" db:"image"`

	IsAdmin  bool `json:"isadmin" db:"is_admin"`
	IsActive bool `json:"isactive" db:"is_active"`

	// EmailVerified is set when a federated provider vouched for the email.
	EmailVerified *time.Time `json:"email_verified,omitempty" db:"email_verified"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasPassword reports whether a password hash is stored.
func (i Identity) HasPassword() bool {
	return i.PasswordHash != ""
}

// Claims is the identity-derived payload embedded in a session token.
type Claims struct {
	SubjectID   string `json:"sub"`
	IsAdmin     bool   `json:"isadmin"`
	DisplayName string `json:"name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PictureURL  string `json:"picture,omitempty"`
}
