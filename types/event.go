package types

import "time"

const (
	EventIdentityCreated         = "identity.created"
	EventIdentityProviderClaimed = "identity.provider_claimed"
)

// IdentityEvent describes a change to an identity record.
type IdentityEvent struct {
	Type       string    `json:"type"`
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email"`
	Provider   Provider  `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
