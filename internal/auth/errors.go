package auth

import (
	"errors"
	"fmt"

	"github.com/shopadmin/apiserver/types"
)

// Kind classifies an authentication failure.
type Kind string

const (
	KindValidationFailed   Kind = "validation_failed"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindProviderMismatch   Kind = "provider_mismatch"
	KindAlreadyExists      Kind = "already_exists"
	KindDenied             Kind = "denied"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
)

const (
	msgValidationFailed   = "Validation failed. Required fields are missing or invalid."
	msgInvalidCredentials = "Invalid email or password. Please try again."
	msgDenied             = "This email is registered with a password. Please sign in with your email and password."
	msgRateLimited        = "Too many failed sign-in attempts. Please try again later."
	msgInternal           = "An unexpected error occurred. Please try again."
)

// Error is the structured failure returned by every operation in this package.
// Provider and Fields carry the data callers need; Message is for display only.
type Error struct {
	Kind     Kind
	Message  string
	Provider types.Provider
	Fields   map[string]string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInternal
}

func invalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: msgInvalidCredentials}
}

func providerMismatch(provider types.Provider) *Error {
	return &Error{
		Kind:     KindProviderMismatch,
		Provider: provider,
		Message:  fmt.Sprintf("This account was created with %s. Please sign in with %s instead.", provider, provider),
	}
}

func alreadyExists(email string) *Error {
	return &Error{
		Kind:    KindAlreadyExists,
		Message: fmt.Sprintf("User with this email %s already exists. Please sign in instead.", email),
		Fields:  map[string]string{"email": "Email must be unique."},
	}
}

func denied() *Error {
	return &Error{Kind: KindDenied, Message: msgDenied, Provider: types.ProviderCredentials}
}

func rateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: msgRateLimited}
}

func internalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: msgInternal, Err: err}
}
