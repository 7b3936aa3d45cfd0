package auth

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopadmin/apiserver/types"
)

// MinPasswordLength is the shortest password accepted at sign-in and sign-up.
const MinPasswordLength = 6

// SignInInput is the payload of a password sign-in.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in SignInInput) normalize() SignInInput {
	in.Email = strings.TrimSpace(in.Email)
	return in
}

// Validate checks the payload; each field reports only its first violation.
func (in SignInInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules()...),
		validation.Field(&in.Password, passwordRules()...),
	)
}

// SignUpInput is the payload of a password registration.
type SignUpInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`

	// IsAdmin is only honoured for administrative callers.
	IsAdmin bool `json:"isadmin"`
}

func (in SignUpInput) normalize() SignUpInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

func (in SignUpInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required.Error("First name is required")),
		validation.Field(&in.LastName, validation.Required.Error("Last name is required")),
		validation.Field(&in.Email, emailRules()...),
		validation.Field(&in.Password, passwordRules()...),
	)
}

// FederatedProfile is what a federated provider asserted about the signing-in user.
type FederatedProfile struct {
	Provider    types.Provider `json:"provider"`
	Email       string         `json:"email"`
	DisplayName string         `json:"name"`
	GivenName   string         `json:"given_name"`
	FamilyName  string         `json:"family_name"`
	PictureURL  string         `json:"picture"`
}

func (p FederatedProfile) normalize() FederatedProfile {
	p.Email = strings.TrimSpace(p.Email)
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.GivenName = strings.TrimSpace(p.GivenName)
	p.FamilyName = strings.TrimSpace(p.FamilyName)
	return p
}

func (p FederatedProfile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Provider,
			validation.Required.Error("Provider is required"),
			validation.By(federatedProvider),
		),
		validation.Field(&p.Email, emailRules()...),
	)
}

func federatedProvider(value interface{}) error {
	provider, _ := value.(types.Provider)
	if provider == types.ProviderCredentials {
		return errors.New("Provider must be a federated provider")
	}
	return nil
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Email address is required"),
		is.Email.Error("Invalid email address"),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Password is required"),
		validation.RuneLength(MinPasswordLength, 0).Error("Password must be at least 6 characters"),
	}
}

// ValidatePassword applies the password rules to a standalone value,
// for flows such as an administrative password change.
func ValidatePassword(password string) error {
	if err := validation.Validate(password, passwordRules()...); err != nil {
		return &Error{
			Kind:    KindValidationFailed,
			Message: err.Error(),
			Fields:  map[string]string{"password": err.Error()},
		}
	}
	return nil
}

// validationFailure converts ozzo-validation output into a KindValidationFailed error.
func validationFailure(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return internalError(err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}
	return &Error{Kind: KindValidationFailed, Message: msgValidationFailed, Fields: fields}
}
