package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopadmin/apiserver/types"
)

// DefaultSessionMaxAge is how long an issued session token stays valid.
const DefaultSessionMaxAge = 30 * 24 * time.Hour

const (
	claimSubject   = "sub"
	claimIsAdmin   = "isadmin"
	claimName      = "name"
	claimFirstName = "first_name"
	claimLastName  = "last_name"
	claimPicture   = "picture"
)

var ErrInvalidToken = errors.New("invalid session token")

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, maxAge time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session signing secret is required")
	}
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	return &TokenIssuer{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// MaxAge returns the lifetime of issued tokens.
func (t *TokenIssuer) MaxAge() time.Duration {
	return t.maxAge
}

// Issue signs claims into a token and returns it with its expiry.
func (t *TokenIssuer) Issue(claims types.Claims) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.maxAge)

	payload := jwt.MapClaims{
		claimSubject:   claims.SubjectID,
		claimIsAdmin:   claims.IsAdmin,
		claimName:      claims.DisplayName,
		claimFirstName: claims.FirstName,
		claimLastName:  claims.LastName,
		"iat":          jwt.NewNumericDate(now),
		"exp":          jwt.NewNumericDate(expiresAt),
	}
	if claims.PictureURL != "" {
		payload[claimPicture] = claims.PictureURL
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of a token and returns its raw claims.
func (t *TokenIssuer) Verify(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Session is the per-request view of a verified token. Nil fields mean the
// token did not carry a value of the expected type.
type Session struct {
	SubjectID   string  `json:"id"`
	IsAdmin     *bool   `json:"isadmin,omitempty"`
	DisplayName *string `json:"name,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	PictureURL  *string `json:"image"`
}

// SessionFromClaims rehydrates a Session from token claims. Every field is
// type-checked; a value of the wrong type is dropped rather than coerced.
func SessionFromClaims(claims jwt.MapClaims) Session {
	session := Session{
		IsAdmin:     boolClaim(claims, claimIsAdmin),
		DisplayName: stringClaim(claims, claimName),
		FirstName:   stringClaim(claims, claimFirstName),
		LastName:    stringClaim(claims, claimLastName),
		PictureURL:  stringClaim(claims, claimPicture),
	}
	if sub := stringClaim(claims, claimSubject); sub != nil {
		session.SubjectID = *sub
	}
	return session
}

// Authenticated reports whether the session names a subject.
func (s Session) Authenticated() bool {
	return s.SubjectID != ""
}

// Admin reports whether the session carries an explicit true isadmin claim.
func (s Session) Admin() bool {
	return s.IsAdmin != nil && *s.IsAdmin
}

func boolClaim(claims jwt.MapClaims, key string) *bool {
	value, ok := claims[key].(bool)
	if !ok {
		return nil
	}
	return &value
}

func stringClaim(claims jwt.MapClaims, key string) *string {
	value, ok := claims[key].(string)
	if !ok {
		return nil
	}
	return &value
}
