package auth

import (
	"fmt"
	"net/url"
	"regexp"
)

// CallbackParam is the query parameter carrying the originally requested URL.
const CallbackParam = "callbackUrl"

// PathGate decides which request paths need an authenticated session.
type PathGate struct {
	patterns   []*regexp.Regexp
	signInPath string
}

// Decision is the result of PathGate.Authorize.
type Decision struct {
	Allowed bool

	// RedirectURL is set when the caller should be sent to sign in.
	RedirectURL string
}

// NewPathGate compiles the protected path patterns. Patterns are unanchored
// regular expressions matched against the request path.
func NewPathGate(patterns []string, signInPath string) (*PathGate, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid protected path pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	if signInPath == "" {
		signInPath = "/signin"
	}
	return &PathGate{patterns: compiled, signInPath: signInPath}, nil
}

func (g *PathGate) IsProtected(path string) bool {
	for _, re := range g.patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Authorize lets requests through unless the path is protected and there is
// no session, in which case it points at the sign-in page with the requested
// URL as callback.
func (g *PathGate) Authorize(hasSession bool, requested *url.URL) Decision {
	if hasSession || requested == nil || !g.IsProtected(requested.Path) {
		return Decision{Allowed: true}
	}
	return Decision{RedirectURL: g.SignInURL(requested.String())}
}

// SignInURL builds the sign-in location for the given callback.
func (g *PathGate) SignInURL(callback string) string {
	target := url.URL{Path: g.signInPath}
	if callback != "" {
		q := target.Query()
		q.Set(CallbackParam, callback)
		target.RawQuery = q.Encode()
	}
	return target.String()
}

// CanManageUser reports whether the session may view or edit the profile of ownerID.
func CanManageUser(session Session, ownerID string) bool {
	if session.Admin() {
		return true
	}
	return session.Authenticated() && session.SubjectID == ownerID
}
