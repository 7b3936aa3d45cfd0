package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/internal/services"
	"github.com/shopadmin/apiserver/internal/storage"
	"github.com/shopadmin/apiserver/internal/store"
	"go.uber.org/zap"
)

const (
	maxJSONBody        = 1 << 20
	msgInvalidRequest  = "invalid request"
	msgUnexpectedError = "An unexpected error occurred. Please try again."
)

type contextKey string

const contextSessionKey contextKey = "session"

func withSession(ctx context.Context, session auth.Session) context.Context {
	return context.WithValue(ctx, contextSessionKey, session)
}

// SessionFromContext returns the verified session of the request, if any.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	session, ok := ctx.Value(contextSessionKey).(auth.Session)
	if !ok || !session.Authenticated() {
		return auth.Session{}, false
	}
	return session, true
}

// ErrorResponse is the error payload of every endpoint.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Provider string            `json:"provider,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return false
	}
	return true
}

var authStatus = map[auth.Kind]int{
	auth.KindValidationFailed:   http.StatusUnprocessableEntity,
	auth.KindInvalidCredentials: http.StatusUnauthorized,
	auth.KindProviderMismatch:   http.StatusConflict,
	auth.KindAlreadyExists:      http.StatusConflict,
	auth.KindDenied:             http.StatusForbidden,
	auth.KindRateLimited:        http.StatusTooManyRequests,
	auth.KindInternal:           http.StatusInternalServerError,
}

// writeServiceError maps errors from the auth core, services, and stores to
// a status code and payload. Unclassified errors are logged, never echoed.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		authErr     *auth.Error
		invalid     *services.ValidationError
		conflict    *services.ConflictError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &authErr):
		status, ok := authStatus[authErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, ErrorResponse{
			Error:    authErr.Message,
			Fields:   authErr.Fields,
			Provider: string(authErr.Provider),
		})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: invalid.Message, Fields: invalid.Fields})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: conflict.Message, Fields: conflict.Fields})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, storage.ErrUnsupportedImage):
		writeError(w, http.StatusUnsupportedMediaType, "picture must be a png, jpeg, gif or webp image")
	case errors.As(err, &maxBytesErr):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, services.ErrPicturesDisabled):
		writeError(w, http.StatusServiceUnavailable, "picture uploads are not enabled")
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgUnexpectedError)
	}
}
