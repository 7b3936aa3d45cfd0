package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/internal/services"
	"github.com/shopadmin/apiserver/internal/storage"
	"go.uber.org/zap"
)

const pictureFormField = "picture"

// UserHandler serves identity administration and self-service profile routes.
type UserHandler struct {
	service *services.UserService
	logger  *zap.Logger
}

func NewUserHandler(service *services.UserService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{service: service, logger: logger}
}

// AdminUserRouter registers the administrator routes. Callers must guard
// them with RequireAdmin.
func AdminUserRouter(r chi.Router, handler *UserHandler) {
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Get("/{id}", handler.Get)
	r.Put("/{id}", handler.Update)
	r.Delete("/{id}", handler.Delete)
}

// UserRouter registers the per-user routes. The owner or an administrator
// may read and edit a user.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Use(RequireSession)
	r.Get("/{id}", handler.Get)
	r.Put("/{id}", handler.Update)
	r.Put("/{id}/picture", handler.UploadPicture)
}

// ProfileRouter registers routes acting on the signed-in user.
func ProfileRouter(r chi.Router, handler *UserHandler) {
	r.Use(RequireSession)
	r.Get("/", handler.Profile)
	r.Put("/", handler.UpdateProfile)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if !decodeJSON(w, r, &in) {
		return
	}

	identity, err := h.service.Add(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, identity)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}

	identity, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}
	h.update(w, r, id)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	identity, err := h.service.Get(r.Context(), session.SubjectID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	h.update(w, r, session.SubjectID)
}

// UploadPicture replaces the profile picture with the multipart "picture" file.
func (h *UserHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, id) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxPictureSize+maxJSONBody)
	if err := r.ParseMultipartForm(storage.MaxPictureSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "picture too large")
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	file, header, err := r.FormFile(pictureFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "picture file is required")
		return
	}
	defer file.Close()
	if header.Size > storage.MaxPictureSize {
		writeError(w, http.StatusRequestEntityTooLarge, "picture too large")
		return
	}

	identity, err := h.service.SetPicture(r.Context(), id, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var in services.UpdateUserInput
	if !decodeJSON(w, r, &in) {
		return
	}

	session, _ := SessionFromContext(r.Context())
	identity, err := h.service.Update(r.Context(), id, in, session.Admin())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *UserHandler) authorize(w http.ResponseWriter, r *http.Request, id string) bool {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if !auth.CanManageUser(session, id) {
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}
