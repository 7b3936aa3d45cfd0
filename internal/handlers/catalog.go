package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopadmin/apiserver/internal/services"
	"go.uber.org/zap"
)

// CategoryHandler serves category administration.
type CategoryHandler struct {
	service *services.CategoryService
	logger  *zap.Logger
}

func NewCategoryHandler(service *services.CategoryService, logger *zap.Logger) *CategoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryHandler{service: service, logger: logger}
}

func CategoryRouter(r chi.Router, handler *CategoryHandler) {
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Get("/{id}", handler.Get)
	r.Put("/{id}", handler.Update)
	r.Delete("/{id}", handler.Delete)
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	category, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	category, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatusHandler serves status administration.
type StatusHandler struct {
	service *services.StatusService
	logger  *zap.Logger
}

func NewStatusHandler(service *services.StatusService, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{service: service, logger: logger}
}

func StatusRouter(r chi.Router, handler *StatusHandler) {
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Get("/{id}", handler.Get)
	r.Put("/{id}", handler.Update)
	r.Delete("/{id}", handler.Delete)
}

func (h *StatusHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *StatusHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.StatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	status, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

func (h *StatusHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.StatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	status, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *StatusHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
