// Package http contains the HTTP transport layer: the user resource
// handler group and the health endpoint.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"userdir/internal/domain"
	apperrors "userdir/internal/errors"
	"userdir/internal/services"
)

// UserHandler handles the /users resource.
type UserHandler struct {
	service services.UserService
	errors  *apperrors.Handler
	logger  *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(service services.UserService, errorHandler *apperrors.Handler, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger.With(slog.String("handler", "users")),
	}
}

// Routes returns the routable handler group mounted under /users.
func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})

	return r
}

// Create handles POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	user, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user)
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, domain.UserListResponse{Users: users, Count: len(users)})
}

// Get handles GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, user)
}

// Update handles PUT /users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req domain.UpdateUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	user, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, user)
}

// Delete handles DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.NoContent(w, r)
}

// decodeBody decodes a request body into dst, accepting both JSON and
// URL-encoded form payloads.
func decodeBody(r *http.Request, dst interface{}) error {
	contentType := r.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))

	switch contentType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			if isBodyTooLarge(err) {
				return apperrors.ErrPayloadTooLarge
			}
			return apperrors.InvalidRequestWithError(err)
		}
		switch v := dst.(type) {
		case *domain.CreateUserRequest:
			v.Name = r.PostFormValue("name")
			v.Email = r.PostFormValue("email")
		case *domain.UpdateUserRequest:
			v.Name = r.PostFormValue("name")
			v.Email = r.PostFormValue("email")
		default:
			return apperrors.ErrInvalidRequest
		}
		return nil
	default:
		if err := render.DecodeJSON(r.Body, dst); err != nil {
			if isBodyTooLarge(err) {
				return apperrors.ErrPayloadTooLarge
			}
			return apperrors.InvalidRequestWithError(err)
		}
		return nil
	}
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
