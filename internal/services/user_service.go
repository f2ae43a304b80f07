package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"userdir/internal/domain"
	apperrors "userdir/internal/errors"
	"userdir/internal/store"
)

// UserService defines the business operations on the user directory.
type UserService interface {
	Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error)
	Get(ctx context.Context, id string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id string, req domain.UpdateUserRequest) (domain.User, error)
	Delete(ctx context.Context, id string) error
}

// userService implements UserService on top of the in-memory store.
type userService struct {
	store    *store.MemoryStore
	validate *validator.Validate
	logger   *slog.Logger
}

// NewUserService creates a user service with a specific logger
func NewUserService(st *store.MemoryStore, logger *slog.Logger) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		store:    st,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(slog.String("component", "user_service")),
	}
}

// Create validates and stores a new user.
func (s *userService) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if err := s.validate.StructCtx(ctx, req); err != nil {
		return domain.User{}, validationError(err)
	}

	user, err := s.store.Create(ctx, req.Name, req.Email)
	if err != nil {
		return domain.User{}, storeError(err)
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Get returns a single user by ID.
func (s *userService) Get(ctx context.Context, id string) (domain.User, error) {
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.User{}, storeError(err)
	}
	return user, nil
}

// List returns all users ordered by creation time.
func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return users, nil
}

// Update validates and applies a partial update.
func (s *userService) Update(ctx context.Context, id string, req domain.UpdateUserRequest) (domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Name == "" && req.Email == "" {
		return domain.User{}, apperrors.NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST",
			"Invalid request format", "at least one of name or email must be provided")
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return domain.User{}, validationError(err)
	}

	user, err := s.store.Update(ctx, id, req.Name, req.Email)
	if err != nil {
		return domain.User{}, storeError(err)
	}

	s.logger.InfoContext(ctx, "user updated", slog.String("user_id", user.ID))
	return user, nil
}

// Delete removes a user by ID.
func (s *userService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", id))
	return nil
}

// validationError maps validator failures onto an APIError with
// per-field details.
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.InvalidRequestWithError(err)
	}

	fields := make([]apperrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
		})
	}
	return apperrors.NewValidationErrors(fields)
}

// storeError maps store sentinel errors onto structured API errors.
func storeError(err error) error {
	switch err {
	case store.ErrNotFound:
		return apperrors.ErrUserNotFound
	case store.ErrDuplicateEmail:
		return apperrors.ErrDuplicateEmail
	case store.ErrNotConnected:
		return apperrors.ErrStoreUnavailable
	case store.ErrCapacity:
		return apperrors.NewWithDetails(http.StatusServiceUnavailable, "STORE_FULL",
			"Storage backend is at capacity", err.Error())
	default:
		return err
	}
}
