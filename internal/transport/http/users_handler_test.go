package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"userdir/internal/domain"
	apperrors "userdir/internal/errors"
)

// MockUserService implements services.UserService for handler tests
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id string, req domain.UpdateUserRequest) (domain.User, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestHandler(t *testing.T) (*UserHandler, *MockUserService, chi.Router) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &MockUserService{}
	h := NewUserHandler(svc, apperrors.NewHandler(logger, false), logger)

	r := chi.NewRouter()
	r.Mount("/users", h.Routes())
	return h, svc, r
}

func sampleUser() domain.User {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return domain.User{
		ID:        "11111111-2222-3333-4444-555555555555",
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestUserHandler_Create(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		setupMock   func(*MockUserService)
		wantStatus  int
	}{
		{
			name:        "json payload",
			contentType: "application/json",
			body:        `{"name": "Ada Lovelace", "email": "ada@example.com"}`,
			setupMock: func(m *MockUserService) {
				m.On("Create", mock.Anything, domain.CreateUserRequest{
					Name: "Ada Lovelace", Email: "ada@example.com",
				}).Return(sampleUser(), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:        "urlencoded payload",
			contentType: "application/x-www-form-urlencoded",
			body: url.Values{
				"name":  {"Ada Lovelace"},
				"email": {"ada@example.com"},
			}.Encode(),
			setupMock: func(m *MockUserService) {
				m.On("Create", mock.Anything, domain.CreateUserRequest{
					Name: "Ada Lovelace", Email: "ada@example.com",
				}).Return(sampleUser(), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:        "malformed json",
			contentType: "application/json",
			body:        `{"name": `,
			setupMock:   func(m *MockUserService) {},
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "validation failure from service",
			contentType: "application/json",
			body:        `{"name": "", "email": "nope"}`,
			setupMock: func(m *MockUserService) {
				m.On("Create", mock.Anything, mock.Anything).
					Return(domain.User{}, apperrors.ErrValidationFailed)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "duplicate email",
			contentType: "application/json",
			body:        `{"name": "Ada", "email": "ada@example.com"}`,
			setupMock: func(m *MockUserService) {
				m.On("Create", mock.Anything, mock.Anything).
					Return(domain.User{}, apperrors.ErrDuplicateEmail)
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svc, router := newTestHandler(t)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/users/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusCreated {
				body := decodeJSONBody(t, rr)
				assert.Equal(t, "ada@example.com", body["email"])
				assert.NotEmpty(t, body["id"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestUserHandler_List(t *testing.T) {
	_, svc, router := newTestHandler(t)
	svc.On("List", mock.Anything).Return([]domain.User{sampleUser()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeJSONBody(t, rr)
	assert.Equal(t, float64(1), body["count"])
	svc.AssertExpectations(t)
}

func TestUserHandler_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		_, svc, router := newTestHandler(t)
		user := sampleUser()
		svc.On("Get", mock.Anything, user.ID).Return(user, nil)

		req := httptest.NewRequest(http.MethodGet, "/users/"+user.ID, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeJSONBody(t, rr)
		assert.Equal(t, user.ID, body["id"])
	})

	t.Run("not found yields problem details", func(t *testing.T) {
		_, svc, router := newTestHandler(t)
		svc.On("Get", mock.Anything, "missing").Return(domain.User{}, apperrors.ErrUserNotFound)

		req := httptest.NewRequest(http.MethodGet, "/users/missing", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
		body := decodeJSONBody(t, rr)
		assert.Equal(t, "/errors/not-found", body["type"])
		assert.Equal(t, "USER_NOT_FOUND", body["error_code"])
	})
}

func TestUserHandler_Update(t *testing.T) {
	_, svc, router := newTestHandler(t)
	user := sampleUser()
	user.Name = "Countess of Lovelace"
	svc.On("Update", mock.Anything, user.ID, domain.UpdateUserRequest{
		Name: "Countess of Lovelace",
	}).Return(user, nil)

	payload := `{"name": "Countess of Lovelace"}`
	req := httptest.NewRequest(http.MethodPut, "/users/"+user.ID, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeJSONBody(t, rr)
	assert.Equal(t, "Countess of Lovelace", body["name"])
	svc.AssertExpectations(t)
}

func TestUserHandler_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		_, svc, router := newTestHandler(t)
		svc.On("Delete", mock.Anything, "abc").Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/users/abc", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, svc, router := newTestHandler(t)
		svc.On("Delete", mock.Anything, "abc").Return(apperrors.ErrUserNotFound)

		req := httptest.NewRequest(http.MethodDelete, "/users/abc", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
