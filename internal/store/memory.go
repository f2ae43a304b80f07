// Package store provides the in-memory storage backend for the user
// directory. The store must be connected before use and disconnected on
// shutdown; both calls are safe to repeat.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"userdir/internal/config"
	"userdir/internal/domain"
)

// Sentinel errors returned by store operations.
var (
	ErrNotConnected   = errors.New("store: not connected")
	ErrNotFound       = errors.New("store: user not found")
	ErrDuplicateEmail = errors.New("store: email already registered")
	ErrCapacity       = errors.New("store: capacity exceeded")
)

// MemoryStore keeps all users in process memory, guarded by a RWMutex.
// Contents do not survive a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	byEmail   map[string]string
	connected bool

	cfg    config.StoreConfig
	logger *slog.Logger

	now func() time.Time
}

// NewMemoryStore creates an unconnected in-memory store.
func NewMemoryStore(cfg config.StoreConfig, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "memory_store")),
		now:     time.Now,
	}
}

// Connect prepares the store for use, loading the optional seed file.
// Calling Connect on an already connected store is a no-op.
func (s *MemoryStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store connect cancelled: %w", err)
	}

	if s.cfg.SeedFile != "" {
		if err := s.loadSeedLocked(); err != nil {
			return fmt.Errorf("failed to load seed file %s: %w", s.cfg.SeedFile, err)
		}
	}

	s.connected = true
	s.logger.InfoContext(ctx, "store connected",
		slog.Int("users", len(s.users)),
		slog.String("seed_file", s.cfg.SeedFile),
	)
	return nil
}

// Disconnect releases the store. Idempotent.
func (s *MemoryStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}
	s.connected = false
	s.logger.InfoContext(ctx, "store disconnected", slog.Int("users", len(s.users)))
	return nil
}

// Connected reports whether Connect has completed.
func (s *MemoryStore) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Create inserts a new user, assigning its ID and timestamps.
func (s *MemoryStore) Create(ctx context.Context, name, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return domain.User{}, ErrNotConnected
	}

	key := emailKey(email)
	if _, exists := s.byEmail[key]; exists {
		return domain.User{}, ErrDuplicateEmail
	}
	if s.cfg.MaxUsers > 0 && len(s.users) >= s.cfg.MaxUsers {
		return domain.User{}, ErrCapacity
	}

	now := s.now().UTC()
	user := domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[user.ID] = user
	s.byEmail[key] = user.ID
	return user, nil
}

// Get returns the user with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return domain.User{}, ErrNotConnected
	}
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// List returns all users ordered by creation time.
func (s *MemoryStore) List(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return nil, ErrNotConnected
	}

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// Update applies non-empty fields to an existing user.
func (s *MemoryStore) Update(ctx context.Context, id, name, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return domain.User{}, ErrNotConnected
	}
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}

	if email != "" && emailKey(email) != emailKey(user.Email) {
		key := emailKey(email)
		if _, exists := s.byEmail[key]; exists {
			return domain.User{}, ErrDuplicateEmail
		}
		delete(s.byEmail, emailKey(user.Email))
		s.byEmail[key] = id
		user.Email = email
	}
	if name != "" {
		user.Name = name
	}
	user.UpdatedAt = s.now().UTC()

	s.users[id] = user
	return user, nil
}

// Delete removes the user with the given ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, emailKey(user.Email))
	return nil
}

// Count returns the number of stored users.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// seedUser is the seed file entry shape.
type seedUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// loadSeedLocked loads users from the configured JSON seed file.
// Caller holds the write lock.
func (s *MemoryStore) loadSeedLocked() error {
	data, err := os.ReadFile(s.cfg.SeedFile)
	if err != nil {
		return err
	}

	var seeds []seedUser
	if err := json.Unmarshal(data, &seeds); err != nil {
		return err
	}

	now := s.now().UTC()
	for _, seed := range seeds {
		key := emailKey(seed.Email)
		if _, exists := s.byEmail[key]; exists {
			continue
		}
		user := domain.User{
			ID:        uuid.New().String(),
			Name:      seed.Name,
			Email:     seed.Email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.users[user.ID] = user
		s.byEmail[key] = user.ID
	}
	return nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
