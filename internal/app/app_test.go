package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdir/internal/config"
)

// callRecorder captures the order of lifecycle events across fakes.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *callRecorder) firstIndex(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.calls {
		if c == name {
			return i
		}
	}
	return -1
}

func (r *callRecorder) has(name string) bool {
	return r.firstIndex(name) >= 0
}

type fakeStore struct {
	rec         *callRecorder
	connectErr  error
	mu          sync.Mutex
	disconnects int
}

func (s *fakeStore) Connect(ctx context.Context) error {
	s.rec.record("store.connect")
	return s.connectErr
}

func (s *fakeStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.disconnects++
	s.mu.Unlock()
	s.rec.record("store.disconnect")
	return nil
}

func (s *fakeStore) disconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnects
}

type fakeUsers struct {
	rec *callRecorder
}

func (u *fakeUsers) Routes() chi.Router {
	u.rec.record("users.routes")
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

type fakeFilter struct {
	rec *callRecorder
}

func (f *fakeFilter) Handler(next http.Handler) http.Handler {
	f.rec.record("errors.middleware")
	return next
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(port int) *config.Config {
	cfg := config.Default()
	cfg.Server.Port = port
	return cfg
}

// newTestApp builds an application on fakes with a stubbed listener.
func newTestApp(t *testing.T, cfg *config.Config, st Store) (*Application, *callRecorder) {
	t.Helper()

	rec := &callRecorder{}
	if st == nil {
		st = &fakeStore{rec: rec}
	}
	if fs, ok := st.(*fakeStore); ok && fs.rec == nil {
		fs.rec = rec
	}

	a, err := New(Dependencies{
		Config:      cfg,
		Logger:      testLogger(),
		Store:       st,
		Users:       &fakeUsers{rec: rec},
		ErrorFilter: &fakeFilter{rec: rec},
	})
	require.NoError(t, err)

	a.listen = func(srv *http.Server) error {
		rec.record("listen")
		return nil
	}
	return a, rec
}

func TestNew_RequiredDependencies(t *testing.T) {
	rec := &callRecorder{}
	deps := Dependencies{
		Config:      testConfig(3000),
		Logger:      testLogger(),
		Store:       &fakeStore{rec: rec},
		Users:       &fakeUsers{rec: rec},
		ErrorFilter: &fakeFilter{rec: rec},
	}

	tests := []struct {
		name   string
		mutate func(*Dependencies)
	}{
		{"missing config", func(d *Dependencies) { d.Config = nil }},
		{"missing logger", func(d *Dependencies) { d.Logger = nil }},
		{"missing store", func(d *Dependencies) { d.Store = nil }},
		{"missing user routes", func(d *Dependencies) { d.Users = nil }},
		{"missing error filter", func(d *Dependencies) { d.ErrorFilter = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := deps
			tt.mutate(&d)
			_, err := New(d)
			assert.Error(t, err)
		})
	}

	t.Run("complete dependencies", func(t *testing.T) {
		a, err := New(deps)
		require.NoError(t, err)
		assert.NotNil(t, a)
	})
}

func TestInitialize_SequencesStartup(t *testing.T) {
	a, rec := newTestApp(t, testConfig(3000), nil)

	err := a.Initialize(context.Background())
	require.NoError(t, err)

	routes := rec.firstIndex("users.routes")
	filter := rec.firstIndex("errors.middleware")
	connect := rec.firstIndex("store.connect")
	listen := rec.firstIndex("listen")

	require.GreaterOrEqual(t, routes, 0, "user routes never mounted")
	require.GreaterOrEqual(t, filter, 0, "error filter never registered")
	require.GreaterOrEqual(t, connect, 0, "store never connected")
	require.GreaterOrEqual(t, listen, 0, "listener never started")

	assert.Less(t, routes, connect, "routes must be mounted before store connect")
	assert.Less(t, filter, connect, "error filter must be registered before store connect")
	assert.Less(t, connect, listen, "store must connect before the listener starts")
}

func TestInitialize_ConnectFailureAbortsBeforeListen(t *testing.T) {
	rec := &callRecorder{}
	connectErr := errors.New("backend unreachable")
	st := &fakeStore{rec: rec, connectErr: connectErr}

	a, err := New(Dependencies{
		Config:      testConfig(3000),
		Logger:      testLogger(),
		Store:       st,
		Users:       &fakeUsers{rec: rec},
		ErrorFilter: &fakeFilter{rec: rec},
	})
	require.NoError(t, err)
	a.listen = func(srv *http.Server) error {
		rec.record("listen")
		return nil
	}

	err = a.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, connectErr)
	assert.False(t, rec.has("listen"), "listener must not start when store connect fails")
}

func TestInitialize_BindsConfiguredPort(t *testing.T) {
	a, _ := newTestApp(t, testConfig(4000), nil)

	require.NoError(t, a.Initialize(context.Background()))
	assert.Equal(t, ":4000", a.Addr())
}

func TestSetupRouter_ErrorFilterIsLastMiddleware(t *testing.T) {
	rec := &callRecorder{}
	filter := &fakeFilter{rec: rec}

	a, err := New(Dependencies{
		Config:      testConfig(3000),
		Logger:      testLogger(),
		Store:       &fakeStore{rec: rec},
		Users:       &fakeUsers{rec: rec},
		ErrorFilter: filter,
	})
	require.NoError(t, err)

	a.setupRouter()

	mws := a.router.Middlewares()
	require.NotEmpty(t, mws)

	last := reflect.ValueOf(mws[len(mws)-1]).Pointer()
	want := reflect.ValueOf(filter.Handler).Pointer()
	assert.Equal(t, want, last, "error filter must be the last registered middleware")
}

func TestShutdown_DisconnectsStoreExactlyOnce(t *testing.T) {
	rec := &callRecorder{}
	st := &fakeStore{rec: rec}
	a, _ := newTestApp(t, testConfig(3000), st)

	require.NoError(t, a.Initialize(context.Background()))

	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))

	assert.Equal(t, 1, st.disconnectCount(), "disconnect must run exactly once")
}

func TestRun_InterruptSignalTriggersCleanShutdown(t *testing.T) {
	rec := &callRecorder{}
	st := &fakeStore{rec: rec}
	a, _ := newTestApp(t, testConfig(3000), st)

	done := make(chan error, 1)
	go func() {
		done <- a.Run()
	}()

	// Give Run time to pass Initialize before delivering the signal.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		assert.NoError(t, err, "interrupt shutdown must be clean")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after interrupt signal")
	}

	assert.Equal(t, 1, st.disconnectCount())
	connect := rec.firstIndex("store.connect")
	disconnect := rec.firstIndex("store.disconnect")
	assert.Less(t, connect, disconnect)
}

func TestRouter_ServesMountedUserRoutes(t *testing.T) {
	a, _ := newTestApp(t, testConfig(3000), nil)
	require.NoError(t, a.Initialize(context.Background()))

	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	rr := httptest.NewRecorder()
	a.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
