package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is a single-process Store for tests.
type memoryStore struct {
	mu    sync.Mutex
	locks map[string]bool
	data  map[string]StoredResponse
}

func newMemoryStore() *memoryStore {
	return &memoryStore{locks: map[string]bool{}, data: map[string]StoredResponse{}}
}

func (s *memoryStore) Lock(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	if s.locks[key] {
		return false, nil
	}
	s.locks[key] = true
	return true, nil
}

func (s *memoryStore) GetResponse(ctx context.Context, key string) (*StoredResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return &resp, true, nil
}

func (s *memoryStore) SaveResponse(ctx context.Context, key string, resp StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = resp
	delete(s.locks, key)
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	delete(s.data, key)
	return nil
}

func (s *memoryStore) locked(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks[key]
}

func TestMiddleware_NoKeyPassesThrough(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", nil))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))

	first := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	first.Header.Set("Idempotency-Key", "k1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The response is persisted from a detached goroutine.
	require.Eventually(t, func() bool {
		_, found, _ := store.GetResponse(context.Background(), "k1")
		return found
	}, time.Second, 5*time.Millisecond)

	retry := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	retry.Header.Set("Idempotency-Key", "k1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, retry)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"id":1}`, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get("X-Idempotency-Hit"))
	assert.Equal(t, 1, calls, "handler must run exactly once")
}

func TestMiddleware_ConcurrentDuplicateConflicts(t *testing.T) {
	store := newMemoryStore()
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	// Simulate an in-flight original by holding the lock with no data.
	acquired, err := store.Lock(context.Background(), "k2")
	require.NoError(t, err)
	require.True(t, acquired)

	dup := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	dup.Header.Set("Idempotency-Key", "k2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, dup)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestMiddleware_ServerErrorReleasesLock(t *testing.T) {
	store := newMemoryStore()
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	req.Header.Set("Idempotency-Key", "k3")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, store.locked("k3"), "failed requests must be retryable")

	_, found, err := store.GetResponse(context.Background(), "k3")
	require.NoError(t, err)
	assert.False(t, found, "5xx responses must not be replayed")
}
