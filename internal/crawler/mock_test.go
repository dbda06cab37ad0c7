package crawler

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"sjsage522/promoradar/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
	ttl   map[string]time.Duration
}

var _ cache.CacheService = (*MockCacheService)(nil)

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
		ttl:   make(map[string]time.Duration),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	m.ttl[key] = expiration
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	delete(m.ttl, key)
	return nil
}

// mockFetcher serves canned pages or errors by URL and counts calls
type mockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls int
}

func (f *mockFetcher) Fetch(_ context.Context, url string, _ time.Duration) (io.Reader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return strings.NewReader(f.pages[url]), nil
}
