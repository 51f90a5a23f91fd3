package metrics

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/templui/goalpulse/internal/model"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Snapshots(ctx context.Context, userID string) ([]model.MetricSnapshot, error) {
	args := m.Called(ctx, userID)
	snaps, _ := args.Get(0).([]model.MetricSnapshot)
	return snaps, args.Error(1)
}

type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, errors.New("connection reset")
	}
	v, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

var twitter = []model.MetricSnapshot{{Platform: model.PlatformTwitter, FollowersCount: 1200}}

func TestCachedProvider_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	next := &mockProvider{}
	next.On("Snapshots", mock.Anything, "u").Return(twitter, nil).Once()
	cache := newMemoryCache()
	p := NewCachedProvider(next, cache, 15*time.Minute)

	first, err := p.Snapshots(ctx, "u")
	require.NoError(t, err)
	second, err := p.Snapshots(ctx, "u")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1200.0, second[0].FollowersCount)
	assert.Equal(t, 15*time.Minute, cache.ttls["metrics:snapshot:u"])
	next.AssertNumberOfCalls(t, "Snapshots", 1)
}

func TestCachedProvider_DegradesOnCacheFailure(t *testing.T) {
	next := &mockProvider{}
	next.On("Snapshots", mock.Anything, "u").Return(twitter, nil)
	cache := newMemoryCache()
	cache.failGet = true

	snaps, err := NewCachedProvider(next, cache, time.Minute).Snapshots(context.Background(), "u")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestCachedProvider_DoesNotCacheErrors(t *testing.T) {
	next := &mockProvider{}
	next.On("Snapshots", mock.Anything, "u").Return(nil, errors.New("503"))
	cache := newMemoryCache()

	_, err := NewCachedProvider(next, cache, time.Minute).Snapshots(context.Background(), "u")
	assert.Error(t, err)
	assert.Empty(t, cache.data)
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	cache, client, err := NewRedisCache(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	key := "metrics:snapshot:test-" + time.Now().Format("150405.000")
	_, err = cache.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, key, []byte(`[]`), time.Minute))
	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)
	client.Del(ctx, key)
}
