package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
)

type cacheRepoStub struct {
	getErr error
	setErr error
	values map[string]interface{}
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	if _, ok := c.values[key]; !ok {
		return appErrors.ErrCacheMiss
	}
	return nil
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	if c.values == nil {
		c.values = map[string]interface{}{}
	}
	c.values[key] = value
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.values = nil
	return nil
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(&cacheRepoStub{}, nil, 0, nil, false)
	hit, err := svc.Get(context.Background(), "k", nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "k", 1, 0))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.NoError(t, nilSvc.Invalidate(context.Background(), "*"))
}

func TestCacheServiceHitMissAndErrors(t *testing.T) {
	repo := &cacheRepoStub{}
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)

	hit, err := svc.Get(context.Background(), "k", nil)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	hit, err = svc.Get(context.Background(), "k", nil)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, svc.Invalidate(context.Background(), cachePatternInstance))
	hit, _ = svc.Get(context.Background(), "k", nil)
	assert.False(t, hit)

	repo.getErr = errors.New("redis down")
	hit, err = svc.Get(context.Background(), "k", nil)
	assert.Error(t, err)
	assert.False(t, hit)
}
