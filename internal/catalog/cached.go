package catalog

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/adhikaar/internal/cache"
	"github.com/ppiankov/adhikaar/internal/logging"
	"github.com/ppiankov/adhikaar/internal/model"
)

// CachedProvider serves snapshots from a cache and falls through to the
// wrapped provider on a miss. Concurrent misses share one upstream load.
type CachedProvider struct {
	next   Provider
	cache  cache.Cache
	key    string
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// versioned is implemented by providers whose source can change under the
// same key. The version is folded into the cache key.
type versioned interface {
	Version() (string, error)
}

// NewCachedProvider wraps next with c under key
func NewCachedProvider(next Provider, c cache.Cache, key string, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		cache:  c,
		key:    key,
		ttl:    ttl,
		logger: logging.OrNop(logger),
	}
}

// Name returns the wrapped provider's name
func (p *CachedProvider) Name() string {
	return p.next.Name()
}

// cacheKey is key, extended with the source version when next has one
func (p *CachedProvider) cacheKey() string {
	v, ok := p.next.(versioned)
	if !ok {
		return p.key
	}
	version, err := v.Version()
	if err != nil {
		return p.key
	}
	return cache.CacheKey(p.key, version)
}

// Load returns the cached snapshot or loads and caches a fresh one
func (p *CachedProvider) Load(ctx context.Context) ([]model.SchemeWithRules, error) {
	key := p.cacheKey()
	if data, ok := p.cache.Get(key); ok {
		var snapshot []model.SchemeWithRules
		if err := json.Unmarshal(data, &snapshot); err == nil {
			p.logger.Debug("catalog cache hit", zap.String("source", p.next.Name()), zap.Int("schemes", len(snapshot)))
			return snapshot, nil
		}
		p.logger.Warn("discarding unreadable catalog cache entry", zap.String("key", key))
		_ = p.cache.Delete(key)
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		snapshot, err := p.next.Load(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(snapshot); err == nil {
			if err := p.cache.Set(key, data, p.ttl); err != nil {
				p.logger.Warn("failed to cache catalog", zap.Error(err))
			}
		}
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.SchemeWithRules), nil
}

// Invalidate drops the cached snapshot
func (p *CachedProvider) Invalidate() error {
	return p.cache.Delete(p.cacheKey())
}
