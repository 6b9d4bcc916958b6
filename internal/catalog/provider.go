// Package catalog loads the scheme catalog with its eligibility rules.
//
// Every provider returns a complete snapshot: active schemes only, each with
// its full rule list, ordered by priority rank (descending) then creation
// time (newest first).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ppiankov/adhikaar/internal/cache"
	"github.com/ppiankov/adhikaar/internal/model"
)

// ErrNotFound is returned by Find when no scheme has the given id
var ErrNotFound = errors.New("scheme not found")

// Provider loads a catalog snapshot
type Provider interface {
	// Name identifies the backing source in logs
	Name() string

	// Load returns the active schemes with their rules
	Load(ctx context.Context) ([]model.SchemeWithRules, error)
}

// New builds the provider selected by cfg, wrapped in a cache when caching
// is enabled. The caller owns the returned closer (nil when nothing to close).
func New(ctx context.Context, cfg model.CatalogConfig, cacheCfg model.CacheConfig, logger *zap.Logger) (Provider, func(), error) {
	var (
		p       Provider
		closeFn func()
		source  string
	)

	switch cfg.Source {
	case "file", "":
		p = NewFileProvider(cfg.Path)
		source = cfg.Path
	case "postgres":
		pg, err := NewPostgresProvider(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		p, closeFn = pg, pg.Close
		source = cfg.DatabaseURL
	case "supabase":
		p = NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Timeout, cfg.MaxRetries, cfg.UserAgent)
		source = cfg.SupabaseURL
	default:
		return nil, nil, fmt.Errorf("unknown catalog source: %s (supported: file, postgres, supabase)", cfg.Source)
	}

	if cacheCfg.Enabled {
		layered := cache.NewLayeredCache(cacheCfg.MemoryTTL, cacheCfg.Dir, cacheCfg.DiskTTL)
		p = NewCachedProvider(p, layered, cache.CacheKey(cfg.Source, source), cacheCfg.DiskTTL, logger)
	}

	return p, closeFn, nil
}

// Rank drops inactive schemes and orders the rest by priority rank
// (descending), then creation time (newest first), then id. The input is
// not modified.
func Rank(schemes []model.SchemeWithRules) []model.SchemeWithRules {
	out := make([]model.SchemeWithRules, 0, len(schemes))
	for _, s := range schemes {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Scheme, out[j].Scheme
		if a.PriorityRank != b.PriorityRank {
			return a.PriorityRank > b.PriorityRank
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Find returns the scheme with the given id from a snapshot
func Find(snapshot []model.SchemeWithRules, id string) (model.SchemeWithRules, error) {
	for _, s := range snapshot {
		if s.ID == id {
			return s, nil
		}
	}
	return model.SchemeWithRules{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Schemes strips the rules from a snapshot
func Schemes(snapshot []model.SchemeWithRules) []model.Scheme {
	out := make([]model.Scheme, len(snapshot))
	for i, s := range snapshot {
		out[i] = s.Scheme
	}
	return out
}
