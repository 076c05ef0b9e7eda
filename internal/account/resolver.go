package account

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
)

// Resolver maps an external identity onto the internal user, caching hits.
type Resolver struct {
	repo  Repository
	cache *cache.Cache
}

// NewResolver constructs a resolver. A non-positive ttl disables caching.
func NewResolver(repo Repository, ttl time.Duration) (*Resolver, error) {
	if repo == nil {
		return nil, eris.New("account repository is required")
	}

	resolver := &Resolver{repo: repo}
	if ttl > 0 {
		resolver.cache = cache.New(ttl, 2*ttl)
	}

	return resolver, nil
}

// Resolve returns the user for the external id or nil when none exists. Misses are not cached.
func (r *Resolver) Resolve(ctx context.Context, externalID string) (*User, error) {
	key := strings.TrimSpace(externalID)
	if key == "" {
		return nil, nil
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			user := cached.(User)
			return &user, nil
		}
	}

	user, err := r.repo.GetByExternalID(ctx, key)
	if err != nil {
		return nil, eris.Wrap(err, "resolving user")
	}
	if user == nil {
		return nil, nil
	}

	if r.cache != nil {
		r.cache.Set(key, *user, cache.DefaultExpiration)
	}

	return user, nil
}

// Forget drops any cached entry for the external id.
func (r *Resolver) Forget(externalID string) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(strings.TrimSpace(externalID))
}
