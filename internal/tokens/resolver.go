package tokens

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
	"github.com/sudoswap/0x-tracker-worker/internal/store"
)

const defaultCacheSize = 8192

// MetadataSource fetches token metadata from the external token service.
type MetadataSource interface {
	FetchToken(ctx context.Context, address string) (*model.Token, error)
}

// Resolver resolves token metadata by address through a write-through
// in-process cache backed by the token store, registering tokens on first
// sight via the metadata service.
type Resolver struct {
	cache  *lru.Cache[string, model.Token]
	repo   store.TokenRepository
	source MetadataSource
	group  singleflight.Group
	logger *slog.Logger
}

func NewResolver(repo store.TokenRepository, source MetadataSource, logger *slog.Logger) (*Resolver, error) {
	cache, err := lru.New[string, model.Token](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}
	return &Resolver{
		cache:  cache,
		repo:   repo,
		source: source,
		logger: logger.With("component", "tokens"),
	}, nil
}

// Get is a cache-only read: no I/O. Returns the token and true when the
// token has been resolved during this process's lifetime.
func (r *Resolver) Get(address string) (model.Token, bool) {
	return r.cache.Get(address)
}

// EnsureExists makes the token known to the system, registering it through
// the metadata service on first sight. Returns true when this call caused
// the first-time registration. Concurrent calls for the same address
// collapse to a single lookup; registration is write-once-wins.
func (r *Resolver) EnsureExists(ctx context.Context, address string) (bool, error) {
	if _, ok := r.cache.Get(address); ok {
		return false, nil
	}

	created, err, _ := r.group.Do(address, func() (interface{}, error) {
		return r.ensure(ctx, address)
	})
	if err != nil {
		return false, err
	}
	return created.(bool), nil
}

func (r *Resolver) ensure(ctx context.Context, address string) (bool, error) {
	if _, ok := r.cache.Get(address); ok {
		return false, nil
	}

	known, err := r.repo.FindByAddress(ctx, address)
	if err != nil {
		return false, fmt.Errorf("look up token %s: %w", address, err)
	}
	if known != nil {
		r.cache.Add(address, *known)
		return false, nil
	}

	fetched, err := r.source.FetchToken(ctx, address)
	if err != nil {
		return false, fmt.Errorf("fetch token metadata for %s: %w", address, err)
	}

	inserted, err := r.repo.Insert(ctx, fetched)
	if err != nil {
		return false, fmt.Errorf("register token %s: %w", address, err)
	}
	r.cache.Add(address, *fetched)

	if inserted {
		r.logger.Info("registered token", "address", address, "symbol", fetched.Symbol)
	}
	return inserted, nil
}
