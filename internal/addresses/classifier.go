package addresses

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sudoswap/0x-tracker-worker/internal/cache"
	"github.com/sudoswap/0x-tracker-worker/internal/store"
)

const (
	classificationCacheSize = 4096
	classificationCacheTTL  = 30 * time.Minute
)

// Classifier reports whether an address is a smart-contract address, with
// an in-process cache over the address metadata store.
type Classifier struct {
	repo   store.AddressMetadataRepository
	cache  *cache.LRU[string, bool]
	logger *slog.Logger
}

func NewClassifier(repo store.AddressMetadataRepository, logger *slog.Logger) *Classifier {
	return &Classifier{
		repo:   repo,
		cache:  cache.NewLRU[string, bool](classificationCacheSize, classificationCacheTTL),
		logger: logger.With("component", "addresses"),
	}
}

// IsContract returns the cached classification for address. Unknown
// addresses are treated as non-contract: proxies only matter when they are
// positively classified, so failing open keeps the nominal counterparty.
func (c *Classifier) IsContract(ctx context.Context, address string) (bool, error) {
	if isContract, ok := c.cache.Get(address); ok {
		return isContract, nil
	}

	meta, err := c.repo.FindByAddress(ctx, address)
	if err != nil {
		return false, fmt.Errorf("classify address %s: %w", address, err)
	}
	if meta == nil {
		return false, nil
	}

	c.cache.Put(address, meta.IsContract)
	return meta.IsContract, nil
}
