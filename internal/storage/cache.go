package storage

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sevigo/pr-reviewer/internal/core"
)

const defaultRepoCacheSize = 1024

// cachedStore serves repository lookups by full name from a short-lived LRU.
// Misses are not cached so a newly registered repository is seen immediately.
type cachedStore struct {
	Store
	repos *expirable.LRU[string, *core.Repository]
}

// NewCachedStore wraps store with an expiring repository cache. A non-positive
// ttl disables caching and returns store unchanged.
func NewCachedStore(store Store, ttl time.Duration) Store {
	if ttl <= 0 {
		return store
	}
	return &cachedStore{
		Store: store,
		repos: expirable.NewLRU[string, *core.Repository](defaultRepoCacheSize, nil, ttl),
	}
}

func (c *cachedStore) GetRepositoryByFullName(ctx context.Context, fullName string) (*core.Repository, error) {
	if repo, ok := c.repos.Get(fullName); ok {
		cp := *repo
		return &cp, nil
	}
	repo, err := c.Store.GetRepositoryByFullName(ctx, fullName)
	if err != nil {
		return nil, err
	}
	cp := *repo
	c.repos.Add(fullName, &cp)
	return repo, nil
}

func (c *cachedStore) CreateRepository(ctx context.Context, repo *core.Repository) error {
	if err := c.Store.CreateRepository(ctx, repo); err != nil {
		return err
	}
	c.repos.Remove(repo.FullName)
	return nil
}
