package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/hpungsan/critter/internal/errors"
)

// DefaultCacheTTL is how long a cached document is served without refetching.
const DefaultCacheTTL = 7 * 24 * time.Hour

// CacheStore persists raw catalog documents.
type CacheStore interface {
	GetCached(ctx context.Context, resource string) ([]byte, time.Time, error)
	PutCached(ctx context.Context, resource string, body []byte) error
}

// Cached serves documents from a CacheStore and falls through to next on a
// miss or an expired entry. Cache failures are logged and never fail a fetch.
type Cached struct {
	next   Catalog
	store  CacheStore
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger
}

// NewCached wraps next. A zero ttl uses DefaultCacheTTL.
func NewCached(next Catalog, store CacheStore, ttl time.Duration, logger *log.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Cached{next: next, store: store, ttl: ttl, now: time.Now, logger: logger}
}

// SpeciesIDs forwards to the wrapped catalog when it enumerates its IDs.
func (c *Cached) SpeciesIDs() []int {
	if e, ok := c.next.(Enumerator); ok {
		return e.SpeciesIDs()
	}
	return nil
}

func (c *Cached) FetchCreature(ctx context.Context, id int) (*CreatureDoc, error) {
	return cachedFetch(ctx, c, fmt.Sprintf("pokemon/%d", id), func() (*CreatureDoc, error) {
		return c.next.FetchCreature(ctx, id)
	})
}

func (c *Cached) FetchSpecies(ctx context.Context, id int) (*SpeciesDoc, error) {
	return cachedFetch(ctx, c, fmt.Sprintf("pokemon-species/%d", id), func() (*SpeciesDoc, error) {
		return c.next.FetchSpecies(ctx, id)
	})
}

func (c *Cached) FetchEvolutionChain(ctx context.Context, url string) (*EvolutionChainDoc, error) {
	return cachedFetch(ctx, c, chainResource(url), func() (*EvolutionChainDoc, error) {
		return c.next.FetchEvolutionChain(ctx, url)
	})
}

func cachedFetch[T any](ctx context.Context, c *Cached, resource string, fetch func() (*T, error)) (*T, error) {
	body, fetchedAt, err := c.store.GetCached(ctx, resource)
	switch {
	case err == nil && c.now().Sub(fetchedAt) < c.ttl:
		var doc T
		if err := json.Unmarshal(body, &doc); err == nil {
			return &doc, nil
		}
		c.logger.Printf("catalog cache: dropping unreadable %s", resource)
	case err != nil && !errors.Is(err, errors.ErrNotFound):
		c.logger.Printf("catalog cache: read %s: %v", resource, err)
	}

	doc, err := fetch()
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(doc); err == nil {
		if err := c.store.PutCached(ctx, resource, raw); err != nil {
			c.logger.Printf("catalog cache: write %s: %v", resource, err)
		}
	}
	return doc, nil
}
