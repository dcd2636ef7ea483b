package store

import (
	"context"
	"strings"
	"time"

	"paycalc/internal/cache"
	"paycalc/internal/log"
)

// Cached is a read-through decorator over a DocumentStore. Get results are
// kept in an LRU cache; every write through the decorator evicts the key it
// touched. Writes that bypass the decorator are not seen until the TTL runs out.
type Cached struct {
	next   DocumentStore
	docs   *cache.LRUCache[Record]
	logger *log.Logger
}

var _ DocumentStore = (*Cached)(nil)

// NewCached wraps next with a cache holding up to size documents for ttl.
func NewCached(next DocumentStore, size int, ttl time.Duration, logger *log.Logger) *Cached {
	return &Cached{
		next:   next,
		docs:   cache.NewLRUCache[Record](size, ttl),
		logger: log.OrDiscard(logger).WithComponent(log.ComponentCache),
	}
}

// Cache exposes the underlying cache so it can be registered with a cache.Manager.
func (c *Cached) Cache() *cache.LRUCache[Record] { return c.docs }

func cacheKey(namespace, collection, id string) string {
	return namespace + "\x00" + collection + "\x00" + id
}

func (c *Cached) ListAll(ctx context.Context, namespace, collection string) ([]Record, error) {
	return c.next.ListAll(ctx, namespace, collection)
}

func (c *Cached) Create(ctx context.Context, namespace, collection string, data Record) (string, error) {
	return c.next.Create(ctx, namespace, collection, data)
}

func (c *Cached) Get(ctx context.Context, namespace, collection, id string) (Record, error) {
	key := cacheKey(namespace, collection, id)
	if r, ok := c.docs.Get(key); ok {
		c.logger.DebugContext(ctx, "Cache hit", log.FieldCollection, collection, log.FieldDocumentID, id)
		return Clone(r), nil
	}
	r, err := c.next.Get(ctx, namespace, collection, id)
	if err != nil {
		return nil, err
	}
	c.docs.Set(key, Clone(r))
	return r, nil
}

func (c *Cached) Update(ctx context.Context, namespace, collection, id string, fields Record) error {
	defer c.docs.Delete(cacheKey(namespace, collection, id))
	return c.next.Update(ctx, namespace, collection, id, fields)
}

func (c *Cached) Delete(ctx context.Context, namespace, collection, id string) error {
	defer c.docs.Delete(cacheKey(namespace, collection, id))
	return c.next.Delete(ctx, namespace, collection, id)
}

func (c *Cached) Set(ctx context.Context, namespace, collection, id string, data Record) error {
	defer c.docs.Delete(cacheKey(namespace, collection, id))
	return c.next.Set(ctx, namespace, collection, id, data)
}

// Forget drops every cached document of a namespace, e.g. on sign-out.
func (c *Cached) Forget(namespace string) int {
	prefix := namespace + "\x00"
	return c.docs.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
}
