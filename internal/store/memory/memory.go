// Package memory is an in-process DocumentStore, used by tests and the
// "memory" backend.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"paycalc/internal/store"
)

type collection struct {
	order []string
	docs  map[string][]byte
}

// Store keeps documents as JSON bytes so reads never alias writes.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	newID       func() string
}

var _ store.DocumentStore = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		newID:       uuid.NewString,
	}
}

func collKey(namespace, name string) string {
	return namespace + "/" + name
}

func (s *Store) coll(namespace, name string, create bool) *collection {
	key := collKey(namespace, name)
	c, ok := s.collections[key]
	if !ok && create {
		c = &collection{docs: make(map[string][]byte)}
		s.collections[key] = c
	}
	return c
}

func decode(id string, raw []byte) (store.Record, error) {
	var r store.Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	if r == nil {
		r = store.Record{}
	}
	r[store.IDField] = id
	return r, nil
}

func encode(data store.Record) ([]byte, error) {
	body := make(store.Record, len(data))
	for k, v := range data {
		if k == store.IDField {
			continue
		}
		body[k] = v
	}
	return json.Marshal(body)
}

func (s *Store) ListAll(ctx context.Context, namespace, collection string) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.coll(namespace, collection, false)
	if c == nil {
		return nil, nil
	}
	out := make([]store.Record, 0, len(c.order))
	for _, id := range c.order {
		r, err := decode(id, c.docs[id])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, namespace, collection string, data store.Record) (string, error) {
	id := s.newID()
	if err := s.Set(ctx, namespace, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, namespace, collection, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.coll(namespace, collection, false)
	if c == nil {
		return nil, store.ErrNotFound
	}
	raw, ok := c.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return decode(id, raw)
}

func (s *Store) Update(ctx context.Context, namespace, collection, id string, fields store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(namespace, collection, false)
	if c == nil {
		return store.ErrNotFound
	}
	raw, ok := c.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	current, err := decode(id, raw)
	if err != nil {
		return err
	}
	for k, v := range fields {
		current[k] = v
	}
	merged, err := encode(current)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	c.docs[id] = merged
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(namespace, collection, false)
	if c == nil {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Set(ctx context.Context, namespace, collection, id string, data store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := store.ValidateKey(namespace, collection, id); err != nil {
		return err
	}
	raw, err := encode(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(namespace, collection, true)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = raw
	return nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(namespace, collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c := s.coll(namespace, collection, false); c != nil {
		return len(c.docs)
	}
	return 0
}
