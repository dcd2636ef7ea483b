// Package storetest holds the behaviour every store.DocumentStore must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycalc/internal/store"
)

// Run exercises a DocumentStore implementation. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx, "u1", store.Expenses, store.Record{"name": "Rent", "amount": "-1200"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.Get(ctx, "u1", store.Expenses, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID())
		assert.Equal(t, "Rent", got["name"])
		assert.Equal(t, "-1200", got["amount"])
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "u1", store.Expenses, "nope")
		assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx, "u1", store.Expenses, store.Record{"name": "A"})
		require.NoError(t, err)

		_, err = s.Get(ctx, "u2", store.Expenses, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
		list, err := s.ListAll(ctx, "u2", store.Expenses)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		names := []string{"first", "second", "third", "fourth"}
		for _, n := range names {
			_, err := s.Create(ctx, "u1", store.BankAccounts, store.Record{"name": n})
			require.NoError(t, err)
		}
		list, err := s.ListAll(ctx, "u1", store.BankAccounts)
		require.NoError(t, err)
		require.Len(t, list, len(names))
		for i, r := range list {
			assert.Equal(t, names[i], r["name"])
			assert.NotEmpty(t, r.ID())
		}
	})

	t.Run("update merges fields", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx, "u1", store.Expenses, store.Record{"name": "Gym", "isPaid": false})
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, "u1", store.Expenses, id, store.Record{"isPaid": true}))
		got, err := s.Get(ctx, "u1", store.Expenses, id)
		require.NoError(t, err)
		assert.Equal(t, "Gym", got["name"])
		assert.Equal(t, true, got["isPaid"])
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, "u1", store.Expenses, "nope", store.Record{"isPaid": true})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("set upserts under a chosen id", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "u1", store.PayPeriods, "2024-01-15", store.Record{"year": 2024}))
		require.NoError(t, s.Set(ctx, "u1", store.PayPeriods, "2024-01-15", store.Record{"year": 2025}))

		got, err := s.Get(ctx, "u1", store.PayPeriods, "2024-01-15")
		require.NoError(t, err)
		assert.EqualValues(t, 2025, got["year"])

		list, err := s.ListAll(ctx, "u1", store.PayPeriods)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("set ignores id in body", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "u1", store.PayInfo, store.PayInfoID, store.Record{"id": "other", "payFrequency": "weekly"}))
		got, err := s.Get(ctx, "u1", store.PayInfo, store.PayInfoID)
		require.NoError(t, err)
		assert.Equal(t, store.PayInfoID, got.ID())
	})

	t.Run("set rejects empty id", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Set(ctx, "u1", store.PayInfo, "", store.Record{}), store.ErrInvalidID)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx, "u1", store.Expenses, store.Record{"name": "A"})
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, "u1", store.Expenses, id))

		_, err = s.Get(ctx, "u1", store.Expenses, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, s.Delete(ctx, "u1", store.Expenses, id), "deleting twice is a no-op")
	})

	t.Run("typed round trip", func(t *testing.T) {
		type doc struct {
			ID    string   `json:"id,omitempty"`
			Name  string   `json:"name"`
			Items []string `json:"items"`
		}
		s := newStore(t)
		rec, err := store.Encode(doc{ID: "ignored", Name: "n", Items: []string{"a", "b"}})
		require.NoError(t, err)
		id, err := s.Create(ctx, "u1", "things", rec)
		require.NoError(t, err)

		got, err := s.Get(ctx, "u1", "things", id)
		require.NoError(t, err)
		var out doc
		require.NoError(t, store.Decode(got, &out))
		assert.Equal(t, doc{ID: id, Name: "n", Items: []string{"a", "b"}}, out)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.ListAll(cctx, "u1", store.Expenses)
		assert.Error(t, err)
	})
}
