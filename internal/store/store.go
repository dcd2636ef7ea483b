// Package store defines the document store the tracker persists to.
//
// Documents are JSON objects addressed by (namespace, collection, id). The
// namespace is the signed-in user's uid; collections are flat names such as
// "expenses" or nested paths such as "payPeriods/main".
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names
const (
	BankAccounts          = "bankAccounts"
	Expenses              = "expenses"
	PayInfo               = "payInfo"
	PayPeriods            = "payPeriods/main"
	PayPeriodBankAccounts = "payPeriodBankAccounts"
	PayPeriodExpenses     = "payPeriodExpenses"

	// PayInfoID is the id of the singleton pay info document.
	PayInfoID = "main"
)

// IDField is the key under which reads expose a document's id.
const IDField = "id"

var (
	ErrNotFound  = errors.New("document not found")
	ErrInvalidID = errors.New("invalid document id")
)

// Record is one JSON document.
type Record map[string]any

// ID returns the document id carried in the record, if any.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// DocumentStore is the persistence port. Implementations must be safe for
// concurrent use. ListAll returns documents in insertion order.
type DocumentStore interface {
	ListAll(ctx context.Context, namespace, collection string) ([]Record, error)
	// Create stores data under a generated id and returns it.
	Create(ctx context.Context, namespace, collection string, data Record) (string, error)
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, namespace, collection, id string) (Record, error)
	// Update merges fields into an existing document (ErrNotFound otherwise).
	Update(ctx context.Context, namespace, collection, id string, fields Record) error
	// Delete is a no-op when the document does not exist.
	Delete(ctx context.Context, namespace, collection, id string) error
	// Set creates or fully replaces the document with the given id.
	Set(ctx context.Context, namespace, collection, id string, data Record) error
}

// Encode turns a typed value into a Record through its JSON form. The id
// field is removed; ids live in the document key, not its body.
func Encode(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	delete(r, IDField)
	return r, nil
}

// Decode fills out from a Record, including its id.
func Decode(r Record, out any) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// DecodeAll decodes every record into a fresh T.
func DecodeAll[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := Decode(r, &v); err != nil {
			return nil, fmt.Errorf("document %q: %w", r.ID(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Fields builds a partial-update Record from key/value pairs.
func Fields(kv ...any) Record {
	r := make(Record, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		r[key] = normalize(kv[i+1])
	}
	return r
}

// normalize runs values through JSON so partial updates are stored in the
// same shape as full documents (dates and decimals as strings).
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// Clone returns a copy of r that shares no maps or slices with it.
func Clone(r Record) Record {
	if r == nil {
		return nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		out := make(Record, len(r))
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	var out Record
	_ = json.Unmarshal(raw, &out)
	return out
}

// ValidateKey rejects empty coordinates.
func ValidateKey(namespace, collection, id string) error {
	if namespace == "" || collection == "" {
		return fmt.Errorf("%w: empty namespace or collection", ErrInvalidID)
	}
	if id == "" {
		return ErrInvalidID
	}
	return nil
}
