// Package store is the keyed entity store behind the aggregators.
// Aggregates are JSON documents under namespaced keys. Mutations are
// staged into a Batch and committed in one atomic unit per event, together
// with the applied-event mark, so a crash can never leave partial
// cross-entity state and a redelivered event can never be applied twice.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is the keyed document store the aggregators run on. Single writer
// per key is assumed: the dispatcher applies events strictly one at a
// time, so no optimistic concurrency check is needed on top.
type Store interface {
	// Get loads the document at key into doc, reporting whether it existed.
	Get(ctx context.Context, key string, doc interface{}) (bool, error)

	// Applied reports whether the event id has already been committed.
	Applied(ctx context.Context, eventID string) (bool, error)

	// Commit atomically writes every staged document plus the applied mark.
	// Either everything in the batch becomes visible or nothing does.
	Commit(ctx context.Context, b *Batch) error

	Close() error
}

const appliedPrefix = "applied:"

type staged struct {
	key  string
	data []byte
}

// Batch stages the full set of writes produced by one event. Documents are
// serialized at staging time so a marshal failure aborts before anything
// is sent to the store.
type Batch struct {
	puts    []staged
	applied []string
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Put stages a document write. Staging the same key twice keeps the later
// value (last staging wins within an event).
func (b *Batch) Put(key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}
	for i := range b.puts {
		if b.puts[i].key == key {
			b.puts[i].data = data
			return nil
		}
	}
	b.puts = append(b.puts, staged{key: key, data: data})
	return nil
}

// MarkApplied stages the idempotence mark for an event id. It commits in
// the same atomic unit as the entity writes.
func (b *Batch) MarkApplied(eventID string) {
	b.applied = append(b.applied, eventID)
}

// Len reports the number of staged document writes.
func (b *Batch) Len() int {
	return len(b.puts)
}

// Empty reports whether the batch stages nothing at all.
func (b *Batch) Empty() bool {
	return len(b.puts) == 0 && len(b.applied) == 0
}

func unmarshalDoc(data []byte, doc interface{}) error {
	return json.Unmarshal(data, doc)
}
