package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Memory is an in-process Store used by tests and the MEMORY_STORE dev
// mode. Reads go straight to the concurrent map; commits serialize on a
// mutex so a batch is applied as a unit relative to other commits.
type Memory struct {
	mu   sync.Mutex
	docs *xsync.Map[string, []byte]
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: xsync.NewMap[string, []byte]()}
}

func (m *Memory) Get(_ context.Context, key string, doc interface{}) (bool, error) {
	data, ok := m.docs.Load(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Applied(_ context.Context, eventID string) (bool, error) {
	_, ok := m.docs.Load(appliedPrefix + eventID)
	return ok, nil
}

func (m *Memory) Commit(_ context.Context, b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range b.puts {
		m.docs.Store(p.key, p.data)
	}
	for _, id := range b.applied {
		m.docs.Store(appliedPrefix+id, []byte("1"))
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Len reports the number of stored documents, applied marks included.
func (m *Memory) Len() int {
	return m.docs.Size()
}
