package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"finflow/internal/storage"
)

// Store is an in-process KV. Values are copied on the way in and out.
type Store struct {
	mu    sync.RWMutex
	items map[string][]byte
}

var _ storage.KV = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// NewFromFiles seeds the store from <base>/<key>.json for every known key.
// Missing files are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for _, key := range []string{storage.KeyTransactions, storage.KeyLastReset, storage.KeyTheme} {
		data, err := os.ReadFile(filepath.Join(base, key+".json"))
		if err != nil || len(data) == 0 {
			continue
		}
		s.items[key] = data
	}
	return s
}

func (s *Store) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
