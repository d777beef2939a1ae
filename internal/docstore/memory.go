package docstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory keeps documents in a map. Intended for tests and ephemeral runs.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
}

type memoryDoc struct {
	data      []byte
	updatedAt time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memoryDoc)}
}

func (s *Memory) Driver() Driver { return DriverMemory }

func (s *Memory) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), doc.data...), nil
}

func (s *Memory) Save(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = memoryDoc{data: append([]byte(nil), data...), updatedAt: time.Now().UTC()}
	return nil
}

func (s *Memory) Delete(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[name]
	delete(s.docs, name)
	return ok, nil
}

func (s *Memory) List(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]Document, 0, len(s.docs))
	for name, doc := range s.docs {
		docs = append(docs, Document{Name: name, Size: int64(len(doc.data)), UpdatedAt: doc.updatedAt})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}
