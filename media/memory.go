package media

import (
	"context"
	"github.com/google/uuid"
	"sync"
)

type memoryBlob struct {
	data        []byte
	contentType string
}

// MemoryStore keeps blobs in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string]memoryBlob
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memoryBlob), baseURL: baseURL}
}

func (s *MemoryStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = memoryBlob{data: append([]byte(nil), data...), contentType: contentType}
	return id, nil
}

func (s *MemoryStore) Delete(ctx context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[externalID]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, externalID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, externalID string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[externalID]
	if !ok {
		return nil, "", ErrNotFound
	}
	return blob.data, blob.contentType, nil
}

func (s *MemoryStore) URL(externalID string) string {
	return s.baseURL + "/" + externalID
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func (s *MemoryStore) Has(externalID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[externalID]
	return ok
}
