package memory

import (
	"context"
	"sync"

	"quizrank-service/internal/docstore"
)

// DocStore is an in-process implementation of docstore.Store.
type DocStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func NewDocStore() *DocStore {
	return &DocStore{collections: make(map[string]map[string]map[string]any)}
}

func (s *DocStore) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Fields: copyFields(fields)}, nil
}

func (s *DocStore) Query(_ context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	s.mu.RLock()
	docs := make([]docstore.Document, 0, len(s.collections[collection]))
	for id, fields := range s.collections[collection] {
		doc := docstore.Document{ID: id, Fields: copyFields(fields)}
		if docstore.Matches(doc, q) {
			docs = append(docs, doc)
		}
	}
	s.mu.RUnlock()

	docstore.SortBy(docs, q.OrderBy)
	return docs, nil
}

func (s *DocStore) MergeWrite(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[collection] = coll
	}
	merged, err := docstore.Merge(coll[id], fields)
	if err != nil {
		return err
	}
	coll[id] = merged
	return nil
}

func (s *DocStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

// copyFields is shallow apart from arrays, which callers may append to.
func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if arr, ok := v.([]any); ok {
			cp := make([]any, len(arr))
			copy(cp, arr)
			v = cp
		}
		out[k] = v
	}
	return out
}
