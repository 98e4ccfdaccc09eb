package session

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps documents in a map. Models are cloned on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) Load(ctx context.Context, project string) (*Document, error) {
	if err := checkProject(project); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[project]
	if !ok {
		return NewDocument(project), nil
	}
	doc.Model = doc.Model.Clone()
	return &doc, nil
}

func (s *MemoryStore) Save(ctx context.Context, doc *Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.docs[doc.Project]; cur.Version != doc.Version {
		return ErrConflict
	}
	version, at := committed(doc, time.Now())
	s.docs[doc.Project] = Document{
		Project:   doc.Project,
		Version:   version,
		UpdatedAt: at,
		Model:     doc.Model.Clone(),
	}
	doc.Version, doc.UpdatedAt = version, at
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[project]; !ok {
		return ErrNotFound
	}
	delete(s.docs, project)
	return nil
}

func (s *MemoryStore) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.docs)), nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
