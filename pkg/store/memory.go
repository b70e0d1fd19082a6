package store

import (
	"context"
	"slices"
	"sync"

	"github.com/legacylink/legacylink/pkg/family"
)

// Memory keeps trees in process memory. Rosters are cloned on the way in
// and out.
type Memory struct {
	mu    sync.RWMutex
	trees map[string]*family.Roster
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{trees: make(map[string]*family.Roster)}
}

func (s *Memory) Load(ctx context.Context, treeID string) (*family.Roster, error) {
	if err := checkTree(treeID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.trees[treeID]
	if !ok {
		return emptyRoster(), nil
	}
	return r.Clone(), nil
}

func (s *Memory) Save(ctx context.Context, treeID string, r *family.Roster) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	if r == nil {
		r = emptyRoster()
	}
	c := r.Clone()
	s.mu.Lock()
	s.trees[treeID] = c
	s.mu.Unlock()
	return nil
}

func (s *Memory) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.trees))
	for id := range s.trees {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids, nil
}

func (s *Memory) Delete(ctx context.Context, treeID string) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.trees, treeID)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Close() error { return nil }

var _ RosterStore = (*Memory)(nil)
