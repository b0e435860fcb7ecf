package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atmb4u/gamegirl/internal/story"
)

// MemoryStore keeps encoded saves in process. Saves are encoded so a loaded
// memory never shares state with the one that was saved.
type MemoryStore struct {
	mu    sync.RWMutex
	saves map[string][]byte
	names map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{saves: make(map[string][]byte), names: make(map[string]string)}
}

func (s *MemoryStore) Save(ctx context.Context, m *story.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := story.Encode(story.FormatJSON, m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.saves[m.ID()]; ok {
		stored, err := story.Decode(story.FormatJSON, prev)
		if err == nil && stored.Len() > m.Len() {
			return fmt.Errorf("%w: stored %d turns, saving %d", ErrDiverged, stored.Len(), m.Len())
		}
	}
	s.saves[m.ID()] = data
	s.names[m.Name()] = m.ID()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, ref string) (*story.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.saves[ref]
	if !ok {
		data, ok = s.saves[s.names[ref]]
	}
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return story.Decode(story.FormatJSON, data)
}

func (s *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.saves))
	for _, data := range s.saves {
		m, err := story.Decode(story.FormatJSON, data)
		if err != nil {
			continue
		}
		out = append(out, summarize(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
