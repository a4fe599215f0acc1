package store

import (
	"context"
	"sync"

	"github.com/456meh456/tu-nerr/vibes"
)

//
// ========================================================================
// In-memory store
// ========================================================================
//
// Used by tests and offline runs. The mutex serializes every mutation,
// so an Append racing another Append of the same name always loses with
// ErrDuplicateArtist rather than producing a second row.
//

type MemoryStore struct {
	mu    sync.RWMutex
	index map[string]int // normalized name -> position in rows
	rows  []vibes.ArtistRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

func (m *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.index[vibes.NormalizeName(name)]
	return ok, nil
}

func (m *MemoryStore) Append(_ context.Context, rec vibes.ArtistRecord) error {
	key := vibes.NormalizeName(rec.Name)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[key]; ok {
		return ErrDuplicateArtist
	}
	m.index[key] = len(m.rows)
	m.rows = append(m.rows, rec)
	return nil
}

func (m *MemoryStore) LoadAll(_ context.Context) ([]vibes.ArtistRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]vibes.ArtistRecord, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows), nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	key := vibes.NormalizeName(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.index[key]
	if !ok {
		return nil
	}
	m.rows = append(m.rows[:pos], m.rows[pos+1:]...)
	delete(m.index, key)
	for k, p := range m.index {
		if p > pos {
			m.index[k] = p - 1
		}
	}
	return nil
}
