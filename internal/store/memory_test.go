package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/456meh456/tu-nerr/internal/store"
	"github.com/456meh456/tu-nerr/vibes"
)

func rec(name string) vibes.ArtistRecord {
	return vibes.ArtistRecord{Name: name, Genre: "Rock", TagEnergy: 0.7, Valence: 0.45}
}

func TestMemoryStore_AppendAndExists(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Append(ctx, rec("Metallica")))

	// normalized membership check: case, whitespace, diacritics
	for _, probe := range []string{"Metallica", "metallica", "  METALLICA "} {
		ok, err := s.Exists(ctx, probe)
		require.NoError(t, err)
		require.True(t, ok, "Exists(%q)", probe)
	}

	ok, err := s.Exists(ctx, "Dolly Parton")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStore_DuplicateAppendRejected(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Append(ctx, rec("Gorillaz")))

	err := s.Append(ctx, rec("  gorillaz "))
	if !errors.Is(err, store.ErrDuplicateArtist) {
		t.Fatalf("expected ErrDuplicateArtist, got %v", err)
	}

	n, _ := s.Count(ctx)
	require.Equal(t, 1, n, "duplicate append must not add a second row")
}

// Two writers racing on the same name: exactly one wins, the loser
// observes ErrDuplicateArtist, the store holds one row.
func TestMemoryStore_ConcurrentAppendSameName(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Append(ctx, rec("The Beatles"))
		}(i)
	}
	wg.Wait()

	var wins, dups int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, store.ErrDuplicateArtist):
			dups++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, writers-1, dups)

	n, _ := s.Count(ctx)
	require.Equal(t, 1, n)
}

func TestMemoryStore_LoadAllInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	names := []string{"A", "B", "C", "D"}
	for _, n := range names {
		require.NoError(t, s.Append(ctx, rec(n)))
	}

	rows, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for i, n := range names {
		require.Equal(t, n, rows[i].Name)
	}

	// snapshot is a copy: mutating it must not touch the store
	rows[0].Name = "mutated"
	again, _ := s.LoadAll(ctx)
	require.Equal(t, "A", again[0].Name)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Append(ctx, rec("Chris Stapleton")))
	require.NoError(t, s.Append(ctx, rec("Dolly Parton")))

	require.NoError(t, s.Delete(ctx, "chris stapleton"))
	n, _ := s.Count(ctx)
	require.Equal(t, 1, n)

	// absent artist: success, size unchanged
	require.NoError(t, s.Delete(ctx, "chris stapleton"))
	require.NoError(t, s.Delete(ctx, "never stored"))
	n, _ = s.Count(ctx)
	require.Equal(t, 1, n)

	// deleted name can be appended again (explicit admin path only)
	require.NoError(t, s.Append(ctx, rec("Chris Stapleton")))
}
