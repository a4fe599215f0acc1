package similar_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/456meh456/tu-nerr/internal/similar"
	"github.com/456meh456/tu-nerr/internal/store"
	"github.com/456meh456/tu-nerr/vibes"
)

func seeded(t *testing.T, recs ...vibes.ArtistRecord) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	for _, r := range recs {
		require.NoError(t, s.Append(context.Background(), r))
	}
	return s
}

func artist(name string, listeners int64, energy, valence, bpm float64) vibes.ArtistRecord {
	return vibes.ArtistRecord{
		Name:             name,
		Genre:            "Test",
		MonthlyListeners: listeners,
		TagEnergy:        energy,
		Valence:          valence,
		AudioBPM:         bpm,
	}
}

// ------------------------------------------------------
// The canonical scenario: B hugs A, C is far away
// ------------------------------------------------------

func TestNearest_PicksTheObviousNeighbor(t *testing.T) {
	s := seeded(t,
		artist("A", 1000, 0.9, 0.2, 140),
		artist("B", 900, 0.85, 0.25, 138),
		artist("C", 50, 0.1, 0.9, 70),
	)
	eng := similar.NewEngine(s)

	got, err := eng.Nearest(context.Background(), "A", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "B", got[0].Artist.Name)
}

func TestNearest_ExcludesQueryArtist(t *testing.T) {
	s := seeded(t,
		artist("A", 1000, 0.9, 0.2, 140),
		artist("B", 900, 0.85, 0.25, 138),
		artist("C", 50, 0.1, 0.9, 70),
	)
	eng := similar.NewEngine(s)

	got, err := eng.Nearest(context.Background(), "A", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, n := range got {
		require.NotEqual(t, "A", n.Artist.Name)
	}
}

func TestNearest_InsufficientData(t *testing.T) {
	s := seeded(t,
		artist("A", 1000, 0.9, 0.2, 140),
		artist("B", 900, 0.85, 0.25, 138),
		artist("C", 50, 0.1, 0.9, 70),
	)
	eng := similar.NewEngine(s)

	_, err := eng.Nearest(context.Background(), "A", 5)
	if !errors.Is(err, similar.ErrInsufficientData) {
		t.Fatalf("3 rows with k=5 should be ErrInsufficientData, got %v", err)
	}
}

func TestNearest_UnknownArtist(t *testing.T) {
	s := seeded(t,
		artist("A", 1000, 0.9, 0.2, 140),
		artist("B", 900, 0.85, 0.25, 138),
		artist("C", 50, 0.1, 0.9, 70),
	)
	eng := similar.NewEngine(s)

	_, err := eng.Nearest(context.Background(), "Nobody", 1)
	if !errors.Is(err, similar.ErrUnknownArtist) {
		t.Fatalf("expected ErrUnknownArtist, got %v", err)
	}
}

// Same snapshot, same query, same ordered answer. Run it a few times to
// catch any map-iteration sneaking into the ranking.
func TestNearest_Deterministic(t *testing.T) {
	s := seeded(t,
		artist("A", 1000, 0.9, 0.2, 140),
		artist("B", 900, 0.85, 0.25, 138),
		artist("C", 50, 0.1, 0.9, 70),
		artist("D", 940, 0.86, 0.24, 139),
		artist("E", 70, 0.15, 0.85, 72),
		artist("F", 500, 0.5, 0.5, 100),
	)
	eng := similar.NewEngine(s)

	first, err := eng.Nearest(context.Background(), "A", 5)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := eng.Nearest(context.Background(), "A", 5)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

// Identical feature rows: insertion order breaks the tie.
func TestNearest_TieBreaksByInsertionOrder(t *testing.T) {
	s := seeded(t,
		artist("Center", 100, 0.5, 0.5, 120),
		artist("Early Twin", 200, 0.6, 0.4, 110),
		artist("Late Twin", 200, 0.6, 0.4, 110),
		artist("Far", 9000, 0.1, 0.9, 60),
	)
	eng := similar.NewEngine(s)

	got, err := eng.Nearest(context.Background(), "Center", 2)
	require.NoError(t, err)
	require.Equal(t, "Early Twin", got[0].Artist.Name)
	require.Equal(t, "Late Twin", got[1].Artist.Name)
}

// Brightness, when measured, replaces tag energy in the feature space.
func TestNearest_MeasuredBrightnessWins(t *testing.T) {
	bright := artist("Bright", 100, 0.1, 0.5, 120)
	bright.AudioBrightness = 0.9

	s := seeded(t,
		artist("Center", 100, 0.9, 0.5, 120),
		bright,
		artist("Dull", 100, 0.1, 0.5, 120),
	)
	eng := similar.NewEngine(s)

	got, err := eng.Nearest(context.Background(), "Center", 1)
	require.NoError(t, err)
	require.Equal(t, "Bright", got[0].Artist.Name)
}

func TestNearestToVector(t *testing.T) {
	s := seeded(t,
		artist("A", 1000, 0.9, 0.2, 140),
		artist("B", 900, 0.85, 0.25, 138),
		artist("C", 50, 0.1, 0.9, 70),
	)
	eng := similar.NewEngine(s)

	got, err := eng.NearestToVector(context.Background(), [4]float64{60, 0.12, 0.88, 71}, 1)
	require.NoError(t, err)
	require.Equal(t, "C", got[0].Artist.Name)
}
