package similar

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/456meh456/tu-nerr/internal/store"
	"github.com/456meh456/tu-nerr/vibes"
)

// DefaultK is how many neighbors a query returns when the caller does
// not say otherwise.
const DefaultK = 5

var (
	// ErrUnknownArtist: the query artist is not in the store and no
	// explicit vector was supplied. Harvest it first.
	ErrUnknownArtist = errors.New("unknown artist")

	// ErrInsufficientData: fewer than k+1 rows in the store. Grow the
	// database first.
	ErrInsufficientData = errors.New("not enough artists for similarity")
)

// Neighbor is one similarity hit.
type Neighbor struct {
	Artist   vibes.ArtistRecord `json:"artist"`
	Distance float64            `json:"distance"`
}

// Engine answers k-nearest-artist queries over the feature store. It is
// read-only; scaling is recomputed from the live snapshot on every query
// because the store grows between calls.
type Engine struct {
	store store.FeatureStore
}

func NewEngine(s store.FeatureStore) *Engine {
	return &Engine{store: s}
}

// featureVector is {listeners, energy, valence, bpm}. Energy prefers
// the measured brightness and falls back to the tag heuristic; an
// unmeasured BPM contributes 0, matching how records are stored.
func featureVector(r vibes.ArtistRecord) [4]float64 {
	return [4]float64{
		float64(r.MonthlyListeners),
		r.Energy(),
		r.Valence,
		r.AudioBPM,
	}
}

// Nearest returns the k artists closest to the named query artist.
func (e *Engine) Nearest(ctx context.Context, artist string, k int) ([]Neighbor, error) {
	if k <= 0 {
		k = DefaultK
	}
	rows, err := e.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	if len(rows) < k+1 {
		return nil, fmt.Errorf("%w: have %d rows, need %d", ErrInsufficientData, len(rows), k+1)
	}

	key := vibes.NormalizeName(artist)
	center := -1
	for i, r := range rows {
		if vibes.NormalizeName(r.Name) == key {
			center = i
			break
		}
	}
	if center == -1 {
		return nil, fmt.Errorf("%q: %w", artist, ErrUnknownArtist)
	}

	scaled := scale(rows)
	return rank(rows, scaled, scaled[center], center, k), nil
}

// NearestToVector answers a query for an explicit raw feature vector
// {listeners, energy, valence, bpm} that need not be in the store.
func (e *Engine) NearestToVector(ctx context.Context, raw [4]float64, k int) ([]Neighbor, error) {
	if k <= 0 {
		k = DefaultK
	}
	rows, err := e.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	if len(rows) < k {
		return nil, fmt.Errorf("%w: have %d rows, need %d", ErrInsufficientData, len(rows), k)
	}

	scaled := scale(rows)
	query := scaleVector(rows, raw)
	return rank(rows, scaled, query, -1, k), nil
}

//
// ------------------------------------
// Scaling and ranking
// ------------------------------------
//

type colStats struct {
	mean, std [4]float64
}

func columnStats(rows []vibes.ArtistRecord) colStats {
	var cs colStats
	col := make([]float64, len(rows))
	for c := 0; c < 4; c++ {
		for i, r := range rows {
			col[i] = featureVector(r)[c]
		}
		mean, std := stat.MeanStdDev(col, nil)
		cs.mean[c] = mean
		cs.std[c] = std
	}
	return cs
}

// scale z-scores every feature column across the current snapshot so
// listener counts in the millions cannot drown out scores in [0,1].
// A zero-variance column contributes nothing to any distance.
func scale(rows []vibes.ArtistRecord) [][4]float64 {
	cs := columnStats(rows)
	out := make([][4]float64, len(rows))
	for i, r := range rows {
		out[i] = zscore(featureVector(r), cs)
	}
	return out
}

func scaleVector(rows []vibes.ArtistRecord, raw [4]float64) [4]float64 {
	return zscore(raw, columnStats(rows))
}

func zscore(v [4]float64, cs colStats) [4]float64 {
	var out [4]float64
	for c := 0; c < 4; c++ {
		if cs.std[c] > 0 && !math.IsNaN(cs.std[c]) {
			out[c] = (v[c] - cs.mean[c]) / cs.std[c]
		}
	}
	return out
}

func euclidean(a, b [4]float64) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// rank orders every row (except the query row itself) by distance to
// the query vector and keeps the k closest. The sort is stable over
// insertion order, so ties go to the earliest-added artist.
func rank(rows []vibes.ArtistRecord, scaled [][4]float64, query [4]float64, skip, k int) []Neighbor {
	neighbors := make([]Neighbor, 0, len(rows))
	for i := range rows {
		if i == skip {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			Artist:   rows[i],
			Distance: euclidean(scaled[i], query),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
