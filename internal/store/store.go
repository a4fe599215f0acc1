package store

import (
	"context"
	"errors"

	"github.com/456meh456/tu-nerr/vibes"
)

// ErrDuplicateArtist is returned by Append when the store already holds
// a row for the record's normalized name. It is the expected outcome of
// a check-then-act race and callers absorb it instead of escalating.
var ErrDuplicateArtist = errors.New("duplicate artist")

// FeatureStore is the append-only, deduplicated artist table. Any
// implementation satisfying the uniqueness and idempotent-delete
// contracts conforms; the engine ships a Postgres table and an
// in-memory map.
type FeatureStore interface {
	// Exists is a normalized-name membership check.
	Exists(ctx context.Context, name string) (bool, error)

	// Append persists one new row. Fails with ErrDuplicateArtist when a
	// row with the same normalized name is already present, including
	// when a concurrent writer won the race.
	Append(ctx context.Context, rec vibes.ArtistRecord) error

	// LoadAll returns a consistent snapshot of every row in insertion
	// order (earliest-added first, the similarity tie-break order).
	LoadAll(ctx context.Context) ([]vibes.ArtistRecord, error)

	// Count reports the current number of rows.
	Count(ctx context.Context) (int, error)

	// Delete removes the row if present. Idempotent: deleting an
	// absent artist is not an error.
	Delete(ctx context.Context, name string) error
}
