// Package harvest turns artist names into stored feature records: the
// on-demand Harvester for single lookups and the Driller for bulk
// growth of the store along the similar-artist graph.
package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/456meh456/tu-nerr/internal/audio"
	"github.com/456meh456/tu-nerr/internal/store"
	"github.com/456meh456/tu-nerr/vibes"
)

//
// ============================================================
// Source adapter boundaries
// ============================================================
//

// MetadataSource is the tag / similarity-graph side (Last.fm).
type MetadataSource interface {
	ArtistTags(ctx context.Context, name string) ([]string, error)
	SimilarArtists(ctx context.Context, name string, limit int) ([]string, error)
	TopArtistsByTag(ctx context.Context, tag string, limit int) ([]string, error)
}

// MediaSource is the popularity / artwork / preview side (Deezer).
type MediaSource interface {
	SearchArtist(ctx context.Context, name string) (vibes.Media, error)
	DownloadPreview(ctx context.Context, url string) ([]byte, error)
}

// PopularitySource is an optional fallback when the media source has
// no hit (Spotify follower counts). May be nil.
type PopularitySource interface {
	ArtistPopularity(ctx context.Context, name string) (vibes.Media, error)
}

//
// ============================================================
// Harvester
// ============================================================
//

const defaultAnalyzeTimeout = 25 * time.Second

// Harvester runs the full pipeline for one artist: adapters -> audio
// analysis -> heuristic fallback -> record builder -> store append.
type Harvester struct {
	Meta     MetadataSource
	Media    MediaSource
	Fallback PopularitySource // optional

	Store store.FeatureStore

	// AnalyzeTimeout bounds preview download + decode so one stuck
	// clip cannot hang a run. Zero means the default.
	AnalyzeTimeout time.Duration

	Verbose bool
}

// ProcessArtist harvests one artist into the store. Idempotent: when
// the artist (under any spelling of the same normalized name) is
// already stored, the stored row is returned and added is false. Every
// per-artist failure comes back wrapped in vibes.ErrHarvestFailed.
func (h *Harvester) ProcessArtist(ctx context.Context, name string) (rec vibes.ArtistRecord, added bool, err error) {
	if existing, ok, err := h.lookup(ctx, name); err != nil {
		return vibes.ArtistRecord{}, false, err
	} else if ok {
		return existing, false, nil
	}

	media, err := h.resolveMedia(ctx, name)
	if err != nil {
		return vibes.ArtistRecord{}, false, fmt.Errorf("%q: %v: %w", name, err, vibes.ErrHarvestFailed)
	}

	// the source may have resolved to a canonical spelling we already hold
	if existing, ok, err := h.lookup(ctx, media.Name); err != nil {
		return vibes.ArtistRecord{}, false, err
	} else if ok {
		return existing, false, nil
	}

	tags, err := h.Meta.ArtistTags(ctx, media.Name)
	if err != nil {
		return vibes.ArtistRecord{}, false, fmt.Errorf("%q: tags: %v: %w", media.Name, err, vibes.ErrHarvestFailed)
	}

	feat := h.analyzePreview(ctx, media)

	rec, err = vibes.BuildRecord(vibes.Metadata{Tags: tags}, media, feat)
	if err != nil {
		return vibes.ArtistRecord{}, false, err
	}

	switch err := h.Store.Append(ctx, rec); {
	case err == nil:
		return rec, true, nil
	case errors.Is(err, store.ErrDuplicateArtist):
		// a concurrent writer won the race; their row stands
		return rec, false, nil
	default:
		return vibes.ArtistRecord{}, false, fmt.Errorf("append %q: %w", rec.Name, err)
	}
}

func (h *Harvester) lookup(ctx context.Context, name string) (vibes.ArtistRecord, bool, error) {
	ok, err := h.Store.Exists(ctx, name)
	if err != nil {
		return vibes.ArtistRecord{}, false, fmt.Errorf("exists %q: %w", name, err)
	}
	if !ok {
		return vibes.ArtistRecord{}, false, nil
	}
	rows, err := h.Store.LoadAll(ctx)
	if err != nil {
		return vibes.ArtistRecord{}, false, fmt.Errorf("load store: %w", err)
	}
	key := vibes.NormalizeName(name)
	for _, r := range rows {
		if vibes.NormalizeName(r.Name) == key {
			return r, true, nil
		}
	}
	// deleted between Exists and LoadAll; treat as absent
	return vibes.ArtistRecord{}, false, nil
}

func (h *Harvester) resolveMedia(ctx context.Context, name string) (vibes.Media, error) {
	media, err := h.Media.SearchArtist(ctx, name)
	if err == nil {
		return media, nil
	}
	if h.Fallback != nil && errors.Is(err, vibes.ErrNotFound) {
		if fb, fbErr := h.Fallback.ArtistPopularity(ctx, name); fbErr == nil {
			return fb, nil
		}
	}
	return vibes.Media{}, err
}

// analyzePreview measures the preview clip when there is one. Always
// best-effort: any failure means heuristics carry the record.
func (h *Harvester) analyzePreview(ctx context.Context, media vibes.Media) *vibes.AudioFeatures {
	if media.PreviewURL == "" {
		return nil
	}
	timeout := h.AnalyzeTimeout
	if timeout <= 0 {
		timeout = defaultAnalyzeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clip, err := h.Media.DownloadPreview(ctx, media.PreviewURL)
	if err != nil {
		if h.Verbose {
			log.Printf("[harvest] %s: preview download failed: %v", media.Name, err)
		}
		return nil
	}
	feat, err := audio.Extract(ctx, bytes.NewReader(clip))
	if err != nil {
		if h.Verbose {
			log.Printf("[harvest] %s: audio analysis unavailable: %v", media.Name, err)
		}
		return nil
	}
	return &vibes.AudioFeatures{BPM: feat.BPM, Brightness: feat.Brightness}
}
