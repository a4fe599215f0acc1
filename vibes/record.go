package vibes

import "errors"

//
// ============================================================
// Error taxonomy shared by adapters and the harvest pipeline
// ============================================================
//

var (
	// ErrSourceUnavailable marks a transient upstream failure
	// (network, throttling, 5xx). Retryable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNotFound means the upstream source does not know the artist.
	// Not retryable.
	ErrNotFound = errors.New("artist not found")

	// ErrFeatureUnavailable means audio analysis could not produce
	// measurements. Callers fall back to tag heuristics.
	ErrFeatureUnavailable = errors.New("audio features unavailable")

	// ErrHarvestFailed means one artist could not be completed at all.
	// A bulk run logs it and moves on.
	ErrHarvestFailed = errors.New("harvest failed")
)

//
// ============================================================
// ArtistRecord: the unit of storage and similarity comparison
// ============================================================
//

// ArtistRecord is one row of the feature store. AudioBPM and
// AudioBrightness are 0 when no preview could be analyzed; TagEnergy
// and Valence are always populated so similarity math never sees a hole.
type ArtistRecord struct {
	Name             string  `json:"name"`
	Genre            string  `json:"genre"`
	MonthlyListeners int64   `json:"monthlyListeners"`
	TagEnergy        float64 `json:"tagEnergy"`
	Valence          float64 `json:"valence"`
	AudioBPM         float64 `json:"audioBPM"`
	AudioBrightness  float64 `json:"audioBrightness"`
	ImageURL         string  `json:"imageURL"`
}

// Energy is the similarity feature for intensity: measured brightness
// when a preview was analyzed, tag heuristic otherwise.
func (r ArtistRecord) Energy() float64 {
	if r.AudioBrightness > 0 {
		return r.AudioBrightness
	}
	return r.TagEnergy
}

// HasAudio reports whether physical measurements were taken.
func (r ArtistRecord) HasAudio() bool {
	return r.AudioBPM > 0 || r.AudioBrightness > 0
}

// Clamp01 pins a score into [0,1]. Every bounded field goes through
// this before persistence.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
