package vibes

import (
	"fmt"
	"strings"
	"unicode"
)

//
// ------------------------------------
// Record builder
// ------------------------------------
//

// Metadata is what the tag source (Last.fm) knows about an artist.
type Metadata struct {
	Tags []string
}

// Media is what the popularity/media source (Deezer, or the Spotify
// fallback) knows: the canonical spelling plus popularity and artwork.
type Media struct {
	Name       string
	Listeners  int64
	ImageURL   string
	PreviewURL string
}

// AudioFeatures are the physical measurements from a preview clip.
type AudioFeatures struct {
	BPM        float64
	Brightness float64
}

// BuildRecord composes one canonical ArtistRecord. Audio measurements
// win over tag heuristics when present; heuristics are always stored as
// the guaranteed fallback. Returns ErrHarvestFailed when the mandatory
// fields (canonical name, at least one tag for the genre) are missing.
func BuildRecord(meta Metadata, media Media, feat *AudioFeatures) (ArtistRecord, error) {
	name := strings.TrimSpace(media.Name)
	if name == "" {
		return ArtistRecord{}, fmt.Errorf("no canonical name: %w", ErrHarvestFailed)
	}
	if len(meta.Tags) == 0 {
		return ArtistRecord{}, fmt.Errorf("no tags for %q: %w", name, ErrHarvestFailed)
	}

	energy, valence := ScoreTags(meta.Tags)

	rec := ArtistRecord{
		Name:             name,
		Genre:            titleCase(meta.Tags[0]),
		MonthlyListeners: media.Listeners,
		TagEnergy:        Clamp01(energy),
		Valence:          Clamp01(valence),
		ImageURL:         media.ImageURL,
	}
	if rec.MonthlyListeners < 0 {
		rec.MonthlyListeners = 0
	}
	if feat != nil {
		if feat.BPM > 0 {
			rec.AudioBPM = feat.BPM
		}
		rec.AudioBrightness = Clamp01(feat.Brightness)
	}
	return rec, nil
}

// titleCase renders a genre tag for display ("melodic death metal" ->
// "Melodic Death Metal").
func titleCase(s string) string {
	if s == "" {
		return "Unknown"
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
