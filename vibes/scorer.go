package vibes

import "strings"

//
// ------------------------------------
// Tag heuristics
// ------------------------------------
//
// Static keyword tables mapping tag vocabulary to scores. These are the
// guaranteed fallback for energy and valence when no preview audio can
// be analyzed, so scoring is pure and total: unknown vocabularies land
// on the neutral midpoint instead of failing.
//

// VocabVersion identifies the keyword tables below. Bump when the
// tables change so stored scores can be traced to the vocabulary that
// produced them.
const VocabVersion = "2024-02"

const neutralScore = 0.5

var energyScores = map[string]float64{
	"death":       1.0,
	"thrash":      0.95,
	"core":        0.95,
	"metal":       0.9,
	"punk":        0.9,
	"heavy":       0.9,
	"industrial":  0.85,
	"hard rock":   0.8,
	"hip hop":     0.75,
	"rock":        0.7,
	"electronic":  0.65,
	"pop":         0.6,
	"indie":       0.5,
	"alternative": 0.5,
	"country":     0.4,
	"jazz":        0.35,
	"folk":        0.3,
	"soul":        0.3,
	"acoustic":    0.2,
	"classical":   0.15,
	"ambient":     0.1,
}

var valenceScores = map[string]float64{
	"happy":       0.9,
	"party":       0.9,
	"dance":       0.85,
	"pop":         0.8,
	"upbeat":      0.8,
	"funk":        0.75,
	"soul":        0.7,
	"country":     0.6,
	"folk":        0.5,
	"progressive": 0.5,
	"rock":        0.45,
	"alternative": 0.4,
	"industrial":  0.3,
	"angry":       0.3,
	"metal":       0.3,
	"heavy":       0.3,
	"sad":         0.2,
	"gothic":      0.2,
	"thrash":      0.2,
	"dark":        0.15,
	"melancholic": 0.1,
	"doom":        0.1,
	"death":       0.1,
	"depressive":  0.05,
}

// scoreTags averages the table values whose keyword appears inside any
// of the tags. Substring match on purpose: "melodic death metal" should
// hit both "death" and "metal".
func scoreTags(tags []string, table map[string]float64) float64 {
	var sum float64
	var n int
	for keyword, score := range table {
		for _, tag := range tags {
			if strings.Contains(strings.ToLower(tag), keyword) {
				sum += score
				n++
			}
		}
	}
	if n == 0 {
		return neutralScore
	}
	return Clamp01(sum / float64(n))
}

// ScoreTags maps an artist's tag list to (energy, valence), both in
// [0,1]. Never fails; empty or unknown tag lists score neutral.
func ScoreTags(tags []string) (energy, valence float64) {
	return scoreTags(tags, energyScores), scoreTags(tags, valenceScores)
}
