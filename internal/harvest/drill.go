package harvest

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/456meh456/tu-nerr/vibes"
)

//
// ============================================================
// Deep Drill: bulk growth controller
// ============================================================
//
// A bounded FIFO traversal over the similar-artist relation: pop a
// frontier artist, ask the metadata source for its neighbors, harvest
// the ones the store has never seen, keep going until the store hits
// its growth target, the frontier dries up, the failure threshold
// trips, or the operator aborts.
//

// StopReason says why a drill run ended.
type StopReason string

const (
	TargetReached            StopReason = "TargetReached"
	FrontierExhausted        StopReason = "FrontierExhausted"
	FailureThresholdExceeded StopReason = "FailureThresholdExceeded"
	Aborted                  StopReason = "Aborted"
)

// Params configures one drill run.
type Params struct {
	// Seeds are the starting frontier. Empty means: seed from every
	// artist currently in the store, in insertion order.
	Seeds []string

	// SeedTag, when set, seeds the frontier from the top artists of a
	// genre tag instead.
	SeedTag string

	// TargetGrowthFactor stops the run once the store holds
	// ceil(initial * factor) rows. Ignored when TargetCount is set.
	TargetGrowthFactor float64

	// TargetCount is an absolute row-count target. 0 means use the
	// growth factor; both unset means run until the frontier drains.
	TargetCount int

	// MaxConsecutiveFailures aborts the run after this many failures
	// in a row (a success resets the streak).
	MaxConsecutiveFailures int

	// RequestDelay is the minimum spacing between external requests.
	RequestDelay time.Duration

	// NeighborLimit caps how many similar artists are pulled per
	// frontier expansion.
	NeighborLimit int
}

func (p *Params) fillDefaults() {
	if p.MaxConsecutiveFailures <= 0 {
		p.MaxConsecutiveFailures = 10
	}
	if p.RequestDelay <= 0 {
		p.RequestDelay = 250 * time.Millisecond
	}
	if p.NeighborLimit <= 0 {
		p.NeighborLimit = 10
	}
}

// Report is the run summary handed back to the operator.
type Report struct {
	Added             int        `json:"added"`
	SkippedDuplicates int        `json:"skippedDuplicates"`
	Failed            int        `json:"failed"`
	StoppedReason     StopReason `json:"stoppedReason"`
}

// Driller walks the similarity graph and grows the store.
type Driller struct {
	Harvester *Harvester
	Verbose   bool
}

// Run executes one drill. Every append that completed before a stop is
// durable: aborting mid-run leaves a smaller-than-target store, which
// is a valid resting state.
func (d *Driller) Run(ctx context.Context, p Params) (Report, error) {
	p.fillDefaults()
	var rep Report

	initial, err := d.Harvester.Store.Count(ctx)
	if err != nil {
		return rep, fmt.Errorf("count store: %w", err)
	}

	target := p.TargetCount
	if target == 0 && p.TargetGrowthFactor > 1 {
		target = int(math.Ceil(float64(initial) * p.TargetGrowthFactor))
	}

	frontier, err := d.seedFrontier(ctx, p)
	if err != nil {
		return rep, err
	}

	visited := make(map[string]bool, len(frontier))
	limiter := rate.NewLimiter(rate.Every(p.RequestDelay), 1)
	failStreak := 0

	log.Printf("[drill] starting: %d rows, target %d, frontier %d", initial, target, len(frontier))

	for len(frontier) > 0 {
		if ctx.Err() != nil {
			rep.StoppedReason = Aborted
			return rep, nil
		}
		if target > 0 && initial+rep.Added >= target {
			rep.StoppedReason = TargetReached
			return rep, nil
		}

		// pop FIFO so two runs over the same data walk the same path
		current := frontier[0]
		frontier = frontier[1:]

		if err := limiter.Wait(ctx); err != nil {
			rep.StoppedReason = Aborted
			return rep, nil
		}

		neighbors, err := d.Harvester.Meta.SimilarArtists(ctx, current, p.NeighborLimit)
		if err != nil {
			rep.Failed++
			failStreak++
			if d.Verbose {
				log.Printf("[drill] expand %s failed (%d in a row): %v", current, failStreak, err)
			}
			if failStreak >= p.MaxConsecutiveFailures {
				rep.StoppedReason = FailureThresholdExceeded
				return rep, nil
			}
			continue
		}
		failStreak = 0

		for _, candidate := range neighbors {
			if ctx.Err() != nil {
				rep.StoppedReason = Aborted
				return rep, nil
			}

			key := vibes.NormalizeName(candidate)
			if visited[key] {
				rep.SkippedDuplicates++
				continue
			}
			visited[key] = true

			if ok, err := d.Harvester.Store.Exists(ctx, candidate); err != nil {
				return rep, fmt.Errorf("exists %q: %w", candidate, err)
			} else if ok {
				rep.SkippedDuplicates++
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				rep.StoppedReason = Aborted
				return rep, nil
			}

			rec, added, err := d.Harvester.ProcessArtist(ctx, candidate)
			if err != nil {
				// one bad artist never aborts the run, but a streak does
				rep.Failed++
				failStreak++
				if d.Verbose {
					log.Printf("[drill] harvest %s failed (%d in a row): %v", candidate, failStreak, err)
				}
				if failStreak >= p.MaxConsecutiveFailures {
					rep.StoppedReason = FailureThresholdExceeded
					return rep, nil
				}
				continue
			}
			failStreak = 0

			if !added {
				// racing writer got there first
				rep.SkippedDuplicates++
				continue
			}

			rep.Added++
			if d.Verbose {
				log.Printf("[drill] added %s (%d/%d)", rec.Name, initial+rep.Added, target)
			}
			// walk onward from the new artist
			frontier = append(frontier, rec.Name)

			if target > 0 && initial+rep.Added >= target {
				rep.StoppedReason = TargetReached
				return rep, nil
			}
		}
	}

	rep.StoppedReason = FrontierExhausted
	return rep, nil
}

// seedFrontier builds the initial work list: explicit seeds, a genre
// tag, or the whole store in insertion order.
func (d *Driller) seedFrontier(ctx context.Context, p Params) ([]string, error) {
	if len(p.Seeds) > 0 {
		return append([]string(nil), p.Seeds...), nil
	}
	if p.SeedTag != "" {
		names, err := d.Harvester.Meta.TopArtistsByTag(ctx, p.SeedTag, 12)
		if err != nil {
			return nil, fmt.Errorf("seed tag %q: %w", p.SeedTag, err)
		}
		return names, nil
	}
	rows, err := d.Harvester.Store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed from store: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	return names, nil
}
