package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/456meh456/tu-nerr/internal/harvest"
	"github.com/456meh456/tu-nerr/internal/similar"
	"github.com/456meh456/tu-nerr/vibes"
)

// ------------------------------------------------------------
// POST /api/harvest  {"artist": "..."}
// ------------------------------------------------------------
func harvestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Artist string `json:"artist"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Artist == "" {
		http.Error(w, `{"error":"invalid_body"}`, http.StatusBadRequest)
		return
	}

	rec, added, err := harvester.ProcessArtist(r.Context(), req.Artist)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, vibes.ErrHarvestFailed) || errors.Is(err, vibes.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, `{"error":`+strconv.Quote(err.Error())+`}`, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"artist": rec,
		"added":  added,
	})
}

// ------------------------------------------------------------
// GET /api/similar?artist=<name>&k=<n>
// ------------------------------------------------------------
func similarHandler(w http.ResponseWriter, r *http.Request) {
	artist := r.URL.Query().Get("artist")
	if artist == "" {
		http.Error(w, `{"error":"missing_artist"}`, http.StatusBadRequest)
		return
	}
	k, _ := strconv.Atoi(r.URL.Query().Get("k"))

	neighbors, err := engine.Nearest(r.Context(), artist, k)
	if errors.Is(err, similar.ErrUnknownArtist) && harvester != nil {
		// harvest on demand, then answer from the grown store
		if _, _, herr := harvester.ProcessArtist(r.Context(), artist); herr == nil {
			neighbors, err = engine.Nearest(r.Context(), artist, k)
		}
	}
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, similar.ErrUnknownArtist):
			status = http.StatusNotFound
		case errors.Is(err, similar.ErrInsufficientData):
			status = http.StatusConflict
		}
		http.Error(w, `{"error":`+strconv.Quote(err.Error())+`}`, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"artist":    artist,
		"neighbors": neighbors,
	})
}

// ------------------------------------------------------------
// POST /api/drill/start
// ------------------------------------------------------------

type drillRequest struct {
	SeedArtists            []string `json:"seedArtists"`
	SeedTag                string   `json:"seedTag"`
	TargetGrowthFactor     float64  `json:"targetGrowthFactor"`
	TargetCount            int      `json:"targetCount"`
	MaxConsecutiveFailures int      `json:"maxConsecutiveFailures"`
	RequestDelayMs         int      `json:"requestDelayMs"`
	NeighborLimit          int      `json:"neighborLimit"`
}

func startDrillHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req drillRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	p := harvest.Params{
		Seeds:                  req.SeedArtists,
		SeedTag:                req.SeedTag,
		TargetGrowthFactor:     req.TargetGrowthFactor,
		TargetCount:            req.TargetCount,
		MaxConsecutiveFailures: req.MaxConsecutiveFailures,
		RequestDelay:           time.Duration(req.RequestDelayMs) * time.Millisecond,
		NeighborLimit:          req.NeighborLimit,
	}

	job := drillJobs.Start(driller, p)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"jobID": job.ID,
	})
}

// ------------------------------------------------------------
// GET /api/drill/status?id=<jobID>
// ------------------------------------------------------------
func drillStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	job, ok := drillJobs.Get(id)
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// ------------------------------------------------------------
// POST /api/drill/abort?id=<jobID>
// ------------------------------------------------------------
func drillAbortHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")

	if _, ok := drillJobs.Get(id); !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	drillJobs.Abort(id)

	// the job finishes asynchronously; poll /api/drill/status for the report
	json.NewEncoder(w).Encode(map[string]bool{"aborting": true})
}

// ------------------------------------------------------------
// DELETE /api/artist  {"artist": "..."}   (admin only)
// ------------------------------------------------------------
func deleteArtistHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Artist string `json:"artist"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Artist == "" {
		http.Error(w, `{"error":"invalid_body"}`, http.StatusBadRequest)
		return
	}

	if err := featureStore.Delete(r.Context(), req.Artist); err != nil {
		http.Error(w, `{"error":`+strconv.Quote(err.Error())+`}`, http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}

// ------------------------------------------------------------
// GET /api/stats
// ------------------------------------------------------------
func statsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := featureStore.LoadAll(r.Context())
	if err != nil {
		http.Error(w, `{"error":`+strconv.Quote(err.Error())+`}`, http.StatusInternalServerError)
		return
	}

	measured := 0
	for _, rec := range rows {
		if rec.HasAudio() {
			measured++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"artists":       len(rows),
		"measuredAudio": measured,
	})
}
