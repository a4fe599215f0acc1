package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/456meh456/tu-nerr/deezer"
	"github.com/456meh456/tu-nerr/internal/harvest"
	"github.com/456meh456/tu-nerr/internal/jobs"
	"github.com/456meh456/tu-nerr/internal/secret"
	"github.com/456meh456/tu-nerr/internal/similar"
	"github.com/456meh456/tu-nerr/internal/store"
	"github.com/456meh456/tu-nerr/lastfm"
	"github.com/456meh456/tu-nerr/spotify"
)

var (
	featureStore store.FeatureStore
	harvester    *harvest.Harvester
	driller      *harvest.Driller
	engine       *similar.Engine
	drillJobs    = jobs.NewManager()
)

// adminAuth gates destructive routes behind the operator password.
func adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pw := r.Header.Get("X-Admin-Password")
		if secret.Config.AdminPassword == "" || pw != secret.Config.AdminPassword {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	godotenv.Load()
	if err := secret.LoadSecrets(""); err != nil {
		log.Fatal(err)
	}

	pg, err := store.Open(secret.Config.PGDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pg.Close()
	if err := pg.Migrate(context.Background()); err != nil {
		log.Fatal(err)
	}
	featureStore = pg

	harvester = &harvest.Harvester{
		Meta:    lastfm.NewClient(secret.Config.LastFMAPIKey),
		Media:   deezer.NewClient(),
		Store:   featureStore,
		Verbose: os.Getenv("VERBOSE") != "",
	}
	if secret.Config.SpotifyClientID != "" && secret.Config.SpotifyClientSecret != "" {
		harvester.Fallback = spotify.NewClient(context.Background(),
			secret.Config.SpotifyClientID, secret.Config.SpotifyClientSecret)
	}
	driller = &harvest.Driller{Harvester: harvester, Verbose: harvester.Verbose}
	engine = similar.NewEngine(featureStore)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/harvest", harvestHandler)
	mux.HandleFunc("/api/similar", similarHandler)
	mux.HandleFunc("/api/stats", statsHandler)

	// drill jobs (background)
	mux.HandleFunc("/api/drill/start", startDrillHandler)
	mux.HandleFunc("/api/drill/status", drillStatusHandler)
	mux.HandleFunc("/api/drill/abort", drillAbortHandler)

	// --- PROTECTED ROUTES ---
	mux.Handle("/api/artist", adminAuth(http.HandlerFunc(deleteArtistHandler)))

	// others
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("Listening on :" + port)
	err = http.ListenAndServe(":"+port, mux)
	if err != nil {
		log.Fatal(err)
	}
}
