package secret

import (
	"encoding/json"
	"fmt"
	"os"
)

type ConfigStruct struct {
	LastFMAPIKey        string `json:"lastfm_api_key"`
	PGDSN               string `json:"pg_dsn"`
	SpotifyClientID     string `json:"spotify_client_id"`
	SpotifyClientSecret string `json:"spotify_client_secret"`
	AdminPassword       string `json:"admin_password"`
}

var Config ConfigStruct

// LoadSecrets always loads from:
// 1. Environment variables (deploy safe)
// 2. vibeconfig.json located in the project root
func LoadSecrets(path string) error {

	// ----- 1. Load from environment -----
	key := os.Getenv("LASTFM_API_KEY")
	dsn := os.Getenv("PG_DSN")

	if key != "" && dsn != "" {
		Config = ConfigStruct{
			LastFMAPIKey:        key,
			PGDSN:               dsn,
			SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
			SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
			AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
		}
		return nil
	}

	// ----- 2. Try local vibeconfig.json -----
	if path == "" {
		path = "vibeconfig.json"
	}
	b, err := os.ReadFile(path)
	if err == nil {
		err = json.Unmarshal(b, &Config)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", path, err)
		}
		if Config.LastFMAPIKey == "" || Config.PGDSN == "" {
			return fmt.Errorf("%s is missing lastfm_api_key or pg_dsn", path)
		}
		return nil
	}

	return fmt.Errorf("missing LASTFM_API_KEY/PG_DSN env vars or vibeconfig.json")
}
