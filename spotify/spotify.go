// Package spotify is the fallback popularity adapter, used when Deezer
// has no hit for an artist. Client-credentials flow only; no user auth.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/456meh456/tu-nerr/vibes"
)

const (
	tokenURL = "https://accounts.spotify.com/api/token"
	apiBase  = "https://api.spotify.com/v1"
)

type Client struct {
	// BaseURL is swappable for tests.
	BaseURL string

	http *http.Client
}

// NewClient wires the client-credentials token source; the returned
// http.Client refreshes tokens transparently.
func NewClient(ctx context.Context, clientID, clientSecret string) *Client {
	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	hc := conf.Client(ctx)
	hc.Timeout = 15 * time.Second
	return &Client{BaseURL: apiBase, http: hc}
}

// ========================================================== //
// Retry logic

func (c *Client) fetchWithRetry(req *http.Request, maxRetries int) ([]byte, int, error) {
	var lastErr error
	var status int

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(backoff(attempt))
			continue
		}

		status = resp.StatusCode
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if status >= 200 && status < 300 {
			return body, status, nil
		}
		if status == 429 {
			time.Sleep(time.Second)
			continue
		}
		if status >= 500 {
			time.Sleep(backoff(attempt))
			continue
		}

		// client / 4xx error
		return body, status, nil
	}

	return nil, status, lastErr
}

func backoff(attempt int) time.Duration {
	base := 20 * time.Millisecond
	f := math.Pow(2, float64(attempt))
	jitter := time.Duration(rand.Intn(200)) * time.Millisecond
	return time.Duration(float64(base)*f) + jitter
}

// ========================================================== //
// Search

type artistSearchResponse struct {
	Artists struct {
		Items []struct {
			Name      string `json:"name"`
			Followers struct {
				Total int64 `json:"total"`
			} `json:"followers"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"items"`
	} `json:"artists"`
}

// ArtistPopularity resolves one artist and reports follower count and
// artwork. No preview URL: Spotify stopped serving anonymous previews,
// so records harvested through this fallback carry heuristics only.
func (c *Client) ArtistPopularity(ctx context.Context, name string) (vibes.Media, error) {
	u := c.BaseURL + "/search?" + url.Values{
		"q":     {name},
		"type":  {"artist"},
		"limit": {"5"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return vibes.Media{}, err
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.fetchWithRetry(req, 3)
	if err != nil {
		return vibes.Media{}, fmt.Errorf("spotify search %q: %v: %w", name, err, vibes.ErrSourceUnavailable)
	}
	if status == http.StatusNotFound {
		return vibes.Media{}, fmt.Errorf("spotify search %q: %w", name, vibes.ErrNotFound)
	}
	if status != http.StatusOK {
		return vibes.Media{}, fmt.Errorf("spotify search %q: status %d: %w", name, status, vibes.ErrSourceUnavailable)
	}

	var resp artistSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return vibes.Media{}, fmt.Errorf("spotify search %q: bad payload: %w", name, vibes.ErrSourceUnavailable)
	}

	for _, item := range resp.Artists.Items {
		if !vibes.SameName(name, item.Name) {
			continue
		}
		media := vibes.Media{
			Name:      item.Name,
			Listeners: item.Followers.Total,
		}
		if len(item.Images) > 0 {
			media.ImageURL = item.Images[0].URL
		}
		return media, nil
	}
	return vibes.Media{}, fmt.Errorf("spotify search %q: no matching hit: %w", name, vibes.ErrNotFound)
}
