// Package lastfm is the metadata adapter: social tags, similar-artist
// lists, and top-artists-by-tag from the Last.fm (audioscrobbler) API.
package lastfm

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/456meh456/tu-nerr/vibes"
)

const defaultBaseURL = "http://ws.audioscrobbler.com/2.0/"

// Last.fm error code for "artist not found".
const codeInvalidParams = 6

type Client struct {
	// BaseURL is swappable for tests.
	BaseURL string

	apiKey string
	http   *resty.Client
}

// NewClient builds a Last.fm client with bounded retries: transient
// statuses (429, 5xx) and transport errors are retried with backoff,
// everything else surfaces immediately.
func NewClient(apiKey string) *Client {
	rc := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})

	return &Client{
		BaseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    rc,
	}
}

type apiError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, method string, params map[string]string, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("method", method).
		SetQueryParam("api_key", c.apiKey).
		SetQueryParam("format", "json").
		SetQueryParams(params).
		SetResult(out).
		SetError(&apiError{})

	resp, err := req.Get(c.BaseURL)
	if err != nil {
		return fmt.Errorf("lastfm %s: %v: %w", method, err, vibes.ErrSourceUnavailable)
	}
	if resp.IsError() {
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Code == codeInvalidParams {
			return fmt.Errorf("lastfm %s: %s: %w", method, apiErr.Message, vibes.ErrNotFound)
		}
		return fmt.Errorf("lastfm %s: status %d: %w", method, resp.StatusCode(), vibes.ErrSourceUnavailable)
	}
	return nil
}

//
// ------------
// artist.getinfo: ordered tag list
// ------------
//

type artistInfoResponse struct {
	Artist struct {
		Name string `json:"name"`
		Tags struct {
			Tag []struct {
				Name string `json:"name"`
			} `json:"tag"`
		} `json:"tags"`
	} `json:"artist"`
	// Last.fm reports some failures with HTTP 200 and an error body
	Code    int    `json:"error"`
	Message string `json:"message"`
}

// ArtistTags returns the artist's tags in Last.fm's order (the first
// one is the genre of record). ErrNotFound when Last.fm has never
// heard of the artist.
func (c *Client) ArtistTags(ctx context.Context, name string) ([]string, error) {
	var resp artistInfoResponse
	err := c.get(ctx, "artist.getinfo", map[string]string{"artist": name}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		if resp.Code == codeInvalidParams {
			return nil, fmt.Errorf("lastfm getinfo %q: %w", name, vibes.ErrNotFound)
		}
		return nil, fmt.Errorf("lastfm getinfo %q: error %d: %w", name, resp.Code, vibes.ErrSourceUnavailable)
	}

	tags := make([]string, 0, len(resp.Artist.Tags.Tag))
	for _, t := range resp.Artist.Tags.Tag {
		if t.Name != "" {
			tags = append(tags, t.Name)
		}
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("lastfm getinfo %q: no tags: %w", name, vibes.ErrNotFound)
	}
	return tags, nil
}

//
// ------------
// artist.getsimilar: the similarity graph edges
// ------------
//

type similarResponse struct {
	Similar struct {
		Artist []struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"similarartists"`
	Code int `json:"error"`
}

// SimilarArtists returns up to limit neighbor names in Last.fm's
// match order.
func (c *Client) SimilarArtists(ctx context.Context, name string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	var resp similarResponse
	err := c.get(ctx, "artist.getsimilar", map[string]string{
		"artist": name,
		"limit":  strconv.Itoa(limit),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("lastfm getsimilar %q: error %d: %w", name, resp.Code, vibes.ErrNotFound)
	}

	names := make([]string, 0, len(resp.Similar.Artist))
	for _, a := range resp.Similar.Artist {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names, nil
}

//
// ------------
// tag.gettopartists: genre seeding for drill runs
// ------------
//

type topArtistsResponse struct {
	Top struct {
		Artist []struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"topartists"`
	Code int `json:"error"`
}

// TopArtistsByTag returns the most popular artists for one tag, used to
// seed a growth run from a genre instead of concrete artists.
func (c *Client) TopArtistsByTag(ctx context.Context, tag string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 12
	}
	var resp topArtistsResponse
	err := c.get(ctx, "tag.gettopartists", map[string]string{
		"tag":   tag,
		"limit": strconv.Itoa(limit),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("lastfm gettopartists %q: error %d: %w", tag, resp.Code, vibes.ErrNotFound)
	}

	names := make([]string, 0, len(resp.Top.Artist))
	for _, a := range resp.Top.Artist {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names, nil
}
