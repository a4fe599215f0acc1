// Package deezer is the popularity/media adapter: canonical artist
// spelling, fan counts, artwork, and the 30-second preview clip.
package deezer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/456meh456/tu-nerr/vibes"
)

const defaultBaseURL = "https://api.deezer.com"

// previews are ~400KB; anything bigger than this is not a preview
const maxPreviewBytes = 8 << 20

type Client struct {
	// BaseURL is swappable for tests.
	BaseURL string

	http *resty.Client
}

func NewClient() *Client {
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

	return &Client{BaseURL: defaultBaseURL, http: rc}
}

type searchResponse struct {
	Data []struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		Fans          int64  `json:"nb_fan"`
		PictureMedium string `json:"picture_medium"`
	} `json:"data"`
}

type topResponse struct {
	Data []struct {
		Title   string `json:"title"`
		Preview string `json:"preview"`
	} `json:"data"`
}

// SearchArtist resolves a name to Deezer's canonical artist and packs
// the media fields the record builder needs. The top hit is only
// accepted when it plausibly is the requested artist; a fuzzy search
// landing on somebody else entirely is ErrNotFound, not a silent
// substitution.
func (c *Client) SearchArtist(ctx context.Context, name string) (vibes.Media, error) {
	var resp searchResponse
	r, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", name).
		SetResult(&resp).
		Get(c.BaseURL + "/search/artist")
	if err != nil {
		return vibes.Media{}, fmt.Errorf("deezer search %q: %v: %w", name, err, vibes.ErrSourceUnavailable)
	}
	if r.IsError() {
		return vibes.Media{}, fmt.Errorf("deezer search %q: status %d: %w", name, r.StatusCode(), vibes.ErrSourceUnavailable)
	}
	if len(resp.Data) == 0 {
		return vibes.Media{}, fmt.Errorf("deezer search %q: no hits: %w", name, vibes.ErrNotFound)
	}

	hit := resp.Data[0]
	if !vibes.SameName(name, hit.Name) {
		return vibes.Media{}, fmt.Errorf("deezer search %q: top hit %q does not match: %w",
			name, hit.Name, vibes.ErrNotFound)
	}

	media := vibes.Media{
		Name:      hit.Name,
		Listeners: hit.Fans,
		ImageURL:  hit.PictureMedium,
	}
	// preview is best-effort; an artist without one is still harvestable
	if url, err := c.topPreviewURL(ctx, hit.ID); err == nil {
		media.PreviewURL = url
	}
	return media, nil
}

// topPreviewURL fetches the preview URL of the artist's top track.
// Empty string when the artist has no previewable track.
func (c *Client) topPreviewURL(ctx context.Context, artistID int64) (string, error) {
	var resp topResponse
	r, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", "1").
		SetResult(&resp).
		Get(c.BaseURL + "/artist/" + strconv.FormatInt(artistID, 10) + "/top")
	if err != nil {
		return "", fmt.Errorf("deezer top tracks: %v: %w", err, vibes.ErrSourceUnavailable)
	}
	if r.IsError() {
		return "", fmt.Errorf("deezer top tracks: status %d: %w", r.StatusCode(), vibes.ErrSourceUnavailable)
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].Preview, nil
}

// DownloadPreview pulls the raw MP3 bytes of a preview clip.
func (c *Client) DownloadPreview(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("no preview url: %w", vibes.ErrFeatureUnavailable)
	}
	r, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("preview download: %v: %w", err, vibes.ErrSourceUnavailable)
	}
	if r.IsError() {
		return nil, fmt.Errorf("preview download: status %d: %w", r.StatusCode(), vibes.ErrSourceUnavailable)
	}
	body := r.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("empty preview body: %w", vibes.ErrFeatureUnavailable)
	}
	if len(body) > maxPreviewBytes {
		body = body[:maxPreviewBytes]
	}
	return body, nil
}
