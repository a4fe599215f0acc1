package lastfm_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/456meh456/tu-nerr/lastfm"
	"github.com/456meh456/tu-nerr/vibes"
)

func newClient(srv *httptest.Server) *lastfm.Client {
	c := lastfm.NewClient("test-key")
	c.BaseURL = srv.URL
	return c
}

func TestArtistTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "artist.getinfo", r.URL.Query().Get("method"))
		require.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		require.Equal(t, "Metallica", r.URL.Query().Get("artist"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"artist":{"name":"Metallica","tags":{"tag":[
			{"name":"thrash metal"},{"name":"metal"},{"name":"seen live"}]}}}`))
	}))
	defer srv.Close()

	tags, err := newClient(srv).ArtistTags(context.Background(), "Metallica")
	require.NoError(t, err)
	require.Equal(t, []string{"thrash metal", "metal", "seen live"}, tags)
}

func TestArtistTags_UnknownArtist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Last.fm reports unknown artists with HTTP 200 and an error body
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":6,"message":"The artist you supplied could not be found"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv).ArtistTags(context.Background(), "zzzz")
	if !errors.Is(err, vibes.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArtistTags_TaglessArtistIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"artist":{"name":"Obscure","tags":{"tag":[]}}}`))
	}))
	defer srv.Close()

	_, err := newClient(srv).ArtistTags(context.Background(), "Obscure")
	require.ErrorIs(t, err, vibes.ErrNotFound)
}

func TestSimilarArtists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "artist.getsimilar", r.URL.Query().Get("method"))
		require.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"similarartists":{"artist":[
			{"name":"Megadeth"},{"name":"Slayer"},{"name":"Anthrax"}]}}`))
	}))
	defer srv.Close()

	names, err := newClient(srv).SimilarArtists(context.Background(), "Metallica", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"Megadeth", "Slayer", "Anthrax"}, names)
}

func TestTopArtistsByTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tag.gettopartists", r.URL.Query().Get("method"))
		require.Equal(t, "doom metal", r.URL.Query().Get("tag"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"topartists":{"artist":[{"name":"Candlemass"},{"name":"Sleep"}]}}`))
	}))
	defer srv.Close()

	names, err := newClient(srv).TopArtistsByTag(context.Background(), "doom metal", 12)
	require.NoError(t, err)
	require.Equal(t, []string{"Candlemass", "Sleep"}, names)
}

// Transient 5xx responses are retried with backoff before succeeding.
func TestRetryOnServerError(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"similarartists":{"artist":[{"name":"Slayer"}]}}`))
	}))
	defer srv.Close()

	names, err := newClient(srv).SimilarArtists(context.Background(), "Metallica", 5)
	require.NoError(t, err)
	require.Equal(t, []string{"Slayer"}, names)
	require.EqualValues(t, 3, atomic.LoadInt64(&calls))
}

// Exhausted retries degrade to ErrSourceUnavailable, never a panic or
// a silent empty result.
func TestExhaustedRetriesAreSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(srv).SimilarArtists(context.Background(), "Metallica", 5)
	if !errors.Is(err, vibes.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
