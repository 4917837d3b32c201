// Package spotify resolves Spotify URLs and URIs to track names. Spotify
// only hands out metadata under client credentials, so every result is a
// name/artist pair the caller turns into a search query for the actual
// audio.
package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// TrackRef is one resolved track's metadata.
type TrackRef struct {
	Name   string
	Artist string
}

// Query is the free-text search string used to locate the playable audio.
func (t TrackRef) Query() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Artist + " - " + t.Name
}

// CollectionMeta describes the album or playlist a batch of tracks came
// from.
type CollectionMeta struct {
	Title  string
	Source string
}

type Client struct {
	raw *spotify.Client
}

// NewClientCredentials builds a client with the app token flow; no user
// login involved.
func NewClientCredentials(clientID, clientSecret string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	return &Client{raw: spotify.New(httpClient, spotify.WithRetry(true))}
}

func (c *Client) Raw() *spotify.Client { return c.raw }

// ParseID extracts the resource type and ID from a spotify: URI or an
// open.spotify.com URL.
func ParseID(raw string) (typ string, id spotify.ID, err error) {
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) == 3 {
			return parts[1], spotify.ID(parts[2]), nil
		}
		return "", "", fmt.Errorf("spotify: invalid URI %q", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
		return "", "", fmt.Errorf("spotify: not a spotify URL")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("spotify: invalid URL path")
	}
	switch parts[0] {
	case "album", "playlist", "track", "artist":
		return parts[0], spotify.ID(parts[1]), nil
	}
	return "", "", fmt.Errorf("spotify: unsupported resource %q", parts[0])
}

func refFromSimple(t spotify.SimpleTrack) TrackRef {
	ref := TrackRef{Name: t.Name}
	if len(t.Artists) > 0 {
		ref.Artist = t.Artists[0].Name
	}
	return ref
}

// Album resolves an album's tracks, following pagination up to limit
// (0 = all).
func (c *Client) Album(ctx context.Context, id spotify.ID, limit int) ([]TrackRef, CollectionMeta, error) {
	alb, err := c.raw.GetAlbum(ctx, id)
	if err != nil {
		return nil, CollectionMeta{}, err
	}
	page, err := c.raw.GetAlbumTracks(ctx, id)
	if err != nil {
		return nil, CollectionMeta{}, err
	}

	out := make([]TrackRef, 0, page.Total)
	for {
		for _, t := range page.Tracks {
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, refFromSimple(t))
		}
		if page.Next == "" || (limit > 0 && len(out) >= limit) {
			break
		}
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
	}
	meta := CollectionMeta{Title: alb.Name, Source: alb.ExternalURLs["spotify"]}
	return out, meta, nil
}

// Playlist resolves a playlist's tracks, following pagination up to limit
// (0 = all). Local files and removed tracks appear as nil items and are
// skipped.
func (c *Client) Playlist(ctx context.Context, id spotify.ID, limit int) ([]TrackRef, CollectionMeta, error) {
	pl, err := c.raw.GetPlaylist(ctx, id)
	if err != nil {
		return nil, CollectionMeta{}, err
	}
	page, err := c.raw.GetPlaylistItems(ctx, id)
	if err != nil {
		return nil, CollectionMeta{}, err
	}

	out := make([]TrackRef, 0, page.Total)
	for {
		for _, it := range page.Items {
			if it.Track.Track == nil {
				continue
			}
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, refFromSimple(it.Track.Track.SimpleTrack))
		}
		if page.Next == "" || (limit > 0 && len(out) >= limit) {
			break
		}
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
	}
	meta := CollectionMeta{Title: pl.Name, Source: pl.ExternalURLs["spotify"]}
	return out, meta, nil
}

// Track resolves a single track.
func (c *Client) Track(ctx context.Context, id spotify.ID) (TrackRef, error) {
	t, err := c.raw.GetTrack(ctx, id)
	if err != nil {
		return TrackRef{}, err
	}
	return refFromSimple(t.SimpleTrack), nil
}

// ArtistTop resolves an artist's top tracks for market.
func (c *Client) ArtistTop(ctx context.Context, id spotify.ID, market string, limit int) ([]TrackRef, error) {
	full, err := c.raw.GetArtistsTopTracks(ctx, id, market)
	if err != nil {
		return nil, err
	}
	out := make([]TrackRef, 0, len(full))
	for _, t := range full {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, refFromSimple(t.SimpleTrack))
	}
	return out, nil
}

// Search returns up to limit albums and tracks matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]spotify.SimpleAlbum, []spotify.FullTrack, error) {
	if limit <= 0 {
		limit = 10
	}
	res, err := c.raw.Search(ctx, query, spotify.SearchTypeAlbum|spotify.SearchTypeTrack)
	if err != nil {
		return nil, nil, err
	}
	albums := res.Albums.Albums
	if len(albums) > limit {
		albums = albums[:limit]
	}
	tracks := res.Tracks.Tracks
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return albums, tracks, nil
}
