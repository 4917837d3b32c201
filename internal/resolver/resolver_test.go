package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonix/chorale/internal/spotify"
	"github.com/halcyonix/chorale/internal/stream"
	spotifyapi "github.com/zmb3/spotify/v2"
)

type fakeMedia struct {
	resolve         func(url string) (*stream.MediaInfo, error)
	resolvePlaylist func(url string) ([]*stream.MediaInfo, error)
	search          func(query string, limit int) ([]*stream.MediaInfo, error)
}

func (f *fakeMedia) Resolve(_ context.Context, url string) (*stream.MediaInfo, error) {
	return f.resolve(url)
}

func (f *fakeMedia) ResolvePlaylist(_ context.Context, url string) ([]*stream.MediaInfo, error) {
	return f.resolvePlaylist(url)
}

func (f *fakeMedia) Search(_ context.Context, query string, limit int) ([]*stream.MediaInfo, error) {
	return f.search(query, limit)
}

type fakeCatalog struct {
	album    func(id spotifyapi.ID, limit int) ([]spotify.TrackRef, spotify.CollectionMeta, error)
	track    func(id spotifyapi.ID) (spotify.TrackRef, error)
	playlist func(id spotifyapi.ID, limit int) ([]spotify.TrackRef, spotify.CollectionMeta, error)
	artist   func(id spotifyapi.ID, market string, limit int) ([]spotify.TrackRef, error)
}

func (f *fakeCatalog) Album(_ context.Context, id spotifyapi.ID, limit int) ([]spotify.TrackRef, spotify.CollectionMeta, error) {
	return f.album(id, limit)
}

func (f *fakeCatalog) Playlist(_ context.Context, id spotifyapi.ID, limit int) ([]spotify.TrackRef, spotify.CollectionMeta, error) {
	return f.playlist(id, limit)
}

func (f *fakeCatalog) Track(_ context.Context, id spotifyapi.ID) (spotify.TrackRef, error) {
	return f.track(id)
}

func (f *fakeCatalog) ArtistTop(_ context.Context, id spotifyapi.ID, market string, limit int) ([]spotify.TrackRef, error) {
	return f.artist(id, market, limit)
}

func collect(t *testing.T, ch <-chan Result) []Result {
	t.Helper()
	var out []Result
	for res := range ch {
		out = append(out, res)
	}
	return out
}

func mediaInfo(id, title string, dur float64) *stream.MediaInfo {
	return &stream.MediaInfo{
		ID:         id,
		Title:      title,
		Uploader:   "Uploader",
		Duration:   dur,
		WebpageURL: "https://www.youtube.com/watch?v=" + id,
		StreamURL:  "https://cdn.example.com/" + id,
		Thumbnail:  "https://img.example.com/" + id,
	}
}

func TestFreeTextSearch(t *testing.T) {
	r := &Resolver{media: &fakeMedia{
		search: func(query string, limit int) ([]*stream.MediaInfo, error) {
			assert.Equal(t, "never gonna give you up", query)
			assert.Equal(t, 1, limit)
			return []*stream.MediaInfo{mediaInfo("dQw4", "A Song", 212)}, nil
		},
	}}

	out := collect(t, r.ResolveStream(context.Background(), "never gonna give you up", Options{RequestedBy: "user1"}))
	require.Len(t, out, 1)
	tr := out[0].Track
	require.NotNil(t, tr)
	assert.Equal(t, "A Song", tr.Name)
	assert.Equal(t, "Uploader", tr.Artist)
	assert.Equal(t, 212, tr.Length)
	assert.Equal(t, "user1", tr.RequestedBy)
	assert.False(t, tr.IsLive)
	require.NotNil(t, tr.Source)
}

func TestEmptyQuery(t *testing.T) {
	r := &Resolver{media: &fakeMedia{}}
	out := collect(t, r.ResolveStream(context.Background(), "   ", Options{}))
	require.Len(t, out, 1)
	assert.Error(t, out[0].Err)
}

func TestDirectStreamURL(t *testing.T) {
	r := &Resolver{media: &fakeMedia{}}
	out := collect(t, r.ResolveStream(context.Background(), "https://radio.example.com/live.m3u8", Options{}))
	require.Len(t, out, 1)
	tr := out[0].Track
	require.NotNil(t, tr)
	assert.True(t, tr.IsLive)
	assert.Equal(t, 0, tr.Length)
	assert.Equal(t, "https://radio.example.com/live.m3u8", tr.StreamURL)
}

func TestSpotifyNotConfigured(t *testing.T) {
	r := &Resolver{media: &fakeMedia{}}
	out := collect(t, r.ResolveStream(context.Background(), "spotify:track:abc123xyz", Options{}))
	require.Len(t, out, 1)
	assert.ErrorContains(t, out[0].Err, "not configured")
}

func TestSpotifyTrackSearchedOnYouTube(t *testing.T) {
	var searched string
	r := &Resolver{
		media: &fakeMedia{
			search: func(query string, limit int) ([]*stream.MediaInfo, error) {
				searched = query
				return []*stream.MediaInfo{mediaInfo("vid1", "Found", 180)}, nil
			},
		},
		sp: &fakeCatalog{
			track: func(id spotifyapi.ID) (spotify.TrackRef, error) {
				assert.Equal(t, spotifyapi.ID("abc123xyz"), id)
				return spotify.TrackRef{Name: "Song", Artist: "Artist"}, nil
			},
		},
	}

	out := collect(t, r.ResolveStream(context.Background(), "spotify:track:abc123xyz", Options{}))
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Track)
	assert.Equal(t, "Artist - Song", searched)
}

func TestSpotifyAlbumReportsMisses(t *testing.T) {
	r := &Resolver{
		media: &fakeMedia{
			search: func(query string, limit int) ([]*stream.MediaInfo, error) {
				if query == "A - miss" {
					return nil, fmt.Errorf("nothing")
				}
				return []*stream.MediaInfo{mediaInfo("v", query, 60)}, nil
			},
		},
		sp: &fakeCatalog{
			album: func(id spotifyapi.ID, limit int) ([]spotify.TrackRef, spotify.CollectionMeta, error) {
				refs := []spotify.TrackRef{
					{Name: "one", Artist: "A"},
					{Name: "miss", Artist: "A"},
					{Name: "two", Artist: "A"},
				}
				return refs, spotify.CollectionMeta{Title: "The Album"}, nil
			},
		},
	}

	out := collect(t, r.ResolveStream(context.Background(), "https://open.spotify.com/album/abc123", Options{}))
	var tracks, notes int
	for _, res := range out {
		switch {
		case res.Track != nil:
			tracks++
			assert.Equal(t, "The Album", res.Track.Collection)
		case res.Note != "":
			notes++
			assert.Equal(t, "1 song was not found", res.Note)
		}
	}
	assert.Equal(t, 2, tracks)
	assert.Equal(t, 1, notes)
}

func TestYouTubePlaylistResolvedEntryByEntry(t *testing.T) {
	entries := []*stream.MediaInfo{
		{ID: "a", Title: "First", WebpageURL: "https://www.youtube.com/watch?v=a"},
		{ID: "b", Title: "Second", WebpageURL: "https://www.youtube.com/watch?v=b"},
	}
	r := &Resolver{media: &fakeMedia{
		resolvePlaylist: func(url string) ([]*stream.MediaInfo, error) {
			return entries, nil
		},
		resolve: func(url string) (*stream.MediaInfo, error) {
			switch url {
			case "https://www.youtube.com/watch?v=a":
				return mediaInfo("a", "First Full", 100), nil
			case "https://www.youtube.com/watch?v=b":
				return nil, fmt.Errorf("gone")
			}
			t.Errorf("unexpected resolve %q", url)
			return nil, fmt.Errorf("unexpected url")
		},
	}}

	out := collect(t, r.ResolveStream(context.Background(), "https://www.youtube.com/playlist?list=PL1", Options{}))
	require.Len(t, out, 2)
	assert.Equal(t, "First Full", out[0].Track.Name)
	assert.Error(t, out[1].Err)
}

func TestPlaylistSampling(t *testing.T) {
	var entries []*stream.MediaInfo
	for i := 0; i < 10; i++ {
		entries = append(entries, mediaInfo(fmt.Sprint(i), fmt.Sprintf("Track %d", i), 60))
	}
	r := &Resolver{media: &fakeMedia{
		resolvePlaylist: func(url string) ([]*stream.MediaInfo, error) { return entries, nil },
		resolve: func(url string) (*stream.MediaInfo, error) {
			return mediaInfo("x", "Resolved", 60), nil
		},
	}}

	out := collect(t, r.ResolveStream(context.Background(), "https://www.youtube.com/playlist?list=PL2", Options{Limit: 3}))
	var tracks int
	sampled := false
	for _, res := range out {
		if res.Track != nil {
			tracks++
		}
		if res.Note != "" {
			sampled = true
		}
	}
	assert.Equal(t, 3, tracks)
	assert.True(t, sampled)
}

func TestChapterSplit(t *testing.T) {
	desc := "tracklist:\n0:00 Intro\n1:00 - Main Theme\n3:20 Outro\n"
	info := mediaInfo("vid", "Full Mix", 300)
	info.Description = desc

	r := &Resolver{media: &fakeMedia{
		resolve: func(url string) (*stream.MediaInfo, error) { return info, nil },
	}}

	out := collect(t, r.ResolveStream(context.Background(), "https://www.youtube.com/watch?v=vid", Options{SplitChapters: true}))
	require.Len(t, out, 3)

	first := out[0].Track
	require.NotNil(t, first)
	assert.Equal(t, "Intro (Full Mix)", first.Name)
	assert.Equal(t, 0, first.Start)
	assert.Equal(t, 60, first.Length)

	second := out[1].Track
	assert.Equal(t, "Main Theme (Full Mix)", second.Name)
	assert.Equal(t, 60, second.Start)
	assert.Equal(t, 140, second.Length)

	third := out[2].Track
	assert.Equal(t, "Outro (Full Mix)", third.Name)
	assert.Equal(t, 200, third.Start)
	assert.Equal(t, 100, third.Length)
}

func TestParseChapters(t *testing.T) {
	t.Run("requires zero start", func(t *testing.T) {
		assert.Nil(t, parseChapters("1:00 Not a chapter\n2:00 Another", 300))
	})

	t.Run("skips lines with multiple stamps", func(t *testing.T) {
		desc := "0:00 Intro\n1:00 to 2:00 is my favorite part\n2:30 Outro"
		chs := parseChapters(desc, 300)
		require.Len(t, chs, 2)
		assert.Equal(t, "Intro", chs[0].Label)
		assert.Equal(t, "Outro", chs[1].Label)
	})

	t.Run("label before stamp", func(t *testing.T) {
		chs := parseChapters("Intro 0:00\nVerse 1:30", 200)
		require.Len(t, chs, 2)
		assert.Equal(t, "Intro", chs[0].Label)
		assert.Equal(t, "Verse", chs[1].Label)
		assert.Equal(t, 90, chs[0].Length)
		assert.Equal(t, 110, chs[1].Length)
	})

	t.Run("hour timestamps", func(t *testing.T) {
		chs := parseChapters("0:00 Start\n1:02:03 Late", 7200)
		require.Len(t, chs, 2)
		assert.Equal(t, 3723, chs[1].Start)
	})

	t.Run("empty description", func(t *testing.T) {
		assert.Nil(t, parseChapters("", 100))
	})
}
