package spotify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	spotifyapi "github.com/zmb3/spotify/v2"
)

func TestParseID(t *testing.T) {
	cases := []struct {
		in      string
		typ     string
		id      spotifyapi.ID
		wantErr bool
	}{
		{in: "spotify:track:6rqhFgbbKwnb9MLmUQDhG6", typ: "track", id: "6rqhFgbbKwnb9MLmUQDhG6"},
		{in: "https://open.spotify.com/album/2up3OPMp9Tb4dAKM2erWXQ", typ: "album", id: "2up3OPMp9Tb4dAKM2erWXQ"},
		{in: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", typ: "playlist", id: "37i9dQZF1DXcBWIGoYBM5M"},
		{in: "https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF", typ: "artist", id: "0OdUWJ0sBjDrqHygGUXeCF"},
		{in: "spotify:track", wantErr: true},
		{in: "https://example.com/track/abc", wantErr: true},
		{in: "https://open.spotify.com/show/abc", wantErr: true},
		{in: "https://open.spotify.com/", wantErr: true},
	}
	for _, tc := range cases {
		typ, id, err := ParseID(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.typ, typ)
		assert.Equal(t, tc.id, id)
	}
}

func TestTrackRefQuery(t *testing.T) {
	assert.Equal(t, "Boards of Canada - Roygbiv", TrackRef{Name: "Roygbiv", Artist: "Boards of Canada"}.Query())
	assert.Equal(t, "Untitled", TrackRef{Name: "Untitled"}.Query())
}
