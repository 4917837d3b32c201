// Package autocomplete serves slash-command query suggestions from the
// YouTube suggest endpoint, mixed with Spotify catalog hits when Spotify is
// configured.
package autocomplete

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/halcyonix/chorale/internal/spotify"
)

var httpClient = &http.Client{Timeout: 4 * time.Second}

// YouTubeSuggestions queries the public suggest endpoint for completions.
func YouTubeSuggestions(ctx context.Context, query string) ([]string, error) {
	u, _ := url.Parse("https://suggestqueries.google.com/complete/search")
	q := u.Query()
	q.Set("client", "firefox")
	q.Set("ds", "yt")
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Response shape: [query, [suggestion, ...], ...]
	var parsed []any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed) < 2 {
		return nil, nil
	}
	arr, ok := parsed[1].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// Choices builds up to limit autocomplete choices for a query. Spotify
// albums and tracks are folded in, encoded as spotify: URIs so selecting
// one resolves directly instead of re-searching.
func Choices(ctx context.Context, query string, sp *spotify.Client, limit int) []*discordgo.ApplicationCommandOptionChoice {
	if limit <= 0 {
		limit = 10
	}

	yt, _ := YouTubeSuggestions(ctx, query)
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, limit)
	for _, s := range yt {
		if len(out) == limit {
			break
		}
		out = append(out, &discordgo.ApplicationCommandOptionChoice{
			Name:  "YouTube: " + s,
			Value: s,
		})
	}

	if sp == nil {
		return out
	}

	albums, tracks, err := sp.Search(ctx, query, limit/2)
	if err != nil {
		return out
	}
	// Make room for the Spotify hits at the tail.
	if room := limit - len(albums) - len(tracks); len(out) > room && room >= 0 {
		out = out[:room]
	}
	for _, a := range albums {
		name := fmt.Sprintf("Spotify: 💿 %s", a.Name)
		if len(a.Artists) > 0 {
			name += " - " + a.Artists[0].Name
		}
		out = append(out, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: "spotify:album:" + a.ID.String(),
		})
	}
	for _, tr := range tracks {
		name := fmt.Sprintf("Spotify: 🎵 %s", tr.Name)
		if len(tr.Artists) > 0 {
			name += " - " + tr.Artists[0].Name
		}
		out = append(out, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: "spotify:track:" + tr.ID.String(),
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
