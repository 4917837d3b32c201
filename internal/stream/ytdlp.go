package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ytdlp "github.com/lrstanley/go-ytdlp"

	"github.com/halcyonix/chorale/internal/playlist"
)

// audioFormatChain prefers opus (no transcode needed at the container
// level), then m4a, then whatever yt-dlp calls best audio.
const audioFormatChain = "ba[acodec^=opus]/ba[ext=m4a]/bestaudio/best"

var installOnce sync.Once

// MediaInfo is the resolved metadata of one playable item.
type MediaInfo struct {
	ID          string
	Title       string
	Uploader    string
	Duration    float64 // seconds, 0 for live streams
	IsLive      bool
	WebpageURL  string
	StreamURL   string
	Thumbnail   string
	Description string
}

// Track wraps the media in a playlist track backed by an ffmpeg decode of
// its stream URL.
func (m *MediaInfo) Track() *playlist.Track {
	return &playlist.Track{
		Source:    NewFFmpegSource(m.StreamURL),
		Name:      m.Title,
		Artist:    m.Uploader,
		URL:       m.WebpageURL,
		StreamURL: m.StreamURL,
		Thumbnail: m.Thumbnail,
		Length:    int(m.Duration),
		IsLive:    m.IsLive,
	}
}

// Resolver turns URLs and search queries into playable media via yt-dlp.
// The zero value works; cookies and a PO token help with YouTube rate
// limiting and age gates.
type Resolver struct {
	CookiesPath string
	POToken     string
}

func (r *Resolver) command(ctx context.Context) *ytdlp.Command {
	installOnce.Do(func() {
		ytdlp.MustInstall(ctx, nil)
	})
	cmd := ytdlp.New().
		Format(audioFormatChain).
		NoCheckCertificates().
		DumpJSON()
	if r.CookiesPath != "" {
		cmd = cmd.Cookies(r.CookiesPath)
	}
	return cmd
}

func (r *Resolver) applyExtractorArgs(cmd *ytdlp.Command, url string) *ytdlp.Command {
	if !strings.Contains(url, "youtube.com") && !strings.Contains(url, "youtu.be") {
		return cmd
	}
	args := "youtube:player-client=default,mweb"
	if r.POToken != "" {
		args += ";po_token=" + r.POToken
	}
	return cmd.ExtractorArgs(args)
}

// Resolve fetches full metadata for one URL. A playlist URL resolves to its
// first entry; use ResolvePlaylist for the whole list.
func (r *Resolver) Resolve(ctx context.Context, url string) (*MediaInfo, error) {
	cmd := r.applyExtractorArgs(r.command(ctx), url)
	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("stream: yt-dlp: %w", err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("stream: parse yt-dlp json: %w", err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, fmt.Errorf("stream: no media found for %s", url)
	}
	ext := infos[0]
	if len(ext.Entries) > 0 {
		for _, e := range ext.Entries {
			if e != nil {
				ext = e
				break
			}
		}
	}
	return mediaFromExtracted(ext), nil
}

// ResolvePlaylist fetches flat metadata for every entry of a playlist URL.
// Entries carry no stream URL; resolve each one before playback.
func (r *Resolver) ResolvePlaylist(ctx context.Context, url string) ([]*MediaInfo, error) {
	cmd := r.applyExtractorArgs(r.command(ctx).FlatPlaylist(), url)
	res, err := cmd.Run(ctx, url)
	if err != nil {
		if strings.Contains(err.Error(), "Sign in to confirm") {
			return nil, fmt.Errorf("stream: yt-dlp playlist (PO token may be required): %w", err)
		}
		return nil, fmt.Errorf("stream: yt-dlp playlist: %w", err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("stream: parse yt-dlp playlist json: %w", err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, fmt.Errorf("stream: empty playlist at %s", url)
	}

	entries := infos[0].Entries
	out := make([]*MediaInfo, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		out = append(out, mediaFromExtracted(e))
	}
	return out, nil
}

// Search resolves the first limit matches of a free-text query.
func (r *Resolver) Search(ctx context.Context, query string, limit int) ([]*MediaInfo, error) {
	if limit <= 0 {
		limit = 1
	}
	url := fmt.Sprintf("ytsearch%d:%s", limit, query)
	res, err := r.command(ctx).Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("stream: yt-dlp search: %w", err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("stream: parse yt-dlp json: %w", err)
	}

	var out []*MediaInfo
	for _, info := range infos {
		if info == nil {
			continue
		}
		if len(info.Entries) > 0 {
			for _, e := range info.Entries {
				if e != nil {
					out = append(out, mediaFromExtracted(e))
				}
			}
			continue
		}
		out = append(out, mediaFromExtracted(info))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("stream: no results for %q", query)
	}
	return out, nil
}

func mediaFromExtracted(ext *ytdlp.ExtractedInfo) *MediaInfo {
	m := &MediaInfo{
		ID:          ext.ID,
		Title:       strDefault(ext.Title),
		Uploader:    strDefault(ext.Uploader),
		Duration:    floatDefault(ext.Duration),
		IsLive:      boolDefault(ext.IsLive),
		WebpageURL:  strDefault(ext.WebpageURL),
		Description: strDefault(ext.Description),
	}
	for _, t := range ext.Thumbnails {
		if t != nil && t.URL != "" {
			m.Thumbnail = t.URL
			break
		}
	}
	m.StreamURL = pickStreamURL(ext)
	return m
}

// pickStreamURL prefers requested formats, then the top-level url, then the
// format list, falling back to the page URL for ffmpeg to sort out.
func pickStreamURL(ext *ytdlp.ExtractedInfo) string {
	for _, f := range ext.RequestedFormats {
		if f != nil && strings.HasPrefix(f.URL, "http") {
			return f.URL
		}
	}
	if u := strDefault(ext.URL); strings.HasPrefix(u, "http") {
		return u
	}
	for _, f := range ext.Formats {
		if f != nil && strings.HasPrefix(f.URL, "http") {
			return f.URL
		}
	}
	return strDefault(ext.WebpageURL)
}

func strDefault(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func floatDefault(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func boolDefault(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}
