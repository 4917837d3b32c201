// Package resolver turns user queries into playlist tracks: catalog URLs,
// single videos, raw stream URLs and free-text searches all funnel into the
// same incremental result stream.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/halcyonix/chorale/internal/cache"
	"github.com/halcyonix/chorale/internal/config"
	"github.com/halcyonix/chorale/internal/playlist"
	"github.com/halcyonix/chorale/internal/sponsorblock"
	"github.com/halcyonix/chorale/internal/spotify"
	"github.com/halcyonix/chorale/internal/stream"
	"github.com/halcyonix/chorale/internal/utils"
	spotifyapi "github.com/zmb3/spotify/v2"
)

// Result is one incremental resolution outcome. Exactly one of Track, Note
// or Err is meaningful per message.
type Result struct {
	Track *playlist.Track
	Note  string
	Err   error
}

// Options tune one resolution run.
type Options struct {
	// Limit caps how many tracks a collection may contribute; a larger
	// collection is randomly sampled down. Zero means no cap.
	Limit int
	// SplitChapters breaks a chaptered video into one track per chapter.
	SplitChapters bool
	// RequestedBy is stamped onto every produced track.
	RequestedBy string
}

// mediaCatalog is the yt-dlp surface the resolver consumes.
type mediaCatalog interface {
	Resolve(ctx context.Context, url string) (*stream.MediaInfo, error)
	ResolvePlaylist(ctx context.Context, url string) ([]*stream.MediaInfo, error)
	Search(ctx context.Context, query string, limit int) ([]*stream.MediaInfo, error)
}

// trackCatalog is the Spotify surface the resolver consumes.
type trackCatalog interface {
	Album(ctx context.Context, id spotifyapi.ID, limit int) ([]spotify.TrackRef, spotify.CollectionMeta, error)
	Playlist(ctx context.Context, id spotifyapi.ID, limit int) ([]spotify.TrackRef, spotify.CollectionMeta, error)
	Track(ctx context.Context, id spotifyapi.ID) (spotify.TrackRef, error)
	ArtistTop(ctx context.Context, id spotifyapi.ID, market string, limit int) ([]spotify.TrackRef, error)
}

// Resolver resolves queries against yt-dlp and, when configured, Spotify,
// applying SponsorBlock trims and warming the file cache along the way.
type Resolver struct {
	media mediaCatalog
	sp    trackCatalog
	sb    *sponsorblock.Applier
	cache *cache.FileCache

	// maxCacheSeconds bounds which tracks are worth prefetching to disk.
	maxCacheSeconds float64
}

func New(cfg *config.Config, fc *cache.FileCache) *Resolver {
	r := &Resolver{
		media: &stream.Resolver{
			CookiesPath: cfg.YouTubeCookiesPath,
			POToken:     cfg.YouTubePOToken,
		},
		cache:           fc,
		maxCacheSeconds: 30 * 60,
	}
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		r.sp = spotify.NewClientCredentials(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	}
	if cfg.EnableSponsorBlock {
		r.sb = sponsorblock.NewApplier(cfg.SponsorBlockTimeoutMin)
	}
	return r
}

// ResolveStream resolves a query incrementally. Tracks, notes and per-item
// errors arrive on the returned channel, which closes when resolution is
// done or ctx is cancelled.
func (r *Resolver) ResolveStream(ctx context.Context, query string, opts Options) <-chan Result {
	ch := make(chan Result, 8)
	go func() {
		defer close(ch)
		r.resolve(ctx, strings.TrimSpace(query), opts, ch)
	}()
	return ch
}

func (r *Resolver) resolve(ctx context.Context, q string, opts Options, ch chan<- Result) {
	switch {
	case q == "":
		send(ctx, ch, Result{Err: fmt.Errorf("resolver: empty query")})

	case isSpotifyQuery(q):
		r.resolveSpotify(ctx, q, opts, ch)

	case isURL(q) && isYouTube(q):
		if strings.Contains(q, "list=") {
			r.resolveYouTubePlaylist(ctx, q, opts, ch)
			return
		}
		r.resolveSingle(ctx, q, opts, ch)

	case isURL(q):
		// Anything else with a scheme is treated as a direct stream: HLS
		// radio, a shoutcast endpoint, a bare media file.
		send(ctx, ch, Result{Track: r.directStreamTrack(q, opts)})

	default:
		infos, err := r.media.Search(ctx, q, 1)
		if err != nil || len(infos) == 0 {
			send(ctx, ch, Result{Err: fmt.Errorf("resolver: nothing found for %q", q)})
			return
		}
		r.emitMedia(ctx, infos[0], "", opts, ch)
	}
}

func (r *Resolver) resolveSpotify(ctx context.Context, q string, opts Options, ch chan<- Result) {
	if r.sp == nil {
		send(ctx, ch, Result{Err: fmt.Errorf("resolver: spotify support is not configured")})
		return
	}
	typ, id, err := spotify.ParseID(q)
	if err != nil {
		send(ctx, ch, Result{Err: fmt.Errorf("resolver: invalid spotify identifier: %w", err)})
		return
	}

	var (
		refs       []spotify.TrackRef
		collection string
	)
	switch typ {
	case "album":
		var meta spotify.CollectionMeta
		refs, meta, err = r.sp.Album(ctx, id, opts.Limit)
		collection = meta.Title
	case "playlist":
		var meta spotify.CollectionMeta
		refs, meta, err = r.sp.Playlist(ctx, id, opts.Limit)
		collection = meta.Title
	case "track":
		var ref spotify.TrackRef
		ref, err = r.sp.Track(ctx, id)
		refs = []spotify.TrackRef{ref}
	case "artist":
		refs, err = r.sp.ArtistTop(ctx, id, "US", opts.Limit)
	default:
		err = fmt.Errorf("resolver: unsupported spotify type %q", typ)
	}
	if err != nil {
		send(ctx, ch, Result{Err: err})
		return
	}

	refs = sampleDown(ctx, refs, opts.Limit, ch)

	missed := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			return
		}
		infos, err := r.media.Search(ctx, ref.Query(), 1)
		if err != nil || len(infos) == 0 {
			missed++
			continue
		}
		r.emitMedia(ctx, infos[0], collection, opts, ch)
	}
	if missed == 1 {
		send(ctx, ch, Result{Note: "1 song was not found"})
	} else if missed > 1 {
		send(ctx, ch, Result{Note: fmt.Sprintf("%d songs were not found", missed)})
	}
}

func (r *Resolver) resolveYouTubePlaylist(ctx context.Context, q string, opts Options, ch chan<- Result) {
	entries, err := r.media.ResolvePlaylist(ctx, q)
	if err != nil || len(entries) == 0 {
		send(ctx, ch, Result{Err: fmt.Errorf("resolver: playlist not found")})
		return
	}
	entries = sampleDown(ctx, entries, opts.Limit, ch)

	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		// Flat playlist entries carry no stream URL or description yet.
		info, err := r.media.Resolve(ctx, e.WebpageURL)
		if err != nil || info == nil {
			send(ctx, ch, Result{Err: fmt.Errorf("resolver: failed to resolve %q", e.Title)})
			continue
		}
		r.emitMedia(ctx, info, "", opts, ch)
	}
}

func (r *Resolver) resolveSingle(ctx context.Context, q string, opts Options, ch chan<- Result) {
	info, err := r.media.Resolve(ctx, q)
	if err != nil {
		send(ctx, ch, Result{Err: err})
		return
	}
	r.emitMedia(ctx, info, "", opts, ch)
}

// emitMedia turns one resolved media item into one or more tracks,
// splitting chapters and applying SponsorBlock trims where they apply.
func (r *Resolver) emitMedia(ctx context.Context, m *stream.MediaInfo, collection string, opts Options, ch chan<- Result) {
	length := int(m.Duration)

	if opts.SplitChapters && !m.IsLive && length > 0 {
		if chapters := parseChapters(m.Description, length); len(chapters) > 0 {
			for _, c := range chapters {
				title := fmt.Sprintf("%s (%s)", c.Label, m.Title)
				send(ctx, ch, Result{Track: r.buildTrack(ctx, m, collection, opts, title, c.Start, c.Length)})
			}
			return
		}
	}

	start := 0
	if r.sb != nil && !m.IsLive && m.ID != "" {
		newLen, newOff, note, changed := r.sb.Adjust(ctx, m.ID, length, 0)
		if changed {
			length, start = newLen, newOff
			slog.Debug("sponsorblock trim", "video", m.ID, "note", note)
		}
	}
	send(ctx, ch, Result{Track: r.buildTrack(ctx, m, collection, opts, m.Title, start, length)})
}

func (r *Resolver) buildTrack(ctx context.Context, m *stream.MediaInfo, collection string, opts Options, title string, start, length int) *playlist.Track {
	input := m.StreamURL
	remote := strings.HasPrefix(input, "http")

	if r.cache != nil && m.ID != "" {
		if path, ok := r.cache.Get(ctx, r.cache.HashKey(m.ID)); ok {
			input, remote = path, false
		} else if remote && !m.IsLive && m.Duration > 0 && m.Duration <= r.maxCacheSeconds {
			r.cache.PrefetchURL(m.ID, m.StreamURL)
		}
	}

	src := stream.NewFFmpegSourceAt(input, float64(start))
	if remote {
		src.SetHeaders(utils.FFmpegHeaders(nil))
	}
	return &playlist.Track{
		Source:      src,
		Name:        title,
		Artist:      m.Uploader,
		URL:         m.WebpageURL,
		StreamURL:   m.StreamURL,
		Thumbnail:   m.Thumbnail,
		Length:      length,
		Start:       start,
		IsLive:      m.IsLive,
		Collection:  collection,
		RequestedBy: opts.RequestedBy,
	}
}

// directStreamTrack wraps a raw URL the user pasted; ffmpeg probes it at
// play time, so it is queued as a live stream of unknown length.
func (r *Resolver) directStreamTrack(q string, opts Options) *playlist.Track {
	return &playlist.Track{
		Source:      stream.NewFFmpegSource(q),
		Name:        q,
		Artist:      q,
		URL:         q,
		StreamURL:   q,
		IsLive:      true,
		RequestedBy: opts.RequestedBy,
	}
}

// sampleDown trims a slice to limit entries, shuffling first so the sample
// is random, and tells the user when it happened.
func sampleDown[T any](ctx context.Context, items []T, limit int, ch chan<- Result) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	utils.Shuffle(items)
	send(ctx, ch, Result{Note: fmt.Sprintf("a random sample of %d songs was taken", limit)})
	return items[:limit]
}

func send(ctx context.Context, ch chan<- Result, res Result) {
	select {
	case ch <- res:
	case <-ctx.Done():
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isYouTube(s string) bool {
	return strings.Contains(s, "youtube.com") || strings.Contains(s, "youtu.be") ||
		strings.Contains(s, "music.youtube.")
}

func isSpotifyQuery(s string) bool {
	return strings.HasPrefix(s, "spotify:") || strings.Contains(s, "open.spotify.com")
}
