package sponsorblock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Applier adjusts a track's start offset and length around music_offtopic
// segments. Results are memoized per video; repeated gateway timeouts
// disable lookups for a configurable window so a struggling API never
// stalls track resolution.
type Applier struct {
	client *Client

	mu            sync.Mutex
	memo          map[string]memoEntry
	disabledUntil time.Time
	disableFor    time.Duration
}

type memoEntry struct {
	segs []Segment
	exp  time.Time
}

const memoTTL = time.Hour

func NewApplier(timeoutMinutes int) *Applier {
	return &Applier{
		client:     NewClient(),
		memo:       make(map[string]memoEntry),
		disableFor: time.Duration(timeoutMinutes) * time.Minute,
	}
}

// Adjust returns the trimmed length and shifted offset for a video, plus a
// human-readable note when anything changed. Lookup failures leave the
// input untouched.
func (a *Applier) Adjust(ctx context.Context, videoID string, lengthSec, offsetSec int) (newLen, newOff int, note string, changed bool) {
	newLen, newOff = lengthSec, offsetSec
	if videoID == "" || lengthSec <= 0 {
		return
	}

	segs, ok := a.lookup(ctx, videoID)
	if !ok || len(segs) == 0 {
		return
	}
	segs = mergeSegments(segs)

	var parts []string

	// A segment running to (within ~2s of) the end is an outro.
	last := segs[len(segs)-1]
	if last.Segment[1] >= float64(lengthSec-2) {
		if trim := int(last.Segment[1]); trim < lengthSec {
			newLen = trim
			changed = true
			parts = append(parts, "trimmed outro")
		}
	}

	// A segment starting within 2s of zero is an intro.
	first := segs[0]
	if first.Segment[0] <= 2.0 {
		if skip := int(first.Segment[1]); skip > 0 && skip < newLen {
			newOff += skip
			newLen -= skip
			changed = true
			parts = append(parts, "skipped intro")
		}
	}

	if changed {
		note = strings.Join(parts, ", ")
	}
	return
}

func (a *Applier) lookup(ctx context.Context, videoID string) ([]Segment, bool) {
	a.mu.Lock()
	if time.Now().Before(a.disabledUntil) {
		a.mu.Unlock()
		return nil, false
	}
	if ent, ok := a.memo[videoID]; ok && time.Now().Before(ent.exp) {
		a.mu.Unlock()
		return ent.segs, true
	}
	a.mu.Unlock()

	segs, err := a.client.Segments(ctx, videoID, []string{"music_offtopic"})
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		if errors.Is(err, ErrUpstreamTimeout) {
			a.disabledUntil = time.Now().Add(a.disableFor)
		}
		return nil, false
	}
	a.memo[videoID] = memoEntry{segs: segs, exp: time.Now().Add(memoTTL)}
	return segs, true
}
