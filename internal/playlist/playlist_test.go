package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracks(names ...string) []*Track {
	out := make([]*Track, len(names))
	for i, n := range names {
		out[i] = &Track{Name: n}
	}
	return out
}

func fill(p *Playlist, ts []*Track) {
	for _, t := range ts {
		p.Add(t)
	}
}

func TestEmptyPlaylist(t *testing.T) {
	p := New()
	assert.Nil(t, p.Current())
	assert.Zero(t, p.Len())

	_, err := p.Next()
	assert.ErrorIs(t, err, ErrNoMoreTracks)
	_, err = p.Previous()
	assert.ErrorIs(t, err, ErrNoMoreTracks)
	_, err = p.JumpTo(0)
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestCursorMovement(t *testing.T) {
	p := New()
	ts := tracks("a", "b", "c")
	fill(p, ts)

	assert.Same(t, ts[0], p.Current())

	got, err := p.Next()
	require.NoError(t, err)
	assert.Same(t, ts[1], got)

	got, err = p.Next()
	require.NoError(t, err)
	assert.Same(t, ts[2], got)

	// Past the end: error, cursor stays.
	_, err = p.Next()
	assert.ErrorIs(t, err, ErrNoMoreTracks)
	assert.Same(t, ts[2], p.Current())

	got, err = p.Previous()
	require.NoError(t, err)
	assert.Same(t, ts[1], got)

	got, err = p.Previous()
	require.NoError(t, err)
	assert.Same(t, ts[0], got)

	// Before the start: error, cursor stays.
	_, err = p.Previous()
	assert.ErrorIs(t, err, ErrNoMoreTracks)
	assert.Same(t, ts[0], p.Current())
}

func TestJumpThenPrevious(t *testing.T) {
	p := New()
	ts := tracks("a", "b", "c", "d")
	fill(p, ts)

	got, err := p.JumpTo(2)
	require.NoError(t, err)
	assert.Same(t, ts[2], got)

	got, err = p.Previous()
	require.NoError(t, err)
	assert.Same(t, ts[1], got)

	_, err = p.JumpTo(4)
	assert.ErrorIs(t, err, ErrTrackNotFound)
	_, err = p.JumpTo(-1)
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestRemoveAdjustsCursor(t *testing.T) {
	p := New()
	ts := tracks("a", "b", "c")
	fill(p, ts)
	_, err := p.JumpTo(2)
	require.NoError(t, err)

	// Removing before the cursor keeps it on the same track.
	require.NoError(t, p.Remove(ts[0]))
	assert.Same(t, ts[2], p.Current())
	assert.Equal(t, 1, p.Pos())

	// Removing the cursor's track at the tail clamps it backwards.
	require.NoError(t, p.RemoveAt(1))
	assert.Same(t, ts[1], p.Current())
	assert.Equal(t, 0, p.Pos())

	assert.ErrorIs(t, p.Remove(ts[0]), ErrTrackNotFound)
	assert.ErrorIs(t, p.RemoveAt(5), ErrTrackNotFound)
}

func TestRemoveLastTrack(t *testing.T) {
	p := New()
	ts := tracks("a")
	fill(p, ts)
	require.NoError(t, p.RemoveAt(0))
	assert.Nil(t, p.Current())
	assert.Zero(t, p.Len())
	assert.Zero(t, p.Pos())
}

func TestIdentityNotEquality(t *testing.T) {
	p := New()
	a1 := &Track{Name: "same"}
	a2 := &Track{Name: "same"}
	p.Add(a1)

	assert.ErrorIs(t, p.Remove(a2), ErrTrackNotFound)
	require.NoError(t, p.Remove(a1))
}

func TestClearAndSnapshot(t *testing.T) {
	p := New()
	ts := tracks("a", "b")
	fill(p, ts)
	_, err := p.Next()
	require.NoError(t, err)

	snap := p.Tracks()
	require.Len(t, snap, 2)
	// Snapshot is a copy; mutating it leaves the playlist intact.
	snap[0] = nil
	assert.Same(t, ts[0], p.Tracks()[0])

	p.Clear()
	assert.Zero(t, p.Len())
	assert.Zero(t, p.Pos())
	assert.Nil(t, p.Current())
}
