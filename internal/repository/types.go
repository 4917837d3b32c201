package repository

import "database/sql"

type Repo struct {
	db *sql.DB
}

// Settings is the per-guild playback configuration.
type Settings struct {
	GuildID              string
	PlaylistLimit        int
	DefaultVolume        int // percent, 100 = unity
	QueuePageSize        int
	SilenceOnPause       bool
	AutoAnnounceNext     bool
	LeaveWhenIdleSeconds int
}

// Favorite is a saved query, playable by name.
type Favorite struct {
	ID      int64
	GuildID string
	Author  string
	Name    string
	Query   string
}
