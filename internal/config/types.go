package config

type Config struct {
	DiscordToken        string
	SpotifyClientID     string
	SpotifyClientSecret string

	DataDir         string
	CacheDir        string
	CacheLimitBytes int64

	BotStatus             string // online/dnd/idle
	BotActivity           string
	RegisterCommandsOnBot bool

	YouTubeCookiesPath string
	YouTubePOToken     string

	EnableSponsorBlock     bool
	SponsorBlockTimeoutMin int

	// Player behavior.
	WorkerLanes         int     // max worker-pool lanes, 0 = unlimited
	DefaultVolume       float64 // 1.0 = unity
	SilenceOnPause      bool    // keep the voice stream warm while paused
	DestroyOnDisconnect bool    // end playback when voice drops instead of waiting
}
