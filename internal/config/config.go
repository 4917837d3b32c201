package config

import (
	"os"
	"path/filepath"
	"strconv"
)

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val == "true" || val == "1"
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getenvInt64(key string, def int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func getenvFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func LoadConfig() (*Config, error) {
	dataDir := getenv("DATA_DIR", "./data")

	cfg := &Config{
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		DataDir:             dataDir,
		CacheDir:            filepath.Join(dataDir, "cache"),
		CacheLimitBytes:     getenvInt64("CACHE_LIMIT", 2<<30),

		BotStatus:             getenv("BOT_STATUS", "online"),
		BotActivity:           getenv("BOT_ACTIVITY", "music"),
		RegisterCommandsOnBot: getenvBool("REGISTER_COMMANDS_ON_BOT", false),

		YouTubeCookiesPath: os.Getenv("YOUTUBE_COOKIES_PATH"),
		YouTubePOToken:     os.Getenv("YOUTUBE_PO_TOKEN"),

		EnableSponsorBlock:     getenvBool("ENABLE_SPONSORBLOCK", false),
		SponsorBlockTimeoutMin: getenvInt("SPONSORBLOCK_TIMEOUT", 5),

		WorkerLanes:         getenvInt("WORKER_LANES", 0),
		DefaultVolume:       getenvFloat("DEFAULT_VOLUME", 1.0),
		SilenceOnPause:      getenvBool("SILENCE_ON_PAUSE", true),
		DestroyOnDisconnect: getenvBool("DESTROY_ON_DISCONNECT", false),
	}

	if cfg.DiscordToken == "" {
		return nil, ErrConfig("DISCORD_TOKEN required")
	}
	_ = os.MkdirAll(cfg.DataDir, 0o755)
	_ = os.MkdirAll(cfg.CacheDir, 0o755)
	_ = os.MkdirAll(filepath.Join(cfg.CacheDir, "tmp"), 0o755)
	return cfg, nil
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
