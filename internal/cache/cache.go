// Package cache stores downloaded audio on disk, keyed by content hash,
// with LRU eviction accounted through the database so totals survive
// restarts.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/halcyonix/chorale/internal/config"
	"github.com/halcyonix/chorale/internal/repository"
	"github.com/halcyonix/chorale/internal/utils"
)

type FileCache struct {
	cfg  *config.Config
	repo *repository.Repo

	evictMu  sync.Mutex
	fetchMu  sync.Mutex
	fetching map[string]bool
}

func NewFileCache(cfg *config.Config, repo *repository.Repo) *FileCache {
	return &FileCache{cfg: cfg, repo: repo, fetching: make(map[string]bool)}
}

// HashKey maps an arbitrary cache key (typically a video id or URL) to the
// on-disk name.
func (c *FileCache) HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) PathFor(hash string) string {
	return filepath.Join(c.cfg.CacheDir, hash)
}

// Get returns the cached file path when present, bumping its access time.
// A stale accounting row for a missing file is dropped.
func (c *FileCache) Get(ctx context.Context, hash string) (string, bool) {
	p := c.PathFor(hash)
	if _, err := os.Stat(p); err == nil {
		_ = c.repo.CacheTouch(ctx, hash, 0, false)
		return p, true
	}
	_ = c.repo.CacheRemove(ctx, hash)
	return "", false
}

// WriteStream copies src into the cache under key and returns the final
// path. Writes go through a temp file so a torn download never surfaces as
// a cache hit.
func (c *FileCache) WriteStream(ctx context.Context, key string, src io.Reader) (string, error) {
	hash := c.HashKey(key)
	final := c.PathFor(hash)
	if _, ok := c.Get(ctx, hash); ok {
		return final, nil
	}

	tmp := filepath.Join(c.cfg.CacheDir, "tmp", hash)
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := c.commit(ctx, tmp, final, hash); err != nil {
		return "", err
	}
	return final, nil
}

func (c *FileCache) commit(ctx context.Context, tmp, final, hash string) error {
	info, err := os.Stat(tmp)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return os.Remove(tmp)
	}
	if err := os.Rename(tmp, final); err != nil {
		return err
	}
	_ = c.repo.CacheTouch(ctx, hash, info.Size(), true)
	return c.evictIfNeeded(ctx)
}

func (c *FileCache) evictIfNeeded(ctx context.Context) error {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()
	total, err := c.repo.CacheTotalBytes(ctx)
	if err != nil {
		return err
	}
	for total > c.cfg.CacheLimitBytes {
		oldest, err := c.repo.CacheOldest(ctx)
		if err != nil {
			return err
		}
		if oldest == "" {
			return nil
		}
		_ = os.Remove(c.PathFor(oldest))
		_ = c.repo.CacheRemove(ctx, oldest)
		total, err = c.repo.CacheTotalBytes(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// PrefetchURL downloads url into the cache under key in the background.
// Concurrent prefetches of the same key coalesce into one download.
func (c *FileCache) PrefetchURL(key, url string) {
	hash := c.HashKey(key)

	c.fetchMu.Lock()
	if c.fetching[hash] {
		c.fetchMu.Unlock()
		return
	}
	c.fetching[hash] = true
	c.fetchMu.Unlock()

	go func() {
		defer func() {
			c.fetchMu.Lock()
			delete(c.fetching, hash)
			c.fetchMu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return
		}
		req.Header.Set("User-Agent", utils.RandomUserAgent())
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			slog.Debug("cache prefetch failed", "key", key, "err", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			slog.Debug("cache prefetch rejected", "key", key, "status", resp.StatusCode)
			return
		}
		if _, err := c.WriteStream(ctx, key, resp.Body); err != nil {
			slog.Debug("cache prefetch write failed", "key", key, "err", err)
		}
	}()
}
