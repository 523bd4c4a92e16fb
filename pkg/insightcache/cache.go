// Package insightcache caches AI insight responses keyed by model and
// prompt digest. Identical schedule data produces an identical prompt, so a
// cache hit skips the Gemini call entirely. The CLI uses a disk-backed
// cache; the server runs memory-only.
package insightcache

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

const cacheFileName = "insight-cache.gob"

// Entry is one cached response with its expiry.
type Entry struct {
	ExpiresAt time.Time `json:"expires_at"`
	Data      []byte    `json:"data"`
}

// Cache is an otter-backed response cache with optional gob persistence.
type Cache struct {
	cache      otter.Cache[string, Entry]
	logger     *slog.Logger
	saveCancel context.CancelFunc
	dir        string // empty for memory-only
	saveWg     sync.WaitGroup
	ttl        time.Duration
	mu         sync.Mutex
}

// New creates a disk-backed cache under dir, loading any previously saved
// entries and persisting periodically until the context is cancelled.
func New(ctx context.Context, dir string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	c := newCache(dir, ttl, logger)
	if err := c.loadFromDisk(); err != nil {
		logger.Warn("failed to load insight cache from disk", "error", err)
	}
	logger.Info("insight cache initialized", "dir", dir, "entries_loaded", c.cache.EstimatedSize())

	c.startPeriodicSave(ctx)
	return c, nil
}

// NewMemoryOnly creates a cache that never touches disk. Used by the server,
// where uploads are transient and responses only need to survive re-renders.
func NewMemoryOnly(ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	c := newCache("", ttl, logger)
	logger.Info("memory-only insight cache initialized", "ttl", ttl)
	return c, nil
}

func newCache(dir string, ttl time.Duration, logger *slog.Logger) *Cache {
	cache := otter.Must(&otter.Options[string, Entry]{
		MaximumSize:      10_000,
		InitialCapacity:  1_000,
		ExpiryCalculator: otter.ExpiryWriting[string, Entry](ttl),
	})
	return &Cache{
		cache:  *cache,
		dir:    dir,
		ttl:    ttl,
		logger: logger,
	}
}

// key hashes the model name and prompt into the cache key.
func key(model, prompt string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached response for a model+prompt pair, if fresh.
func (c *Cache) Get(model, prompt string) ([]byte, bool) {
	k := key(model, prompt)
	entry, found := c.cache.GetIfPresent(k)
	if !found {
		c.logger.Debug("insight cache miss", "reason", "not_found")
		return nil, false
	}
	// Otter expires on its own; double-check against stale disk loads.
	if time.Now().After(entry.ExpiresAt) {
		c.logger.Debug("insight cache miss", "reason", "expired", "expired_at", entry.ExpiresAt)
		c.cache.Invalidate(k)
		return nil, false
	}
	return entry.Data, true
}

// Set stores a response for a model+prompt pair.
func (c *Cache) Set(model, prompt string, data []byte) {
	entry := Entry{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	}
	c.cache.Set(key(model, prompt), entry)
	c.logger.Debug("insight cache set", "expires_at", entry.ExpiresAt, "size", len(data))
}

// Size returns the estimated entry count.
func (c *Cache) Size() int {
	return int(c.cache.EstimatedSize())
}

func (c *Cache) loadFromDisk() error {
	cachePath := filepath.Join(c.dir, cacheFileName)

	file, err := os.Open(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Info("no existing insight cache file", "path", cachePath)
			return nil
		}
		return fmt.Errorf("opening cache file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			c.logger.Debug("failed to close cache file", "error", closeErr)
		}
	}()

	var entries map[string]Entry
	if err := gob.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("decoding cache file: %w", err)
	}

	now := time.Now()
	valid := 0
	for k, entry := range entries {
		if now.Before(entry.ExpiresAt) {
			c.cache.Set(k, entry)
			valid++
		}
	}
	c.logger.Info("insight cache loaded from disk",
		"path", cachePath,
		"total_entries", len(entries),
		"valid_entries", valid)
	return nil
}

func (c *Cache) saveToDisk() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cachePath := filepath.Join(c.dir, cacheFileName)
	tempPath := cachePath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer func() {
		if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			c.logger.Debug("failed to remove temp cache file", "error", removeErr)
		}
	}()

	entries := make(map[string]Entry)
	now := time.Now()
	c.cache.All()(func(k string, entry Entry) bool {
		if now.Before(entry.ExpiresAt) {
			entries[k] = entry
		}
		return true
	})

	if err := gob.NewEncoder(file).Encode(entries); err != nil {
		return fmt.Errorf("encoding cache to file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing cache file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tempPath, cachePath); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}

	c.logger.Info("insight cache saved to disk", "entries", len(entries), "path", cachePath)
	return nil
}

func (c *Cache) startPeriodicSave(ctx context.Context) {
	saveCtx, cancel := context.WithCancel(ctx)
	c.saveCancel = cancel

	c.saveWg.Add(1)
	go func() {
		defer c.saveWg.Done()

		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-saveCtx.Done():
				return
			case <-ticker.C:
				if err := c.saveToDisk(); err != nil {
					c.logger.Error("periodic insight cache save failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the periodic saver and flushes a final snapshot to disk.
// Memory-only caches just stop.
func (c *Cache) Close() error {
	if c.saveCancel != nil {
		c.saveCancel()
	}
	c.saveWg.Wait()

	if c.dir == "" {
		return nil
	}
	if err := c.saveToDisk(); err != nil {
		c.logger.Error("final insight cache save failed", "error", err)
		return err
	}
	c.logger.Info("insight cache closed and saved to disk")
	return nil
}
