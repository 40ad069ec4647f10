package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/duckdb"
	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// ImageCache keeps icons on disk so the desktop notifier can reference them
// by path. Files are named by the blake3 hash of their URL; the response
// table records each fetch so the retention cleaner can expire them.
type ImageCache struct {
	dir     string
	fetcher *Fetcher
	store   ResponseStore
	logger  *zap.Logger
}

func NewImageCache(dir string, fetcher *Fetcher, store ResponseStore, logger *zap.Logger) *ImageCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageCache{dir: dir, fetcher: fetcher, store: store, logger: logger}
}

// Path returns a local file for url, fetching it on first use. Anything
// that is not an http(s) URL is returned unchanged.
func (c *ImageCache) Path(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return url, nil
	}

	name := c.fileName(url)
	if _, ok, err := c.store.GetResponse(model.ImageCacheName, url); err == nil && ok {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	body, contentType, err := c.fetcher.get(ctx, url)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("catalog: ensure image dir: %w", err)
	}
	if err := os.WriteFile(name, body, 0o644); err != nil {
		return "", fmt.Errorf("catalog: write image: %w", err)
	}

	// The body lives on disk; the row only tracks the entry for expiry.
	err = c.store.PutResponse(duckdb.Response{
		Cache:       model.ImageCacheName,
		URL:         url,
		Hash:        urlHash(url),
		Body:        []byte{},
		ContentType: contentType,
		FetchedAt:   time.Now(),
	})
	if err != nil {
		c.logger.Warn("image cache index write failed", zap.String("url", url), zap.Error(err))
	}
	return name, nil
}

// Remove deletes the files for the given URL hashes. It is the retention
// cleaner's expiry hook for the image cache.
func (c *ImageCache) Remove(hashes []string) {
	for _, h := range hashes {
		if err := os.Remove(filepath.Join(c.dir, h)); err != nil && !os.IsNotExist(err) {
			c.logger.Debug("remove cached image", zap.String("hash", h), zap.Error(err))
		}
	}
}

func (c *ImageCache) fileName(url string) string {
	return filepath.Join(c.dir, urlHash(url))
}

func urlHash(url string) string {
	return contentHash([]byte(url))
}
