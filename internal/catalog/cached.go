package catalog

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/duckdb"
	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// ResponseStore is the persistent side of the response caches.
type ResponseStore interface {
	GetResponse(cache, url string) (duckdb.Response, bool, error)
	PutResponse(r duckdb.Response) error
}

// ListFetcher loads the list from the network.
type ListFetcher interface {
	URL() string
	ListEnemies(ctx context.Context) ([]model.Enemy, error)
}

// CachedSource serves the enemy list cache-first: a stored response is
// returned as is and the network is consulted only on a miss. Stored
// entries are never revalidated; the retention cleaner expires them.
type CachedSource struct {
	fetcher ListFetcher
	store   ResponseStore
	cache   string
	logger  *zap.Logger

	mu sync.Mutex
}

// NewCachedSource wraps fetcher with the response cache named cache.
func NewCachedSource(fetcher ListFetcher, store ResponseStore, cache string, logger *zap.Logger) *CachedSource {
	if cache == "" {
		cache = model.BlobCacheName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{fetcher: fetcher, store: store, cache: cache, logger: logger}
}

func (c *CachedSource) ListEnemies(ctx context.Context) ([]model.Enemy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	url := c.fetcher.URL()
	resp, ok, err := c.store.GetResponse(c.cache, url)
	if err != nil {
		c.logger.Warn("response cache read failed", zap.String("cache", c.cache), zap.Error(err))
	}
	if ok {
		var list []model.Enemy
		if err := json.Unmarshal(resp.Body, &list); err == nil {
			return list, nil
		}
		c.logger.Warn("discarding undecodable cached response", zap.String("url", url))
	}

	list, err := c.fetcher.ListEnemies(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode list: %w", err)
	}
	err = c.store.PutResponse(duckdb.Response{
		Cache:       c.cache,
		URL:         url,
		Hash:        contentHash(body),
		Body:        body,
		ContentType: "application/json",
		FetchedAt:   time.Now(),
	})
	if err != nil {
		c.logger.Warn("response cache write failed", zap.String("cache", c.cache), zap.Error(err))
	}
	return list, nil
}

func (c *CachedSource) GetEnemy(ctx context.Context, slug string) (model.Enemy, error) {
	list, err := c.ListEnemies(ctx)
	if err != nil {
		return model.Enemy{}, err
	}
	e, ok := model.Find(list, slug)
	if !ok {
		return model.Enemy{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return e, nil
}

func contentHash(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
