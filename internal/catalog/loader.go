package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// LocalCache is the view's persisted copy of the list.
type LocalCache interface {
	Enemies() ([]model.Enemy, time.Time, bool)
	SetEnemies(list []model.Enemy, at time.Time) error
}

// Loader resolves the list for the view: a fresh local copy first, then each
// source in order. Sources are typically the daemon and a direct fetch.
type Loader struct {
	local   LocalCache
	sources []model.EnemySource
	maxAge  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewLoader returns a loader. A non-positive maxAge uses
// model.LocalCacheExpiration.
func NewLoader(local LocalCache, maxAge time.Duration, logger *zap.Logger, sources ...model.EnemySource) *Loader {
	if maxAge <= 0 {
		maxAge = model.LocalCacheExpiration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{local: local, sources: sources, maxAge: maxAge, now: time.Now, logger: logger}
}

// Load never fails: when every path fails the list is empty.
func (l *Loader) Load(ctx context.Context) []model.Enemy {
	if list, at, ok := l.local.Enemies(); ok && l.now().Sub(at) < l.maxAge {
		return list
	}

	for _, src := range l.sources {
		if src == nil {
			continue
		}
		list, err := src.ListEnemies(ctx)
		if err != nil {
			l.logger.Warn("load enemies", zap.Error(err))
			continue
		}
		if err := l.local.SetEnemies(list, l.now()); err != nil {
			l.logger.Warn("persist enemies", zap.Error(err))
		}
		return list
	}
	return nil
}
