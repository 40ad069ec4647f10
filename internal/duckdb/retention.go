package duckdb

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CachePolicy bounds one named response cache by age and entry count.
type CachePolicy struct {
	Cache      string
	MaxAge     time.Duration
	MaxEntries int
}

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	// NotificationDays bounds the delivery log. Zero keeps it forever.
	NotificationDays int
	Policies         []CachePolicy
	// Interval between sweeps. Defaults to one hour.
	Interval time.Duration
	// OnExpire is called with the content hashes removed from a cache.
	OnExpire func(cache string, hashes []string)
}

// RetentionCleaner periodically expires cached responses and old delivery
// log rows.
type RetentionCleaner struct {
	store    *Store
	conf     RetentionConfig
	logger   *zap.Logger
	now      func() time.Time
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRetentionCleaner starts a cleaner. It returns nil when there is nothing
// to enforce.
func NewRetentionCleaner(store *Store, logger *zap.Logger, conf RetentionConfig) *RetentionCleaner {
	if conf.NotificationDays <= 0 && len(conf.Policies) == 0 {
		return nil
	}
	if conf.Interval <= 0 {
		conf.Interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := &RetentionCleaner{
		store:  store,
		conf:   conf,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}

	// Startup cleanup to catch up after downtime.
	rc.cleanup()

	rc.wg.Add(1)
	go rc.tickLoop()

	return rc
}

func (rc *RetentionCleaner) tickLoop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.conf.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) cleanup() {
	now := rc.now()

	for _, p := range rc.conf.Policies {
		cutoff := time.Time{}
		if p.MaxAge > 0 {
			cutoff = now.Add(-p.MaxAge)
		}
		hashes, err := rc.store.ExpireResponses(p.Cache, cutoff, p.MaxEntries)
		if err != nil {
			rc.logger.Warn("retention: expire cache", zap.String("cache", p.Cache), zap.Error(err))
			continue
		}
		if len(hashes) == 0 {
			continue
		}
		rc.logger.Info("retention: expired cached responses", zap.String("cache", p.Cache), zap.Int("count", len(hashes)))
		if rc.conf.OnExpire != nil {
			rc.conf.OnExpire(p.Cache, hashes)
		}
	}

	if rc.conf.NotificationDays > 0 {
		cutoff := now.Add(-time.Duration(rc.conf.NotificationDays) * 24 * time.Hour)
		rows, err := rc.store.DeleteDeliveriesBefore(cutoff)
		if err != nil {
			rc.logger.Warn("retention: prune delivery log", zap.Error(err))
			return
		}
		if rows > 0 {
			rc.logger.Info("retention: pruned delivery log", zap.Int64("rows", rows), zap.Int("days", rc.conf.NotificationDays))
		}
	}
}

// Stop signals the cleaner to stop and waits for it to finish.
func (rc *RetentionCleaner) Stop() {
	if rc == nil {
		return
	}
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
