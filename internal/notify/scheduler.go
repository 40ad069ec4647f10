package notify

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// FallbackFlag is the persisted marker set while the interval fallback is
// the active trigger path.
const FallbackFlag = "notif_fallback_active"

// FlagStore persists scheduler flags across restarts.
type FlagStore interface {
	Flag(key string) bool
	SetFlag(key string, on bool) error
}

// Config holds scheduler timings.
type Config struct {
	Interval     time.Duration
	WelcomeDelay time.Duration
	Tag          string
	// CycleTimeout bounds one background cycle.
	CycleTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = model.NotificationInterval
	}
	if c.WelcomeDelay <= 0 {
		c.WelcomeDelay = model.WelcomeDelay
	}
	if c.Tag == "" {
		c.Tag = model.PeriodicSyncTag
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = time.Minute
	}
	return c
}

// Trigger labels in the delivery log.
const (
	TriggerManual   = "manual"
	TriggerWelcome  = "welcome"
	TriggerInterval = "interval"
	TriggerPeriodic = "periodic"
)

// Scheduler decides when a random enemy is surfaced. Two trigger paths
// exist: a registered periodic wake, or an in-process interval timer used
// as fallback. At most one is active, and the persisted fallback flag makes
// periodic firings a no-op while the interval timer owns delivery.
type Scheduler struct {
	cfg       Config
	source    model.EnemySource
	deliverer Deliverer
	registrar PeriodicRegistrar
	flags     FlagStore
	log       model.DeliveryLog
	logger    *zap.Logger
	pick      func(n int) int

	mu       sync.Mutex
	mode     model.TriggerMode
	stopLoop chan struct{}
	loopDone chan struct{}
	work     sync.WaitGroup
}

// NewScheduler wires a scheduler. registrar and log may be nil.
func NewScheduler(cfg Config, source model.EnemySource, deliverer Deliverer, registrar PeriodicRegistrar, flags FlagStore, log model.DeliveryLog, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:       cfg.withDefaults(),
		source:    source,
		deliverer: deliverer,
		registrar: registrar,
		flags:     flags,
		log:       log,
		logger:    logger,
		pick:      rand.IntN,
		mode:      model.TriggerNone,
	}
}

// Resume restarts the interval fallback after a daemon restart when the
// persisted flag says it was the active path.
func (s *Scheduler) Resume() bool {
	if s.flags == nil || !s.flags.Flag(FallbackFlag) {
		return false
	}
	return s.Start()
}

// Activate runs once permission is confirmed. With permission granted it
// registers the periodic wake and falls back to the interval timer when
// registration is unsupported or fails.
func (s *Scheduler) Activate(ctx context.Context, permission model.Permission) (model.TriggerMode, error) {
	if permission != model.PermissionGranted {
		s.logger.Debug("notification permission not granted", zap.String("permission", string(permission)))
		return model.TriggerNone, nil
	}

	if s.registrar != nil {
		err := s.registrar.Register(ctx, s.cfg.Tag, s.cfg.Interval)
		if err == nil {
			s.stopFallback()
			s.setFlag(false)
			s.mu.Lock()
			s.mode = model.TriggerPeriodic
			s.mu.Unlock()
			s.logger.Info("periodic notifications registered", zap.String("tag", s.cfg.Tag))
			return model.TriggerPeriodic, nil
		}
		if errors.Is(err, ErrPeriodicUnsupported) {
			s.logger.Info("periodic wake unsupported, using interval fallback")
		} else {
			s.logger.Warn("periodic registration failed, using interval fallback", zap.Error(err))
		}
	}

	s.Start()
	return model.TriggerInterval, nil
}

// Start begins the interval fallback: one cycle every Interval plus a
// single welcome cycle after WelcomeDelay. It returns false when the
// fallback is already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopLoop != nil {
		return false
	}
	s.stopLoop = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.mode = model.TriggerInterval
	s.setFlag(true)

	go s.loop(s.stopLoop, s.loopDone)

	s.logger.Info("interval notifications started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("welcome", s.cfg.WelcomeDelay))
	return true
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	welcome := time.NewTimer(s.cfg.WelcomeDelay)
	defer welcome.Stop()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-welcome.C:
			s.WaitUntil(func(ctx context.Context) { s.sendRandom(ctx, TriggerWelcome) })
		case <-ticker.C:
			s.WaitUntil(func(ctx context.Context) { s.sendRandom(ctx, TriggerInterval) })
		}
	}
}

// stopFallback clears both timers without waiting for in-flight cycles.
func (s *Scheduler) stopFallback() {
	s.mu.Lock()
	stop, done := s.stopLoop, s.loopDone
	s.stopLoop, s.loopDone = nil, nil
	if s.mode == model.TriggerInterval {
		s.mode = model.TriggerNone
	}
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Stop clears both timers and waits for every outstanding cycle. The
// persisted flag is kept so Resume can restore the fallback.
func (s *Scheduler) Stop() {
	s.stopFallback()
	s.work.Wait()
}

// Running reports whether the interval fallback is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLoop != nil
}

// WaitUntil runs fn in the background and holds shutdown until it returns.
func (s *Scheduler) WaitUntil(fn func(ctx context.Context)) {
	s.work.Add(1)
	go func() {
		defer s.work.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CycleTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// HandlePeriodicSync runs a cycle for a periodic wake firing. Unknown tags
// are ignored, as are firings while the interval fallback owns delivery.
func (s *Scheduler) HandlePeriodicSync(ctx context.Context, tag string) bool {
	if tag != s.cfg.Tag {
		s.logger.Debug("ignoring periodic sync", zap.String("tag", tag))
		return false
	}
	if s.flags != nil && s.flags.Flag(FallbackFlag) {
		s.logger.Debug("ignoring periodic sync while interval fallback is active")
		return false
	}
	s.mu.Lock()
	if s.mode == model.TriggerNone {
		s.mode = model.TriggerPeriodic
	}
	s.mu.Unlock()

	_, ok := s.track(ctx, TriggerPeriodic)
	return ok
}

// SendRandom runs one cycle immediately and reports the enemy delivered.
func (s *Scheduler) SendRandom(ctx context.Context) (model.Enemy, bool) {
	return s.track(ctx, TriggerManual)
}

func (s *Scheduler) track(ctx context.Context, trigger string) (model.Enemy, bool) {
	s.work.Add(1)
	defer s.work.Done()
	return s.sendRandom(ctx, trigger)
}

// sendRandom picks uniformly over the whole list. Fetch and delivery
// failures are logged and end the cycle.
func (s *Scheduler) sendRandom(ctx context.Context, trigger string) (model.Enemy, bool) {
	list, err := s.source.ListEnemies(ctx)
	if err != nil {
		s.logger.Warn("notification cycle: fetch enemies", zap.String("trigger", trigger), zap.Error(err))
		return model.Enemy{}, false
	}
	if len(list) == 0 {
		return model.Enemy{}, false
	}

	enemy := list[s.pick(len(list))]
	n := Build(enemy)
	if err := s.deliverer.Deliver(ctx, n); err != nil {
		s.logger.Warn("notification cycle: deliver", zap.String("slug", enemy.Slug), zap.Error(err))
		return model.Enemy{}, false
	}

	s.logger.Info("notification delivered", zap.String("slug", enemy.Slug), zap.String("trigger", trigger))
	if s.log != nil {
		rec := model.DeliveryRecord{Slug: enemy.Slug, Tag: n.Tag, Trigger: trigger, DeliveredAt: time.Now()}
		if err := s.log.RecordDelivery(rec); err != nil {
			s.logger.Warn("record delivery", zap.Error(err))
		}
	}
	return enemy, true
}

// Status summarizes the active trigger path.
func (s *Scheduler) Status() model.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := model.SchedulerStatus{
		Mode:            s.mode,
		FallbackRunning: s.stopLoop != nil,
	}
	if s.flags != nil {
		st.FallbackFlag = s.flags.Flag(FallbackFlag)
	}
	return st
}

func (s *Scheduler) setFlag(on bool) {
	if s.flags == nil {
		return
	}
	if err := s.flags.SetFlag(FallbackFlag, on); err != nil {
		s.logger.Warn("persist fallback flag", zap.Bool("on", on), zap.Error(err))
	}
}
