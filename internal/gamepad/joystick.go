package gamepad

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/navigator"
)

// Config controls device discovery.
type Config struct {
	// Dir is the directory holding joystick nodes, normally /dev/input.
	Dir string
	// Prefix selects joystick nodes by file name.
	Prefix string
	// PollInterval is the fallback rescan period used when hot-plug events
	// are unavailable or missed.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Dir == "" {
		c.Dir = "/dev/input"
	}
	if c.Prefix == "" {
		c.Prefix = "js"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = model.DevicePollInterval
	}
	return c
}

// Joystick reads the first Linux joystick device and keeps a snapshot of its
// state. It implements navigator.DeviceInputSource.
type Joystick struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	state  navigator.Snapshot
	device *os.File
	path   string

	changes chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// New returns an idle joystick source. Call Start to begin discovery.
func New(cfg Config, logger *zap.Logger) *Joystick {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Joystick{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start opens any device already present and watches for hot-plug. A
// missing device directory is not an error; the fallback poll keeps
// retrying.
func (j *Joystick) Start() {
	j.rescan()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		j.logger.Warn("joystick hot-plug watcher unavailable", zap.Error(err))
		watcher = nil
	} else if err := watcher.Add(j.cfg.Dir); err != nil {
		j.logger.Debug("joystick directory not watchable", zap.String("dir", j.cfg.Dir), zap.Error(err))
		watcher.Close()
		watcher = nil
	}

	j.wg.Add(1)
	go j.loop(watcher)
}

// Stop closes the device and waits for background goroutines.
func (j *Joystick) Stop() {
	j.once.Do(func() {
		j.mu.Lock()
		close(j.done)
		j.mu.Unlock()
		j.closeDevice()
		j.wg.Wait()
	})
}

// Changes signals every connect and disconnect. Signals coalesce.
func (j *Joystick) Changes() <-chan struct{} {
	return j.changes
}

// Present reports whether a device is open.
func (j *Joystick) Present() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.device != nil
}

// Poll returns the latest device state.
func (j *Joystick) Poll() navigator.Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := j.state
	snap.Connected = j.device != nil
	return snap
}

func (j *Joystick) Frames(ctx context.Context, interval time.Duration) iter.Seq[navigator.Snapshot] {
	return navigator.PollFrames(ctx, interval, j.Poll)
}

func (j *Joystick) loop(watcher *fsnotify.Watcher) {
	defer j.wg.Done()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		defer watcher.Close()
		events = watcher.Events
		errs = watcher.Errors
	}

	ticker := time.NewTicker(j.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !j.isDevice(ev.Name) {
				continue
			}
			switch {
			case ev.Op&fsnotify.Create != 0:
				j.rescan()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				j.dropIfCurrent(ev.Name)
				j.rescan()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			j.logger.Debug("joystick watcher error", zap.Error(err))
		case <-ticker.C:
			j.rescan()
		}
	}
}

func (j *Joystick) isDevice(path string) bool {
	return strings.HasPrefix(filepath.Base(path), j.cfg.Prefix)
}

// rescan opens the first device node when none is open.
func (j *Joystick) rescan() {
	if j.Present() {
		return
	}
	select {
	case <-j.done:
		return
	default:
	}

	path, ok := j.firstDevice()
	if !ok {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		j.logger.Debug("open joystick", zap.String("path", path), zap.Error(err))
		return
	}

	j.mu.Lock()
	select {
	case <-j.done:
		j.mu.Unlock()
		f.Close()
		return
	default:
	}
	j.device = f
	j.path = path
	j.state = navigator.Snapshot{}
	j.wg.Add(1)
	j.mu.Unlock()

	j.logger.Info("joystick connected", zap.String("path", path))
	j.signal()
	go j.read(f)
}

func (j *Joystick) firstDevice() (string, bool) {
	entries, err := os.ReadDir(j.cfg.Dir)
	if err != nil {
		return "", false
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), j.cfg.Prefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return filepath.Join(j.cfg.Dir, names[0]), true
}

func (j *Joystick) read(f *os.File) {
	defer j.wg.Done()

	err := readEvents(f, func(ev jsEvent) {
		j.mu.Lock()
		if j.device == f {
			apply(&j.state, ev)
		}
		j.mu.Unlock()
	})
	if err != nil && !errors.Is(err, os.ErrClosed) {
		j.logger.Debug("joystick read ended", zap.Error(err))
	}
	j.release(f)
}

func (j *Joystick) dropIfCurrent(path string) {
	j.mu.Lock()
	f := j.device
	current := j.path == path
	j.mu.Unlock()
	if current && f != nil {
		j.release(f)
	}
}

// release forgets f if it is still the open device.
func (j *Joystick) release(f *os.File) {
	j.mu.Lock()
	if j.device != f {
		j.mu.Unlock()
		return
	}
	j.device = nil
	j.path = ""
	j.state = navigator.Snapshot{}
	j.mu.Unlock()

	f.Close()
	j.logger.Info("joystick disconnected")
	j.signal()
}

func (j *Joystick) closeDevice() {
	j.mu.Lock()
	f := j.device
	j.mu.Unlock()
	if f != nil {
		j.release(f)
	}
}

func (j *Joystick) signal() {
	select {
	case j.changes <- struct{}{}:
	default:
	}
}

// String describes the open device, for status lines.
func (j *Joystick) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.device == nil {
		return "no controller"
	}
	return fmt.Sprintf("controller %s", filepath.Base(j.path))
}
