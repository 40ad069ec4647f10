package clients

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// ErrNoOpenCommand is returned by Open when no view is attached and no
// command is configured to start one.
var ErrNoOpenCommand = errors.New("clients: no view attached and no open-command configured")

// Config controls click routing.
type Config struct {
	// Origin identifies this daemon; only views attached with the same
	// origin are reused.
	Origin string
	// OpenCommand starts a new view. The deep link is appended as the last
	// argument.
	OpenCommand []string
	// StaleAfter drops views that stopped polling.
	StaleAfter time.Duration
}

type view struct {
	id       string
	origin   string
	lastSeen time.Time
	pending  *model.ViewCommand
}

// Registry tracks attached views and routes notification clicks to them.
// Views poll for commands; the first matching view in attach order is
// focused and navigated, otherwise a new view is started.
type Registry struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
	spawn  func(args []string) error

	mu    sync.Mutex
	views []*view
}

func NewRegistry(cfg Config, logger *zap.Logger) *Registry {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{cfg: cfg, logger: logger, now: time.Now, spawn: startDetached}
}

// Origin returns the origin views should attach with.
func (r *Registry) Origin() string {
	return r.cfg.Origin
}

// Attach registers a view and returns its id.
func (r *Registry) Attach(origin string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := &view{id: uuid.NewString(), origin: origin, lastSeen: r.now()}
	r.views = append(r.views, v)
	r.logger.Debug("view attached", zap.String("id", v.id), zap.String("origin", origin))
	return v.id
}

// Poll marks the view alive and hands over its pending command. It reports
// false for unknown ids so the view can re-attach.
func (r *Registry) Poll(id string) (model.ViewCommand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.views {
		if v.id != id {
			continue
		}
		v.lastSeen = r.now()
		if v.pending == nil {
			return model.ViewCommand{}, true
		}
		cmd := *v.pending
		v.pending = nil
		return cmd, true
	}
	return model.ViewCommand{}, false
}

func (r *Registry) Detach(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, v := range r.views {
		if v.id == id {
			r.views = append(r.views[:i], r.views[i+1:]...)
			r.logger.Debug("view detached", zap.String("id", id))
			return
		}
	}
}

// Len returns the number of live views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	return len(r.views)
}

// Open focuses and navigates exactly one existing view, or starts a new one.
func (r *Registry) Open(url string) error {
	if url == "" {
		url = "/"
	}

	r.mu.Lock()
	r.pruneLocked()
	for _, v := range r.views {
		if v.origin != r.cfg.Origin {
			continue
		}
		v.pending = &model.ViewCommand{Focus: true, Navigate: url}
		r.mu.Unlock()
		r.logger.Info("routing deep link to attached view", zap.String("id", v.id), zap.String("url", url))
		return nil
	}
	r.mu.Unlock()

	if len(r.cfg.OpenCommand) == 0 {
		return ErrNoOpenCommand
	}
	args := append(append([]string(nil), r.cfg.OpenCommand...), url)
	if err := r.spawn(args); err != nil {
		return fmt.Errorf("clients: open view: %w", err)
	}
	r.logger.Info("opened new view", zap.String("url", url))
	return nil
}

func (r *Registry) pruneLocked() {
	cutoff := r.now().Add(-r.cfg.StaleAfter)
	live := r.views[:0]
	for _, v := range r.views {
		if v.lastSeen.After(cutoff) {
			live = append(live, v)
		}
	}
	clear(r.views[len(live):])
	r.views = live
}

func startDetached(args []string) error {
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
