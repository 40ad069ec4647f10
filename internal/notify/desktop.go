package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// Deliverer displays a notification.
type Deliverer interface {
	Deliver(ctx context.Context, n model.Notification) error
}

// IconResolver maps an icon URL to a local path.
type IconResolver interface {
	Path(ctx context.Context, url string) (string, error)
}

// ClickFunc receives the deep link of a clicked notification.
type ClickFunc func(url string)

// DesktopConfig configures notify-send delivery.
type DesktopConfig struct {
	Command     string
	AppName     string
	DefaultIcon string
}

// DesktopDeliverer shows notifications through notify-send and reports
// clicks. Each shown notification keeps a waiter goroutine until it is
// clicked, dismissed or the deliverer is closed.
type DesktopDeliverer struct {
	cfg     DesktopConfig
	icons   IconResolver
	onClick ClickFunc
	logger  *zap.Logger
	start   CommandStarter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDesktopDeliverer(cfg DesktopConfig, icons IconResolver, onClick ClickFunc, logger *zap.Logger) *DesktopDeliverer {
	if cfg.Command == "" {
		cfg.Command = "notify-send"
	}
	if cfg.AppName == "" {
		cfg.AppName = "Hunter's Journal"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DesktopDeliverer{
		cfg:     cfg,
		icons:   icons,
		onClick: onClick,
		logger:  logger,
		start:   execStarter,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Available reports whether the notify command can be found.
func (d *DesktopDeliverer) Available() bool {
	_, err := exec.LookPath(d.cfg.Command)
	return err == nil
}

func (d *DesktopDeliverer) Deliver(ctx context.Context, n model.Notification) error {
	if err := d.ctx.Err(); err != nil {
		return fmt.Errorf("notify: deliverer closed: %w", err)
	}

	args := []string{
		"--app-name=" + d.cfg.AppName,
		"--icon=" + d.icon(ctx, n.Icon),
		"--hint=string:x-canonical-private-synchronous:" + n.Tag,
		"--hint=string:x-dunst-stack-tag:" + n.Tag,
		"--action=default=" + model.NotificationOpenTitle,
	}
	for _, a := range n.Actions {
		args = append(args, "--action="+a.Action+"="+a.Title)
	}
	args = append(args, "--wait", n.Title, n.Body)

	url := n.Data.URL
	if url == "" {
		url = "/"
	}

	wait, err := d.start(d.ctx, d.cfg.Command, args...)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		out, err := wait()
		if err != nil {
			if !errors.Is(d.ctx.Err(), context.Canceled) {
				d.logger.Warn("desktop notification failed", zap.Error(err))
			}
			return
		}
		action := strings.TrimSpace(string(out))
		if !isAction(n, action) || d.onClick == nil {
			return
		}
		d.logger.Debug("notification clicked", zap.String("action", action), zap.String("url", url))
		d.onClick(url)
	}()
	return nil
}

// isAction reports whether notify-send printed one of the actions offered
// for n. A plain dismissal prints nothing.
func isAction(n model.Notification, out string) bool {
	if out == "default" {
		return true
	}
	for _, a := range n.Actions {
		if out == a.Action {
			return true
		}
	}
	return false
}

func (d *DesktopDeliverer) icon(ctx context.Context, icon string) string {
	if icon == "" || icon == model.DefaultIcon {
		return d.cfg.DefaultIcon
	}
	if d.icons == nil {
		return icon
	}
	path, err := d.icons.Path(ctx, icon)
	if err != nil {
		d.logger.Debug("icon fetch failed, using default", zap.String("icon", icon), zap.Error(err))
		return d.cfg.DefaultIcon
	}
	return path
}

// Close dismisses pending waiters and waits for them to exit.
func (d *DesktopDeliverer) Close() {
	d.cancel()
	d.wg.Wait()
}
