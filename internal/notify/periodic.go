package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrPeriodicUnsupported reports that no periodic-wake facility exists on
// this host.
var ErrPeriodicUnsupported = errors.New("notify: periodic wake unsupported")

// PeriodicRegistrar registers a recurring wake-up that delivers a periodic
// sync with tag.
type PeriodicRegistrar interface {
	Register(ctx context.Context, tag string, minInterval time.Duration) error
	Unregister(ctx context.Context, tag string) error
}

// SystemdConfig describes the user timer created for periodic wake-ups.
type SystemdConfig struct {
	// Executable is the journal binary the timer runs. Defaults to the
	// running executable.
	Executable string
	// Args are appended after the executable. Defaults to
	// ["notify", "--periodic", "--tag", <tag>].
	Args []string
}

// SystemdRegistrar registers a transient systemd user timer.
type SystemdRegistrar struct {
	cfg      SystemdConfig
	run      CommandRunner
	lookPath func(string) (string, error)
}

func NewSystemdRegistrar(cfg SystemdConfig) *SystemdRegistrar {
	return &SystemdRegistrar{cfg: cfg, run: execRunner, lookPath: exec.LookPath}
}

// Register creates the timer unless one with the same tag is already
// active, which makes repeated registration idempotent.
func (r *SystemdRegistrar) Register(ctx context.Context, tag string, minInterval time.Duration) error {
	if _, err := r.lookPath("systemd-run"); err != nil {
		return ErrPeriodicUnsupported
	}
	if r.active(ctx, tag) {
		return nil
	}

	exe := r.cfg.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("notify: resolve executable: %w", err)
		}
		exe = self
	}
	cmdArgs := r.cfg.Args
	if len(cmdArgs) == 0 {
		cmdArgs = []string{"notify", "--periodic", "--tag", tag}
	}

	interval := systemdSpan(minInterval)
	args := []string{
		"--user",
		"--unit=" + tag,
		"--on-active=" + interval,
		"--on-unit-active=" + interval,
		"--timer-property=AccuracySec=1min",
		"--collect",
		exe,
	}
	args = append(args, cmdArgs...)

	if _, err := r.run(ctx, "systemd-run", args...); err != nil {
		return fmt.Errorf("notify: register periodic wake: %w", err)
	}
	return nil
}

func (r *SystemdRegistrar) Unregister(ctx context.Context, tag string) error {
	if _, err := r.lookPath("systemctl"); err != nil {
		return ErrPeriodicUnsupported
	}
	if !r.active(ctx, tag) {
		return nil
	}
	if _, err := r.run(ctx, "systemctl", "--user", "stop", tag+".timer"); err != nil {
		return fmt.Errorf("notify: unregister periodic wake: %w", err)
	}
	return nil
}

func (r *SystemdRegistrar) active(ctx context.Context, tag string) bool {
	out, err := r.run(ctx, "systemctl", "--user", "is-active", tag+".timer")
	return err == nil && strings.TrimSpace(string(out)) == "active"
}

// systemdSpan formats d as whole seconds, which systemd accepts in any
// time-span field.
func systemdSpan(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%ds", secs)
}
