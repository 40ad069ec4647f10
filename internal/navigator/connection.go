package navigator

import (
	"time"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// ConnectionEvent is what a tracker observation changed.
type ConnectionEvent int

const (
	NoChange ConnectionEvent = iota
	Connected
	Disconnected
)

// ConnectionTracker folds device presence reports from hot-plug events and
// from the fallback poll into one connection state. It raises a transient
// indicator once per connection session.
type ConnectionTracker struct {
	ttl            time.Duration
	connected      bool
	indicatorUntil time.Time
}

// NewConnectionTracker returns a tracker whose indicator lasts ttl. A
// non-positive ttl uses model.DeviceIndicatorTTL.
func NewConnectionTracker(ttl time.Duration) *ConnectionTracker {
	if ttl <= 0 {
		ttl = model.DeviceIndicatorTTL
	}
	return &ConnectionTracker{ttl: ttl}
}

// Observe records whether a device is present at now. Repeated reports of
// the same state are ignored.
func (t *ConnectionTracker) Observe(now time.Time, present bool) ConnectionEvent {
	switch {
	case present && !t.connected:
		t.connected = true
		t.indicatorUntil = now.Add(t.ttl)
		return Connected
	case !present && t.connected:
		t.connected = false
		t.indicatorUntil = time.Time{}
		return Disconnected
	default:
		return NoChange
	}
}

// Connected reports the folded connection state.
func (t *ConnectionTracker) Connected() bool {
	return t.connected
}

// IndicatorVisible reports whether the "controller connected" notice should
// still be shown at now.
func (t *ConnectionTracker) IndicatorVisible(now time.Time) bool {
	return t.connected && now.Before(t.indicatorUntil)
}
