package navigator

import (
	"context"
	"iter"
	"time"
)

// Standard-mapping D-pad button indices.
const (
	ButtonUp    = 12
	ButtonDown  = 13
	ButtonLeft  = 14
	ButtonRight = 15
	ButtonCount = 16
)

// Snapshot is the state of the first input device at one instant.
type Snapshot struct {
	Connected bool
	LX, LY    float64
	Buttons   [ButtonCount]bool
}

// Pressed reports whether button i is held. Out-of-range indices are false.
func (s Snapshot) Pressed(i int) bool {
	if i < 0 || i >= len(s.Buttons) {
		return false
	}
	return s.Buttons[i]
}

// DeviceInputSource yields the current device state.
type DeviceInputSource interface {
	Poll() Snapshot
	Frames(ctx context.Context, interval time.Duration) iter.Seq[Snapshot]
}

// PollFrames adapts a poll function into the lazy, infinite frame sequence
// used by Mapper.Run. Iteration ends when ctx is done or the consumer stops.
func PollFrames(ctx context.Context, interval time.Duration, poll func() Snapshot) iter.Seq[Snapshot] {
	return func(yield func(Snapshot) bool) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if ctx.Err() != nil {
				return
			}
			if !yield(poll()) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

// SliceSource replays a fixed list of snapshots, then reports disconnected.
type SliceSource struct {
	frames []Snapshot
	pos    int
}

// NewSliceSource returns a source replaying frames in order.
func NewSliceSource(frames ...Snapshot) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Poll() Snapshot {
	if s.pos >= len(s.frames) {
		return Snapshot{}
	}
	snap := s.frames[s.pos]
	s.pos++
	return snap
}

// Frames yields the remaining snapshots once each, without waiting.
func (s *SliceSource) Frames(ctx context.Context, _ time.Duration) iter.Seq[Snapshot] {
	return func(yield func(Snapshot) bool) {
		for s.pos < len(s.frames) {
			if ctx.Err() != nil {
				return
			}
			if !yield(s.Poll()) {
				return
			}
		}
	}
}
