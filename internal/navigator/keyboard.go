package navigator

import (
	"context"
	"iter"
	"sync"
	"time"
)

// KeyboardSource is a virtual pad driven by key presses. A pressed direction
// is reported as the matching D-pad button for exactly one poll.
type KeyboardSource struct {
	mu      sync.Mutex
	pending []Direction
}

// NewKeyboardSource returns an idle virtual pad.
func NewKeyboardSource() *KeyboardSource {
	return &KeyboardSource{}
}

// Press queues dir for the next poll.
func (k *KeyboardSource) Press(dir Direction) {
	k.mu.Lock()
	k.pending = append(k.pending, dir)
	k.mu.Unlock()
}

// Poll reports the oldest queued direction. The virtual pad is always
// connected and its sticks are always centered.
func (k *KeyboardSource) Poll() Snapshot {
	snap := Snapshot{Connected: true}

	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.pending) == 0 {
		return snap
	}
	dir := k.pending[0]
	k.pending = k.pending[1:]
	snap.Buttons[dpadButton(dir)] = true
	return snap
}

func (k *KeyboardSource) Frames(ctx context.Context, interval time.Duration) iter.Seq[Snapshot] {
	return PollFrames(ctx, interval, k.Poll)
}

func dpadButton(dir Direction) int {
	switch dir {
	case Up:
		return ButtonUp
	case Down:
		return ButtonDown
	case Left:
		return ButtonLeft
	default:
		return ButtonRight
	}
}
