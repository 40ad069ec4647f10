package navigator

import (
	"context"
	"iter"
	"math"
	"time"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

const (
	releaseThreshold = 0.3
	moveThreshold    = 0.5
)

// Origin tells whether a move came from the stick or the D-pad.
type Origin string

const (
	OriginAxis Origin = "axis"
	OriginDPad Origin = "dpad"
)

// Move is one committed selection change.
type Move struct {
	From      int
	To        int
	Slug      string
	Direction Direction
	Origin    Origin
}

type axisState struct {
	x, y int
}

func (a axisState) neutral() bool { return a.x == 0 && a.y == 0 }

// Mapper turns device snapshots into discrete selection moves. The stick
// latches after a commit and must return to center before the next move;
// every move is additionally rate limited by a cooldown.
type Mapper struct {
	selection *Selection
	cooldown  time.Duration

	axis     axisState
	lastMove time.Time
}

// NewMapper returns a mapper committing through selection. A non-positive
// cooldown uses model.MoveCooldown.
func NewMapper(selection *Selection, cooldown time.Duration) *Mapper {
	if cooldown <= 0 {
		cooldown = model.MoveCooldown
	}
	return &Mapper{selection: selection, cooldown: cooldown}
}

// Reset clears the latch and the cooldown.
func (m *Mapper) Reset() {
	m.axis = axisState{}
	m.lastMove = time.Time{}
}

// Step processes one poll. It commits at most one move.
func (m *Mapper) Step(now time.Time, snap Snapshot, items []model.Enemy, layout Layout) (Move, bool) {
	if !snap.Connected || len(items) == 0 {
		return Move{}, false
	}

	if math.Abs(snap.LX) < releaseThreshold && math.Abs(snap.LY) < releaseThreshold {
		m.axis = axisState{}
	}

	if !m.eligible(now) {
		return Move{}, false
	}

	current := model.IndexOf(items, m.selection.Active())
	if current < 0 {
		current = 0
	}

	if dir, ok := axisDirection(snap, layout); ok {
		if move, ok := m.commit(now, items, layout, current, dir, OriginAxis); ok {
			return move, true
		}
	}

	for _, b := range []struct {
		button int
		dir    Direction
	}{
		{ButtonUp, Up},
		{ButtonDown, Down},
		{ButtonLeft, Left},
		{ButtonRight, Right},
	} {
		if snap.Pressed(b.button) {
			return m.commit(now, items, layout, current, b.dir, OriginDPad)
		}
	}
	return Move{}, false
}

func (m *Mapper) eligible(now time.Time) bool {
	return now.Sub(m.lastMove) >= m.cooldown && m.axis.neutral()
}

func (m *Mapper) commit(now time.Time, items []model.Enemy, layout Layout, current int, dir Direction, origin Origin) (Move, bool) {
	next := Resolve(layout, current, len(items), dir)
	slug := items[next].Slug
	if slug == m.selection.Active() {
		return Move{}, false
	}

	m.lastMove = now
	switch dir {
	case Left:
		m.axis = axisState{x: -1}
	case Right:
		m.axis = axisState{x: 1}
	case Up:
		m.axis = axisState{y: -1}
	case Down:
		m.axis = axisState{y: 1}
	}
	m.selection.Commit(slug)

	return Move{From: current, To: next, Slug: slug, Direction: dir, Origin: origin}, true
}

// axisDirection applies the layout's axis priority: the narrow strip scrolls
// horizontally so it checks the horizontal axis first, the wide grid checks
// the vertical axis first.
func axisDirection(snap Snapshot, layout Layout) (Direction, bool) {
	horizontal := func() (Direction, bool) {
		switch {
		case snap.LX < -moveThreshold:
			return Left, true
		case snap.LX > moveThreshold:
			return Right, true
		}
		return 0, false
	}
	vertical := func() (Direction, bool) {
		switch {
		case snap.LY < -moveThreshold:
			return Up, true
		case snap.LY > moveThreshold:
			return Down, true
		}
		return 0, false
	}

	first, second := vertical, horizontal
	if layout == Narrow {
		first, second = horizontal, vertical
	}
	if dir, ok := first(); ok {
		return dir, true
	}
	return second()
}

// Run feeds frames into Step until ctx is done or frames ends. items and
// layout are read on every frame so they always reflect the current view.
func (m *Mapper) Run(ctx context.Context, frames iter.Seq[Snapshot], items func() []model.Enemy, layout func() Layout, onMove func(Move)) {
	for snap := range frames {
		if ctx.Err() != nil {
			return
		}
		if move, ok := m.Step(time.Now(), snap, items(), layout()); ok && onMove != nil {
			onMove(move)
		}
	}
}
