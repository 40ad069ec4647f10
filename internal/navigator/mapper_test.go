package navigator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

type countingCue struct{ n int }

func (c *countingCue) Play() { c.n++ }

func enemies(n int) []model.Enemy {
	out := make([]model.Enemy, n)
	for i := range out {
		out[i] = model.Enemy{Slug: string(rune('a' + i))}
	}
	return out
}

func newTestMapper(active string) (*Mapper, *MemoryStore, *countingCue) {
	store := &MemoryStore{active: active}
	cue := &countingCue{}
	return NewMapper(NewSelection(store, cue, nil), 200*time.Millisecond), store, cue
}

func stick(lx, ly float64) Snapshot {
	return Snapshot{Connected: true, LX: lx, LY: ly}
}

func dpad(button int) Snapshot {
	s := Snapshot{Connected: true}
	s.Buttons[button] = true
	return s
}

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMapperStep_HoldCommitsOnce(t *testing.T) {
	t.Parallel()

	m, store, cue := newTestMapper("b")
	items := enemies(9)

	move, ok := m.Step(t0, stick(1, 0), items, Wide)
	require.True(t, ok)
	assert.Equal(t, Move{From: 1, To: 2, Slug: "c", Direction: Right, Origin: OriginAxis}, move)

	// Still held well past the cooldown: the latch blocks further moves.
	for i := 1; i <= 10; i++ {
		_, ok := m.Step(t0.Add(time.Duration(i)*time.Second), stick(1, 0), items, Wide)
		assert.False(t, ok)
	}
	assert.Equal(t, "c", store.ActiveSlug())
	assert.Equal(t, 1, cue.n)
}

func TestMapperStep_RightThenDownOnFourItems(t *testing.T) {
	t.Parallel()

	m, store, _ := newTestMapper("a")
	items := enemies(4)

	move, ok := m.Step(t0, stick(1, 0), items, Wide)
	require.True(t, ok)
	assert.Equal(t, "b", move.Slug)
	assert.Equal(t, "b", store.ActiveSlug())

	_, ok = m.Step(t0.Add(100*time.Millisecond), stick(0, 0), items, Wide)
	require.False(t, ok)

	move, ok = m.Step(t0.Add(300*time.Millisecond), stick(0, 1), items, Wide)
	require.True(t, ok)
	assert.Equal(t, Move{From: 1, To: 3, Slug: "d", Direction: Down, Origin: OriginAxis}, move)
	assert.Equal(t, "d", store.ActiveSlug())
	assert.ElementsMatch(t, []string{"b", "d"}, store.Seen())
}

func TestMapperStep_ReleaseThenMoveAfterCooldown(t *testing.T) {
	t.Parallel()

	m, store, _ := newTestMapper("b")
	items := enemies(9)

	_, ok := m.Step(t0, stick(1, 0), items, Wide)
	require.True(t, ok)

	_, ok = m.Step(t0.Add(50*time.Millisecond), stick(0, 0), items, Wide)
	assert.False(t, ok)

	// Released but still inside the cooldown.
	_, ok = m.Step(t0.Add(100*time.Millisecond), stick(1, 0), items, Wide)
	assert.False(t, ok)

	_, ok = m.Step(t0.Add(150*time.Millisecond), stick(0.1, 0.1), items, Wide)
	assert.False(t, ok)

	move, ok := m.Step(t0.Add(250*time.Millisecond), stick(1, 0), items, Wide)
	require.True(t, ok)
	assert.Equal(t, 3, move.To)
	assert.Equal(t, "d", store.ActiveSlug())
	assert.Equal(t, []string{"c", "d"}, store.Seen())
}

func TestMapperStep_PartialDeflectionDoesNotReleaseLatch(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMapper("a")
	items := enemies(9)

	_, ok := m.Step(t0, stick(0, 1), items, Wide)
	require.True(t, ok)

	// Between the release and move thresholds: neither released nor a move.
	_, ok = m.Step(t0.Add(time.Second), stick(0, 0.4), items, Wide)
	assert.False(t, ok)
	_, ok = m.Step(t0.Add(2*time.Second), stick(0, 0.9), items, Wide)
	assert.False(t, ok)
}

func TestMapperStep_AxisPriority(t *testing.T) {
	t.Parallel()

	items := enemies(9)

	wide, _, _ := newTestMapper("e")
	move, ok := wide.Step(t0, stick(1, 1), items, Wide)
	require.True(t, ok)
	assert.Equal(t, Down, move.Direction)

	narrow, _, _ := newTestMapper("e")
	move, ok = narrow.Step(t0, stick(1, 1), items, Narrow)
	require.True(t, ok)
	assert.Equal(t, Right, move.Direction)
}

func TestMapperStep_NoCommitWhenTargetUnchanged(t *testing.T) {
	t.Parallel()

	m, _, cue := newTestMapper("a")
	items := enemies(9)

	_, ok := m.Step(t0, stick(-1, 0), items, Wide)
	assert.False(t, ok)
	assert.Zero(t, cue.n)

	// The stick did not latch, so an immediate move is still allowed.
	_, ok = m.Step(t0.Add(time.Millisecond), stick(1, 0), items, Wide)
	assert.True(t, ok)
}

func TestMapperStep_MissingActiveTreatedAsFirst(t *testing.T) {
	t.Parallel()

	m, store, _ := newTestMapper("gone")
	items := enemies(5)

	// Index 0 resolves to itself, but the active slug differs, so it commits.
	move, ok := m.Step(t0, stick(-1, 0), items, Wide)
	require.True(t, ok)
	assert.Equal(t, 0, move.To)
	assert.Equal(t, "a", store.ActiveSlug())
}

func TestMapperStep_DPadFallback(t *testing.T) {
	t.Parallel()

	m, store, _ := newTestMapper("a")
	items := enemies(9)

	move, ok := m.Step(t0, dpad(ButtonDown), items, Wide)
	require.True(t, ok)
	assert.Equal(t, Move{From: 0, To: 3, Slug: "d", Direction: Down, Origin: OriginDPad}, move)

	// Cooldown gates the D-pad too.
	_, ok = m.Step(t0.Add(100*time.Millisecond), dpad(ButtonRight), items, Wide)
	assert.False(t, ok)

	_, ok = m.Step(t0.Add(300*time.Millisecond), dpad(ButtonRight), items, Wide)
	assert.True(t, ok)
	assert.Equal(t, "e", store.ActiveSlug())
}

func TestMapperStep_DPadOrderAndSingleCommit(t *testing.T) {
	t.Parallel()

	m, _, cue := newTestMapper("e")
	items := enemies(9)

	snap := stick(1, 0)
	snap.Buttons[ButtonUp] = true
	snap.Buttons[ButtonLeft] = true

	move, ok := m.Step(t0, snap, items, Wide)
	require.True(t, ok)
	assert.Equal(t, OriginAxis, move.Origin)
	assert.Equal(t, 1, cue.n)

	m2, _, _ := newTestMapper("e")
	move, ok = m2.Step(t0, dpad(ButtonUp), items, Wide)
	require.True(t, ok)
	assert.Equal(t, Up, move.Direction)

	both := dpad(ButtonLeft)
	both.Buttons[ButtonDown] = true
	m3, _, _ := newTestMapper("e")
	move, ok = m3.Step(t0, both, items, Wide)
	require.True(t, ok)
	assert.Equal(t, Down, move.Direction)
}

func TestMapperStep_DisconnectedOrEmpty(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMapper("a")
	_, ok := m.Step(t0, Snapshot{LX: 1}, enemies(3), Wide)
	assert.False(t, ok)
	_, ok = m.Step(t0, stick(1, 0), nil, Wide)
	assert.False(t, ok)
}

func TestMapperRun(t *testing.T) {
	t.Parallel()

	m, store, _ := newTestMapper("a")
	items := enemies(6)
	src := NewSliceSource(stick(1, 0), stick(1, 0), stick(0, 0))

	var moves []Move
	m.Run(context.Background(), src.Frames(context.Background(), 0),
		func() []model.Enemy { return items },
		func() Layout { return Narrow },
		func(mv Move) { moves = append(moves, mv) })

	require.Len(t, moves, 1)
	assert.Equal(t, "b", store.ActiveSlug())
	assert.Equal(t, Snapshot{}, src.Poll())
}

func TestMapperRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, _, _ := newTestMapper("a")
	src := NewSliceSource(stick(1, 0))
	m.Run(ctx, src.Frames(context.Background(), 0),
		func() []model.Enemy { return enemies(3) },
		func() Layout { return Wide },
		func(Move) { t.Fatal("unexpected move after cancel") })
}
