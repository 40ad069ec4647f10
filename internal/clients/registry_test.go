package clients

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry(cmd ...string) (*Registry, *fakeClock, *[][]string) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var spawned [][]string
	r := NewRegistry(Config{Origin: "unix:///run/journald.sock", OpenCommand: cmd}, zap.NewNop())
	r.now = clock.now
	r.spawn = func(args []string) error {
		spawned = append(spawned, args)
		return nil
	}
	return r, clock, &spawned
}

func TestOpen_ReusesFirstMatchingView(t *testing.T) {
	t.Parallel()
	r, _, spawned := newTestRegistry("journal", "ui", "--link")

	other := r.Attach("unix:///elsewhere.sock")
	first := r.Attach(r.Origin())
	second := r.Attach(r.Origin())

	require.NoError(t, r.Open("/?enemy=lace"))

	cmd, ok := r.Poll(first)
	require.True(t, ok)
	assert.Equal(t, model.ViewCommand{Focus: true, Navigate: "/?enemy=lace"}, cmd)

	cmd, _ = r.Poll(second)
	assert.Equal(t, model.ViewCommand{}, cmd)
	cmd, _ = r.Poll(other)
	assert.Equal(t, model.ViewCommand{}, cmd)

	// The command is delivered once.
	cmd, _ = r.Poll(first)
	assert.Equal(t, model.ViewCommand{}, cmd)
	assert.Empty(t, *spawned)
}

func TestOpen_SpawnsWhenNoView(t *testing.T) {
	t.Parallel()
	r, _, spawned := newTestRegistry("journal", "ui", "--link")

	require.NoError(t, r.Open("/?enemy=lace"))
	assert.Equal(t, [][]string{{"journal", "ui", "--link", "/?enemy=lace"}}, *spawned)
}

func TestOpen_NoCommand(t *testing.T) {
	t.Parallel()
	r, _, _ := newTestRegistry()
	assert.ErrorIs(t, r.Open(""), ErrNoOpenCommand)
}

func TestStaleViewsArePruned(t *testing.T) {
	t.Parallel()
	r, clock, spawned := newTestRegistry("journal")

	id := r.Attach(r.Origin())
	clock.advance(5 * time.Second)
	_, ok := r.Poll(id)
	require.True(t, ok)
	assert.Equal(t, 1, r.Len())

	clock.advance(11 * time.Second)
	require.NoError(t, r.Open("/?enemy=x"))
	assert.Len(t, *spawned, 1)

	_, ok = r.Poll(id)
	assert.False(t, ok, "pruned view must re-attach")
}

func TestDetach(t *testing.T) {
	t.Parallel()
	r, _, _ := newTestRegistry()

	id := r.Attach(r.Origin())
	r.Detach(id)
	r.Detach("unknown")
	assert.Zero(t, r.Len())
}
