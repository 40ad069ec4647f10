package kv

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStore_GetSetDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, ok := s.Get("missing")
	assert.False(t, ok)

	require.NoError(t, s.Set("k", "v"))
	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Delete("k"))
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestStore_Flags(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	assert.False(t, s.Flag(KeyNotifFallbackActive))
	require.NoError(t, s.SetFlag(KeyNotifFallbackActive, true))
	assert.True(t, s.Flag(KeyNotifFallbackActive))
	require.NoError(t, s.SetFlag(KeyNotifFallbackActive, false))
	assert.False(t, s.Flag(KeyNotifFallbackActive))
}

func TestStore_SelectionAndSeen(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	assert.Empty(t, s.ActiveSlug())
	require.NoError(t, s.SetActiveSlug("lace"))
	assert.Equal(t, "lace", s.ActiveSlug())

	require.NoError(t, s.MarkSeen("lace"))
	require.NoError(t, s.MarkSeen("moss-mother"))
	require.NoError(t, s.MarkSeen("lace"))
	assert.Equal(t, []string{"lace", "moss-mother"}, s.Seen())
}

func TestStore_SharedDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	a, err := Open(dir)
	require.NoError(t, err)
	b, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, a.SetActiveSlug("first"))
	require.NoError(t, a.SetActiveSlug("second"))
	assert.Equal(t, "second", b.ActiveSlug())
}

func TestStore_Enemies(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, _, ok := s.Enemies()
	assert.False(t, ok)

	list := []model.Enemy{{Slug: "a", Name: "A", Location: "Far Fields"}}
	at := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, s.SetEnemies(list, at))

	got, gotAt, ok := s.Enemies()
	require.True(t, ok)
	if diff := cmp.Diff(list, got); diff != "" {
		t.Fatalf("enemies mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, at.Equal(gotAt))
}

func TestStore_Permission(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	assert.Equal(t, model.PermissionDefault, s.Permission())
	require.NoError(t, s.SetPermission(model.PermissionDenied))
	assert.Equal(t, model.PermissionDenied, s.Permission())
}
