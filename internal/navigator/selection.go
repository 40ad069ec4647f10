package navigator

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// SelectionStore persists the active slug and the set of seen slugs.
type SelectionStore interface {
	ActiveSlug() string
	SetActiveSlug(slug string) error
	MarkSeen(slug string) error
	Seen() []string
}

// Cue is the audible feedback played on every committed selection.
type Cue interface {
	Play()
}

// BellCue rings the terminal bell.
type BellCue struct {
	W io.Writer
}

func (c BellCue) Play() {
	if c.W != nil {
		fmt.Fprint(c.W, "\a")
	}
}

// NopCue plays nothing.
type NopCue struct{}

func (NopCue) Play() {}

// Selection is the single commit path shared by mapper moves and direct
// picks.
type Selection struct {
	store  SelectionStore
	cue    Cue
	logger *zap.Logger
}

// NewSelection wires a selection to its store and cue. A nil cue is silent.
func NewSelection(store SelectionStore, cue Cue, logger *zap.Logger) *Selection {
	if cue == nil {
		cue = NopCue{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selection{store: store, cue: cue, logger: logger}
}

// Active returns the currently selected slug.
func (s *Selection) Active() string {
	return s.store.ActiveSlug()
}

// Commit makes slug the active entry, marks it seen and plays the cue.
// Store failures are logged; the in-memory selection still moves.
func (s *Selection) Commit(slug string) {
	if err := s.store.SetActiveSlug(slug); err != nil {
		s.logger.Warn("persist active slug", zap.String("slug", slug), zap.Error(err))
	}
	if err := s.store.MarkSeen(slug); err != nil {
		s.logger.Warn("persist seen slug", zap.String("slug", slug), zap.Error(err))
	}
	s.cue.Play()
}

// MemoryStore is an in-memory SelectionStore.
type MemoryStore struct {
	active string
	seen   []string
}

func (m *MemoryStore) ActiveSlug() string { return m.active }

func (m *MemoryStore) SetActiveSlug(slug string) error {
	m.active = slug
	return nil
}

func (m *MemoryStore) MarkSeen(slug string) error {
	for _, s := range m.seen {
		if s == slug {
			return nil
		}
	}
	m.seen = append(m.seen, slug)
	return nil
}

func (m *MemoryStore) Seen() []string {
	return append([]string(nil), m.seen...)
}
