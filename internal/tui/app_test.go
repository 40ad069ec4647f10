package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

func TestApp_TabSwitchesPages(t *testing.T) {
	t.Parallel()

	journal, _ := newTestPage(t, &fakeDaemon{}, "")
	app := NewApp(journal, NewStatsPage(journal))

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if app.ActivePage() != PageStats {
		t.Fatalf("active page = %q, want stats", app.ActivePage())
	}
	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if app.ActivePage() != PageJournal {
		t.Fatalf("active page = %q, want journal", app.ActivePage())
	}
}

func TestApp_BackgroundMessagesReachHiddenPages(t *testing.T) {
	t.Parallel()

	journal, _ := newTestPage(t, &fakeDaemon{}, "")
	app := NewApp(journal, NewStatsPage(journal))
	app.Update(tea.KeyMsg{Type: tea.KeyTab})

	app.Update(enemiesLoadedMsg{enemies: testEnemies})
	if len(journal.Enemies()) != len(testEnemies) {
		t.Fatal("hidden journal page missed the load result")
	}
}

func TestLocationStats(t *testing.T) {
	t.Parallel()

	enemies := []model.Enemy{
		{Slug: "a", Location: "Moss Grotto"},
		{Slug: "b", Location: "Moss Grotto"},
		{Slug: "c", Location: "The Marrow"},
		{Slug: "d"},
	}
	stats := LocationStats(enemies, []string{"a", "c"})

	if len(stats) != 3 {
		t.Fatalf("len = %d, want 3", len(stats))
	}
	if stats[0].Location != "Moss Grotto" || stats[0].Seen != 1 || stats[0].Total != 2 {
		t.Fatalf("stats[0] = %+v", stats[0])
	}
	if stats[1].Location != "The Marrow" || stats[1].Seen != 1 {
		t.Fatalf("stats[1] = %+v", stats[1])
	}
	if stats[2].Location != model.UnknownLocation {
		t.Fatalf("stats[2] = %+v", stats[2])
	}
}

func TestStatsPage_Renders(t *testing.T) {
	t.Parallel()

	journal, _ := newTestPage(t, nil, "")
	journal.Update(enemiesLoadedMsg{enemies: testEnemies})
	view := NewStatsPage(journal).View(120, 30)
	if view == "" {
		t.Fatal("empty stats view")
	}
}
