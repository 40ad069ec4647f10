package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/hunters-journal/internal/kv"
	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/navigator"
	"github.com/tinytelemetry/hunters-journal/internal/socketrpc"
)

type fakePrefs struct {
	navigator.MemoryStore
	flags      map[string]bool
	permission model.Permission
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{flags: map[string]bool{}, permission: model.PermissionDefault}
}

func (f *fakePrefs) Flag(key string) bool { return f.flags[key] }

func (f *fakePrefs) SetFlag(key string, on bool) error {
	f.flags[key] = on
	return nil
}

func (f *fakePrefs) Permission() model.Permission { return f.permission }

func (f *fakePrefs) SetPermission(p model.Permission) error {
	f.permission = p
	return nil
}

type fakeDaemon struct {
	activated []model.Permission
	poll      socketrpc.PollResult
}

func (d *fakeDaemon) SendNotification(context.Context) (socketrpc.SendResult, error) {
	return socketrpc.SendResult{Delivered: true, Slug: "moss-mother"}, nil
}

func (d *fakeDaemon) Activate(_ context.Context, p model.Permission) (model.TriggerMode, error) {
	d.activated = append(d.activated, p)
	return model.TriggerPeriodic, nil
}

func (d *fakeDaemon) AttachView(context.Context, string) (string, error) { return "view-1", nil }

func (d *fakeDaemon) PollView(context.Context, string) (socketrpc.PollResult, error) {
	return d.poll, nil
}

func (d *fakeDaemon) DetachView(context.Context, string) error { return nil }

var testEnemies = []model.Enemy{
	{Slug: "lace", Name: "Lace", Description: "Intro entry."},
	{Slug: "moss-mother", Name: "Moss Mother", Location: "Moss Grotto", Description: "Large and mossy.", SecondaryDescription: "..."},
	{Slug: "bell-beast", Name: "Bell Beast", Location: "The Marrow", Description: "Rings.", SecondaryDescription: "Loud."},
	{Slug: "savage-beastfly", Name: "Savage Beastfly", Location: "Far Fields"},
	{Slug: "fourth-chorus", Name: "Fourth Chorus", Location: "Greymoor"},
	{Slug: "widow", Name: "Widow", Location: "Bellhart"},
}

func newTestPage(t *testing.T, daemon Daemon, link string) (*JournalPage, *fakePrefs) {
	t.Helper()
	prefs := newFakePrefs()
	p := NewJournalPage(JournalConfig{
		Prefs:  prefs,
		Daemon: daemon,
		Link:   link,
	})
	p.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	return p, prefs
}

func loaded(p *JournalPage) {
	p.Update(enemiesLoadedMsg{enemies: testEnemies})
}

func TestJournalPage_GridExcludesIntro(t *testing.T) {
	t.Parallel()
	p, _ := newTestPage(t, nil, "")
	loaded(p)

	grid := p.grid()
	if len(grid) != len(testEnemies)-1 {
		t.Fatalf("grid len = %d, want %d", len(grid), len(testEnemies)-1)
	}
	if grid[0].Slug != "moss-mother" {
		t.Fatalf("grid[0] = %q, want moss-mother", grid[0].Slug)
	}
}

func TestJournalPage_KeyboardMovesThroughMapper(t *testing.T) {
	t.Parallel()
	p, prefs := newTestPage(t, nil, "")
	loaded(p)

	p.Update(tea.KeyMsg{Type: tea.KeyRight})
	start := time.Now()
	p.Update(frameMsg{gen: p.gen, at: start})

	// No active slug counts as index 0, so right lands on index 1.
	if got := prefs.ActiveSlug(); got != "bell-beast" {
		t.Fatalf("active = %q, want bell-beast", got)
	}

	// A second press inside the cooldown is swallowed.
	p.Update(tea.KeyMsg{Type: tea.KeyRight})
	p.Update(frameMsg{gen: p.gen, at: start.Add(50 * time.Millisecond)})
	if got := prefs.ActiveSlug(); got != "bell-beast" {
		t.Fatalf("active after cooldown press = %q, want bell-beast", got)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p.Update(frameMsg{gen: p.gen, at: start.Add(time.Second)})
	if got := prefs.ActiveSlug(); got != "widow" {
		t.Fatalf("active after down = %q, want widow", got)
	}
	if seen := prefs.Seen(); len(seen) != 2 {
		t.Fatalf("seen = %v, want two entries", seen)
	}
}

func TestJournalPage_StaleFrameIgnored(t *testing.T) {
	t.Parallel()
	p, prefs := newTestPage(t, nil, "")
	loaded(p)
	p.Init()

	p.Update(tea.KeyMsg{Type: tea.KeyRight})
	cmd, _ := p.Update(frameMsg{gen: p.gen - 1, at: time.Now()})
	if cmd != nil {
		t.Fatal("stale frame rescheduled itself")
	}
	if prefs.ActiveSlug() != "" {
		t.Fatalf("stale frame moved selection to %q", prefs.ActiveSlug())
	}
}

func TestJournalPage_DeepLinkAppliedAfterLoad(t *testing.T) {
	t.Parallel()
	p, prefs := newTestPage(t, nil, "/?enemy=savage-beastfly")
	loaded(p)

	if got := prefs.ActiveSlug(); got != "savage-beastfly" {
		t.Fatalf("active = %q, want savage-beastfly", got)
	}
	if p.pendingLink != "" {
		t.Fatalf("pending link not cleared: %q", p.pendingLink)
	}
	if !strings.Contains(p.View(160, 40), "Far Fields") {
		t.Fatal("detail pane missing linked enemy")
	}
}

func TestJournalPage_UnknownSlugRendersNoDetail(t *testing.T) {
	t.Parallel()
	p, _ := newTestPage(t, nil, "/?enemy=nobody")
	loaded(p)

	view := p.View(160, 40)
	if strings.Contains(view, "Intro entry.") || strings.Contains(view, "Large and mossy.") {
		t.Fatal("detail pane rendered an entry for an unknown slug")
	}
}

func TestJournalPage_SecondaryPlaceholderHidden(t *testing.T) {
	t.Parallel()

	moss := renderEnemyDetail(testEnemies[1], 60)
	if strings.Contains(moss, "Hornet") {
		t.Fatal("placeholder secondary description rendered")
	}
	bell := renderEnemyDetail(testEnemies[2], 60)
	if !strings.Contains(bell, "Loud.") {
		t.Fatal("secondary description missing")
	}
	if !strings.Contains(renderEnemyDetail(testEnemies[0], 60), model.UnknownLocation) {
		t.Fatal("missing location not rendered as unknown")
	}
}

func TestJournalPage_InstallBannerWithoutDaemon(t *testing.T) {
	t.Parallel()
	p, prefs := newTestPage(t, nil, "")
	loaded(p)

	if p.prompt != promptInstall {
		t.Fatalf("prompt = %v, want install", p.prompt)
	}
	p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("D")})
	if !prefs.flags[kv.KeyInstallDismissed] {
		t.Fatal("install dismissal not persisted")
	}
	if p.prompt != promptNotifications {
		t.Fatalf("prompt after dismiss = %v, want notifications", p.prompt)
	}
}

func TestJournalPage_NotificationGrantActivates(t *testing.T) {
	t.Parallel()
	daemon := &fakeDaemon{}
	p, prefs := newTestPage(t, daemon, "")
	loaded(p)

	if p.prompt != promptNotifications {
		t.Fatalf("prompt = %v, want notifications", p.prompt)
	}
	cmd := p.RequestNotifications(model.PermissionGranted)
	if cmd == nil {
		t.Fatal("grant returned no activation command")
	}
	msg := cmd()
	p.Update(msg)

	if len(daemon.activated) != 1 || daemon.activated[0] != model.PermissionGranted {
		t.Fatalf("activated = %v", daemon.activated)
	}
	if !prefs.flags[kv.KeyNotifAsked] || prefs.permission != model.PermissionGranted {
		t.Fatalf("prefs not recorded: %+v", prefs)
	}
	if !strings.Contains(p.status, "periodic") {
		t.Fatalf("status = %q", p.status)
	}
}

func TestJournalPage_NotificationDenyRegistersNothing(t *testing.T) {
	t.Parallel()
	daemon := &fakeDaemon{}
	p, prefs := newTestPage(t, daemon, "")
	loaded(p)

	if cmd := p.RequestNotifications(model.PermissionDenied); cmd != nil {
		t.Fatal("denial returned a command")
	}
	if len(daemon.activated) != 0 {
		t.Fatalf("activated = %v, want none", daemon.activated)
	}
	if prefs.permission != model.PermissionDenied {
		t.Fatalf("permission = %q, want denied", prefs.permission)
	}
	if p.nextPrompt() != promptNone {
		t.Fatal("prompt shown again after an answer")
	}
}

func TestJournalPage_DaemonNavigate(t *testing.T) {
	t.Parallel()
	daemon := &fakeDaemon{poll: socketrpc.PollResult{Known: true, Focus: true, Navigate: model.DeepLink("widow")}}
	p, prefs := newTestPage(t, daemon, "")
	loaded(p)

	p.Update(viewAttachedMsg{gen: p.gen, id: "view-1"})
	if p.viewID != "view-1" {
		t.Fatalf("view id = %q", p.viewID)
	}
	msg := p.pollCmd(p.gen, p.viewID)()
	p.Update(msg)

	if got := prefs.ActiveSlug(); got != "widow" {
		t.Fatalf("active = %q, want widow", got)
	}
	if p.status != "opened from notification" {
		t.Fatalf("status = %q", p.status)
	}
}

func TestJournalPage_UnknownViewReattaches(t *testing.T) {
	t.Parallel()
	p, _ := newTestPage(t, &fakeDaemon{}, "")
	p.viewID = "stale"

	p.Update(viewPolledMsg{gen: p.gen, res: socketrpc.PollResult{Known: false}})
	if p.viewID != "" {
		t.Fatalf("view id = %q, want cleared", p.viewID)
	}
}

func TestJournalPage_NarrowLayout(t *testing.T) {
	t.Parallel()
	p, _ := newTestPage(t, nil, "")
	loaded(p)

	p.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	if p.layout() != navigator.Narrow {
		t.Fatalf("layout = %v, want narrow", p.layout())
	}
	if view := p.View(80, 30); !strings.Contains(view, "Moss Mother") {
		t.Fatal("narrow strip missing first grid entry")
	}
}

func TestJournalPage_EmptyList(t *testing.T) {
	t.Parallel()
	p, _ := newTestPage(t, nil, "")
	p.Update(enemiesLoadedMsg{})

	if !p.statusErr {
		t.Fatal("empty list not reported")
	}
	p.Update(tea.KeyMsg{Type: tea.KeyRight})
	p.Update(frameMsg{gen: p.gen, at: time.Now()})
	_ = p.View(160, 40)
}

func TestFollow_RecentersViewport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		offset  int
		total   int
		visible int
		want    int
	}{
		{"top", -2, 10, 5, 0},
		{"middle", 3, 10, 5, 3},
		{"bottom", 9, 10, 5, 5},
		{"fits", 2, 3, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampOffset(tt.offset, tt.total, tt.visible); got != tt.want {
				t.Fatalf("clampOffset = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGridLine_AgreesWithResolve(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 12; n++ {
		for i := 0; i < n; i++ {
			line, _ := gridLine(navigator.Wide, i, n)
			if down := navigator.Resolve(navigator.Wide, i, n, navigator.Down); down != i && down == i+navigator.WideColumns {
				if got, _ := gridLine(navigator.Wide, down, n); got != line+1 {
					t.Errorf("wide n=%d: down from %d drawn on row %d, want %d", n, i, got, line+1)
				}
			}

			col, _ := gridLine(navigator.Narrow, i, n)
			if down := navigator.Resolve(navigator.Narrow, i, n, navigator.Down); down != i {
				if got, _ := gridLine(navigator.Narrow, down, n); got != col {
					t.Errorf("narrow n=%d: down from %d drawn in column %d, want %d", n, i, got, col)
				}
			}
		}
	}
}

func TestParseDeepLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		link string
		slug string
		ok   bool
	}{
		{"/?enemy=lace", "lace", true},
		{"/?enemy=", "", false},
		{"/", "", false},
		{"/?other=1&enemy=bell-beast", "bell-beast", true},
		{"%zz", "", false},
	}
	for _, tt := range tests {
		slug, ok := ParseDeepLink(tt.link)
		if slug != tt.slug || ok != tt.ok {
			t.Errorf("ParseDeepLink(%q) = %q, %v; want %q, %v", tt.link, slug, ok, tt.slug, tt.ok)
		}
	}
}

func TestParseDeepLink_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, slug := range []string{"lace", "Lace", "moss+mother", "a&b", "bell#beast", "skarr scout", "100%"} {
		got, ok := ParseDeepLink(model.DeepLink(slug))
		if !ok || got != slug {
			t.Errorf("ParseDeepLink(DeepLink(%q)) = %q, %v", slug, got, ok)
		}
	}
}

func TestMergeSnapshots(t *testing.T) {
	t.Parallel()

	dev := navigator.Snapshot{Connected: true, LX: 0.9}
	var virt navigator.Snapshot
	virt.Connected = true
	virt.Buttons[navigator.ButtonUp] = true

	got := mergeSnapshots(dev, virt)
	if !got.Connected || got.LX != 0.9 || !got.Pressed(navigator.ButtonUp) {
		t.Fatalf("merged = %+v", got)
	}
}
