package tui

import (
	"context"
	"net/url"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/kv"
	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/navigator"
	"github.com/tinytelemetry/hunters-journal/internal/socketrpc"
)

const (
	viewPollInterval = time.Second
	daemonTimeout    = 5 * time.Second
)

// EnemyLoader resolves the enemy list. It never fails; an empty list means
// nothing could be loaded.
type EnemyLoader interface {
	Load(ctx context.Context) []model.Enemy
}

// Prefs is the view's persisted state.
type Prefs interface {
	navigator.SelectionStore
	Flag(key string) bool
	SetFlag(key string, on bool) error
	Permission() model.Permission
	SetPermission(p model.Permission) error
}

// Device is a hot-pluggable input device.
type Device interface {
	navigator.DeviceInputSource
	Present() bool
	Changes() <-chan struct{}
}

// Daemon is the part of the background service the view talks to.
type Daemon interface {
	SendNotification(ctx context.Context) (socketrpc.SendResult, error)
	Activate(ctx context.Context, permission model.Permission) (model.TriggerMode, error)
	AttachView(ctx context.Context, origin string) (string, error)
	PollView(ctx context.Context, id string) (socketrpc.PollResult, error)
	DetachView(ctx context.Context, id string) error
}

// JournalConfig wires a JournalPage. Device and Daemon may be nil.
type JournalConfig struct {
	Loader    EnemyLoader
	Prefs     Prefs
	Selection *navigator.Selection
	Device    Device
	Daemon    Daemon
	// Origin identifies the daemon this view attaches to.
	Origin string
	// Link is a deep link ("/?enemy=<slug>") applied once the list loads.
	Link          string
	NarrowWidth   int
	FrameInterval time.Duration
	Cooldown      time.Duration
	Logger        *zap.Logger
}

type prompt int

const (
	promptNone prompt = iota
	promptInstall
	promptNotifications
)

type (
	enemiesLoadedMsg struct{ enemies []model.Enemy }
	frameMsg         struct {
		gen int
		at  time.Time
	}
	deviceTickMsg    struct{ gen int }
	deviceChangedMsg struct{}
	viewTickMsg      struct{ gen int }
	viewAttachedMsg  struct {
		gen int
		id  string
		err error
	}
	viewPolledMsg struct {
		gen int
		res socketrpc.PollResult
		err error
	}
	activatedMsg struct {
		mode model.TriggerMode
		err  error
	}
	sentMsg struct {
		res socketrpc.SendResult
		err error
	}
	detachedMsg struct{}
)

// JournalPage is the enemy grid with its detail pane.
type JournalPage struct {
	loader    EnemyLoader
	prefs     Prefs
	selection *navigator.Selection
	device    Device
	daemon    Daemon
	origin    string
	logger    *zap.Logger

	narrowWidth   int
	frameInterval time.Duration

	keys    KeyMap
	help    help.Model
	spinner loadingIndicator

	mapper   *navigator.Mapper
	keyboard *navigator.KeyboardSource
	tracker  *navigator.ConnectionTracker

	enemies     []model.Enemy
	loaded      bool
	loading     bool
	pendingLink string

	gen      int
	watching bool
	viewID   string

	width, height int
	offset        int
	prompt        prompt
	status        string
	statusErr     bool

	now func() time.Time
}

// NewJournalPage builds the journal page.
func NewJournalPage(cfg JournalConfig) *JournalPage {
	if cfg.NarrowWidth <= 0 {
		cfg.NarrowWidth = model.DefaultNarrowWidth
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = model.FrameInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Selection == nil {
		cfg.Selection = navigator.NewSelection(cfg.Prefs, nil, cfg.Logger)
	}
	return &JournalPage{
		loader:        cfg.Loader,
		prefs:         cfg.Prefs,
		selection:     cfg.Selection,
		device:        cfg.Device,
		daemon:        cfg.Daemon,
		origin:        cfg.Origin,
		logger:        cfg.Logger,
		narrowWidth:   cfg.NarrowWidth,
		frameInterval: cfg.FrameInterval,
		keys:          DefaultKeyMap(),
		help:          help.New(),
		spinner:       newLoadingIndicator(),
		mapper:        navigator.NewMapper(cfg.Selection, cfg.Cooldown),
		keyboard:      navigator.NewKeyboardSource(),
		tracker:       navigator.NewConnectionTracker(model.DeviceIndicatorTTL),
		pendingLink:   cfg.Link,
		now:           time.Now,
	}
}

func (p *JournalPage) ID() string { return PageJournal }

// Enemies returns the loaded list, intro entry included.
func (p *JournalPage) Enemies() []model.Enemy { return p.enemies }

// Seen returns the persisted seen slugs.
func (p *JournalPage) Seen() []string { return p.prefs.Seen() }

// Init starts a new generation of background loops. Messages from older
// generations are dropped, so re-entering the page never doubles a loop.
func (p *JournalPage) Init() tea.Cmd {
	p.gen++
	gen := p.gen

	cmds := []tea.Cmd{p.frameTick(gen)}
	if p.device != nil {
		cmds = append(cmds, p.deviceTick(gen))
		if !p.watching {
			p.watching = true
			cmds = append(cmds, waitForDevice(p.device.Changes()))
		}
	}
	if p.daemon != nil {
		cmds = append(cmds, func() tea.Msg { return viewTickMsg{gen: gen} })
	}
	if !p.loaded && !p.loading {
		p.loading = true
		cmds = append(cmds, p.loadCmd(), p.spinner.Tick())
	}
	return tea.Batch(cmds...)
}

// grid is the navigable list: the first entry is the intro and is shown
// only through the detail pane.
func (p *JournalPage) grid() []model.Enemy {
	if len(p.enemies) <= 1 {
		return nil
	}
	return p.enemies[1:]
}

func (p *JournalPage) layout() navigator.Layout {
	return navigator.LayoutForWidth(p.width, p.narrowWidth)
}

// activeSlug is the selected slug, defaulting to the intro name before any
// selection was made.
func (p *JournalPage) activeSlug() string {
	if slug := p.selection.Active(); slug != "" {
		return slug
	}
	return model.DefaultIntroSlug
}

func (p *JournalPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.help.Width = msg.Width
		p.follow(model.IndexOf(p.grid(), p.selection.Active()))
		return nil, nil

	case tea.KeyMsg:
		return p.handleKey(msg)

	case enemiesLoadedMsg:
		p.loading = false
		p.loaded = true
		p.enemies = msg.enemies
		if len(p.enemies) == 0 {
			p.setError("no enemies available offline or online")
		}
		p.applyLink()
		p.follow(model.IndexOf(p.grid(), p.selection.Active()))
		p.prompt = p.nextPrompt()
		return nil, nil

	case spinner.TickMsg:
		if p.loading {
			return p.spinner.Update(msg), nil
		}
		return nil, nil

	case frameMsg:
		if msg.gen != p.gen {
			return nil, nil
		}
		p.step(msg.at)
		return p.frameTick(msg.gen), nil

	case deviceTickMsg:
		if msg.gen != p.gen {
			return nil, nil
		}
		p.observeDevice()
		return p.deviceTick(msg.gen), nil

	case deviceChangedMsg:
		p.observeDevice()
		if p.device == nil {
			return nil, nil
		}
		return waitForDevice(p.device.Changes()), nil

	case viewTickMsg:
		if msg.gen != p.gen {
			return nil, nil
		}
		if p.viewID == "" {
			return p.attachCmd(msg.gen), nil
		}
		return p.pollCmd(msg.gen, p.viewID), nil

	case viewAttachedMsg:
		if msg.err != nil {
			p.logger.Debug("attach view", zap.Error(msg.err))
		} else {
			p.viewID = msg.id
		}
		return p.nextViewTick(msg.gen), nil

	case viewPolledMsg:
		p.handlePoll(msg)
		return p.nextViewTick(msg.gen), nil

	case activatedMsg:
		if msg.err != nil {
			p.setError("notifications: " + msg.err.Error())
			return nil, nil
		}
		p.setStatus("notifications enabled (" + string(msg.mode) + ")")
		return nil, nil

	case sentMsg:
		switch {
		case msg.err != nil:
			p.setError("notify: " + msg.err.Error())
		case !msg.res.Delivered:
			p.setStatus("nothing to notify about")
		default:
			p.setStatus("notification sent: " + msg.res.Slug)
		}
		return nil, nil
	}

	return nil, nil
}

func (p *JournalPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	switch {
	case key.Matches(msg, p.keys.ForceQuit), key.Matches(msg, p.keys.Quit):
		return tea.Sequence(p.detachCmd(), tea.Quit), nil
	}

	if p.prompt != promptNone {
		if cmd, handled := p.handlePromptKey(msg); handled {
			return cmd, nil
		}
	}

	switch {
	case key.Matches(msg, p.keys.Up):
		p.keyboard.Press(navigator.Up)
	case key.Matches(msg, p.keys.Down):
		p.keyboard.Press(navigator.Down)
	case key.Matches(msg, p.keys.Left):
		p.keyboard.Press(navigator.Left)
	case key.Matches(msg, p.keys.Right):
		p.keyboard.Press(navigator.Right)
	case key.Matches(msg, p.keys.Stats):
		return nil, &PageNav{PageID: PageStats}
	case key.Matches(msg, p.keys.Help):
		p.help.ShowAll = !p.help.ShowAll
	case key.Matches(msg, p.keys.Notify):
		return p.notifyCmd(), nil
	case key.Matches(msg, p.keys.Escape):
		p.status = ""
	}
	return nil, nil
}

// handlePromptKey answers the visible banner.
func (p *JournalPage) handlePromptKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch p.prompt {
	case promptInstall:
		switch {
		case key.Matches(msg, p.keys.Dismiss):
			p.persistFlag(kv.KeyInstallDismissed)
			p.prompt = p.nextPrompt()
			return nil, true
		case key.Matches(msg, p.keys.Escape):
			p.prompt = promptNone
			return nil, true
		}

	case promptNotifications:
		switch {
		case key.Matches(msg, p.keys.Accept):
			return p.RequestNotifications(model.PermissionGranted), true
		case key.Matches(msg, p.keys.Deny):
			return p.RequestNotifications(model.PermissionDenied), true
		case key.Matches(msg, p.keys.Escape):
			p.persistFlag(kv.KeyNotifAsked)
			p.prompt = promptNone
			return nil, true
		}
	}
	return nil, false
}

// nextPrompt picks the banner to show: the install suggestion while no
// background service is reachable, then the notification question.
func (p *JournalPage) nextPrompt() prompt {
	if p.daemon == nil && !p.prefs.Flag(kv.KeyInstallDismissed) {
		return promptInstall
	}
	if !p.prefs.Flag(kv.KeyNotifAsked) && p.prefs.Permission() == model.PermissionDefault {
		return promptNotifications
	}
	return promptNone
}

// RequestNotifications records the user's answer. A grant activates the
// background trigger; a denial registers nothing.
func (p *JournalPage) RequestNotifications(answer model.Permission) tea.Cmd {
	p.persistFlag(kv.KeyNotifAsked)
	if err := p.prefs.SetPermission(answer); err != nil {
		p.logger.Warn("persist permission", zap.Error(err))
	}
	p.prompt = promptNone

	if answer != model.PermissionGranted {
		p.setStatus("notifications " + string(answer))
		return nil
	}
	if p.daemon == nil {
		p.setStatus("notifications need journald running")
		return nil
	}
	return p.activateCmd(answer)
}

func (p *JournalPage) persistFlag(key string) {
	if err := p.prefs.SetFlag(key, true); err != nil {
		p.logger.Warn("persist flag", zap.String("key", key), zap.Error(err))
	}
}

// step runs one mapper frame over the merged keyboard and device state.
func (p *JournalPage) step(at time.Time) {
	snap := p.keyboard.Poll()
	if p.device != nil {
		snap = mergeSnapshots(p.device.Poll(), snap)
	}
	if move, ok := p.mapper.Step(at, snap, p.grid(), p.layout()); ok {
		p.follow(move.To)
	}
}

// mergeSnapshots overlays the virtual pad's buttons on a device snapshot.
func mergeSnapshots(dev, virt navigator.Snapshot) navigator.Snapshot {
	out := dev
	out.Connected = dev.Connected || virt.Connected
	for i, pressed := range virt.Buttons {
		out.Buttons[i] = out.Buttons[i] || pressed
	}
	return out
}

func (p *JournalPage) observeDevice() {
	if p.device == nil {
		return
	}
	switch p.tracker.Observe(p.now(), p.device.Present()) {
	case navigator.Connected:
		p.logger.Info("controller connected")
	case navigator.Disconnected:
		p.logger.Info("controller disconnected")
		p.mapper.Reset()
	}
}

func (p *JournalPage) handlePoll(msg viewPolledMsg) {
	if msg.err != nil {
		p.logger.Debug("poll view", zap.Error(msg.err))
		return
	}
	if !msg.res.Known {
		p.viewID = ""
		return
	}
	if msg.res.Focus {
		p.setStatus("opened from notification")
	}
	if msg.res.Navigate != "" {
		p.pendingLink = msg.res.Navigate
		if p.loaded {
			p.applyLink()
			p.follow(model.IndexOf(p.grid(), p.selection.Active()))
		}
	}
}

// applyLink selects the pending deep link's slug and clears the link. An
// unknown slug is still selected; the detail pane then stays empty.
func (p *JournalPage) applyLink() {
	if p.pendingLink == "" {
		return
	}
	slug, ok := ParseDeepLink(p.pendingLink)
	p.pendingLink = ""
	if !ok {
		return
	}
	p.selection.Commit(slug)
}

// ParseDeepLink extracts the enemy slug from "/?enemy=<slug>".
func ParseDeepLink(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	slug := u.Query().Get(model.DeepLinkParam)
	return slug, slug != ""
}

func (p *JournalPage) setStatus(s string) {
	p.status = s
	p.statusErr = false
}

func (p *JournalPage) setError(s string) {
	p.status = s
	p.statusErr = true
}

func (p *JournalPage) frameTick(gen int) tea.Cmd {
	return tea.Tick(p.frameInterval, func(t time.Time) tea.Msg {
		return frameMsg{gen: gen, at: t}
	})
}

func (p *JournalPage) deviceTick(gen int) tea.Cmd {
	return tea.Tick(model.DevicePollInterval, func(time.Time) tea.Msg {
		return deviceTickMsg{gen: gen}
	})
}

func waitForDevice(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return deviceChangedMsg{}
	}
}

func (p *JournalPage) nextViewTick(gen int) tea.Cmd {
	if gen != p.gen {
		return nil
	}
	return tea.Tick(viewPollInterval, func(time.Time) tea.Msg {
		return viewTickMsg{gen: gen}
	})
}

func (p *JournalPage) loadCmd() tea.Cmd {
	loader := p.loader
	return func() tea.Msg {
		if loader == nil {
			return enemiesLoadedMsg{}
		}
		return enemiesLoadedMsg{enemies: loader.Load(context.Background())}
	}
}

func (p *JournalPage) attachCmd(gen int) tea.Cmd {
	daemon, origin := p.daemon, p.origin
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), daemonTimeout)
		defer cancel()
		id, err := daemon.AttachView(ctx, origin)
		return viewAttachedMsg{gen: gen, id: id, err: err}
	}
}

func (p *JournalPage) pollCmd(gen int, id string) tea.Cmd {
	daemon := p.daemon
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), daemonTimeout)
		defer cancel()
		res, err := daemon.PollView(ctx, id)
		return viewPolledMsg{gen: gen, res: res, err: err}
	}
}

func (p *JournalPage) detachCmd() tea.Cmd {
	if p.daemon == nil || p.viewID == "" {
		return nil
	}
	daemon, id := p.daemon, p.viewID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), daemonTimeout)
		defer cancel()
		_ = daemon.DetachView(ctx, id)
		return detachedMsg{}
	}
}

func (p *JournalPage) activateCmd(permission model.Permission) tea.Cmd {
	daemon := p.daemon
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), daemonTimeout)
		defer cancel()
		mode, err := daemon.Activate(ctx, permission)
		return activatedMsg{mode: mode, err: err}
	}
}

func (p *JournalPage) notifyCmd() tea.Cmd {
	if p.daemon == nil {
		p.setError("notifications need journald running")
		return nil
	}
	daemon := p.daemon
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*daemonTimeout)
		defer cancel()
		res, err := daemon.SendNotification(ctx)
		return sentMsg{res: res, err: err}
	}
}
