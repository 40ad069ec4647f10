package tui

import tea "github.com/charmbracelet/bubbletea"

// App is the top-level Bubble Tea model that routes between pages.
type App struct {
	order      []string
	pages      map[string]Page
	activePage string
	width      int
	height     int
}

// NewApp creates a new App with the given pages. The first page is the default.
func NewApp(pages ...Page) *App {
	pageMap := make(map[string]Page, len(pages))
	order := make([]string, 0, len(pages))
	for _, p := range pages {
		pageMap[p.ID()] = p
		order = append(order, p.ID())
	}
	a := &App{order: order, pages: pageMap}
	if len(order) > 0 {
		a.activePage = order[0]
	}
	return a
}

// ActivePage returns the id of the page currently shown.
func (a *App) ActivePage() string { return a.activePage }

func (a *App) Init() tea.Cmd {
	if p, ok := a.pages[a.activePage]; ok {
		return p.Init()
	}
	return nil
}

// isInput reports whether msg came from the user. Input goes to the active
// page only; every other message reaches all pages so their background
// loops keep running while hidden.
func isInput(msg tea.Msg) bool {
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		return true
	}
	return false
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = wsm.Width
		a.height = wsm.Height
	}

	active, ok := a.pages[a.activePage]
	if !ok {
		return a, nil
	}

	if !isInput(msg) {
		var cmds []tea.Cmd
		var nav *PageNav
		for _, id := range a.order {
			cmd, n := a.pages[id].Update(msg)
			cmds = append(cmds, cmd)
			if id == a.activePage {
				nav = n
			}
		}
		return a, a.navigate(nav, tea.Batch(cmds...))
	}

	cmd, nav := active.Update(msg)
	return a, a.navigate(nav, cmd)
}

func (a *App) navigate(nav *PageNav, cmd tea.Cmd) tea.Cmd {
	if nav == nil || nav.PageID == a.activePage {
		return cmd
	}
	next, exists := a.pages[nav.PageID]
	if !exists {
		return cmd
	}
	a.activePage = nav.PageID
	return tea.Batch(cmd, next.Init())
}

func (a *App) View() string {
	if p, ok := a.pages[a.activePage]; ok {
		return p.View(a.width, a.height)
	}
	return "No active page"
}
