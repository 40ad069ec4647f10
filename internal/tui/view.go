package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/tinytelemetry/hunters-journal/internal/model"
	"github.com/tinytelemetry/hunters-journal/internal/navigator"
)

const (
	narrowCellWidth = 20
	headerHeight    = 2
	footerHeight    = 2
	panelChrome     = 2 // top and bottom border
)

func (p *JournalPage) View(width, height int) string {
	if width > 0 {
		p.width = width
	}
	if height > 0 {
		p.height = height
	}
	if p.loading {
		return p.spinner.View(p.width, p.height, "Loading the journal...")
	}

	sections := []string{p.renderHeader()}
	if banner := p.renderBanner(); banner != "" {
		sections = append(sections, banner)
	}

	bodyH := p.bodyHeight()
	if p.layout() == navigator.Narrow {
		gridH := navigator.NarrowRows + panelChrome
		sections = append(sections,
			p.renderNarrowGrid(p.width),
			p.renderDetail(p.width, max(bodyH-gridH, 3)),
		)
	} else {
		gridW := p.wideGridWidth()
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
			p.renderWideGrid(gridW, bodyH),
			p.renderDetail(p.width-gridW, bodyH),
		))
	}

	sections = append(sections, p.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (p *JournalPage) bodyHeight() int {
	h := p.height - headerHeight - footerHeight
	if p.prompt != promptNone {
		h -= 3
	}
	return max(h, panelChrome+1)
}

func (p *JournalPage) wideGridWidth() int {
	return max(p.width*45/100, 30)
}

// visibleLines is how many grid lines fit: rows in the wide grid, columns in
// the narrow strip.
func (p *JournalPage) visibleLines() int {
	if p.layout() == navigator.Narrow {
		return max((p.width-4)/narrowCellWidth, 1)
	}
	return max(p.bodyHeight()-panelChrome, 1)
}

// follow recenters the viewport on grid index idx.
func (p *JournalPage) follow(idx int) {
	if idx < 0 {
		return
	}
	line, total := gridLine(p.layout(), idx, len(p.grid()))
	visible := p.visibleLines()
	p.offset = clampOffset(line-visible/2, total, visible)
}

// gridLine returns the row (wide) or column (narrow) holding idx and the
// number of such lines.
func gridLine(layout navigator.Layout, idx, n int) (line, total int) {
	if layout == navigator.Narrow {
		return idx / navigator.NarrowRows, (n + navigator.NarrowRows - 1) / navigator.NarrowRows
	}
	return idx / navigator.WideColumns, (n + navigator.WideColumns - 1) / navigator.WideColumns
}

func clampOffset(offset, total, visible int) int {
	return max(0, min(offset, total-visible))
}

func (p *JournalPage) renderHeader() string {
	seen := p.prefs.Seen()
	grid := p.grid()
	count := 0
	for _, e := range grid {
		if slices.Contains(seen, e.Slug) {
			count++
		}
	}

	left := titleStyle.Render(model.NotificationTitle) +
		helpStyle.Render(fmt.Sprintf("  %d/%d seen", count, len(grid)))

	var right string
	now := p.now()
	switch {
	case p.tracker.IndicatorVisible(now):
		right = indicatorStyle.Render("🎮 controller connected")
	case p.tracker.Connected():
		right = helpStyle.Render("🎮")
	}

	gap := max(p.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right + "\n"
}

func (p *JournalPage) renderBanner() string {
	var text string
	switch p.prompt {
	case promptInstall:
		text = "Run journald in the background for enemy notifications and offline loads." +
			helpStyle.Render("   D don't show again · esc hide")
	case promptNotifications:
		text = "Get a random enemy to hunt every few hours?" +
			helpStyle.Render("   y allow · x deny · esc later")
	default:
		return ""
	}
	return bannerStyle.Width(max(p.width-2, 10)).Render(text)
}

func (p *JournalPage) renderCell(e model.Enemy, width int, active bool, seen []string) string {
	mark := "  "
	if slices.Contains(seen, e.Slug) {
		mark = seenMarkStyle.Render("✓ ")
	}
	name := truncate.StringWithTail(e.Name, uint(max(width-3, 1)), "…")
	style := cellStyle
	if active {
		style = activeCellStyle
	}
	return mark + style.Width(max(width-2, 1)).Render(name)
}

func (p *JournalPage) renderWideGrid(width, height int) string {
	grid := p.grid()
	seen := p.prefs.Seen()
	active := p.selection.Active()
	innerW := width - 4
	cellW := max(innerW/navigator.WideColumns, 4)
	visible := max(height-panelChrome, 1)

	_, total := gridLine(navigator.Wide, 0, len(grid))
	offset := clampOffset(p.offset, total, visible)

	var rows []string
	for r := offset; r < min(offset+visible, total); r++ {
		var cells []string
		for c := 0; c < navigator.WideColumns; c++ {
			idx := r*navigator.WideColumns + c
			if idx >= len(grid) {
				break
			}
			cells = append(cells, p.renderCell(grid[idx], cellW, grid[idx].Slug == active, seen))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	if len(rows) == 0 {
		rows = append(rows, helpStyle.Render("No enemies"))
	}

	return activeSectionStyle.
		Width(width - 2).
		Height(height - panelChrome).
		Render(strings.Join(rows, "\n"))
}

func (p *JournalPage) renderNarrowGrid(width int) string {
	grid := p.grid()
	seen := p.prefs.Seen()
	active := p.selection.Active()
	visible := p.visibleLines()

	_, total := gridLine(navigator.Narrow, 0, len(grid))
	offset := clampOffset(p.offset, total, visible)

	lines := make([]string, navigator.NarrowRows)
	for c := offset; c < min(offset+visible, total); c++ {
		for r := 0; r < navigator.NarrowRows; r++ {
			idx := c*navigator.NarrowRows + r
			if idx >= len(grid) {
				lines[r] += strings.Repeat(" ", narrowCellWidth)
				continue
			}
			lines[r] += p.renderCell(grid[idx], narrowCellWidth, grid[idx].Slug == active, seen)
		}
	}

	return activeSectionStyle.
		Width(width - 2).
		Height(navigator.NarrowRows).
		Render(strings.Join(lines, "\n"))
}

// renderDetail renders the active entry. An active slug missing from the
// list leaves the pane empty.
func (p *JournalPage) renderDetail(width, height int) string {
	style := sectionStyle.Width(max(width-2, 10)).Height(max(height-panelChrome, 1))

	e, ok := model.Find(p.enemies, p.activeSlug())
	if !ok {
		return style.Render("")
	}
	return style.Render(renderEnemyDetail(e, max(width-6, 10)))
}

func renderEnemyDetail(e model.Enemy, width int) string {
	var b strings.Builder
	b.WriteString(nameStyle.Render(e.Name))
	b.WriteString("\n")
	b.WriteString(locationStyle.Render(e.LocationOrUnknown()))
	b.WriteString("\n\n")
	b.WriteString(descriptionStyle.Render(wordwrap.String(e.Description, width)))
	if e.HasSecondary() {
		b.WriteString("\n\n")
		b.WriteString(titleStyle.Render("Hornet"))
		b.WriteString("\n")
		b.WriteString(descriptionStyle.Render(wordwrap.String(e.SecondaryDescription, width)))
	}
	if e.Image != "" {
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render(truncate.StringWithTail(e.Image, uint(width), "…")))
	}
	return b.String()
}

func (p *JournalPage) renderFooter() string {
	status := ""
	if p.status != "" {
		if p.statusErr {
			status = errorStyle.Render(p.status)
		} else {
			status = statusStyle.Render(p.status)
		}
	}
	return status + "\n" + p.help.View(p.keys)
}
