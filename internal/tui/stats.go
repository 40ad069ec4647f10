package tui

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// LocationStat is the hunt progress for one location.
type LocationStat struct {
	Location string
	Seen     int
	Total    int
}

// LocationStats groups enemies by location, largest first. Ties sort by
// name so the chart is stable.
func LocationStats(enemies []model.Enemy, seen []string) []LocationStat {
	byLoc := make(map[string]*LocationStat)
	for _, e := range enemies {
		loc := e.LocationOrUnknown()
		st, ok := byLoc[loc]
		if !ok {
			st = &LocationStat{Location: loc}
			byLoc[loc] = st
		}
		st.Total++
		if slices.Contains(seen, e.Slug) {
			st.Seen++
		}
	}

	out := make([]LocationStat, 0, len(byLoc))
	for _, st := range byLoc {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Location < out[j].Location
	})
	return out
}

// StatsSource supplies the list and the seen set.
type StatsSource interface {
	Enemies() []model.Enemy
	Seen() []string
}

// StatsPage charts seen and unseen entries per location.
type StatsPage struct {
	source StatsSource
	keys   KeyMap
}

func NewStatsPage(source StatsSource) *StatsPage {
	return &StatsPage{source: source, keys: DefaultKeyMap()}
}

func (s *StatsPage) ID() string    { return PageStats }
func (s *StatsPage) Init() tea.Cmd { return nil }

func (s *StatsPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, nil
	}
	switch {
	case key.Matches(km, s.keys.ForceQuit), key.Matches(km, s.keys.Quit):
		return tea.Quit, nil
	case key.Matches(km, s.keys.Back):
		return nil, &PageNav{PageID: PageJournal}
	}
	return nil, nil
}

func (s *StatsPage) View(width, height int) string {
	grid := s.source.Enemies()
	if len(grid) > 1 {
		grid = grid[1:]
	}
	stats := LocationStats(grid, s.source.Seen())

	title := chartTitleStyle.Render("Hunt progress by location")
	help := helpStyle.Render("tab/esc back · q quit")
	if len(stats) == 0 {
		body := helpStyle.Render("No data available")
		return sectionStyle.Width(max(width-2, 10)).Render(lipgloss.JoinVertical(lipgloss.Left, title, body, help))
	}

	legendW := min(max(width/3, 24), 40)
	chartW := max(width-legendW-6, 10)
	chartH := max(height-6, 5)

	chart := renderLocationChart(stats, chartW, chartH)
	legend := renderLocationLegend(stats, legendW, chartH)

	body := lipgloss.JoinHorizontal(lipgloss.Top, chart, "  ", legend)
	return sectionStyle.
		Width(max(width-2, 10)).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body, help))
}

func renderLocationChart(stats []LocationStat, width, height int) string {
	maxBars := max(width/2, 1)
	if len(stats) > maxBars {
		stats = stats[:maxBars]
	}

	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)

	seenStyle := lipgloss.NewStyle().Foreground(ColorGreen).Background(ColorGreen)
	unseenStyle := lipgloss.NewStyle().Foreground(ColorGray).Background(ColorGray)

	for _, st := range stats {
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: "seen", Value: float64(st.Seen), Style: seenStyle},
				{Name: "unseen", Value: float64(st.Total - st.Seen), Style: unseenStyle},
			},
		})
	}

	bc.Draw()
	return bc.View()
}

func renderLocationLegend(stats []LocationStat, width, height int) string {
	var lines []string
	for i, st := range stats {
		if i >= height {
			break
		}
		label := truncate.StringWithTail(st.Location, uint(max(width-12, 4)), "…")
		line := fmt.Sprintf("%2d. %-*s %3d/%-3d", i+1, max(width-12, 4), label, st.Seen, st.Total)
		style := lipgloss.NewStyle().Foreground(ColorWhite)
		if st.Seen == st.Total {
			style = seenMarkStyle
		}
		lines = append(lines, style.Render(line))
	}
	return strings.Join(lines, "\n")
}
