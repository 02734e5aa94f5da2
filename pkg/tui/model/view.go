package model

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/modoterra/adminlog/pkg/logtable"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	successStyle = cellStyle.Foreground(lipgloss.Color("42"))
	dangerStyle  = cellStyle.Foreground(lipgloss.Color("196"))

	connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	closedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View renders the TUI.
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "loading..."
	}

	sections := []string{a.renderHeader()}

	if a.table == nil {
		sections = append(sections, dimStyle.Render("waiting for module info..."))
	} else {
		sections = append(sections, a.renderTable(), a.renderFooter())
	}

	if a.mode == ModeSearch || a.search.Value() != "" {
		sections = append(sections, a.search.View())
	}

	sections = append(sections, a.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a App) renderHeader() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("adminlog"))

	if a.ready {
		b.WriteString("  " + moduleLabel(a.spec))
		if a.spec.Module.Summary != "" {
			b.WriteString(dimStyle.Render(" - " + a.spec.Module.Summary))
		}
	}

	switch {
	case a.connected:
		b.WriteString("  " + connectedStyle.Render("●"))
	case a.closed:
		b.WriteString("  " + closedStyle.Render("✖"))
	default:
		b.WriteString("  " + dimStyle.Render("○"))
	}
	b.WriteString(" " + dimStyle.Render(a.opts.Target))

	if a.opts.AutoRefresh != "" {
		b.WriteString(dimStyle.Render("  auto refresh " + a.opts.AutoRefresh))
	}
	if a.ready {
		b.WriteString("\n" + dimStyle.Render(a.spec.ServiceURI))
	}
	return b.String()
}

func (a App) renderTable() string {
	order := a.table.Order()
	headers := a.table.Headers()
	for i := range headers {
		if i == order.Column {
			if order.Desc {
				headers[i] += " ▼"
			} else {
				headers[i] += " ▲"
			}
		}
	}

	cells := a.table.PageRows()
	if len(cells) == 0 {
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(borderStyle).
			Headers(headers...).
			StyleFunc(func(row, col int) lipgloss.Style {
				return headerStyle
			})
		return t.Render() + "\n" + dimStyle.Render(" "+a.table.EmptyText())
	}

	rows := make([][]string, len(cells))
	for i, r := range cells {
		rows[i] = make([]string, len(r))
		for j, c := range r {
			rows[i][j] = c.Text
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(cells) || col >= len(cells[row]) {
				return cellStyle
			}
			return toneStyle(cells[row][col].Tone)
		})
	if a.width > 0 {
		t = t.Width(a.width)
	}
	return t.Render()
}

func (a App) renderFooter() string {
	info := a.table.Info()
	if a.table.Pages() > 1 {
		info += "  " + a.pages.View()
	}
	return dimStyle.Render(info)
}

func (a App) renderStatusBar() string {
	left := a.statusMsg
	if a.mode == ModeSearch {
		return helpStyle.Render(left + "  enter:apply esc:clear")
	}
	right := a.help.View(a.keys)
	if a.help.ShowAll {
		return helpStyle.Render(left) + "\n" + right
	}

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return helpStyle.Render(left+strings.Repeat(" ", gap)) + right
}

func toneStyle(t logtable.Tone) lipgloss.Style {
	switch t {
	case logtable.ToneSuccess:
		return successStyle
	case logtable.ToneDanger:
		return dangerStyle
	default:
		return cellStyle
	}
}
