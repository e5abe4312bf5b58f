package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// viewerChrome is the number of lines around the table: title and help.
const viewerChrome = 4

// tableViewer is a scrollable full-screen table.
type tableViewer struct {
	title string
	table table.Model
}

func newTableViewer(title string, headers []string, rows [][]string) tableViewer {
	t := newTable(headers, rows, true)
	t.SetHeight(min(len(rows)+2, 20))
	return tableViewer{title: title, table: t}
}

func (m tableViewer) Init() tea.Cmd {
	return nil
}

func (m tableViewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if h := msg.Height - viewerChrome; h > 2 {
			m.table.SetHeight(h)
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m tableViewer) View() string {
	return FormatTitle(m.title) + "\n" +
		m.table.View() + "\n" +
		SubtleStyle.Render("↑/↓ scroll · q quit")
}

// BrowseTable shows rows in a scrollable table until the user quits.
func BrowseTable(ctx context.Context, in io.Reader, out io.Writer, title string, headers []string, rows [][]string) error {
	p := tea.NewProgram(newTableViewer(title, headers, rows),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	_, err := p.Run()
	return err
}
