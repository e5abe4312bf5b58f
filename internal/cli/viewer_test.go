package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViewer() tableViewer {
	return newTableViewer("CORRIENTE",
		[]string{"CONCEPTO", "IMPORTE"},
		[][]string{{"MENSUALIDAD", "2400"}, {"PAN", "-1.50"}, {"CINE", "-9"}},
	)
}

func TestTableViewer_View(t *testing.T) {
	view := testViewer().View()
	for _, want := range []string{"CORRIENTE", "CONCEPTO", "MENSUALIDAD", "CINE", "q quit"} {
		assert.Contains(t, view, want)
	}
}

func TestTableViewer_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"q", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cmd := testViewer().Update(tt.msg)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
		})
	}
}

func TestTableViewer_ScrollsAndResizes(t *testing.T) {
	m := testViewer()
	assert.Equal(t, 0, m.table.Cursor())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(tableViewer)
	assert.Equal(t, 1, m.table.Cursor())

	before := m.table.Height()
	next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: viewerChrome + 3})
	m = next.(tableViewer)
	assert.Less(t, m.table.Height(), before)
}
