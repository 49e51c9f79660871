package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stemma/pkg/apparatus"
	"github.com/matzehuels/stemma/pkg/collate"
)

// Table styles
var (
	browseHeaderStyle    = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	browseSigilStyle     = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	browseVariantStyle   = lipgloss.NewStyle().Foreground(colorYellow)
	browseSemiStyle      = lipgloss.NewStyle().Foreground(colorWhite)
	browseInvariantStyle = lipgloss.NewStyle().Foreground(colorDim)
	browseCursorStyle    = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
)

const browseMinColumns = 3

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var opts inputOpts

	cmd := &cobra.Command{
		Use:   "browse [inputs...]",
		Short: "Browse the alignment table of a collation interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, mo, err := opts.load(cmd, args)
			if err != nil {
				return err
			}
			res, err := collate.Collate(cmd.Context(), ws, collate.Options{Match: mo, Logger: mergeLogger(c)})
			if err != nil {
				return err
			}

			m := NewTableModel(apparatus.FromResult(res))
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
	opts.register(cmd)
	return cmd
}

// =============================================================================
// TableModel - Interactive alignment table viewer
// =============================================================================

// TableModel is the bubbletea model for paging through an alignment table.
// Columns are table entries; rows are witnesses.
type TableModel struct {
	Table   *apparatus.Table
	Cursor  int // Entry under the cursor
	Offset  int // First visible entry
	Columns int // Visible entries
}

// NewTableModel creates a new table model.
func NewTableModel(tbl *apparatus.Table) TableModel {
	return TableModel{Table: tbl, Columns: 8}
}

func (m TableModel) Init() tea.Cmd {
	return nil
}

func (m TableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m = m.moveTo(m.Cursor - 1)
		case "right", "l":
			m = m.moveTo(m.Cursor + 1)
		case "home", "g":
			m = m.moveTo(0)
		case "end", "G":
			m = m.moveTo(len(m.Table.Entries) - 1)
		case "n", "tab":
			m = m.moveTo(m.nextVariant(1))
		case "p", "shift+tab":
			m = m.moveTo(m.nextVariant(-1))
		}
	case tea.WindowSizeMsg:
		// Roughly 14 cells per entry after the sigil column.
		m.Columns = max((msg.Width-12)/14, browseMinColumns)
		m = m.moveTo(m.Cursor)
	}
	return m, nil
}

// moveTo places the cursor on entry i, clamped to the table, and scrolls
// so that it stays visible.
func (m TableModel) moveTo(i int) TableModel {
	n := len(m.Table.Entries)
	if n == 0 {
		return m
	}
	m.Cursor = min(max(i, 0), n-1)
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Columns {
		m.Offset = m.Cursor - m.Columns + 1
	}
	return m
}

// nextVariant returns the next entry in direction dir that is not
// invariant, or the cursor when there is none.
func (m TableModel) nextVariant(dir int) int {
	for i := m.Cursor + dir; i >= 0 && i < len(m.Table.Entries); i += dir {
		if m.Table.Entries[i].State() != apparatus.Invariant {
			return i
		}
	}
	return m.Cursor
}

func (m TableModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Alignment Table"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("←/→ move  n/p next/previous variant  q quit"))
	b.WriteString("\n\n")

	if len(m.Table.Entries) == 0 {
		b.WriteString(StyleDim.Render("  (no tokens)"))
		return b.String()
	}

	end := min(m.Offset+m.Columns, len(m.Table.Entries))
	visible := m.Table.Entries[m.Offset:end]

	headers := []string{""}
	for i := range visible {
		headers = append(headers, strconv.Itoa(m.Offset+i+1))
	}
	rows := make([][]string, 0, len(m.Table.Witnesses))
	for _, s := range m.Table.Witnesses {
		row := []string{s}
		for _, e := range visible {
			cell := e.Text(s)
			if cell == "" {
				cell = "-"
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 0 {
				return base.Inherit(browseSigilStyle)
			}
			idx := m.Offset + col - 1
			if row == -1 {
				if idx == m.Cursor {
					return base.Inherit(browseCursorStyle)
				}
				return base.Inherit(browseHeaderStyle)
			}
			return base.Inherit(stateStyle(m.Table.Entries[idx].State(), idx == m.Cursor))
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")

	e := m.Table.Entries[m.Cursor]
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d] rank %d · %s · %d variant columns",
		m.Cursor+1, len(m.Table.Entries), e.Rank, e.State(), m.Table.Variants())))

	return b.String()
}

func stateStyle(s apparatus.State, current bool) lipgloss.Style {
	var st lipgloss.Style
	switch s {
	case apparatus.Variant:
		st = browseVariantStyle
	case apparatus.SemiInvariant:
		st = browseSemiStyle
	default:
		st = browseInvariantStyle
	}
	if current {
		st = st.Bold(true).Underline(true)
	}
	return st
}
