package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/rows"
)

// =============================================================================
// actionTypeModel - Interactive sub-action type selection
// =============================================================================

// actionChoice is one sub-action name and the type it will be created as.
type actionChoice struct {
	Name         string
	Parent       string
	CallBehavior bool
}

// actionTypeModel is the bubbletea model that lets the user decide, per
// sub-action name, between StructuredAction and CallBehaviorAction.
type actionTypeModel struct {
	Choices  []actionChoice
	Cursor   int
	Offset   int
	Height   int
	Done     bool
	Canceled bool
}

// newActionTypeModel lists the distinct sub-action names of in. Names in
// preset start out as CallBehaviorAction.
func newActionTypeModel(in []rows.ActivityRow, preset []string) actionTypeModel {
	parents := make(map[string]string)
	for _, r := range in {
		if r.IsSubAction {
			if _, ok := parents[r.Name]; !ok {
				parents[r.Name] = r.ParentName
			}
		}
	}
	var choices []actionChoice
	for _, name := range rows.SubActionNames(in) {
		choices = append(choices, actionChoice{
			Name:         name,
			Parent:       parents[name],
			CallBehavior: slices.Contains(preset, name),
		})
	}
	return actionTypeModel{Choices: choices, Height: 15}
}

func (m actionTypeModel) Init() tea.Cmd {
	return nil
}

func (m actionTypeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Canceled = true
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Choices)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ", "tab", "x":
			if len(m.Choices) > 0 {
				m.Choices = slices.Clone(m.Choices)
				m.Choices[m.Cursor].CallBehavior = !m.Choices[m.Cursor].CallBehavior
			}
		case "a":
			all := !m.allCallBehavior()
			m.Choices = slices.Clone(m.Choices)
			for i := range m.Choices {
				m.Choices[i].CallBehavior = all
			}
		case "enter":
			m.Done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m actionTypeModel) allCallBehavior() bool {
	for _, c := range m.Choices {
		if !c.CallBehavior {
			return false
		}
	}
	return len(m.Choices) > 0
}

func (m actionTypeModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Sub-action Types"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  space toggle  a toggle all  ⏎ import  q cancel"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Choices))
	var body [][]string
	for i := m.Offset; i < end; i++ {
		c := m.Choices[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		body = append(body, []string{cursor, c.Name, c.Parent, string(c.actionType())})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers("", "Sub-action", "Parent", "Type").
		Rows(body...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			idx := m.Offset + row
			if idx >= len(m.Choices) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 2 {
				base = base.Foreground(colorDim)
			}
			if col == 3 && m.Choices[idx].CallBehavior {
				base = base.Foreground(colorGreen)
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Choices))))
	return b.String()
}

func (c actionChoice) actionType() graph.ActionType {
	if c.CallBehavior {
		return graph.CallBehaviorAction
	}
	return graph.StructuredAction
}

// ActionTypeOf returns the choices as a lookup. Names not listed are
// StructuredAction.
func (m actionTypeModel) ActionTypeOf() func(name string) graph.ActionType {
	types := make(map[string]graph.ActionType, len(m.Choices))
	for _, c := range m.Choices {
		types[c.Name] = c.actionType()
	}
	return func(name string) graph.ActionType {
		if t, ok := types[name]; ok {
			return t
		}
		return graph.StructuredAction
	}
}

// chooseActionTypes runs the chooser for the sub-actions of in. It returns
// nil when there is nothing to choose.
func chooseActionTypes(ctx context.Context, in []rows.ActivityRow, preset []string) (func(string) graph.ActionType, error) {
	m := newActionTypeModel(in, preset)
	if len(m.Choices) == 0 {
		return nil, nil
	}

	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		if stderrors.Is(err, tea.ErrProgramKilled) {
			return nil, errors.Wrap(errors.ErrCodeCanceled, err, "import canceled")
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "run chooser")
	}
	chosen, ok := final.(actionTypeModel)
	if !ok || chosen.Canceled || !chosen.Done {
		return nil, errors.New(errors.ErrCodeCanceled, "import canceled")
	}
	return chosen.ActionTypeOf(), nil
}
