package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oskit-dev/oskit/proc"
)

// confirmModel is the kill confirmation dialog rendered over the main
// view. Key handling lives in the parent model; this only draws the box.
type confirmModel struct {
	target proc.Process
}

func (c *confirmModel) Init() tea.Cmd {
	return nil
}

func (c *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return c, nil
}

func (c *confirmModel) View() string {
	title := modalTitleStyle.Render("Kill Process")
	body := fmt.Sprintf("Terminate PID %d (%s) and free its memory?",
		c.target.PID, truncate(c.target.Name, 20))
	hint := helpStyle.Render("y: kill │ n/esc: cancel")

	return modalStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		body,
		"",
		hint,
	))
}
