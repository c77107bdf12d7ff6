package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/oskit-dev/oskit/cmd/osexplorer/logger"
	"github.com/oskit-dev/oskit/image"
	"github.com/oskit-dev/oskit/proc"
)

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If help is showing, handle help keys
		if m.showHelp {
			if key.Matches(msg, m.keys.Esc) || key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
				m.showHelp = false
				return m, nil
			}
			// Ignore other keys when help is showing
			return m, nil
		}

		// If the kill dialog is open, it owns the keyboard
		if m.confirmKill {
			return m.handleConfirmKeys(msg)
		}

		// Command bar input
		if m.inputMode == CommandMode {
			return m.handleCommandMode(msg)
		}

		// Global keys
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}

		// Show help overlay
		if key.Matches(msg, m.keys.Help) {
			m.showHelp = true
			return m, nil
		}

		// Tab to switch panes
		if key.Matches(msg, m.keys.Tab) {
			if m.focusedPane == MemoryPane {
				m.focusedPane = ProcessPane
			} else {
				m.focusedPane = MemoryPane
			}
			return m, nil
		}

		// Open the command bar
		if key.Matches(msg, m.keys.Command) {
			m.inputMode = CommandMode
			m.cmdInput.SetValue("")
			m.cmdInput.Focus()
			return m, textinput.Blink
		}

		// Refresh the snapshot
		if key.Matches(msg, m.keys.Refresh) {
			m.refresh()
			m.statusMessage = "Refreshed"
			return m, clearStatusAfter()
		}

		// Save the machine back to its image file
		if key.Matches(msg, m.keys.Save) {
			return m.handleSave()
		}

		// Copy the selected block address or PID
		if key.Matches(msg, m.keys.Copy) {
			return m.handleCopy()
		}

		// Kill the selected process (asks for confirmation first)
		if key.Matches(msg, m.keys.Kill) && m.focusedPane == ProcessPane {
			p := m.selectedProcess()
			if p == nil {
				return m, nil
			}
			if p.PID == proc.InitPID {
				m.statusMessage = "The init process cannot be killed"
				return m, clearStatusAfter()
			}
			m.confirmKill = true
			m.killTarget = *p
			return m, nil
		}

		// Remaining keys move the cursor in the focused pane
		m.handleNavigation(msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		paneWidth, listHeight, _ := m.layout()
		m.memPane.setSize(paneWidth-4, listHeight)
		m.procPane.setSize(paneWidth-4, listHeight)
		m.memPane.clampCursor(len(m.snap.Memory.Blocks))
		m.procPane.clampCursor(len(m.snap.Processes))
		m.cmdInput.Width = msg.Width - 4
		return m, nil

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil
	}

	return m, nil
}

// handleNavigation forwards movement keys to the focused pane.
func (m *Model) handleNavigation(msg tea.KeyMsg) {
	pane := &m.memPane
	count := len(m.snap.Memory.Blocks)
	if m.focusedPane == ProcessPane {
		pane = &m.procPane
		count = len(m.snap.Processes)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		pane.moveUp(count)
	case key.Matches(msg, m.keys.Down):
		pane.moveDown(count)
	case key.Matches(msg, m.keys.PageUp):
		pane.pageUp(count)
	case key.Matches(msg, m.keys.PageDown):
		pane.pageDown(count)
	case key.Matches(msg, m.keys.Home):
		pane.home(count)
	case key.Matches(msg, m.keys.End):
		pane.end(count)
	}
}

// handleConfirmKeys drives the kill confirmation dialog.
func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "y" || msg.String() == "Y":
		m.confirmKill = false
		out, err := m.k.Exec(fmt.Sprintf("kill %d", m.killTarget.PID))
		if err != nil {
			logger.Error("kill failed", "pid", m.killTarget.PID, "error", err)
			m.statusMessage = fmt.Sprintf("Kill failed: %v", err)
			return m, clearStatusAfter()
		}
		logger.Info("process killed", "pid", m.killTarget.PID, "name", m.killTarget.Name)
		m.refresh()
		m.statusMessage = out
		return m, clearStatusAfter()

	case msg.String() == "n" || msg.String() == "N" || key.Matches(msg, m.keys.Esc):
		m.confirmKill = false
		return m, nil

	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

// handleCommandMode drives the command bar while it has focus.
func (m Model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputMode = NormalMode
		m.cmdInput.Blur()
		return m, nil
	case tea.KeyEnter:
		line := strings.TrimSpace(m.cmdInput.Value())
		m.inputMode = NormalMode
		m.cmdInput.Blur()
		if line == "" {
			return m, nil
		}
		return m.runCommand(line)
	}

	var cmd tea.Cmd
	m.cmdInput, cmd = m.cmdInput.Update(msg)
	return m, cmd
}

// runCommand feeds one console command to the kernel and surfaces the
// first line of its output in the status bar.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	switch line {
	case "q", "quit", "exit":
		return m, tea.Quit
	}

	logger.Debug("running command", "line", line)
	out, err := m.k.Exec(line)
	if err != nil {
		m.statusMessage = fmt.Sprintf("Error: %v", err)
		return m, clearStatusAfter()
	}

	// A shutdown halts the machine; nothing is left to explore.
	if !m.k.Running() {
		return m, tea.Quit
	}

	m.refresh()
	m.statusMessage = firstLine(out)
	if m.statusMessage == "" {
		m.statusMessage = "OK"
	}
	return m, clearStatusAfter()
}

// handleSave writes the machine back to the image it was opened from.
func (m Model) handleSave() (tea.Model, tea.Cmd) {
	if m.ephemeral {
		m.statusMessage = "No image file, start osexplorer with a path to save"
		return m, clearStatusAfter()
	}
	if err := image.Save(m.k, m.imagePath); err != nil {
		logger.Error("save failed", "path", m.imagePath, "error", err)
		m.statusMessage = fmt.Sprintf("Save failed: %v", err)
		return m, clearStatusAfter()
	}
	logger.Info("image saved", "path", m.imagePath)
	m.statusMessage = fmt.Sprintf("✓ Saved: %s", m.imagePath)
	return m, clearStatusAfter()
}

// handleCopy copies the selected block address or process PID to the
// system clipboard.
func (m Model) handleCopy() (tea.Model, tea.Cmd) {
	var text string
	switch m.focusedPane {
	case MemoryPane:
		b := m.selectedBlock()
		if b == nil {
			return m, nil
		}
		text = fmt.Sprintf("0x%06X", b.Address)
	case ProcessPane:
		p := m.selectedProcess()
		if p == nil {
			return m, nil
		}
		text = fmt.Sprintf("%d", p.PID)
	}

	if err := clipboard.WriteAll(text); err != nil {
		logger.Warn("clipboard write failed", "error", err)
		m.statusMessage = "Failed to copy to clipboard"
		return m, clearStatusAfter()
	}
	m.statusMessage = fmt.Sprintf("✓ Copied: %s", text)
	return m, clearStatusAfter()
}

// firstLine returns the first line of a multi-line command output.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
