package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

// View renders the entire UI
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	// If help overlay is showing, render it
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	// If the kill dialog is open, render it over the main view
	if m.confirmKill {
		// Recreate the overlay each render so it sees the latest state
		// (bubbletea's Update returns new models, stored pointers would be stale)
		dialog := &confirmModel{target: m.killTarget}
		background := NewMainViewModel(&m)
		killOverlay := overlay.New(
			dialog,
			background,
			overlay.Center, // horizontal position
			overlay.Center, // vertical position
			0,
			0,
		)
		return killOverlay.View()
	}

	header := m.renderHeader()
	content := m.renderContent()
	status := m.renderStatus()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		status,
	)
}

// layout returns the pane column width and row heights for the current
// terminal size. Update and View must agree on these numbers.
func (m Model) layout() (paneWidth, listHeight, infoHeight int) {
	paneWidth = m.width / 2
	paneHeight := max(m.height-8, 5)
	infoHeight = InfoPanelHeight + InfoPanelSpacing
	listHeight = paneHeight - infoHeight
	if listHeight < 5 {
		listHeight = 5
		infoHeight = paneHeight - listHeight
	}
	return paneWidth, listHeight, infoHeight
}

// renderHeader renders the header with the image path
func (m Model) renderHeader() string {
	title := "OS Image Explorer"
	source := fmt.Sprintf("Image: %s", m.imageLabel())

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		headerStyle.Render(title),
		lipgloss.NewStyle().Render("  "),
		pathStyle.Render(source),
	)
}

// renderContent renders the split-pane content
func (m Model) renderContent() string {
	paneWidth, listHeight, infoHeight := m.layout()
	leftWidth := paneWidth
	rightWidth := m.width - leftWidth

	// Left column: block table with the machine panel below it
	blocks := m.snap.Memory.Blocks
	memTitle := "Memory"
	if len(blocks) > 0 {
		memTitle = fmt.Sprintf("Memory (%d blocks) [%d/%d]", len(blocks), m.memPane.cursor+1, len(blocks))
	}
	memRows := lipgloss.NewStyle().
		Width(leftWidth - 4).
		Height(listHeight).
		Render(m.renderMemoryRows())
	memBox := m.paneBorder(MemoryPane).
		Width(leftWidth - 2).
		Height(listHeight + 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, memTitle, memRows))

	leftColumn := lipgloss.JoinVertical(
		lipgloss.Left,
		memBox,
		m.renderMachineInfo(leftWidth-2, infoHeight),
	)

	// Right column: process table with the selection detail below it
	procs := m.snap.Processes
	procTitle := "Processes"
	if len(procs) > 0 {
		procTitle = fmt.Sprintf("Processes (%d) [%d/%d]", len(procs), m.procPane.cursor+1, len(procs))
	}
	procRows := lipgloss.NewStyle().
		Width(rightWidth - 4).
		Height(listHeight).
		Render(m.renderProcessRows())
	procBox := m.paneBorder(ProcessPane).
		Width(rightWidth - 2).
		Height(listHeight + 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, procTitle, procRows))

	rightColumn := lipgloss.JoinVertical(
		lipgloss.Left,
		procBox,
		m.renderDetail(rightWidth-2, infoHeight),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftColumn,
		rightColumn,
	)
}

// paneBorder returns the border style for a pane, highlighted when the
// pane has focus.
func (m Model) paneBorder(p Pane) lipgloss.Style {
	if m.focusedPane == p {
		return activePaneStyle
	}
	return paneStyle
}

// renderMemoryRows renders the visible window of the block table.
func (m Model) renderMemoryRows() string {
	blocks := m.snap.Memory.Blocks

	var b strings.Builder
	b.WriteString(tableHeaderStyle.Render(
		fmt.Sprintf("%-10s %9s  %-9s %5s", "ADDRESS", "SIZE", "STATUS", "PID")))

	start, end := m.memPane.window(len(blocks))
	for i := start; i < end; i++ {
		blk := blocks[i]
		owner := "-"
		if !blk.Free() {
			owner = fmt.Sprintf("%d", blk.Owner)
		}
		addr := fmt.Sprintf("%-10s", fmt.Sprintf("0x%06X", blk.Address))
		size := fmt.Sprintf("%9s", humanize.IBytes(blk.Size))
		status := fmt.Sprintf("%-9s", blk.Status)
		pid := fmt.Sprintf("%5s", owner)

		b.WriteString("\n")
		if i == m.memPane.cursor {
			b.WriteString(tableSelectedStyle.Render(addr + " " + size + "  " + status + " " + pid))
		} else {
			b.WriteString(addr + " " + size + "  " + blockStyle(blk).Render(status) + " " + pid)
		}
	}
	return b.String()
}

// renderProcessRows renders the visible window of the process table.
func (m Model) renderProcessRows() string {
	procs := m.snap.Processes

	var b strings.Builder
	b.WriteString(tableHeaderStyle.Render(
		fmt.Sprintf("%5s  %-14s %-10s %3s %9s", "PID", "NAME", "STATE", "PRI", "MEMORY")))

	start, end := m.procPane.window(len(procs))
	for i := start; i < end; i++ {
		p := procs[i]
		pid := fmt.Sprintf("%5d", p.PID)
		name := fmt.Sprintf("%-14s", truncate(p.Name, 14))
		state := fmt.Sprintf("%-10s", p.State)
		pri := fmt.Sprintf("%3d", p.Priority)
		memCol := fmt.Sprintf("%9s", humanize.IBytes(p.MemoryBytes))

		b.WriteString("\n")
		if i == m.procPane.cursor {
			b.WriteString(tableSelectedStyle.Render(pid + "  " + name + " " + state + " " + pri + " " + memCol))
		} else {
			b.WriteString(pid + "  " + name + " " + stateStyle(p.State).Render(state) + " " + pri + " " + memCol)
		}
	}
	return b.String()
}

// renderMachineInfo renders the machine summary panel under the block
// table.
func (m Model) renderMachineInfo(width, height int) string {
	labelStyle := lipgloss.NewStyle().
		Foreground(primaryColor).
		Width(12)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FAFAFA"))

	st := m.snap.Memory
	usedPct := 0.0
	if st.Capacity > 0 {
		usedPct = float64(st.UsedBytes) / float64(st.Capacity) * 100
	}

	content := modalTitleStyle.Render("MACHINE") + "\n"
	content += labelStyle.Render("Kernel:") + " " + valueStyle.Render(m.k.Info()) + "\n"
	content += labelStyle.Render("Capacity:") + " " + valueStyle.Render(humanize.IBytes(st.Capacity)) + "\n"
	content += labelStyle.Render("Used:") + " " +
		valueStyle.Render(fmt.Sprintf("%s (%.1f%%)", humanize.IBytes(st.UsedBytes), usedPct)) + "\n"
	content += labelStyle.Render("Free:") + " " + valueStyle.Render(humanize.IBytes(st.FreeBytes)) + "\n"
	content += labelStyle.Render("Working dir:") + " " + valueStyle.Render(m.snap.WorkingDir)

	return paneStyle.
		Width(width).
		Height(height).
		Render(content)
}

// renderDetail renders the detail panel for whatever the focused pane
// has selected.
func (m Model) renderDetail(width, height int) string {
	labelStyle := lipgloss.NewStyle().
		Foreground(primaryColor).
		Width(10)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FAFAFA"))

	var content string
	switch m.focusedPane {
	case MemoryPane:
		content = modalTitleStyle.Render("BLOCK") + "\n"
		b := m.selectedBlock()
		if b == nil {
			content += helpDescStyle.Render("No blocks")
			break
		}
		owner := "none"
		if !b.Free() {
			owner = fmt.Sprintf("PID %d", b.Owner)
		}
		content += labelStyle.Render("Address:") + " " +
			valueStyle.Render(fmt.Sprintf("0x%06X", b.Address)) + "\n"
		content += labelStyle.Render("Size:") + " " +
			valueStyle.Render(fmt.Sprintf("%s (%d bytes)", humanize.IBytes(b.Size), b.Size)) + "\n"
		content += labelStyle.Render("Status:") + " " + blockStyle(*b).Render(b.Status.String()) + "\n"
		content += labelStyle.Render("Owner:") + " " + valueStyle.Render(owner) + "\n"
		content += labelStyle.Render("Range:") + " " +
			valueStyle.Render(fmt.Sprintf("0x%06X-0x%06X", b.Address, b.End()))

	case ProcessPane:
		content = modalTitleStyle.Render("PROCESS") + "\n"
		p := m.selectedProcess()
		if p == nil {
			content += helpDescStyle.Render("No processes")
			break
		}
		content += labelStyle.Render("PID:") + " " + valueStyle.Render(fmt.Sprintf("%d", p.PID)) + "\n"
		content += labelStyle.Render("Name:") + " " + valueStyle.Render(p.Name) + "\n"
		content += labelStyle.Render("State:") + " " + stateStyle(p.State).Render(p.State.String()) + "\n"
		content += labelStyle.Render("Priority:") + " " + valueStyle.Render(fmt.Sprintf("%d", p.Priority)) + "\n"
		content += labelStyle.Render("Memory:") + " " +
			valueStyle.Render(fmt.Sprintf("%s (%d bytes)", humanize.IBytes(p.MemoryBytes), p.MemoryBytes))
	}

	return paneStyle.
		Width(width).
		Height(height).
		Render(content)
}

// renderStatus renders the status bar with help text
func (m Model) renderStatus() string {
	// Show the command bar if it has focus
	if m.inputMode == CommandMode {
		return statusStyle.Width(m.width).Render(m.cmdInput.View())
	}

	// Show status message if set (takes priority over normal help)
	if m.statusMessage != "" {
		return statusStyle.Width(m.width).Render(
			commandPromptStyle.Render(m.statusMessage),
		)
	}

	// Build help text based on context
	var help strings.Builder
	help.WriteString(helpStyle.Render("↑/↓: Navigate"))
	help.WriteString(" │ ")
	switch m.focusedPane {
	case MemoryPane:
		help.WriteString(helpStyle.Render("Tab: Processes"))
	default:
		help.WriteString(helpStyle.Render("Tab: Memory"))
		help.WriteString(" │ ")
		help.WriteString(helpStyle.Render("x: Kill"))
	}
	help.WriteString(" │ ")
	help.WriteString(helpStyle.Render(": Command"))
	help.WriteString(" │ ")
	help.WriteString(helpStyle.Render("c: Copy"))
	help.WriteString(" │ ")
	help.WriteString(helpStyle.Render("s: Save"))
	help.WriteString(" │ ")
	help.WriteString(helpStyle.Render("?: Help"))
	help.WriteString(" │ ")
	help.WriteString(helpStyle.Render("q: Quit"))

	// Status line with counts and the image path
	var stats strings.Builder
	stats.WriteString(statusCountStyle.Render(fmt.Sprintf("%d", len(m.snap.Memory.Blocks))))
	stats.WriteString(" blocks │ ")
	stats.WriteString(statusCountStyle.Render(fmt.Sprintf("%d", len(m.snap.Processes))))
	stats.WriteString(" processes │ ")
	stats.WriteString(pathStyle.Render(truncate(m.imageLabel(), 40)))

	statusLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		help.String(),
		lipgloss.NewStyle().Width(10).Render(""), // Spacer
		stats.String(),
	)

	return statusStyle.
		Width(m.width).
		Render(statusLine)
}

// renderHelpOverlay renders the help overlay
func (m Model) renderHelpOverlay() string {
	var helpContent strings.Builder

	title := helpTitleStyle.Render("Keyboard Shortcuts")
	helpContent.WriteString(title)
	helpContent.WriteString("\n\n")

	// Key column width for alignment
	const keyWidth = 14

	// Navigation section
	helpContent.WriteString(modalTitleStyle.Render("Navigation"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("↑/↓ or k/j"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Move cursor up/down"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("PgUp/PgDn"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Page up/down"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("Home or g"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Go to top"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("End or G"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Go to bottom"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("Tab"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Switch between memory and processes"))
	helpContent.WriteString("\n\n")

	// Actions section
	helpContent.WriteString(modalTitleStyle.Render("Actions"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("x"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Kill selected process (frees its memory)"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("c"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Copy block address or PID to clipboard"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("s"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Save machine back to its image file"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("r or F5"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Refresh the snapshot"))
	helpContent.WriteString("\n\n")

	// Command bar section
	helpContent.WriteString(modalTitleStyle.Render("Command Bar"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render(":"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Open the command bar"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("Enter"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Run the command"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("Esc"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Cancel input"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpDescStyle.Render("Any console command works: mem-alloc, proc-create,"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpDescStyle.Render("mkdir, cat, restart... Type :q to quit."))
	helpContent.WriteString("\n\n")

	// Other section
	helpContent.WriteString(modalTitleStyle.Render("Other"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("?"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Show this help"))
	helpContent.WriteString("\n")
	helpContent.WriteString(helpKeyStyle.Width(keyWidth).Render("q or Ctrl+C"))
	helpContent.WriteString("  ")
	helpContent.WriteString(helpDescStyle.Render("Quit"))
	helpContent.WriteString("\n\n")

	helpContent.WriteString(helpStyle.Render("Press Esc, ?, or q to close this help"))

	// Create bordered help box
	helpBox := modalStyle.
		Width(60).
		Render(helpContent.String())

	// Calculate centering
	helpHeight := lipgloss.Height(helpBox)
	helpWidth := lipgloss.Width(helpBox)

	verticalPadding := (m.height - helpHeight) / 2
	horizontalPadding := (m.width - helpWidth) / 2

	if verticalPadding < 0 {
		verticalPadding = 0
	}
	if horizontalPadding < 0 {
		horizontalPadding = 0
	}

	// Position the help box
	positioned := lipgloss.NewStyle().
		MarginTop(verticalPadding).
		MarginLeft(horizontalPadding).
		Render(helpBox)

	return positioned
}
