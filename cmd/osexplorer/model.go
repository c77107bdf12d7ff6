package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/oskit-dev/oskit/cmd/osexplorer/logger"
	"github.com/oskit-dev/oskit/image"
	"github.com/oskit-dev/oskit/kernel"
	"github.com/oskit-dev/oskit/mem"
	"github.com/oskit-dev/oskit/proc"
)

// Pane represents which pane is focused
type Pane int

const (
	MemoryPane Pane = iota
	ProcessPane
)

// Layout constants
const (
	InfoPanelHeight  = 6 // Height reserved for the machine info and detail panels
	InfoPanelSpacing = 2 // Spacing between the list panes and the panels below them
)

// InputMode represents different input modes
type InputMode int

const (
	NormalMode InputMode = iota
	CommandMode
)

// Model is the main application model
type Model struct {
	imagePath string
	ephemeral bool
	k         *kernel.Kernel
	snap      kernel.Snapshot
	keys      KeyMap

	focusedPane Pane
	inputMode   InputMode

	memPane  listPane
	procPane listPane

	// Command bar input, active while inputMode is CommandMode
	cmdInput textinput.Model

	// Kill confirmation dialog state
	confirmKill bool
	killTarget  proc.Process

	showHelp      bool
	statusMessage string

	width  int
	height int

	err error
}

// NewModel creates a new TUI model. An empty imagePath boots a scratch
// machine from the default configuration instead of loading a file.
func NewModel(imagePath string) (Model, error) {
	var k *kernel.Kernel
	if imagePath == "" {
		k = kernel.New(kernel.DefaultConfig())
		if err := k.Initialize(); err != nil {
			return Model{}, fmt.Errorf("boot machine: %w", err)
		}
		logger.Info("booted scratch machine")
	} else {
		loaded, err := image.Load(imagePath)
		if err != nil {
			return Model{}, err
		}
		k = loaded
		logger.Info("loaded machine image", "path", imagePath)
	}

	snap, err := k.Snapshot()
	if err != nil {
		_ = k.Close()
		return Model{}, err
	}

	ti := textinput.New()
	ti.Prompt = commandPromptStyle.Render(":")
	ti.CharLimit = 128

	return Model{
		imagePath:   imagePath,
		ephemeral:   imagePath == "",
		k:           k,
		snap:        snap,
		keys:        DefaultKeyMap(),
		focusedPane: MemoryPane,
		inputMode:   NormalMode,
		cmdInput:    ti,
	}, nil
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Close cleans up resources held by the model
func (m Model) Close() error {
	if m.k == nil {
		return nil
	}
	return m.k.Close()
}

// refresh re-captures the machine snapshot and clamps both cursors to
// the new row counts. Called after every command that may have mutated
// the machine.
func (m *Model) refresh() {
	snap, err := m.k.Snapshot()
	if err != nil {
		logger.Error("snapshot failed", "error", err)
		m.err = err
		return
	}
	m.snap = snap
	m.memPane.clampCursor(len(snap.Memory.Blocks))
	m.procPane.clampCursor(len(snap.Processes))
}

// selectedBlock returns a copy of the block under the memory cursor, or
// nil when the arena has no blocks.
func (m *Model) selectedBlock() *mem.Block {
	if m.memPane.cursor < 0 || m.memPane.cursor >= len(m.snap.Memory.Blocks) {
		return nil
	}
	b := m.snap.Memory.Blocks[m.memPane.cursor]
	return &b
}

// selectedProcess returns a copy of the process under the process
// cursor, or nil when the table is empty.
func (m *Model) selectedProcess() *proc.Process {
	if m.procPane.cursor < 0 || m.procPane.cursor >= len(m.snap.Processes) {
		return nil
	}
	p := m.snap.Processes[m.procPane.cursor]
	return &p
}

// imageLabel is the image path shown in the header and status bar.
func (m Model) imageLabel() string {
	if m.ephemeral {
		return "scratch machine (unsaved)"
	}
	return m.imagePath
}

// Messages

type clearStatusMsg struct{}

// clearStatusAfter clears the status line once the message has had time
// to be read.
func clearStatusAfter() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
