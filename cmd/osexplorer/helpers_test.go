package main

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oskit-dev/oskit/image"
	"github.com/oskit-dev/oskit/kernel"
)

// TestHelper provides utilities for driving the TUI in tests
type TestHelper struct {
	model Model
}

// NewTestHelper boots a scratch machine and wraps it in a test helper.
// The machine starts with just the init process and one free block.
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	m, err := NewModel("")
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	h := &TestHelper{model: m}
	t.Cleanup(func() { _ = h.model.Close() })
	return h
}

// NewImageTestHelper builds a small machine, saves it to a temp image,
// and opens the explorer on that file. The machine has two processes
// (init and worker) and one 100-byte allocation owned by the worker.
func NewImageTestHelper(t *testing.T) (*TestHelper, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machine.osim")

	k := kernel.New(kernel.Config{Memory: 1024, SplitThreshold: 64, SplitThresholdSet: true})
	if err := k.Initialize(); err != nil {
		t.Fatalf("initialize kernel: %v", err)
	}
	for _, cmd := range []string{
		"proc-create worker 5",
		"mem-alloc 100 2",
	} {
		if _, err := k.Exec(cmd); err != nil {
			t.Fatalf("exec %q: %v", cmd, err)
		}
	}
	if err := image.Save(k, path); err != nil {
		t.Fatalf("save image: %v", err)
	}
	if err := k.Close(); err != nil {
		t.Fatalf("close kernel: %v", err)
	}

	m, err := NewModel(path)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	h := &TestHelper{model: m}
	t.Cleanup(func() { _ = h.model.Close() })
	return h, path
}

// SendKey simulates a key press
func (h *TestHelper) SendKey(keyType tea.KeyType) *TestHelper {
	msg := tea.KeyMsg{Type: keyType}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// SendKeyRune simulates a character key press
func (h *TestHelper) SendKeyRune(r rune) *TestHelper {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// SendText simulates typing a string one rune at a time
func (h *TestHelper) SendText(s string) *TestHelper {
	for _, r := range s {
		h.SendKeyRune(r)
	}
	return h
}

// SendWindowSize simulates a window resize
func (h *TestHelper) SendWindowSize(width, height int) *TestHelper {
	msg := tea.WindowSizeMsg{Width: width, Height: height}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// RunCommand opens the command bar, types the line, and submits it
func (h *TestHelper) RunCommand(line string) *TestHelper {
	h.SendKeyRune(':')
	h.SendText(line)
	h.SendKey(tea.KeyEnter)
	return h
}

// GetModel returns the current model
func (h *TestHelper) GetModel() Model {
	return h.model
}

// GetView returns the rendered view
func (h *TestHelper) GetView() string {
	return h.model.View()
}

// GetFocusedPane returns the currently focused pane
func (h *TestHelper) GetFocusedPane() Pane {
	return h.model.focusedPane
}

// GetMemoryCursor returns the block table cursor position
func (h *TestHelper) GetMemoryCursor() int {
	return h.model.memPane.cursor
}

// GetProcessCursor returns the process table cursor position
func (h *TestHelper) GetProcessCursor() int {
	return h.model.procPane.cursor
}

// BlockCount returns the number of blocks in the current snapshot
func (h *TestHelper) BlockCount() int {
	return len(h.model.snap.Memory.Blocks)
}

// ProcessCount returns the number of processes in the current snapshot
func (h *TestHelper) ProcessCount() int {
	return len(h.model.snap.Processes)
}
