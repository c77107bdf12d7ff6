package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// TestScratchMachineBoot tests booting with no image file
func TestScratchMachineBoot(t *testing.T) {
	helper := NewTestHelper(t)
	helper.SendWindowSize(120, 40)

	model := helper.GetModel()
	if !model.ephemeral {
		t.Error("Model should be ephemeral without an image path")
	}
	if helper.ProcessCount() != 1 {
		t.Errorf("Scratch machine should have 1 process (init), got %d", helper.ProcessCount())
	}
	if helper.BlockCount() != 1 {
		t.Errorf("Fresh arena should have 1 free block, got %d", helper.BlockCount())
	}
	if !model.snap.Memory.Blocks[0].Free() {
		t.Error("The single block of a fresh arena should be free")
	}
	if model.imageLabel() != "scratch machine (unsaved)" {
		t.Errorf("Unexpected image label: %q", model.imageLabel())
	}

	t.Log("✓ Scratch machine boots with init process and a free arena")
}

// TestOpenImage tests opening an existing machine image
func TestOpenImage(t *testing.T) {
	helper, path := NewImageTestHelper(t)
	helper.SendWindowSize(120, 40)

	model := helper.GetModel()
	if model.ephemeral {
		t.Error("Model should not be ephemeral when opened from a file")
	}
	if model.imagePath != path {
		t.Errorf("Image path = %q, want %q", model.imagePath, path)
	}
	if helper.ProcessCount() != 2 {
		t.Errorf("Expected 2 processes (init, worker), got %d", helper.ProcessCount())
	}
	if helper.BlockCount() != 2 {
		t.Errorf("Expected 2 blocks (allocation + tail), got %d", helper.BlockCount())
	}
	if model.snap.Memory.UsedBytes != 100 {
		t.Errorf("Used bytes = %d, want 100", model.snap.Memory.UsedBytes)
	}

	procs := model.snap.Processes
	if procs[0].Name != "init" || procs[1].Name != "worker" {
		t.Errorf("Processes should be PID ordered: got %q, %q", procs[0].Name, procs[1].Name)
	}

	t.Log("✓ Machine image opens with its saved state intact")
}

// TestOpenCorruptImage tests that a garbage file is rejected
func TestOpenCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.osim")
	if err := os.WriteFile(path, []byte("this is not a machine image"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := NewModel(path)
	if err == nil {
		t.Fatal("NewModel should reject a corrupt image")
	}
	if !strings.Contains(err.Error(), "image") {
		t.Errorf("Error should mention the image: %v", err)
	}

	t.Log("✓ Corrupt image rejected at startup")
}

// TestRefreshClampsCursors tests cursor clamping when the lists shrink
func TestRefreshClampsCursors(t *testing.T) {
	helper, _ := NewImageTestHelper(t)
	helper.SendWindowSize(120, 40)

	// Move the process cursor to the worker (last row)
	helper.SendKey(tea.KeyTab)
	helper.SendKeyRune('j')
	if helper.GetProcessCursor() != 1 {
		t.Fatalf("Process cursor should be 1, got %d", helper.GetProcessCursor())
	}

	// Kill the worker through the kernel, then refresh
	if _, err := helper.model.k.Exec("kill 2"); err != nil {
		t.Fatalf("kill: %v", err)
	}
	helper.model.refresh()

	if helper.ProcessCount() != 1 {
		t.Fatalf("Expected 1 process after kill, got %d", helper.ProcessCount())
	}
	if helper.GetProcessCursor() != 0 {
		t.Errorf("Cursor should clamp to 0 after the list shrank, got %d", helper.GetProcessCursor())
	}

	t.Log("✓ Refresh clamps cursors to the new row counts")
}
