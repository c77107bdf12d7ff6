package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oskit-dev/oskit/image"
	"github.com/oskit-dev/oskit/kernel"
)

// testImage writes a small machine image to a temp file and returns its
// path. The machine has a worker process with one allocation and a file
// under /home/user, so every section carries real state.
func testImage(t *testing.T) string {
	t.Helper()

	k := kernel.New(kernel.Config{Memory: 1024, SplitThreshold: 64, SplitThresholdSet: true})
	if err := k.Initialize(); err != nil {
		t.Fatalf("failed to boot machine: %v", err)
	}
	defer k.Close()

	for _, line := range []string{
		"proc-create worker 5",
		"mem-alloc 100 2",
		"mkdir /home/user",
		"touch /home/user/notes.txt",
	} {
		if _, err := k.Exec(line); err != nil {
			t.Fatalf("setup command %q failed: %v", line, err)
		}
	}

	path := filepath.Join(t.TempDir(), "machine.osim")
	if err := image.Save(k, path); err != nil {
		t.Fatalf("failed to save image: %v", err)
	}
	return path
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	// Save original stdout
	origStdout := os.Stdout

	// Create a pipe to capture output
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	// Redirect stdout to pipe
	os.Stdout = w

	// Run function
	fnErr := fn()

	// Close write end and restore stdout
	w.Close()
	os.Stdout = origStdout

	// Read captured output
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		if strings.Contains(output, dont) {
			t.Errorf("output contains unwanted string %q\nGot: %s", dont, output)
		}
	}
}
