package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oskit-dev/oskit/image"
	"github.com/oskit-dev/oskit/kernel"
)

var (
	runScriptPath string
	runNoSave     bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVar(&runScriptPath, "script", "-", "Script file to run, or - for stdin")
	cmd.Flags().BoolVar(&runNoSave, "no-save", false, "Run the script without persisting the result")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Run a command script against an image",
		Long: `The run command boots the machine from an image and feeds it a script,
one command per line. Blank lines and lines starting with # are skipped.
Failed commands are reported and the script continues; the image is written
back at the end either way.

Example:
  osctl run machine.osim --script setup.osh
  cat setup.osh | osctl run machine.osim`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
	return cmd
}

type scriptResult struct {
	Command string `json:"command"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runRun(args []string) error {
	imagePath := args[0]

	var in io.Reader = os.Stdin
	if runScriptPath != "" && runScriptPath != "-" {
		f, err := os.Open(runScriptPath)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	printVerbose("Loading image: %s\n", imagePath)

	k, err := image.Load(imagePath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	defer func() { _ = k.Close() }()

	results, err := runScript(k, in)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}

	saved := false
	if !runNoSave && k.Running() {
		if err := image.Save(k, imagePath); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
		saved = true
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"image":    imagePath,
			"commands": results,
			"failed":   failed,
			"saved":    saved,
		})
	}

	for _, r := range results {
		printVerbose("> %s\n", r.Command)
		if r.Error != "" {
			printError("%s: %s\n", r.Command, r.Error)
			continue
		}
		if r.Output != "" {
			printInfo("%s\n", r.Output)
		}
	}
	printInfo("\n%d command(s) run, %d failed\n", len(results), failed)

	if failed > 0 {
		return fmt.Errorf("%d command(s) failed", failed)
	}
	return nil
}

// runScript feeds commands to the kernel one line at a time. Failures are
// recorded, not fatal, so a script behaves like its lines typed into the
// shell. A shutdown command stops the script early.
func runScript(k *kernel.Kernel, in io.Reader) ([]scriptResult, error) {
	var results []scriptResult
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res := scriptResult{Command: line}
		out, err := k.Exec(line)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Output = out
		}
		results = append(results, res)
		if !k.Running() {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return results, fmt.Errorf("failed to read script: %w", err)
	}
	return results, nil
}
