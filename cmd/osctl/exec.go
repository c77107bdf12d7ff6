package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oskit-dev/oskit/image"
)

var execNoSave bool

func init() {
	cmd := newExecCmd()
	cmd.Flags().BoolVar(&execNoSave, "no-save", false, "Run the command without persisting the result")
	rootCmd.AddCommand(cmd)
}

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <image> <command> [args...]",
		Short: "Run a single command against an image",
		Long: `The exec command boots the machine from an image, runs one command
through the kernel dispatcher, and writes the image back if the command
succeeded. A failed command leaves the image untouched.

Example:
  osctl exec machine.osim proc-create worker 5
  osctl exec machine.osim mem-alloc 256 2
  osctl exec machine.osim ls /home`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(args)
		},
	}
	return cmd
}

func runExec(args []string) error {
	imagePath := args[0]
	command := strings.Join(args[1:], " ")

	printVerbose("Loading image: %s\n", imagePath)

	k, err := image.Load(imagePath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	defer func() { _ = k.Close() }()

	out, err := k.Exec(command)
	if err != nil {
		return fmt.Errorf("command failed: %w", err)
	}

	// A shutdown leaves nothing to persist.
	saved := false
	if !execNoSave && k.Running() {
		if err := image.Save(k, imagePath); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
		saved = true
	}

	if jsonOut {
		result := map[string]interface{}{
			"image":   imagePath,
			"command": command,
			"output":  out,
			"saved":   saved,
		}
		return printJSON(result)
	}

	if out != "" {
		printInfo("%s\n", out)
	}
	printVerbose("Image saved: %v\n", saved)

	return nil
}
