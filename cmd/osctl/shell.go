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

var shellNoSave bool

func init() {
	cmd := newShellCmd()
	cmd.Flags().BoolVar(&shellNoSave, "no-save", false, "Do not persist the image on exit")
	rootCmd.AddCommand(cmd)
}

func newShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell <image>",
		Short: "Interactive shell against a machine image",
		Long: `The shell command boots the machine from an image and reads commands
from stdin, one per line, until exit or EOF. The image is written back on
exit unless --no-save is given or the machine was shut down.

Example:
  osctl shell machine.osim`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(args)
		},
	}
	return cmd
}

func runShell(args []string) error {
	imagePath := args[0]

	k, err := image.Load(imagePath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	return shellLoop(k, imagePath, os.Stdin)
}

// shellLoop drives the interactive loop. It is split from runShell so tests
// can feed it a scripted stdin. It owns the kernel: the load builtin swaps
// it out mid-session.
func shellLoop(k *kernel.Kernel, imagePath string, in io.Reader) error {
	defer func() { _ = k.Close() }()

	fmt.Println("Mini OS Shell")
	fmt.Println("=============")
	fmt.Printf("\nMachine loaded from %s. Type 'help' for available commands, 'exit' to quit.\n", imagePath)

	scanner := bufio.NewScanner(in)
loop:
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		// Commands that belong to the shell, not the kernel.
		switch fields[0] {
		case "exit", "quit":
			break loop

		case "help":
			printShellHelp()
			continue

		case "save":
			path := imagePath
			if len(fields) > 1 {
				path = fields[1]
			}
			if err := image.Save(k, path); err != nil {
				printError("%v\n", err)
				continue
			}
			fmt.Printf("Machine state saved to %s\n", path)
			continue

		case "load":
			path := imagePath
			if len(fields) > 1 {
				path = fields[1]
			}
			loaded, err := image.Load(path)
			if err != nil {
				printError("%v\n", err)
				continue
			}
			_ = k.Close()
			k = loaded
			fmt.Printf("Machine state loaded from %s\n", path)
			continue
		}

		out, err := k.Exec(line)
		if err != nil {
			printError("%v\n", err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if !shellNoSave && k.Running() {
		if err := image.Save(k, imagePath); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
		fmt.Printf("Machine state saved to %s\n", imagePath)
	}

	fmt.Println("Mini OS terminated")
	return nil
}

func printShellHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  help                - Show this help message")
	fmt.Println("  exit, quit          - Exit the shell")
	fmt.Println("  save [path]         - Save the machine image")
	fmt.Println("  load [path]         - Reload the machine image, discarding changes")
	fmt.Println("  info                - Show kernel information")
	fmt.Println("  shutdown            - Shutdown the kernel")
	fmt.Println("  restart             - Restart the kernel")
	fmt.Println()
	fmt.Println("File system commands:")
	fmt.Println("  ls [path]           - List directory contents")
	fmt.Println("  cd <path>           - Change directory")
	fmt.Println("  pwd                 - Print working directory")
	fmt.Println("  mkdir <path>        - Create directory")
	fmt.Println("  touch <path>        - Create file")
	fmt.Println("  cat <path>          - Display file contents")
	fmt.Println("  fs-write <path> <text> - Write text to a file")
	fmt.Println("  rm <path>           - Remove file or directory")
	fmt.Println("  fs-info <path>      - Show file system node info")
	fmt.Println()
	fmt.Println("Process commands:")
	fmt.Println("  ps                  - List processes")
	fmt.Println("  proc-info <pid>     - Show process information")
	fmt.Println("  proc-create <name> [priority] - Create a new process")
	fmt.Println("  kill <pid>          - Terminate a process")
	fmt.Println()
	fmt.Println("Memory commands:")
	fmt.Println("  mem-stats           - Show memory statistics")
	fmt.Println("  mem-alloc <size> <pid> - Allocate memory")
	fmt.Println("  mem-free <address>  - Free memory")
	fmt.Println("  mem-free-proc <pid> - Free all memory for a process")
}
