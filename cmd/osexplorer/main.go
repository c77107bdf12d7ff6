package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oskit-dev/oskit/cmd/osexplorer/logger"
)

// Build information. Populated at release time with -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Parse flags first (before positional args)
	args := os.Args[1:]
	debugMode := false

	// Extract --debug/-d flag
	filteredArgs := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "--debug" || arg == "-d" {
			debugMode = true
		} else {
			filteredArgs = append(filteredArgs, arg)
		}
	}

	// Initialize logger (must be before any logging calls)
	if err := logger.Init(logger.Options{
		Enabled: debugMode,
		Level:   slog.LevelDebug,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}

	imagePath := ""
	if len(filteredArgs) > 0 {
		switch filteredArgs[0] {
		case "--help", "-h":
			printHelp()
			os.Exit(0)
		case "--version", "-v":
			fmt.Printf("osexplorer %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built: %s\n", date)
			os.Exit(0)
		}
		imagePath = filteredArgs[0]
	}

	logger.Info("starting osexplorer", "path", imagePath, "debug", debugMode)

	// Check if the image exists; an empty path boots a scratch machine
	if imagePath != "" {
		if _, err := os.Stat(imagePath); err != nil {
			logger.Error("image file not found", "path", imagePath, "error", err)
			fmt.Fprintf(os.Stderr, "Error: image file not found: %s\n", imagePath)
			os.Exit(1)
		}
	}

	// Create the TUI model
	m, err := NewModel(imagePath)
	if err != nil {
		logger.Error("failed to open machine", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Create the Bubbletea program
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
	)

	// Run the program
	finalModel, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	// Clean up resources
	if model, ok := finalModel.(Model); ok {
		if err := model.Close(); err != nil {
			// Log error but don't fail - cleanup is best effort
			logger.Warn("error closing resources", "error", err)
		}
	}

	logger.Info("osexplorer exited normally")
}

func printHelp() {
	fmt.Println("osexplorer - Interactive TUI for mini OS machine images")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  osexplorer [options] [image-file]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Launches an interactive terminal UI for exploring a machine image.")
	fmt.Println("  With no image file, a scratch machine is booted from the default")
	fmt.Println("  configuration.")
	fmt.Println()
	fmt.Println("  Features:")
	fmt.Println("    - Split-pane layout (memory block table + process table)")
	fmt.Println("    - Keyboard navigation (vim-style keys supported)")
	fmt.Println("    - Run any console command from the : command bar")
	fmt.Println("    - Kill processes and watch their memory return to the free list")
	fmt.Println("    - Save the machine back to its image file (s)")
	fmt.Println()
	fmt.Println("  Navigation:")
	fmt.Println("    ↑/k, ↓/j    Navigate up/down")
	fmt.Println("    Tab         Switch between memory and process panes")
	fmt.Println("    :           Open the command bar")
	fmt.Println("    x           Kill the selected process")
	fmt.Println("    ?           Show help")
	fmt.Println("    q           Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -d, --debug    Enable debug logging to ~/.osexplorer/logs/")
	fmt.Println("  -h, --help     Show this help message")
	fmt.Println("  -v, --version  Show version information")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  osexplorer machine.osim")
	fmt.Println("  osexplorer --debug machine.osim")
	fmt.Println()
	fmt.Println("For non-interactive operations, use the 'osctl' command instead.")
}
