package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oskit-dev/oskit/image"
	"github.com/oskit-dev/oskit/mem"
	"github.com/oskit-dev/oskit/vfs"
)

var statsNoBlocks bool

func init() {
	cmd := newStatsCmd()
	cmd.Flags().BoolVar(&statsNoBlocks, "no-blocks", false, "Omit the per-block table")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <image>",
		Short: "Show detailed machine statistics",
		Long: `The stats command boots the machine from an image and shows detailed
statistics for all three subsystems: memory usage and fragmentation, the
process table with its state distribution, and the file tree.

Example:
  osctl stats machine.osim
  osctl stats machine.osim --no-blocks
  osctl stats machine.osim --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args)
		},
	}
	return cmd
}

type MachineStats struct {
	FilePath     string
	FileSize     int64
	LastModified time.Time

	MemoryCapacity   uint64
	MemoryUsed       uint64
	MemoryFree       uint64
	BlockCount       int
	FreeBlockCount   int
	LargestFreeBlock uint64
	Blocks           []mem.Block

	ProcessCount     int
	ProcessesByState map[string]int
	TotalProcMemory  uint64

	DirCount       int
	FileCount      int
	TotalFileBytes uint64
	WorkingDir     string
}

func runStats(args []string) error {
	imagePath := args[0]

	printVerbose("Loading image: %s\n", imagePath)

	// Get file info
	fileInfo, err := os.Stat(imagePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	k, err := image.Load(imagePath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	defer func() { _ = k.Close() }()

	snap, err := k.Snapshot()
	if err != nil {
		return err
	}

	stats := MachineStats{
		FilePath:         imagePath,
		FileSize:         fileInfo.Size(),
		LastModified:     fileInfo.ModTime(),
		MemoryCapacity:   snap.Memory.Capacity,
		MemoryUsed:       snap.Memory.UsedBytes,
		MemoryFree:       snap.Memory.FreeBytes,
		BlockCount:       snap.Memory.BlockCount,
		ProcessCount:     len(snap.Processes),
		ProcessesByState: make(map[string]int),
		WorkingDir:       snap.WorkingDir,
	}
	if !statsNoBlocks {
		stats.Blocks = snap.Memory.Blocks
	}

	for _, b := range snap.Memory.Blocks {
		if b.Free() {
			stats.FreeBlockCount++
			if b.Size > stats.LargestFreeBlock {
				stats.LargestFreeBlock = b.Size
			}
		}
	}

	for _, pr := range snap.Processes {
		stats.ProcessesByState[pr.State.String()]++
		stats.TotalProcMemory += pr.MemoryBytes
	}

	for _, e := range snap.Tree {
		if e.Kind == vfs.KindDir {
			stats.DirCount++
		} else {
			stats.FileCount++
			stats.TotalFileBytes += uint64(len(e.Content))
		}
	}

	// Output as JSON if requested
	if jsonOut {
		return printJSON(stats)
	}

	// Text output
	printInfo("\nMachine Statistics: %s\n", imagePath)
	printInfo("%s\n\n", strings.Repeat("=", 40))

	printInfo("File Information:\n")
	printInfo("  Path: %s\n", imagePath)
	printInfo("  Size: %s (%s bytes)\n", formatBytes(stats.FileSize), formatNumber(stats.FileSize))
	printInfo("  Last Modified: %s\n\n", stats.LastModified.Format("2006-01-02 15:04:05"))

	usedPct := float64(stats.MemoryUsed) * 100.0 / float64(stats.MemoryCapacity)
	printInfo("Memory:\n")
	printInfo("  Capacity: %s\n", formatBytes(int64(stats.MemoryCapacity)))
	printInfo("  Used: %s (%.1f%%)\n", formatBytes(int64(stats.MemoryUsed)), usedPct)
	printInfo("  Free: %s\n", formatBytes(int64(stats.MemoryFree)))
	printInfo("  Blocks: %d (%d free, largest free %s)\n\n",
		stats.BlockCount, stats.FreeBlockCount, formatBytes(int64(stats.LargestFreeBlock)))

	if !statsNoBlocks {
		printInfo("  %-12s %-12s %-12s %s\n", "Address", "Size", "Status", "Process")
		for _, b := range stats.Blocks {
			owner := "-"
			if b.Status == mem.StatusAllocated {
				owner = fmt.Sprintf("%d", b.Owner)
			}
			printInfo("  %-12d %-12d %-12s %s\n", b.Address, b.Size, b.Status, owner)
		}
		printInfo("\n")
	}

	printInfo("Processes:\n")
	printInfo("  Total: %d\n", stats.ProcessCount)
	for _, state := range []string{"new", "ready", "running", "waiting", "terminated"} {
		if count, ok := stats.ProcessesByState[state]; ok {
			printInfo("  %s: %d\n", state, count)
		}
	}
	printInfo("  Allocated memory: %s\n\n", formatBytes(int64(stats.TotalProcMemory)))

	printInfo("File Tree:\n")
	printInfo("  Directories: %d\n", stats.DirCount)
	printInfo("  Files: %d (%s)\n", stats.FileCount, formatBytes(int64(stats.TotalFileBytes)))
	printInfo("  Working directory: %s\n", stats.WorkingDir)

	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	// Add commas
	var result strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}
