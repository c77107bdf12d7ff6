package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oskit-dev/oskit/image"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <image>",
		Short: "Validate an image header and report basic metadata",
		Long: `The info command reads the header and section table of a machine image
and displays basic metadata: format version, write sequence, save time, and
the section layout. The payloads are not inspected; use validate for a full
structural check.

Example:
  osctl info machine.osim
  osctl info machine.osim --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

func runInfo(args []string) error {
	imagePath := args[0]

	printVerbose("Opening image: %s\n", imagePath)

	info, err := image.Stat(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image info: %w", err)
	}

	if jsonOut {
		return printJSON(info)
	}

	printInfo("\nImage Information:\n")
	printInfo("  File: %s\n", info.Path)

	size := info.FileSize
	if size < 1024 {
		printInfo("  Size: %d bytes\n", size)
	} else if size < 1024*1024 {
		printInfo("  Size: %.1f KB\n", float64(size)/1024)
	} else {
		printInfo("  Size: %.1f MB\n", float64(size)/(1024*1024))
	}

	printInfo("  Format version: %d.%d\n", info.MajorVersion, info.MinorVersion)
	printInfo("  Sequence: %d/%d\n", info.PrimarySequence, info.SecondarySequence)
	if info.Clean {
		printInfo("  Written: clean\n")
	} else {
		printInfo("  Written: torn (sequence mismatch)\n")
	}
	printInfo("  Saved: %s\n", info.SavedAt.Format(time.RFC3339))

	printInfo("\nSections:\n")
	for _, s := range info.Sections {
		printInfo("  %-5s offset 0x%X, %d bytes\n", s.Tag, s.Offset, s.Length)
	}

	return nil
}
