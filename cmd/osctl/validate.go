package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oskit-dev/oskit/image/verify"
)

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <image>",
		Short: "Validate image structure and consistency",
		Long: `The validate command checks a machine image for structural integrity:
the header fields, checksum, and write sequence, the section table, and the
internal consistency of the memory partition, the process table, and the
file tree.

Example:
  osctl validate machine.osim
  osctl validate machine.osim --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args)
		},
	}
	return cmd
}

type validateCheck struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func runValidate(args []string) error {
	imagePath := args[0]

	printVerbose("Reading image: %s\n", imagePath)

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	checks := []struct {
		name string
		fn   func([]byte) error
	}{
		{"Header", verify.ImageHeader},
		{"Checksum", verify.Checksum},
		{"Sequence numbers", verify.SequenceNumbers},
		{"Image size", verify.ImageSize},
		{"Section table", verify.SectionTable},
		{"Memory partition", verify.MemoryPartition},
		{"Process table", verify.ProcessTable},
		{"File tree", verify.FileTree},
	}

	var results []validateCheck
	var firstErr error
	for _, c := range checks {
		err := c.fn(data)
		r := validateCheck{Name: c.name, OK: err == nil}
		if err != nil {
			r.Error = err.Error()
			if firstErr == nil {
				firstErr = err
			}
		}
		results = append(results, r)
	}

	// Output as JSON if requested
	if jsonOut {
		return printJSON(map[string]interface{}{
			"file":   imagePath,
			"valid":  firstErr == nil,
			"checks": results,
		})
	}

	// Text output
	printInfo("\nValidating %s...\n\n", imagePath)

	for _, r := range results {
		if r.OK {
			printInfo("  ✓ %s\n", r.Name)
		} else {
			printInfo("  ✗ %s: %s\n", r.Name, r.Error)
		}
	}

	if firstErr != nil {
		printInfo("\nResult: ✗ INVALID\n")
		return firstErr
	}

	printInfo("\nResult: ✓ VALID\n")

	return nil
}
