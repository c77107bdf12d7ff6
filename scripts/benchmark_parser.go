package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Family      string // benchmark function, e.g. "AllocFree"
	Variant     string // sub-benchmark path, e.g. "4KiB" or "blocks=256"
	Iterations  int
	NsPerOp     float64
	MBPerSec    float64
	BytesPerOp  int64
	AllocsPerOp int64
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	// Read benchmark output
	var scanner *bufio.Scanner
	var inputF *os.File
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		inputF = f
		scanner = bufio.NewScanner(f)
	} else {
		scanner = bufio.NewScanner(os.Stdin)
	}

	// Parse benchmarks
	results := parseBenchmarks(scanner)

	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	// Generate markdown report
	report := generateMarkdownReport(results)

	// Write output
	if *outputFile != "" {
		err := os.WriteFile(*outputFile, []byte(report), 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			if inputF != nil {
				inputF.Close()
			}
			os.Exit(1)
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
		}
	} else {
		fmt.Fprint(os.Stdout, report)
	}

	// Close input file if opened
	if inputF != nil {
		inputF.Close()
	}
}

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	// Regex to parse benchmark output lines
	// BenchmarkAllocFree/4KiB-8    10000    12450 ns/op    329.04 MB/s    4096 B/op    8 allocs/op
	benchmarkRegex := regexp.MustCompile(
		`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op` +
			`(?:\s+([\d.]+)\s+MB/s)?` +
			`(?:\s+([\d.]+)\s+B/op)?` +
			`(?:\s+([\d.]+)\s+allocs/op)?`,
	)

	for scanner.Scan() {
		line := scanner.Text()

		// Try to parse as JSON (from -json flag)
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		// Parse benchmark line
		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		name := matches[1]
		iterations, _ := strconv.Atoi(matches[2])
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)

		var mbPerSec float64
		var bytesPerOp int64
		var allocsPerOp int64

		if matches[4] != "" {
			mbPerSec, _ = strconv.ParseFloat(matches[4], 64)
		}
		if matches[5] != "" {
			bytesPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}
		if matches[6] != "" {
			allocsPerOp, _ = strconv.ParseInt(matches[6], 10, 64)
		}

		family, variant := splitBenchmarkName(name)

		results = append(results, BenchmarkResult{
			Name:        name,
			Family:      family,
			Variant:     variant,
			Iterations:  iterations,
			NsPerOp:     nsPerOp,
			MBPerSec:    mbPerSec,
			BytesPerOp:  bytesPerOp,
			AllocsPerOp: allocsPerOp,
		})
	}

	return results
}

// splitBenchmarkName breaks a benchmark name into its function and
// sub-benchmark parts, dropping the trailing -GOMAXPROCS suffix.
// Format: Benchmark<Family>/<variant>-<procs> or Benchmark<Family>-<procs>
func splitBenchmarkName(name string) (string, string) {
	parts := strings.Split(name, "/")

	family := strings.TrimPrefix(parts[0], "Benchmark")
	variant := strings.Join(parts[1:], "/")

	// Strip the -N procs suffix from whichever part carries it
	if variant != "" {
		if dashIdx := strings.LastIndex(variant, "-"); dashIdx > 0 {
			if _, err := strconv.Atoi(variant[dashIdx+1:]); err == nil {
				variant = variant[:dashIdx]
			}
		}
	} else {
		if dashIdx := strings.LastIndex(family, "-"); dashIdx > 0 {
			if _, err := strconv.Atoi(family[dashIdx+1:]); err == nil {
				family = family[:dashIdx]
			}
		}
	}

	return family, variant
}

func generateMarkdownReport(results []BenchmarkResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Benchmark Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	// Group by family, keep input order within a family
	families := []string{}
	grouped := make(map[string][]BenchmarkResult)
	for _, result := range results {
		if _, seen := grouped[result.Family]; !seen {
			families = append(families, result.Family)
		}
		grouped[result.Family] = append(grouped[result.Family], result)
	}
	sort.Strings(families)

	// Summary statistics
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total benchmarks**: %d\n", len(results)))
	sb.WriteString(fmt.Sprintf("- **Benchmark families**: %d\n", len(families)))
	sb.WriteString("\n")

	// Detailed results, one table per family
	sb.WriteString("## Detailed Results\n\n")

	for _, family := range families {
		sb.WriteString(fmt.Sprintf("### %s\n\n", family))
		sb.WriteString("| Variant | ns/op | MB/s | B/op | allocs/op |\n")
		sb.WriteString("|---------|-------|------|------|-----------|\n")

		for _, result := range grouped[family] {
			variant := result.Variant
			if variant == "" {
				variant = "-"
			}

			throughput := "-"
			if result.MBPerSec > 0 {
				throughput = fmt.Sprintf("%.2f", result.MBPerSec)
			}

			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				variant,
				formatNumber(result.NsPerOp),
				throughput,
				formatBytes(result.BytesPerOp),
				formatNumber(float64(result.AllocsPerOp)),
			))
		}
		sb.WriteString("\n")
	}

	// Category summaries
	sb.WriteString("## Performance by Category\n\n")

	categories := categorizeFamilies(results)
	for _, category := range []string{"Arena", "Image Codec", "Console", "Other"} {
		comps := categories[category]
		if len(comps) == 0 {
			continue
		}

		avgNs := 0.0
		for _, comp := range comps {
			avgNs += comp.NsPerOp
		}
		avgNs /= float64(len(comps))

		sb.WriteString(fmt.Sprintf("- **%s**: %d benchmarks, %s ns/op average\n",
			category, len(comps), formatNumber(avgNs)))
	}

	sb.WriteString("\n")

	// Notes
	sb.WriteString("## Notes\n\n")
	sb.WriteString("- **ns/op**: Time per operation, lower is better\n")
	sb.WriteString("- **MB/s**: Image bytes processed per second, higher is better\n")
	sb.WriteString("- **B/op / allocs/op**: Heap cost per operation, fewer is better\n")

	return sb.String()
}

func categorizeFamilies(results []BenchmarkResult) map[string][]BenchmarkResult {
	categories := map[string][]BenchmarkResult{
		"Arena":       {},
		"Image Codec": {},
		"Console":     {},
		"Other":       {},
	}

	for _, result := range results {
		family := strings.ToLower(result.Family)

		switch {
		case strings.Contains(family, "exec"):
			categories["Console"] = append(categories["Console"], result)
		case strings.Contains(family, "encode") || strings.Contains(family, "decode") ||
			strings.Contains(family, "save") || strings.Contains(family, "load"):
			categories["Image Codec"] = append(categories["Image Codec"], result)
		case strings.Contains(family, "alloc") || strings.Contains(family, "free") ||
			strings.Contains(family, "firstfit") || strings.Contains(family, "stats"):
			categories["Arena"] = append(categories["Arena"], result)
		default:
			categories["Other"] = append(categories["Other"], result)
		}
	}

	return categories
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
