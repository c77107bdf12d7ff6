// Package printer renders kernel reports for terminals and machine
// consumers. The allocator and its sibling subsystems only return values;
// all presentation lives here.
package printer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/oskit-dev/oskit/mem"
	"github.com/oskit-dev/oskit/proc"
	"github.com/oskit-dev/oskit/vfs"
)

// Format specifies the output format for reports.
type Format string

const (
	// FormatText outputs human-readable text.
	FormatText Format = "text"

	// FormatJSON outputs JSON.
	FormatJSON Format = "json"
)

// Options controls report rendering.
type Options struct {
	// Format specifies the output format (text, json).
	// Default: FormatText
	Format Format

	// HumanSizes annotates byte counts with humanized sizes in text
	// output ("1048576 bytes (1.0 MiB)").
	// Default: true
	HumanSizes bool

	// ShowBlocks includes the per-block table in memory reports.
	// Default: true
	ShowBlocks bool
}

// DefaultOptions returns sensible defaults for rendering.
func DefaultOptions() Options {
	return Options{
		Format:     FormatText,
		HumanSizes: true,
		ShowBlocks: true,
	}
}

// Printer renders reports to a writer.
type Printer struct {
	w    io.Writer
	opts Options
}

// New creates a Printer writing to w.
func New(w io.Writer, opts Options) *Printer {
	return &Printer{w: w, opts: opts}
}

type blockJSON struct {
	Address uint64 `json:"address"`
	Size    uint64 `json:"size"`
	Status  string `json:"status"`
	Owner   int32  `json:"owner,omitempty"`
}

type memoryJSON struct {
	Capacity   uint64      `json:"capacity"`
	FreeBytes  uint64      `json:"free_bytes"`
	UsedBytes  uint64      `json:"used_bytes"`
	BlockCount int         `json:"block_count"`
	Blocks     []blockJSON `json:"blocks,omitempty"`
}

// MemoryReport renders an arena snapshot: totals with two-decimal
// percentages, then the address-ordered block table with "-" for the
// owner of free blocks.
func (p *Printer) MemoryReport(st mem.Stats) error {
	if p.opts.Format == FormatJSON {
		out := memoryJSON{
			Capacity:   st.Capacity,
			FreeBytes:  st.FreeBytes,
			UsedBytes:  st.UsedBytes,
			BlockCount: st.BlockCount,
		}
		if p.opts.ShowBlocks {
			for _, b := range st.Blocks {
				out.Blocks = append(out.Blocks, blockJSON{
					Address: b.Address,
					Size:    b.Size,
					Status:  b.Status.String(),
					Owner:   int32(b.Owner),
				})
			}
		}
		return p.printJSON(out)
	}

	usedPct := float64(st.UsedBytes) / float64(st.Capacity) * 100
	freePct := float64(st.FreeBytes) / float64(st.Capacity) * 100

	fmt.Fprintf(p.w, "Memory: %s total\n", p.bytes(st.Capacity))
	fmt.Fprintf(p.w, "  Used: %d bytes (%.2f%%)\n", st.UsedBytes, usedPct)
	fmt.Fprintf(p.w, "  Free: %d bytes (%.2f%%)\n", st.FreeBytes, freePct)
	fmt.Fprintf(p.w, "  Blocks: %d\n", st.BlockCount)

	if p.opts.ShowBlocks {
		fmt.Fprintf(p.w, "\n  %-12s %-12s %-12s %s\n", "Address", "Size", "Status", "Process")
		for _, b := range st.Blocks {
			owner := "-"
			if b.Status == mem.StatusAllocated {
				owner = fmt.Sprintf("%d", b.Owner)
			}
			fmt.Fprintf(p.w, "  %-12d %-12d %-12s %s\n", b.Address, b.Size, b.Status, owner)
		}
	}
	return nil
}

type processJSON struct {
	PID         int32  `json:"pid"`
	Name        string `json:"name"`
	State       string `json:"state"`
	Priority    int    `json:"priority"`
	MemoryBytes uint64 `json:"memory_bytes"`
}

// ProcessReport renders the process table in PID order.
func (p *Printer) ProcessReport(procs []proc.Process) error {
	if p.opts.Format == FormatJSON {
		out := make([]processJSON, 0, len(procs))
		for _, pr := range procs {
			out = append(out, processJSON{
				PID:         int32(pr.PID),
				Name:        pr.Name,
				State:       pr.State.String(),
				Priority:    pr.Priority,
				MemoryBytes: pr.MemoryBytes,
			})
		}
		return p.printJSON(out)
	}

	fmt.Fprintf(p.w, "Processes: %d\n\n", len(procs))
	fmt.Fprintf(p.w, "  %-6s %-16s %-12s %-10s %s\n", "PID", "Name", "State", "Priority", "Memory")
	for _, pr := range procs {
		fmt.Fprintf(p.w, "  %-6d %-16s %-12s %-10d %s\n",
			pr.PID, pr.Name, pr.State, pr.Priority, p.bytes(pr.MemoryBytes))
	}
	return nil
}

// ProcessDetail renders a single process control block.
func (p *Printer) ProcessDetail(pr proc.Process) error {
	if p.opts.Format == FormatJSON {
		return p.printJSON(processJSON{
			PID:         int32(pr.PID),
			Name:        pr.Name,
			State:       pr.State.String(),
			Priority:    pr.Priority,
			MemoryBytes: pr.MemoryBytes,
		})
	}

	fmt.Fprintf(p.w, "PID: %d\n", pr.PID)
	fmt.Fprintf(p.w, "Name: %s\n", pr.Name)
	fmt.Fprintf(p.w, "Priority: %d\n", pr.Priority)
	fmt.Fprintf(p.w, "State: %s\n", pr.State)
	fmt.Fprintf(p.w, "Memory allocated: %d bytes\n", pr.MemoryBytes)
	return nil
}

type listingJSON struct {
	Path    string     `json:"path"`
	Entries []nodeJSON `json:"entries"`
}

type nodeJSON struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Size     uint64 `json:"size"`
	Children int    `json:"children,omitempty"`
}

// ListingReport renders a directory listing, directories first.
func (p *Printer) ListingReport(path string, entries []vfs.NodeInfo) error {
	if p.opts.Format == FormatJSON {
		out := listingJSON{Path: path, Entries: make([]nodeJSON, 0, len(entries))}
		for _, e := range entries {
			out.Entries = append(out.Entries, nodeJSON{
				Name:     e.Name,
				Kind:     e.Kind.String(),
				Size:     e.Size,
				Children: e.Children,
			})
		}
		return p.printJSON(out)
	}

	if len(entries) == 0 {
		fmt.Fprintln(p.w, "Directory is empty")
		return nil
	}
	fmt.Fprintf(p.w, "Contents of %s:\n", path)
	for _, e := range entries {
		if e.Kind == vfs.KindDir {
			fmt.Fprintf(p.w, "  d %s/\n", e.Name)
		}
	}
	for _, e := range entries {
		if e.Kind == vfs.KindFile {
			fmt.Fprintf(p.w, "  f %s (%d bytes)\n", e.Name, e.Size)
		}
	}
	return nil
}

// NodeReport renders a single node's details.
func (p *Printer) NodeReport(ni vfs.NodeInfo) error {
	if p.opts.Format == FormatJSON {
		return p.printJSON(nodeJSON{
			Name:     ni.Name,
			Kind:     ni.Kind.String(),
			Size:     ni.Size,
			Children: ni.Children,
		})
	}

	if ni.Kind == vfs.KindDir {
		fmt.Fprintf(p.w, "Directory: %s\n", ni.Name)
		fmt.Fprintf(p.w, "Children: %d\n", ni.Children)
		fmt.Fprintf(p.w, "Total size: %d bytes\n", ni.Size)
		return nil
	}
	fmt.Fprintf(p.w, "File: %s\n", ni.Name)
	fmt.Fprintf(p.w, "Size: %d bytes\n", ni.Size)
	return nil
}

// bytes renders a byte count, humanized when enabled.
func (p *Printer) bytes(n uint64) string {
	if p.opts.HumanSizes {
		return fmt.Sprintf("%d bytes (%s)", n, humanize.IBytes(n))
	}
	return fmt.Sprintf("%d bytes", n)
}

func (p *Printer) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}
