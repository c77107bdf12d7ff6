package image

import (
	"fmt"

	"github.com/oskit-dev/oskit/image/verify"
	"github.com/oskit-dev/oskit/internal/format"
	"github.com/oskit-dev/oskit/kernel"
	"github.com/oskit-dev/oskit/mem"
	"github.com/oskit-dev/oskit/proc"
	"github.com/oskit-dev/oskit/vfs"
)

// Decode verifies an OSIM image and rebuilds the machine it describes.
// The returned kernel is running. Structural problems surface as
// *verify.ValidationError; the subsystem restore constructors re-check
// their own invariants on top, so a decoded machine is never in a state a
// live one could not reach.
func Decode(data []byte) (*kernel.Kernel, error) {
	if err := verify.AllInvariants(data); err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	h, err := format.ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	sections, err := format.ParseSections(data, h.SectionCount)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	memSec, ok := format.FindSection(sections, format.SectionMemory)
	if !ok {
		return nil, fmt.Errorf("image: missing %q section", format.SectionMemory[:])
	}
	capacity, threshold, blocks, err := decodeMemory(memSec.Payload(data))
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	arena, err := mem.Restore(capacity, blocks, &mem.Options{SplitThreshold: threshold})
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	procSec, ok := format.FindSection(sections, format.SectionProcess)
	if !ok {
		return nil, fmt.Errorf("image: missing %q section", format.SectionProcess[:])
	}
	procs, err := decodeProcesses(procSec.Payload(data))
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	table, err := proc.RestoreTable(procs)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	fsSec, ok := format.FindSection(sections, format.SectionFileTree)
	if !ok {
		return nil, fmt.Errorf("image: missing %q section", format.SectionFileTree[:])
	}
	entries, cwd, err := decodeFileTree(fsSec.Payload(data))
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	fs, err := vfs.Restore(entries, cwd)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	cfgSec, ok := format.FindSection(sections, format.SectionConfig)
	if !ok {
		return nil, fmt.Errorf("image: missing %q section", format.SectionConfig[:])
	}
	cfg, err := decodeConfig(cfgSec.Payload(data))
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	return kernel.Restore(cfg, arena, table, fs)
}

func decodeMemory(b []byte) (capacity, threshold uint64, blocks []mem.Block, err error) {
	if len(b) < format.MemBlocksOffset {
		return 0, 0, nil, fmt.Errorf("memory section: %w", format.ErrTruncated)
	}
	capacity = format.ReadU64(b, format.MemCapacityOffset)
	threshold = format.ReadU64(b, format.MemThresholdOffset)
	count := int(format.ReadU32(b, format.MemBlockCountOffset))
	if len(b) < format.MemBlocksOffset+count*format.BlockRecordSize {
		return 0, 0, nil, fmt.Errorf("memory section: %w", format.ErrTruncated)
	}

	blocks = make([]mem.Block, 0, count)
	off := format.MemBlocksOffset
	for i := 0; i < count; i++ {
		var status mem.Status
		switch b[off+format.BlockStatusOffset] {
		case format.BlockStatusFree:
			status = mem.StatusFree
		case format.BlockStatusAllocated:
			status = mem.StatusAllocated
		default:
			return 0, 0, nil, fmt.Errorf("memory section: block %d: unknown status %d",
				i, b[off+format.BlockStatusOffset])
		}
		blocks = append(blocks, mem.Block{
			Address: format.ReadU64(b, off+format.BlockAddressOffset),
			Size:    format.ReadU64(b, off+format.BlockSizeOffset),
			Status:  status,
			Owner:   mem.Owner(format.ReadI32(b, off+format.BlockOwnerOffset)),
		})
		off += format.BlockRecordSize
	}
	return capacity, threshold, blocks, nil
}

func decodeProcesses(b []byte) ([]proc.Process, error) {
	if len(b) < format.ProcRecordsOffset {
		return nil, fmt.Errorf("process section: %w", format.ErrTruncated)
	}
	count := int(format.ReadU32(b, format.ProcCountOffset))
	procs := make([]proc.Process, 0, count)
	off := format.ProcRecordsOffset
	for i := 0; i < count; i++ {
		if off+format.ProcFixedSize > len(b) {
			return nil, fmt.Errorf("process section: record %d: %w", i, format.ErrTruncated)
		}
		nameLen := int(format.ReadU16(b, off+format.ProcNameLenOffset))
		if off+format.ProcFixedSize+nameLen > len(b) {
			return nil, fmt.Errorf("process section: record %d: %w", i, format.ErrTruncated)
		}
		name, err := format.DecodeName(
			b[off+format.ProcNameOffset:off+format.ProcNameOffset+nameLen],
			b[off+format.ProcNameFlagOffset],
		)
		if err != nil {
			return nil, fmt.Errorf("process section: record %d: %w", i, err)
		}
		state := proc.State(b[off+format.ProcStateOffset])
		if state > proc.StateTerminated {
			return nil, fmt.Errorf("process section: record %d: unknown state %d", i, state)
		}
		procs = append(procs, proc.Process{
			PID:         proc.PID(format.ReadI32(b, off+format.ProcPIDOffset)),
			Name:        name,
			Priority:    int(format.ReadI32(b, off+format.ProcPriorityOffset)),
			State:       state,
			MemoryBytes: format.ReadU64(b, off+format.ProcMemoryOffset),
		})
		off += format.Align4(format.ProcFixedSize + nameLen)
	}
	return procs, nil
}

func decodeFileTree(b []byte) ([]vfs.Entry, string, error) {
	if len(b) < format.FSFixedSize {
		return nil, "", fmt.Errorf("file tree section: %w", format.ErrTruncated)
	}
	count := int(format.ReadU32(b, format.FSCountOffset))
	cwdLen := int(format.ReadU16(b, format.FSCwdLenOffset))
	if format.FSFixedSize+cwdLen > len(b) {
		return nil, "", fmt.Errorf("file tree section: %w", format.ErrTruncated)
	}
	cwd, err := format.DecodeName(
		b[format.FSCwdPathOffset:format.FSCwdPathOffset+cwdLen],
		b[format.FSCwdFlagOffset],
	)
	if err != nil {
		return nil, "", fmt.Errorf("file tree section: working directory: %w", err)
	}

	entries := make([]vfs.Entry, 0, count)
	off := format.Align4(format.FSFixedSize + cwdLen)
	for i := 0; i < count; i++ {
		if off+format.EntryFixedSize > len(b) {
			return nil, "", fmt.Errorf("file tree section: entry %d: %w", i, format.ErrTruncated)
		}
		pathLen := int(format.ReadU16(b, off+format.EntryPathLenOffset))
		contentLen := int(format.ReadU32(b, off+format.EntryContentLenOffset))
		end := off + format.EntryFixedSize + pathLen + contentLen
		if end > len(b) {
			return nil, "", fmt.Errorf("file tree section: entry %d: %w", i, format.ErrTruncated)
		}
		path, err := format.DecodeName(
			b[off+format.EntryPathOffset:off+format.EntryPathOffset+pathLen],
			b[off+format.EntryPathFlagOffset],
		)
		if err != nil {
			return nil, "", fmt.Errorf("file tree section: entry %d: %w", i, err)
		}
		var kind vfs.Kind
		switch b[off+format.EntryKindOffset] {
		case format.EntryKindDir:
			kind = vfs.KindDir
		case format.EntryKindFile:
			kind = vfs.KindFile
		default:
			return nil, "", fmt.Errorf("file tree section: entry %d: unknown kind %d",
				i, b[off+format.EntryKindOffset])
		}
		var content []byte
		if contentLen > 0 {
			content = b[off+format.EntryPathOffset+pathLen : end]
		}
		entries = append(entries, vfs.Entry{Path: path, Kind: kind, Content: content})
		off += format.Align4(format.EntryFixedSize + pathLen + contentLen)
	}
	return entries, cwd, nil
}

func decodeConfig(b []byte) (kernel.Config, error) {
	if len(b) < format.CfgFixedSize {
		return kernel.Config{}, fmt.Errorf("config section: %w", format.ErrTruncated)
	}
	nameLen := int(format.ReadU16(b, format.CfgNameLenOffset))
	if format.CfgFixedSize+nameLen > len(b) {
		return kernel.Config{}, fmt.Errorf("config section: %w", format.ErrTruncated)
	}
	name, err := format.DecodeName(
		b[format.CfgNameOffset:format.CfgNameOffset+nameLen],
		b[format.CfgNameFlagOffset],
	)
	if err != nil {
		return kernel.Config{}, fmt.Errorf("config section: init name: %w", err)
	}
	return kernel.Config{
		Memory:         kernel.ByteSize(format.ReadU64(b, format.CfgCapacityOffset)),
		SplitThreshold: kernel.ByteSize(format.ReadU64(b, format.CfgThresholdOffset)),
		// A saved image records the effective threshold, zero included.
		SplitThresholdSet: true,
		InitName:          name,
	}, nil
}
