package image

import (
	"fmt"
	"time"

	"github.com/oskit-dev/oskit/internal/format"
	"github.com/oskit-dev/oskit/kernel"
	"github.com/oskit-dev/oskit/mem"
	"github.com/oskit-dev/oskit/proc"
	"github.com/oskit-dev/oskit/vfs"
)

// Encode serializes the machine into a fresh OSIM image. The kernel must
// be running. A fresh image starts at sequence 1; Save continues the
// sequence of the image it replaces instead.
func Encode(k *kernel.Kernel) ([]byte, error) {
	snap, err := k.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	return encodeSnapshot(snap, 1, time.Now())
}

// encodeSnapshot assembles header, section table, and payloads into one
// buffer. seq lands in both sequence fields; the payloads are laid out in
// a fixed order so section offsets stay deterministic for a given
// snapshot.
func encodeSnapshot(snap kernel.Snapshot, seq uint32, savedAt time.Time) ([]byte, error) {
	memPayload := encodeMemory(snap.Memory, uint64(snap.Config.SplitThreshold))
	procPayload, err := encodeProcesses(snap.Processes)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	fsPayload, err := encodeFileTree(snap.Tree, snap.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	cfgPayload, err := encodeConfig(snap.Config)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	sections := []struct {
		tag     [4]byte
		payload []byte
	}{
		{format.SectionMemory, memPayload},
		{format.SectionProcess, procPayload},
		{format.SectionFileTree, fsPayload},
		{format.SectionConfig, cfgPayload},
	}

	cursor := format.HeaderSize + len(sections)*format.SectionEntrySize
	offsets := make([]int, len(sections))
	for i, s := range sections {
		cursor = format.Align4(cursor)
		offsets[i] = cursor
		cursor += len(s.payload)
	}

	buf := make([]byte, cursor)
	for i, s := range sections {
		format.EncodeSection(buf, i, format.Section{
			Tag:    s.tag,
			Offset: uint32(offsets[i]),
			Length: uint32(len(s.payload)),
		})
		copy(buf[offsets[i]:], s.payload)
	}
	format.EncodeHeader(buf, format.Header{
		PrimarySequence:   seq,
		SecondarySequence: seq,
		SavedAtNanos:      uint64(savedAt.UnixNano()),
		MajorVersion:      format.MajorVersion,
		MinorVersion:      format.MinorVersion,
		SectionCount:      uint32(len(sections)),
		TotalSize:         uint64(len(buf)),
	})
	return buf, nil
}

func encodeMemory(st mem.Stats, threshold uint64) []byte {
	b := make([]byte, format.MemBlocksOffset+len(st.Blocks)*format.BlockRecordSize)
	format.PutU64(b, format.MemCapacityOffset, st.Capacity)
	format.PutU64(b, format.MemThresholdOffset, threshold)
	format.PutU32(b, format.MemBlockCountOffset, uint32(len(st.Blocks)))
	off := format.MemBlocksOffset
	for _, blk := range st.Blocks {
		format.PutU64(b, off+format.BlockAddressOffset, blk.Address)
		format.PutU64(b, off+format.BlockSizeOffset, blk.Size)
		if blk.Status == mem.StatusAllocated {
			b[off+format.BlockStatusOffset] = format.BlockStatusAllocated
		}
		format.PutI32(b, off+format.BlockOwnerOffset, int32(blk.Owner))
		off += format.BlockRecordSize
	}
	return b
}

func encodeProcesses(procs []proc.Process) ([]byte, error) {
	names := make([][]byte, len(procs))
	flags := make([]byte, len(procs))
	size := format.ProcRecordsOffset
	for i, p := range procs {
		nb, fl, err := format.EncodeName(p.Name)
		if err != nil {
			return nil, fmt.Errorf("process %d name: %w", p.PID, err)
		}
		names[i], flags[i] = nb, fl
		size += format.Align4(format.ProcFixedSize + len(nb))
	}

	b := make([]byte, size)
	format.PutU32(b, format.ProcCountOffset, uint32(len(procs)))
	off := format.ProcRecordsOffset
	for i, p := range procs {
		format.PutI32(b, off+format.ProcPIDOffset, int32(p.PID))
		format.PutI32(b, off+format.ProcPriorityOffset, int32(p.Priority))
		b[off+format.ProcStateOffset] = byte(p.State)
		b[off+format.ProcNameFlagOffset] = flags[i]
		format.PutU16(b, off+format.ProcNameLenOffset, uint16(len(names[i])))
		format.PutU64(b, off+format.ProcMemoryOffset, p.MemoryBytes)
		copy(b[off+format.ProcNameOffset:], names[i])
		off += format.Align4(format.ProcFixedSize + len(names[i]))
	}
	return b, nil
}

func encodeFileTree(entries []vfs.Entry, cwd string) ([]byte, error) {
	cwdBytes, cwdFlags, err := format.EncodeName(cwd)
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	paths := make([][]byte, len(entries))
	flags := make([]byte, len(entries))
	size := format.Align4(format.FSFixedSize + len(cwdBytes))
	for i, e := range entries {
		pb, fl, err := format.EncodeName(e.Path)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", e.Path, err)
		}
		paths[i], flags[i] = pb, fl
		size += format.Align4(format.EntryFixedSize + len(pb) + len(e.Content))
	}

	b := make([]byte, size)
	format.PutU32(b, format.FSCountOffset, uint32(len(entries)))
	b[format.FSCwdFlagOffset] = cwdFlags
	format.PutU16(b, format.FSCwdLenOffset, uint16(len(cwdBytes)))
	copy(b[format.FSCwdPathOffset:], cwdBytes)
	off := format.Align4(format.FSFixedSize + len(cwdBytes))
	for i, e := range entries {
		if e.Kind == vfs.KindFile {
			b[off+format.EntryKindOffset] = format.EntryKindFile
		}
		b[off+format.EntryPathFlagOffset] = flags[i]
		format.PutU16(b, off+format.EntryPathLenOffset, uint16(len(paths[i])))
		format.PutU32(b, off+format.EntryContentLenOffset, uint32(len(e.Content)))
		copy(b[off+format.EntryPathOffset:], paths[i])
		copy(b[off+format.EntryPathOffset+len(paths[i]):], e.Content)
		off += format.Align4(format.EntryFixedSize + len(paths[i]) + len(e.Content))
	}
	return b, nil
}

func encodeConfig(cfg kernel.Config) ([]byte, error) {
	nb, fl, err := format.EncodeName(cfg.InitName)
	if err != nil {
		return nil, fmt.Errorf("init name: %w", err)
	}
	b := make([]byte, format.Align4(format.CfgFixedSize+len(nb)))
	format.PutU64(b, format.CfgCapacityOffset, uint64(cfg.Memory))
	format.PutU64(b, format.CfgThresholdOffset, uint64(cfg.SplitThreshold))
	b[format.CfgNameFlagOffset] = fl
	format.PutU16(b, format.CfgNameLenOffset, uint16(len(nb)))
	copy(b[format.CfgNameOffset:], nb)
	return b, nil
}
