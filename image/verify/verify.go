// Package verify provides validation functions for OSIM machine images.
// The checks work on raw bytes so corrupt images can be diagnosed without
// rebuilding any subsystem.
package verify

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/oskit-dev/oskit/internal/format"
)

// ValidationError describes one failed check.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants validates every image invariant in one call: header,
// checksum, sequence numbers, size, section table, and the three payload
// structures. Returns the first error encountered, or nil if all checks
// pass.
func AllInvariants(data []byte) error {
	if err := ImageHeader(data); err != nil {
		return err
	}
	if err := Checksum(data); err != nil {
		return err
	}
	if err := SequenceNumbers(data); err != nil {
		return err
	}
	if err := ImageSize(data); err != nil {
		return err
	}
	if err := SectionTable(data); err != nil {
		return err
	}
	if err := MemoryPartition(data); err != nil {
		return err
	}
	if err := ProcessTable(data); err != nil {
		return err
	}
	if err := FileTree(data); err != nil {
		return err
	}
	return nil
}

// ImageHeader validates the signature, version, and section count of the
// image header.
func ImageHeader(data []byte) error {
	if len(data) < format.HeaderSize {
		return &ValidationError{
			Type:    "ImageHeader",
			Message: fmt.Sprintf("file too small: %d bytes (need %d)", len(data), format.HeaderSize),
			Offset:  -1,
		}
	}

	sig := data[format.SignatureOffset : format.SignatureOffset+format.SignatureSize]
	if !bytes.Equal(sig, format.Signature) {
		return &ValidationError{
			Type:    "ImageHeader",
			Message: fmt.Sprintf("invalid signature: got %q, expected %q", sig, format.Signature),
			Offset:  format.SignatureOffset,
		}
	}

	major := format.ReadU32(data, format.MajorVersionOffset)
	minor := format.ReadU32(data, format.MinorVersionOffset)
	if major != format.MajorVersion {
		return &ValidationError{
			Type:    "ImageHeader",
			Message: fmt.Sprintf("unsupported major version: %d (expected %d)", major, format.MajorVersion),
			Offset:  format.MajorVersionOffset,
		}
	}
	if minor > format.MinorVersion {
		return &ValidationError{
			Type:    "ImageHeader",
			Message: fmt.Sprintf("unsupported minor version: %d (at most %d)", minor, format.MinorVersion),
			Offset:  format.MinorVersionOffset,
		}
	}

	count := format.ReadU32(data, format.SectionCountOffset)
	if count == 0 {
		return &ValidationError{
			Type:    "ImageHeader",
			Message: "image has no sections",
			Offset:  format.SectionCountOffset,
		}
	}
	if count > format.MaxSections {
		return &ValidationError{
			Type:    "ImageHeader",
			Message: fmt.Sprintf("section count %d exceeds limit %d", count, format.MaxSections),
			Offset:  format.SectionCountOffset,
		}
	}

	return nil
}

// Checksum validates the XOR checksum over the header.
func Checksum(data []byte) error {
	if len(data) < format.HeaderSize {
		return &ValidationError{
			Type:    "Checksum",
			Message: "file too small for header",
			Offset:  -1,
		}
	}

	calculated := format.HeaderChecksum(data[:format.HeaderSize])
	stored := format.ReadU32(data, format.ChecksumOffset)
	if calculated != stored {
		return &ValidationError{
			Type:    "Checksum",
			Message: fmt.Sprintf("checksum mismatch: calculated=0x%08X, stored=0x%08X", calculated, stored),
			Offset:  format.ChecksumOffset,
			Details: map[string]interface{}{
				"calculated": calculated,
				"stored":     stored,
			},
		}
	}
	return nil
}

// SequenceNumbers checks that the primary and secondary sequences agree.
// A mismatch marks a torn image: the writer bumped the primary but never
// finished the payload.
func SequenceNumbers(data []byte) error {
	if len(data) < format.HeaderSize {
		return &ValidationError{
			Type:    "SequenceNumbers",
			Message: "file too small for header",
			Offset:  -1,
		}
	}

	primary := format.ReadU32(data, format.PrimarySeqOffset)
	secondary := format.ReadU32(data, format.SecondarySeqOffset)
	if primary != secondary {
		return &ValidationError{
			Type:    "SequenceNumbers",
			Message: fmt.Sprintf("sequences mismatch (torn image): primary=%d, secondary=%d", primary, secondary),
			Offset:  format.PrimarySeqOffset,
			Details: map[string]interface{}{
				"primary":   primary,
				"secondary": secondary,
			},
		}
	}
	return nil
}

// ImageSize checks that the file length matches the header's total size
// field, catching truncation and trailing garbage alike.
func ImageSize(data []byte) error {
	if len(data) < format.HeaderSize {
		return &ValidationError{
			Type:    "ImageSize",
			Message: fmt.Sprintf("file too small: %d bytes", len(data)),
			Offset:  -1,
		}
	}

	expected := format.ReadU64(data, format.TotalSizeOffset)
	actual := uint64(len(data))
	if actual != expected {
		return &ValidationError{
			Type:    "ImageSize",
			Message: fmt.Sprintf("image size mismatch: actual=%d, header says %d", actual, expected),
			Offset:  format.TotalSizeOffset,
			Details: map[string]interface{}{
				"actual":   actual,
				"expected": expected,
			},
		}
	}
	return nil
}

// knownTags lists every section tag the current format defines.
var knownTags = [][4]byte{
	format.SectionMemory,
	format.SectionProcess,
	format.SectionFileTree,
	format.SectionConfig,
}

// SectionTable validates the section table: every entry carries a known
// tag exactly once, lies within the file, does not overlap the header,
// the table, or another section, and all four required sections are
// present.
func SectionTable(data []byte) error {
	if len(data) < format.HeaderSize {
		return &ValidationError{
			Type:    "SectionTable",
			Message: "file too small for header",
			Offset:  -1,
		}
	}

	count := int(format.ReadU32(data, format.SectionCountOffset))
	if count > format.MaxSections {
		return &ValidationError{
			Type:    "SectionTable",
			Message: fmt.Sprintf("section count %d exceeds limit %d", count, format.MaxSections),
			Offset:  format.SectionCountOffset,
		}
	}
	tableEnd := format.HeaderSize + count*format.SectionEntrySize
	if len(data) < tableEnd {
		return &ValidationError{
			Type:    "SectionTable",
			Message: fmt.Sprintf("section table extends beyond file: need %d bytes, have %d", tableEnd, len(data)),
			Offset:  format.HeaderSize,
		}
	}

	type span struct {
		tag    [4]byte
		off    int64
		length int64
	}
	spans := make([]span, 0, count)
	seen := make(map[[4]byte]bool, count)
	for i := 0; i < count; i++ {
		base := format.HeaderSize + i*format.SectionEntrySize
		var tag [4]byte
		copy(tag[:], data[base+format.SectionTagOffset:])

		known := false
		for _, t := range knownTags {
			if tag == t {
				known = true
				break
			}
		}
		if !known {
			return &ValidationError{
				Type:    "SectionTable",
				Message: fmt.Sprintf("unknown section tag %q", tag[:]),
				Offset:  base,
			}
		}
		if seen[tag] {
			return &ValidationError{
				Type:    "SectionTable",
				Message: fmt.Sprintf("duplicate %q section", tag[:]),
				Offset:  base,
			}
		}
		seen[tag] = true

		off := int64(format.ReadU32(data, base+format.SectionOffOffset))
		length := int64(format.ReadU32(data, base+format.SectionLenOffset))
		if off < int64(tableEnd) {
			return &ValidationError{
				Type:    "SectionTable",
				Message: fmt.Sprintf("section %q at 0x%X overlaps header or table", tag[:], off),
				Offset:  base,
			}
		}
		if off+length > int64(len(data)) {
			return &ValidationError{
				Type:    "SectionTable",
				Message: fmt.Sprintf("section %q extends beyond file: 0x%X+%d, file is %d bytes", tag[:], off, length, len(data)),
				Offset:  base,
			}
		}
		if off%format.RecordAlignment != 0 {
			return &ValidationError{
				Type:    "SectionTable",
				Message: fmt.Sprintf("section %q payload at 0x%X is not %d-byte aligned", tag[:], off, format.RecordAlignment),
				Offset:  base,
			}
		}
		spans = append(spans, span{tag: tag, off: off, length: length})
	}

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if a.off < b.off+b.length && b.off < a.off+a.length {
				return &ValidationError{
					Type:    "SectionTable",
					Message: fmt.Sprintf("sections %q and %q overlap", a.tag[:], b.tag[:]),
					Offset:  int(a.off),
				}
			}
		}
	}

	for _, t := range knownTags {
		if !seen[t] {
			return &ValidationError{
				Type:    "SectionTable",
				Message: fmt.Sprintf("missing %q section", t[:]),
				Offset:  -1,
			}
		}
	}
	return nil
}

// sectionPayload locates the section with the given tag and returns its
// payload and file-absolute offset. It bounds-checks only what it
// touches; SectionTable performs the full table validation.
func sectionPayload(data []byte, tag [4]byte, checkType string) ([]byte, int, *ValidationError) {
	if len(data) < format.HeaderSize {
		return nil, 0, &ValidationError{
			Type:    checkType,
			Message: "file too small for header",
			Offset:  -1,
		}
	}
	count := int(format.ReadU32(data, format.SectionCountOffset))
	if count > format.MaxSections {
		count = format.MaxSections
	}
	for i := 0; i < count; i++ {
		base := format.HeaderSize + i*format.SectionEntrySize
		if base+format.SectionEntrySize > len(data) {
			break
		}
		if !bytes.Equal(data[base+format.SectionTagOffset:base+format.SectionTagOffset+4], tag[:]) {
			continue
		}
		off := int64(format.ReadU32(data, base+format.SectionOffOffset))
		length := int64(format.ReadU32(data, base+format.SectionLenOffset))
		if off < int64(format.HeaderSize) || off+length > int64(len(data)) {
			return nil, 0, &ValidationError{
				Type:    checkType,
				Message: fmt.Sprintf("section %q out of bounds: 0x%X+%d", tag[:], off, length),
				Offset:  base,
			}
		}
		return data[off : off+length], int(off), nil
	}
	return nil, 0, &ValidationError{
		Type:    checkType,
		Message: fmt.Sprintf("missing %q section", tag[:]),
		Offset:  -1,
	}
}

// MemoryPartition validates the serialized arena: blocks cover exactly
// [0, capacity) in address order with positive sizes, no two adjacent
// blocks are both free, free blocks carry no owner, and allocated blocks
// carry one.
func MemoryPartition(data []byte) error {
	payload, base, verr := sectionPayload(data, format.SectionMemory, "MemoryPartition")
	if verr != nil {
		return verr
	}
	if len(payload) < format.MemBlocksOffset {
		return &ValidationError{
			Type:    "MemoryPartition",
			Message: fmt.Sprintf("payload too small: %d bytes (need %d)", len(payload), format.MemBlocksOffset),
			Offset:  base,
		}
	}

	capacity := format.ReadU64(payload, format.MemCapacityOffset)
	count := int(format.ReadU32(payload, format.MemBlockCountOffset))
	need := format.MemBlocksOffset + count*format.BlockRecordSize
	if len(payload) != need {
		return &ValidationError{
			Type:    "MemoryPartition",
			Message: fmt.Sprintf("payload length mismatch: %d bytes, %d block records need %d", len(payload), count, need),
			Offset:  base,
		}
	}
	if count == 0 {
		if capacity != 0 {
			return &ValidationError{
				Type:    "MemoryPartition",
				Message: fmt.Sprintf("no blocks but capacity is %d bytes", capacity),
				Offset:  base + format.MemBlockCountOffset,
			}
		}
		return nil
	}

	var expect uint64
	prevFree := false
	for i := 0; i < count; i++ {
		off := format.MemBlocksOffset + i*format.BlockRecordSize
		addr := format.ReadU64(payload, off+format.BlockAddressOffset)
		size := format.ReadU64(payload, off+format.BlockSizeOffset)
		status := payload[off+format.BlockStatusOffset]
		owner := format.ReadI32(payload, off+format.BlockOwnerOffset)

		if addr != expect {
			return &ValidationError{
				Type:    "MemoryPartition",
				Message: fmt.Sprintf("block %d starts at %d, expected %d (gap or overlap)", i, addr, expect),
				Offset:  base + off + format.BlockAddressOffset,
			}
		}
		if size == 0 {
			return &ValidationError{
				Type:    "MemoryPartition",
				Message: fmt.Sprintf("block %d has zero size", i),
				Offset:  base + off + format.BlockSizeOffset,
			}
		}
		if addr+size < addr {
			return &ValidationError{
				Type:    "MemoryPartition",
				Message: fmt.Sprintf("block %d size overflows the address space", i),
				Offset:  base + off + format.BlockSizeOffset,
			}
		}

		switch status {
		case format.BlockStatusFree:
			if owner != 0 {
				return &ValidationError{
					Type:    "MemoryPartition",
					Message: fmt.Sprintf("free block %d has owner %d", i, owner),
					Offset:  base + off + format.BlockOwnerOffset,
				}
			}
			if prevFree {
				return &ValidationError{
					Type:    "MemoryPartition",
					Message: fmt.Sprintf("blocks %d and %d are both free and adjacent", i-1, i),
					Offset:  base + off,
				}
			}
			prevFree = true
		case format.BlockStatusAllocated:
			if owner <= 0 {
				return &ValidationError{
					Type:    "MemoryPartition",
					Message: fmt.Sprintf("allocated block %d has no owner", i),
					Offset:  base + off + format.BlockOwnerOffset,
				}
			}
			prevFree = false
		default:
			return &ValidationError{
				Type:    "MemoryPartition",
				Message: fmt.Sprintf("block %d has unknown status %d", i, status),
				Offset:  base + off + format.BlockStatusOffset,
			}
		}

		expect = addr + size
	}

	if expect != capacity {
		return &ValidationError{
			Type:    "MemoryPartition",
			Message: fmt.Sprintf("partition covers %d bytes, capacity is %d", expect, capacity),
			Offset:  base + format.MemCapacityOffset,
			Details: map[string]interface{}{
				"covered":  expect,
				"capacity": capacity,
			},
		}
	}
	return nil
}

// ProcessTable validates the serialized process table: record bounds,
// positive unique PIDs, known states, decodable names, and the presence
// of the init process.
func ProcessTable(data []byte) error {
	payload, base, verr := sectionPayload(data, format.SectionProcess, "ProcessTable")
	if verr != nil {
		return verr
	}
	if len(payload) < format.ProcRecordsOffset {
		return &ValidationError{
			Type:    "ProcessTable",
			Message: fmt.Sprintf("payload too small: %d bytes", len(payload)),
			Offset:  base,
		}
	}

	count := int(format.ReadU32(payload, format.ProcCountOffset))
	seen := make(map[int32]bool, count)
	sawInit := false
	off := format.ProcRecordsOffset
	for i := 0; i < count; i++ {
		if off+format.ProcFixedSize > len(payload) {
			return &ValidationError{
				Type:    "ProcessTable",
				Message: fmt.Sprintf("record %d extends beyond payload", i),
				Offset:  base + off,
			}
		}
		pid := format.ReadI32(payload, off+format.ProcPIDOffset)
		state := payload[off+format.ProcStateOffset]
		nameLen := int(format.ReadU16(payload, off+format.ProcNameLenOffset))
		if off+format.ProcFixedSize+nameLen > len(payload) {
			return &ValidationError{
				Type:    "ProcessTable",
				Message: fmt.Sprintf("record %d name extends beyond payload", i),
				Offset:  base + off + format.ProcNameLenOffset,
			}
		}

		if pid <= 0 {
			return &ValidationError{
				Type:    "ProcessTable",
				Message: fmt.Sprintf("record %d has invalid pid %d", i, pid),
				Offset:  base + off + format.ProcPIDOffset,
			}
		}
		if seen[pid] {
			return &ValidationError{
				Type:    "ProcessTable",
				Message: fmt.Sprintf("duplicate pid %d", pid),
				Offset:  base + off + format.ProcPIDOffset,
			}
		}
		seen[pid] = true
		if pid == format.ProcInitPID {
			sawInit = true
		}

		if state > format.ProcStateMax {
			return &ValidationError{
				Type:    "ProcessTable",
				Message: fmt.Sprintf("record %d has unknown state %d", i, state),
				Offset:  base + off + format.ProcStateOffset,
			}
		}

		nameStart := off + format.ProcNameOffset
		if _, err := format.DecodeName(payload[nameStart:nameStart+nameLen], payload[off+format.ProcNameFlagOffset]); err != nil {
			return &ValidationError{
				Type:    "ProcessTable",
				Message: fmt.Sprintf("record %d name: %v", i, err),
				Offset:  base + nameStart,
			}
		}

		off += format.Align4(format.ProcFixedSize + nameLen)
	}

	if off != len(payload) {
		return &ValidationError{
			Type:    "ProcessTable",
			Message: fmt.Sprintf("payload length mismatch: %d records end at %d, payload is %d bytes", count, off, len(payload)),
			Offset:  base,
		}
	}
	if !sawInit {
		return &ValidationError{
			Type:    "ProcessTable",
			Message: fmt.Sprintf("no init process (pid %d)", format.ProcInitPID),
			Offset:  base,
		}
	}
	return nil
}

// FileTree validates the serialized file tree: entry bounds, decodable
// normalized absolute paths, parents listed before children, no
// duplicates, directories without content, and a working directory that
// names a listed directory or the root.
func FileTree(data []byte) error {
	payload, base, verr := sectionPayload(data, format.SectionFileTree, "FileTree")
	if verr != nil {
		return verr
	}
	if len(payload) < format.FSFixedSize {
		return &ValidationError{
			Type:    "FileTree",
			Message: fmt.Sprintf("payload too small: %d bytes", len(payload)),
			Offset:  base,
		}
	}

	count := int(format.ReadU32(payload, format.FSCountOffset))
	cwdLen := int(format.ReadU16(payload, format.FSCwdLenOffset))
	if format.FSFixedSize+cwdLen > len(payload) {
		return &ValidationError{
			Type:    "FileTree",
			Message: "working directory extends beyond payload",
			Offset:  base + format.FSCwdLenOffset,
		}
	}
	cwd, err := format.DecodeName(
		payload[format.FSCwdPathOffset:format.FSCwdPathOffset+cwdLen],
		payload[format.FSCwdFlagOffset],
	)
	if err != nil {
		return &ValidationError{
			Type:    "FileTree",
			Message: fmt.Sprintf("working directory: %v", err),
			Offset:  base + format.FSCwdPathOffset,
		}
	}
	if !normalizedAbsPath(cwd) {
		return &ValidationError{
			Type:    "FileTree",
			Message: fmt.Sprintf("working directory %q is not a normalized absolute path", cwd),
			Offset:  base + format.FSCwdPathOffset,
		}
	}

	// Kind per path, to catch duplicates and files used as parents.
	nodes := make(map[string]byte, count)
	off := format.Align4(format.FSFixedSize + cwdLen)
	for i := 0; i < count; i++ {
		if off+format.EntryFixedSize > len(payload) {
			return &ValidationError{
				Type:    "FileTree",
				Message: fmt.Sprintf("entry %d extends beyond payload", i),
				Offset:  base + off,
			}
		}
		kind := payload[off+format.EntryKindOffset]
		pathLen := int(format.ReadU16(payload, off+format.EntryPathLenOffset))
		contentLen := int(format.ReadU32(payload, off+format.EntryContentLenOffset))
		end := off + format.EntryFixedSize + pathLen + contentLen
		if end > len(payload) {
			return &ValidationError{
				Type:    "FileTree",
				Message: fmt.Sprintf("entry %d data extends beyond payload", i),
				Offset:  base + off,
			}
		}

		if kind != format.EntryKindDir && kind != format.EntryKindFile {
			return &ValidationError{
				Type:    "FileTree",
				Message: fmt.Sprintf("entry %d has unknown kind %d", i, kind),
				Offset:  base + off + format.EntryKindOffset,
			}
		}
		if kind == format.EntryKindDir && contentLen != 0 {
			return &ValidationError{
				Type:    "FileTree",
				Message: fmt.Sprintf("directory entry %d has %d bytes of content", i, contentLen),
				Offset:  base + off + format.EntryContentLenOffset,
			}
		}

		pathStart := off + format.EntryPathOffset
		path, err := format.DecodeName(payload[pathStart:pathStart+pathLen], payload[off+format.EntryPathFlagOffset])
		if err != nil {
			return &ValidationError{
				Type:    "FileTree",
				Message: fmt.Sprintf("entry %d path: %v", i, err),
				Offset:  base + pathStart,
			}
		}
		if path == "/" || !normalizedAbsPath(path) {
			return &ValidationError{
				Type:    "FileTree",
				Message: fmt.Sprintf("entry %d path %q is not a normalized absolute path", i, path),
				Offset:  base + pathStart,
			}
		}
		if _, ok := nodes[path]; ok {
			return &ValidationError{
				Type:    "FileTree",
				Message: fmt.Sprintf("duplicate path %q", path),
				Offset:  base + pathStart,
			}
		}

		parent := parentPath(path)
		if parent != "/" {
			pk, ok := nodes[parent]
			if !ok {
				return &ValidationError{
					Type:    "FileTree",
					Message: fmt.Sprintf("entry %q has no parent directory", path),
					Offset:  base + pathStart,
				}
			}
			if pk != format.EntryKindDir {
				return &ValidationError{
					Type:    "FileTree",
					Message: fmt.Sprintf("entry %q has file %q as parent", path, parent),
					Offset:  base + pathStart,
				}
			}
		}
		nodes[path] = kind

		off += format.Align4(format.EntryFixedSize + pathLen + contentLen)
	}

	if off != len(payload) {
		return &ValidationError{
			Type:    "FileTree",
			Message: fmt.Sprintf("payload length mismatch: %d entries end at %d, payload is %d bytes", count, off, len(payload)),
			Offset:  base,
		}
	}

	if cwd != "/" {
		k, ok := nodes[cwd]
		if !ok || k != format.EntryKindDir {
			return &ValidationError{
				Type:    "FileTree",
				Message: fmt.Sprintf("working directory %q is not a listed directory", cwd),
				Offset:  base + format.FSCwdPathOffset,
			}
		}
	}
	return nil
}

// normalizedAbsPath reports whether p is "/" or an absolute path with
// nonempty segments, no trailing slash, and no "." or ".." segments.
func normalizedAbsPath(p string) bool {
	if p == "/" {
		return true
	}
	if !strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return false
	}
	for _, seg := range strings.Split(p[1:], "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// parentPath returns the directory containing p, "/" for top-level
// entries.
func parentPath(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return "/"
	}
	return p[:i]
}
