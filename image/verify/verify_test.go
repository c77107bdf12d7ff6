package verify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oskit-dev/oskit/internal/format"
)

type blockSpec struct {
	addr   uint64
	size   uint64
	status byte
	owner  int32
}

type procSpec struct {
	pid      int32
	priority int32
	state    byte
	name     string
	memory   uint64
}

type entrySpec struct {
	kind    byte
	path    string
	content string
}

func buildMemPayload(capacity, threshold uint64, blocks []blockSpec) []byte {
	b := make([]byte, format.MemBlocksOffset+len(blocks)*format.BlockRecordSize)
	format.PutU64(b, format.MemCapacityOffset, capacity)
	format.PutU64(b, format.MemThresholdOffset, threshold)
	format.PutU32(b, format.MemBlockCountOffset, uint32(len(blocks)))
	off := format.MemBlocksOffset
	for _, blk := range blocks {
		format.PutU64(b, off+format.BlockAddressOffset, blk.addr)
		format.PutU64(b, off+format.BlockSizeOffset, blk.size)
		b[off+format.BlockStatusOffset] = blk.status
		format.PutI32(b, off+format.BlockOwnerOffset, blk.owner)
		off += format.BlockRecordSize
	}
	return b
}

func buildProcPayload(t *testing.T, procs []procSpec) []byte {
	t.Helper()
	b := make([]byte, format.ProcRecordsOffset)
	format.PutU32(b, format.ProcCountOffset, uint32(len(procs)))
	for _, p := range procs {
		nb, fl, err := format.EncodeName(p.name)
		require.NoError(t, err, "encode name %q", p.name)
		rec := make([]byte, format.Align4(format.ProcFixedSize+len(nb)))
		format.PutI32(rec, format.ProcPIDOffset, p.pid)
		format.PutI32(rec, format.ProcPriorityOffset, p.priority)
		rec[format.ProcStateOffset] = p.state
		rec[format.ProcNameFlagOffset] = fl
		format.PutU16(rec, format.ProcNameLenOffset, uint16(len(nb)))
		format.PutU64(rec, format.ProcMemoryOffset, p.memory)
		copy(rec[format.ProcNameOffset:], nb)
		b = append(b, rec...)
	}
	return b
}

func buildFSPayload(t *testing.T, cwd string, entries []entrySpec) []byte {
	t.Helper()
	cb, cf, err := format.EncodeName(cwd)
	require.NoError(t, err, "encode cwd %q", cwd)
	b := make([]byte, format.Align4(format.FSFixedSize+len(cb)))
	format.PutU32(b, format.FSCountOffset, uint32(len(entries)))
	b[format.FSCwdFlagOffset] = cf
	format.PutU16(b, format.FSCwdLenOffset, uint16(len(cb)))
	copy(b[format.FSCwdPathOffset:], cb)
	for _, e := range entries {
		pb, pf, err := format.EncodeName(e.path)
		require.NoError(t, err, "encode path %q", e.path)
		rec := make([]byte, format.Align4(format.EntryFixedSize+len(pb)+len(e.content)))
		rec[format.EntryKindOffset] = e.kind
		rec[format.EntryPathFlagOffset] = pf
		format.PutU16(rec, format.EntryPathLenOffset, uint16(len(pb)))
		format.PutU32(rec, format.EntryContentLenOffset, uint32(len(e.content)))
		copy(rec[format.EntryPathOffset:], pb)
		copy(rec[format.EntryPathOffset+len(pb):], e.content)
		b = append(b, rec...)
	}
	return b
}

func buildCfgPayload(t *testing.T, capacity, threshold uint64, name string) []byte {
	t.Helper()
	nb, fl, err := format.EncodeName(name)
	require.NoError(t, err, "encode init name %q", name)
	b := make([]byte, format.Align4(format.CfgFixedSize+len(nb)))
	format.PutU64(b, format.CfgCapacityOffset, capacity)
	format.PutU64(b, format.CfgThresholdOffset, threshold)
	b[format.CfgNameFlagOffset] = fl
	format.PutU16(b, format.CfgNameLenOffset, uint16(len(nb)))
	copy(b[format.CfgNameOffset:], nb)
	return b
}

func assembleImage(memP, procP, fsP, cfgP []byte) []byte {
	payloads := [][]byte{memP, procP, fsP, cfgP}
	tags := [][4]byte{format.SectionMemory, format.SectionProcess, format.SectionFileTree, format.SectionConfig}

	cursor := format.HeaderSize + len(payloads)*format.SectionEntrySize
	offsets := make([]int, len(payloads))
	for i, p := range payloads {
		offsets[i] = cursor
		cursor += len(p)
	}

	buf := make([]byte, cursor)
	for i, p := range payloads {
		format.EncodeSection(buf, i, format.Section{
			Tag:    tags[i],
			Offset: uint32(offsets[i]),
			Length: uint32(len(p)),
		})
		copy(buf[offsets[i]:], p)
	}
	format.EncodeHeader(buf, format.Header{
		PrimarySequence:   1,
		SecondarySequence: 1,
		SavedAtNanos:      0x1234,
		MajorVersion:      format.MajorVersion,
		MinorVersion:      format.MinorVersion,
		SectionCount:      uint32(len(payloads)),
		TotalSize:         uint64(len(buf)),
	})
	return buf
}

// validImage builds a small machine image that passes every check: a
// 1024-byte arena with one allocation, init plus a worker process, and a
// two-entry file tree.
func validImage(t *testing.T) []byte {
	t.Helper()
	return assembleImage(
		buildMemPayload(1024, 64, []blockSpec{
			{addr: 0, size: 100, status: format.BlockStatusAllocated, owner: 2},
			{addr: 100, size: 924, status: format.BlockStatusFree, owner: 0},
		}),
		buildProcPayload(t, []procSpec{
			{pid: 1, priority: 0, state: 2, name: "init", memory: 0},
			{pid: 2, priority: 5, state: 1, name: "worker", memory: 100},
		}),
		buildFSPayload(t, "/home", []entrySpec{
			{kind: format.EntryKindDir, path: "/home"},
			{kind: format.EntryKindFile, path: "/home/notes.txt", content: "hi"},
		}),
		buildCfgPayload(t, 1024, 64, "init"),
	)
}

func rechecksum(data []byte) {
	format.PutU32(data, format.ChecksumOffset, format.HeaderChecksum(data[:format.HeaderSize]))
}

func sectionStart(t *testing.T, data []byte, tag [4]byte) int {
	t.Helper()
	count := int(format.ReadU32(data, format.SectionCountOffset))
	for i := 0; i < count; i++ {
		base := format.HeaderSize + i*format.SectionEntrySize
		if bytes.Equal(data[base:base+4], tag[:]) {
			return int(format.ReadU32(data, base+format.SectionOffOffset))
		}
	}
	t.Fatalf("section %q not found", tag[:])
	return 0
}

func TestAllInvariants_Valid(t *testing.T) {
	data := validImage(t)

	err := AllInvariants(data)
	require.NoError(t, err, "Valid image should pass all invariant checks")
}

func TestImageHeader_TooSmall(t *testing.T) {
	data := validImage(t)[:10]

	err := ImageHeader(data)
	require.Error(t, err, "Truncated header should fail validation")
	require.Contains(t, err.Error(), "too small")
}

func TestImageHeader_BadSignature(t *testing.T) {
	data := validImage(t)
	copy(data[format.SignatureOffset:], []byte("XXXX"))

	err := ImageHeader(data)
	require.Error(t, err, "Invalid signature should fail validation")
	require.Contains(t, err.Error(), "invalid signature")
}

func TestImageHeader_WrongMajorVersion(t *testing.T) {
	data := validImage(t)
	format.PutU32(data, format.MajorVersionOffset, 9)

	err := ImageHeader(data)
	require.Error(t, err, "Unknown major version should fail validation")
	require.Contains(t, err.Error(), "unsupported major version")
}

func TestImageHeader_NewerMinorVersion(t *testing.T) {
	data := validImage(t)
	format.PutU32(data, format.MinorVersionOffset, format.MinorVersion+1)

	err := ImageHeader(data)
	require.Error(t, err, "Minor version from a newer writer should fail validation")
	require.Contains(t, err.Error(), "unsupported minor version")
}

func TestChecksum_Valid(t *testing.T) {
	data := validImage(t)

	err := Checksum(data)
	require.NoError(t, err, "Freshly encoded header should carry a valid checksum")
}

func TestChecksum_TamperedHeader(t *testing.T) {
	data := validImage(t)
	data[format.TimestampOffset] ^= 0xFF

	err := Checksum(data)
	require.Error(t, err, "Tampered header byte should fail the checksum")
	require.Contains(t, err.Error(), "checksum mismatch")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, format.ChecksumOffset, verr.Offset)
	require.NotNil(t, verr.Details["calculated"])
}

func TestSequenceNumbers_TornImage(t *testing.T) {
	data := validImage(t)
	format.PutU32(data, format.SecondarySeqOffset, 2)
	rechecksum(data)

	err := SequenceNumbers(data)
	require.Error(t, err, "Mismatched sequences should fail validation")
	require.Contains(t, err.Error(), "torn image")

	err = AllInvariants(data)
	require.Error(t, err, "Torn image should not pass the full check")
	require.Contains(t, err.Error(), "torn image")
}

func TestImageSize_TrailingGarbage(t *testing.T) {
	data := validImage(t)
	data = append(data, make([]byte, 16)...)

	err := ImageSize(data)
	require.Error(t, err, "Trailing garbage should fail validation")
	require.Contains(t, err.Error(), "size mismatch")
}

func TestImageSize_Truncated(t *testing.T) {
	data := validImage(t)
	data = data[:len(data)-4]

	err := ImageSize(data)
	require.Error(t, err, "Truncated image should fail validation")
	require.Contains(t, err.Error(), "size mismatch")
}

func TestSectionTable_UnknownTag(t *testing.T) {
	data := validImage(t)
	base := format.HeaderSize + 3*format.SectionEntrySize
	copy(data[base:], []byte("junk"))

	err := SectionTable(data)
	require.Error(t, err, "Unknown section tag should fail validation")
	require.Contains(t, err.Error(), "unknown section tag")
}

func TestSectionTable_DuplicateTag(t *testing.T) {
	data := validImage(t)
	base := format.HeaderSize + 1*format.SectionEntrySize
	copy(data[base:], format.SectionMemory[:])

	err := SectionTable(data)
	require.Error(t, err, "Duplicate section tag should fail validation")
	require.Contains(t, err.Error(), "duplicate")
}

func TestSectionTable_OutOfBounds(t *testing.T) {
	data := validImage(t)
	base := format.HeaderSize
	format.PutU32(data, base+format.SectionLenOffset, 0xFFFFFF)

	err := SectionTable(data)
	require.Error(t, err, "Section extending beyond the file should fail validation")
	require.Contains(t, err.Error(), "extends beyond file")
}

func TestSectionTable_Overlap(t *testing.T) {
	data := validImage(t)
	memOff := format.ReadU32(data, format.HeaderSize+format.SectionOffOffset)
	procBase := format.HeaderSize + 1*format.SectionEntrySize
	format.PutU32(data, procBase+format.SectionOffOffset, memOff)

	err := SectionTable(data)
	require.Error(t, err, "Overlapping sections should fail validation")
	require.Contains(t, err.Error(), "overlap")
}

func TestSectionTable_MissingSection(t *testing.T) {
	data := validImage(t)
	format.PutU32(data, format.SectionCountOffset, 3)
	rechecksum(data)

	err := SectionTable(data)
	require.Error(t, err, "Image without a config section should fail validation")
	require.Contains(t, err.Error(), "missing \"cfg \" section")
}

func TestMemoryPartition_Valid(t *testing.T) {
	data := validImage(t)

	err := MemoryPartition(data)
	require.NoError(t, err, "Valid partition should pass validation")
}

func TestMemoryPartition_Gap(t *testing.T) {
	data := validImage(t)
	off := sectionStart(t, data, format.SectionMemory) + format.MemBlocksOffset + format.BlockRecordSize
	format.PutU64(data, off+format.BlockAddressOffset, 101)

	err := MemoryPartition(data)
	require.Error(t, err, "Gap between blocks should fail validation")
	require.Contains(t, err.Error(), "gap or overlap")
}

func TestMemoryPartition_ZeroSizeBlock(t *testing.T) {
	data := validImage(t)
	off := sectionStart(t, data, format.SectionMemory) + format.MemBlocksOffset + format.BlockRecordSize
	format.PutU64(data, off+format.BlockSizeOffset, 0)

	err := MemoryPartition(data)
	require.Error(t, err, "Zero-size block should fail validation")
	require.Contains(t, err.Error(), "zero size")
}

func TestMemoryPartition_AdjacentFree(t *testing.T) {
	data := validImage(t)
	off := sectionStart(t, data, format.SectionMemory) + format.MemBlocksOffset
	data[off+format.BlockStatusOffset] = format.BlockStatusFree
	format.PutI32(data, off+format.BlockOwnerOffset, 0)

	err := MemoryPartition(data)
	require.Error(t, err, "Two adjacent free blocks should fail validation")
	require.Contains(t, err.Error(), "both free and adjacent")
}

func TestMemoryPartition_CoverageShort(t *testing.T) {
	data := validImage(t)
	off := sectionStart(t, data, format.SectionMemory) + format.MemBlocksOffset + format.BlockRecordSize
	format.PutU64(data, off+format.BlockSizeOffset, 900)

	err := MemoryPartition(data)
	require.Error(t, err, "Partition not covering the capacity should fail validation")
	require.Contains(t, err.Error(), "partition covers 1000 bytes, capacity is 1024")
}

func TestMemoryPartition_FreeBlockWithOwner(t *testing.T) {
	data := validImage(t)
	off := sectionStart(t, data, format.SectionMemory) + format.MemBlocksOffset + format.BlockRecordSize
	format.PutI32(data, off+format.BlockOwnerOffset, 7)

	err := MemoryPartition(data)
	require.Error(t, err, "Free block carrying an owner should fail validation")
	require.Contains(t, err.Error(), "free block 1 has owner 7")
}

func TestMemoryPartition_AllocatedWithoutOwner(t *testing.T) {
	data := validImage(t)
	off := sectionStart(t, data, format.SectionMemory) + format.MemBlocksOffset
	format.PutI32(data, off+format.BlockOwnerOffset, 0)

	err := MemoryPartition(data)
	require.Error(t, err, "Allocated block without an owner should fail validation")
	require.Contains(t, err.Error(), "no owner")
}

func TestMemoryPartition_UnknownStatus(t *testing.T) {
	data := validImage(t)
	off := sectionStart(t, data, format.SectionMemory) + format.MemBlocksOffset
	data[off+format.BlockStatusOffset] = 9

	err := MemoryPartition(data)
	require.Error(t, err, "Unknown block status should fail validation")
	require.Contains(t, err.Error(), "unknown status 9")
}

func TestProcessTable_Valid(t *testing.T) {
	data := validImage(t)

	err := ProcessTable(data)
	require.NoError(t, err, "Valid process table should pass validation")
}

func TestProcessTable_DuplicatePID(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{
			{pid: 1, state: 2, name: "init"},
			{pid: 1, state: 1, name: "clone"},
		}),
		buildFSPayload(t, "/", nil),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := ProcessTable(data)
	require.Error(t, err, "Duplicate PID should fail validation")
	require.Contains(t, err.Error(), "duplicate pid 1")
}

func TestProcessTable_MissingInit(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{
			{pid: 2, state: 1, name: "worker"},
		}),
		buildFSPayload(t, "/", nil),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := ProcessTable(data)
	require.Error(t, err, "Table without init should fail validation")
	require.Contains(t, err.Error(), "no init process")
}

func TestProcessTable_InvalidPID(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{
			{pid: 1, state: 2, name: "init"},
			{pid: -2, state: 1, name: "bad"},
		}),
		buildFSPayload(t, "/", nil),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := ProcessTable(data)
	require.Error(t, err, "Non-positive PID should fail validation")
	require.Contains(t, err.Error(), "invalid pid -2")
}

func TestProcessTable_UnknownState(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{
			{pid: 1, state: 9, name: "init"},
		}),
		buildFSPayload(t, "/", nil),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := ProcessTable(data)
	require.Error(t, err, "Unknown process state should fail validation")
	require.Contains(t, err.Error(), "unknown state 9")
}

func TestFileTree_Valid(t *testing.T) {
	data := validImage(t)

	err := FileTree(data)
	require.NoError(t, err, "Valid file tree should pass validation")
}

func TestFileTree_OrphanEntry(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{{pid: 1, state: 2, name: "init"}}),
		buildFSPayload(t, "/", []entrySpec{
			{kind: format.EntryKindFile, path: "/home/notes.txt", content: "hi"},
		}),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := FileTree(data)
	require.Error(t, err, "Entry without its parent should fail validation")
	require.Contains(t, err.Error(), "no parent directory")
}

func TestFileTree_DuplicatePath(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{{pid: 1, state: 2, name: "init"}}),
		buildFSPayload(t, "/", []entrySpec{
			{kind: format.EntryKindDir, path: "/home"},
			{kind: format.EntryKindDir, path: "/home"},
		}),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := FileTree(data)
	require.Error(t, err, "Duplicate path should fail validation")
	require.Contains(t, err.Error(), "duplicate path")
}

func TestFileTree_FileAsParent(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{{pid: 1, state: 2, name: "init"}}),
		buildFSPayload(t, "/", []entrySpec{
			{kind: format.EntryKindFile, path: "/a", content: "x"},
			{kind: format.EntryKindFile, path: "/a/b", content: "y"},
		}),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := FileTree(data)
	require.Error(t, err, "File used as a parent should fail validation")
	require.Contains(t, err.Error(), "as parent")
}

func TestFileTree_RelativePath(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{{pid: 1, state: 2, name: "init"}}),
		buildFSPayload(t, "/", []entrySpec{
			{kind: format.EntryKindDir, path: "home"},
		}),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := FileTree(data)
	require.Error(t, err, "Relative path should fail validation")
	require.Contains(t, err.Error(), "not a normalized absolute path")
}

func TestFileTree_DirWithContent(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{{pid: 1, state: 2, name: "init"}}),
		buildFSPayload(t, "/", []entrySpec{
			{kind: format.EntryKindDir, path: "/home", content: "zz"},
		}),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := FileTree(data)
	require.Error(t, err, "Directory carrying content should fail validation")
	require.Contains(t, err.Error(), "bytes of content")
}

func TestFileTree_WorkingDirNotListed(t *testing.T) {
	data := assembleImage(
		buildMemPayload(0, 64, nil),
		buildProcPayload(t, []procSpec{{pid: 1, state: 2, name: "init"}}),
		buildFSPayload(t, "/nope", []entrySpec{
			{kind: format.EntryKindDir, path: "/home"},
		}),
		buildCfgPayload(t, 0, 64, "init"),
	)

	err := FileTree(data)
	require.Error(t, err, "Unlisted working directory should fail validation")
	require.Contains(t, err.Error(), "not a listed directory")
}

func TestValidationError_String(t *testing.T) {
	withOffset := &ValidationError{
		Type:    "TestError",
		Message: "something went wrong",
		Offset:  0x1234,
	}
	require.Contains(t, withOffset.Error(), "0x1234")
	require.Contains(t, withOffset.Error(), "something went wrong")

	noOffset := &ValidationError{
		Type:    "TestError",
		Message: "no offset",
		Offset:  -1,
	}
	require.NotContains(t, noOffset.Error(), "0x")
}
