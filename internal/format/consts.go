// Package format houses the low-level layout of the OSIM machine image
// format. The goal is to keep the byte-level encoding focused and
// independent from the public API so higher-level packages can orchestrate
// the data in a more ergonomic form.
package format

var (
	// Signature is the four-byte magic at the start of every machine image.
	// Layout:
	//   0x00  'O' 'S' 'I' 'M'
	Signature = []byte{'O', 'S', 'I', 'M'}

	// SectionMemory tags the serialized arena partition.
	SectionMemory = [4]byte{'m', 'e', 'm', ' '}

	// SectionProcess tags the serialized process table.
	SectionProcess = [4]byte{'p', 'r', 'o', 'c'}

	// SectionFileTree tags the serialized filesystem snapshot.
	SectionFileTree = [4]byte{'f', 's', ' ', ' '}

	// SectionConfig tags the serialized machine configuration.
	SectionConfig = [4]byte{'c', 'f', 'g', ' '}
)

// Header layout. All integers are little-endian.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x00    4    'O' 'S' 'I' 'M'
//	 0x04    4    Primary sequence number
//	 0x08    4    Secondary sequence number
//	 0x0C    8    Save timestamp (Unix nanoseconds)
//	 0x14    4    Major version
//	 0x18    4    Minor version
//	 0x1C    4    Section count
//	 0x20    8    Total image size in bytes
//	 0x28   20    Reserved (zero)
//	 0x3C    4    Checksum (XOR of the preceding 15 dwords)
//
// The two sequence numbers echo each other on a clean write. A writer bumps
// the primary before emitting payload and the secondary after, so a mismatch
// marks a torn image.
const (
	SignatureOffset    = 0x00
	SignatureSize      = 4
	PrimarySeqOffset   = 0x04
	SecondarySeqOffset = 0x08
	TimestampOffset    = 0x0C
	MajorVersionOffset = 0x14
	MinorVersionOffset = 0x18
	SectionCountOffset = 0x1C
	TotalSizeOffset    = 0x20
	ReservedOffset     = 0x28
	ChecksumOffset     = 0x3C

	// HeaderSize is the size of the image header in bytes.
	HeaderSize = 0x40

	// ChecksumRegionLen is the number of header bytes covered by the
	// checksum (everything before the checksum field itself).
	ChecksumRegionLen = ChecksumOffset
	// ChecksumDwords is ChecksumRegionLen expressed in 4-byte words.
	ChecksumDwords = ChecksumRegionLen / 4
)

// Current format version.
const (
	MajorVersion = 1
	MinorVersion = 0
)

// Section table layout. The table starts at HeaderSize and holds one entry
// per section.
//
//	Offset  Size  Description
//	------  ----  -------------------------------------
//	 0x00    4    Tag ("mem ", "proc", "fs  ", "cfg ")
//	 0x04    4    Reserved (zero)
//	 0x08    4    Payload offset (file-absolute)
//	 0x0C    4    Payload length in bytes
const (
	SectionTagOffset      = 0x00
	SectionReservedOffset = 0x04
	SectionOffOffset      = 0x08
	SectionLenOffset      = 0x0C

	// SectionEntrySize is the size of one section table entry.
	SectionEntrySize = 0x10

	// MaxSections bounds the section count a parser will accept. The format
	// defines four section kinds; the headroom leaves room for additions
	// without a major version bump.
	MaxSections = 16
)

// Memory section payload.
//
//	Offset  Size  Description
//	------  ----  -----------------------------
//	 0x00    8    Arena capacity in bytes
//	 0x08    8    Split threshold in bytes
//	 0x10    4    Block count
//	 0x14    -    Block records
//
// Block record layout:
//
//	Offset  Size  Description
//	------  ----  -----------------------------
//	 0x00    8    Address
//	 0x08    8    Size in bytes
//	 0x10    1    Status (0 free, 1 allocated)
//	 0x11    3    Reserved (zero)
//	 0x14    4    Owner PID (int32, 0 when free)
const (
	MemCapacityOffset   = 0x00
	MemThresholdOffset  = 0x08
	MemBlockCountOffset = 0x10
	MemBlocksOffset     = 0x14

	BlockAddressOffset = 0x00
	BlockSizeOffset    = 0x08
	BlockStatusOffset  = 0x10
	BlockOwnerOffset   = 0x14
	BlockRecordSize    = 0x18

	// Block status values.
	BlockStatusFree      = 0
	BlockStatusAllocated = 1
)

// Process section payload.
//
//	Offset  Size  Description
//	------  ----  -----------------------------
//	 0x00    4    Process count
//	 0x04    -    Process records
//
// Process record layout (variable length, aligned to 4 bytes):
//
//	Offset  Size  Description
//	------  ----  -----------------------------
//	 0x00    4    PID (int32)
//	 0x04    4    Priority (int32)
//	 0x08    1    State (0 new, 1 ready, 2 running, 3 waiting, 4 terminated)
//	 0x09    1    Name flags (bit 0: compressed)
//	 0x0A    2    Name length in bytes
//	 0x0C    8    Owned memory in bytes
//	 0x14    -    Name bytes
const (
	ProcCountOffset   = 0x00
	ProcRecordsOffset = 0x04

	ProcPIDOffset      = 0x00
	ProcPriorityOffset = 0x04
	ProcStateOffset    = 0x08
	ProcNameFlagOffset = 0x09
	ProcNameLenOffset  = 0x0A
	ProcMemoryOffset   = 0x0C
	ProcNameOffset     = 0x14

	// ProcFixedSize is the size of the fixed portion before the name.
	ProcFixedSize = ProcNameOffset

	// ProcStateMax is the highest state value a record may carry.
	ProcStateMax = 4

	// ProcInitPID is the PID every image must contain a record for.
	ProcInitPID = 1
)

// File tree section payload.
//
//	Offset  Size  Description
//	------  ----  -----------------------------------
//	 0x00    4    Entry count
//	 0x04    1    Working-directory path flags
//	 0x05    1    Reserved (zero)
//	 0x06    2    Working-directory path length in bytes
//	 0x08    -    Working-directory path bytes (aligned to 4), then entries
//
// Entry record layout (variable length, aligned to 4 bytes):
//
//	Offset  Size  Description
//	------  ----  -----------------------------------
//	 0x00    1    Kind (0 directory, 1 file)
//	 0x01    1    Path flags (bit 0: compressed)
//	 0x02    2    Path length in bytes
//	 0x04    4    Content length in bytes
//	 0x08    -    Path bytes, then content bytes
const (
	FSCountOffset   = 0x00
	FSCwdFlagOffset = 0x04
	FSCwdLenOffset  = 0x06
	FSCwdPathOffset = 0x08

	// FSFixedSize is the size of the fixed portion before the cwd path.
	FSFixedSize = FSCwdPathOffset

	EntryKindOffset       = 0x00
	EntryPathFlagOffset   = 0x01
	EntryPathLenOffset    = 0x02
	EntryContentLenOffset = 0x04
	EntryPathOffset       = 0x08

	// EntryFixedSize is the size of the fixed portion before the path.
	EntryFixedSize = EntryPathOffset

	// Entry kind values.
	EntryKindDir  = 0
	EntryKindFile = 1
)

// Config section payload.
//
//	Offset  Size  Description
//	------  ----  -----------------------------------
//	 0x00    8    Configured memory capacity in bytes
//	 0x08    8    Configured split threshold in bytes
//	 0x10    1    Init-name flags (bit 0: compressed)
//	 0x11    1    Reserved (zero)
//	 0x12    2    Init-name length in bytes
//	 0x14    -    Init-name bytes, aligned to 4 bytes
const (
	CfgCapacityOffset  = 0x00
	CfgThresholdOffset = 0x08
	CfgNameFlagOffset  = 0x10
	CfgNameLenOffset   = 0x12
	CfgNameOffset      = 0x14

	// CfgFixedSize is the size of the fixed portion before the init name.
	CfgFixedSize = CfgNameOffset
)

// Name flag bits. Compressed names are stored as Windows-1252 single bytes;
// uncompressed names are UTF-16LE.
const (
	NameFlagCompressed = 0x01
)

// Record alignment within section payloads.
const (
	RecordAlignment     = 4
	RecordAlignmentMask = RecordAlignment - 1
)

// MaxNameBytes bounds every stored name and path. The length fields are
// uint16, so nothing longer can be represented.
const MaxNameBytes = 0xFFFF

// UTF-16 surrogate pair ranges for encoding supplementary characters
// (U+10000 and above).
const (
	UTF16HighSurrogateStart = 0xD800
	UTF16LowSurrogateStart  = 0xDC00
	UTF16SurrogateBase      = 0x10000
	UTF16BMPMax             = 0xFFFF
	UTF16SurrogateMask      = 0x3FF
)
