package format

import (
	"bytes"
	"fmt"
)

// Header captures the fields of the OSIM image header. See consts.go for
// the byte-level layout.
type Header struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	SavedAtNanos      uint64
	MajorVersion      uint32
	MinorVersion      uint32
	SectionCount      uint32
	TotalSize         uint64
	Checksum          uint32
}

// HeaderChecksum computes the XOR-of-dwords checksum over the header bytes
// preceding the checksum field.
func HeaderChecksum(b []byte) uint32 {
	var sum uint32
	for i := 0; i < ChecksumDwords; i++ {
		sum ^= ReadU32(b, i*4)
	}
	return sum
}

// ParseHeader validates and extracts the fields of an image header. It
// checks the signature and checksum; sequence and version checks are left
// to the caller so diagnostics can report them separately.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("image header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:SignatureSize], Signature) {
		return Header{}, fmt.Errorf("image header: %w", ErrSignatureMismatch)
	}
	h := Header{
		PrimarySequence:   ReadU32(b, PrimarySeqOffset),
		SecondarySequence: ReadU32(b, SecondarySeqOffset),
		SavedAtNanos:      ReadU64(b, TimestampOffset),
		MajorVersion:      ReadU32(b, MajorVersionOffset),
		MinorVersion:      ReadU32(b, MinorVersionOffset),
		SectionCount:      ReadU32(b, SectionCountOffset),
		TotalSize:         ReadU64(b, TotalSizeOffset),
		Checksum:          ReadU32(b, ChecksumOffset),
	}
	if HeaderChecksum(b) != h.Checksum {
		return Header{}, fmt.Errorf("image header: %w", ErrChecksumMismatch)
	}
	return h, nil
}

// EncodeHeader writes h into the first HeaderSize bytes of b, computing the
// checksum from the other fields. The reserved region is zeroed.
func EncodeHeader(b []byte, h Header) {
	copy(b[SignatureOffset:], Signature)
	PutU32(b, PrimarySeqOffset, h.PrimarySequence)
	PutU32(b, SecondarySeqOffset, h.SecondarySequence)
	PutU64(b, TimestampOffset, h.SavedAtNanos)
	PutU32(b, MajorVersionOffset, h.MajorVersion)
	PutU32(b, MinorVersionOffset, h.MinorVersion)
	PutU32(b, SectionCountOffset, h.SectionCount)
	PutU64(b, TotalSizeOffset, h.TotalSize)
	for i := ReservedOffset; i < ChecksumOffset; i++ {
		b[i] = 0
	}
	PutU32(b, ChecksumOffset, HeaderChecksum(b[:HeaderSize]))
}
