package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrChecksumMismatch indicates the header checksum did not match its contents.
	ErrChecksumMismatch = errors.New("format: header checksum mismatch")
	// ErrSequenceMismatch indicates the two sequence numbers disagree, marking a torn write.
	ErrSequenceMismatch = errors.New("format: sequence numbers disagree")
	// ErrVersionUnsupported indicates the image was written by an incompatible format version.
	ErrVersionUnsupported = errors.New("format: unsupported format version")
	// ErrSectionBounds indicates a section table entry points outside the image.
	ErrSectionBounds = errors.New("format: section out of bounds")
	// ErrNameTooLong indicates a name or path exceeds the representable length.
	ErrNameTooLong = errors.New("format: name too long")
	// ErrNameEncoding indicates name bytes could not be decoded.
	ErrNameEncoding = errors.New("format: malformed name encoding")
)
