package format

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Names and paths are stored compressed when every character fits in
// Windows-1252, which covers the common all-ASCII case in one byte per
// character. Anything else is stored as UTF-16LE and flagged.

// EncodeName converts a UTF-8 string to its stored form, returning the
// bytes and the name flags to record alongside them.
func EncodeName(name string) ([]byte, byte, error) {
	if name == "" {
		return nil, NameFlagCompressed, nil
	}
	if isASCII(name) {
		if len(name) > MaxNameBytes {
			return nil, 0, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
		}
		return []byte(name), NameFlagCompressed, nil
	}
	if encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(name)); err == nil {
		if len(encoded) > MaxNameBytes {
			return nil, 0, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(encoded))
		}
		return encoded, NameFlagCompressed, nil
	}
	encoded := encodeUTF16LE(name)
	if len(encoded) > MaxNameBytes {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(encoded))
	}
	return encoded, 0, nil
}

// DecodeName converts stored name bytes back into UTF-8.
func DecodeName(data []byte, flags byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if flags&NameFlagCompressed != 0 {
		// Fast path: ASCII is identical in Windows-1252 and UTF-8.
		if isASCIIBytes(data) {
			return string(data), nil
		}
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNameEncoding, err)
		}
		return string(decoded), nil
	}
	if len(data)%2 != 0 {
		return "", fmt.Errorf("%w: odd utf-16 length %d", ErrNameEncoding, len(data))
	}
	return decodeUTF16LE(data), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isASCIIBytes(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// encodeUTF16LE encodes a UTF-8 string to UTF-16LE bytes, emitting
// surrogate pairs for supplementary characters.
func encodeUTF16LE(s string) []byte {
	buf := make([]byte, 0, len(s)*2)
	for _, r := range s {
		if r <= UTF16BMPMax {
			buf = append(buf, byte(r), byte(r>>8))
			continue
		}
		r -= UTF16SurrogateBase
		high := uint16(UTF16HighSurrogateStart + (r >> 10))
		low := uint16(UTF16LowSurrogateStart + (r & UTF16SurrogateMask))
		buf = append(buf, byte(high), byte(high>>8), byte(low), byte(low>>8))
	}
	return buf
}

// decodeUTF16LE decodes UTF-16LE bytes to a UTF-8 string, pairing
// surrogates where present. Unpaired surrogates decode to U+FFFD.
func decodeUTF16LE(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) / 2)
	for i := 0; i+1 < len(b); i += 2 {
		u := uint32(b[i]) | uint32(b[i+1])<<8
		if u >= UTF16HighSurrogateStart && u < UTF16LowSurrogateStart && i+3 < len(b) {
			low := uint32(b[i+2]) | uint32(b[i+3])<<8
			if low >= UTF16LowSurrogateStart && low <= UTF16LowSurrogateStart+UTF16SurrogateMask {
				r := (u-UTF16HighSurrogateStart)<<10 | (low - UTF16LowSurrogateStart)
				sb.WriteRune(rune(r + UTF16SurrogateBase))
				i += 2
				continue
			}
		}
		sb.WriteRune(rune(u))
	}
	return sb.String()
}
