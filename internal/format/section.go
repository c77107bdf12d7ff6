package format

import "fmt"

// Section describes one entry of the section table.
type Section struct {
	Tag    [4]byte
	Offset uint32
	Length uint32
}

// Payload slices the section's bytes out of the whole image.
func (s Section) Payload(image []byte) []byte {
	return image[s.Offset : s.Offset+s.Length]
}

// ParseSections reads count entries of the section table and bounds-checks
// each against the image length. Entries may not overlap the header or the
// table itself.
func ParseSections(image []byte, count uint32) ([]Section, error) {
	if count > MaxSections {
		return nil, fmt.Errorf("section table: %d sections exceeds limit %d", count, MaxSections)
	}
	tableEnd := HeaderSize + int(count)*SectionEntrySize
	if len(image) < tableEnd {
		return nil, fmt.Errorf("section table: %w", ErrTruncated)
	}
	sections := make([]Section, 0, count)
	for i := 0; i < int(count); i++ {
		base := HeaderSize + i*SectionEntrySize
		var s Section
		copy(s.Tag[:], image[base+SectionTagOffset:base+SectionTagOffset+4])
		s.Offset = ReadU32(image, base+SectionOffOffset)
		s.Length = ReadU32(image, base+SectionLenOffset)
		if int64(s.Offset) < int64(tableEnd) || int64(s.Offset)+int64(s.Length) > int64(len(image)) {
			return nil, fmt.Errorf("section %q at 0x%X+%d: %w", s.Tag[:], s.Offset, s.Length, ErrSectionBounds)
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// EncodeSection writes one section table entry at index i.
func EncodeSection(image []byte, i int, s Section) {
	base := HeaderSize + i*SectionEntrySize
	copy(image[base+SectionTagOffset:], s.Tag[:])
	PutU32(image, base+SectionReservedOffset, 0)
	PutU32(image, base+SectionOffOffset, s.Offset)
	PutU32(image, base+SectionLenOffset, s.Length)
}

// FindSection returns the first section with the given tag, or false.
func FindSection(sections []Section, tag [4]byte) (Section, bool) {
	for _, s := range sections {
		if s.Tag == tag {
			return s, true
		}
	}
	return Section{}, false
}
