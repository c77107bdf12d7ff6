package image

import (
	"fmt"
	"strings"
	"time"

	"github.com/oskit-dev/oskit/internal/format"
	"github.com/oskit-dev/oskit/internal/mmfile"
)

// Info summarizes an image file from its header and section table,
// without rebuilding the machine.
type Info struct {
	Path              string        `json:"path"`
	FileSize          int64         `json:"file_size"`
	MajorVersion      uint32        `json:"major_version"`
	MinorVersion      uint32        `json:"minor_version"`
	PrimarySequence   uint32        `json:"primary_sequence"`
	SecondarySequence uint32        `json:"secondary_sequence"`
	Clean             bool          `json:"clean"`
	SavedAt           time.Time     `json:"saved_at"`
	Sections          []SectionInfo `json:"sections"`
}

// SectionInfo is one section table entry with its tag's trailing padding
// stripped.
type SectionInfo struct {
	Tag    string `json:"tag"`
	Offset uint32 `json:"offset"`
	Length uint32 `json:"length"`
}

// Stat reads the header and section table of the image at path. The
// signature and checksum must be valid; beyond that the payloads are not
// inspected, so Stat works on images whose sections would fail deeper
// validation.
func Stat(path string) (Info, error) {
	data, release, err := mmfile.Map(path)
	if err != nil {
		return Info{}, fmt.Errorf("image: open %s: %w", path, err)
	}
	defer func() { _ = release() }()

	h, err := format.ParseHeader(data)
	if err != nil {
		return Info{}, fmt.Errorf("image: %s: %w", path, err)
	}
	sections, err := format.ParseSections(data, h.SectionCount)
	if err != nil {
		return Info{}, fmt.Errorf("image: %s: %w", path, err)
	}

	info := Info{
		Path:              path,
		FileSize:          int64(len(data)),
		MajorVersion:      h.MajorVersion,
		MinorVersion:      h.MinorVersion,
		PrimarySequence:   h.PrimarySequence,
		SecondarySequence: h.SecondarySequence,
		Clean:             h.PrimarySequence == h.SecondarySequence,
		SavedAt:           time.Unix(0, int64(h.SavedAtNanos)).UTC(),
	}
	for _, s := range sections {
		info.Sections = append(info.Sections, SectionInfo{
			Tag:    strings.TrimRight(string(s.Tag[:]), " "),
			Offset: s.Offset,
			Length: s.Length,
		})
	}
	return info, nil
}
