package image

import (
	"fmt"
	"os"
	"time"

	"github.com/oskit-dev/oskit/internal/format"
	"github.com/oskit-dev/oskit/internal/mmfile"
	"github.com/oskit-dev/oskit/internal/writer"
	"github.com/oskit-dev/oskit/kernel"
)

// Save writes the machine image to path, replacing any previous image
// atomically. When path already holds a parseable image the new one
// continues its sequence numbers, so a stale copy is distinguishable from
// the current generation.
func Save(k *kernel.Kernel, path string) error {
	seq := uint32(1)
	if prev, err := os.ReadFile(path); err == nil {
		if h, err := format.ParseHeader(prev); err == nil {
			seq = h.PrimarySequence + 1
		}
	}

	snap, err := k.Snapshot()
	if err != nil {
		return fmt.Errorf("image: %w", err)
	}
	buf, err := encodeSnapshot(snap, seq, time.Now())
	if err != nil {
		return err
	}
	w := &writer.FileWriter{Path: path}
	if err := w.WriteImage(buf); err != nil {
		return fmt.Errorf("image: write %s: %w", path, err)
	}
	return nil
}

// Load maps the image at path and rebuilds the machine from it. The
// mapping is released before Load returns; the kernel owns copies of
// everything it needs.
func Load(path string) (*kernel.Kernel, error) {
	data, release, err := mmfile.Map(path)
	if err != nil {
		return nil, fmt.Errorf("image: open %s: %w", path, err)
	}
	defer func() { _ = release() }()
	return Decode(data)
}
