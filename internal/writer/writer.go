// Package writer exposes sinks for machine image emission.
package writer

// Sink is an abstract destination for encoded image bytes (file or memory).
type Sink interface {
	// WriteImage receives the fully materialized image bytes. The buffer
	// must be treated as immutable after return.
	WriteImage(buf []byte) error
}

// MemWriter captures image bytes in memory.
type MemWriter struct {
	Buf []byte
}

// WriteImage stores a copy of the provided buffer.
func (w *MemWriter) WriteImage(buf []byte) error {
	w.Buf = append(w.Buf[:0], buf...)
	return nil
}
