//go:build !linux && !freebsd && !darwin && !windows

package writer

import "os"

// fdatasync falls back to a full sync on platforms without a cheaper call.
func fdatasync(f *os.File, _ bool) error {
	return f.Sync()
}
