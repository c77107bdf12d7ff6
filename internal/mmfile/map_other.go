//go:build !unix

// Package mmfile provides platform-specific helpers for reading machine
// images without copying them through the heap where possible.
package mmfile

import "os"

// Map reads the entire image when mmap is not available. The release
// function is a no-op.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	return data, func() error { return nil }, nil
}
