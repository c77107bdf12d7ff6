package benchmarks

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/oskit-dev/oskit/image"
	"github.com/oskit-dev/oskit/internal/testutil"
	"github.com/oskit-dev/oskit/kernel"
)

// Machine shapes for codec benchmarks.
var machineSizes = []struct {
	name  string
	procs int
	files int
}{
	{"small", 4, 4},
	{"medium", 64, 64},
	{"large", 512, 512},
}

// bootPopulated builds a machine with the given number of processes,
// one allocation each, and a flat directory of written files.
func bootPopulated(b *testing.B, procs, files int) *kernel.Kernel {
	b.Helper()

	k := kernel.New(kernel.Config{Memory: 64 << 20})
	if err := k.Initialize(); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = k.Close() })

	for i := 0; i < procs; i++ {
		pid := i + 2
		testutil.MustExec(b, k, fmt.Sprintf("proc-create worker-%d %d", pid, i%20+1))
		testutil.MustExec(b, k, fmt.Sprintf("mem-alloc 4096 %d", pid))
	}
	testutil.MustExec(b, k, "mkdir /srv")
	for i := 0; i < files; i++ {
		testutil.MustExec(b, k, fmt.Sprintf("fs-write /srv/file-%04d payload for file %d", i, i))
	}
	return k
}

// BenchmarkEncode measures serializing a machine to image bytes.
func BenchmarkEncode(b *testing.B) {
	for _, tc := range machineSizes {
		b.Run(tc.name, func(b *testing.B) {
			k := bootPopulated(b, tc.procs, tc.files)

			data, err := image.Encode(k)
			if err != nil {
				b.Fatal(err)
			}

			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			b.ResetTimer()

			for range b.N {
				data, err = image.Encode(k)
				if err != nil {
					b.Fatal(err)
				}
			}
			benchBytes = data
		})
	}
}

// BenchmarkDecode measures rebuilding a machine from image bytes.
func BenchmarkDecode(b *testing.B) {
	for _, tc := range machineSizes {
		b.Run(tc.name, func(b *testing.B) {
			k := bootPopulated(b, tc.procs, tc.files)
			data, err := image.Encode(k)
			if err != nil {
				b.Fatal(err)
			}

			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			b.ResetTimer()

			for range b.N {
				k2, err := image.Decode(data)
				if err != nil {
					b.Fatal(err)
				}
				_ = k2.Close()
			}
		})
	}
}

// BenchmarkSave measures the full atomic file write, including the
// sequence handoff from the previous image generation.
func BenchmarkSave(b *testing.B) {
	k := bootPopulated(b, 64, 64)
	path := filepath.Join(b.TempDir(), "bench.osim")

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		if err := image.Save(k, path); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLoad measures mapping and decoding an image file.
func BenchmarkLoad(b *testing.B) {
	k := bootPopulated(b, 64, 64)
	path := filepath.Join(b.TempDir(), "bench.osim")
	if err := image.Save(k, path); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		k2, err := image.Load(path)
		if err != nil {
			b.Fatal(err)
		}
		_ = k2.Close()
	}
}
