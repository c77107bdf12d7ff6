// Package benchmarks measures the hot paths of the machine: allocator
// operations, console dispatch, and image codec throughput.
package benchmarks

import (
	"fmt"
	"testing"

	"github.com/oskit-dev/oskit/mem"
)

// Prevent the compiler from optimizing away benchmark results.
//
//nolint:unused // Benchmark sink variables - intentionally write-only
var (
	benchAddr  uint64
	benchErr   error
	benchStats mem.Stats
	benchBytes []byte
	benchOut   string
)

// Request sizes spanning the split threshold up to page-ish allocations.
var allocSizes = []struct {
	name string
	size uint64
}{
	{"64B", 64},
	{"4KiB", 4096},
	{"64KiB", 65536},
}

// BenchmarkAllocFree measures an allocate/free pair on an otherwise
// empty arena. The free merges back, so every iteration sees the same
// single-block state.
func BenchmarkAllocFree(b *testing.B) {
	for _, tc := range allocSizes {
		b.Run(tc.name, func(b *testing.B) {
			a := mem.New(16 << 20)

			b.ReportAllocs()
			b.ResetTimer()

			for range b.N {
				addr, err := a.Alloc(tc.size, 1)
				if err != nil {
					b.Fatal(err)
				}
				if err := a.Free(addr); err != nil {
					b.Fatal(err)
				}
				benchAddr = addr
			}
		})
	}
}

// BenchmarkFreeOwner measures bulk release: eight scattered allocations
// for one owner reclaimed in a single call.
func BenchmarkFreeOwner(b *testing.B) {
	a := mem.New(16 << 20)

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		for i := 0; i < 8; i++ {
			if _, err := a.Alloc(4096, 7); err != nil {
				b.Fatal(err)
			}
		}
		if _, err := a.FreeOwner(7); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFirstFitFragmented measures allocation against a long block
// list. The arena is pre-carved into alternating used and free 4KiB
// blocks so every search walks past hundreds of unusable holes.
func BenchmarkFirstFitFragmented(b *testing.B) {
	const capacity = 16 << 20
	const blockSize = 4096

	a := mem.New(capacity)
	var addrs []uint64
	for {
		addr, err := a.Alloc(blockSize, 1)
		if err != nil {
			break
		}
		addrs = append(addrs, addr)
	}
	// Free every other block: holes of 4KiB that an 8KiB request skips
	for i := 0; i < len(addrs); i += 2 {
		if err := a.Free(addrs[i]); err != nil {
			b.Fatal(err)
		}
	}
	// Keep one 8KiB hole at the very end by freeing the last pair
	n := len(addrs)
	if err := a.Free(addrs[n-1]); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		addr, err := a.Alloc(2*blockSize, 2)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Free(addr); err != nil {
			b.Fatal(err)
		}
		benchAddr = addr
	}
}

// BenchmarkStats measures snapshotting arenas of growing block counts.
func BenchmarkStats(b *testing.B) {
	for _, blocks := range []int{16, 256, 4096} {
		b.Run(fmt.Sprintf("blocks=%d", blocks), func(b *testing.B) {
			a := mem.New(uint64(blocks) * 4096)
			for i := 0; i < blocks/2; i++ {
				if _, err := a.Alloc(4096, 1); err != nil {
					b.Fatal(err)
				}
				// Leave a hole after each allocation
				if _, err := a.Alloc(4096, 2); err != nil {
					b.Fatal(err)
				}
			}
			if _, err := a.FreeOwner(2); err != nil {
				b.Fatal(err)
			}

			b.ReportAllocs()
			b.ResetTimer()

			for range b.N {
				st, err := a.Stats()
				if err != nil {
					b.Fatal(err)
				}
				benchStats = st
			}
		})
	}
}
