package mem

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestConcurrentOwnersHammer runs one goroutine per owner doing mixed
// allocate/free traffic, each releasing its leftovers via FreeOwner on the
// way out. Every mutation runs under the arena lock, so the end state must
// be a single free block regardless of interleaving.
func TestConcurrentOwnersHammer(t *testing.T) {
	const (
		capacity = 1 << 20
		workers  = 8
		opsEach  = 500
	)

	a := New(capacity)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(owner Owner, seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			var held []uint64
			for range opsEach {
				if len(held) > 0 && rng.Intn(3) == 0 {
					i := rng.Intn(len(held))
					// Another goroutine never frees our addresses, so
					// only arena exhaustion errors are acceptable here.
					if err := a.Free(held[i]); err != nil {
						t.Errorf("owner %d: free(%d): %v", owner, held[i], err)
					}
					held = append(held[:i], held[i+1:]...)
					continue
				}
				size := uint64(1 + rng.Intn(4096))
				addr, err := a.Alloc(size, owner)
				if err != nil {
					continue // exhaustion under contention is expected
				}
				held = append(held, addr)
			}
			if _, err := a.FreeOwner(owner); err != nil {
				t.Errorf("owner %d: free-by-owner: %v", owner, err)
			}
		}(Owner(w+1), int64(w+1))
	}
	wg.Wait()

	st, err := a.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(capacity), st.FreeBytes, "all owners released everything")
	assert.Equal(t, 1, st.BlockCount)
	assertInvariants(t, a)
}

// TestStatsDuringMutation reads snapshots while writers run. The race
// detector keeps this honest; the assertions check each snapshot is
// internally consistent even mid-traffic.
func TestStatsDuringMutation(t *testing.T) {
	a := New(1 << 16)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(7))
		for {
			select {
			case <-done:
				return
			default:
			}
			addr, err := a.Alloc(uint64(1+rng.Intn(512)), 1)
			if err == nil && rng.Intn(2) == 0 {
				_ = a.Free(addr)
			}
			if rng.Intn(16) == 0 {
				_, _ = a.FreeOwner(1)
			}
		}
	}()

	for range 200 {
		st, err := a.Stats()
		require.NoError(t, err)
		assert.Equal(t, st.Capacity, st.FreeBytes+st.UsedBytes,
			"snapshot free and used must sum to capacity")
		assert.Equal(t, st.BlockCount, len(st.Blocks))

		var free uint64
		for _, b := range st.Blocks {
			if b.Free() {
				free += b.Size
			}
		}
		assert.Equal(t, st.FreeBytes, free, "snapshot accounting must be self-consistent")
	}

	close(done)
	wg.Wait()
}
