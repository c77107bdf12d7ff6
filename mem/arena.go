package mem

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Runtime debug flag for allocation logging - controlled by OSKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("OSKIT_LOG_ALLOC") != ""

// DefaultSplitThreshold is the minimum remainder, in bytes, worth keeping as
// its own free block when an allocation does not consume a block exactly.
// Remainders below it are absorbed into the allocation.
const DefaultSplitThreshold = 64

// Options configures an Arena.
type Options struct {
	// SplitThreshold overrides DefaultSplitThreshold. Zero splits on any
	// positive remainder.
	SplitThreshold uint64
}

// DefaultOptions are the options used when NewWithOptions receives nil.
var DefaultOptions = Options{
	SplitThreshold: DefaultSplitThreshold,
}

// Arena manages a fixed span of abstract addresses as an address-ordered
// block list. See the package documentation for the full model.
type Arena struct {
	mu sync.RWMutex

	// blocks partitions [0, capacity) in address order. Adjacent free
	// blocks never survive a mutating operation.
	blocks []Block

	capacity       uint64
	freeBytes      uint64 // cached sum of free block sizes
	splitThreshold uint64
	closed         bool

	counters Counters
}

// New creates an arena of the given capacity as a single free block,
// using DefaultOptions. Capacity must be positive; New panics otherwise,
// as there is no meaningful zero-byte address space.
func New(capacity uint64) *Arena {
	return NewWithOptions(capacity, nil)
}

// NewWithOptions is New with explicit options. A nil opts selects
// DefaultOptions.
func NewWithOptions(capacity uint64, opts *Options) *Arena {
	if capacity == 0 {
		panic("mem: arena capacity must be positive")
	}
	if opts == nil {
		opts = &DefaultOptions
	}
	return &Arena{
		blocks:         []Block{{Address: 0, Size: capacity, Status: StatusFree}},
		capacity:       capacity,
		freeBytes:      capacity,
		splitThreshold: opts.SplitThreshold,
	}
}

// Restore rebuilds an arena from a previously captured block list, for
// example one decoded from a machine image. The list must be a valid
// partition of [0, capacity): address-ordered, gap-free, positive sizes,
// no two adjacent free blocks. Restore copies the list and rederives the
// free-byte count.
func Restore(capacity uint64, blocks []Block, opts *Options) (*Arena, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("mem: restore: capacity must be positive")
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("mem: restore: empty block list")
	}
	if blocks[0].Address != 0 {
		return nil, fmt.Errorf("mem: restore: first block starts at %d, want 0", blocks[0].Address)
	}

	var free uint64
	for i, b := range blocks {
		if b.Size == 0 {
			return nil, fmt.Errorf("mem: restore: block %d at address %d has zero size", i, b.Address)
		}
		if b.Status != StatusFree && b.Status != StatusAllocated {
			return nil, fmt.Errorf("mem: restore: block %d has unknown status %d", i, b.Status)
		}
		if i > 0 {
			prev := blocks[i-1]
			if b.Address != prev.End() {
				return nil, fmt.Errorf("mem: restore: block %d starts at %d, want %d (partition has a gap or overlap)",
					i, b.Address, prev.End())
			}
			if prev.Free() && b.Free() {
				return nil, fmt.Errorf("mem: restore: adjacent free blocks at addresses %d and %d",
					prev.Address, b.Address)
			}
		}
		if b.Free() {
			free += b.Size
		}
	}
	if end := blocks[len(blocks)-1].End(); end != capacity {
		return nil, fmt.Errorf("mem: restore: blocks cover [0, %d), want [0, %d)", end, capacity)
	}

	if opts == nil {
		opts = &DefaultOptions
	}
	a := &Arena{
		blocks:         make([]Block, len(blocks)),
		capacity:       capacity,
		freeBytes:      free,
		splitThreshold: opts.SplitThreshold,
	}
	copy(a.blocks, blocks)
	for i := range a.blocks {
		if a.blocks[i].Free() {
			a.blocks[i].Owner = 0
		}
	}
	return a, nil
}

// Alloc grants size bytes to owner and returns the granted address.
// The search is first-fit over the address-ordered block list. When the
// chosen block leaves a remainder of at least the split threshold, the
// remainder stays free as its own block; smaller remainders are absorbed,
// so the granted block may exceed the requested size.
func (a *Arena) Alloc(size uint64, owner Owner) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, ErrClosed
	}
	a.counters.AllocCalls++

	if size == 0 {
		return 0, &Error{Kind: KindInvalidSize, Msg: "mem: invalid size: allocation must be at least 1 byte"}
	}
	if size > a.freeBytes {
		return 0, &Error{
			Kind: KindOutOfMemory,
			Msg:  fmt.Sprintf("mem: out of memory: need %d bytes, %d free", size, a.freeBytes),
		}
	}

	// First fit: lowest-addressed free block that is large enough.
	idx := -1
	for i := range a.blocks {
		if a.blocks[i].Free() && a.blocks[i].Size >= size {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0, &Error{
			Kind: KindNoSuitableBlock,
			Msg: fmt.Sprintf("mem: no suitable block: need %d contiguous bytes, %d free but fragmented",
				size, a.freeBytes),
		}
	}

	b := &a.blocks[idx]
	if rem := b.Size - size; rem > 0 && rem >= a.splitThreshold {
		// Split: the head becomes the allocation, the tail stays free.
		a.counters.Splits++
		tail := Block{Address: b.Address + size, Size: rem, Status: StatusFree}
		b.Size = size
		a.blocks = append(a.blocks, Block{})
		copy(a.blocks[idx+2:], a.blocks[idx+1:])
		a.blocks[idx+1] = tail
		b = &a.blocks[idx]

		if logAlloc {
			fmt.Fprintf(os.Stderr, "[ALLOC] split at %d: granted=%d tail=%d\n", b.Address, size, rem)
		}
	}

	b.Status = StatusAllocated
	b.Owner = owner
	a.freeBytes -= b.Size
	a.counters.BytesAllocated += int64(b.Size)
	return b.Address, nil
}

// Free releases the block starting exactly at addr and merges any runs of
// adjacent free blocks the release creates. Freeing an address that starts
// no block is ErrNotFound; freeing an already-free block is ErrDoubleFree,
// and neither failure changes arena state.
func (a *Arena) Free(addr uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	a.counters.FreeCalls++

	idx, ok := a.findBlock(addr)
	if !ok {
		return &Error{
			Kind: KindNotFound,
			Msg:  fmt.Sprintf("mem: address not found: no block starts at %d", addr),
		}
	}
	b := &a.blocks[idx]
	if b.Free() {
		return &Error{
			Kind: KindDoubleFree,
			Msg:  fmt.Sprintf("mem: double free: block at %d is already free", addr),
		}
	}

	b.Status = StatusFree
	b.Owner = 0
	a.freeBytes += b.Size
	a.counters.BytesFreed += int64(b.Size)
	a.coalesce()
	return nil
}

// FreeOwner releases every block held by owner and returns the byte total.
// Coalescing runs once after all blocks are marked, not per block. An owner
// holding nothing frees zero bytes; that is not an error.
func (a *Arena) FreeOwner(owner Owner) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, ErrClosed
	}

	var freed uint64
	for i := range a.blocks {
		b := &a.blocks[i]
		if b.Status == StatusAllocated && b.Owner == owner {
			b.Status = StatusFree
			b.Owner = 0
			freed += b.Size
		}
	}
	if freed > 0 {
		a.freeBytes += freed
		a.counters.BytesFreed += int64(freed)
		a.coalesce()
	}
	return freed, nil
}

// Stats returns a snapshot of arena occupancy. The snapshot is detached:
// later arena activity does not alter it.
func (a *Arena) Stats() (Stats, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return Stats{}, ErrClosed
	}
	s := Stats{
		Capacity:   a.capacity,
		FreeBytes:  a.freeBytes,
		UsedBytes:  a.capacity - a.freeBytes,
		BlockCount: len(a.blocks),
		Blocks:     make([]Block, len(a.blocks)),
	}
	copy(s.Blocks, a.blocks)
	return s, nil
}

// BlockAt returns a copy of the block starting exactly at addr.
func (a *Arena) BlockAt(addr uint64) (Block, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return Block{}, ErrClosed
	}
	idx, ok := a.findBlock(addr)
	if !ok {
		return Block{}, &Error{
			Kind: KindNotFound,
			Msg:  fmt.Sprintf("mem: address not found: no block starts at %d", addr),
		}
	}
	return a.blocks[idx], nil
}

// OwnerBytes returns the total bytes currently allocated to owner.
// A closed arena reports zero.
func (a *Arena) OwnerBytes(owner Owner) uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var total uint64
	for i := range a.blocks {
		if a.blocks[i].Status == StatusAllocated && a.blocks[i].Owner == owner {
			total += a.blocks[i].Size
		}
	}
	return total
}

// Capacity returns the fixed arena capacity in bytes.
func (a *Arena) Capacity() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.capacity
}

// Counters returns cumulative operation counts. Intended for tests and
// instrumentation; values only grow.
func (a *Arena) Counters() Counters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counters
}

// Close tears the arena down. Blocks still allocated are dropped with it;
// owners are not notified. Every later operation, Close included, fails
// with ErrClosed.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	a.closed = true
	a.blocks = nil
	a.freeBytes = 0
	return nil
}

// findBlock locates the index of the block starting exactly at addr.
// O(log n) binary search over the address-ordered list.
func (a *Arena) findBlock(addr uint64) (int, bool) {
	i := sort.Search(len(a.blocks), func(i int) bool {
		return a.blocks[i].Address >= addr
	})
	if i < len(a.blocks) && a.blocks[i].Address == addr {
		return i, true
	}
	return 0, false
}

// coalesce merges adjacent free blocks until none remain. After each merge
// the scan restarts from the front so chains of three or more collapse
// fully regardless of where the merge happened.
func (a *Arena) coalesce() {
	for {
		merged := false
		for i := 0; i+1 < len(a.blocks); i++ {
			if a.blocks[i].Free() && a.blocks[i+1].Free() {
				a.blocks[i].Size += a.blocks[i+1].Size
				a.blocks = append(a.blocks[:i+1], a.blocks[i+2:]...)
				a.counters.Merges++
				merged = true

				if logAlloc {
					fmt.Fprintf(os.Stderr, "[ALLOC] merged free run at %d: size=%d\n",
						a.blocks[i].Address, a.blocks[i].Size)
				}
				break
			}
		}
		if !merged {
			return
		}
	}
}
