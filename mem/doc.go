// Package mem implements the arena allocator that backs the simulated
// machine's physical memory.
//
// # Overview
//
// An Arena manages a fixed span of abstract addresses [0, capacity) as an
// address-ordered list of blocks. Every byte belongs to exactly one block at
// all times; allocation and freeing only relabel, split, or merge blocks,
// they never create gaps or overlaps.
//
// Allocation is first-fit: the lowest-addressed free block large enough wins.
// When the winning block is larger than the request, the remainder is split
// off as a new free block, but only when it is at least SplitThreshold bytes;
// smaller remainders are absorbed into the allocation to avoid unusable
// slivers. Freeing coalesces adjacent free blocks until none remain.
//
// # Usage Example
//
//	a := mem.New(1 << 20)
//
//	addr, err := a.Alloc(4096, owner)
//	if err != nil {
//	    return err
//	}
//
//	// Later, release it (or everything the owner holds).
//	err = a.Free(addr)
//	n, _ := a.FreeOwner(owner)
//
// # Errors
//
// Failures carry an ErrKind so callers can branch on intent: ErrInvalidSize,
// ErrOutOfMemory, ErrNoSuitableBlock, ErrNotFound, ErrDoubleFree, ErrClosed.
// ErrOutOfMemory and ErrNoSuitableBlock are deliberately distinct: the first
// means the arena does not hold enough free bytes in total, the second means
// it does but fragmentation leaves no single block large enough.
//
// # Thread Safety
//
// All Arena methods are safe for concurrent use. Mutating operations
// serialize on a single write lock; Stats and the other read-only queries
// share a read lock and return copies, never views of live state.
package mem
