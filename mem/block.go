package mem

// Owner identifies the process a block is allocated to. The arena treats it
// as an opaque id; it never dereferences or validates owners.
type Owner int32

// Status discriminates free blocks from allocated ones. Code branches on
// Status, never on a magic owner value.
type Status uint8

const (
	// StatusFree marks a block available for allocation. Free blocks have
	// no owner.
	StatusFree Status = iota

	// StatusAllocated marks a block held by an owner.
	StatusAllocated
)

// String returns the status name as shown in reports.
func (s Status) String() string {
	switch s {
	case StatusFree:
		return "free"
	case StatusAllocated:
		return "allocated"
	default:
		return "unknown"
	}
}

// Block describes one contiguous span of the arena address space.
// Owner is meaningful only when Status is StatusAllocated; it is zero
// otherwise.
type Block struct {
	Address uint64
	Size    uint64
	Status  Status
	Owner   Owner
}

// End returns the first address past the block.
func (b Block) End() uint64 { return b.Address + b.Size }

// Free reports whether the block is available for allocation.
func (b Block) Free() bool { return b.Status == StatusFree }

// Stats is a point-in-time snapshot of arena occupancy. FreeBytes and
// UsedBytes always sum to Capacity.
type Stats struct {
	Capacity   uint64
	FreeBytes  uint64
	UsedBytes  uint64
	BlockCount int

	// Blocks is an address-ordered copy of the block list. Mutating it has
	// no effect on the arena.
	Blocks []Block
}

// Counters holds cumulative operation counts for instrumentation and tests.
type Counters struct {
	AllocCalls     int   // total Alloc calls, including failures
	FreeCalls      int   // total Free calls, including failures
	Splits         int   // blocks split during allocation
	Merges         int   // adjacent free pairs merged during coalescing
	BytesAllocated int64 // bytes granted, absorbed remainders included
	BytesFreed     int64 // bytes returned via Free and FreeOwner
}
