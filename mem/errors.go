package mem

// ErrKind classifies allocator errors so callers can branch on intent rather
// than text.
type ErrKind int

const (
	KindInvalidSize     ErrKind = iota // zero-byte request
	KindOutOfMemory                    // request exceeds total free bytes
	KindNoSuitableBlock                // free total would cover it, no single block does
	KindNotFound                       // address does not start any block
	KindDoubleFree                     // block at address is already free
	KindClosed                         // arena has been closed
)

// Error is a typed allocator error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind, so errors.Is(err, ErrOutOfMemory)
// holds for any out-of-memory error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is. Operations return richer messages carrying the
// offending size or address, matching these by kind.
var (
	// ErrInvalidSize indicates a zero-byte allocation request.
	ErrInvalidSize = &Error{Kind: KindInvalidSize, Msg: "mem: invalid size"}

	// ErrOutOfMemory indicates the arena holds fewer free bytes than requested.
	ErrOutOfMemory = &Error{Kind: KindOutOfMemory, Msg: "mem: out of memory"}

	// ErrNoSuitableBlock indicates enough free bytes exist in total but
	// fragmentation leaves no single block large enough.
	ErrNoSuitableBlock = &Error{Kind: KindNoSuitableBlock, Msg: "mem: no suitable block"}

	// ErrNotFound indicates no block starts at the given address.
	ErrNotFound = &Error{Kind: KindNotFound, Msg: "mem: address not found"}

	// ErrDoubleFree indicates the block at the given address is already free.
	ErrDoubleFree = &Error{Kind: KindDoubleFree, Msg: "mem: double free"}

	// ErrClosed indicates the arena has been closed and accepts no further
	// operations.
	ErrClosed = &Error{Kind: KindClosed, Msg: "mem: arena is closed"}
)
