package proc

import (
	"fmt"
	"sort"
	"sync"
)

// PID identifies a process. PIDs are assigned sequentially starting at
// InitPID and never reused within a table's lifetime.
type PID int32

// InitPID is the PID of the init process.
const InitPID PID = 1

// State is the scheduling state of a process.
type State uint8

const (
	StateNew State = iota
	StateReady
	StateRunning
	StateWaiting
	StateTerminated
)

// String returns the state name as shown in reports.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Process is one process control record. MemoryBytes is the arena memory
// currently charged to the process; the kernel maintains it as grants and
// releases happen.
type Process struct {
	PID         PID
	Name        string
	Priority    int
	State       State
	MemoryBytes uint64
}

// Table holds the machine's processes keyed by PID.
type Table struct {
	mu     sync.RWMutex
	procs  map[PID]*Process
	next   PID
	closed bool
}

// NewTable creates a table holding only the init process, named initName
// ("init" when empty), running at priority 0.
func NewTable(initName string) *Table {
	if initName == "" {
		initName = "init"
	}
	t := &Table{
		procs: make(map[PID]*Process),
		next:  InitPID,
	}
	t.procs[InitPID] = &Process{
		PID:      InitPID,
		Name:     initName,
		Priority: 0,
		State:    StateRunning,
	}
	t.next++
	return t
}

// RestoreTable rebuilds a table from previously captured records, for
// example ones decoded from a machine image. The records must have unique
// PIDs and include the init process. PID assignment resumes past the
// highest restored PID.
func RestoreTable(procs []Process) (*Table, error) {
	t := &Table{
		procs: make(map[PID]*Process, len(procs)),
		next:  InitPID,
	}
	for _, p := range procs {
		if p.PID < InitPID {
			return nil, fmt.Errorf("proc: restore: invalid pid %d", p.PID)
		}
		if _, ok := t.procs[p.PID]; ok {
			return nil, fmt.Errorf("proc: restore: duplicate pid %d", p.PID)
		}
		cp := p
		t.procs[p.PID] = &cp
		if p.PID >= t.next {
			t.next = p.PID + 1
		}
	}
	if _, ok := t.procs[InitPID]; !ok {
		return nil, fmt.Errorf("proc: restore: init process (pid %d) missing", InitPID)
	}
	return t, nil
}

// Create registers a new process in the ready state and returns its PID.
func (t *Table) Create(name string, priority int) (PID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}
	if name == "" {
		return 0, ErrEmptyName
	}

	pid := t.next
	t.next++
	t.procs[pid] = &Process{
		PID:      pid,
		Name:     name,
		Priority: priority,
		State:    StateReady,
	}
	return pid, nil
}

// Terminate removes the process from the table. The init process refuses
// with ErrInitProtected. Releasing the process's memory is the caller's
// job; the table only forgets the record.
func (t *Table) Terminate(pid PID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if pid == InitPID {
		return ErrInitProtected
	}
	if _, ok := t.procs[pid]; !ok {
		return fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	delete(t.procs, pid)
	return nil
}

// Get returns a copy of the process record.
func (t *Table) Get(pid PID) (Process, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return Process{}, ErrClosed
	}
	p, ok := t.procs[pid]
	if !ok {
		return Process{}, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	return *p, nil
}

// Exists reports whether a process with the given PID is registered.
func (t *Table) Exists(pid PID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.procs[pid]
	return ok
}

// List returns copies of all process records in PID order.
func (t *Table) List() []Process {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Process, 0, len(t.procs))
	for _, p := range t.procs {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Count returns the number of registered processes.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.procs)
}

// AddMemory charges bytes of arena memory to the process.
func (t *Table) AddMemory(pid PID, bytes uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	p, ok := t.procs[pid]
	if !ok {
		return fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	p.MemoryBytes += bytes
	return nil
}

// ReleaseMemory removes bytes from the process's memory charge, clamping
// at zero.
func (t *Table) ReleaseMemory(pid PID, bytes uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	p, ok := t.procs[pid]
	if !ok {
		return fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	if bytes > p.MemoryBytes {
		p.MemoryBytes = 0
		return nil
	}
	p.MemoryBytes -= bytes
	return nil
}

// Close drops every process, init included, and rejects all later calls
// with ErrClosed.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	t.closed = true
	t.procs = nil
	return nil
}
