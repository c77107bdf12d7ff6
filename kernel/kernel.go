package kernel

import (
	"fmt"
	"sync"

	"github.com/oskit-dev/oskit/mem"
	"github.com/oskit-dev/oskit/proc"
	"github.com/oskit-dev/oskit/vfs"
)

// Kernel identity, reported by the info command.
const (
	Name    = "oskit kernel"
	Version = "v0.1.0"
)

// Kernel owns the three subsystems of a machine and dispatches commands
// to them. All methods are safe for concurrent use; commands that touch
// more than one subsystem run atomically with respect to each other.
type Kernel struct {
	mu      sync.Mutex
	cfg     Config
	arena   *mem.Arena
	table   *proc.Table
	fs      *vfs.FS
	running bool
}

// New returns a configured kernel. Call Initialize to boot it.
func New(cfg Config) *Kernel {
	return &Kernel{cfg: cfg.withDefaults()}
}

// Initialize boots the subsystems in order: memory, filesystem, processes.
func (k *Kernel) Initialize() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running {
		return ErrRunning
	}
	return k.initializeLocked()
}

func (k *Kernel) initializeLocked() error {
	opts := mem.Options{SplitThreshold: uint64(k.cfg.SplitThreshold)}
	k.arena = mem.NewWithOptions(uint64(k.cfg.Memory), &opts)
	k.fs = vfs.New()
	k.table = proc.NewTable(k.cfg.InitName)
	k.running = true
	return nil
}

// Restore builds a running kernel around subsystems rebuilt from a saved
// image. All three must be non-nil and open.
func Restore(cfg Config, arena *mem.Arena, table *proc.Table, fs *vfs.FS) (*Kernel, error) {
	if arena == nil || table == nil || fs == nil {
		return nil, fmt.Errorf("kernel: restore requires all subsystems")
	}
	return &Kernel{
		cfg:     cfg.withDefaults(),
		arena:   arena,
		table:   table,
		fs:      fs,
		running: true,
	}, nil
}

// Shutdown stops the machine. Every owner except init has its memory
// released before the arena closes, then the subsystems shut down in
// reverse initialization order. Shutting down a stopped kernel is a no-op.
func (k *Kernel) Shutdown() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.shutdownLocked()
}

func (k *Kernel) shutdownLocked() error {
	if !k.running {
		return nil
	}
	for _, p := range k.table.List() {
		if p.PID == proc.InitPID {
			continue
		}
		if _, err := k.arena.FreeOwner(mem.Owner(p.PID)); err != nil {
			return fmt.Errorf("release pid %d: %w", p.PID, err)
		}
	}
	if err := k.table.Close(); err != nil {
		return err
	}
	if err := k.fs.Close(); err != nil {
		return err
	}
	if err := k.arena.Close(); err != nil {
		return err
	}
	k.arena, k.table, k.fs = nil, nil, nil
	k.running = false
	return nil
}

// Restart shuts the machine down and boots a fresh one with the same
// configuration. All state is discarded.
func (k *Kernel) Restart() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.shutdownLocked(); err != nil {
		return err
	}
	return k.initializeLocked()
}

// Close is Shutdown under the name deferred callers expect.
func (k *Kernel) Close() error {
	return k.Shutdown()
}

// Running reports whether the machine is booted.
func (k *Kernel) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running
}

// Info returns the kernel identity string.
func (k *Kernel) Info() string {
	return Name + " " + Version
}

// Config returns the effective machine configuration.
func (k *Kernel) Config() Config {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cfg
}

// Arena exposes the memory subsystem.
func (k *Kernel) Arena() *mem.Arena {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.arena
}

// Table exposes the process subsystem.
func (k *Kernel) Table() *proc.Table {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.table
}

// FS exposes the filesystem subsystem.
func (k *Kernel) FS() *vfs.FS {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.fs
}

// Snapshot is a point-in-time capture of every subsystem plus the
// configuration that booted them. Image encoding works from a Snapshot so
// the three subsystems are captured under one kernel lock, never
// mid-command.
type Snapshot struct {
	Config     Config
	Memory     mem.Stats
	Processes  []proc.Process
	Tree       []vfs.Entry
	WorkingDir string
}

// Snapshot captures the machine state. The kernel must be running.
func (k *Kernel) Snapshot() (Snapshot, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.running {
		return Snapshot{}, ErrNotRunning
	}
	st, err := k.arena.Stats()
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot memory: %w", err)
	}
	entries, cwd, err := k.fs.Snapshot()
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot file tree: %w", err)
	}
	return Snapshot{
		Config:     k.cfg,
		Memory:     st,
		Processes:  k.table.List(),
		Tree:       entries,
		WorkingDir: cwd,
	}, nil
}
