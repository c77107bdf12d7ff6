package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oskit-dev/oskit/mem"
	"github.com/oskit-dev/oskit/proc"
	"github.com/oskit-dev/oskit/vfs"
)

// smallConfig keeps addresses easy to reason about in dispatcher tests.
func smallConfig() Config {
	return Config{Memory: 1024, SplitThreshold: 64, SplitThresholdSet: true}
}

func TestExecEmptyLineIsNoOp(t *testing.T) {
	k := bootKernel(t, smallConfig())
	out, err := k.Exec("   ")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestExecUnknownCommand(t *testing.T) {
	k := bootKernel(t, smallConfig())
	_, err := k.Exec("frobnicate")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = k.Exec("mem-defrag")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestExecCommandsAreCaseInsensitive(t *testing.T) {
	k := bootKernel(t, smallConfig())

	out, err := k.Exec("MEM-STATS")
	require.NoError(t, err)
	assert.Contains(t, out, "Free: 1024 bytes")

	out, err = k.Exec("PS")
	require.NoError(t, err)
	assert.Contains(t, out, "init")
}

func TestMemAllocHappyPath(t *testing.T) {
	k := bootKernel(t, smallConfig())

	out, err := k.Exec("mem-alloc 100 1")
	require.NoError(t, err)
	assert.Equal(t, "Allocated 100 bytes at address 0 for process 1", out)

	// Granted bytes land on the owning process control block.
	init, err := k.Table().Get(proc.InitPID)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), init.MemoryBytes)
}

func TestMemAllocArgumentErrors(t *testing.T) {
	k := bootKernel(t, smallConfig())

	cases := []string{
		"mem-alloc",
		"mem-alloc 100",
		"mem-alloc many 1",
		"mem-alloc 100 first",
		"mem-alloc 100 0",
		"mem-alloc 100 -3",
		"mem-alloc 100 99", // no such process
	}
	for _, line := range cases {
		_, err := k.Exec(line)
		assert.ErrorIs(t, err, ErrUsage, "%q should be a dispatcher error", line)
	}

	// Dispatcher errors never reach the arena.
	st, err := k.Arena().Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), st.FreeBytes)
}

func TestMemAllocAllocatorErrorsPassThrough(t *testing.T) {
	k := bootKernel(t, smallConfig())

	_, err := k.Exec("mem-alloc 2048 1")
	assert.ErrorIs(t, err, mem.ErrOutOfMemory)
	assert.NotErrorIs(t, err, ErrUsage)

	_, err = k.Exec("mem-alloc 0 1")
	assert.ErrorIs(t, err, mem.ErrInvalidSize)
}

func TestMemFreeAndAccounting(t *testing.T) {
	k := bootKernel(t, smallConfig())

	_, err := k.Exec("mem-alloc 100 1")
	require.NoError(t, err)

	out, err := k.Exec("mem-free 0")
	require.NoError(t, err)
	assert.Equal(t, "Freed 100 bytes at address 0", out)

	init, err := k.Table().Get(proc.InitPID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), init.MemoryBytes, "freeing returns the bytes to the PCB account")

	_, err = k.Exec("mem-free 0")
	assert.ErrorIs(t, err, mem.ErrDoubleFree)

	_, err = k.Exec("mem-free 999")
	assert.ErrorIs(t, err, mem.ErrNotFound)

	_, err = k.Exec("mem-free soon")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestMemFreeProc(t *testing.T) {
	k := bootKernel(t, smallConfig())

	_, err := k.Exec("proc-create worker")
	require.NoError(t, err)
	_, err = k.Exec("mem-alloc 100 2")
	require.NoError(t, err)
	_, err = k.Exec("mem-alloc 200 2")
	require.NoError(t, err)

	out, err := k.Exec("mem-free-proc 2")
	require.NoError(t, err)
	assert.Equal(t, "Freed 300 bytes for process 2", out)

	worker, err := k.Table().Get(proc.PID(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), worker.MemoryBytes)

	st, err := k.Arena().Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), st.FreeBytes)
	assert.Equal(t, 1, st.BlockCount, "batched release coalesces back to one block")
}

func TestProcCreateDefaultsAndPriority(t *testing.T) {
	k := bootKernel(t, smallConfig())

	out, err := k.Exec("proc-create worker")
	require.NoError(t, err)
	assert.Equal(t, "Process created with PID 2", out)

	worker, err := k.Table().Get(proc.PID(2))
	require.NoError(t, err)
	assert.Equal(t, 1, worker.Priority, "missing priority defaults to 1")
	assert.Equal(t, proc.StateReady, worker.State)

	_, err = k.Exec("proc-create batch 7")
	require.NoError(t, err)
	batch, err := k.Table().Get(proc.PID(3))
	require.NoError(t, err)
	assert.Equal(t, 7, batch.Priority)

	_, err = k.Exec("proc-create late soon")
	assert.ErrorIs(t, err, ErrUsage)

	_, err = k.Exec("proc-create")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestProcInfoReport(t *testing.T) {
	k := bootKernel(t, smallConfig())

	out, err := k.Exec("proc-info 1")
	require.NoError(t, err)
	assert.Contains(t, out, "PID: 1")
	assert.Contains(t, out, "Name: init")
	assert.Contains(t, out, "State: running")

	_, err = k.Exec("proc-info 42")
	assert.ErrorIs(t, err, proc.ErrNotFound)
}

func TestKillReleasesMemory(t *testing.T) {
	k := bootKernel(t, smallConfig())

	_, err := k.Exec("proc-create worker")
	require.NoError(t, err)
	_, err = k.Exec("mem-alloc 256 2")
	require.NoError(t, err)

	out, err := k.Exec("kill 2")
	require.NoError(t, err)
	assert.Equal(t, "Process 2 terminated, freed 256 bytes", out)

	assert.False(t, k.Table().Exists(proc.PID(2)))

	st, err := k.Arena().Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), st.FreeBytes, "kill must not leak the process's memory")
}

func TestKillInitIsRefused(t *testing.T) {
	k := bootKernel(t, smallConfig())

	_, err := k.Exec("kill 1")
	assert.ErrorIs(t, err, proc.ErrInitProtected)

	_, err = k.Exec("proc-terminate 1")
	assert.ErrorIs(t, err, proc.ErrInitProtected)
}

func TestFilesystemCommandFlow(t *testing.T) {
	k := bootKernel(t, smallConfig())

	out, err := k.Exec("pwd")
	require.NoError(t, err)
	assert.Equal(t, "/", out)

	_, err = k.Exec("mkdir /home/user")
	require.NoError(t, err)

	out, err = k.Exec("cd /home/user")
	require.NoError(t, err)
	assert.Equal(t, "Changed directory to /home/user", out)

	_, err = k.Exec("touch notes.txt")
	require.NoError(t, err)

	out, err = k.Exec("fs-write notes.txt hello mini os")
	require.NoError(t, err)
	assert.Equal(t, "Wrote 13 bytes to notes.txt", out)

	out, err = k.Exec("cat notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello mini os", out)

	out, err = k.Exec("ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Contents of .:")
	assert.Contains(t, out, "f notes.txt (13 bytes)")

	out, err = k.Exec("fs-info notes.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "File: notes.txt")
	assert.Contains(t, out, "Size: 13 bytes")

	out, err = k.Exec("rm notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "Deleted: notes.txt", out)

	_, err = k.Exec("cat notes.txt")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

func TestFilesystemErrorsPassThrough(t *testing.T) {
	k := bootKernel(t, smallConfig())

	_, err := k.Exec("cd /etc")
	assert.ErrorIs(t, err, vfs.ErrNotFound)

	_, err = k.Exec("rm /")
	assert.ErrorIs(t, err, vfs.ErrRootProtected)

	_, err = k.Exec("cat /bin")
	assert.ErrorIs(t, err, vfs.ErrIsDir)

	_, err = k.Exec("cd")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestMemStatsReport(t *testing.T) {
	k := bootKernel(t, smallConfig())

	_, err := k.Exec("mem-alloc 100 1")
	require.NoError(t, err)

	out, err := k.Exec("mem-stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Used: 100 bytes (9.77%)")
	assert.Contains(t, out, "Free: 924 bytes (90.23%)")
	assert.Contains(t, out, "allocated")

	// mem-info is an alias.
	alias, err := k.Exec("mem-info")
	require.NoError(t, err)
	assert.Equal(t, out, alias)
}

// The original console session: two grants, two frees, back to one block.
func TestAllocFreeSessionEndsCoalesced(t *testing.T) {
	k := bootKernel(t, smallConfig())

	out, err := k.Exec("mem-alloc 100 1")
	require.NoError(t, err)
	assert.Contains(t, out, "address 0")

	out, err = k.Exec("mem-alloc 200 1")
	require.NoError(t, err)
	assert.Contains(t, out, "address 100")

	_, err = k.Exec("mem-free 0")
	require.NoError(t, err)
	st, err := k.Arena().Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.BlockCount, "hole, allocation, tail")

	_, err = k.Exec("mem-free 100")
	require.NoError(t, err)
	st, err = k.Arena().Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, st.BlockCount)
	assert.Equal(t, uint64(1024), st.FreeBytes)
}
