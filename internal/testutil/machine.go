// Package testutil boots throwaway machines for tests that cross
// package boundaries.
package testutil

import (
	"testing"

	"github.com/oskit-dev/oskit/kernel"
)

// SmallConfig is the machine most cross-package tests run on: a 4KiB
// arena with an explicit split threshold so block layouts are stable.
func SmallConfig() kernel.Config {
	return kernel.Config{
		Memory:            4096,
		SplitThreshold:    64,
		SplitThresholdSet: true,
	}
}

// WorkloadScript gives a machine some history: two processes beyond
// init, three allocations, and a small file tree. After a replay on
// SmallConfig the machine has
//
//	blocks:    512 shell / 256 daemon / 128 shell / 3200 free
//	processes: init(1) shell(2) daemon(3)
//	files:     /etc/motd (16 bytes), /var/log (working dir)
var WorkloadScript = []string{
	"proc-create shell 10",
	"proc-create daemon 5",
	"mem-alloc 512 2",
	"mem-alloc 256 3",
	"mem-alloc 128 2",
	"mkdir /etc",
	"touch /etc/motd",
	"fs-write /etc/motd welcome to oskit",
	"mkdir /var",
	"mkdir /var/log",
	"cd /var/log",
}

// Boot starts a machine and registers its shutdown with the test.
func Boot(t testing.TB, cfg kernel.Config) *kernel.Kernel {
	t.Helper()

	k := kernel.New(cfg)
	if err := k.Initialize(); err != nil {
		t.Fatalf("initialize kernel: %v", err)
	}
	t.Cleanup(func() { _ = k.Close() })
	return k
}

// MustExec runs one console command, failing the test on any error.
func MustExec(t testing.TB, k *kernel.Kernel, cmd string) string {
	t.Helper()

	out, err := k.Exec(cmd)
	if err != nil {
		t.Fatalf("exec %q: %v", cmd, err)
	}
	return out
}

// Replay runs a script of console commands in order.
func Replay(t testing.TB, k *kernel.Kernel, script []string) {
	t.Helper()

	for _, cmd := range script {
		MustExec(t, k, cmd)
	}
}
