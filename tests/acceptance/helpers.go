// Package acceptance drives machines exclusively through the console
// command surface, the way a user at the shell would. Anything these
// tests need must be reachable with kernel.Exec; direct subsystem calls
// belong in the package tests.
package acceptance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oskit-dev/oskit/internal/testutil"
	"github.com/oskit-dev/oskit/kernel"
)

// boot starts the standard small machine.
func boot(t *testing.T) *kernel.Kernel {
	t.Helper()
	return testutil.Boot(t, testutil.SmallConfig())
}

// run executes one command and requires it to succeed.
func run(t *testing.T, k *kernel.Kernel, cmd string) string {
	t.Helper()

	out, err := k.Exec(cmd)
	require.NoError(t, err, "command %q", cmd)
	return out
}

// mustFail executes one command and requires it to fail, returning the
// error for closer inspection.
func mustFail(t *testing.T, k *kernel.Kernel, cmd string) error {
	t.Helper()

	_, err := k.Exec(cmd)
	require.Error(t, err, "command %q should fail", cmd)
	return err
}
