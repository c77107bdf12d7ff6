// Package proc implements the process table for the simulated machine.
//
// Processes are bookkeeping records only: a PID, a name, a priority, a
// scheduling state, and the bytes of arena memory currently charged to
// them. Nothing executes. PID 1 is the init process, created with the
// table and protected from termination; it exists so the machine always
// has at least one live owner.
//
// All Table methods are safe for concurrent use.
package proc
