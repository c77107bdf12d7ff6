// Package kernel coordinates the three machine subsystems (memory,
// processes, filesystem) and exposes the command dispatcher the front
// ends drive.
//
// # Overview
//
// A Kernel is constructed from a Config, booted with Initialize, and then
// driven through Exec or ExecArgs:
//
//	k := kernel.New(kernel.DefaultConfig())
//	if err := k.Initialize(); err != nil {
//		return err
//	}
//	defer k.Close()
//
//	out, err := k.Exec("mem-alloc 4096 1")
//
// Commands keep the surface of the original machine console: mem-stats,
// mem-alloc, mem-free, mem-free-proc, ps, proc-info, proc-create, kill,
// ls, cd, pwd, mkdir, touch, rm, cat, fs-info, fs-write, plus the
// built-ins info, shutdown and restart.
//
// # Cross-subsystem contracts
//
// The dispatcher owns the glue between subsystems: mem-alloc refuses
// owners the process table does not know, kill releases the terminated
// process's memory, and granted bytes are tracked on the owning process
// control block. The subsystems themselves never call each other.
//
// # Errors
//
// Dispatcher-side problems (bad arguments, unknown pids, unroutable
// commands) wrap ErrUsage or ErrUnknownCommand. Subsystem refusals pass
// through unchanged, so errors.Is sees mem.ErrOutOfMemory or
// proc.ErrInitProtected exactly as the subsystem raised them.
package kernel
