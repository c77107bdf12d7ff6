package kernel

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/oskit-dev/oskit/mem"
	"github.com/oskit-dev/oskit/printer"
	"github.com/oskit-dev/oskit/proc"
)

// Exec tokenizes a command line and runs it. An empty line is a no-op.
func (k *Kernel) Exec(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return k.ExecArgs(fields[0], fields[1:])
}

// ExecArgs runs a single command. The command name is case-insensitive.
// Reports come back as the result string; argument and subsystem failures
// come back as errors, with dispatcher-side errors wrapping ErrUsage so
// callers can tell a typo from an allocator refusal.
func (k *Kernel) ExecArgs(cmd string, args []string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.running {
		return "", ErrNotRunning
	}

	cmd = strings.ToLower(cmd)
	switch cmd {
	case "info":
		return k.Info(), nil
	case "shutdown":
		if err := k.shutdownLocked(); err != nil {
			return "", err
		}
		return "Kernel shutdown complete", nil
	case "restart":
		if err := k.shutdownLocked(); err != nil {
			return "", err
		}
		if err := k.initializeLocked(); err != nil {
			return "", err
		}
		return "Kernel restarted successfully", nil
	}

	// Route by subsystem the way the command names group: fs verbs,
	// process verbs, then everything mem-prefixed.
	switch {
	case strings.HasPrefix(cmd, "fs") || cmd == "ls" || cmd == "cd" || cmd == "pwd" ||
		cmd == "mkdir" || cmd == "touch" || cmd == "rm" || cmd == "cat":
		return k.fsCommand(cmd, args)
	case strings.HasPrefix(cmd, "proc") || cmd == "ps" || cmd == "kill":
		return k.procCommand(cmd, args)
	case strings.HasPrefix(cmd, "mem"):
		return k.memCommand(cmd, args)
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

// report renders through a text printer into a string, without the
// trailing newline so callers control line endings.
func report(render func(*printer.Printer) error) (string, error) {
	var buf bytes.Buffer
	p := printer.New(&buf, printer.DefaultOptions())
	if err := render(p); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func usageErr(usage string) error {
	return fmt.Errorf("%w: usage: %s", ErrUsage, usage)
}

func parsePID(s string) (proc.PID, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid pid %q", ErrUsage, s)
	}
	return proc.PID(n), nil
}

func (k *Kernel) memCommand(cmd string, args []string) (string, error) {
	switch cmd {
	case "mem-stats", "mem-info":
		st, err := k.arena.Stats()
		if err != nil {
			return "", err
		}
		return report(func(p *printer.Printer) error { return p.MemoryReport(st) })

	case "mem-alloc":
		if len(args) < 2 {
			return "", usageErr("mem-alloc <size> <pid>")
		}
		size, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: invalid size %q", ErrUsage, args[0])
		}
		pid, err := parsePID(args[1])
		if err != nil {
			return "", err
		}
		// The registry is consulted before the arena: allocating for a
		// pid that does not exist is a dispatcher error, not an
		// allocator one.
		if !k.table.Exists(pid) {
			return "", fmt.Errorf("%w: no process with pid %d", ErrUsage, pid)
		}
		addr, err := k.arena.Alloc(size, mem.Owner(pid))
		if err != nil {
			return "", err
		}
		blk, err := k.arena.BlockAt(addr)
		if err != nil {
			return "", err
		}
		_ = k.table.AddMemory(pid, blk.Size)
		return fmt.Sprintf("Allocated %d bytes at address %d for process %d", blk.Size, addr, pid), nil

	case "mem-free":
		if len(args) == 0 {
			return "", usageErr("mem-free <address>")
		}
		addr, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: invalid address %q", ErrUsage, args[0])
		}
		blk, err := k.arena.BlockAt(addr)
		if err != nil {
			return "", err
		}
		if err := k.arena.Free(addr); err != nil {
			return "", err
		}
		if owner := proc.PID(blk.Owner); k.table.Exists(owner) {
			_ = k.table.ReleaseMemory(owner, blk.Size)
		}
		return fmt.Sprintf("Freed %d bytes at address %d", blk.Size, addr), nil

	case "mem-free-proc":
		if len(args) == 0 {
			return "", usageErr("mem-free-proc <pid>")
		}
		pid, err := parsePID(args[0])
		if err != nil {
			return "", err
		}
		freed, err := k.arena.FreeOwner(mem.Owner(pid))
		if err != nil {
			return "", err
		}
		if k.table.Exists(pid) {
			_ = k.table.ReleaseMemory(pid, freed)
		}
		return fmt.Sprintf("Freed %d bytes for process %d", freed, pid), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func (k *Kernel) procCommand(cmd string, args []string) (string, error) {
	switch cmd {
	case "ps", "proc-list":
		list := k.table.List()
		return report(func(p *printer.Printer) error { return p.ProcessReport(list) })

	case "proc-info":
		if len(args) == 0 {
			return "", usageErr("proc-info <pid>")
		}
		pid, err := parsePID(args[0])
		if err != nil {
			return "", err
		}
		pr, err := k.table.Get(pid)
		if err != nil {
			return "", err
		}
		return report(func(p *printer.Printer) error { return p.ProcessDetail(pr) })

	case "proc-create":
		if len(args) == 0 {
			return "", usageErr("proc-create <name> [priority]")
		}
		priority := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return "", fmt.Errorf("%w: invalid priority %q", ErrUsage, args[1])
			}
			priority = n
		}
		pid, err := k.table.Create(args[0], priority)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Process created with PID %d", pid), nil

	case "kill", "proc-terminate":
		if len(args) == 0 {
			return "", usageErr("kill <pid>")
		}
		pid, err := parsePID(args[0])
		if err != nil {
			return "", err
		}
		if err := k.table.Terminate(pid); err != nil {
			return "", err
		}
		// A terminated process must not keep memory; release whatever
		// it still owned.
		freed, err := k.arena.FreeOwner(mem.Owner(pid))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Process %d terminated, freed %d bytes", pid, freed), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func (k *Kernel) fsCommand(cmd string, args []string) (string, error) {
	switch cmd {
	case "ls":
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		entries, err := k.fs.List(path)
		if err != nil {
			return "", err
		}
		return report(func(p *printer.Printer) error { return p.ListingReport(path, entries) })

	case "cd":
		if len(args) == 0 {
			return "", usageErr("cd <path>")
		}
		if err := k.fs.ChangeDir(args[0]); err != nil {
			return "", err
		}
		wd, err := k.fs.WorkingDir()
		if err != nil {
			return "", err
		}
		return "Changed directory to " + wd, nil

	case "pwd":
		return k.fs.WorkingDir()

	case "mkdir":
		if len(args) == 0 {
			return "", usageErr("mkdir <path>")
		}
		if err := k.fs.Mkdir(args[0]); err != nil {
			return "", err
		}
		return "Directory created: " + args[0], nil

	case "touch":
		if len(args) == 0 {
			return "", usageErr("touch <path>")
		}
		if err := k.fs.CreateFile(args[0], nil); err != nil {
			return "", err
		}
		return "File created: " + args[0], nil

	case "rm":
		if len(args) == 0 {
			return "", usageErr("rm <path>")
		}
		if err := k.fs.Remove(args[0]); err != nil {
			return "", err
		}
		return "Deleted: " + args[0], nil

	case "cat":
		if len(args) == 0 {
			return "", usageErr("cat <path>")
		}
		data, err := k.fs.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "fs-info":
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		ni, err := k.fs.Stat(path)
		if err != nil {
			return "", err
		}
		return report(func(p *printer.Printer) error { return p.NodeReport(ni) })

	case "fs-write":
		if len(args) < 2 {
			return "", usageErr("fs-write <path> <text...>")
		}
		content := []byte(strings.Join(args[1:], " "))
		if err := k.fs.WriteFile(args[0], content); err != nil {
			return "", err
		}
		return fmt.Sprintf("Wrote %d bytes to %s", len(content), args[0]), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}
