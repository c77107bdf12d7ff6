// Package image serializes a running machine to the OSIM image format and
// rebuilds machines from saved images.
//
// # Overview
//
// An OSIM image is a single self-describing file holding everything a
// machine needs to resume: the memory partition, the process table, the
// file tree, and the configuration the machine booted with. Encode walks a
// kernel snapshot into bytes; Decode verifies those bytes and rebuilds the
// subsystems through their restore constructors, so a loaded machine obeys
// the same invariants a freshly booted one does.
//
// # Quick Start
//
// Save a running machine:
//
//	k := kernel.New(cfg)
//	k.Initialize()
//	// ... run commands ...
//	if err := image.Save(k, "machine.osim"); err != nil {
//	    log.Fatal(err)
//	}
//
// Load it back:
//
//	k, err := image.Load("machine.osim")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer k.Close()
//
// Encode and Decode work on byte slices for callers that manage their own
// I/O.
//
// # Image Layout
//
// The file starts with a 64-byte header (signature, dual sequence numbers,
// timestamp, version, section count, total size, checksum) followed by a
// section table and the section payloads:
//
//	+--------------------+
//	| Header (64 bytes)  |
//	+--------------------+
//	| Section table      |
//	+--------------------+
//	| "mem " payload     |  arena capacity, threshold, block records
//	+--------------------+
//	| "proc" payload     |  process records
//	+--------------------+
//	| "fs  " payload     |  working directory, tree entries
//	+--------------------+
//	| "cfg " payload     |  boot configuration
//	+--------------------+
//
// Byte-level offsets live in internal/format.
//
// # Atomicity and Recovery
//
// Save writes through a temp file and renames it into place, so a crash
// mid-save leaves the previous image intact. Each save continues the
// sequence numbers of the image it replaces; Load rejects images whose
// primary and secondary sequences disagree, along with any image that
// fails the structural checks in image/verify.
//
// # Related Packages
//
//   - github.com/oskit-dev/oskit/image/verify: structural validation
//   - github.com/oskit-dev/oskit/kernel: the machine being captured
//   - github.com/oskit-dev/oskit/internal/format: byte-level layout
package image
