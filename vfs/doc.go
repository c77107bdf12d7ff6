// Package vfs implements the simulated machine's in-memory filesystem: a
// tree of named directories and byte-content files with a current working
// directory.
//
// Paths follow the usual rules. A leading slash makes a path absolute,
// anything else resolves against the working directory, "." and ".." are
// resolved during lookup, and ".." above the root stays at the root. A
// fresh filesystem is seeded with /bin, /home and /tmp.
//
// All FS methods are safe for concurrent use.
package vfs
