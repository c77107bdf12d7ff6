package vfs

import "errors"

var (
	// ErrNotFound indicates the path names no node.
	ErrNotFound = errors.New("vfs: path not found")

	// ErrExists indicates a node with that name already exists.
	ErrExists = errors.New("vfs: node already exists")

	// ErrNotDir indicates a directory operation hit a file.
	ErrNotDir = errors.New("vfs: not a directory")

	// ErrIsDir indicates a file operation hit a directory.
	ErrIsDir = errors.New("vfs: is a directory")

	// ErrRootProtected indicates an attempt to remove the root directory.
	ErrRootProtected = errors.New("vfs: root directory cannot be removed")

	// ErrClosed indicates the filesystem has been closed.
	ErrClosed = errors.New("vfs: filesystem is closed")
)
