package vfs

import (
	"fmt"
	"sort"
	"strings"
)

// Entry is one node in a serialized tree walk. Content is nil for
// directories.
type Entry struct {
	Path    string
	Kind    Kind
	Content []byte
}

// Snapshot captures the whole tree as a deterministic preorder walk
// (parents before children, names sorted), plus the working directory.
// The root itself is implied and not listed.
func (fs *FS) Snapshot() ([]Entry, string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, "", ErrClosed
	}

	var entries []Entry
	var walk func(n *node, path string)
	walk = func(n *node, path string) {
		names := make([]string, 0, len(n.children))
		for name := range n.children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := n.children[name]
			childPath := path + "/" + name
			e := Entry{Path: childPath, Kind: KindFile}
			if c.dir {
				e.Kind = KindDir
			} else {
				e.Content = append([]byte(nil), c.content...)
			}
			entries = append(entries, e)
			if c.dir {
				walk(c, childPath)
			}
		}
	}
	walk(fs.root, "")

	return entries, absPath(fs.cwd), nil
}

// Restore rebuilds a filesystem from a snapshot. Entries must be absolute
// paths with parents listed before children; nothing is seeded beyond
// what the entries name. The working directory is set to cwd, or the root
// when cwd is empty or no longer a directory.
func Restore(entries []Entry, cwd string) (*FS, error) {
	fs := newBare()
	for i, e := range entries {
		if !strings.HasPrefix(e.Path, "/") || Normalize(e.Path) != e.Path {
			return nil, fmt.Errorf("vfs: restore: entry %d has invalid path %q", i, e.Path)
		}
		parentPath, name := splitParent(e.Path)
		if name == "" {
			return nil, fmt.Errorf("vfs: restore: entry %d has invalid path %q", i, e.Path)
		}
		parent, err := fs.resolve(parentPath)
		if err != nil {
			return nil, fmt.Errorf("vfs: restore: entry %d (%s): parent missing", i, e.Path)
		}
		if !parent.dir {
			return nil, fmt.Errorf("vfs: restore: entry %d (%s): parent is a file", i, e.Path)
		}
		if _, ok := parent.children[name]; ok {
			return nil, fmt.Errorf("vfs: restore: entry %d (%s): duplicate node", i, e.Path)
		}
		switch e.Kind {
		case KindDir:
			parent.children[name] = newDir(name, parent)
		case KindFile:
			parent.children[name] = &node{
				name:    name,
				parent:  parent,
				content: append([]byte(nil), e.Content...),
			}
		default:
			return nil, fmt.Errorf("vfs: restore: entry %d (%s): unknown kind %d", i, e.Path, e.Kind)
		}
	}

	if cwd != "" {
		if n, err := fs.resolve(cwd); err == nil && n.dir {
			fs.cwd = n
		}
	}
	return fs, nil
}
