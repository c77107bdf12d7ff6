package vfs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind discriminates directories from files.
type Kind uint8

const (
	KindDir Kind = iota
	KindFile
)

// String returns the kind name as shown in reports.
func (k Kind) String() string {
	switch k {
	case KindDir:
		return "directory"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// NodeInfo describes one node. Size is the content length for files and
// the recursive content total for directories; Children counts a
// directory's direct children and is zero for files.
type NodeInfo struct {
	Name     string
	Kind     Kind
	Size     uint64
	Children int
}

type node struct {
	name     string
	parent   *node
	dir      bool
	children map[string]*node // directories only
	content  []byte           // files only
}

func newDir(name string, parent *node) *node {
	return &node{name: name, parent: parent, dir: true, children: make(map[string]*node)}
}

// size returns the content length for files and the recursive total of
// contained file bytes for directories.
func (n *node) size() uint64 {
	if !n.dir {
		return uint64(len(n.content))
	}
	var total uint64
	for _, c := range n.children {
		total += c.size()
	}
	return total
}

func (n *node) info() NodeInfo {
	ni := NodeInfo{Name: n.name, Size: n.size()}
	if n.dir {
		ni.Kind = KindDir
		ni.Children = len(n.children)
	} else {
		ni.Kind = KindFile
	}
	return ni
}

// FS is an in-memory filesystem with a current working directory.
type FS struct {
	mu     sync.RWMutex
	root   *node
	cwd    *node
	closed bool
}

func newBare() *FS {
	root := newDir("/", nil)
	return &FS{root: root, cwd: root}
}

// New creates a filesystem seeded with the standard /bin, /home and /tmp
// directories, with the working directory at the root.
func New() *FS {
	fs := newBare()
	for _, dir := range []string{"/bin", "/home", "/tmp"} {
		if err := fs.Mkdir(dir); err != nil {
			panic("vfs: seeding fresh tree: " + err.Error())
		}
	}
	return fs
}

// resolve walks the tree to the node the path names. The caller holds the
// lock. ".." ascends and stays at the root when already there.
func (fs *FS) resolve(path string) (*node, error) {
	norm := Normalize(path)
	cur := fs.cwd
	if strings.HasPrefix(norm, "/") {
		cur = fs.root
		norm = strings.TrimPrefix(norm, "/")
	}
	if norm == "" || norm == "." {
		return cur, nil
	}
	for _, comp := range strings.Split(norm, "/") {
		if comp == ".." {
			if cur.parent != nil {
				cur = cur.parent
			}
			continue
		}
		if !cur.dir {
			return nil, fmt.Errorf("%w: %s", ErrNotDir, path)
		}
		next, ok := cur.children[comp]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		cur = next
	}
	return cur, nil
}

// absPath rebuilds the absolute path of a node by climbing to the root.
func absPath(n *node) string {
	if n.parent == nil {
		return "/"
	}
	var parts []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

// CreateFile creates a new file with the given content. The parent
// directory must already exist, and nothing may exist at the path.
func (fs *FS) CreateFile(path string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}
	return fs.createFileLocked(path, content)
}

func (fs *FS) createFileLocked(path string, content []byte) error {
	norm := Normalize(path)
	if norm == "/" || norm == "." {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	parentPath, name := splitParent(norm)
	if name == "" || name == ".." {
		return fmt.Errorf("vfs: invalid path %q", path)
	}

	parent, err := fs.resolve(parentPath)
	if err != nil {
		return err
	}
	if !parent.dir {
		return fmt.Errorf("%w: %s", ErrNotDir, parentPath)
	}
	if _, ok := parent.children[name]; ok {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}

	parent.children[name] = &node{
		name:    name,
		parent:  parent,
		content: append([]byte(nil), content...),
	}
	return nil
}

// Mkdir creates a directory, creating missing parents along the way.
// An already-existing directory is success; a file in the path is not.
func (fs *FS) Mkdir(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	norm := Normalize(path)
	cur := fs.cwd
	if strings.HasPrefix(norm, "/") {
		cur = fs.root
		norm = strings.TrimPrefix(norm, "/")
	}
	if norm == "" || norm == "." {
		return nil
	}
	for _, comp := range strings.Split(norm, "/") {
		if comp == ".." {
			if cur.parent != nil {
				cur = cur.parent
			}
			continue
		}
		next, ok := cur.children[comp]
		if !ok {
			next = newDir(comp, cur)
			cur.children[comp] = next
		} else if !next.dir {
			return fmt.Errorf("%w: %s", ErrNotDir, path)
		}
		cur = next
	}
	return nil
}

// Remove deletes a file or a whole directory subtree. The root refuses.
// If the working directory is inside the removed subtree it moves to the
// removed node's parent.
func (fs *FS) Remove(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	n, err := fs.resolve(path)
	if err != nil {
		return err
	}
	if n == fs.root {
		return ErrRootProtected
	}

	for cur := fs.cwd; cur != nil; cur = cur.parent {
		if cur == n {
			fs.cwd = n.parent
			break
		}
	}
	delete(n.parent.children, n.name)
	return nil
}

// ReadFile returns a copy of the file's content.
func (fs *FS) ReadFile(path string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, ErrClosed
	}
	n, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if n.dir {
		return nil, fmt.Errorf("%w: %s", ErrIsDir, path)
	}
	return append([]byte(nil), n.content...), nil
}

// WriteFile replaces the file's content, creating the file if the path
// names nothing yet.
func (fs *FS) WriteFile(path string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}
	n, err := fs.resolve(path)
	if err != nil {
		return fs.createFileLocked(path, content)
	}
	if n.dir {
		return fmt.Errorf("%w: %s", ErrIsDir, path)
	}
	n.content = append([]byte(nil), content...)
	return nil
}

// List returns the directory's direct children, directories first, each
// group sorted by name.
func (fs *FS) List(path string) ([]NodeInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, ErrClosed
	}
	n, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if !n.dir {
		return nil, fmt.Errorf("%w: %s", ErrNotDir, path)
	}

	var dirs, files []NodeInfo
	for _, c := range n.children {
		if c.dir {
			dirs = append(dirs, c.info())
		} else {
			files = append(files, c.info())
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return append(dirs, files...), nil
}

// Stat returns information about the node at path.
func (fs *FS) Stat(path string) (NodeInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return NodeInfo{}, ErrClosed
	}
	n, err := fs.resolve(path)
	if err != nil {
		return NodeInfo{}, err
	}
	return n.info(), nil
}

// ChangeDir moves the working directory.
func (fs *FS) ChangeDir(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}
	n, err := fs.resolve(path)
	if err != nil {
		return err
	}
	if !n.dir {
		return fmt.Errorf("%w: %s", ErrNotDir, path)
	}
	fs.cwd = n
	return nil
}

// WorkingDir returns the absolute path of the working directory.
func (fs *FS) WorkingDir() (string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return "", ErrClosed
	}
	return absPath(fs.cwd), nil
}

// Close drops the whole tree and rejects all later calls with ErrClosed.
func (fs *FS) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}
	fs.closed = true
	fs.root = nil
	fs.cwd = nil
	return nil
}
