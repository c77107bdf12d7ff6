package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeedsStandardDirectories(t *testing.T) {
	fs := New()

	list, err := fs.List("/")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "bin", list[0].Name)
	assert.Equal(t, "home", list[1].Name)
	assert.Equal(t, "tmp", list[2].Name)
	for _, ni := range list {
		assert.Equal(t, KindDir, ni.Kind)
	}

	wd, err := fs.WorkingDir()
	require.NoError(t, err)
	assert.Equal(t, "/", wd)
}

func TestCreateAndReadFile(t *testing.T) {
	fs := New()

	require.NoError(t, fs.CreateFile("/home/notes.txt", []byte("hello")))

	got, err := fs.ReadFile("/home/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	// The returned slice is a copy.
	got[0] = 'X'
	again, err := fs.ReadFile("/home/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), again)
}

func TestCreateFileConflictsAndMissingParent(t *testing.T) {
	fs := New()

	require.NoError(t, fs.CreateFile("/home/a.txt", nil))
	assert.ErrorIs(t, fs.CreateFile("/home/a.txt", nil), ErrExists)
	assert.ErrorIs(t, fs.CreateFile("/bin", nil), ErrExists, "a directory occupies the name")
	assert.ErrorIs(t, fs.CreateFile("/nosuch/b.txt", nil), ErrNotFound, "parent must already exist")
}

func TestMkdirCreatesMissingParents(t *testing.T) {
	fs := New()

	require.NoError(t, fs.Mkdir("/home/user/projects/oskit"))

	ni, err := fs.Stat("/home/user/projects")
	require.NoError(t, err)
	assert.Equal(t, KindDir, ni.Kind)

	// Existing directory is success, a file in the way is not.
	require.NoError(t, fs.Mkdir("/home/user"))
	require.NoError(t, fs.CreateFile("/home/user/f", nil))
	assert.ErrorIs(t, fs.Mkdir("/home/user/f/sub"), ErrNotDir)
	assert.ErrorIs(t, fs.Mkdir("/home/user/f"), ErrNotDir)
}

func TestWriteFileCreatesOrReplaces(t *testing.T) {
	fs := New()

	require.NoError(t, fs.WriteFile("/tmp/log", []byte("one")))
	require.NoError(t, fs.WriteFile("/tmp/log", []byte("two")))

	got, err := fs.ReadFile("/tmp/log")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	assert.ErrorIs(t, fs.WriteFile("/tmp", []byte("x")), ErrIsDir)
	_, err = fs.ReadFile("/tmp")
	assert.ErrorIs(t, err, ErrIsDir)
}

func TestChangeDirAndRelativePaths(t *testing.T) {
	fs := New()

	require.NoError(t, fs.Mkdir("/home/user"))
	require.NoError(t, fs.ChangeDir("/home/user"))

	wd, err := fs.WorkingDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/user", wd)

	// Relative operations resolve against the working directory.
	require.NoError(t, fs.CreateFile("readme", []byte("hi")))
	got, err := fs.ReadFile("/home/user/readme")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)

	// ".." ascends, and stays at the root once there.
	require.NoError(t, fs.ChangeDir(".."))
	wd, err = fs.WorkingDir()
	require.NoError(t, err)
	assert.Equal(t, "/home", wd)

	require.NoError(t, fs.ChangeDir("../../.."))
	wd, err = fs.WorkingDir()
	require.NoError(t, err)
	assert.Equal(t, "/", wd)

	assert.ErrorIs(t, fs.ChangeDir("/nosuch"), ErrNotFound)
	require.NoError(t, fs.CreateFile("/f", nil))
	assert.ErrorIs(t, fs.ChangeDir("/f"), ErrNotDir)
}

func TestRemove(t *testing.T) {
	fs := New()

	require.NoError(t, fs.Mkdir("/home/user/sub"))
	require.NoError(t, fs.CreateFile("/home/user/sub/f", []byte("x")))

	// Removing a directory takes the whole subtree with it.
	require.NoError(t, fs.Remove("/home/user"))
	_, err := fs.Stat("/home/user/sub/f")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, fs.Remove("/"), ErrRootProtected)
	assert.ErrorIs(t, fs.Remove("/nosuch"), ErrNotFound)
}

// TestRemoveCurrentDirectory verifies the working directory cannot be left
// dangling inside a removed subtree.
func TestRemoveCurrentDirectory(t *testing.T) {
	fs := New()

	require.NoError(t, fs.Mkdir("/home/user/deep"))
	require.NoError(t, fs.ChangeDir("/home/user/deep"))
	require.NoError(t, fs.Remove("/home/user"))

	wd, err := fs.WorkingDir()
	require.NoError(t, err)
	assert.Equal(t, "/home", wd, "working directory must fall back to the removed node's parent")
}

func TestListOrdersDirectoriesFirst(t *testing.T) {
	fs := New()

	require.NoError(t, fs.CreateFile("/home/zz.txt", []byte("abc")))
	require.NoError(t, fs.CreateFile("/home/aa.txt", nil))
	require.NoError(t, fs.Mkdir("/home/sub"))

	list, err := fs.List("/home")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "sub", list[0].Name, "directories come first")
	assert.Equal(t, "aa.txt", list[1].Name)
	assert.Equal(t, "zz.txt", list[2].Name)
	assert.Equal(t, uint64(3), list[2].Size)

	_, err = fs.List("/home/aa.txt")
	assert.ErrorIs(t, err, ErrNotDir)
	_, err = fs.List("/nosuch")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatReportsRecursiveDirectorySize(t *testing.T) {
	fs := New()

	require.NoError(t, fs.Mkdir("/home/user"))
	require.NoError(t, fs.CreateFile("/home/user/a", []byte("12345")))
	require.NoError(t, fs.CreateFile("/home/b", []byte("123")))

	ni, err := fs.Stat("/home")
	require.NoError(t, err)
	assert.Equal(t, KindDir, ni.Kind)
	assert.Equal(t, uint64(8), ni.Size, "directory size sums nested file bytes")
	assert.Equal(t, 2, ni.Children, "children counts direct entries only")

	ni, err = fs.Stat("/home/user/a")
	require.NoError(t, err)
	assert.Equal(t, KindFile, ni.Kind)
	assert.Equal(t, uint64(5), ni.Size)
	assert.Equal(t, 0, ni.Children)
}

func TestCloseRejectsFurtherOps(t *testing.T) {
	fs := New()
	require.NoError(t, fs.Close())

	assert.ErrorIs(t, fs.CreateFile("/x", nil), ErrClosed)
	assert.ErrorIs(t, fs.Mkdir("/x"), ErrClosed)
	_, err := fs.ReadFile("/x")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = fs.WorkingDir()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, fs.Close(), ErrClosed)
}
