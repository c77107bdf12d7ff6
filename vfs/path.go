package vfs

import "strings"

// Normalize resolves "." and ".." lexically without touching the tree.
// Absolute paths clamp excess ".." at the root; relative paths keep
// leading ".." components for resolution against the working directory.
// An empty path normalizes to ".".
func Normalize(path string) string {
	if path == "" {
		return "."
	}
	abs := strings.HasPrefix(path, "/")

	var parts []string
	for _, comp := range strings.Split(path, "/") {
		switch comp {
		case "", ".":
			continue
		case "..":
			if len(parts) > 0 && parts[len(parts)-1] != ".." {
				parts = parts[:len(parts)-1]
			} else if !abs {
				parts = append(parts, "..")
			}
		default:
			parts = append(parts, comp)
		}
	}

	joined := strings.Join(parts, "/")
	if abs {
		return "/" + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// splitParent splits a normalized path into its parent path and final
// component. A path without a slash is a child of ".", and a top-level
// absolute path is a child of "/".
func splitParent(path string) (parent, name string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ".", path
	}
	if i == 0 {
		return "/", path[1:]
	}
	return path[:i], path[i+1:]
}
