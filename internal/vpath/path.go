// Package vpath provides helpers for the absolute, slash-delimited paths used
// as entry keys in the store, plus the glob matcher shared by both searchers.
package vpath

import (
	"path"
	"strings"
)

// Root is the path of the root directory.
const Root = "/"

// Clean returns the canonical form of p: absolute, slash-delimited, with no
// trailing slash except for the root itself.
func Clean(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// IsRoot returns true if p is the root path "/"
func IsRoot(p string) bool {
	return p == Root
}

// Base returns the last element of p. The root has an empty base.
func Base(p string) string {
	if IsRoot(p) {
		return ""
	}
	return p[strings.LastIndex(p, "/")+1:]
}

// Join appends name to dir.
func Join(dir, name string) string {
	if IsRoot(dir) {
		return "/" + name
	}
	return dir + "/" + name
}

// IsDirectChild reports whether child is exactly one segment below parent.
// Both paths are expected in Clean form.
func IsDirectChild(parent, child string) bool {
	if IsRoot(parent) {
		return child != Root && strings.HasPrefix(child, "/") && strings.IndexByte(child[1:], '/') == -1
	}

	prefix := parent + "/"
	if !strings.HasPrefix(child, prefix) {
		return false
	}
	rest := child[len(prefix):]
	return rest != "" && !strings.Contains(rest, "/")
}

// IsUnder reports whether p lies in scope: the root scope holds everything,
// any other scope holds itself and its descendants.
func IsUnder(p, scope string) bool {
	if scope == "" || IsRoot(scope) {
		return true
	}
	return p == scope || strings.HasPrefix(p, scope+"/")
}

// IsDescendant reports whether p is strictly below dir.
func IsDescendant(p, dir string) bool {
	if IsRoot(dir) {
		return p != Root
	}
	return strings.HasPrefix(p, dir+"/")
}
