package fs

import (
	"bazil.org/fuse/fs"
)

// Node represents a filesystem node (file or directory)
type Node interface {
	fs.Node
	fs.NodeFsyncer
}

// Directory represents a directory backed by the store
type Directory interface {
	Node
	fs.NodeStringLookuper
	fs.HandleReadDirAller
	fs.NodeMkdirer
	fs.NodeCreater
	fs.NodeRemover
	fs.NodeRenamer
}

// FileInterface represents a file backed by the store. Files are their own
// handles.
type FileInterface interface {
	Node
	fs.NodeSetattrer
	fs.NodeOpener
	fs.Handle
	fs.HandleReadAller
	fs.HandleWriter
}

var (
	_ fs.FS         = (*FS)(nil)
	_ Directory     = (*Dir)(nil)
	_ FileInterface = (*File)(nil)
)
