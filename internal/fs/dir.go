package fs

import (
	"context"
	"errors"
	"os"
	"syscall"

	"memvfs/internal/logging"
	"memvfs/internal/store"
	"memvfs/internal/vpath"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir is a directory node. It holds only its path; children are resolved
// against the store on every call.
type Dir struct {
	fs   *FS
	path string
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.path)

	a.Valid = attrValidity
	a.Mode = os.ModeDir | 0755
	a.Uid = d.fs.uid
	a.Gid = d.fs.gid

	if st, err := d.fs.store.Stat(d.path); err == nil {
		a.Ctime = st.Ctime
		a.Mtime = st.Mtime
		a.Atime = st.Mtime
	}
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	childPath := vpath.Join(d.path, name)
	dirLogger.Trace("Looking up %q", childPath)

	st, err := d.fs.store.Stat(childPath)
	if err != nil {
		return nil, ToFuseError(err)
	}

	if st.Type == store.TypeDirectory {
		return &Dir{fs: d.fs, path: childPath}, nil
	}
	return &File{fs: d.fs, path: childPath}, nil
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	dirLogger.Debug("Reading directory contents: %q", d.path)

	children, err := d.fs.store.List(d.path)
	if err != nil {
		dirLogger.Warn("Cannot list %q: %v", d.path, err)
		return nil, ToFuseError(err)
	}

	entries := make([]fuse.Dirent, 0, len(children)+2)
	entries = append(entries, fuse.Dirent{Name: ".", Type: fuse.DT_Dir})
	entries = append(entries, fuse.Dirent{Name: "..", Type: fuse.DT_Dir})

	for _, child := range children {
		typ := fuse.DT_File
		if child.Type == store.TypeDirectory {
			typ = fuse.DT_Dir
		}
		entries = append(entries, fuse.Dirent{Name: child.Name, Type: typ})
	}

	dirLogger.Debug("Directory %q contains %d entries", d.path, len(children))
	return entries, nil
}

// Mkdir implements the NodeMkdirer interface, creating a new directory.
func (d *Dir) Mkdir(_ context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	newPath := vpath.Join(d.path, req.Name)
	dirLogger.Info("Creating directory %q", newPath)

	if err := d.fs.store.CreateDirectory(newPath); err != nil {
		dirLogger.Warn("Mkdir %q failed: %v", newPath, err)
		return nil, ToFuseError(err)
	}
	return &Dir{fs: d.fs, path: newPath}, nil
}

// Create implements the NodeCreater interface, adding an empty file. The
// node doubles as the open handle.
func (d *Dir) Create(_ context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	newPath := vpath.Join(d.path, req.Name)
	dirLogger.Info("Creating file %q", newPath)

	opts := store.WriteOptions{Create: true}
	if req.Flags&fuse.OpenTruncate != 0 {
		opts.Overwrite = true
	}

	err := d.fs.store.Write(newPath, nil, opts)
	if errors.Is(err, store.ErrAlreadyExists) && req.Flags&fuse.OpenExclusive == 0 {
		// Lost a race with another writer; open the existing file.
		if st, statErr := d.fs.store.Stat(newPath); statErr == nil && st.Type == store.TypeFile {
			err = nil
		}
	}
	if err != nil {
		dirLogger.Warn("Create %q failed: %v", newPath, err)
		return nil, nil, ToFuseError(err)
	}

	f := &File{fs: d.fs, path: newPath}
	resp.Flags |= fuse.OpenDirectIO
	return f, f, nil
}

// Remove implements the NodeRemover interface. A directory must be empty.
func (d *Dir) Remove(_ context.Context, req *fuse.RemoveRequest) error {
	childPath := vpath.Join(d.path, req.Name)
	dirLogger.Info("Removing %q (isDir=%v)", childPath, req.Dir)

	if req.Dir {
		entries, err := d.fs.store.List(childPath)
		if err != nil {
			dirLogger.Warn("Directory not found: %q", childPath)
			return ToFuseError(err)
		}
		if len(entries) > 0 {
			dirLogger.Warn("Directory not empty: %q", childPath)
			return syscall.ENOTEMPTY
		}
	}

	if err := d.fs.store.Delete(childPath, store.DeleteOptions{}); err != nil {
		dirLogger.Warn("Remove %q failed: %v", childPath, err)
		return ToFuseError(err)
	}
	return nil
}

// Rename implements the NodeRenamer interface. Only files move inside the
// store; a directory rename reports EXDEV so tools fall back to copying.
func (d *Dir) Rename(_ context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	target, ok := newDir.(*Dir)
	if !ok {
		dirLogger.Error("Rename target is not a directory node")
		return syscall.EINVAL
	}

	oldPath := vpath.Join(d.path, req.OldName)
	newPath := vpath.Join(target.path, req.NewName)
	dirLogger.Info("Renaming %q to %q", oldPath, newPath)

	if st, err := d.fs.store.Stat(oldPath); err == nil && st.Type == store.TypeDirectory {
		dirLogger.Debug("Directory rename of %q refused", oldPath)
		return syscall.EXDEV
	}

	if err := d.fs.store.Rename(oldPath, newPath, store.RenameOptions{Overwrite: true}); err != nil {
		dirLogger.Warn("Rename %q failed: %v", oldPath, err)
		return ToFuseError(err)
	}
	return nil
}

// Fsync is a no-op; the store has nothing to flush.
func (d *Dir) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	return nil
}
