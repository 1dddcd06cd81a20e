package fs

import (
	"context"
	"sync"

	"memvfs/internal/logging"
	"memvfs/internal/store"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File is a regular file node and its own open handle.
type File struct {
	fs   *FS
	path string

	// mu serializes read-modify-write cycles on this node.
	mu sync.Mutex
}

// Attr implements the Node interface, returning the file's attributes.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	st, err := f.fs.store.Stat(f.path)
	if err != nil {
		fileLogger.Debug("Stat %q failed: %v", f.path, err)
		return ToFuseError(err)
	}

	a.Valid = attrValidity
	a.Mode = 0644
	a.Size = safeInt64ToUint64(st.Size)
	a.Mtime = st.Mtime
	a.Atime = st.Mtime // access time is not tracked
	a.Ctime = st.Ctime
	a.Uid = f.fs.uid
	a.Gid = f.fs.gid
	a.BlockSize = 4096
	a.Blocks = safeInt64ToUint64((st.Size + 511) / 512)

	fileLogger.Trace("File attributes for %q: size=%d, mtime=%v", f.path, a.Size, a.Mtime)
	return nil
}

// Open implements the NodeOpener interface. The file serves as its own
// handle and reads always go to the store.
func (f *File) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	fileLogger.Debug("Opening file %q with flags %v", f.path, req.Flags)

	if _, err := f.fs.store.Stat(f.path); err != nil {
		return nil, ToFuseError(err)
	}

	resp.Flags |= fuse.OpenDirectIO
	return f, nil
}

// ReadAll implements the HandleReadAller interface.
func (f *File) ReadAll(_ context.Context) ([]byte, error) {
	data, err := f.fs.store.Read(f.path)
	if err != nil {
		fileLogger.Warn("Read %q failed: %v", f.path, err)
		return nil, ToFuseError(err)
	}

	fileLogger.Trace("Read %d bytes from %q", len(data), f.path)
	return data, nil
}

// Write implements the HandleWriter interface by splicing req.Data into the
// current payload at req.Offset.
func (f *File) Write(_ context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.fs.store.Read(f.path)
	if err != nil {
		return ToFuseError(err)
	}

	data = splice(data, req.Data, req.Offset)
	if err := f.fs.store.Write(f.path, data, store.WriteOptions{Overwrite: true}); err != nil {
		fileLogger.Warn("Write %q failed: %v", f.path, err)
		return ToFuseError(err)
	}

	resp.Size = len(req.Data)
	fileLogger.Trace("Wrote %d bytes to %q at offset %d", resp.Size, f.path, req.Offset)
	return nil
}

// Setattr implements the NodeSetattrer interface. Only size changes touch
// the store; other attributes are fixed.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		f.mu.Lock()
		err := f.truncate(req.Size)
		f.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return f.Attr(ctx, &resp.Attr)
}

func (f *File) truncate(size uint64) error {
	data, err := f.fs.store.Read(f.path)
	if err != nil {
		return ToFuseError(err)
	}

	fileLogger.Debug("Resizing %q from %d to %d bytes", f.path, len(data), size)
	data = resize(data, safeUint64ToInt(size))
	if err := f.fs.store.Write(f.path, data, store.WriteOptions{Overwrite: true}); err != nil {
		return ToFuseError(err)
	}
	return nil
}

// Fsync is a no-op; the store has nothing to flush.
func (f *File) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	return nil
}
