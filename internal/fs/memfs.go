// Package fs exposes a store as a FUSE filesystem.
package fs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"memvfs/internal/logging"
	"memvfs/internal/store"
	"memvfs/internal/vpath"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	vfsLogger = logging.GetLogger().WithPrefix("fuse")
)

// attrValidity is how long the kernel may cache attributes. Kept short
// because the store can also change through the HTTP API.
const attrValidity = time.Second

// Options sets the ownership reported for every node.
type Options struct {
	UID uint32
	GID uint32
}

// DefaultOptions reports the current process ids, overridden by the PUID and
// PGID environment variables when they are set.
func DefaultOptions() Options {
	opts := Options{
		UID: safeIntToUint32(os.Getuid()),
		GID: safeIntToUint32(os.Getgid()),
	}

	if puidStr := os.Getenv("PUID"); puidStr != "" {
		if puid, err := strconv.ParseUint(puidStr, 10, 32); err == nil {
			opts.UID = uint32(puid)
			vfsLogger.Debug("Using PUID from environment: %d", opts.UID)
		}
	}
	if pgidStr := os.Getenv("PGID"); pgidStr != "" {
		if pgid, err := strconv.ParseUint(pgidStr, 10, 32); err == nil {
			opts.GID = uint32(pgid)
			vfsLogger.Debug("Using PGID from environment: %d", opts.GID)
		}
	}
	return opts
}

// FS serves a store over FUSE. Every node is a thin view keyed by path; all
// state lives in the store.
type FS struct {
	store  *store.Store
	conn   *fuse.Conn
	served chan struct{}
	uid    uint32
	gid    uint32
}

// New creates a filesystem over st.
func New(st *store.Store, opts Options) *FS {
	vfsLogger.Debug("Creating FUSE filesystem (uid=%d, gid=%d)", opts.UID, opts.GID)
	return &FS{
		store: st,
		uid:   opts.UID,
		gid:   opts.GID,
	}
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (vfs *FS) Root() (fusefs.Node, error) {
	vfsLogger.Trace("Getting root directory node")
	return &Dir{fs: vfs, path: vpath.Root}, nil
}

func waitForMount(mountpoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountpoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mount point not available after 3 seconds")
}

// Mount attaches the filesystem at mountPoint and serves it in the
// background until Unmount is called.
func (vfs *FS) Mount(mountPoint string) error {
	vfsLogger.Info("Mounting store at %s", mountPoint)
	vfsLogger.Debug("UID: %d, GID: %d", vfs.uid, vfs.gid)

	mountOpts := []fuse.MountOption{
		fuse.FSName("memvfs"),
		fuse.Subtype("memvfs"),
		fuse.AllowOther(),
		fuse.DefaultPermissions(),
		fuse.AsyncRead(),
		fuse.AllowNonEmptyMount(),
	}

	c, err := fuse.Mount(mountPoint, mountOpts...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	vfs.conn = c
	vfs.served = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := fusefs.Serve(c, vfs); err != nil {
			vfsLogger.Error("FUSE server error: %v", err)
		}
		vfsLogger.Debug("FUSE server stopped")
	}(vfs.served)

	if err := waitForMount(mountPoint); err != nil {
		c.Close()
		vfsLogger.Error("Mount point not ready: %v", err)
		return fmt.Errorf("mount point failed to initialize: %w", err)
	}

	vfsLogger.Info("Filesystem mounted successfully")
	return nil
}

// Unmount detaches the filesystem, waits for the serve loop to drain and
// closes the FUSE connection.
func (vfs *FS) Unmount(mountPoint string) error {
	if vfs.conn == nil {
		return nil
	}

	vfsLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if err := fuse.Unmount(mountPoint); err != nil {
		vfsLogger.Error("Unmount failed: %v", err)
		return err
	}
	<-vfs.served

	err := vfs.conn.Close()
	vfs.conn = nil
	vfsLogger.Info("Unmount completed successfully")
	return err
}
