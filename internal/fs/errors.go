package fs

import (
	"errors"
	"os"
	"syscall"

	"memvfs/internal/logging"
	"memvfs/internal/store"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")
)

// ToFuseError converts a store error to the errno FUSE expects.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		errLogger.Trace("Converting store error to FUSE error: %v", storeErr)
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, store.ErrAlreadyExists), errors.Is(err, os.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, store.ErrRootImmutable):
		return syscall.EPERM
	case errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	default:
		errLogger.Debug("Unknown error type, returning EIO: %v", err)
		return syscall.EIO
	}
}
