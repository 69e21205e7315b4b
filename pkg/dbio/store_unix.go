//go:build !windows

// pkg/dbio/store_unix.go
package dbio

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockStore takes the exclusive advisory flock guarding a page file
// against other processes. Handles within this process never reach
// here twice: they share the refcounted fileEntry, so the lock is
// taken once on the first open and dropped on the last close.
func lockStore(f *os.File) error {
	switch err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err {
	case nil:
		return nil
	case unix.EWOULDBLOCK:
		return ErrFileLocked
	default:
		return err
	}
}

func unlockStore(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
