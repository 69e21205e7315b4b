//go:build windows

// pkg/dbio/store_windows.go
package dbio

import (
	"os"

	"golang.org/x/sys/windows"
)

// lockStore takes an exclusive lock on the first byte of the file, the
// closest Windows analogue to flock. Like the Unix variant it is taken
// once per fileEntry, on the first open.
func lockStore(f *os.File) error {
	err := windows.LockFileEx(windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, new(windows.Overlapped))
	if err == windows.ERROR_LOCK_VIOLATION {
		return ErrFileLocked
	}
	return err
}

func unlockStore(f *os.File) error {
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, new(windows.Overlapped))
}
