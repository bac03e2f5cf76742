package filecache

import (
	"os"
	"syscall"
)

// FileLock is an exclusive advisory lock on a lock file (flock).
// It serializes cache document rewrites between processes that share a data
// directory, e.g. the game and the savesync CLI.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock returns an unlocked lock for path. The file is created on Lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock blocks until the exclusive lock is held.
func (l *FileLock) Lock() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return err
	}

	l.file = f
	return nil
}

// Locked reports whether this FileLock currently holds the lock.
func (l *FileLock) Locked() bool {
	return l.file != nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	f := l.file
	l.file = nil

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
