//go:build unix

package probe

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LockScratch takes an exclusive advisory lock on the scratch directory so
// that two configure runs sharing a build tree do not interleave probes. It
// blocks until the lock is available.
func (c *Compiler) LockScratch() (unlock func() error, err error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create probe directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(c.dir, ".lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open probe lock: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock probe directory: %w", err)
	}

	return func() error {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN) // closing releases it anyway
		return f.Close()
	}, nil
}
