//go:build !unix

package probe

import (
	"fmt"
	"os"
)

// LockScratch creates the scratch directory. Locking is not supported on
// this platform, so callers must serialize runs themselves.
func (c *Compiler) LockScratch() (unlock func() error, err error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create probe directory: %w", err)
	}
	return func() error { return nil }, nil
}
