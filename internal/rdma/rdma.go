// Package rdma resolves build directories for the RDMA transport.
//
// The RDMA headers and libraries currently come from the same system paths
// the compiler already searches, so the default Locator contributes no
// directories. Sites with a non-standard verbs installation plug in their own
// Locator through extension.WithRDMALocator.
package rdma

import (
	"context"

	"github.com/bcube-dev/bcube-setup/internal/probe"
)

// Library is the RDMA library the extension links when the transport is on.
const Library = "rdma"

// Locator resolves RDMA include and library directories. It receives the
// already-located CUDA directories because GPUDirect builds place the verbs
// headers next to CUDA's.
type Locator interface {
	Locate(ctx context.Context, cuda probe.Dirs) (probe.Dirs, error)
}

// SystemLocator relies on the compiler's default search paths.
type SystemLocator struct{}

// Locate returns no directories.
func (SystemLocator) Locate(context.Context, probe.Dirs) (probe.Dirs, error) {
	return probe.Dirs{}, nil
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, cuda probe.Dirs) (probe.Dirs, error)

// Locate calls f.
func (f LocatorFunc) Locate(ctx context.Context, cuda probe.Dirs) (probe.Dirs, error) {
	return f(ctx, cuda)
}
