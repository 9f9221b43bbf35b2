// Package dataplane contains the platform backends that install routes: a
// Linux backend (netlink, seg6 encap) and a VPP backend (binary API, SRv6
// policies). Backends expose idempotent ensure-present / ensure-absent
// operations plus an observed-state read; all dataplane mutation goes
// through here.
package dataplane

import (
	"context"
	"fmt"

	"github.com/jalapeno-sdn/srctl/pkg/route"
	"github.com/jalapeno-sdn/srctl/pkg/spec"
)

// Programmer is the platform backend capability injected into the
// reconciler. The backend is the sole writer of dataplane state and is
// assumed to serialize its own operations internally.
type Programmer interface {
	// EnsureRoute makes the route present. Re-applying an identical route
	// is a no-op at the dataplane level.
	EnsureRoute(ctx context.Context, r route.ConcreteRoute) error

	// RemoveRoute makes the route absent. The egress descriptor, when the
	// backend needs one (vpp steering removal), comes from observed state.
	RemoveRoute(ctx context.Context, r route.ConcreteRoute) error

	// Observe reads the installed routes for the given tables.
	Observe(ctx context.Context, tables []uint32) (route.State, error)

	// Close releases the backend connection.
	Close() error
}

// Options carries backend connection settings.
type Options struct {
	VPPAPISocket string // vpp only; "" uses the default API socket
}

// New returns the Programmer for a platform.
func New(platform spec.Platform, opts Options) (Programmer, error) {
	switch platform {
	case spec.PlatformLinux:
		return NewLinux(), nil
	case spec.PlatformVPP:
		return NewVPP(opts.VPPAPISocket)
	default:
		return nil, fmt.Errorf("unsupported platform '%s'", platform)
	}
}
