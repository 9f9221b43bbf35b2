// Package route defines the concrete route model and the compiler that turns
// selected paths and VPN prefixes into platform route descriptors.
package route

import (
	"fmt"
	"strings"

	"github.com/jalapeno-sdn/srctl/pkg/spec"
)

// Key identifies a route in the dataplane. Two routes with the same key are
// the same route; whether they are unchanged additionally depends on the
// egress descriptor.
type Key struct {
	Platform spec.Platform
	Table    uint32
	Family   spec.Family
	Prefix   string // canonical CIDR
}

func (k Key) String() string {
	return fmt.Sprintf("%s/table %d/%s", k.Platform, k.Table, k.Prefix)
}

// Egress describes where matching traffic goes: an outbound device on linux,
// a binding SID (with its bound segment list) on vpp.
type Egress struct {
	Interface   string   // linux outbound device
	BSID        string   // vpp binding SID
	SegmentList []string // SRv6 segments, expanded to full IPv6 addresses
}

// Equal reports exact egress equality. Unchanged routes require this; any
// difference means replace-by-delete-then-add.
func (e Egress) Equal(o Egress) bool {
	if e.Interface != o.Interface || e.BSID != o.BSID || len(e.SegmentList) != len(o.SegmentList) {
		return false
	}
	for i := range e.SegmentList {
		if e.SegmentList[i] != o.SegmentList[i] {
			return false
		}
	}
	return true
}

func (e Egress) String() string {
	switch {
	case e.Interface != "":
		return fmt.Sprintf("dev %s via %s", e.Interface, strings.Join(e.SegmentList, ","))
	case e.BSID != "":
		return fmt.Sprintf("bsid %s segs %s", e.BSID, strings.Join(e.SegmentList, ","))
	default:
		return "<none>"
	}
}

// ConcreteRoute is one compiled desired route. Immutable once compiled.
type ConcreteRoute struct {
	Platform spec.Platform
	Table    uint32
	Family   spec.Family
	Prefix   string // canonical CIDR
	Egress   Egress
	Source   string // originating RouteSpec name, for traceability
}

// Key returns the route's dataplane identity.
func (r ConcreteRoute) Key() Key {
	return Key{Platform: r.Platform, Table: r.Table, Family: r.Family, Prefix: r.Prefix}
}

// State is a backend's observed view of installed routes. Owned by the
// platform backend; the reconciler only reads it.
type State map[Key]Egress
