package dataplane

import (
	"context"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"

	"github.com/jalapeno-sdn/srctl/pkg/route"
	"github.com/jalapeno-sdn/srctl/pkg/spec"
	"github.com/jalapeno-sdn/srctl/pkg/util"
)

// Table 0 means "unspecified" to the kernel; routes land in main (254).
const rtTableMain = 254

// LinuxProgrammer installs SRv6 routes into Linux routing tables via
// netlink, using seg6 encapsulation on the outbound device.
type LinuxProgrammer struct{}

// NewLinux creates the Linux backend. Route mutation requires CAP_NET_ADMIN;
// errors surface on the first operation rather than at construction.
func NewLinux() *LinuxProgrammer {
	return &LinuxProgrammer{}
}

func linuxTable(t uint32) int {
	if t == 0 {
		return rtTableMain
	}
	return int(t)
}

// EnsureRoute programs dst → seg6 encap over the outbound interface.
// RouteReplace makes re-applying an identical route a no-op.
func (p *LinuxProgrammer) EnsureRoute(ctx context.Context, r route.ConcreteRoute) error {
	link, err := netlink.LinkByName(r.Egress.Interface)
	if err != nil {
		return fmt.Errorf("interface %s: %w", r.Egress.Interface, err)
	}
	_, dst, err := net.ParseCIDR(r.Prefix)
	if err != nil {
		return fmt.Errorf("prefix %s: %w", r.Prefix, err)
	}

	segs := make([]net.IP, 0, len(r.Egress.SegmentList))
	for _, s := range r.Egress.SegmentList {
		ip := net.ParseIP(s)
		if ip == nil || ip.To4() != nil {
			return fmt.Errorf("segment %s is not an IPv6 address", s)
		}
		segs = append(segs, ip)
	}
	if len(segs) == 0 {
		return fmt.Errorf("route %s has no segment list", r.Prefix)
	}

	nlRoute := &netlink.Route{
		Dst:       dst,
		LinkIndex: link.Attrs().Index,
		Table:     linuxTable(r.Table),
		Encap: &netlink.SEG6Encap{
			Mode:     nl.SEG6_IPTUN_MODE_ENCAP,
			Segments: segs,
		},
	}
	if err := netlink.RouteReplace(nlRoute); err != nil {
		return fmt.Errorf("replacing route %s: %w", r.Prefix, err)
	}
	util.WithRoute(r.Source).Debugf("programmed %s dev %s table %d", r.Prefix, r.Egress.Interface, r.Table)
	return nil
}

// RemoveRoute deletes by (table, prefix); the egress descriptor is not part
// of the identity on delete.
func (p *LinuxProgrammer) RemoveRoute(ctx context.Context, r route.ConcreteRoute) error {
	_, dst, err := net.ParseCIDR(r.Prefix)
	if err != nil {
		return fmt.Errorf("prefix %s: %w", r.Prefix, err)
	}
	nlRoute := &netlink.Route{
		Dst:   dst,
		Table: linuxTable(r.Table),
	}
	if err := netlink.RouteDel(nlRoute); err != nil {
		return fmt.Errorf("deleting route %s: %w", r.Prefix, err)
	}
	return nil
}

// Observe lists installed routes for the given tables, both families.
// Routes carrying seg6 encap report their segment list so the reconciler
// can compare egress exactly.
func (p *LinuxProgrammer) Observe(ctx context.Context, tables []uint32) (route.State, error) {
	state := make(route.State)
	for _, t := range tables {
		for _, family := range []int{netlink.FAMILY_V4, netlink.FAMILY_V6} {
			filter := &netlink.Route{Table: linuxTable(t)}
			routes, err := netlink.RouteListFiltered(family, filter, netlink.RT_FILTER_TABLE)
			if err != nil {
				return nil, fmt.Errorf("listing table %d: %w", t, err)
			}
			for _, nlRoute := range routes {
				if nlRoute.Dst == nil {
					continue
				}
				fam := spec.FamilyIPv4
				if family == netlink.FAMILY_V6 {
					fam = spec.FamilyIPv6
				}
				key := route.Key{
					Platform: spec.PlatformLinux,
					Table:    t,
					Family:   fam,
					Prefix:   nlRoute.Dst.String(),
				}
				state[key] = linuxEgress(nlRoute)
			}
		}
	}
	return state, nil
}

func linuxEgress(nlRoute netlink.Route) route.Egress {
	var egress route.Egress
	if link, err := netlink.LinkByIndex(nlRoute.LinkIndex); err == nil {
		egress.Interface = link.Attrs().Name
	}
	if seg6, ok := nlRoute.Encap.(*netlink.SEG6Encap); ok {
		for _, s := range seg6.Segments {
			egress.SegmentList = append(egress.SegmentList, s.String())
		}
	}
	return egress
}

// Close is a no-op; netlink sockets are per-call.
func (p *LinuxProgrammer) Close() error {
	return nil
}
