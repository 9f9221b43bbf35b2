package route

import (
	"fmt"

	"github.com/jalapeno-sdn/srctl/pkg/jalapeno"
	"github.com/jalapeno-sdn/srctl/pkg/selector"
	"github.com/jalapeno-sdn/srctl/pkg/spec"
	"github.com/jalapeno-sdn/srctl/pkg/util"
)

// VRFContext scopes compilation to one route group.
type VRFContext struct {
	Platform spec.Platform
	Table    uint32
	Family   spec.Family
}

// Selection carries the upstream results for one RouteSpec: selected paths
// for the graph-path variant, matched prefixes for the L3VPN variant.
type Selection struct {
	Paths    selector.Result
	Prefixes []jalapeno.VPNPrefix
}

// Compile turns one RouteSpec plus its selection into concrete routes.
//
// L3VPN variant: one route per matched prefix, egress taken from the spec's
// platform address with the prefix's SID as segment list.
//
// Graph-path variant: one route per selected path, destination_prefix as the
// route prefix. On linux the egress device is taken verbatim from the spec;
// on vpp the chosen path's segment list is encoded into the SRv6 policy
// bound to the spec's bsid.
func Compile(r *spec.RouteSpec, sel Selection, vrf VRFContext) ([]ConcreteRoute, error) {
	egress, err := specEgress(r, vrf.Platform)
	if err != nil {
		return nil, err
	}

	switch r.Variant() {
	case spec.VariantL3VPN:
		return compileL3VPN(r, sel.Prefixes, vrf, egress)
	case spec.VariantGraphPath:
		return compileGraphPath(r, sel.Paths, vrf, egress)
	default:
		return nil, fmt.Errorf("route '%s': exactly one of route_target or graph must be set", r.Name)
	}
}

// CompileDeletion produces the route identities to remove for one RouteSpec.
// Identity is (platform, table, family, prefix); no egress descriptor is
// required. For an L3VPN spec the identity set mirrors what apply installs:
// an exact-match prefix is its own identity, while a containment search or
// a bare route-target deletes the enumerated prefixes the caller supplies
// in sel.
func CompileDeletion(r *spec.RouteSpec, sel Selection, vrf VRFContext) ([]ConcreteRoute, error) {
	switch r.Variant() {
	case spec.VariantGraphPath:
		if r.PathTypeOrDefault() != spec.PathTypeShortestPath {
			return nil, fmt.Errorf("route '%s': %w: %s", r.Name, util.ErrUnsupportedPathType, r.PathType)
		}
		prefix, err := util.NormalizePrefix(r.DestinationPrefix)
		if err != nil {
			return nil, fmt.Errorf("route '%s': %w", r.Name, err)
		}
		return []ConcreteRoute{identity(prefix, vrf, r.Name)}, nil

	case spec.VariantL3VPN:
		if r.Prefix != "" && r.ExactMatch {
			prefix, err := util.NormalizePrefix(r.Prefix)
			if err != nil {
				return nil, fmt.Errorf("route '%s': %w", r.Name, err)
			}
			return []ConcreteRoute{identity(prefix, vrf, r.Name)}, nil
		}
		var routes []ConcreteRoute
		for _, p := range sel.Prefixes {
			prefix, err := util.NormalizePrefix(p.CIDR())
			if err != nil {
				continue
			}
			routes = append(routes, identity(prefix, vrf, r.Name))
		}
		return routes, nil

	default:
		return nil, fmt.Errorf("route '%s': exactly one of route_target or graph must be set", r.Name)
	}
}

func identity(prefix string, vrf VRFContext, source string) ConcreteRoute {
	return ConcreteRoute{
		Platform: vrf.Platform,
		Table:    vrf.Table,
		Family:   vrf.Family,
		Prefix:   prefix,
		Source:   source,
	}
}

// specEgress validates the platform-address fields against the target
// platform and returns the egress template.
func specEgress(r *spec.RouteSpec, platform spec.Platform) (Egress, error) {
	hasIntf := r.OutboundInterface != ""
	hasBSID := r.BSID != ""
	switch platform {
	case spec.PlatformLinux:
		if !hasIntf || hasBSID {
			return Egress{}, fmt.Errorf("route '%s': %w: linux requires outbound_interface only", r.Name, util.ErrAmbiguousAddress)
		}
		return Egress{Interface: r.OutboundInterface}, nil
	case spec.PlatformVPP:
		if !hasBSID || hasIntf {
			return Egress{}, fmt.Errorf("route '%s': %w: vpp requires bsid only", r.Name, util.ErrAmbiguousAddress)
		}
		return Egress{BSID: r.BSID}, nil
	default:
		return Egress{}, fmt.Errorf("route '%s': unsupported platform '%s'", r.Name, platform)
	}
}

func compileL3VPN(r *spec.RouteSpec, prefixes []jalapeno.VPNPrefix, vrf VRFContext, egress Egress) ([]ConcreteRoute, error) {
	want := ""
	if r.Prefix != "" && r.ExactMatch {
		// Re-filter locally: exact_match is passed to the upstream query but
		// server-side enforcement must not widen the route set.
		var err error
		want, err = util.NormalizePrefix(r.Prefix)
		if err != nil {
			return nil, fmt.Errorf("route '%s': %w", r.Name, err)
		}
	}

	var routes []ConcreteRoute
	for _, p := range prefixes {
		prefix, err := util.NormalizePrefix(p.CIDR())
		if err != nil {
			util.WithRoute(r.Name).Debugf("skipping unparseable prefix %s: %v", p.CIDR(), err)
			continue
		}
		if fam := util.FamilyOfPrefix(prefix); fam != string(vrf.Family) {
			util.WithRoute(r.Name).Debugf("skipping %s: family %s does not match group %s", prefix, fam, vrf.Family)
			continue
		}
		if want != "" && prefix != want {
			continue
		}
		sid := p.SID()
		if sid == "" {
			util.WithRoute(r.Name).Warnf("no SID for prefix %s, skipping", prefix)
			continue
		}
		expanded, err := util.ExpandUSID(sid)
		if err != nil {
			return nil, fmt.Errorf("route '%s' prefix %s: %w", r.Name, prefix, err)
		}
		cr := identity(prefix, vrf, r.Name)
		cr.Egress = egress
		cr.Egress.SegmentList = []string{expanded}
		routes = append(routes, cr)
	}
	return routes, nil
}

func compileGraphPath(r *spec.RouteSpec, paths selector.Result, vrf VRFContext, egress Egress) ([]ConcreteRoute, error) {
	if r.PathTypeOrDefault() != spec.PathTypeShortestPath {
		return nil, fmt.Errorf("route '%s': %w: %s", r.Name, util.ErrUnsupportedPathType, r.PathType)
	}
	prefix, err := util.NormalizePrefix(r.DestinationPrefix)
	if err != nil {
		return nil, fmt.Errorf("route '%s': %w", r.Name, err)
	}

	var routes []ConcreteRoute
	for _, sp := range paths {
		segs, err := segmentList(sp.Path)
		if err != nil {
			return nil, fmt.Errorf("route '%s': %w", r.Name, err)
		}
		cr := identity(prefix, vrf, r.Name)
		cr.Egress = egress
		cr.Egress.SegmentList = segs
		routes = append(routes, cr)
	}
	return routes, nil
}

// segmentList expands a candidate path's SRv6 encoding. The full SID list
// wins when present; otherwise the single uSID is used.
func segmentList(p jalapeno.CandidatePath) ([]string, error) {
	if len(p.SRv6.SIDList) > 0 {
		segs := make([]string, 0, len(p.SRv6.SIDList))
		for _, s := range p.SRv6.SIDList {
			expanded, err := util.ExpandUSID(s)
			if err != nil {
				return nil, err
			}
			segs = append(segs, expanded)
		}
		return segs, nil
	}
	if p.SRv6.USID == "" {
		return nil, fmt.Errorf("candidate path has no SRv6 data")
	}
	expanded, err := util.ExpandUSID(p.SRv6.USID)
	if err != nil {
		return nil, err
	}
	return []string{expanded}, nil
}
