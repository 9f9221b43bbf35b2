// Package spec defines the PathRequest model: the declarative description of
// desired network reachability that srctl realizes as dataplane state.
//
// A PathRequest names a platform (linux or vpp), an optional default VRF
// (table 0), and an ordered set of named VRFs. Each VRF carries optional
// ipv4/ipv6 route groups whose entries are either L3VPN lookups (keyed by
// route-target) or graph-path queries (source/destination over a named graph).
package spec

// Platform selects the dataplane backend a PathRequest targets.
type Platform string

const (
	PlatformLinux Platform = "linux"
	PlatformVPP   Platform = "vpp"
)

// Family is an address family within a VRF.
type Family string

const (
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

// Path types understood by the compiler. The upstream graph service ranks
// candidates; pathType selects how many of them become routes.
const (
	PathTypeShortestPath = "shortest_path"
)

// Metrics accepted on graph-path routes. These are hints passed through to
// the upstream query; the engine never re-evaluates them locally.
const (
	MetricLowLatency    = "low-latency"
	MetricLeastUtilized = "least-utilized"
)

// File is the top-level YAML document (kind: PathRequest).
type File struct {
	Kind     string   `yaml:"kind"`
	Metadata Metadata `yaml:"metadata"`
	Spec     Request  `yaml:"spec"`
}

// Metadata carries the request name.
type Metadata struct {
	Name string `yaml:"name"`
}

// Request is the spec body of a PathRequest.
type Request struct {
	Platform   Platform `yaml:"platform"`
	DefaultVRF *VRF     `yaml:"defaultVrf,omitempty"`
	VRFs       []*VRF   `yaml:"vrfs,omitempty"`
}

// VRF is a routing table scope. The default VRF has no name and table 0;
// named VRFs default tableId to 0 as well unless set.
type VRF struct {
	Name    string      `yaml:"name,omitempty"`
	TableID uint32      `yaml:"tableId,omitempty"`
	IPv4    *RouteGroup `yaml:"ipv4,omitempty"`
	IPv6    *RouteGroup `yaml:"ipv6,omitempty"`
}

// RouteGroup is the per-family list of route entries.
type RouteGroup struct {
	Routes []*RouteSpec `yaml:"routes"`
}

// RouteSpec is one desired route entry. Exactly one of the two variants is
// populated: the L3VPN variant (route_target set) or the graph-path variant
// (graph set).
type RouteSpec struct {
	Name string `yaml:"name"`

	// L3VPN variant
	RouteTarget string `yaml:"route_target,omitempty"`
	Prefix      string `yaml:"prefix,omitempty"`
	ExactMatch  bool   `yaml:"exact_match,omitempty"`
	Collection  string `yaml:"collection,omitempty"`

	// Graph-path variant
	Graph             string `yaml:"graph,omitempty"`
	PathType          string `yaml:"pathType,omitempty"`
	Metric            string `yaml:"metric,omitempty"`
	Source            string `yaml:"source,omitempty"`
	Destination       string `yaml:"destination,omitempty"`
	Direction         string `yaml:"direction,omitempty"`
	DestinationPrefix string `yaml:"destination_prefix,omitempty"`

	// Platform address: exactly one is set, matching the request platform.
	OutboundInterface string `yaml:"outbound_interface,omitempty"`
	BSID              string `yaml:"bsid,omitempty"`
}

// Variant identifies which of the two RouteSpec forms an entry uses.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantL3VPN
	VariantGraphPath
)

// Variant returns the route entry's form. Unknown means neither (or both)
// discriminating fields are set; validation rejects that case.
func (r *RouteSpec) Variant() Variant {
	switch {
	case r.RouteTarget != "" && r.Graph == "":
		return VariantL3VPN
	case r.Graph != "" && r.RouteTarget == "":
		return VariantGraphPath
	default:
		return VariantUnknown
	}
}

// CollectionOrDefault returns the L3VPN collection to query, defaulting by
// address family (l3vpn_v4_prefix / l3vpn_v6_prefix).
func (r *RouteSpec) CollectionOrDefault(family Family) string {
	if r.Collection != "" {
		return r.Collection
	}
	if family == FamilyIPv6 {
		return "l3vpn_v6_prefix"
	}
	return "l3vpn_v4_prefix"
}

// PathTypeOrDefault returns the graph path type, defaulting to shortest_path.
func (r *RouteSpec) PathTypeOrDefault() string {
	if r.PathType == "" {
		return PathTypeShortestPath
	}
	return r.PathType
}

// DirectionOrDefault returns the query direction, defaulting to "outbound".
func (r *RouteSpec) DirectionOrDefault() string {
	if r.Direction == "" {
		return "outbound"
	}
	return r.Direction
}

// Group is one independently evaluable unit of work: the routes of a single
// (VRF, family) pair. Groups depend only on their own upstream queries and
// may be processed concurrently.
type Group struct {
	VRFName string // "" for the default VRF
	TableID uint32
	Family  Family
	Routes  []*RouteSpec
}

// Groups flattens the request into route groups across the default VRF and
// all named VRFs, in declaration order.
func (s *Request) Groups() []Group {
	var groups []Group
	appendVRF := func(vrfName string, tableID uint32, vrf *VRF) {
		if vrf.IPv4 != nil && len(vrf.IPv4.Routes) > 0 {
			groups = append(groups, Group{VRFName: vrfName, TableID: tableID, Family: FamilyIPv4, Routes: vrf.IPv4.Routes})
		}
		if vrf.IPv6 != nil && len(vrf.IPv6.Routes) > 0 {
			groups = append(groups, Group{VRFName: vrfName, TableID: tableID, Family: FamilyIPv6, Routes: vrf.IPv6.Routes})
		}
	}
	if s.DefaultVRF != nil {
		appendVRF("", 0, s.DefaultVRF)
	}
	for _, vrf := range s.VRFs {
		appendVRF(vrf.Name, vrf.TableID, vrf)
	}
	return groups
}
