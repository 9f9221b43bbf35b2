package spec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jalapeno-sdn/srctl/pkg/util"
)

// KindPathRequest is the only resource kind srctl understands.
const KindPathRequest = "PathRequest"

// LoadFile reads and parses a PathRequest YAML document. The result is not
// yet validated; call Validate before acting on it.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a PathRequest document from YAML bytes.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing spec: %w", err)
	}
	if f.Kind != KindPathRequest {
		return nil, fmt.Errorf("unsupported resource kind '%s' (expected %s)", f.Kind, KindPathRequest)
	}
	return &f, nil
}

// Validate checks the request structurally before any network call is made.
// Validation failures are fatal for the whole invocation and never touch
// upstream or the dataplane.
//
// forDelete relaxes the platform-address requirement: deletion identifies
// routes by (table, family, prefix) and does not need an egress descriptor.
func (f *File) Validate(forDelete bool) error {
	v := &util.ValidationBuilder{}

	switch f.Spec.Platform {
	case PlatformLinux, PlatformVPP:
	case "":
		v.AddError("platform is required (linux or vpp)")
	default:
		v.AddErrorf("invalid platform '%s' (expected linux or vpp)", f.Spec.Platform)
	}

	// VRF names and table ids must be unique within the request. The default
	// VRF owns table 0.
	names := make(map[string]bool)
	tables := make(map[uint32]string)
	if f.Spec.DefaultVRF != nil {
		tables[0] = "defaultVrf"
	}
	for _, vrf := range f.Spec.VRFs {
		if vrf.Name == "" {
			v.AddError("vrf name is required")
			continue
		}
		if names[vrf.Name] {
			v.AddErrorf("duplicate vrf name '%s'", vrf.Name)
		}
		names[vrf.Name] = true
		// On linux, table 0 is programmed into the kernel main table (254),
		// so the two ids address the same table.
		tableID := vrf.TableID
		if f.Spec.Platform == PlatformLinux && tableID == 254 {
			tableID = 0
		}
		if owner, ok := tables[tableID]; ok {
			if tableID != vrf.TableID {
				v.AddErrorf("vrf '%s': table id 254 is the kernel main table and collides with %s (table 0)", vrf.Name, owner)
			} else {
				v.AddErrorf("vrf '%s' reuses table id %d (already used by %s)", vrf.Name, vrf.TableID, owner)
			}
		} else {
			tables[tableID] = "vrf '" + vrf.Name + "'"
		}
	}

	for _, g := range f.Spec.Groups() {
		scope := g.VRFName
		if scope == "" {
			scope = "defaultVrf"
		}
		routeNames := make(map[string]bool)
		for _, r := range g.Routes {
			f.validateRoute(v, r, g, scope, forDelete)
			if r.Name != "" {
				if routeNames[r.Name] {
					v.AddErrorf("%s/%s: duplicate route name '%s'", scope, g.Family, r.Name)
				}
				routeNames[r.Name] = true
			}
		}
	}

	return v.Build()
}

func (f *File) validateRoute(v *util.ValidationBuilder, r *RouteSpec, g Group, scope string, forDelete bool) {
	where := fmt.Sprintf("%s/%s route '%s'", scope, g.Family, r.Name)
	if r.Name == "" {
		v.AddErrorf("%s/%s: route name is required", scope, g.Family)
		where = fmt.Sprintf("%s/%s unnamed route", scope, g.Family)
	}

	switch r.Variant() {
	case VariantL3VPN:
		if err := util.ValidateRouteTarget(r.RouteTarget); err != nil {
			v.AddErrorf("%s: %v", where, err)
		}
		if r.Prefix != "" {
			if _, err := util.NormalizePrefix(r.Prefix); err != nil {
				v.AddErrorf("%s: %v", where, err)
			}
		}
	case VariantGraphPath:
		if r.Source == "" {
			v.AddErrorf("%s: source is required for graph-path routes", where)
		}
		if r.Destination == "" {
			v.AddErrorf("%s: destination is required for graph-path routes", where)
		}
		switch r.Metric {
		case "", MetricLowLatency, MetricLeastUtilized:
		default:
			v.AddErrorf("%s: unsupported metric '%s'", where, r.Metric)
		}
		if r.DestinationPrefix == "" {
			v.AddErrorf("%s: destination_prefix is required for graph-path routes", where)
		} else if _, err := util.NormalizePrefix(r.DestinationPrefix); err != nil {
			v.AddErrorf("%s: %v", where, err)
		}
	default:
		v.AddErrorf("%s: exactly one of route_target or graph must be set", where)
	}

	if r.OutboundInterface != "" && r.BSID != "" {
		v.AddErrorf("%s: outbound_interface and bsid are mutually exclusive", where)
	}
	if r.BSID != "" && !util.IsValidIPv6(r.BSID) {
		v.AddErrorf("%s: bsid '%s' is not a valid IPv6 address", where, r.BSID)
	}

	if forDelete {
		return
	}
	switch f.Spec.Platform {
	case PlatformLinux:
		if r.OutboundInterface == "" {
			v.AddErrorf("%s: outbound_interface is required on linux", where)
		}
		if r.BSID != "" {
			v.AddErrorf("%s: bsid is not valid on linux", where)
		}
	case PlatformVPP:
		if r.BSID == "" {
			v.AddErrorf("%s: bsid is required on vpp", where)
		}
		if r.OutboundInterface != "" {
			v.AddErrorf("%s: outbound_interface is not valid on vpp", where)
		}
	}
}
