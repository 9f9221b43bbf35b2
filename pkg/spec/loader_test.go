package spec

import (
	"errors"
	"strings"
	"testing"

	"github.com/jalapeno-sdn/srctl/pkg/util"
)

const l3vpnRequest = `
kind: PathRequest
metadata:
  name: customer-vpn
spec:
  platform: linux
  defaultVrf:
    ipv4:
      routes:
        - name: cust-routes
          route_target: "9:9"
          outbound_interface: ens4
`

const graphRequest = `
kind: PathRequest
metadata:
  name: amsterdam-rome
spec:
  platform: vpp
  vrfs:
    - name: cust-a
      tableId: 2
      ipv4:
        routes:
          - name: to-rome
            graph: ipv4_graph
            source: amsterdam
            destination: rome
            metric: low-latency
            destination_prefix: 10.107.1.0/24
            bsid: "101::101"
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(l3vpnRequest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Metadata.Name != "customer-vpn" {
		t.Errorf("name = %q", f.Metadata.Name)
	}
	if f.Spec.Platform != PlatformLinux {
		t.Errorf("platform = %q", f.Spec.Platform)
	}
	r := f.Spec.DefaultVRF.IPv4.Routes[0]
	if r.Variant() != VariantL3VPN {
		t.Errorf("variant = %v, want l3vpn", r.Variant())
	}
	if r.RouteTarget != "9:9" || r.OutboundInterface != "ens4" {
		t.Errorf("route fields: %+v", r)
	}
}

func TestParseRejectsWrongKind(t *testing.T) {
	_, err := Parse([]byte("kind: Deployment\n"))
	if err == nil || !strings.Contains(err.Error(), "kind") {
		t.Errorf("expected kind error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid l3vpn request", func(t *testing.T) {
		f := mustParse(t, l3vpnRequest)
		if err := f.Validate(false); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("valid graph request", func(t *testing.T) {
		f := mustParse(t, graphRequest)
		if err := f.Validate(false); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("missing platform", func(t *testing.T) {
		f := mustParse(t, l3vpnRequest)
		f.Spec.Platform = ""
		expectValidationError(t, f.Validate(false), "platform")
	})

	t.Run("invalid platform", func(t *testing.T) {
		f := mustParse(t, l3vpnRequest)
		f.Spec.Platform = "junos"
		expectValidationError(t, f.Validate(false), "platform")
	})

	t.Run("duplicate vrf name", func(t *testing.T) {
		f := mustParse(t, graphRequest)
		dup := *f.Spec.VRFs[0]
		dup.TableID = 3
		f.Spec.VRFs = append(f.Spec.VRFs, &dup)
		expectValidationError(t, f.Validate(false), "duplicate vrf name")
	})

	t.Run("table id reuse", func(t *testing.T) {
		f := mustParse(t, graphRequest)
		other := &VRF{Name: "cust-b", TableID: 2, IPv4: f.Spec.VRFs[0].IPv4}
		f.Spec.VRFs = append(f.Spec.VRFs, other)
		expectValidationError(t, f.Validate(false), "table id 2")
	})

	t.Run("default vrf owns table zero", func(t *testing.T) {
		f := mustParse(t, l3vpnRequest)
		f.Spec.VRFs = []*VRF{{Name: "clash", TableID: 0, IPv4: f.Spec.DefaultVRF.IPv4}}
		expectValidationError(t, f.Validate(false), "table id 0")
	})

	t.Run("linux table 254 aliases the default vrf", func(t *testing.T) {
		// Table 0 lands in the kernel main table on linux, so a vrf with
		// tableId 254 would silently reconcile against the default vrf's
		// routes.
		f := mustParse(t, l3vpnRequest)
		f.Spec.VRFs = []*VRF{{Name: "clash", TableID: 254, IPv4: f.Spec.DefaultVRF.IPv4}}
		expectValidationError(t, f.Validate(false), "kernel main table")
	})

	t.Run("vpp table 254 is distinct from table zero", func(t *testing.T) {
		f := mustParse(t, graphRequest)
		other := &VRF{Name: "cust-b", TableID: 254, IPv4: f.Spec.VRFs[0].IPv4}
		f.Spec.VRFs = append(f.Spec.VRFs, other)
		if err := f.Validate(false); err != nil {
			t.Errorf("table 254 only aliases table 0 on linux: %v", err)
		}
	})

	t.Run("bad route target", func(t *testing.T) {
		f := mustParse(t, l3vpnRequest)
		f.Spec.DefaultVRF.IPv4.Routes[0].RouteTarget = "nine:nine"
		expectValidationError(t, f.Validate(false), "route target")
	})

	t.Run("both variants set", func(t *testing.T) {
		f := mustParse(t, l3vpnRequest)
		f.Spec.DefaultVRF.IPv4.Routes[0].Graph = "ipv4_graph"
		expectValidationError(t, f.Validate(false), "exactly one")
	})

	t.Run("graph route requires endpoints", func(t *testing.T) {
		f := mustParse(t, graphRequest)
		r := f.Spec.VRFs[0].IPv4.Routes[0]
		r.Source = ""
		r.Destination = ""
		expectValidationError(t, f.Validate(false), "source is required")
	})

	t.Run("unsupported metric", func(t *testing.T) {
		f := mustParse(t, graphRequest)
		f.Spec.VRFs[0].IPv4.Routes[0].Metric = "most-hops"
		expectValidationError(t, f.Validate(false), "metric")
	})

	t.Run("bsid rejected on linux", func(t *testing.T) {
		f := mustParse(t, l3vpnRequest)
		r := f.Spec.DefaultVRF.IPv4.Routes[0]
		r.OutboundInterface = ""
		r.BSID = "101::101"
		expectValidationError(t, f.Validate(false), "linux")
	})

	t.Run("interface rejected on vpp", func(t *testing.T) {
		f := mustParse(t, graphRequest)
		r := f.Spec.VRFs[0].IPv4.Routes[0]
		r.BSID = ""
		r.OutboundInterface = "ens4"
		expectValidationError(t, f.Validate(false), "vpp")
	})

	t.Run("bad bsid", func(t *testing.T) {
		f := mustParse(t, graphRequest)
		f.Spec.VRFs[0].IPv4.Routes[0].BSID = "10.1.1.1"
		expectValidationError(t, f.Validate(false), "bsid")
	})

	t.Run("delete relaxes platform address", func(t *testing.T) {
		f := mustParse(t, l3vpnRequest)
		f.Spec.DefaultVRF.IPv4.Routes[0].OutboundInterface = ""
		if err := f.Validate(false); err == nil {
			t.Error("apply validation should require the address")
		}
		if err := f.Validate(true); err != nil {
			t.Errorf("delete validation should not require the address: %v", err)
		}
	})

	t.Run("duplicate route names in a group", func(t *testing.T) {
		f := mustParse(t, l3vpnRequest)
		routes := f.Spec.DefaultVRF.IPv4.Routes
		dup := *routes[0]
		f.Spec.DefaultVRF.IPv4.Routes = append(routes, &dup)
		expectValidationError(t, f.Validate(false), "duplicate route name")
	})
}

func TestGroups(t *testing.T) {
	f := mustParse(t, l3vpnRequest)
	f.Spec.VRFs = []*VRF{
		{Name: "cust-a", TableID: 2,
			IPv4: &RouteGroup{Routes: []*RouteSpec{{Name: "a4"}}},
			IPv6: &RouteGroup{Routes: []*RouteSpec{{Name: "a6"}}}},
	}

	groups := f.Spec.Groups()
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	if groups[0].VRFName != "" || groups[0].TableID != 0 || groups[0].Family != FamilyIPv4 {
		t.Errorf("group 0: %+v", groups[0])
	}
	if groups[1].VRFName != "cust-a" || groups[1].Family != FamilyIPv4 {
		t.Errorf("group 1: %+v", groups[1])
	}
	if groups[2].VRFName != "cust-a" || groups[2].Family != FamilyIPv6 {
		t.Errorf("group 2: %+v", groups[2])
	}
}

func TestDefaults(t *testing.T) {
	r := &RouteSpec{}
	if got := r.CollectionOrDefault(FamilyIPv4); got != "l3vpn_v4_prefix" {
		t.Errorf("v4 collection = %q", got)
	}
	if got := r.CollectionOrDefault(FamilyIPv6); got != "l3vpn_v6_prefix" {
		t.Errorf("v6 collection = %q", got)
	}
	if got := r.PathTypeOrDefault(); got != PathTypeShortestPath {
		t.Errorf("path type = %q", got)
	}
	if got := r.DirectionOrDefault(); got != "outbound" {
		t.Errorf("direction = %q", got)
	}
	r.Collection = "custom_prefixes"
	if got := r.CollectionOrDefault(FamilyIPv4); got != "custom_prefixes" {
		t.Errorf("explicit collection = %q", got)
	}
}

func mustParse(t *testing.T, doc string) *File {
	t.Helper()
	f, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func expectValidationError(t *testing.T, err error, contains string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error mentioning %q, got nil", contains)
	}
	if !errors.Is(err, util.ErrValidationFailed) {
		t.Errorf("error should unwrap to ErrValidationFailed: %v", err)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("error should mention %q: %v", contains, err)
	}
}
