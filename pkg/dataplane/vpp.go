package dataplane

import (
	"context"
	"fmt"
	"net"

	"go.fd.io/govpp"
	"go.fd.io/govpp/api"
	"go.fd.io/govpp/binapi/interface_types"
	"go.fd.io/govpp/binapi/ip_types"
	"go.fd.io/govpp/binapi/sr"
	"go.fd.io/govpp/binapi/sr_types"
	"go.fd.io/govpp/core"

	"github.com/jalapeno-sdn/srctl/pkg/route"
	"github.com/jalapeno-sdn/srctl/pkg/spec"
	"github.com/jalapeno-sdn/srctl/pkg/util"
)

const defaultVPPAPISocket = "/run/vpp/api.sock"

// swIfIndexNone steers by L3 prefix, not by interface.
const swIfIndexNone = interface_types.InterfaceIndex(^uint32(0))

// VPPProgrammer installs SRv6 routes as VPP SR policies: one policy per
// binding SID carrying the segment list, plus an L3 steering entry that
// sends the destination prefix into the policy.
type VPPProgrammer struct {
	conn *core.Connection
	ch   api.Channel
}

// NewVPP connects to the VPP binary API socket.
func NewVPP(socket string) (*VPPProgrammer, error) {
	if socket == "" {
		socket = defaultVPPAPISocket
	}
	conn, err := govpp.Connect(socket)
	if err != nil {
		return nil, fmt.Errorf("connecting to VPP at %s: %w", socket, err)
	}
	ch, err := conn.NewAPIChannel()
	if err != nil {
		conn.Disconnect()
		return nil, fmt.Errorf("opening VPP API channel: %w", err)
	}
	return &VPPProgrammer{conn: conn, ch: ch}, nil
}

// EnsureRoute binds the segment list to the route's BSID and steers the
// destination prefix into it. An existing policy on the same BSID is
// replaced, which keeps re-apply idempotent.
func (p *VPPProgrammer) EnsureRoute(ctx context.Context, r route.ConcreteRoute) error {
	bsid, err := toIP6Address(r.Egress.BSID)
	if err != nil {
		return fmt.Errorf("bsid %s: %w", r.Egress.BSID, err)
	}
	prefix, family, err := toVPPPrefix(r.Prefix)
	if err != nil {
		return err
	}

	var sids sr.Srv6SidList
	if len(r.Egress.SegmentList) == 0 || len(r.Egress.SegmentList) > len(sids.Sids) {
		return fmt.Errorf("route %s: segment list must have 1..%d entries", r.Prefix, len(sids.Sids))
	}
	sids.NumSids = uint8(len(r.Egress.SegmentList))
	sids.Weight = 1
	for i, s := range r.Egress.SegmentList {
		seg, err := toIP6Address(s)
		if err != nil {
			return fmt.Errorf("segment %s: %w", s, err)
		}
		sids.Sids[i] = seg
	}

	// Drop any stale policy on this BSID first; retval is ignored because
	// the policy may not exist yet.
	delReply := &sr.SrPolicyDelReply{}
	_ = p.ch.SendRequest(&sr.SrPolicyDel{BsidAddr: bsid}).ReceiveReply(delReply)

	addReply := &sr.SrPolicyAddReply{}
	err = p.ch.SendRequest(&sr.SrPolicyAdd{
		BsidAddr: bsid,
		Weight:   1,
		IsEncap:  true,
		FibTable: r.Table,
		Sids:     sids,
	}).ReceiveReply(addReply)
	if err = apiError("sr_policy_add", err, addReply.Retval); err != nil {
		return err
	}

	steerReply := &sr.SrSteeringAddDelReply{}
	err = p.ch.SendRequest(&sr.SrSteeringAddDel{
		IsDel:       false,
		BsidAddr:    bsid,
		TableID:     r.Table,
		Prefix:      prefix,
		SwIfIndex:   swIfIndexNone,
		TrafficType: steerType(family),
	}).ReceiveReply(steerReply)
	if err = apiError("sr_steering_add_del", err, steerReply.Retval); err != nil {
		return err
	}

	util.WithRoute(r.Source).Debugf("programmed %s via bsid %s table %d", r.Prefix, r.Egress.BSID, r.Table)
	return nil
}

// RemoveRoute unsteers the prefix and deletes the policy. The BSID comes
// from observed state when the caller deletes by identity.
func (p *VPPProgrammer) RemoveRoute(ctx context.Context, r route.ConcreteRoute) error {
	if r.Egress.BSID == "" {
		return fmt.Errorf("route %s: removal requires the observed bsid", r.Prefix)
	}
	bsid, err := toIP6Address(r.Egress.BSID)
	if err != nil {
		return fmt.Errorf("bsid %s: %w", r.Egress.BSID, err)
	}
	prefix, family, err := toVPPPrefix(r.Prefix)
	if err != nil {
		return err
	}

	steerReply := &sr.SrSteeringAddDelReply{}
	err = p.ch.SendRequest(&sr.SrSteeringAddDel{
		IsDel:       true,
		BsidAddr:    bsid,
		TableID:     r.Table,
		Prefix:      prefix,
		SwIfIndex:   swIfIndexNone,
		TrafficType: steerType(family),
	}).ReceiveReply(steerReply)
	if err = apiError("sr_steering_add_del", err, steerReply.Retval); err != nil {
		return err
	}

	delReply := &sr.SrPolicyDelReply{}
	err = p.ch.SendRequest(&sr.SrPolicyDel{BsidAddr: bsid}).ReceiveReply(delReply)
	return apiError("sr_policy_del", err, delReply.Retval)
}

// Observe joins the steering table with the policy table: steering entries
// give (table, prefix) → bsid, policies give bsid → segment list.
func (p *VPPProgrammer) Observe(ctx context.Context, tables []uint32) (route.State, error) {
	segsByBSID := make(map[ip_types.IP6Address][]string)
	policyCtx := p.ch.SendMultiRequest(&sr.SrPoliciesDump{})
	for {
		details := &sr.SrPoliciesDetails{}
		stop, err := policyCtx.ReceiveReply(details)
		if err != nil {
			return nil, fmt.Errorf("dumping SR policies: %w", err)
		}
		if stop {
			break
		}
		if len(details.SidLists) == 0 {
			continue
		}
		list := details.SidLists[0]
		segs := make([]string, 0, list.NumSids)
		for i := 0; i < int(list.NumSids) && i < len(list.Sids); i++ {
			segs = append(segs, fromIP6Address(list.Sids[i]))
		}
		segsByBSID[details.Bsid] = segs
	}

	wanted := make(map[uint32]bool, len(tables))
	for _, t := range tables {
		wanted[t] = true
	}

	state := make(route.State)
	steerCtx := p.ch.SendMultiRequest(&sr.SrSteeringPolDump{})
	for {
		details := &sr.SrSteeringPolDetails{}
		stop, err := steerCtx.ReceiveReply(details)
		if err != nil {
			return nil, fmt.Errorf("dumping SR steering policies: %w", err)
		}
		if stop {
			break
		}
		if !wanted[details.FibTable] {
			continue
		}
		prefix, family := fromVPPPrefix(details.Prefix)
		key := route.Key{
			Platform: spec.PlatformVPP,
			Table:    details.FibTable,
			Family:   family,
			Prefix:   prefix,
		}
		state[key] = route.Egress{
			BSID:        fromIP6Address(details.Bsid),
			SegmentList: segsByBSID[details.Bsid],
		}
	}
	return state, nil
}

// Close tears down the API channel and connection.
func (p *VPPProgrammer) Close() error {
	p.ch.Close()
	p.conn.Disconnect()
	return nil
}

func apiError(op string, err error, retval int32) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if retval != 0 {
		return fmt.Errorf("%s: retval %d", op, retval)
	}
	return nil
}

func steerType(family spec.Family) sr_types.SrSteer {
	if family == spec.FamilyIPv6 {
		return sr_types.SR_STEER_API_IPV6
	}
	return sr_types.SR_STEER_API_IPV4
}

func toIP6Address(s string) (ip_types.IP6Address, error) {
	var out ip_types.IP6Address
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() != nil {
		return out, fmt.Errorf("'%s' is not an IPv6 address", s)
	}
	copy(out[:], ip.To16())
	return out, nil
}

func fromIP6Address(a ip_types.IP6Address) string {
	return net.IP(a[:]).String()
}

func toVPPPrefix(cidr string) (ip_types.Prefix, spec.Family, error) {
	var out ip_types.Prefix
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return out, "", fmt.Errorf("prefix %s: %w", cidr, err)
	}
	ones, _ := ipNet.Mask.Size()
	out.Len = uint8(ones)
	if v4 := ip.To4(); v4 != nil {
		var addr ip_types.IP4Address
		copy(addr[:], v4)
		out.Address = ip_types.Address{Af: ip_types.ADDRESS_IP4, Un: ip_types.AddressUnionIP4(addr)}
		return out, spec.FamilyIPv4, nil
	}
	var addr ip_types.IP6Address
	copy(addr[:], ip.To16())
	out.Address = ip_types.Address{Af: ip_types.ADDRESS_IP6, Un: ip_types.AddressUnionIP6(addr)}
	return out, spec.FamilyIPv6, nil
}

func fromVPPPrefix(p ip_types.Prefix) (string, spec.Family) {
	if p.Address.Af == ip_types.ADDRESS_IP4 {
		addr := p.Address.Un.GetIP4()
		return fmt.Sprintf("%s/%d", net.IP(addr[:]).String(), p.Len), spec.FamilyIPv4
	}
	addr := p.Address.Un.GetIP6()
	return fmt.Sprintf("%s/%d", net.IP(addr[:]).String(), p.Len), spec.FamilyIPv6
}
