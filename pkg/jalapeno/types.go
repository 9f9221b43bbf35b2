package jalapeno

import (
	"encoding/json"
	"fmt"
)

// SRv6Data is the segment-routing encoding of a path as returned by the API.
type SRv6Data struct {
	USID    string   `json:"srv6_usid"`
	SIDList []string `json:"srv6_sid_list,omitempty"`
}

// CandidatePath is one possible route between source and destination,
// produced by the upstream graph service and consumed read-only. Paths
// arrive in the service's own ranking order (ascending cost by default, or
// by the requested metric).
type CandidatePath struct {
	Hops     []string `json:"hops,omitempty"`
	HopCount int      `json:"hopcount"`
	Cost     float64  `json:"cost,omitempty"`
	SRv6     SRv6Data `json:"srv6_data"`
}

type graphPathsResponse struct {
	Paths      []CandidatePath `json:"paths"`
	TotalPaths int             `json:"total_paths_found"`
}

// SIDField accepts the API's sid field in either string or array form.
type SIDField []string

func (s *SIDField) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*s = nil
		} else {
			*s = SIDField{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("sid: expected string or array: %w", err)
	}
	*s = SIDField(list)
	return nil
}

// VPNPrefix is one L3VPN prefix matched by a route-target query.
type VPNPrefix struct {
	Prefix    string   `json:"prefix"`
	PrefixLen int      `json:"prefix_len"`
	SIDs      SIDField `json:"sid"`
	Labels    []uint32 `json:"labels,omitempty"`
	NextHop   string   `json:"nexthop,omitempty"`
}

// CIDR returns the prefix in CIDR notation.
func (p *VPNPrefix) CIDR() string {
	return fmt.Sprintf("%s/%d", p.Prefix, p.PrefixLen)
}

// SID returns the first SID, or "" when the prefix carries none. The API may
// return the sid field as a single string or an array; the first entry wins.
func (p *VPNPrefix) SID() string {
	if len(p.SIDs) == 0 {
		return ""
	}
	return p.SIDs[0]
}

// Label returns the first VPN label, or 0 when none is present.
func (p *VPNPrefix) Label() uint32 {
	if len(p.Labels) == 0 {
		return 0
	}
	return p.Labels[0]
}

type vpnPrefixesResponse struct {
	Prefixes      []VPNPrefix `json:"prefixes"`
	TotalPrefixes int         `json:"total_prefixes"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *errorResponse) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
