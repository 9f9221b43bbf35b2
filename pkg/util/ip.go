package util

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var routeTargetRe = regexp.MustCompile(`^[0-9]+:[0-9]+$`)

// ValidateRouteTarget checks the ASN:NN route-target format (e.g. "65000:100").
func ValidateRouteTarget(rt string) error {
	if !routeTargetRe.MatchString(rt) {
		return fmt.Errorf("invalid route target '%s': expected ASN:NN", rt)
	}
	return nil
}

// NormalizePrefix parses a CIDR prefix and returns its canonical masked form
// (e.g. "10.1.1.5/24" → "10.1.0.0/24" would be rejected upstream, but
// "10.1.1.0/24" round-trips unchanged).
func NormalizePrefix(prefix string) (string, error) {
	_, ipNet, err := net.ParseCIDR(prefix)
	if err != nil {
		return "", fmt.Errorf("invalid prefix '%s': %w", prefix, err)
	}
	return ipNet.String(), nil
}

// FamilyOfPrefix returns "ipv4" or "ipv6" for a CIDR prefix, or "" if invalid.
func FamilyOfPrefix(prefix string) string {
	ip, _, err := net.ParseCIDR(prefix)
	if err != nil {
		return ""
	}
	if ip.To4() != nil {
		return "ipv4"
	}
	return "ipv6"
}

// ExpandUSID expands a compressed SRv6 uSID (e.g. "fc00:0:1:2::" or
// "fc00:0:1:2") to a full IPv6 address string. The Jalapeno API returns
// uSIDs with trailing hextets omitted; route programming wants a complete
// address.
func ExpandUSID(usid string) (string, error) {
	trimmed := strings.TrimRight(usid, ":")
	if trimmed == "" {
		return "", fmt.Errorf("invalid SRv6 uSID '%s'", usid)
	}
	parts := strings.Split(trimmed, ":")
	for _, p := range parts {
		if p == "" {
			// Contains "::" — let the IPv6 parser handle expansion.
			ip := net.ParseIP(trimmed)
			if ip == nil || ip.To4() != nil {
				return "", fmt.Errorf("invalid SRv6 uSID '%s'", usid)
			}
			return ip.String(), nil
		}
	}
	for len(parts) < 8 {
		parts = append(parts, "0")
	}
	full := strings.Join(parts, ":")
	ip := net.ParseIP(full)
	if ip == nil || ip.To4() != nil {
		return "", fmt.Errorf("invalid SRv6 uSID '%s'", usid)
	}
	return ip.String(), nil
}

// IsValidIPv6 reports whether s parses as an IPv6 address.
func IsValidIPv6(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() == nil
}
