package util

import (
	"testing"
)

func TestValidateRouteTarget(t *testing.T) {
	valid := []string{"9:9", "65000:100", "100:2", "4200000000:1"}
	for _, rt := range valid {
		if err := ValidateRouteTarget(rt); err != nil {
			t.Errorf("ValidateRouteTarget(%q) = %v, want nil", rt, err)
		}
	}

	invalid := []string{"", "9", "9:", ":9", "a:b", "9:9:9", "9.9", "65000:100x"}
	for _, rt := range invalid {
		if err := ValidateRouteTarget(rt); err == nil {
			t.Errorf("ValidateRouteTarget(%q) = nil, want error", rt)
		}
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"10.1.1.0/24", "10.1.1.0/24", false},
		{"10.0.0.0/8", "10.0.0.0/8", false},
		{"fc00:0:1::/48", "fc00:0:1::/48", false},
		{"10.1.1.0", "", true},
		{"not-a-prefix", "", true},
		{"10.1.1.0/33", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizePrefix(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizePrefix(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePrefix(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePrefixMasksHostBits(t *testing.T) {
	got, err := NormalizePrefix("10.1.1.77/24")
	if err != nil {
		t.Fatalf("NormalizePrefix: %v", err)
	}
	if got != "10.1.1.0/24" {
		t.Errorf("host bits should be masked: got %q", got)
	}
}

func TestFamilyOfPrefix(t *testing.T) {
	if got := FamilyOfPrefix("10.1.1.0/24"); got != "ipv4" {
		t.Errorf("FamilyOfPrefix(v4) = %q", got)
	}
	if got := FamilyOfPrefix("fc00:0:1::/48"); got != "ipv6" {
		t.Errorf("FamilyOfPrefix(v6) = %q", got)
	}
	if got := FamilyOfPrefix("bogus"); got != "" {
		t.Errorf("FamilyOfPrefix(bogus) = %q, want empty", got)
	}
}

func TestExpandUSID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		// Trailing hextets omitted (the common API form)
		{"fc00:0:1:2", "fc00:0:1:2::", false},
		{"fc00:0:7", "fc00:0:7::", false},
		// Already terminated with ::
		{"fc00:0:1:2::", "fc00:0:1:2::", false},
		// Full address round-trips
		{"fc00:0:1:2:3:4:5:6", "fc00:0:1:2:3:4:5:6", false},
		// Compressed middle
		{"fc00::1", "fc00::1", false},
		{"", "", true},
		{"::", "", true},
		{"10.1.1.1", "", true},
		{"zz:yy", "", true},
	}

	for _, tt := range tests {
		got, err := ExpandUSID(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ExpandUSID(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExpandUSID(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandUSID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValidIPv6(t *testing.T) {
	if !IsValidIPv6("101::101") {
		t.Error("101::101 should be valid IPv6")
	}
	if IsValidIPv6("10.1.1.1") {
		t.Error("IPv4 address should not count as IPv6")
	}
	if IsValidIPv6("not-an-ip") {
		t.Error("garbage should not be valid")
	}
}
