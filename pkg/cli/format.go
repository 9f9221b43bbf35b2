// Package cli provides shared formatting helpers for the srctl CLI.
package cli

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// colorEnabled is false when NO_COLOR is set (per no-color.org) or when
// stdout is not a terminal, so piped output stays clean.
var colorEnabled = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

// Green wraps s in ANSI green when color output is enabled.
func Green(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

// Yellow wraps s in ANSI yellow when color output is enabled.
func Yellow(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

// Red wraps s in ANSI red when color output is enabled.
func Red(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

// Bold wraps s in ANSI bold when color output is enabled.
func Bold(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

// Dim wraps s in ANSI dim when color output is enabled.
func Dim(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}

// DotPad pads name with dots to the given width.
// Example: DotPad("cust-a/ipv4", 30) → "cust-a/ipv4 .................."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}

// SegmentList renders an SRv6 segment list as "a -> b -> c".
func SegmentList(segments []string) string {
	return strings.Join(segments, " -> ")
}
