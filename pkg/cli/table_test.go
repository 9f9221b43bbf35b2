package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	t.Run("headers and divider on first row", func(t *testing.T) {
		var buf bytes.Buffer
		tbl := NewTableTo(&buf, "PREFIX", "SID")
		tbl.Row("10.1.1.0/24", "fc00:0:1:1::")
		tbl.Row("10.1.2.0/24", "fc00:0:1:2::")
		tbl.Flush()

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		if len(lines) != 4 {
			t.Fatalf("got %d lines: %q", len(lines), buf.String())
		}
		if !strings.Contains(lines[0], "PREFIX") || !strings.Contains(lines[0], "SID") {
			t.Errorf("header line: %q", lines[0])
		}
		if !strings.Contains(lines[1], "------") {
			t.Errorf("divider line: %q", lines[1])
		}
		if !strings.Contains(lines[2], "10.1.1.0/24") {
			t.Errorf("row line: %q", lines[2])
		}
	})

	t.Run("empty table prints nothing", func(t *testing.T) {
		var buf bytes.Buffer
		tbl := NewTableTo(&buf, "PREFIX", "SID")
		tbl.Flush()
		if buf.Len() != 0 {
			t.Errorf("empty table should produce no output: %q", buf.String())
		}
	})

	t.Run("prefix prepended to every line", func(t *testing.T) {
		var buf bytes.Buffer
		tbl := NewTableTo(&buf, "A").WithPrefix("  ")
		tbl.Row("x")
		tbl.Flush()
		for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
			if !strings.HasPrefix(line, "  ") {
				t.Errorf("line missing prefix: %q", line)
			}
		}
	})
}
