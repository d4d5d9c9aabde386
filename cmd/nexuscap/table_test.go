package main

import (
	"strings"
	"testing"
)

func TestRenderTableAlignsColumns(t *testing.T) {
	out := renderTable(
		[]string{"Name", "Count"},
		[][]string{
			{"a", "5"},
			{"bb", "123"},
		},
		1,
	)

	if !strings.Contains(out, "Name") || !strings.Contains(out, "Count") {
		t.Fatalf("headers missing from output:\n%s", out)
	}
	// The Count column is right-aligned, so short values get left padding.
	if !strings.Contains(out, "  5") {
		t.Fatalf("numeric column not right-aligned:\n%s", out)
	}
	if !strings.Contains(out, "a ") {
		t.Fatalf("text column not left-aligned:\n%s", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"A", "B", "C"},
		[][]string{{"only"}},
	)
	if !strings.Contains(out, "only") {
		t.Fatalf("row value missing from output:\n%s", out)
	}
	if strings.Contains(out, "<nil>") {
		t.Fatalf("missing cells rendered as nil:\n%s", out)
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if out := renderTable(nil, nil); out != "" {
		t.Fatalf("renderTable(nil, nil) = %q, want empty", out)
	}
}
