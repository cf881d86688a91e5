package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"showreel/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Data directory", statusError, "missing", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Data directory:", "[ERROR] missing")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Image API token", statusOK, "configured", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderPreflightMarksOptionalFailuresAsWarnings(t *testing.T) {
	var out bytes.Buffer
	renderPreflight(&out, []preflight.Result{
		{Name: "Image API token", Passed: true, Detail: "configured"},
		{Name: "Narration API key", Detail: "missing"},
		{Name: "Photo API key", Detail: "missing", Optional: true},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out.String())
	}
	for i, want := range []string{"[OK]", "[ERROR]", "[WARN]"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d: expected %s in %q", i, want, lines[i])
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := humanBytes(3584); got != "3.5 KiB" {
		t.Fatalf("expected 3.5 KiB, got %q", got)
	}
	if got := humanBytes(12); got != "12 B" {
		t.Fatalf("expected 12 B, got %q", got)
	}
	if got := formatCost(0.112); got != "$0.1120" {
		t.Fatalf("expected $0.1120, got %q", got)
	}
}
