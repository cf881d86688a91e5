package generation

import (
	"errors"
	"testing"
)

func TestSegmentKey(t *testing.T) {
	if got := SegmentKey(3, 1); got != "seg-03-1" {
		t.Fatalf("expected seg-03-1, got %q", got)
	}
	if got := SegmentKey(12, 0); got != "seg-12-0" {
		t.Fatalf("expected seg-12-0, got %q", got)
	}
}

func TestOutcomeFailed(t *testing.T) {
	if (Outcome{}).Failed() {
		t.Fatal("expected zero outcome to succeed")
	}
	if !(Outcome{Err: errors.New("x")}).Failed() {
		t.Fatal("expected outcome with error to fail")
	}
}
