package imagegen

import (
	"strings"
	"testing"
)

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"":             TierFast,
		"fast":         TierFast,
		" Schnell ":    TierFast,
		"quality":      TierQuality,
		"PRO":          TierQuality,
		"flux-1.1-pro": TierQuality,
	}
	for input, want := range cases {
		got, err := ParseTier(input)
		if err != nil {
			t.Fatalf("ParseTier(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseTier(%q): expected %s, got %s", input, want, got)
		}
	}
	_, err := ParseTier("ultra")
	if err == nil {
		t.Fatal("expected error for unknown tier")
	}
	if !strings.Contains(err.Error(), "fast, quality") {
		t.Fatalf("expected valid tiers in error, got %v", err)
	}
}

func TestTierTable(t *testing.T) {
	if TierFast.Cost() != 0.003 || TierQuality.Cost() != 0.05 {
		t.Fatalf("unexpected tier costs: fast=%v quality=%v", TierFast.Cost(), TierQuality.Cost())
	}
	if TierFast.Model() == TierQuality.Model() {
		t.Fatal("expected distinct models per tier")
	}
	for _, tier := range Tiers() {
		if !tier.Valid() || tier.Model() == "" {
			t.Fatalf("tier %s missing table entry", tier)
		}
	}
	unknown := Tier("ultra")
	if unknown.Valid() || unknown.Cost() != 0 || unknown.Model() != "" {
		t.Fatal("expected unknown tier to have no table entry")
	}
}
