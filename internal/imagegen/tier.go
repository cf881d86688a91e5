package imagegen

import (
	"fmt"
	"strings"
)

// Tier selects an image backend configuration with a fixed quality/cost tradeoff.
type Tier string

const (
	// TierFast is the cheap, low-latency tier used for most segment visuals.
	TierFast Tier = "fast"
	// TierQuality is the high-fidelity tier used for hero shots and thumbnails.
	TierQuality Tier = "quality"
)

const (
	modelFast    = "black-forest-labs/flux-schnell"
	modelQuality = "black-forest-labs/flux-1.1-pro"

	costFast    = 0.003
	costQuality = 0.05
)

// Tiers lists every supported tier.
func Tiers() []Tier {
	return []Tier{TierFast, TierQuality}
}

// ParseTier resolves a tier name. An empty value selects TierFast.
func ParseTier(value string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "fast", "schnell", "flux-schnell":
		return TierFast, nil
	case "quality", "pro", "flux-1.1-pro", "flux-pro":
		return TierQuality, nil
	default:
		names := make([]string, 0, len(Tiers()))
		for _, tier := range Tiers() {
			names = append(names, tier.String())
		}
		return "", fmt.Errorf("imagegen: unknown tier %q (want one of %s)", value, strings.Join(names, ", "))
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFast, TierQuality:
		return true
	default:
		return false
	}
}

// Model returns the backend model identifier for the tier.
func (t Tier) Model() string {
	switch t {
	case TierFast:
		return modelFast
	case TierQuality:
		return modelQuality
	default:
		return ""
	}
}

// Cost returns the fixed accounting cost of one image at this tier.
func (t Tier) Cost() float64 {
	switch t {
	case TierFast:
		return costFast
	case TierQuality:
		return costQuality
	default:
		return 0
	}
}

func (t Tier) String() string {
	return string(t)
}
