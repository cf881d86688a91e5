package imagegen

import "strings"

const (
	stylePrefix    = "Vintage documentary photograph, authentic film grain, natural period lighting"
	styleMarker    = "documentary photograph"
	negativeSuffix = "no text, no captions, no watermarks, no recognizable people or faces"
	negativeMarker = "no text"
)

// StylePrompt applies the documentary style prefix and the negative
// constraint suffix. Each is added only when the prompt does not already
// carry it, so StylePrompt(StylePrompt(p)) == StylePrompt(p).
func StylePrompt(prompt string) string {
	styled := strings.TrimSpace(prompt)
	lower := strings.ToLower(styled)
	if !strings.Contains(lower, styleMarker) {
		if styled == "" {
			styled = stylePrefix
		} else {
			styled = stylePrefix + ". " + styled
		}
	}
	if !strings.Contains(lower, negativeMarker) {
		styled = strings.TrimRight(styled, ". ") + ". " + negativeSuffix
	}
	return styled
}
