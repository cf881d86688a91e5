// Package generation holds the request and outcome types shared by the
// asset generation services.
package generation

import "fmt"

// Request describes one asset to produce. Key is the ordinal label used in
// logs and failure messages (for example "seg-03-1").
type Request struct {
	Key         string
	Prompt      string
	Destination string
	Segment     int
	PromptIndex int
}

// Outcome is the result of one Request. Every request yields exactly one
// outcome; a failed unit carries Err and no cost.
type Outcome struct {
	Key         string
	Destination string
	Digest      string
	Cost        float64
	Cached      bool
	Err         error
}

// Failed reports whether the outcome carries an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// SegmentKey formats the ordinal label for a planned segment image.
func SegmentKey(segment, promptIndex int) string {
	return fmt.Sprintf("seg-%02d-%d", segment, promptIndex)
}
