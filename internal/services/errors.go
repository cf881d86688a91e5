package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStructural marks failures that abort an orchestration run before any
	// cost is incurred (unknown episode, missing credential).
	ErrStructural    = errors.New("structural error")
	ErrGeneration    = errors.New("generation error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrCacheIO       = errors.New("cache io error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrGeneration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsStructural reports whether err should abort an orchestration run.
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructural)
}

// StatusError reports a non-success HTTP response from an external API.
type StatusError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: %s failed (http %d)", e.Service, e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s failed (http %d): %s", e.Service, e.Operation, e.StatusCode, body)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
