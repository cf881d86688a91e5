package assetgen

import (
	"fmt"

	"showreel/internal/services"
)

var (
	// ErrEpisodeNotFound reports that the requested episode does not exist.
	ErrEpisodeNotFound = fmt.Errorf("%w: episode not found", services.ErrStructural)
	// ErrMissingCredential reports that a stage that will run lacks a credential.
	ErrMissingCredential = fmt.Errorf("%w: missing credential", services.ErrStructural)
)
