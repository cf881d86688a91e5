package preflight

import (
	"errors"
	"fmt"
	"strings"

	"showreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks degrade a stage instead of blocking the run.
	Optional bool
}

// Stages names the generation stages a run will execute.
type Stages struct {
	Narration bool
	Images    bool
	Thumbnail bool
	Archival  bool
}

// AllStages enables every stage.
func AllStages() Stages {
	return Stages{Narration: true, Images: true, Thumbnail: true, Archival: true}
}

// RunAll executes directory and credential checks for the given stages.
func RunAll(cfg *config.Config, stages Stages) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
	}
	return append(results, credentialResults(cfg, stages)...)
}

func credentialResults(cfg *config.Config, stages Stages) []Result {
	var results []Result
	if stages.Images || stages.Thumbnail {
		results = append(results, CheckCredential("Image API token", cfg.Images.APIToken))
	}
	if stages.Narration {
		results = append(results,
			CheckCredential("Narration API key", cfg.Narration.APIKey),
			CheckCredential("Narration voice id", cfg.Narration.VoiceID),
		)
	}
	if stages.Archival {
		photo := CheckCredential("Photo API key", cfg.Photos.APIKey)
		photo.Optional = true
		results = append(results, photo)
	}
	return results
}

// ErrMissingCredentials reports that a required credential is absent.
var ErrMissingCredentials = errors.New("missing credentials")

// CheckCredentials returns an error naming every credential the selected
// stages need but the config lacks. A missing photo key is not an error;
// archival is skipped with a warning instead.
func CheckCredentials(cfg *config.Config, stages Stages) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var missing []string
	for _, result := range Failed(credentialResults(cfg, stages)) {
		missing = append(missing, result.Name)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Failed returns the required results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
