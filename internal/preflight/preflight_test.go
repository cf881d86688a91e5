package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"showreel/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCredentialsNamesMissingValues(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
	err := CheckCredentials(cfg, AllStages())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	for _, name := range []string{"Image API token", "Narration API key", "Narration voice id"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected %q in %v", name, err)
		}
	}
	if strings.Contains(err.Error(), "Photo API key") {
		t.Fatalf("photo key should not be required: %v", err)
	}
}

func TestCheckCredentialsSkippedStages(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
	if err := CheckCredentials(cfg, Stages{Archival: true}); err != nil {
		t.Fatalf("expected no error when only archival runs, got %v", err)
	}
	cfg.Images.APIToken = "tok"
	if err := CheckCredentials(cfg, Stages{Images: true, Thumbnail: true}); err != nil {
		t.Fatalf("expected image stages to pass with token, got %v", err)
	}
}

func TestRunAllReportsDirectoriesAndCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(cfg, AllStages())
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
	if d := CheckCredential("k", "secret").Detail; strings.Contains(d, "secret") {
		t.Fatalf("credential value leaked into detail %q", d)
	}
}

func TestFailedIgnoresOptionalPhotoKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Photos.APIKey = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(cfg, AllStages())
	var photo *Result
	for i := range results {
		if results[i].Name == "Photo API key" {
			photo = &results[i]
		}
	}
	if photo == nil || photo.Passed || !photo.Optional {
		t.Fatalf("expected optional failing photo check, got %+v", photo)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected optional failure to be excluded, got %+v", failed)
	}
}
