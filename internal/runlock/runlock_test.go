package runlock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireIsExclusivePerEpisode(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir, "ep-1977-05-08")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if first.Path() != filepath.Join(dir, "ep-1977-05-08.lock") {
		t.Fatalf("unexpected lock path %s", first.Path())
	}

	if _, err := Acquire(dir, "ep-1977-05-08"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	other, err := Acquire(dir, "ep-1978-01-01")
	if err != nil {
		t.Fatalf("expected independent episode lock, got %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := Acquire(dir, "ep-1977-05-08")
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	_ = again.Release()
}

func TestAcquireRejectsEmptyID(t *testing.T) {
	if _, err := Acquire(t.TempDir(), " "); err == nil {
		t.Fatal("expected error for empty id")
	}
}
