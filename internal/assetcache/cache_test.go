package assetcache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashIsOrderIndependentAndStable(t *testing.T) {
	a := map[string]any{"prompt": "stage lights", "model": "flux", "width": 1920, "height": 1080}
	b := map[string]any{"height": 1080, "width": 1920, "model": "flux", "prompt": "stage lights"}

	ha, err := Hash(a)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hb, err := Hash(b)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if ha != hb {
		t.Fatalf("expected identical digests, got %s vs %s", ha, hb)
	}
	if len(ha) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(ha))
	}

	c := map[string]any{"prompt": "stage lights!", "model": "flux", "width": 1920, "height": 1080}
	hc, _ := Hash(c)
	if hc == ha {
		t.Fatal("expected different params to produce a different digest")
	}
}

func TestHashNormalizesUnicode(t *testing.T) {
	composed := map[string]any{"prompt": "Caf\u00e9 Wha?"}
	decomposed := map[string]any{"prompt": "Cafe\u0301 Wha?"}
	h1, _ := Hash(composed)
	h2, _ := Hash(decomposed)
	if h1 != h2 {
		t.Fatalf("expected NFC-equivalent prompts to hash equally: %s vs %s", h1, h2)
	}
}

func TestHashRejectsEmptyParams(t *testing.T) {
	if _, err := Hash(nil); err == nil {
		t.Fatal("expected error for empty params")
	}
}

func TestNewKeyValidatesService(t *testing.T) {
	params := map[string]any{"prompt": "x"}
	if _, err := NewKey("../escape", params, "png"); err == nil {
		t.Fatal("expected error for path-like service")
	}
	key, err := NewKey("replicate", params, "PNG")
	if err != nil {
		t.Fatalf("NewKey failed: %v", err)
	}
	if key.Ext != ".png" {
		t.Fatalf("expected normalized extension, got %q", key.Ext)
	}
}

func TestLookupMissingDirectoryIsMiss(t *testing.T) {
	cache, err := New(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	key := mustKey(t, "replicate", "prompt-a")
	if path, hit := cache.Lookup(key); hit || path != "" {
		t.Fatalf("expected miss, got hit=%v path=%q", hit, path)
	}
}

func TestStoreLookupMaterialize(t *testing.T) {
	root := t.TempDir()
	cache, err := New(root, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	key := mustKey(t, "replicate", "prompt-a")
	data := []byte("png-bytes")

	stored, err := cache.Store(key, data)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if stored != filepath.Join(root, "replicate", key.Digest+".png") {
		t.Fatalf("unexpected stored path %q", stored)
	}

	path, hit := cache.Lookup(key)
	if !hit || path != stored {
		t.Fatalf("expected hit at %q, got hit=%v path=%q", stored, hit, path)
	}

	// Re-storing identical bytes is idempotent.
	if _, err := cache.Store(key, data); err != nil {
		t.Fatalf("second Store failed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "episodes", "ep-1", "images", "seg-01-0.png")
	if err := Materialize(path, dest); err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("materialized bytes differ: %q", got)
	}
	cached, _ := os.ReadFile(stored)
	if !bytes.Equal(cached, data) {
		t.Fatal("materialize must not mutate the cache entry")
	}
}

func TestStoreRejectsEmptyBlob(t *testing.T) {
	cache, _ := New(t.TempDir(), nil)
	key := mustKey(t, "replicate", "prompt-a")
	if _, err := cache.Store(key, nil); err == nil {
		t.Fatal("expected error storing empty blob")
	}
	if _, hit := cache.Lookup(key); hit {
		t.Fatal("expected miss after rejected store")
	}
}

func TestZeroLengthBlobIsMiss(t *testing.T) {
	root := t.TempDir()
	cache, _ := New(root, nil)
	key := mustKey(t, "elevenlabs", "text")
	if err := os.MkdirAll(filepath.Join(root, "elevenlabs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cache.Path(key), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit := cache.Lookup(key); hit {
		t.Fatal("expected zero-length blob to be treated as a miss")
	}
}

func TestStatsCountsPerService(t *testing.T) {
	root := t.TempDir()
	cache, _ := New(root, nil)
	for _, prompt := range []string{"a", "b"} {
		if _, err := cache.Store(mustKey(t, "replicate", prompt), []byte("12345")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := cache.Store(mustKey(t, "elevenlabs", "narration"), []byte("123")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "replicate", ".tmp-123"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Entries != 3 || stats.TotalBytes != 13 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if len(stats.Services) != 2 || stats.Services[0].Service != "elevenlabs" || stats.Services[1].Entries != 2 {
		t.Fatalf("unexpected per-service stats: %+v", stats.Services)
	}
}

func TestMaterializeRequiresDestination(t *testing.T) {
	err := Materialize("/nonexistent", " ")
	if err == nil || !strings.Contains(err.Error(), "destination") {
		t.Fatalf("expected destination error, got %v", err)
	}
}

func mustKey(t *testing.T, service, prompt string) Key {
	t.Helper()
	ext := ".png"
	if service == "elevenlabs" {
		ext = ".mp3"
	}
	key, err := NewKey(service, map[string]any{"prompt": prompt}, ext)
	if err != nil {
		t.Fatalf("NewKey failed: %v", err)
	}
	return key
}
