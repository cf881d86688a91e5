package imagegen

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"showreel/internal/assetcache"
	"showreel/internal/generation"
	"showreel/internal/ratelimit"
	"showreel/internal/services"
)

type fakeBackend struct {
	mu       sync.Mutex
	calls    int
	failOn   map[string]error
	version  atomic.Int64
	delay    time.Duration
	inFlight atomic.Int64
	peak     atomic.Int64
	requests []GenerateRequest
}

func (f *fakeBackend) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if cur <= old || f.peak.CompareAndSwap(old, cur) {
			break
		}
	}
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	for needle, err := range f.failOn {
		if strings.Contains(req.Prompt, needle) {
			return nil, err
		}
	}
	return []byte(req.Prompt + "|" + req.Tier.Model() + "|v" + string(rune('0'+f.version.Load()))), nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(t *testing.T, backend Backend, limiter *ratelimit.Limiter) (*Service, string) {
	t.Helper()
	base := t.TempDir()
	cache, err := assetcache.New(filepath.Join(base, "cache"), nil)
	if err != nil {
		t.Fatalf("assetcache.New: %v", err)
	}
	return NewService(backend, cache, limiter), base
}

func item(base string, segment, index int, prompt string, tier Tier) Item {
	key := generation.SegmentKey(segment, index)
	return Item{
		Request: generation.Request{
			Key:         key,
			Prompt:      prompt,
			Destination: filepath.Join(base, "images", key+".png"),
			Segment:     segment,
			PromptIndex: index,
		},
		Tier: tier,
	}
}

func TestGenerateBatchCachesAcrossRuns(t *testing.T) {
	backend := &fakeBackend{}
	limiter := ratelimit.New("replicate", 0)
	svc, base := newTestService(t, backend, limiter)
	items := []Item{item(base, 1, 1, "Marquee lit at night", TierFast)}

	first := svc.GenerateBatch(context.Background(), items, BatchOptions{Concurrency: 1})
	if first[0].Err != nil {
		t.Fatalf("first run failed: %v", first[0].Err)
	}
	if first[0].Cached || first[0].Cost != TierFast.Cost() {
		t.Fatalf("expected uncached fast cost, got %+v", first[0])
	}
	firstBytes, err := os.ReadFile(items[0].Destination)
	if err != nil {
		t.Fatalf("read first output: %v", err)
	}

	second := svc.GenerateBatch(context.Background(), items, BatchOptions{Concurrency: 1})
	if second[0].Err != nil {
		t.Fatalf("second run failed: %v", second[0].Err)
	}
	if !second[0].Cached || second[0].Cost != 0 {
		t.Fatalf("expected cached zero-cost outcome, got %+v", second[0])
	}
	if backend.callCount() != 1 {
		t.Fatalf("expected 1 backend call, got %d", backend.callCount())
	}
	if limiter.Invocations() != 1 {
		t.Fatalf("expected 1 limiter wait, got %d", limiter.Invocations())
	}
	secondBytes, err := os.ReadFile(items[0].Destination)
	if err != nil {
		t.Fatalf("read second output: %v", err)
	}
	if !bytes.Equal(firstBytes, secondBytes) {
		t.Fatal("expected byte-identical content from cache")
	}
	if first[0].Digest == "" || first[0].Digest != second[0].Digest {
		t.Fatalf("expected stable digest, got %q and %q", first[0].Digest, second[0].Digest)
	}
}

func TestGenerateBatchForceBypassesCacheAndRefreshesIt(t *testing.T) {
	backend := &fakeBackend{}
	svc, base := newTestService(t, backend, nil)
	items := []Item{item(base, 1, 1, "Ticket stub on a wooden table", TierQuality)}

	if out := svc.GenerateBatch(context.Background(), items, BatchOptions{Concurrency: 1}); out[0].Err != nil {
		t.Fatalf("seed run failed: %v", out[0].Err)
	}
	backend.version.Store(1)
	forced := svc.GenerateBatch(context.Background(), items, BatchOptions{Concurrency: 1, Force: true})
	if forced[0].Err != nil {
		t.Fatalf("forced run failed: %v", forced[0].Err)
	}
	if forced[0].Cached || forced[0].Cost != TierQuality.Cost() {
		t.Fatalf("expected forced run to be billed, got %+v", forced[0])
	}
	if backend.callCount() != 2 {
		t.Fatalf("expected 2 backend calls, got %d", backend.callCount())
	}

	key, err := svc.CacheKey(items[0].Prompt, TierQuality)
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	cachedPath, ok := svc.cache.Lookup(key)
	if !ok {
		t.Fatal("expected cache entry after forced run")
	}
	cached, err := os.ReadFile(cachedPath)
	if err != nil {
		t.Fatalf("read cache entry: %v", err)
	}
	if !strings.HasSuffix(string(cached), "|v1") {
		t.Fatalf("expected cache to hold newest bytes, got %q", cached)
	}
}

func TestGenerateBatchBoundsConcurrencyAndIsolatesFailures(t *testing.T) {
	backend := &fakeBackend{
		delay:  10 * time.Millisecond,
		failOn: map[string]error{"broken": errors.New("prediction failed")},
	}
	svc, base := newTestService(t, backend, nil)
	var items []Item
	for i := 1; i <= 8; i++ {
		prompt := "Amplifier stack number " + string(rune('0'+i))
		if i == 3 {
			prompt = "broken prompt"
		}
		items = append(items, item(base, i, 1, prompt, TierFast))
	}

	outcomes := svc.GenerateBatch(context.Background(), items, BatchOptions{Concurrency: 3})
	if len(outcomes) != len(items) {
		t.Fatalf("expected %d outcomes, got %d", len(items), len(outcomes))
	}
	if peak := backend.peak.Load(); peak > 3 {
		t.Fatalf("expected peak in-flight <= 3, got %d", peak)
	}
	for i, outcome := range outcomes {
		if outcome.Key != items[i].Key {
			t.Fatalf("outcome %d out of order: %s", i, outcome.Key)
		}
		if i == 2 {
			if outcome.Err == nil || !strings.Contains(outcome.Err.Error(), "image seg-03-1") {
				t.Fatalf("expected ordinal failure for seg-03-1, got %v", outcome.Err)
			}
			if outcome.Cost != 0 {
				t.Fatalf("expected failed outcome to cost nothing, got %v", outcome.Cost)
			}
			continue
		}
		if outcome.Err != nil {
			t.Fatalf("unexpected failure for %s: %v", outcome.Key, outcome.Err)
		}
		if _, err := os.Stat(outcome.Destination); err != nil {
			t.Fatalf("expected materialized file for %s: %v", outcome.Key, err)
		}
	}
}

func TestGenerateBatchRejectsUnknownTier(t *testing.T) {
	backend := &fakeBackend{}
	svc, base := newTestService(t, backend, nil)
	outcomes := svc.GenerateBatch(context.Background(), []Item{item(base, 1, 1, "x", Tier("ultra"))}, BatchOptions{Concurrency: 2})
	if outcomes[0].Err == nil {
		t.Fatal("expected unknown tier error")
	}
	if backend.callCount() != 0 {
		t.Fatalf("expected no backend calls, got %d", backend.callCount())
	}
}

func TestGenerateUsesStyledPromptAndGeometry(t *testing.T) {
	backend := &fakeBackend{}
	svc, _ := newTestService(t, backend, nil)
	img, err := svc.Generate(context.Background(), "Empty stage", TierQuality, Dimensions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if img.Tier != TierQuality || img.Cost != 0.05 {
		t.Fatalf("unexpected image metadata: %+v", img)
	}
	req := backend.requests[0]
	if req.Prompt != StylePrompt("Empty stage") {
		t.Fatalf("expected styled prompt, got %q", req.Prompt)
	}
	if req.Width != 1920 || req.Height != 1080 {
		t.Fatalf("expected 1920x1080, got %dx%d", req.Width, req.Height)
	}
}

func TestCacheKeyDependsOnTier(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{}, nil)
	fast, err := svc.CacheKey("Festival field", TierFast)
	if err != nil {
		t.Fatalf("CacheKey fast: %v", err)
	}
	quality, err := svc.CacheKey("Festival field", TierQuality)
	if err != nil {
		t.Fatalf("CacheKey quality: %v", err)
	}
	if fast.Digest == quality.Digest {
		t.Fatal("expected tier to change the digest")
	}
}

// blockDestination turns path into a non-empty directory so materializing a
// blob there fails.
func blockDestination(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(filepath.Join(path, "occupied"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write placeholder: %v", err)
	}
}

func TestGenerateBatchIsolatesCacheIOFailure(t *testing.T) {
	backend := &fakeBackend{}
	svc, base := newTestService(t, backend, nil)
	items := []Item{
		item(base, 1, 1, "Ticket stub on a wooden table", TierFast),
		item(base, 1, 2, "Crowd spilling onto the quad", TierFast),
	}
	blockDestination(t, items[0].Destination)

	out := svc.GenerateBatch(context.Background(), items, BatchOptions{Concurrency: 2})
	if !errors.Is(out[0].Err, services.ErrCacheIO) {
		t.Fatalf("expected cache io error, got %v", out[0].Err)
	}
	if !strings.Contains(out[0].Err.Error(), "seg-01-1") {
		t.Fatalf("expected item key in error, got %v", out[0].Err)
	}
	if out[0].Cached || out[0].Cost != TierFast.Cost() {
		t.Fatalf("expected billed uncached failure, got %+v", out[0])
	}
	if out[1].Err != nil || out[1].Cost != TierFast.Cost() {
		t.Fatalf("expected sibling to succeed, got %+v", out[1])
	}

	if err := os.RemoveAll(items[0].Destination); err != nil {
		t.Fatalf("clear destination: %v", err)
	}
	again := svc.GenerateBatch(context.Background(), items[:1], BatchOptions{Concurrency: 1})
	if again[0].Err != nil || !again[0].Cached {
		t.Fatalf("expected stored blob to be reused, got %+v", again[0])
	}
	if backend.callCount() != 2 {
		t.Fatalf("expected 2 backend calls, got %d", backend.callCount())
	}
}
