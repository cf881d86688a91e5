package narration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"showreel/internal/assetcache"
	"showreel/internal/ratelimit"
	"showreel/internal/services"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3:" + text), nil
}

func newService(t *testing.T, synth Synthesizer, limiter *ratelimit.Limiter) (*Service, string) {
	t.Helper()
	base := t.TempDir()
	cache, err := assetcache.New(filepath.Join(base, "cache"), nil)
	if err != nil {
		t.Fatalf("assetcache.New: %v", err)
	}
	return NewService(synth, cache, limiter, Voice{ID: "voice-1", Model: "eleven_multilingual_v2"}, nil), base
}

func TestGenerateCachesNarration(t *testing.T) {
	synth := &fakeSynth{}
	limiter := ratelimit.New("elevenlabs", 0)
	svc, base := newService(t, synth, limiter)
	req := Request{Text: "Barton Hall, Ithaca.", Destination: filepath.Join(base, "narration", "narration.mp3")}

	first := svc.Generate(context.Background(), req, false)
	if first.Err != nil {
		t.Fatalf("first Generate: %v", first.Err)
	}
	if first.Cached || first.Cost != Cost(req.Text) {
		t.Fatalf("expected billed outcome, got %+v", first)
	}
	second := svc.Generate(context.Background(), req, false)
	if second.Err != nil || !second.Cached || second.Cost != 0 {
		t.Fatalf("expected cached outcome, got %+v", second)
	}
	if synth.calls != 1 || limiter.Invocations() != 1 {
		t.Fatalf("expected one backend call and one wait, got calls=%d waits=%d", synth.calls, limiter.Invocations())
	}
	data, err := os.ReadFile(req.Destination)
	if err != nil {
		t.Fatalf("read narration: %v", err)
	}
	if string(data) != "mp3:"+req.Text {
		t.Fatalf("unexpected narration bytes %q", data)
	}

	forced := svc.Generate(context.Background(), req, true)
	if forced.Err != nil || forced.Cached || synth.calls != 2 {
		t.Fatalf("expected forced regeneration, got %+v calls=%d", forced, synth.calls)
	}
}

func TestGenerateCapturesBackendFailure(t *testing.T) {
	synth := &fakeSynth{err: errors.New("quota exceeded")}
	svc, base := newService(t, synth, nil)
	out := svc.Generate(context.Background(), Request{Text: "hello", Destination: filepath.Join(base, "n.mp3")}, false)
	if out.Err == nil || out.Cost != 0 {
		t.Fatalf("expected failed zero-cost outcome, got %+v", out)
	}
	if out.Key != "narration" {
		t.Fatalf("expected default key, got %q", out.Key)
	}
}

func TestCost(t *testing.T) {
	if got := Cost("abcd"); got != 0.0012 {
		t.Fatalf("expected 0.0012, got %v", got)
	}
	if got := Cost("  héllo  "); got != 0.0015 {
		t.Fatalf("expected rune-based count 0.0015, got %v", got)
	}
}

func TestCacheKeyDependsOnVoice(t *testing.T) {
	svc, _ := newService(t, &fakeSynth{}, nil)
	a, err := svc.CacheKey("same text")
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	svc.voice.ID = "voice-2"
	b, err := svc.CacheKey("same text")
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	if a.Digest == b.Digest {
		t.Fatal("expected voice to change the digest")
	}
}

func TestGenerateReportsCacheIOFailureWithSpend(t *testing.T) {
	synth := &fakeSynth{}
	svc, base := newService(t, synth, ratelimit.New("elevenlabs", 0))
	dest := filepath.Join(base, "narration", "narration.mp3")
	if err := os.MkdirAll(filepath.Join(dest, "occupied"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	req := Request{Text: "The tapes circulated for decades.", Destination: dest}

	outcome := svc.Generate(context.Background(), req, false)
	if !errors.Is(outcome.Err, services.ErrCacheIO) {
		t.Fatalf("expected cache io error, got %v", outcome.Err)
	}
	if outcome.Cached || outcome.Cost != Cost(req.Text) {
		t.Fatalf("expected billed uncached failure, got %+v", outcome)
	}

	if err := os.RemoveAll(dest); err != nil {
		t.Fatalf("clear destination: %v", err)
	}
	retry := svc.Generate(context.Background(), req, false)
	if retry.Err != nil || !retry.Cached || synth.calls != 1 {
		t.Fatalf("expected stored audio reuse, got %+v (calls=%d)", retry, synth.calls)
	}
}
