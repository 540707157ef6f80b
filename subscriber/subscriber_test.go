package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lesson-insights-api/apperr"
	"lesson-insights-api/pipeline"
	"lesson-insights-api/store"
	"lesson-insights-api/utils"
	valkeystore "lesson-insights-api/valkey"

	"go.uber.org/zap/zaptest"
)

type fakeBus struct {
	messages []string
	channel  string
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string, fn func(message string)) error {
	b.channel = channel
	for _, m := range b.messages {
		fn(m)
	}
	return context.Canceled
}

type fakeProcessor struct {
	mu   sync.Mutex
	reqs []pipeline.Request
	err  error
}

func (p *fakeProcessor) Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return nil, p.err
	}
	return &pipeline.Result{Transcript: "Hello how are you", Summary: "greeting", Insights: "fluent"}, nil
}

type fakeRepo struct {
	mu      sync.Mutex
	records map[string]store.LessonAnalysis
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[string]store.LessonAnalysis{}}
}

func (r *fakeRepo) Save(ctx context.Context, a *store.LessonAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[a.Job] = *a
	return nil
}

func (r *fakeRepo) FindCompleted(ctx context.Context, hash, lang string) (*store.LessonAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.records {
		if a.AudioHash == hash && a.LanguageCode == lang && a.Status == store.StatusCompleted {
			a := a
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *fakeRepo) get(job string) store.LessonAnalysis {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[job]
}

type fakeCache struct {
	mu   sync.Mutex
	keys map[string]time.Duration
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys == nil {
		c.keys = map[string]time.Duration{}
	}
	c.keys[key] = ttl
	return nil
}

func spoolAudio(t *testing.T, job, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), job+".webm")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("spool: %v", err)
	}
	return path
}

func jobMessage(t *testing.T, j LessonJob) string {
	t.Helper()
	b, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func testOptions() Options {
	return Options{Channel: "lesson_uploaded", DefaultLanguage: "en-US", ResultTTL: 24 * time.Hour}
}

func TestRun_ProcessesJob(t *testing.T) {
	path := spoolAudio(t, "job-1", "audio-one")
	bus := &fakeBus{messages: []string{jobMessage(t, LessonJob{
		Job: "job-1", AudioPath: path, FileName: "lesson1.webm", Cleanup: true,
	})}}
	proc := &fakeProcessor{}
	repo := newFakeRepo()
	cache := &fakeCache{}

	s := New(bus, proc, repo, cache, testOptions(), zaptest.NewLogger(t))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if bus.channel != "lesson_uploaded" {
		t.Fatalf("subscribed to %q", bus.channel)
	}
	if len(proc.reqs) != 1 {
		t.Fatalf("process calls = %d", len(proc.reqs))
	}
	req := proc.reqs[0]
	if req.AudioPath != path || req.LanguageCode != "en-US" || !req.Cleanup {
		t.Fatalf("request = %+v", req)
	}

	rec := repo.get("job-1")
	if rec.Status != store.StatusCompleted || rec.Transcript != "Hello how are you" || rec.FileName != "lesson1.webm" {
		t.Fatalf("record = %+v", rec)
	}
	wantHash, _ := utils.Blake3Hash(strings.NewReader("audio-one"))
	if rec.AudioHash != wantHash {
		t.Fatalf("hash = %q, want %q", rec.AudioHash, wantHash)
	}
	if ttl, ok := cache.keys[valkeystore.LessonKey("job-1")]; !ok || ttl != 24*time.Hour {
		t.Fatalf("cache keys = %v", cache.keys)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("spooled file should be removed, stat err = %v", err)
	}
}

func TestRun_ReusesCompletedAnalysis(t *testing.T) {
	path := spoolAudio(t, "job-2", "same audio")
	hash, err := utils.Blake3HashFile(path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	repo := newFakeRepo()
	repo.records["job-0"] = store.LessonAnalysis{
		Job: "job-0", AudioHash: hash, LanguageCode: "en-US", Status: store.StatusCompleted,
		Transcript: "earlier transcript", Summary: "earlier summary", Insights: "earlier insights",
	}
	bus := &fakeBus{messages: []string{jobMessage(t, LessonJob{Job: "job-2", AudioPath: path, LanguageCode: "en-US"})}}
	proc := &fakeProcessor{}

	s := New(bus, proc, repo, &fakeCache{}, testOptions(), zaptest.NewLogger(t))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(proc.reqs) != 0 {
		t.Fatalf("pipeline should not run for duplicate audio, got %d calls", len(proc.reqs))
	}
	rec := repo.get("job-2")
	if rec.Status != store.StatusCompleted || rec.Transcript != "earlier transcript" || rec.Insights != "earlier insights" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestRun_RecordsFailure(t *testing.T) {
	path := spoolAudio(t, "job-3", "audio-three")
	bus := &fakeBus{messages: []string{jobMessage(t, LessonJob{Job: "job-3", AudioPath: path})}}
	proc := &fakeProcessor{err: apperr.Timeout("transcribe", context.DeadlineExceeded)}
	repo := newFakeRepo()

	s := New(bus, proc, repo, &fakeCache{}, testOptions(), zaptest.NewLogger(t))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	rec := repo.get("job-3")
	if rec.Status != store.StatusFailed || rec.Error == "" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestRun_IgnoresBadPayloads(t *testing.T) {
	bus := &fakeBus{messages: []string{"", "not json", `{"job":"x"}`}}
	proc := &fakeProcessor{}
	repo := newFakeRepo()

	s := New(bus, proc, repo, &fakeCache{}, testOptions(), zaptest.NewLogger(t))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(proc.reqs) != 0 || len(repo.records) != 0 {
		t.Fatalf("bad payloads must be dropped: reqs=%d records=%d", len(proc.reqs), len(repo.records))
	}
}
