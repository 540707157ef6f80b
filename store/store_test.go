package store

import (
	"context"
	"errors"
	"testing"

	"lesson-insights-api/config"
	"lesson-insights-api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

func ensureDB(t *testing.T) *Store {
	t.Helper()
	cfg := config.PostgresConfig{
		Host:     utils.GetEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:     utils.GetEnvOrDefault("POSTGRES_PORT", "5432"),
		User:     utils.GetEnvOrDefault("POSTGRES_USER", "postgres"),
		Password: utils.GetEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
		DBName:   utils.GetEnvOrDefault("POSTGRES_DB", "lesson_insights"),
		SSLMode:  "disable",
	}
	s, err := Open(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Skip("db not available")
	}
	t.Cleanup(func() { s.Close() })
	if err := s.CreateSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func testHash() string {
	// 64 hex chars, unique per test run
	return uuid.NewString()[:8] + "00000000000000000000000000000000000000000000000000000000"
}

func TestSaveAndGet(t *testing.T) {
	s := ensureDB(t)
	ctx := context.Background()

	a := &LessonAnalysis{
		Job:          uuid.NewString(),
		FileName:     "lesson1.webm",
		AudioHash:    testHash(),
		LanguageCode: "en-US",
		Status:       StatusProcessing,
	}
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	a.Status = StatusCompleted
	a.Transcript = "Hello how are you"
	a.Summary = "A greeting."
	a.Insights = "Good fluency."
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.Get(ctx, a.Job)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted || got.Transcript != "Hello how are you" || got.FileName != "lesson1.webm" {
		t.Fatalf("got %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := ensureDB(t)
	if _, err := s.Get(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFindCompletedMatchesHashAndLanguage(t *testing.T) {
	s := ensureDB(t)
	ctx := context.Background()
	hash := testHash()

	failed := &LessonAnalysis{Job: uuid.NewString(), FileName: "a.webm", AudioHash: hash, LanguageCode: "en-US", Status: StatusFailed, Error: "timeout"}
	done := &LessonAnalysis{Job: uuid.NewString(), FileName: "a.webm", AudioHash: hash, LanguageCode: "en-US", Status: StatusCompleted, Summary: "s"}
	for _, a := range []*LessonAnalysis{failed, done} {
		if err := s.Save(ctx, a); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.FindCompleted(ctx, hash, "en-US")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Job != done.Job {
		t.Fatalf("found %s, want %s", got.Job, done.Job)
	}

	if _, err := s.FindCompleted(ctx, hash, "fr-FR"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other language must not match, got %v", err)
	}
}

func TestListOmitsBodies(t *testing.T) {
	s := ensureDB(t)
	ctx := context.Background()

	a := &LessonAnalysis{Job: uuid.NewString(), FileName: "b.webm", AudioHash: testHash(), LanguageCode: "en-GB", Status: StatusCompleted, Transcript: "long text"}
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	list, err := s.List(ctx, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, l := range list {
		if l.Transcript != "" {
			t.Fatalf("list should not carry transcripts: %+v", l)
		}
	}
}
