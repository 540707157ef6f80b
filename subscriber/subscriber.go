package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"lesson-insights-api/pipeline"
	"lesson-insights-api/store"
	"lesson-insights-api/utils"
	valkeystore "lesson-insights-api/valkey"

	"go.uber.org/zap"
)

// LessonJob is the payload published on the lesson channel after an upload.
type LessonJob struct {
	Job          string `json:"job"`
	AudioPath    string `json:"audio_path"`
	FileName     string `json:"file_name"`
	LanguageCode string `json:"language_code"`
	Cleanup      bool   `json:"cleanup"`
}

type Bus interface {
	Subscribe(ctx context.Context, channel string, fn func(message string)) error
}

type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type Repository interface {
	Save(ctx context.Context, a *store.LessonAnalysis) error
	FindCompleted(ctx context.Context, audioHash, languageCode string) (*store.LessonAnalysis, error)
}

type Cache interface {
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

type Options struct {
	Channel         string
	DefaultLanguage string
	ResultTTL       time.Duration
}

// Subscriber runs one pipeline per received job, each in its own goroutine.
type Subscriber struct {
	bus    Bus
	proc   Processor
	repo   Repository
	cache  Cache
	opts   Options
	logger *zap.Logger
	wg     sync.WaitGroup
}

func New(bus Bus, proc Processor, repo Repository, cache Cache, opts Options, logger *zap.Logger) *Subscriber {
	return &Subscriber{bus: bus, proc: proc, repo: repo, cache: cache, opts: opts, logger: logger}
}

// Run blocks until ctx is done, then waits for in-flight jobs.
func (s *Subscriber) Run(ctx context.Context) error {
	sugar := s.logger.Sugar()
	sugar.Infow("Message subscriber started",
		"channel", s.opts.Channel)

	err := s.bus.Subscribe(ctx, s.opts.Channel, func(message string) {
		s.dispatch(ctx, message)
	})

	s.wg.Wait()
	sugar.Infow("Message subscriber stopped",
		"channel", s.opts.Channel)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Subscriber) dispatch(ctx context.Context, message string) {
	sugar := s.logger.Sugar()

	if strings.TrimSpace(message) == "" {
		sugar.Warn("Received empty message from pub/sub")
		return
	}

	var job LessonJob
	if err := json.Unmarshal([]byte(message), &job); err != nil {
		sugar.Errorw("Job payload is not valid JSON",
			"error", err)
		return
	}
	if job.Job == "" || job.AudioPath == "" {
		sugar.Errorw("Job payload is missing job or audio_path",
			"job", job.Job)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(ctx, job)
	}()
}

// process runs a single job and records the outcome in the repository and
// the cache. The spooled audio file is removed afterwards.
func (s *Subscriber) process(ctx context.Context, job LessonJob) {
	sugar := s.logger.Sugar().With("job", job.Job)
	defer s.removeSpool(job.AudioPath)

	if job.LanguageCode == "" {
		job.LanguageCode = s.opts.DefaultLanguage
	}

	rec := &store.LessonAnalysis{
		Job:          job.Job,
		FileName:     job.FileName,
		LanguageCode: job.LanguageCode,
		Status:       store.StatusProcessing,
	}

	hash, err := utils.Blake3HashFile(job.AudioPath)
	if err != nil {
		sugar.Errorw("Audio hashing failed",
			"error", err)
		s.finish(ctx, rec, nil, err)
		return
	}
	rec.AudioHash = hash

	if err := s.repo.Save(ctx, rec); err != nil {
		sugar.Errorw("Result storage failed",
			"error", err)
	}

	prior, err := s.repo.FindCompleted(ctx, hash, job.LanguageCode)
	switch {
	case err == nil:
		sugar.Infow("Reusing analysis of identical audio",
			"source_job", prior.Job)
		utils.LessonsDeduplicated.Add(1)
		s.finish(ctx, rec, &pipeline.Result{
			Transcript: prior.Transcript,
			Summary:    prior.Summary,
			Insights:   prior.Insights,
		}, nil)
		return
	case !errors.Is(err, store.ErrNotFound):
		sugar.Warnw("Duplicate lookup failed, processing anyway",
			"error", err)
	}

	sugar.Info("Processing lesson analysis request")
	res, err := s.proc.Process(ctx, pipeline.Request{
		AudioPath:    job.AudioPath,
		LanguageCode: job.LanguageCode,
		Cleanup:      job.Cleanup,
	})
	if err != nil {
		sugar.Errorw("Analysis process failed",
			"error", err)
	}
	s.finish(ctx, rec, res, err)
}

func (s *Subscriber) finish(ctx context.Context, rec *store.LessonAnalysis, res *pipeline.Result, procErr error) {
	sugar := s.logger.Sugar().With("job", rec.Job)

	if procErr != nil {
		rec.Status = store.StatusFailed
		rec.Error = procErr.Error()
		utils.LessonsFailed.Add(1)
	} else {
		rec.Status = store.StatusCompleted
		rec.Transcript = res.Transcript
		rec.Summary = res.Summary
		rec.Insights = res.Insights
		utils.LessonsProcessed.Add(1)
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		sugar.Errorw("Result storage failed",
			"error", err)
	}
	if err := s.cache.SetJSON(ctx, valkeystore.LessonKey(rec.Job), rec, s.opts.ResultTTL); err != nil {
		sugar.Errorw("Cache storage failed",
			"error", err)
	}

	sugar.Infow("Lesson analysis finished",
		"status", rec.Status)
}

func (s *Subscriber) removeSpool(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Sugar().Warnw("Failed to remove spooled audio",
			"path", path,
			"error", err)
	}
}
