// Package pipeline runs one lesson through upload, transcription, summary,
// insights and cleanup, in that order.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lesson-insights-api/apperr"
	"lesson-insights-api/config"

	"go.uber.org/zap"
)

type BlobStore interface {
	Upload(ctx context.Context, localPath, blobName string) (string, error)
	Delete(ctx context.Context, blobName string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, uri, languageCode string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type InsightsAnalyzer interface {
	Analyze(ctx context.Context, transcript string) (string, error)
}

// Request describes one run. An empty BlobName uses the audio file's basename
// and an empty LanguageCode uses the configured default.
type Request struct {
	AudioPath    string
	BlobName     string
	LanguageCode string
	Cleanup      bool
}

type Result struct {
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
	Insights   string `json:"insights"`
	BlobName   string `json:"blob_name"`
	URI        string `json:"uri"`
}

type Pipeline struct {
	store       BlobStore
	transcriber Transcriber
	summarizer  Summarizer
	analyzer    InsightsAnalyzer
	cfg         config.PipelineConfig
	logger      *zap.Logger
}

func New(store BlobStore, transcriber Transcriber, summarizer Summarizer, analyzer InsightsAnalyzer, cfg config.PipelineConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:       store,
		transcriber: transcriber,
		summarizer:  summarizer,
		analyzer:    analyzer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Process runs every stage or none of the results: any failure aborts the run
// and no partial Result is returned. The uploaded blob is deleted after a
// successful run when req.Cleanup is set. After a failed run it is left in
// the bucket unless cleanup_on_failure is configured.
func (p *Pipeline) Process(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	log := p.logger.With(zap.String("audio_file", req.AudioPath))

	if err := Validate(req.AudioPath); err != nil {
		log.Error("Audio file validation failed", zap.Error(err))
		return nil, err
	}

	blobName := req.BlobName
	if blobName == "" {
		blobName = filepath.Base(req.AudioPath)
	}
	log = log.With(zap.String("blob", blobName))

	log.Info("Uploading audio")
	uri, err := p.store.Upload(ctx, req.AudioPath, blobName)
	if err != nil {
		log.Error("Upload failed", zap.Error(err))
		return nil, fmt.Errorf("upload audio: %w", err)
	}
	log.Info("Audio uploaded", zap.String("uri", uri))

	if p.cfg.CleanupOnFailure && req.Cleanup {
		defer func() {
			if err != nil {
				p.deleteBlob(log, blobName)
			}
		}()
	}

	log.Info("Transcribing audio", zap.String("language_code", req.LanguageCode))
	transcript, err := p.transcriber.Transcribe(ctx, uri, req.LanguageCode)
	if err != nil {
		log.Error("Transcription failed", zap.Error(err))
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}
	log.Info("Transcription finished", zap.Int("transcript_chars", len(transcript)))

	summary, err := p.summarizer.Summarize(ctx, transcript)
	if err != nil {
		log.Error("Summarization failed", zap.Error(err))
		return nil, fmt.Errorf("summarize transcript: %w", err)
	}

	insights, err := p.analyzer.Analyze(ctx, transcript)
	if err != nil {
		log.Error("Insights analysis failed", zap.Error(err))
		return nil, fmt.Errorf("analyze transcript: %w", err)
	}

	if req.Cleanup {
		log.Info("Deleting uploaded audio")
		if err := p.store.Delete(ctx, blobName); err != nil {
			log.Error("Cleanup failed", zap.Error(err))
			return nil, fmt.Errorf("delete uploaded audio: %w", err)
		}
	}

	log.Info("Lesson processed", zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Transcript: transcript,
		Summary:    summary,
		Insights:   insights,
		BlobName:   blobName,
		URI:        uri,
	}, nil
}

// deleteBlob is the failure-path cleanup. It uses a fresh context so a
// cancelled run still releases the blob, and it only logs its own errors.
func (p *Pipeline) deleteBlob(log *zap.Logger, blobName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.store.Delete(ctx, blobName); err != nil {
		log.Warn("Failed to delete uploaded audio after pipeline failure", zap.Error(err))
		return
	}
	log.Info("Deleted uploaded audio after pipeline failure")
}

// Validate checks that path names a readable regular file. Failures are
// validation errors and wrap the underlying fs error.
func Validate(path string) error {
	if path == "" {
		return apperr.Validation("validate", fmt.Errorf("audio file path is empty: %w", os.ErrNotExist))
	}
	f, err := os.Open(path)
	if err != nil {
		return apperr.Validation("validate", fmt.Errorf("audio file %s: %w", path, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return apperr.Validation("validate", fmt.Errorf("audio file %s: %w", path, err))
	}
	if info.IsDir() {
		return apperr.Validation("validate", fmt.Errorf("audio file %s is a directory", path))
	}
	return nil
}
