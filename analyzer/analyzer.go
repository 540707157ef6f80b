package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lesson-insights-api/config"
	"lesson-insights-api/llm"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"
)

// Summarizer condenses a transcript with one "stuff" model call over all
// of its chunks.
type Summarizer struct {
	model       llm.Completer
	splitter    textsplitter.RecursiveCharacter
	temperature float32
	logger      *zap.Logger
}

func NewSummarizer(model llm.Completer, splitCfg config.SplitterConfig, temperature float32, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		model: model,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(splitCfg.ChunkSize),
			textsplitter.WithChunkOverlap(splitCfg.ChunkOverlap),
		),
		temperature: temperature,
		logger:      logger,
	}
}

// Split cuts text into overlapping chunks, trying paragraph, line and word
// boundaries before falling back to single characters. The same input always
// yields the same chunks.
func (s *Summarizer) Split(text string) ([]string, error) {
	chunks, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split transcript: %w", err)
	}
	return chunks, nil
}

// Summarize returns the model's summary of text.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	start := time.Now()

	chunks, err := s.Split(text)
	if err != nil {
		return "", err
	}

	s.logger.Info("Summarizing transcript",
		zap.Int("transcript_chars", len(text)),
		zap.Int("chunks", len(chunks)))

	prompt := fmt.Sprintf(summaryPrompt, strings.Join(chunks, chunkSeparator))
	summary, err := s.model.Complete(ctx, llm.Request{Prompt: prompt, Temperature: s.temperature})
	if err != nil {
		s.logger.Error("Summary generation failed", zap.Error(err))
		return "", fmt.Errorf("summarize: %w", err)
	}

	s.logger.Info("Summary generated",
		zap.Int("summary_chars", len(summary)),
		zap.Duration("elapsed", time.Since(start)))

	return summary, nil
}
