package analyzer

import (
	"context"
	"fmt"
	"time"

	"lesson-insights-api/llm"

	"go.uber.org/zap"
)

// InsightsAnalyzer reviews a whole transcript as an English tutor would.
// The transcript is sent without truncation and the answer is returned verbatim.
type InsightsAnalyzer struct {
	model       llm.Completer
	temperature float32
	logger      *zap.Logger
}

func NewInsightsAnalyzer(model llm.Completer, temperature float32, logger *zap.Logger) *InsightsAnalyzer {
	return &InsightsAnalyzer{model: model, temperature: temperature, logger: logger}
}

func (a *InsightsAnalyzer) Analyze(ctx context.Context, transcript string) (string, error) {
	start := time.Now()
	a.logger.Info("Analyzing transcript for learning insights", zap.Int("transcript_chars", len(transcript)))

	insights, err := a.model.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(insightsPrompt, transcript),
		Temperature: a.temperature,
	})
	if err != nil {
		a.logger.Error("Insights generation failed", zap.Error(err))
		return "", fmt.Errorf("analyze transcript: %w", err)
	}

	a.logger.Info("Insights generated",
		zap.Int("insights_chars", len(insights)),
		zap.Duration("elapsed", time.Since(start)))

	return insights, nil
}
