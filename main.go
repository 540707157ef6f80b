package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"lesson-insights-api/analyzer"
	"lesson-insights-api/apperr"
	"lesson-insights-api/config"
	"lesson-insights-api/llm"
	"lesson-insights-api/pipeline"
	"lesson-insights-api/storage"
	"lesson-insights-api/transcription"
	"lesson-insights-api/utils"

	"go.uber.org/zap"
)

const bannerWidth = 50

type options struct {
	bucket     string
	audioPath  string
	language   string
	noCleanup  bool
	configPath string
	serve      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("lesson-insights-api", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.bucket, "bucket_name", "", "bucket to upload the lesson audio to (required)")
	fs.StringVar(&o.audioPath, "audio_file_path", "", "local path of the lesson recording (required)")
	fs.StringVar(&o.language, "language_code", config.DefaultLanguageCode, "BCP-47 language of the recording")
	fs.BoolVar(&o.noCleanup, "no_cleanup", false, "keep the uploaded audio in the bucket")
	fs.StringVar(&o.configPath, "config", "", "optional YAML configuration file")
	fs.BoolVar(&o.serve, "serve", false, "run the HTTP API and job subscriber instead of a single lesson")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if !o.serve && (o.bucket == "" || o.audioPath == "") {
		fmt.Fprintln(stderr, "--bucket_name and --audio_file_path are required")
		fs.Usage()
		return nil, errors.New("missing required flags")
	}
	return &o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	utils.LoadDotEnv()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}

	logger, err := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(stderr, "cannot initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.serve {
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("Service stopped with error", zap.Error(err))
			return 1
		}
		return 0
	}

	cfg.Storage.Bucket = opts.bucket
	res, err := processLesson(ctx, cfg, logger, pipeline.Request{
		AudioPath:    opts.audioPath,
		LanguageCode: opts.language,
		Cleanup:      !opts.noCleanup && cfg.Pipeline.Cleanup,
	})
	if err != nil {
		logger.Error("Lesson processing failed",
			zap.String("kind", apperr.KindOf(err).String()),
			zap.Error(err))
		return 1
	}

	printResult(stdout, res)
	return 0
}

// processLesson runs a single lesson. The audio file is checked before any
// client is built so a bad path never reaches a remote service.
func processLesson(ctx context.Context, cfg *config.Config, logger *zap.Logger, req pipeline.Request) (*pipeline.Result, error) {
	if err := pipeline.Validate(req.AudioPath); err != nil {
		return nil, err
	}

	p, closeFn, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return p.Process(ctx, req)
}

// buildPipeline wires the four clients from cfg. The returned func releases
// the speech client.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, func(), error) {
	blobs, err := storage.New(ctx, cfg.Storage, cfg.Storage.Bucket, logger.Named("storage"))
	if err != nil {
		return nil, nil, err
	}

	transcriber, err := transcription.New(ctx, cfg.Speech, logger.Named("transcription"))
	if err != nil {
		return nil, nil, err
	}

	model, err := llm.New(ctx, cfg.LLM, logger.Named("llm"))
	if err != nil {
		transcriber.Close()
		return nil, nil, err
	}

	summarizer := analyzer.NewSummarizer(model, cfg.Splitter, cfg.LLM.SummaryTemperature, logger.Named("summarizer"))
	insights := analyzer.NewInsightsAnalyzer(model, cfg.LLM.InsightsTemperature, logger.Named("insights"))

	p := pipeline.New(blobs, transcriber, summarizer, insights, cfg.Pipeline, logger.Named("pipeline"))
	return p, func() { transcriber.Close() }, nil
}

func printResult(w io.Writer, res *pipeline.Result) {
	sections := []struct{ title, body string }{
		{"TRANSCRIPT:", res.Transcript},
		{"SUMMARY:", res.Summary},
		{"ENGLISH LEARNING INSIGHTS:", res.Insights},
	}
	rule := strings.Repeat("=", bannerWidth)
	for _, s := range sections {
		fmt.Fprintf(w, "\n%s\n%s\n%s\n%s\n", rule, s.title, rule, s.body)
	}
}
