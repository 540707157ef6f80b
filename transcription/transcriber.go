package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lesson-insights-api/apperr"
	"lesson-insights-api/config"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var errStillRunning = errors.New("recognition still running")

// operation is a started long-running recognition job.
type operation interface {
	Poll(ctx context.Context) (*speechpb.LongRunningRecognizeResponse, error)
	Done() bool
}

type recognizer interface {
	LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (operation, error)
	Close() error
}

// Transcriber turns stored lesson audio into text with Cloud Speech-to-Text.
type Transcriber struct {
	rec     recognizer
	cfg     config.SpeechConfig
	timeout time.Duration
	logger  *zap.Logger

	initialInterval time.Duration
	maxInterval     time.Duration
}

// New dials the Speech-to-Text API. Credentials come from cfg.CredentialsFile
// or the application default credentials.
func New(ctx context.Context, cfg config.SpeechConfig, logger *zap.Logger) (*Transcriber, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	return NewWithRecognizer(&gcpRecognizer{client: client}, cfg, logger), nil
}

// NewWithRecognizer builds a Transcriber around an existing recognizer.
func NewWithRecognizer(rec recognizer, cfg config.SpeechConfig, logger *zap.Logger) *Transcriber {
	return &Transcriber{
		rec:             rec,
		cfg:             cfg,
		timeout:         cfg.Timeout(),
		logger:          logger,
		initialInterval: 2 * time.Second,
		maxInterval:     30 * time.Second,
	}
}

func (t *Transcriber) Close() error {
	return t.rec.Close()
}

// Transcribe recognizes the audio at uri and returns the first alternative of
// every result segment joined by single spaces, in the order the service
// returned them. An empty languageCode selects the configured default. The
// wait is bounded by the configured timeout; on expiry the job is abandoned.
func (t *Transcriber) Transcribe(ctx context.Context, uri, languageCode string) (string, error) {
	if languageCode == "" {
		languageCode = t.cfg.LanguageCode
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	t.logger.Info("Starting speech recognition",
		zap.String("uri", uri),
		zap.String("language_code", languageCode),
		zap.String("encoding", string(t.cfg.Encoding)),
		zap.Duration("timeout", t.timeout))

	op, err := t.rec.LongRunningRecognize(ctx, t.request(uri, languageCode))
	if err != nil {
		if ctx.Err() != nil {
			return "", apperr.Timeout("transcribe", fmt.Errorf("start recognition: %w", err))
		}
		return "", apperr.Transport("transcribe", fmt.Errorf("start recognition: %w", err))
	}

	resp, err := t.wait(ctx, op)
	if err != nil {
		return "", err
	}

	transcript := joinResults(resp.GetResults())
	t.logger.Info("Speech recognition completed",
		zap.Int("segments", len(resp.GetResults())),
		zap.Int("transcript_chars", len(transcript)),
		zap.Duration("elapsed", time.Since(start)))

	return transcript, nil
}

// wait polls op with exponential backoff until it finishes or ctx expires.
func (t *Transcriber) wait(ctx context.Context, op operation) (*speechpb.LongRunningRecognizeResponse, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.initialInterval
	bo.MaxInterval = t.maxInterval
	bo.MaxElapsedTime = t.timeout

	var resp *speechpb.LongRunningRecognizeResponse
	poll := func() error {
		r, err := op.Poll(ctx)
		if err != nil {
			switch {
			case op.Done():
				return backoff.Permanent(apperr.ServiceResponse("transcribe", fmt.Errorf("recognition failed: %w", err)))
			case ctx.Err() != nil:
				return backoff.Permanent(apperr.Timeout("transcribe", fmt.Errorf("poll recognition: %w", err)))
			default:
				return backoff.Permanent(apperr.Transport("transcribe", fmt.Errorf("poll recognition: %w", err)))
			}
		}
		if !op.Done() {
			t.logger.Debug("Recognition still running")
			return errStillRunning
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(poll, backoff.WithContext(bo, ctx)); err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return nil, err
		}
		return nil, apperr.Timeout("transcribe",
			fmt.Errorf("recognition did not finish within %s: %w", t.timeout, err))
	}

	if resp == nil {
		resp = &speechpb.LongRunningRecognizeResponse{}
	}
	return resp, nil
}

func (t *Transcriber) request(uri, languageCode string) *speechpb.LongRunningRecognizeRequest {
	return &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encodingFor(t.cfg.Encoding),
			SampleRateHertz:            int32(t.cfg.SampleRateHertz),
			LanguageCode:               languageCode,
			EnableAutomaticPunctuation: t.cfg.EnableAutomaticPunctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: uri},
		},
	}
}

// joinResults keeps the top alternative of each segment. Segments without
// alternatives contribute nothing.
func joinResults(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, alts[0].GetTranscript())
	}
	return strings.Join(parts, " ")
}

func encodingFor(enc config.AudioEncoding) speechpb.RecognitionConfig_AudioEncoding {
	switch enc {
	case config.EncodingLinear16:
		return speechpb.RecognitionConfig_LINEAR16
	case config.EncodingFLAC:
		return speechpb.RecognitionConfig_FLAC
	case config.EncodingMulaw:
		return speechpb.RecognitionConfig_MULAW
	case config.EncodingAMR:
		return speechpb.RecognitionConfig_AMR
	case config.EncodingAMRWB:
		return speechpb.RecognitionConfig_AMR_WB
	case config.EncodingOggOpus:
		return speechpb.RecognitionConfig_OGG_OPUS
	case config.EncodingSpeexWithHeaderByte:
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case config.EncodingWebmOpus:
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
