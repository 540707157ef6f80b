package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"lesson-insights-api/pipeline"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--bucket_name", "test-bucket", "--audio_file_path", "lesson1.webm", "--no_cleanup"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.bucket != "test-bucket" || opts.audioPath != "lesson1.webm" || opts.language != "en-US" || !opts.noCleanup {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestParseFlags_ServeNeedsNoLessonFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--serve"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !opts.serve {
		t.Fatal("serve not set")
	}
}

func TestRun_UsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--audio_file_path", "lesson1.webm"},
		{"--bucket_name", "test-bucket"},
		{"--unknown"},
	} {
		var stderr bytes.Buffer
		if code := run(args, io.Discard, &stderr); code != 2 {
			t.Errorf("run(%v) = %d, want 2", args, code)
		}
	}
}

func TestRun_MissingAudioFileExitsOne(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	missing := filepath.Join(t.TempDir(), "missing.webm")

	var stdout bytes.Buffer
	code := run([]string{"--bucket_name", "test-bucket", "--audio_file_path", missing}, &stdout, io.Discard)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("nothing should be printed on failure, got %q", stdout.String())
	}
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, &pipeline.Result{Transcript: "Hello how are you", Summary: "A greeting.", Insights: "Good."})

	got := out.String()
	rule := strings.Repeat("=", 50)
	for _, want := range []string{
		rule + "\nTRANSCRIPT:\n" + rule + "\nHello how are you\n",
		rule + "\nSUMMARY:\n" + rule + "\nA greeting.\n",
		rule + "\nENGLISH LEARNING INSIGHTS:\n" + rule + "\nGood.\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "TRANSCRIPT:") > strings.Index(got, "SUMMARY:") ||
		strings.Index(got, "SUMMARY:") > strings.Index(got, "ENGLISH LEARNING INSIGHTS:") {
		t.Fatalf("sections out of order:\n%s", got)
	}
}
