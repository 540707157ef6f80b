package apperr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"validation", Validation("upload", fs.ErrNotExist), KindValidation},
		{"transport", Transport("put object", errors.New("dial tcp")), KindTransport},
		{"timeout", Timeout("transcribe", context.DeadlineExceeded), KindTimeout},
		{"service response", ServiceResponse("complete", errors.New("empty")), KindServiceResponse},
		{"wrapped", fmt.Errorf("pipeline: %w", Timeout("transcribe", nil)), KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnwrapKeepsSentinels(t *testing.T) {
	err := fmt.Errorf("process: %w", Validation("validate audio", fmt.Errorf("stat lesson.webm: %w", fs.ErrNotExist)))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("errors.Is(err, fs.ErrNotExist) = false, want true")
	}
	if !Is(err, KindValidation) {
		t.Errorf("Is(err, KindValidation) = false, want true")
	}
	if Is(nil, KindValidation) {
		t.Errorf("Is(nil, KindValidation) = true, want false")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Transport("delete object", errors.New("403 forbidden"))
	if got, want := err.Error(), "delete object: 403 forbidden"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got, want := E(KindTimeout, "transcribe", nil).Error(), "transcribe: timeout error"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
