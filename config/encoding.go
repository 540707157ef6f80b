package config

import (
	"fmt"
	"strings"
)

// AudioEncoding is the closed set of encodings the recognizer accepts.
type AudioEncoding string

const (
	EncodingLinear16            AudioEncoding = "LINEAR16"
	EncodingFLAC                AudioEncoding = "FLAC"
	EncodingMulaw               AudioEncoding = "MULAW"
	EncodingAMR                 AudioEncoding = "AMR"
	EncodingAMRWB               AudioEncoding = "AMR_WB"
	EncodingOggOpus             AudioEncoding = "OGG_OPUS"
	EncodingSpeexWithHeaderByte AudioEncoding = "SPEEX_WITH_HEADER_BYTE"
	EncodingWebmOpus            AudioEncoding = "WEBM_OPUS"
)

var supportedEncodings = []AudioEncoding{
	EncodingLinear16,
	EncodingFLAC,
	EncodingMulaw,
	EncodingAMR,
	EncodingAMRWB,
	EncodingOggOpus,
	EncodingSpeexWithHeaderByte,
	EncodingWebmOpus,
}

// ParseAudioEncoding accepts an encoding name case-insensitively.
func ParseAudioEncoding(s string) (AudioEncoding, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, enc := range supportedEncodings {
		if string(enc) == name {
			return enc, nil
		}
	}
	return "", fmt.Errorf("unsupported audio encoding %q", s)
}
