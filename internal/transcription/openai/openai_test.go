package openai

import (
	"context"
	"errors"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/transcription"
)

func apiError(status int) error {
	return &goopenai.APIError{HTTPStatusCode: status, Message: "api error"}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.ErrorCode
	}{
		{"unauthorized", apiError(401), apperr.ErrCodeInvalidAPIKey},
		{"forbidden", apiError(403), apperr.ErrCodeInvalidAPIKey},
		{"rate limited", apiError(429), apperr.ErrCodeRateLimited},
		{"server error", apiError(500), apperr.ErrCodeServiceUnavailable},
		{"bad request", apiError(400), apperr.ErrCodeInvalidInput},
		{"network", errors.New("dial tcp: refused"), apperr.ErrCodeConnectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.CodeOf(classify(tt.err)); got != tt.want {
				t.Errorf("classify(%v) code = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyPassesContextErrors(t *testing.T) {
	if err := classify(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("classify(context.Canceled) = %v", err)
	}
}

func TestAvailability(t *testing.T) {
	if New(Config{}).IsAvailable(context.Background()) {
		t.Error("provider without key reports available")
	}
	if !New(Config{APIKey: "sk-test"}).IsAvailable(context.Background()) {
		t.Error("provider with key reports unavailable")
	}
}

func TestTranscribeWithoutKey(t *testing.T) {
	_, err := New(Config{}).Transcribe(context.Background(), transcription.Request{AudioPath: "ignored.wav"})
	if apperr.CodeOf(err) != apperr.ErrCodeProviderNotConfigured {
		t.Errorf("error = %v, want PROVIDER_NOT_CONFIGURED", err)
	}
}
