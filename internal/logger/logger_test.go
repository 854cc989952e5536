package logger

import (
	"errors"
	"testing"
	"time"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("defaults = %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("Timestamp not defaulted on")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: "json"}, false},
		{"pretty format", Config{Level: "info", Format: FormatPretty}, false},
		{"bad level", Config{Level: "verbose", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	m := Fields("provider", "groq", "chunk", 2)
	if m["provider"] != "groq" || m["chunk"] != 2 {
		t.Errorf("Fields = %v", m)
	}

	// Trailing key without a value is dropped.
	m = Fields("provider", "groq", "orphan")
	if _, ok := m["orphan"]; ok {
		t.Errorf("orphan key kept: %v", m)
	}
}

func TestErrorFields(t *testing.T) {
	m := ErrorFields("transcribe", errors.New("boom"))
	if m[FieldOperation] != "transcribe" || m[FieldError] != "boom" {
		t.Errorf("ErrorFields = %v", m)
	}
}

func TestDurationFields(t *testing.T) {
	m := DurationFields("upload", 1500*time.Millisecond)
	if m[FieldDuration] != int64(1500) {
		t.Errorf("DurationFields = %v", m)
	}
}

func TestGetReturnsSameInstance(t *testing.T) {
	a := Get("record")
	b := Get("record")
	if a != b {
		t.Error("Get returned different instances for the same name")
	}
}
