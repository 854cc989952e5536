package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/voicetap/internal/app"
	"github.com/kbukum/voicetap/internal/config"
	"github.com/kbukum/voicetap/internal/store"
	"github.com/kbukum/voicetap/internal/transcription"
)

type fakeChain struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (f *fakeChain) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &transcription.Response{Text: f.text, Provider: "groq"}, nil
}

func testServer(t *testing.T, chain app.Transcriber) (*Server, *store.Store) {
	t.Helper()

	cfg := config.Config{}
	cfg.ApplyDefaults()
	cfg.Store.Dir = t.TempDir()

	st, err := store.New(cfg.Store)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	a := app.New(app.Options{Config: cfg, Chain: chain, Store: st})

	return New(Options{App: a, Store: st}), st
}

func doRequest(t *testing.T, s *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, &fakeChain{text: "x"})
	w := doRequest(t, s, http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "ok" {
		t.Errorf("health = %v", body)
	}
}

type fakeProvider struct {
	name      string
	available bool
}

func (f *fakeProvider) Name() string                        { return f.name }
func (f *fakeProvider) IsAvailable(context.Context) bool    { return f.available }
func (f *fakeProvider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	return &transcription.Response{Text: "ok", Provider: f.name}, nil
}

func TestHealthReportsPreferredProvider(t *testing.T) {
	mgr := transcription.NewManager(transcription.WithPriority([]string{"groq", "gemini"}))
	for _, p := range []*fakeProvider{
		{name: "groq", available: false},
		{name: "gemini", available: true},
	} {
		p := p
		mgr.Register(p.name, func(map[string]any) (transcription.Provider, error) { return p, nil })
		if err := mgr.Initialize(p.name, nil); err != nil {
			t.Fatalf("Initialize %s: %v", p.name, err)
		}
	}

	s, _ := testServer(t, &fakeChain{text: "x"})
	s.providers = mgr

	w := doRequest(t, s, http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	// groq outranks gemini but is down, so the selector falls through.
	if body["preferred"] != "gemini" {
		t.Errorf("preferred = %v, want gemini", body["preferred"])
	}
	providers := body["providers"].([]any)
	if len(providers) != 2 {
		t.Errorf("reported %d providers, want 2", len(providers))
	}
}

func TestHealthEchoesRequestID(t *testing.T) {
	s, _ := testServer(t, &fakeChain{text: "x"})
	req := httptest.NewRequest(http.MethodGet, "/v1/recorder", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("X-Request-Id = %q", got)
	}
}

func TestToggleLifecycle(t *testing.T) {
	s, _ := testServer(t, &fakeChain{text: "hello"})

	w := doRequest(t, s, http.MethodPost, "/v1/recorder/toggle", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("toggle start status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]any)
	if data["state"] != "recording" {
		t.Errorf("state = %v, want recording", data["state"])
	}

	w = doRequest(t, s, http.MethodGet, "/v1/recorder", nil, "")
	data = decodeBody(t, w)["data"].(map[string]any)
	if data["state"] != "recording" {
		t.Errorf("status state = %v, want recording", data["state"])
	}

	w = doRequest(t, s, http.MethodPost, "/v1/recorder/toggle", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("toggle stop status = %d: %s", w.Code, w.Body.String())
	}

	// Cancel with nothing active maps the recorder error to a conflict.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w = doRequest(t, s, http.MethodGet, "/v1/recorder", nil, "")
		data = decodeBody(t, w)["data"].(map[string]any)
		if data["transcribing"] != true {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	w = doRequest(t, s, http.MethodPost, "/v1/recorder/cancel", nil, "")
	if w.Code != http.StatusConflict {
		t.Errorf("cancel while idle status = %d, want 409", w.Code)
	}
}

func TestTranscripts(t *testing.T) {
	s, st := testServer(t, &fakeChain{text: "x"})
	for _, text := range []string{"one", "two", "three"} {
		if err := st.Append(store.Entry{Text: text}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	w := doRequest(t, s, http.MethodGet, "/v1/transcripts?limit=2", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := decodeBody(t, w)["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("returned %d entries, want 2", len(data))
	}
	first := data[0].(map[string]any)
	if first["text"] != "three" {
		t.Errorf("first entry = %v, want most recent", first["text"])
	}

	w = doRequest(t, s, http.MethodGet, "/v1/transcripts?limit=zero", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestTranscribeUpload(t *testing.T) {
	chain := &fakeChain{text: "uploaded text"}
	s, _ := testServer(t, chain)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sample.wav")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte("RIFF....WAVE")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	w := doRequest(t, s, http.MethodPost, "/v1/transcriptions", &buf, mw.FormDataContentType())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]any)
	if data["text"] != "uploaded text" {
		t.Errorf("text = %v", data["text"])
	}
	if data["file_name"] != "sample.wav" {
		t.Errorf("file_name = %v", data["file_name"])
	}
}

func TestTranscribeUploadMissingFile(t *testing.T) {
	s, _ := testServer(t, &fakeChain{text: "x"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("model", "whisper-large-v3")
	_ = mw.Close()

	w := doRequest(t, s, http.MethodPost, "/v1/transcriptions", &buf, mw.FormDataContentType())
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	errBody := decodeBody(t, w)["error"].(map[string]any)
	if errBody["code"] != "MISSING_FIELD" {
		t.Errorf("code = %v", errBody["code"])
	}
}
