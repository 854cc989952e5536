// Package app orchestrates the dictation flow: the recording toggle, the
// chunk transcription pipeline, clipboard delivery, and history.
package app

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/voicetap/internal/clipboard"
	"github.com/kbukum/voicetap/internal/config"
	"github.com/kbukum/voicetap/internal/logger"
	"github.com/kbukum/voicetap/internal/record"
	"github.com/kbukum/voicetap/internal/store"
	"github.com/kbukum/voicetap/internal/transcription"
)

// Transcriber is the part of the fallback chain the pipeline needs.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error)
}

// Options wires the application together.
type Options struct {
	Config    config.Config
	Source    record.Source
	Chain     Transcriber
	Clipboard clipboard.Writer
	Store     *store.Store
}

// Status is a snapshot of the session state.
type Status struct {
	State          string    `json:"state"`
	Transcribing   bool      `json:"transcribing"`
	LastTranscript string    `json:"last_transcript,omitempty"`
	LastProvider   string    `json:"last_provider,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// App owns one recorder and runs the transcription pipeline when a recording
// finishes. Exactly one recording and one pipeline run at a time.
type App struct {
	cfg   config.Config
	rec   *record.Recorder
	clip  clipboard.Writer
	st    *store.Store
	log   *logger.Logger
	wg    sync.WaitGroup

	// chunkMu guards only the sealed-chunk list. The recorder delivers the
	// final chunk while Toggle holds mu, so the list needs its own lock.
	chunkMu sync.Mutex
	chunks  []string

	mu           sync.Mutex
	chain        Transcriber
	transcribing bool
	lastText     string
	lastProvider string
	lastErr      error
	updatedAt    time.Time
}

// New assembles the app and its recorder.
func New(opts Options) *App {
	a := &App{
		cfg:   opts.Config,
		clip:  opts.Clipboard,
		st:    opts.Store,
		chain: opts.Chain,
		log:   logger.Get("app"),
	}
	a.rec = record.New(opts.Config.RecorderConfig(), opts.Source, record.Hooks{
		OnChunk:          a.onChunk,
		OnSilenceWarning: a.onSilenceWarning,
		OnAutoFinish:     a.onAutoFinish,
	})
	return a
}

// Recorder exposes the recorder for the capture loop runner.
func (a *App) Recorder() *record.Recorder { return a.rec }

// Run drives the capture loop until ctx is done, then waits for any
// in-flight pipeline run to finish.
func (a *App) Run(ctx context.Context) error {
	err := a.rec.Run(ctx)
	a.wg.Wait()
	return err
}

// Toggle flips between idle and recording. Stopping hands the recorded
// chunks to the pipeline asynchronously and returns immediately.
func (a *App) Toggle() (Status, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rec.State() == record.StateIdle {
		// An auto-finish that raced this toggle can leave sealed chunks from
		// the previous session behind. They hold recorded audio, keep them.
		a.salvageAsync(a.takeChunks())
		if err := a.rec.Start(); err != nil {
			return a.statusLocked(), err
		}
		a.updatedAt = time.Now()
		return a.statusLocked(), nil
	}

	res, err := a.rec.Stop()
	if err != nil {
		if res.Err != nil {
			a.finishLocked(res)
		}
		return a.statusLocked(), err
	}
	a.finishLocked(res)
	return a.statusLocked(), nil
}

// Cancel discards the active recording and any sealed chunks.
func (a *App) Cancel() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.rec.Cancel(); err != nil {
		return err
	}
	a.removeFiles(a.takeChunks())
	a.updatedAt = time.Now()
	return nil
}

// Status returns the current session snapshot.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusLocked()
}

// Transcribe runs a single file through the fallback chain without touching
// the recorder. Used by the one-shot CLI mode and the upload endpoint.
func (a *App) Transcribe(ctx context.Context, audioPath string) (*transcription.Response, error) {
	a.mu.Lock()
	chain := a.chain
	language := a.cfg.Language
	a.mu.Unlock()
	return chain.Transcribe(ctx, transcription.Request{AudioPath: audioPath, Language: language})
}

// Reload applies the hot-reloadable configuration: the provider chain order
// and the VAD tuning. Audio geometry changes require a restart.
func (a *App) Reload(cfg config.Config) {
	mgr, err := NewProviderManager(cfg)
	if err != nil {
		a.log.Warn("provider reload failed", logger.ErrorFields("reload", err))
		return
	}
	chain := BuildChain(cfg, mgr)

	a.mu.Lock()
	a.cfg.Provider = cfg.Provider
	a.cfg.FallbackOrder = cfg.FallbackOrder
	a.cfg.Language = cfg.Language
	a.cfg.VAD = cfg.VAD
	a.chain = chain
	a.mu.Unlock()

	rc := cfg.RecorderConfig()
	a.rec.SetVAD(rc.VADEnabled, rc.VAD)
	a.log.Info("configuration applied", logger.Fields("order", strings.Join(cfg.ChainOrder(), ",")))
}

func (a *App) statusLocked() Status {
	st := Status{
		State:          a.rec.State().String(),
		Transcribing:   a.transcribing,
		LastTranscript: a.lastText,
		LastProvider:   a.lastProvider,
		UpdatedAt:      a.updatedAt,
	}
	if a.lastErr != nil {
		st.LastError = a.lastErr.Error()
	}
	return st
}

func (a *App) onChunk(path string, index int) {
	a.chunkMu.Lock()
	a.chunks = append(a.chunks, path)
	a.chunkMu.Unlock()
}

// takeChunks drains the sealed-chunk list.
func (a *App) takeChunks() []string {
	a.chunkMu.Lock()
	defer a.chunkMu.Unlock()
	chunks := a.chunks
	a.chunks = nil
	return chunks
}

func (a *App) onSilenceWarning() {
	a.log.Warn("no speech detected, check the microphone")
}

func (a *App) onAutoFinish(res record.Result) {
	a.mu.Lock()
	a.finishLocked(res)
	a.mu.Unlock()
}

// finishLocked routes a finished recording into the async pipeline.
func (a *App) finishLocked(res record.Result) {
	chunks := a.takeChunks()
	a.updatedAt = time.Now()

	if res.Err != nil {
		a.lastErr = res.Err
		a.log.Error("recording failed", logger.ErrorFields("record", res.Err))
		a.salvageAsync(chunks)
		return
	}
	if res.Canceled || res.Silent {
		if res.Silent {
			a.log.Info("recording discarded", logger.Fields("reason", "silence"))
		}
		a.removeFiles(chunks)
		return
	}
	if len(chunks) == 0 {
		return
	}

	a.transcribing = true
	a.wg.Add(1)
	go a.pipeline(chunks, res)
}

// pipeline transcribes each chunk in order, joins the texts, delivers to the
// clipboard, and appends history. Runs outside the lock.
func (a *App) pipeline(chunks []string, res record.Result) {
	defer a.wg.Done()

	a.mu.Lock()
	chain := a.chain
	language := a.cfg.Language
	a.mu.Unlock()

	ctx := context.Background()
	start := time.Now()
	texts := make([]string, 0, len(chunks))
	var provider string

	for i, path := range chunks {
		resp, err := chain.Transcribe(ctx, transcription.Request{AudioPath: path, Language: language})
		if err != nil {
			a.log.Error("transcription failed", logger.ErrorFields("transcribe", err))
			a.salvage(chunks[i:])
			a.setResult("", provider, err)
			return
		}
		texts = append(texts, strings.TrimSpace(resp.Text))
		provider = resp.Provider
		_ = os.Remove(path)
		a.log.Debug("chunk transcribed", logger.Fields(
			logger.FieldProvider, provider, logger.FieldChunk, i))
	}

	text := joinTexts(texts)
	if text == "" {
		a.setResult("", provider, nil)
		return
	}

	if a.cfg.Clipboard.Enabled && a.clip != nil {
		if err := a.clip.Write(text); err != nil {
			// Headless session or missing clipboard backend. The transcript
			// still lands in history.
			a.log.Warn("clipboard write failed", logger.ErrorFields("clipboard", err))
		}
	}

	if a.st != nil {
		err := a.st.Append(store.Entry{
			Text:            text,
			Provider:        provider,
			Language:        language,
			DurationSeconds: res.Duration.Seconds(),
			Chunks:          len(chunks),
		})
		if err != nil {
			a.log.Warn("history append failed", logger.ErrorFields("store", err))
		}
	}

	a.setResult(text, provider, nil)
	a.log.Info("transcript ready", logger.Fields(
		logger.FieldProvider, provider,
		"chars", len(text),
		logger.FieldDuration, time.Since(start).Milliseconds()))
}

func (a *App) setResult(text, provider string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcribing = false
	a.lastErr = err
	a.updatedAt = time.Now()
	if err == nil && text != "" {
		a.lastText = text
		a.lastProvider = provider
	}
}

// salvageAsync moves chunks aside without blocking the capture loop.
func (a *App) salvageAsync(chunks []string) {
	if len(chunks) == 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.salvage(chunks)
	}()
}

func (a *App) salvage(chunks []string) {
	for _, path := range chunks {
		if a.st == nil {
			_ = os.Remove(path)
			continue
		}
		if _, err := a.st.Salvage(path); err != nil {
			a.log.Warn("salvage failed", logger.ErrorFields("salvage", err))
		}
	}
}

func (a *App) removeFiles(paths []string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}

// joinTexts concatenates chunk transcripts, dropping empties.
func joinTexts(texts []string) string {
	parts := texts[:0]
	for _, t := range texts {
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
