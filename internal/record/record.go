// Package record implements the microphone recorder: a single-session state
// machine that streams captured frames to temp WAV files, seals fixed-duration
// chunks during long recordings, and feeds voice activity detection.
package record

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/voicetap/internal/apperr"
	"github.com/kbukum/voicetap/internal/logger"
	"github.com/kbukum/voicetap/internal/vad"
)

// State represents recorder state.
type State int

const (
	// StateIdle means no recording is in progress.
	StateIdle State = iota
	// StateRecording means frames are being captured to a chunk.
	StateRecording
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	default:
		return "unknown"
	}
}

// Config configures the recorder.
type Config struct {
	SampleRate      int           `yaml:"sample_rate" mapstructure:"sample_rate"`
	Channels        int           `yaml:"channels" mapstructure:"channels"`
	FramesPerBuffer int           `yaml:"frames_per_buffer" mapstructure:"frames_per_buffer"`
	PreRoll         time.Duration `yaml:"pre_roll" mapstructure:"pre_roll"`
	MaxChunk        time.Duration `yaml:"max_chunk" mapstructure:"max_chunk"`
	ChunkOverlap    time.Duration `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	MaxDuration     time.Duration `yaml:"max_duration" mapstructure:"max_duration"`

	// TempDir is where in-progress WAV files are written.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`

	// VADEnabled turns on silence detection and auto-abort.
	VADEnabled bool `yaml:"vad_enabled" mapstructure:"vad_enabled"`
	// VAD configures the silence detector.
	VAD vad.Config `yaml:"vad" mapstructure:"vad"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.FramesPerBuffer <= 0 {
		c.FramesPerBuffer = 1024
	}
	if c.PreRoll < 0 {
		c.PreRoll = 0
	} else if c.PreRoll == 0 {
		c.PreRoll = 500 * time.Millisecond
	}
	if c.MaxChunk <= 0 {
		c.MaxChunk = 7 * time.Minute
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = time.Second
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 30 * time.Minute
	}
}

// frameDuration returns the wall time covered by one frame.
func (c *Config) frameDuration() time.Duration {
	return time.Duration(c.FramesPerBuffer) * time.Second / time.Duration(c.SampleRate)
}

// framesFor converts a duration into a frame count, rounding down.
func (c *Config) framesFor(d time.Duration) int {
	fd := c.frameDuration()
	if fd <= 0 {
		return 0
	}
	return int(d / fd)
}

// Result describes how a recording session ended.
type Result struct {
	// Chunks is the number of sealed WAV chunks handed to OnChunk.
	Chunks int
	// Duration is the recorded wall time.
	Duration time.Duration
	// Canceled means the audio was discarded on user request.
	Canceled bool
	// Silent means the session was auto-aborted or discarded because no
	// speech was ever detected.
	Silent bool
	// Err is set when the session ended because of a capture failure.
	Err error
}

// Hooks receive recorder events. Callbacks run on the recorder's goroutines
// and must not call back into the Recorder.
type Hooks struct {
	// OnChunk is called for every sealed WAV chunk, in order.
	OnChunk func(path string, index int)
	// OnSilenceWarning is called once when the session looks silent.
	OnSilenceWarning func()
	// OnAutoFinish is called when the session ends without a Stop or Cancel
	// call: silence abort, max duration reached, or capture failure.
	OnAutoFinish func(Result)
}

// Recorder manages one recording session at a time over a capture Source.
// Run drives the capture loop; Start, Stop, and Cancel are safe to call from
// other goroutines while Run is active.
type Recorder struct {
	cfg   Config
	src   Source
	hooks Hooks
	log   *logger.Logger

	mu         sync.Mutex
	state      State
	writer     *chunkWriter
	det        *vad.Detector
	preroll    [][]int16
	overlap    [][]int16
	chunkIndex int
	startedAt  time.Time
}

// New creates a recorder over the given source.
func New(cfg Config, src Source, hooks Hooks) *Recorder {
	cfg.ApplyDefaults()
	return &Recorder{
		cfg:   cfg,
		src:   src,
		hooks: hooks,
		log:   logger.Get("record"),
	}
}

// State returns the current recorder state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetVAD updates the silence detection settings. The change applies to the
// next recording session; an active session keeps its detector.
func (r *Recorder) SetVAD(enabled bool, cfg vad.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.VADEnabled = enabled
	r.cfg.VAD = cfg
}

// Run opens the source and drives the capture loop until ctx is done.
// While idle, frames feed the pre-roll buffer; while recording they are
// written to the active chunk. Returns nil on clean shutdown.
func (r *Recorder) Run(ctx context.Context) error {
	if err := r.src.Start(); err != nil {
		return apperr.AudioDevice("open input device", err)
	}
	defer func() { _ = r.src.Close() }()

	r.log.Info("capture loop started", logger.Fields(
		"sample_rate", r.cfg.SampleRate, "frames_per_buffer", r.cfg.FramesPerBuffer))

	for {
		if ctx.Err() != nil {
			r.shutdown()
			return nil
		}

		frame, err := r.src.Read()
		if err != nil {
			devErr := apperr.AudioDevice("read input stream", err)
			r.failSession(devErr)
			return devErr
		}

		r.handleFrame(frame, time.Now())
	}
}

// Start begins a new recording session. The active chunk is seeded with the
// pre-roll audio captured while idle.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return apperr.RecorderBusy()
	}

	w, err := newChunkWriter(r.cfg.TempDir, r.cfg.SampleRate, r.cfg.Channels)
	if err != nil {
		return apperr.AudioDevice("create temp wav", err)
	}
	for _, f := range r.preroll {
		if err := w.Write(f); err != nil {
			w.Abort()
			return apperr.AudioDevice("write pre-roll", err)
		}
	}

	now := time.Now()
	r.writer = w
	r.chunkIndex = 0
	r.overlap = r.overlap[:0]
	r.startedAt = now
	if r.cfg.VADEnabled {
		r.det = vad.New(r.cfg.VAD, now)
	} else {
		r.det = nil
	}
	r.state = StateRecording

	r.log.Info("recording started", logger.Fields(logger.FieldAudioPath, w.Path()))
	return nil
}

// Stop ends the session and seals the final chunk. When VAD is enabled and no
// speech was ever detected the audio is discarded and Result.Silent is set.
func (r *Recorder) Stop() (Result, error) {
	r.mu.Lock()

	if r.state != StateRecording {
		r.mu.Unlock()
		return Result{}, apperr.RecorderIdle()
	}

	res := Result{Duration: time.Since(r.startedAt)}

	if r.det != nil && !r.det.HasSpeech() && r.chunkIndex == 0 {
		r.writer.Abort()
		r.writer = nil
		r.state = StateIdle
		res.Silent = true
		r.mu.Unlock()
		r.log.Info("recording discarded, no speech detected")
		return res, nil
	}

	path, err := r.sealChunkLocked(false)
	index := r.chunkIndex - 1
	res.Chunks = r.chunkIndex
	r.state = StateIdle
	r.mu.Unlock()

	if err != nil {
		res.Err = err
		return res, err
	}
	r.emitChunk(path, index)
	r.log.Info("recording stopped", logger.DurationFields("record", res.Duration))
	return res, nil
}

// Cancel ends the session and discards all audio from the active chunk.
// Chunks already sealed and handed to OnChunk are not recalled.
func (r *Recorder) Cancel() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return Result{}, apperr.RecorderIdle()
	}

	r.writer.Abort()
	r.writer = nil
	r.state = StateIdle

	res := Result{Chunks: r.chunkIndex, Duration: time.Since(r.startedAt), Canceled: true}
	r.log.Info("recording canceled", logger.DurationFields("record", res.Duration))
	return res, nil
}

// handleFrame routes one captured frame according to the current state.
func (r *Recorder) handleFrame(frame []int16, now time.Time) {
	var after func()

	r.mu.Lock()
	switch r.state {
	case StateIdle:
		r.bufferPrerollLocked(frame)
	case StateRecording:
		after = r.recordFrameLocked(frame, now)
	}
	r.mu.Unlock()

	if after != nil {
		after()
	}
}

// bufferPrerollLocked keeps the most recent pre-roll window while idle.
func (r *Recorder) bufferPrerollLocked(frame []int16) {
	n := r.cfg.framesFor(r.cfg.PreRoll)
	if n <= 0 {
		return
	}
	cp := make([]int16, len(frame))
	copy(cp, frame)
	r.preroll = append(r.preroll, cp)
	if len(r.preroll) > n {
		r.preroll = r.preroll[len(r.preroll)-n:]
	}
}

// recordFrameLocked appends a frame to the active chunk and applies VAD,
// chunking, and duration limits. It returns a callback to run unlocked.
func (r *Recorder) recordFrameLocked(frame []int16, now time.Time) func() {
	if err := r.writer.Write(frame); err != nil {
		r.writer.Abort()
		r.writer = nil
		r.state = StateIdle
		res := Result{Chunks: r.chunkIndex, Duration: now.Sub(r.startedAt), Err: apperr.AudioDevice("write chunk", err)}
		return func() { r.autoFinish(res) }
	}

	r.bufferOverlapLocked(frame)

	var warn func()
	if r.det != nil {
		st := r.det.Process(frame, now)
		if st.Warn && r.hooks.OnSilenceWarning != nil {
			warn = r.hooks.OnSilenceWarning
		}
		if st.Abort {
			r.writer.Abort()
			r.writer = nil
			r.state = StateIdle
			res := Result{Chunks: r.chunkIndex, Duration: now.Sub(r.startedAt), Canceled: true, Silent: true}
			r.log.Warn("recording auto-aborted after sustained silence")
			return func() { r.autoFinish(res) }
		}
	}

	if r.writer.Frames() >= r.cfg.framesFor(r.cfg.MaxChunk) {
		path, err := r.sealChunkLocked(true)
		if err != nil {
			r.state = StateIdle
			res := Result{Chunks: r.chunkIndex, Duration: now.Sub(r.startedAt), Err: err}
			return func() { r.autoFinish(res) }
		}
		index := r.chunkIndex - 1
		return func() {
			if warn != nil {
				warn()
			}
			r.emitChunk(path, index)
		}
	}

	if now.Sub(r.startedAt) >= r.cfg.MaxDuration {
		path, err := r.sealChunkLocked(false)
		index := r.chunkIndex - 1
		r.state = StateIdle
		res := Result{Chunks: r.chunkIndex, Duration: now.Sub(r.startedAt), Err: err}
		r.log.Warn("recording reached max duration, stopping")
		return func() {
			if err == nil {
				r.emitChunk(path, index)
			}
			r.autoFinish(res)
		}
	}

	if warn != nil {
		return warn
	}
	return nil
}

// bufferOverlapLocked keeps the tail of the active chunk for chunk overlap.
func (r *Recorder) bufferOverlapLocked(frame []int16) {
	n := r.cfg.framesFor(r.cfg.ChunkOverlap)
	if n <= 0 {
		return
	}
	cp := make([]int16, len(frame))
	copy(cp, frame)
	r.overlap = append(r.overlap, cp)
	if len(r.overlap) > n {
		r.overlap = r.overlap[len(r.overlap)-n:]
	}
}

// sealChunkLocked closes the active chunk. When cont is true a new chunk is
// opened and seeded with the overlap tail so words on the boundary appear in
// both chunks.
func (r *Recorder) sealChunkLocked(cont bool) (string, error) {
	path := r.writer.Path()
	if err := r.writer.Close(); err != nil {
		r.writer = nil
		return "", apperr.AudioDevice("seal chunk", err)
	}
	r.writer = nil
	r.chunkIndex++

	if cont {
		w, err := newChunkWriter(r.cfg.TempDir, r.cfg.SampleRate, r.cfg.Channels)
		if err != nil {
			return "", apperr.AudioDevice("create next chunk", err)
		}
		for _, f := range r.overlap {
			if err := w.Write(f); err != nil {
				w.Abort()
				return "", apperr.AudioDevice("write overlap", err)
			}
		}
		r.writer = w
	}
	return path, nil
}

// failSession surfaces a capture failure for an active session.
func (r *Recorder) failSession(err error) {
	r.mu.Lock()
	active := r.state == StateRecording
	if active {
		if r.writer != nil {
			r.writer.Abort()
			r.writer = nil
		}
		r.state = StateIdle
	}
	res := Result{Chunks: r.chunkIndex, Err: err}
	r.mu.Unlock()

	if active {
		r.autoFinish(res)
	}
}

// shutdown discards any active session on context cancellation.
func (r *Recorder) shutdown() {
	r.mu.Lock()
	if r.writer != nil {
		r.writer.Abort()
		r.writer = nil
	}
	r.state = StateIdle
	r.mu.Unlock()
}

func (r *Recorder) emitChunk(path string, index int) {
	r.log.Debug("chunk sealed", logger.Fields(logger.FieldAudioPath, path, logger.FieldChunk, index))
	if r.hooks.OnChunk != nil {
		r.hooks.OnChunk(path, index)
	}
}

func (r *Recorder) autoFinish(res Result) {
	if r.hooks.OnAutoFinish != nil {
		r.hooks.OnAutoFinish(res)
	}
}
