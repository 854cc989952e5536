// Package vad implements energy-based voice activity detection over int16 PCM
// frames. It classifies frames as speech or silence using a peak-amplitude
// threshold with hysteresis, and tracks how long a recording has gone without
// any detected speech so the recorder can warn and eventually auto-abort.
package vad

import "time"

// Aggressiveness selects how strict the speech/silence classification is.
// Higher values require louder audio to count as speech.
type Aggressiveness int

const (
	// AggressivenessLow accepts very quiet audio as speech.
	AggressivenessLow Aggressiveness = iota
	// AggressivenessModerate is slightly stricter than low.
	AggressivenessModerate
	// AggressivenessNormal matches typical desk microphone levels.
	AggressivenessNormal
	// AggressivenessHigh requires clearly voiced audio.
	AggressivenessHigh
)

// preset holds per-aggressiveness tuning.
type preset struct {
	baseThreshold    int
	hysteresisFrames int
}

var presets = map[Aggressiveness]preset{
	AggressivenessLow:      {baseThreshold: 80, hysteresisFrames: 4},
	AggressivenessModerate: {baseThreshold: 120, hysteresisFrames: 6},
	AggressivenessNormal:   {baseThreshold: 150, hysteresisFrames: 8},
	AggressivenessHigh:     {baseThreshold: 400, hysteresisFrames: 10},
}

// Config configures a Detector.
type Config struct {
	// Aggressiveness selects the classification preset (0-3).
	Aggressiveness Aggressiveness `yaml:"aggressiveness" mapstructure:"aggressiveness"`
	// SilenceWarning is how long without speech before Status.Warn fires once.
	SilenceWarning time.Duration `yaml:"silence_warning" mapstructure:"silence_warning"`
	// SilenceAbort is how long a recording may remain entirely silent before
	// Status.Abort fires. Zero disables auto-abort.
	SilenceAbort time.Duration `yaml:"silence_abort" mapstructure:"silence_abort"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.SilenceWarning <= 0 {
		c.SilenceWarning = 8 * time.Second
	}
	if c.SilenceAbort < 0 {
		c.SilenceAbort = 0
	}
	if c.Aggressiveness < AggressivenessLow || c.Aggressiveness > AggressivenessHigh {
		c.Aggressiveness = AggressivenessNormal
	}
}

// Status is the detector's verdict after processing one frame.
type Status struct {
	// Amplitude is the frame's peak amplitude.
	Amplitude int
	// Voiced reports whether this frame crossed the speech threshold.
	Voiced bool
	// Speech reports whether sustained speech has been confirmed (hysteresis).
	Speech bool
	// Warn fires once when the recording has been silent for SilenceWarning
	// and no strong audio was ever seen.
	Warn bool
	// Abort fires when the recording has been entirely silent for SilenceAbort.
	Abort bool
}

// Detector tracks speech activity across a recording session.
// It is not safe for concurrent use; the capture loop owns it.
type Detector struct {
	cfg    Config
	preset preset

	startedAt    time.Time
	lastSoundAt  time.Time
	maxAmplitude int
	voicedStreak int
	speech       bool
	warned       bool
}

// New creates a detector for one recording session starting at start.
func New(cfg Config, start time.Time) *Detector {
	cfg.ApplyDefaults()
	return &Detector{
		cfg:       cfg,
		preset:    presets[cfg.Aggressiveness],
		startedAt: start,
	}
}

// Reset prepares the detector for a new session starting at start.
func (d *Detector) Reset(start time.Time) {
	p := d.preset
	cfg := d.cfg
	*d = Detector{cfg: cfg, preset: p, startedAt: start}
}

// HasSpeech reports whether sustained speech was confirmed at any point.
func (d *Detector) HasSpeech() bool { return d.speech }

// MaxAmplitude returns the loudest peak amplitude seen this session.
func (d *Detector) MaxAmplitude() int { return d.maxAmplitude }

// Process classifies one PCM frame observed at now.
func (d *Detector) Process(frame []int16, now time.Time) Status {
	amp := PeakAmplitude(frame)
	if amp > d.maxAmplitude {
		d.maxAmplitude = amp
	}

	st := Status{Amplitude: amp}

	if amp > d.preset.baseThreshold {
		st.Voiced = true
		d.voicedStreak++
		if d.voicedStreak >= d.preset.hysteresisFrames {
			d.speech = true
		}
		d.lastSoundAt = now
		d.warned = false
	} else if d.voicedStreak > 0 {
		d.voicedStreak--
	}
	st.Speech = d.speech

	since := d.lastSoundAt
	if since.IsZero() {
		since = d.startedAt
	}
	silence := now.Sub(since)

	// Warn only when no strong audio was ever seen; a pause in real speech
	// is not a mic problem.
	if !d.warned && silence >= d.cfg.SilenceWarning && d.maxAmplitude < d.preset.baseThreshold*2 {
		d.warned = true
		st.Warn = true
	}

	// Abort only when the whole session was silent, never after speech.
	if d.cfg.SilenceAbort > 0 && silence >= d.cfg.SilenceAbort && d.maxAmplitude < d.preset.baseThreshold {
		st.Abort = true
	}

	return st
}

// PeakAmplitude returns the peak absolute sample value in the frame.
func PeakAmplitude(frame []int16) int {
	peak := 0
	for _, s := range frame {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
