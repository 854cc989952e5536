package vad

import (
	"testing"
	"time"
)

func frame(amp int16, n int) []int16 {
	f := make([]int16, n)
	for i := range f {
		f[i] = amp
	}
	return f
}

func TestPeakAmplitude(t *testing.T) {
	tests := []struct {
		name  string
		frame []int16
		want  int
	}{
		{"empty", nil, 0},
		{"positive", []int16{0, 5, 3}, 5},
		{"negative dominates", []int16{-200, 100}, 200},
		{"min int16", []int16{-32768}, 32768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeakAmplitude(tt.frame); got != tt.want {
				t.Errorf("PeakAmplitude() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{Aggressiveness: 99}
	cfg.ApplyDefaults()
	if cfg.Aggressiveness != AggressivenessNormal {
		t.Errorf("Aggressiveness = %d, want normal", cfg.Aggressiveness)
	}
	if cfg.SilenceWarning != 8*time.Second {
		t.Errorf("SilenceWarning = %v, want 8s", cfg.SilenceWarning)
	}
}

func TestDetectorSpeechHysteresis(t *testing.T) {
	start := time.Now()
	d := New(Config{Aggressiveness: AggressivenessNormal}, start)

	loud := frame(3000, 160)
	now := start

	// Speech is confirmed only after the hysteresis streak.
	for i := 0; i < presets[AggressivenessNormal].hysteresisFrames-1; i++ {
		now = now.Add(100 * time.Millisecond)
		st := d.Process(loud, now)
		if !st.Voiced {
			t.Fatalf("frame %d not voiced", i)
		}
		if st.Speech {
			t.Fatalf("speech confirmed after %d frames, before hysteresis", i+1)
		}
	}

	now = now.Add(100 * time.Millisecond)
	if st := d.Process(loud, now); !st.Speech {
		t.Error("speech not confirmed after full hysteresis streak")
	}
	if !d.HasSpeech() {
		t.Error("HasSpeech() = false after confirmed speech")
	}
}

func TestDetectorQuietFramesNotVoiced(t *testing.T) {
	start := time.Now()
	d := New(Config{Aggressiveness: AggressivenessNormal}, start)

	st := d.Process(frame(50, 160), start.Add(100*time.Millisecond))
	if st.Voiced || st.Speech {
		t.Errorf("quiet frame classified as voiced: %+v", st)
	}
}

func TestDetectorWarnFiresOnce(t *testing.T) {
	start := time.Now()
	d := New(Config{SilenceWarning: 500 * time.Millisecond, SilenceAbort: time.Hour}, start)

	quiet := frame(10, 160)
	if st := d.Process(quiet, start.Add(200*time.Millisecond)); st.Warn {
		t.Error("warn fired before the silence window elapsed")
	}
	if st := d.Process(quiet, start.Add(600*time.Millisecond)); !st.Warn {
		t.Error("warn did not fire after the silence window")
	}
	if st := d.Process(quiet, start.Add(800*time.Millisecond)); st.Warn {
		t.Error("warn fired twice")
	}
}

func TestDetectorAbortOnlyWhenFullySilent(t *testing.T) {
	start := time.Now()
	cfg := Config{SilenceWarning: 500 * time.Millisecond, SilenceAbort: time.Second}

	t.Run("silent session aborts", func(t *testing.T) {
		d := New(cfg, start)
		quiet := frame(10, 160)
		d.Process(quiet, start.Add(600*time.Millisecond))
		if st := d.Process(quiet, start.Add(1100*time.Millisecond)); !st.Abort {
			t.Error("silent session did not abort")
		}
	})

	t.Run("loud audio suppresses abort", func(t *testing.T) {
		d := New(cfg, start)
		d.Process(frame(3000, 160), start.Add(100*time.Millisecond))
		quiet := frame(10, 160)
		if st := d.Process(quiet, start.Add(2*time.Second)); st.Abort {
			t.Error("session with prior loud audio aborted")
		}
	})

	t.Run("zero abort disables", func(t *testing.T) {
		d := New(Config{SilenceWarning: 500 * time.Millisecond}, start)
		quiet := frame(10, 160)
		if st := d.Process(quiet, start.Add(time.Hour)); st.Abort {
			t.Error("abort fired with SilenceAbort disabled")
		}
	})
}

func TestDetectorSoundResetsSilenceWindow(t *testing.T) {
	start := time.Now()
	d := New(Config{SilenceWarning: 500 * time.Millisecond, SilenceAbort: time.Second}, start)

	// Loud audio at 900ms resets the window; quiet at 1.2s is only 300ms in.
	d.Process(frame(3000, 160), start.Add(900*time.Millisecond))
	st := d.Process(frame(10, 160), start.Add(1200*time.Millisecond))
	if st.Warn || st.Abort {
		t.Errorf("silence window not reset by sound: %+v", st)
	}
}

func TestDetectorReset(t *testing.T) {
	start := time.Now()
	d := New(Config{}, start)
	for i := 0; i < 20; i++ {
		d.Process(frame(3000, 160), start.Add(time.Duration(i)*100*time.Millisecond))
	}
	if !d.HasSpeech() {
		t.Fatal("setup failed, no speech confirmed")
	}

	d.Reset(start.Add(time.Minute))
	if d.HasSpeech() || d.MaxAmplitude() != 0 {
		t.Error("Reset did not clear session state")
	}
}
