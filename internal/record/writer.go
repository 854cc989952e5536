package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// tempPrefix marks recorder-owned temp files so stale ones can be purged.
const tempPrefix = "voicetap_rec_"

// chunkWriter streams int16 frames into a temp WAV file.
type chunkWriter struct {
	path   string
	file   *os.File
	enc    *wav.Encoder
	format *audio.Format
	intBuf []int
	frames int
}

// newChunkWriter creates a WAV writer backed by a fresh temp file in dir.
func newChunkWriter(dir string, sampleRate, channels int) (*chunkWriter, error) {
	path := tempWavPath(dir)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav: %w", err)
	}
	return &chunkWriter{
		path:   path,
		file:   file,
		enc:    wav.NewEncoder(file, sampleRate, 16, channels, 1),
		format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
	}, nil
}

// Write appends one PCM frame to the file.
func (w *chunkWriter) Write(frame []int16) error {
	if cap(w.intBuf) < len(frame) {
		w.intBuf = make([]int, len(frame))
	}
	buf := w.intBuf[:len(frame)]
	for i, v := range frame {
		buf[i] = int(v)
	}
	if err := w.enc.Write(&audio.IntBuffer{Format: w.format, Data: buf, SourceBitDepth: 16}); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *chunkWriter) Frames() int { return w.frames }

// Path returns the WAV file path.
func (w *chunkWriter) Path() string { return w.path }

// Close finalizes the WAV header and closes the file.
func (w *chunkWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("wav close: %w", err)
	}
	return w.file.Close()
}

// Abort closes and removes the file, discarding the audio.
func (w *chunkWriter) Abort() {
	_ = w.enc.Close()
	_ = w.file.Close()
	_ = os.Remove(w.path)
}

// tempWavPath builds a unique temp WAV path in dir.
func tempWavPath(dir string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return filepath.Join(dir, tempPrefix+id+".wav")
}

// CleanupTempFiles removes leftover recorder temp files in dir.
func CleanupTempFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var removed []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tempPrefix) {
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err == nil {
				removed = append(removed, path)
			}
		}
	}
	return removed
}
