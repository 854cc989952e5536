package record

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Source yields PCM frames from an audio input. The recorder's capture loop
// owns the source; implementations do not need to be safe for concurrent use.
type Source interface {
	// Start opens the input and begins capture.
	Start() error
	// Read blocks until the next frame is available and returns it. The
	// returned slice is only valid until the next Read call.
	Read() ([]int16, error)
	// Close stops capture and releases the input.
	Close() error
}

// PortAudioSource captures int16 frames from the default input device.
type PortAudioSource struct {
	sampleRate      int
	channels        int
	framesPerBuffer int

	stream *portaudio.Stream
	buf    []int16
}

// NewPortAudioSource creates a source for the default input device.
func NewPortAudioSource(sampleRate, channels, framesPerBuffer int) *PortAudioSource {
	return &PortAudioSource{
		sampleRate:      sampleRate,
		channels:        channels,
		framesPerBuffer: framesPerBuffer,
		buf:             make([]int16, framesPerBuffer*channels),
	}
}

// Start initializes PortAudio and opens the default input stream.
func (s *PortAudioSource) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(s.channels, 0, float64(s.sampleRate), s.framesPerBuffer, s.buf)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}
	s.stream = stream
	return nil
}

// Read blocks until the next frame has been captured.
func (s *PortAudioSource) Read() ([]int16, error) {
	if s.stream == nil {
		return nil, fmt.Errorf("source not started")
	}
	if err := s.stream.Read(); err != nil {
		return nil, err
	}
	return s.buf, nil
}

// Close stops the stream and terminates PortAudio.
func (s *PortAudioSource) Close() error {
	if s.stream == nil {
		return nil
	}
	_ = s.stream.Stop()
	err := s.stream.Close()
	s.stream = nil
	_ = portaudio.Terminate()
	return err
}
