// Package capture records microphone audio and hands the packaged payload to
// a running server for transcription.
package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/teamtalk/talktome/internal/audio"
)

// Sentinel errors surfaced as session status text.
var (
	ErrPermissionDenied = errors.New("microphone permission not granted")
	ErrEmptyAudio       = errors.New("empty audio")
	ErrUnsupported      = errors.New("Recording not supported in this environment")
	ErrInvalidState     = errors.New("invalid session state")
)

// Strategy acquires the input device and starts a recording.
type Strategy interface {
	Name() string
	Start(ctx context.Context) (Recording, error)
}

// Recording is an in-progress capture.
type Recording interface {
	// Handle owns the device and analysis resources.
	Handle() *Handle
	// Frame returns the latest 8-bit time-domain analyser frame, or nil
	// when the strategy has no analyser.
	Frame() []byte
	// Finish stops capturing and returns the packaged audio.
	Finish(ctx context.Context) (*audio.Payload, error)
}

// Handle releases a device exactly once no matter how many exit paths call it.
type Handle struct {
	once    sync.Once
	release func()
}

// NewHandle wraps release so that it runs at most once.
func NewHandle(release func()) *Handle {
	return &Handle{release: release}
}

// Release stops all tracks and closes the analysis graph. Safe to call repeatedly.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.release != nil {
			h.release()
		}
	})
}

// Capabilities describes the recording facilities available to this process.
type Capabilities struct {
	// FFmpeg is the resolved ffmpeg binary. Empty when the stream facility is unavailable.
	FFmpeg string
	// InputFormat and InputDevice select the ffmpeg capture device (e.g. "pulse", "default").
	InputFormat string
	InputDevice string

	// Native is the native recorder bridge, if any.
	Native NativeRecorder
	// SampleRate applies to raw PCM reported by the native recorder. 0 means audio.DefaultSampleRate.
	SampleRate int
}

// SelectStrategy prefers streaming capture, falls back to the native recorder,
// and returns ErrUnsupported when neither is present.
func SelectStrategy(c Capabilities) (Strategy, error) {
	switch {
	case c.FFmpeg != "":
		return &StreamStrategy{FFmpeg: c.FFmpeg, InputFormat: c.InputFormat, InputDevice: c.InputDevice}, nil
	case c.Native != nil:
		return &NativeStrategy{Recorder: c.Native, SampleRate: c.SampleRate}, nil
	default:
		return nil, ErrUnsupported
	}
}
