package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/teamtalk/talktome/internal/audio"
)

// NativeRecorder is a platform recorder that produces one base64 payload.
type NativeRecorder interface {
	// Begin asks for permission and starts recording.
	Begin(ctx context.Context) error
	// End stops recording and returns the base64 payload and reported MIME type.
	End(ctx context.Context) (b64, mime string, err error)
}

// NativeStrategy records through a NativeRecorder.
type NativeStrategy struct {
	Recorder   NativeRecorder
	SampleRate int
}

func (s *NativeStrategy) Name() string { return "native" }

// Start begins a native recording.
func (s *NativeStrategy) Start(ctx context.Context) (Recording, error) {
	if err := s.Recorder.Begin(ctx); err != nil {
		return nil, err
	}
	rate := s.SampleRate
	if rate <= 0 {
		rate = audio.DefaultSampleRate
	}
	return &nativeRecording{rec: s.Recorder, rate: rate, handle: NewHandle(nil)}, nil
}

type nativeRecording struct {
	rec    NativeRecorder
	rate   int
	handle *Handle
}

func (r *nativeRecording) Handle() *Handle { return r.handle }

// Frame is nil: native recorders expose no analyser.
func (r *nativeRecording) Frame() []byte { return nil }

func (r *nativeRecording) Finish(ctx context.Context) (*audio.Payload, error) {
	b64, mime, err := r.rec.End(ctx)
	if err != nil {
		return nil, err
	}
	p, err := audio.FromBase64(b64, mime, r.rate)
	if err != nil {
		return nil, fmt.Errorf("native payload: %w", err)
	}
	return p, nil
}

// FileRecorder is a native recorder backed by a file that a mobile or
// desktop bridge writes base64 audio into.
type FileRecorder struct {
	Path string
	MIME string
}

// Begin checks that the bridge output is readable.
func (f *FileRecorder) Begin(ctx context.Context) error {
	file, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("native recorder: %w", err)
	}
	return file.Close()
}

// End reads the base64 payload.
func (f *FileRecorder) End(ctx context.Context) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return "", "", ErrPermissionDenied
		}
		return "", "", fmt.Errorf("native recorder: %w", err)
	}
	return strings.TrimSpace(string(data)), f.MIME, nil
}
