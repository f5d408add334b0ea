package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/teamtalk/talktome/internal/audio"
)

// chunkSize is the read size for the compressed stream.
const chunkSize = 32 << 10

// StreamStrategy records the default input through ffmpeg. Compressed
// WebM/Opus arrives on stdout and 8-bit analyser samples on fd 3.
type StreamStrategy struct {
	FFmpeg      string
	InputFormat string
	InputDevice string
}

func (s *StreamStrategy) Name() string { return "stream" }

func (s *StreamStrategy) args() []string {
	format, device := s.InputFormat, s.InputDevice
	if format == "" {
		format = defaultInputFormat()
	}
	if device == "" {
		device = defaultInputDevice()
	}
	return []string{
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-f", format, "-i", device,
		"-map", "0:a", "-ac", "1", "-c:a", "libopus", "-f", "webm", "pipe:1",
		"-map", "0:a", "-ac", "1", "-ar", "8000", "-f", "u8", "pipe:3",
	}
}

func defaultInputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "pulse"
	}
}

func defaultInputDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return ":0"
	case "windows":
		return "audio=default"
	default:
		return "default"
	}
}

// Start launches ffmpeg and begins collecting chunks.
func (s *StreamStrategy) Start(ctx context.Context) (Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(s.FFmpeg, s.args()...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	levelR, levelW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.ExtraFiles = []*os.File{levelW}

	rec := &streamRecording{
		cmd:        cmd,
		stdin:      stdin,
		chunksDone: make(chan struct{}),
	}
	cmd.Stderr = &rec.stderr

	if err := cmd.Start(); err != nil {
		levelR.Close()
		levelW.Close()
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrUnsupported
		}
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	levelW.Close()

	rec.handle = NewHandle(func() {
		_ = cmd.Process.Kill()
		_ = rec.wait()
		stdin.Close()
		levelR.Close()
	})

	go rec.readChunks(stdout)
	go rec.readLevels(levelR)
	return rec, nil
}

type streamRecording struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	handle *Handle

	mu    sync.Mutex
	data  []byte
	frame []byte

	chunksDone chan struct{}

	waitOnce sync.Once
	waitErr  error
}

func (r *streamRecording) Handle() *Handle { return r.handle }

func (r *streamRecording) Frame() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

func (r *streamRecording) readChunks(src io.Reader) {
	defer close(r.chunksDone)
	buf := make([]byte, chunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.data = append(r.data, buf[:n]...)
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (r *streamRecording) readLevels(src io.Reader) {
	for {
		frame := make([]byte, audio.FFTSize)
		if _, err := io.ReadFull(src, frame); err != nil {
			return
		}
		r.mu.Lock()
		r.frame = frame
		r.mu.Unlock()
	}
}

func (r *streamRecording) wait() error {
	r.waitOnce.Do(func() { r.waitErr = r.cmd.Wait() })
	return r.waitErr
}

// Finish asks ffmpeg to quit so the WebM container is finalized, then
// returns everything it wrote.
func (r *streamRecording) Finish(ctx context.Context) (*audio.Payload, error) {
	_, _ = io.WriteString(r.stdin, "q")
	_ = r.stdin.Close()

	select {
	case <-r.chunksDone:
	case <-ctx.Done():
		r.handle.Release()
		return nil, ctx.Err()
	}

	if err := r.wait(); err != nil {
		msg := strings.TrimSpace(r.stderr.String())
		if isPermissionError(msg) {
			return nil, ErrPermissionDenied
		}
		r.mu.Lock()
		empty := len(r.data) == 0
		r.mu.Unlock()
		if empty {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return &audio.Payload{Data: r.data, Container: audio.WebM}, nil
}

func isPermissionError(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "permission denied") || strings.Contains(s, "operation not permitted")
}
