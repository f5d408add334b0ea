package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teamtalk/talktome/internal/audio"
	"github.com/teamtalk/talktome/internal/logger"
)

// State is a recording session state.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting-permission"
	StateRecording  State = "recording"
	StateStopping   State = "stopping"
	StateUploading  State = "uploading"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Status texts shown to the user.
const (
	StatusPermissionDenied = "Microphone permission not granted"
	StatusEmptyAudio       = "Transcription failed: empty audio"
	StatusFailedPrefix     = "Transcription failed: "
	StatusTranscribed      = "Transcribed"
	StatusRecording        = "Recording"
	StatusUploading        = "Transcribing"
)

// maxStatusText bounds server text echoed into the status line.
const maxStatusText = 120

// Options tunes a Session.
type Options struct {
	// TickInterval is the elapsed counter period. Defaults to one second.
	TickInterval time.Duration
	// LevelInterval is the level meter sampling period. Defaults to ~60 Hz.
	LevelInterval time.Duration
	Logger        zerolog.Logger
}

// Session drives one recording from permission request to transcript.
type Session struct {
	strategy  Strategy
	uploader  Uploader
	meetingID string
	opts      Options
	log       zerolog.Logger

	mu      sync.Mutex
	id      string
	state   State
	status  string
	elapsed int
	level   float64
	rec     Recording
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSession returns an idle session that uploads into meetingID.
func NewSession(strategy Strategy, uploader Uploader, meetingID string, opts Options) *Session {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.LevelInterval <= 0 {
		opts.LevelInterval = time.Second / 60
	}
	id := uuid.NewString()
	return &Session{
		strategy:  strategy,
		uploader:  uploader,
		meetingID: meetingID,
		opts:      opts,
		log:       logger.Component(opts.Logger, "capture").With().Str(logger.FieldSessionID, id).Logger(),
		id:        id,
		state:     StateIdle,
	}
}

// ID returns the session ID sent with uploads.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the user-facing status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Elapsed returns the recorded time.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.elapsed) * time.Second
}

// Level returns the latest input level in [0,1].
func (s *Session) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Start requests the device and begins recording.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidState, s.state)
	}
	s.state = StateRequesting
	s.status = ""
	s.mu.Unlock()

	rec, err := s.strategy.Start(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRequesting {
		// Closed while waiting for the device.
		if rec != nil {
			rec.Handle().Release()
		}
		return fmt.Errorf("%w: session closed", ErrInvalidState)
	}
	if err != nil {
		s.fail(err)
		return err
	}

	s.rec = rec
	s.state = StateRecording
	s.status = StatusRecording
	s.elapsed = 0
	s.level = 0
	s.stop = make(chan struct{})
	s.wg.Add(2)
	go s.tick(s.stop)
	go s.meter(s.stop, rec)

	s.log.Info().Str("strategy", s.strategy.Name()).Msg("recording started")
	return nil
}

// Stop ends the recording, uploads the audio and returns the transcript.
func (s *Session) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: stop from %s", ErrInvalidState, s.state)
	}
	s.state = StateStopping
	rec := s.rec
	s.rec = nil
	s.mu.Unlock()

	s.halt()

	payload, err := rec.Finish(ctx)
	rec.Handle().Release()
	if err == nil && payload.TooSmall() {
		err = ErrEmptyAudio
	}
	if err != nil {
		s.mu.Lock()
		s.fail(err)
		s.mu.Unlock()
		return "", err
	}

	s.mu.Lock()
	s.state = StateUploading
	s.status = StatusUploading
	id := s.id
	s.mu.Unlock()

	text, err := s.uploader.Upload(ctx, id, s.meetingID, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fail(err)
		return "", err
	}
	s.state = StateDone
	s.status = StatusTranscribed
	s.log.Info().
		Str(logger.FieldMeetingID, s.meetingID).
		Int("bytes", len(payload.Data)).
		Str("container", payload.MIMEType).
		Msg("transcribed")
	return text, nil
}

// Reset returns a finished session to idle under a fresh ID.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateIdle, StateDone, StateFailed:
	default:
		return fmt.Errorf("%w: reset from %s", ErrInvalidState, s.state)
	}
	s.id = uuid.NewString()
	s.log = logger.Component(s.opts.Logger, "capture").With().Str(logger.FieldSessionID, s.id).Logger()
	s.state = StateIdle
	s.status = ""
	s.elapsed = 0
	s.level = 0
	return nil
}

// Close tears the session down. A recording in progress is discarded and
// its device released.
func (s *Session) Close() {
	s.mu.Lock()
	rec := s.rec
	s.rec = nil
	recording := s.state == StateRecording
	if s.state == StateRecording || s.state == StateRequesting {
		s.state = StateIdle
		s.status = ""
	}
	s.mu.Unlock()

	if recording {
		s.halt()
	}
	if rec != nil {
		rec.Handle().Release()
		s.log.Info().Msg("recording discarded")
	}
}

// halt stops the ticker and meter and waits for them. Must not hold mu.
func (s *Session) halt() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	s.wg.Wait()
}

// fail records err as a terminal failure. Caller holds mu.
func (s *Session) fail(err error) {
	s.state = StateFailed
	s.status = StatusText(err)
	s.log.Warn().Err(err).Msg("capture failed")
}

func (s *Session) tick(stop <-chan struct{}) {
	defer s.wg.Done()
	t := time.NewTicker(s.opts.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.mu.Lock()
			s.elapsed++
			s.mu.Unlock()
		}
	}
}

func (s *Session) meter(stop <-chan struct{}, rec Recording) {
	defer s.wg.Done()
	t := time.NewTicker(s.opts.LevelInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			frame := rec.Frame()
			if frame == nil {
				continue
			}
			lvl := audio.RMS(frame)
			s.mu.Lock()
			s.level = lvl
			s.mu.Unlock()
		}
	}
}

// StatusText maps a capture error to the status line shown to the user.
func StatusText(err error) string {
	var upErr *UploadError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return StatusPermissionDenied
	case errors.Is(err, ErrEmptyAudio):
		return StatusEmptyAudio
	case errors.Is(err, ErrUnsupported):
		return ErrUnsupported.Error()
	case errors.As(err, &upErr):
		return StatusFailedPrefix + truncate(upErr.Text, maxStatusText)
	default:
		return StatusFailedPrefix + truncate(err.Error(), maxStatusText)
	}
}

// FormatElapsed renders d as HH:MM:SS.
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
