// Package logger builds the process-wide zerolog logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Field names shared by HTTP and capture logging.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldMeetingID = "meeting_id"
	FieldFolderID  = "folder_id"
	FieldSessionID = "session_id"
)

// Options configures New.
type Options struct {
	Level   string
	Format  string
	Output  io.Writer
	NoColor bool
}

// New builds a logger. Logs go to stderr by default so stdout stays
// free for command output and the MCP stdio transport.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q", opts.Level)
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatConsole, "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: opts.NoColor}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", opts.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// From returns the logger stored in ctx, or a disabled logger.
func From(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
