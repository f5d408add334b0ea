package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/teamtalk/talktome/internal/capture"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/mcp"
	"github.com/teamtalk/talktome/internal/ops"
	"github.com/teamtalk/talktome/internal/web"
)

// maxStdinBytes caps transcript text read from stdin.
const maxStdinBytes = 10 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "talktome",
		Usage:   "Meeting notes: record, transcribe, summarize",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "home", EnvVars: []string{"TALKTOME_HOME"}, Usage: "Data directory (default: ~/.talktome)"},
		},
		Before: func(c *cli.Context) error {
			if c.Args().First() == "help" {
				return nil
			}
			return env.load(c.String("home"))
		},
		Commands: []*cli.Command{
			serveCmd(env),
			mcpCmd(env),
			recordCmd(env),
			foldersCmd(env),
			meetingsCmd(env),
			transcriptCmd(env),
			icsCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// withDB opens the database before a command runs.
func withDB(env *appEnv) cli.BeforeFunc {
	return func(_ *cli.Context) error {
		return env.openDB()
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API and web UI",
		Before: withDB(env),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen interface (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg := *env.cfg
			if c.IsSet("bind") {
				cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}

			srv, err := web.NewServer(env.db, env.gw, &cfg, env.log, Version)
			if err != nil {
				return outputError(err)
			}
			return web.Run(c.Context, srv, env.log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:   "mcp",
		Usage:  "Run the MCP server on stdio",
		Before: withDB(env),
		Action: func(c *cli.Context) error {
			if unknown := mcp.ValidateDisabledTools(env.cfg.DisabledTools); len(unknown) > 0 {
				env.log.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
			}
			if unknown := mcp.ValidateDisabledTypes(env.cfg.DisabledTypes); len(unknown) > 0 {
				env.log.Warn().Strs("types", unknown).Msg("unknown types in disabled_types")
			}
			return mcp.Run(env.db, env.gw, env.cfg, env.log, Version)
		},
	}
}

// recordCmd creates the record command.
func recordCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record from the microphone and upload to a running server for transcription",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "meeting", Aliases: []string{"m"}, Required: true, Usage: "Meeting ID to transcribe into"},
			&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Usage: "Server base URL (default: http://<bind>:<port>)"},
			&cli.StringFlag{Name: "ffmpeg", Value: "ffmpeg", Usage: "ffmpeg binary for streaming capture"},
			&cli.BoolFlag{Name: "no-stream", Usage: "Do not use ffmpeg even if available"},
			&cli.StringFlag{Name: "input-format", Usage: "ffmpeg input format (pulse, alsa, avfoundation, dshow)"},
			&cli.StringFlag{Name: "input-device", Usage: "ffmpeg input device"},
			&cli.StringFlag{Name: "native-file", Usage: "Base64 payload written by a native recorder bridge"},
			&cli.StringFlag{Name: "native-mime", Value: "audio/m4a", Usage: "MIME type reported by the native recorder"},
			&cli.IntFlag{Name: "sample-rate", Usage: "Sample rate of raw PCM from the native recorder"},
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Stop automatically after this long"},
		},
		Action: func(c *cli.Context) error {
			caps := capture.Capabilities{
				InputFormat: c.String("input-format"),
				InputDevice: c.String("input-device"),
				SampleRate:  c.Int("sample-rate"),
			}
			if !c.Bool("no-stream") {
				if path, err := exec.LookPath(c.String("ffmpeg")); err == nil {
					caps.FFmpeg = path
				}
			}
			if f := c.String("native-file"); f != "" {
				caps.Native = &capture.FileRecorder{Path: f, MIME: c.String("native-mime")}
			}

			strategy, err := capture.SelectStrategy(caps)
			if err != nil {
				return outputError(err)
			}

			server := c.String("server")
			if server == "" {
				server = "http://" + env.cfg.Addr()
			}

			session := capture.NewSession(strategy, capture.NewHTTPUploader(server), c.String("meeting"), capture.Options{Logger: env.log})
			defer session.Close()

			var stdin io.Reader
			if isTerminal() {
				stdin = os.Stdin
			}
			return runRecording(c.Context, session, c.Duration("duration"), stdin, os.Stderr)
		},
	}
}

// recordResult is printed after a recording finishes.
type recordResult struct {
	SessionID  string `json:"sessionId"`
	Status     string `json:"status"`
	Elapsed    string `json:"elapsed"`
	Transcript string `json:"transcript"`
}

// runRecording starts the session, shows progress on status until Enter,
// a signal or the duration limit, then uploads and prints the result.
// A nil stdin disables the Enter key.
func runRecording(ctx context.Context, session *capture.Session, limit time.Duration, stdin io.Reader, status io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		return outputError(fmt.Errorf("%s", session.Status()))
	}

	enter := make(chan struct{})
	if stdin != nil {
		go func() {
			_, _ = bufio.NewReader(stdin).ReadString('\n')
			close(enter)
		}()
	}

	var deadline <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		deadline = timer.C
	}

	progress := time.NewTicker(250 * time.Millisecond)
	defer progress.Stop()

	if stdin != nil {
		fmt.Fprintln(status, "Recording. Press Enter to stop.")
	} else {
		fmt.Fprintln(status, "Recording. Press Ctrl+C to stop.")
	}
wait:
	for {
		select {
		case <-progress.C:
			fmt.Fprintf(status, "\r%s  %s", capture.FormatElapsed(session.Elapsed()), levelBar(session.Level(), 20))
		case <-enter:
			break wait
		case <-deadline:
			break wait
		case <-ctx.Done():
			break wait
		}
	}
	fmt.Fprintln(status)

	uploadCtx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	elapsed := capture.FormatElapsed(session.Elapsed())
	text, err := session.Stop(uploadCtx)
	if err != nil {
		return outputError(fmt.Errorf("%s", session.Status()))
	}

	return outputJSON(recordResult{
		SessionID:  session.ID(),
		Status:     session.Status(),
		Elapsed:    elapsed,
		Transcript: text,
	})
}

// levelBar renders a level in [0,1] as a fixed-width meter.
func levelBar(level float64, width int) string {
	n := int(level*float64(width) + 0.5)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return "[" + strings.Repeat("#", n) + strings.Repeat(" ", width-n) + "]"
}

// foldersCmd creates the folders command group.
func foldersCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:   "folders",
		Usage:  "Manage folders",
		Before: withDB(env),
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List folders",
				Action: func(c *cli.Context) error {
					folders, err := ops.ListFolders(c.Context, env.db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(folders)
				},
			},
			{
				Name:      "create",
				Usage:     "Create a folder",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					folder, err := ops.CreateFolder(c.Context, env.db, ops.CreateFolderInput{Name: strings.Join(c.Args().Slice(), " ")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(folder)
				},
			},
			{
				Name:      "rename",
				Usage:     "Rename a folder",
				ArgsUsage: "<id> <name>",
				Action: func(c *cli.Context) error {
					args := c.Args().Slice()
					input := ops.RenameFolderInput{}
					if len(args) > 0 {
						input.ID = args[0]
						input.Name = strings.Join(args[1:], " ")
					}
					folder, err := ops.RenameFolder(c.Context, env.db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(folder)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a folder (its meetings are kept, unfiled)",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if err := ops.DeleteFolder(c.Context, env.db, id); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"deleted": true, "id": id})
				},
			},
		},
	}
}

// meetingsCmd creates the meetings command group.
func meetingsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:   "meetings",
		Usage:  "Manage meetings",
		Before: withDB(env),
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List meetings, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Only meetings in this folder"},
				},
				Action: func(c *cli.Context) error {
					meetings, err := ops.ListMeetings(c.Context, env.db, ops.ListMeetingsInput{FolderID: c.String("folder")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(meetings)
				},
			},
			{
				Name:  "create",
				Usage: "Create a meeting",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Title (default: Untitled Meeting)"},
					&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Folder ID"},
					&cli.StringFlag{Name: "scheduled-at", Usage: "Start time (RFC 3339 or datetime-local)"},
				},
				Action: func(c *cli.Context) error {
					input := ops.CreateMeetingInput{Title: c.String("title")}
					if v := c.String("folder"); v != "" {
						input.FolderID = &v
					}
					if v := c.String("scheduled-at"); v != "" {
						input.ScheduledAt = &v
					}
					m, err := ops.CreateMeeting(c.Context, env.db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(m)
				},
			},
			{
				Name:      "get",
				Usage:     "Show a meeting",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					m, err := ops.GetMeeting(c.Context, env.db, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(m)
				},
			},
			{
				Name:      "update",
				Usage:     "Update meeting fields",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
					&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Move to folder (empty string unfiles)"},
					&cli.StringFlag{Name: "scheduled-at", Usage: "New start time (empty string clears)"},
					&cli.StringFlag{Name: "summary", Usage: "Replace the summary (empty string clears)"},
				},
				Action: func(c *cli.Context) error {
					input := ops.UpdateMeetingInput{ID: c.Args().First()}
					if c.IsSet("title") {
						v := c.String("title")
						input.Title = &v
					}
					input.FolderID = optionalFlag(c, "folder")
					input.ScheduledAt = optionalFlag(c, "scheduled-at")
					input.Summary = optionalFlag(c, "summary")

					m, err := ops.UpdateMeeting(c.Context, env.db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(m)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a meeting and its transcript history",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if err := ops.DeleteMeeting(c.Context, env.db, id); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"deleted": true, "id": id})
				},
			},
			{
				Name:      "clear",
				Usage:     "Clear transcript and summary",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					m, err := ops.ClearMeeting(c.Context, env.db, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(m)
				},
			},
			{
				Name:      "summarize",
				Usage:     "Summarize the transcript with the AI vendor",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "style", Usage: "Summary style (default: Meeting Notes)"},
				},
				Action: func(c *cli.Context) error {
					m, err := ops.Summarize(c.Context, env.db, env.gw, ops.SummarizeInput{
						MeetingID: c.Args().First(),
						Style:     c.String("style"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(m)
				},
			},
		},
	}
}

// transcriptCmd creates the transcript command group.
func transcriptCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:   "transcript",
		Usage:  "Edit transcripts and show their history",
		Before: withDB(env),
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Replace the transcript (reads text from --text or stdin)",
				ArgsUsage: "<meeting-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text", Usage: "Transcript text"},
				},
				Action: func(c *cli.Context) error {
					text := c.String("text")
					if !c.IsSet("text") && stdinHasData() {
						var err error
						if text, err = readStdin(maxStdinBytes); err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
					}
					m, err := ops.UpdateTranscript(c.Context, env.db, ops.UpdateTranscriptInput{
						MeetingID: c.Args().First(),
						Text:      text,
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(m)
				},
			},
			{
				Name:      "history",
				Usage:     "List transcript edits, newest first",
				ArgsUsage: "<meeting-id>",
				Action: func(c *cli.Context) error {
					edits, err := ops.TranscriptHistory(c.Context, env.db, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(edits)
				},
			},
		},
	}
}

// icsCmd creates the ics command.
func icsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "ics",
		Usage:     "Export a meeting as an iCalendar invite",
		ArgsUsage: "<meeting-id>",
		Before:    withDB(env),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output .ics file (\"-\" for stdout; default: <home>/exports/meeting-<id>.ics)"},
		},
		Action: func(c *cli.Context) error {
			if c.String("out") == "-" {
				cal, err := ops.ExportCalendar(c.Context, env.db, c.Args().First())
				if err != nil {
					return outputError(err)
				}
				_, err = io.WriteString(os.Stdout, cal.Body)
				return err
			}

			output, err := ops.SaveCalendar(c.Context, env.db, ops.SaveCalendarInput{
				MeetingID: c.Args().First(),
				Path:      c.String("out"),
				Dir:       filepath.Join(env.home, "exports"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// optionalFlag maps a string flag onto a tri-state update: unset leaves the
// field alone, an empty value clears it.
func optionalFlag(c *cli.Context, name string) ops.Optional[string] {
	if !c.IsSet(name) {
		return ops.Optional[string]{}
	}
	v := c.String(name)
	if strings.TrimSpace(v) == "" {
		return ops.Null[string]()
	}
	return ops.Some(v)
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if appErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
