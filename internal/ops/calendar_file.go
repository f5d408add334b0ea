package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/teamtalk/talktome/internal/errors"
)

// SaveCalendarInput contains parameters for the SaveCalendar operation.
type SaveCalendarInput struct {
	MeetingID string
	// Path is the destination file. When empty the invite is written to
	// Dir/meeting-<id>.ics.
	Path string
	Dir  string
}

// SaveCalendarOutput describes a written invite.
type SaveCalendarOutput struct {
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
	Bytes       int    `json:"bytes"`
}

// SaveCalendar writes a meeting's invite to disk. The file is written to a
// temporary name and renamed into place so an existing file survives failure.
func SaveCalendar(ctx context.Context, database *sql.DB, input SaveCalendarInput) (*SaveCalendarOutput, error) {
	cal, err := ExportCalendar(ctx, database, input.MeetingID)
	if err != nil {
		return nil, err
	}

	path := input.Path
	if path == "" {
		path = filepath.Join(input.Dir, cal.Filename)
	}
	if err := validateCalendarPath(path); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := createNoFollow(tempPath, 0o600)
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			return nil, appErr
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.WriteString(cal.Body); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted after validation.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &SaveCalendarOutput{
		Path:        path,
		ContentType: cal.ContentType,
		Bytes:       len(cal.Body),
	}, nil
}

// validateCalendarPath requires an .ics file that is not reached through ".."
// and is not itself a symlink.
func validateCalendarPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	if !strings.EqualFold(filepath.Ext(path), ".ics") {
		return errors.NewInvalidRequest("path must have .ics extension")
	}
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	if info, err := os.Lstat(filepath.Dir(path)); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// containsTraversal checks if path contains a ".." component.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
