package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/teamtalk/talktome/internal/db"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/meeting"
)

// MaxTitleChars bounds meeting titles (the UI input is limited to the same length).
const MaxTitleChars = 100

// ListMeetingsInput contains parameters for the ListMeetings operation.
type ListMeetingsInput struct {
	// FolderID limits the listing to one folder when non-empty.
	FolderID string
}

// CreateMeetingInput contains parameters for the CreateMeeting operation.
type CreateMeetingInput struct {
	Title       string  `json:"title"`
	FolderID    *string `json:"folderId"`
	ScheduledAt *string `json:"scheduledAt"`
}

// UpdateMeetingInput contains parameters for the UpdateMeeting operation.
// Unset fields are left unchanged.
type UpdateMeetingInput struct {
	ID          string           `json:"-"`
	Title       *string          `json:"title"`
	FolderID    Optional[string] `json:"folderId"`
	ScheduledAt Optional[string] `json:"scheduledAt"`
	Summary     Optional[string] `json:"summary"`
	Transcript  *string          `json:"transcript"`
}

// ListMeetings returns meetings newest first, optionally within one folder.
func ListMeetings(ctx context.Context, database *sql.DB, input ListMeetingsInput) ([]meeting.Meeting, error) {
	folderID := cleanOptionalString(&input.FolderID)
	if folderID != nil {
		if err := requireFolder(ctx, database, *folderID); err != nil {
			return nil, err
		}
	}
	return db.ListMeetings(ctx, database, folderID)
}

// CreateMeeting creates a meeting. A blank title becomes meeting.DefaultTitle.
func CreateMeeting(ctx context.Context, database *sql.DB, input CreateMeetingInput) (*meeting.Meeting, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = meeting.DefaultTitle
	}
	if len([]rune(title)) > MaxTitleChars {
		return nil, errors.NewInvalidRequest("title must be at most 100 characters")
	}

	folderID := cleanOptionalString(input.FolderID)
	if folderID != nil {
		if err := requireFolder(ctx, database, *folderID); err != nil {
			return nil, err
		}
	}

	scheduledAt, err := parseSchedule(input.ScheduledAt)
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	ts := now()
	m := &meeting.Meeting{
		ID:          id,
		Title:       title,
		ScheduledAt: scheduledAt,
		FolderID:    folderID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := db.InsertMeeting(ctx, database, m); err != nil {
		return nil, err
	}
	return db.GetMeeting(ctx, database, id)
}

// GetMeeting retrieves a meeting by ID.
func GetMeeting(ctx context.Context, database *sql.DB, id string) (*meeting.Meeting, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id required")
	}
	return db.GetMeeting(ctx, database, id)
}

// UpdateMeeting applies the supplied fields. Every field is validated before
// anything is written; a transcript change is audited and committed in the
// same transaction as the other fields.
func UpdateMeeting(ctx context.Context, database *sql.DB, input UpdateMeetingInput) (*meeting.Meeting, error) {
	m, err := GetMeeting(ctx, database, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Transcript != nil && strings.TrimSpace(*input.Transcript) == "" {
		return nil, errors.NewInvalidRequest("text required")
	}

	changed := false

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errors.NewInvalidRequest("title must not be empty")
		}
		if len([]rune(title)) > MaxTitleChars {
			return nil, errors.NewInvalidRequest("title must be at most 100 characters")
		}
		m.Title = title
		changed = true
	}

	if input.FolderID.Set {
		folderID := cleanOptionalString(input.FolderID.Value)
		if folderID != nil {
			if err := requireFolder(ctx, database, *folderID); err != nil {
				return nil, err
			}
		}
		m.FolderID = folderID
		changed = true
	}

	if input.ScheduledAt.Set {
		scheduledAt, err := parseSchedule(input.ScheduledAt.Value)
		if err != nil {
			return nil, err
		}
		m.ScheduledAt = scheduledAt
		changed = true
	}

	if input.Summary.Set {
		m.Summary = input.Summary.Value
		changed = true
	}

	if input.Transcript != nil {
		w := db.TranscriptWrite{MeetingID: m.ID, Text: input.Transcript}
		if changed {
			w.Fields = m
		}
		return writeTranscript(ctx, database, w)
	}

	if changed {
		if err := db.UpdateMeeting(ctx, database, m, now()); err != nil {
			return nil, err
		}
	}
	return db.GetMeeting(ctx, database, m.ID)
}

// DeleteMeeting deletes a meeting and its transcript history.
func DeleteMeeting(ctx context.Context, database *sql.DB, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.NewInvalidRequest("id required")
	}
	return db.DeleteMeeting(ctx, database, id)
}

func requireFolder(ctx context.Context, database *sql.DB, id string) error {
	ok, err := db.FolderExists(ctx, database, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewNotFound("folder", id)
	}
	return nil
}

// parseSchedule maps nil/blank to nil and parses anything else.
func parseSchedule(s *string) (*time.Time, error) {
	s = cleanOptionalString(s)
	if s == nil {
		return nil, nil
	}
	t, err := meeting.ParseScheduledAt(*s)
	if err != nil {
		return nil, errors.NewInvalidRequest("scheduledAt must be a date-time (RFC 3339 or YYYY-MM-DDTHH:MM)")
	}
	return &t, nil
}
