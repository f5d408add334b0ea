package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/teamtalk/talktome/internal/db"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/meeting"
)

// UpdateTranscriptInput contains parameters for the UpdateTranscript operation.
type UpdateTranscriptInput struct {
	MeetingID string `json:"meetingId"`
	Text      string `json:"text"`
}

// UpdateTranscript replaces a meeting's transcript and records the change.
// Text equal to the stored transcript returns the meeting unchanged and
// writes no history.
func UpdateTranscript(ctx context.Context, database *sql.DB, input UpdateTranscriptInput) (*meeting.Meeting, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, errors.NewInvalidRequest("text required")
	}
	id := strings.TrimSpace(input.MeetingID)
	if id == "" {
		return nil, errors.NewInvalidRequest("meetingId required")
	}

	text := input.Text
	return writeTranscript(ctx, database, db.TranscriptWrite{MeetingID: id, Text: &text})
}

// TranscriptHistory returns a meeting's transcript edits, newest first.
func TranscriptHistory(ctx context.Context, database *sql.DB, meetingID string) ([]meeting.TranscriptEdit, error) {
	m, err := GetMeeting(ctx, database, meetingID)
	if err != nil {
		return nil, err
	}
	return db.ListTranscriptEdits(ctx, database, m.ID)
}

// ClearMeeting removes the transcript and summary. Dropping a non-empty
// transcript is recorded as an edit to "".
func ClearMeeting(ctx context.Context, database *sql.DB, id string) (*meeting.Meeting, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id required")
	}
	return writeTranscript(ctx, database, db.TranscriptWrite{MeetingID: id, ClearSummary: true})
}

// writeTranscript stamps w with an edit ID and the current time and applies it.
func writeTranscript(ctx context.Context, database *sql.DB, w db.TranscriptWrite) (*meeting.Meeting, error) {
	editID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	w.EditID = editID
	w.Now = now()

	res, err := db.WriteTranscript(ctx, database, w)
	if err != nil {
		return nil, err
	}
	return res.Meeting, nil
}
