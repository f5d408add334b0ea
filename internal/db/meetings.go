package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/meeting"
)

const meetingColumns = `id, title, scheduled_at, folder_id, transcript, summary, created_at, updated_at`

// InsertMeeting stores a new meeting.
// Returns NOT_FOUND (folder) if FolderID references a missing folder.
func InsertMeeting(ctx context.Context, q Querier, m *meeting.Meeting) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO meetings (`+meetingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Title, toNullMillis(m.ScheduledAt), toNullString(m.FolderID),
		toNullString(m.Transcript), toNullString(m.Summary),
		toMillis(m.CreatedAt), toMillis(m.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) && m.FolderID != nil {
			return errors.NewNotFound("folder", *m.FolderID)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetMeeting retrieves a meeting by ID.
func GetMeeting(ctx context.Context, q Querier, id string) (*meeting.Meeting, error) {
	row := q.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	m, err := scanMeeting(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("meeting", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return m, nil
}

// ListMeetings returns meetings newest first, optionally limited to one folder.
func ListMeetings(ctx context.Context, q Querier, folderID *string) ([]meeting.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings`
	var args []any
	if folderID != nil {
		query += ` WHERE folder_id = ?`
		args = append(args, *folderID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	meetings := []meeting.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		meetings = append(meetings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return meetings, nil
}

// UpdateMeeting writes title, scheduled_at, folder_id and summary, and sets
// updated_at to now. The transcript is not touched; use WriteTranscript.
func UpdateMeeting(ctx context.Context, q Querier, m *meeting.Meeting, now time.Time) error {
	result, err := q.ExecContext(ctx, `
		UPDATE meetings
		SET title = ?, scheduled_at = ?, folder_id = ?, summary = ?, updated_at = ?
		WHERE id = ?`,
		m.Title, toNullMillis(m.ScheduledAt), toNullString(m.FolderID),
		toNullString(m.Summary), toMillis(now), m.ID,
	)
	if err != nil {
		if isForeignKeyError(err) && m.FolderID != nil {
			return errors.NewNotFound("folder", *m.FolderID)
		}
		return errors.NewInternal(err)
	}
	if err := checkAffected(result, errors.NewNotFound("meeting", m.ID)); err != nil {
		return err
	}
	m.UpdatedAt = now.UTC().Truncate(time.Millisecond)
	return nil
}

// SetSummary stores a generated summary.
func SetSummary(ctx context.Context, q Querier, id, summary string, now time.Time) error {
	result, err := q.ExecContext(ctx,
		`UPDATE meetings SET summary = ?, updated_at = ? WHERE id = ?`,
		summary, toMillis(now), id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := checkAffected(result, errors.NewNotFound("meeting", id)); err != nil {
		return err
	}
	return nil
}

// DeleteMeeting removes a meeting and, by cascade, its transcript edits.
func DeleteMeeting(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := checkAffected(result, errors.NewNotFound("meeting", id)); err != nil {
		return err
	}
	return nil
}

func scanMeeting(row rowScanner) (*meeting.Meeting, error) {
	var (
		m           meeting.Meeting
		scheduledAt sql.NullInt64
		folderID    sql.NullString
		transcript  sql.NullString
		summary     sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(
		&m.ID, &m.Title, &scheduledAt, &folderID,
		&transcript, &summary, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.ScheduledAt = fromNullMillis(scheduledAt)
	m.FolderID = fromNullString(folderID)
	m.Transcript = fromNullString(transcript)
	m.Summary = fromNullString(summary)
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)

	return &m, nil
}
