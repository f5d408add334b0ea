package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/meeting"
)

// TranscriptWrite describes one audited transcript write.
type TranscriptWrite struct {
	MeetingID string

	// Text is the new transcript; nil stores NULL.
	Text *string

	// ClearSummary also sets the summary to NULL.
	ClearSummary bool

	// Fields, when non-nil, is written with UpdateMeeting in the same
	// transaction. Its ID must be MeetingID.
	Fields *meeting.Meeting

	// EditID is the ID used for the audit row, if one is written.
	EditID string

	Now time.Time
}

// TranscriptResult is the outcome of WriteTranscript.
type TranscriptResult struct {
	Meeting *meeting.Meeting

	// Edit is the audit row written, nil when the text was unchanged.
	Edit *meeting.TranscriptEdit
}

// WriteTranscript applies w atomically. When the new text (NULL read as "")
// differs from the stored one, an edit row {from, to} is inserted and the
// transcript updated in the same transaction. Equal text writes no edit row;
// the meeting row still changes when ClearSummary or Fields is set.
func WriteTranscript(ctx context.Context, database *sql.DB, w TranscriptWrite) (*TranscriptResult, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := GetMeeting(ctx, tx, w.MeetingID)
	if err != nil {
		return nil, err
	}

	fromText := current.TranscriptText()
	toText := ""
	if w.Text != nil {
		toText = *w.Text
	}
	changed := fromText != toText

	if !changed && !w.ClearSummary && w.Fields == nil {
		return &TranscriptResult{Meeting: current}, nil
	}

	if w.Fields != nil {
		if err := UpdateMeeting(ctx, tx, w.Fields, w.Now); err != nil {
			return nil, err
		}
	}

	var edit *meeting.TranscriptEdit
	if changed {
		edit = &meeting.TranscriptEdit{
			ID:        w.EditID,
			MeetingID: w.MeetingID,
			FromText:  fromText,
			ToText:    toText,
			CreatedAt: w.Now.UTC().Truncate(time.Millisecond),
		}
		if err := insertEdit(ctx, tx, edit); err != nil {
			return nil, err
		}
	}

	if changed || w.ClearSummary {
		query := `UPDATE meetings SET transcript = ?, updated_at = ?`
		if w.ClearSummary {
			query += `, summary = NULL`
		}
		query += ` WHERE id = ?`
		if _, err := tx.ExecContext(ctx, query, toNullString(w.Text), toMillis(w.Now), w.MeetingID); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	updated, err := GetMeeting(ctx, tx, w.MeetingID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("commit transcript: %w", err))
	}

	return &TranscriptResult{Meeting: updated, Edit: edit}, nil
}

// ListTranscriptEdits returns a meeting's edit history, newest first.
func ListTranscriptEdits(ctx context.Context, q Querier, meetingID string) ([]meeting.TranscriptEdit, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, meeting_id, from_text, to_text, created_at
		FROM transcript_edits
		WHERE meeting_id = ?
		ORDER BY created_at DESC, id DESC`, meetingID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	edits := []meeting.TranscriptEdit{}
	for rows.Next() {
		var (
			e         meeting.TranscriptEdit
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.MeetingID, &e.FromText, &e.ToText, &createdAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.CreatedAt = fromMillis(createdAt)
		edits = append(edits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return edits, nil
}

// CountTranscriptEdits returns the number of edit rows for a meeting.
func CountTranscriptEdits(ctx context.Context, q Querier, meetingID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transcript_edits WHERE meeting_id = ?`, meetingID).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// insertEdit appends an audit row. Edit rows are never updated.
func insertEdit(ctx context.Context, q Querier, e *meeting.TranscriptEdit) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transcript_edits (id, meeting_id, from_text, to_text, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.MeetingID, e.FromText, e.ToText, toMillis(e.CreatedAt),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
