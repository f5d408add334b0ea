package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamtalk/talktome/internal/db"
	"github.com/teamtalk/talktome/internal/errors"
)

func TestUpdateTranscript_SameTextNoAudit(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	m, err := CreateMeeting(ctx, database, CreateMeetingInput{Title: "Standup"})
	require.NoError(t, err)

	first, err := UpdateTranscript(ctx, database, UpdateTranscriptInput{MeetingID: m.ID, Text: "we shipped"})
	require.NoError(t, err)

	same, err := UpdateTranscript(ctx, database, UpdateTranscriptInput{MeetingID: m.ID, Text: "we shipped"})
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, same.UpdatedAt)
	assert.Equal(t, "we shipped", *same.Transcript)

	edits, err := TranscriptHistory(ctx, database, m.ID)
	require.NoError(t, err)
	assert.Len(t, edits, 1)
}

func TestUpdateTranscript_DifferentTextOneAudit(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	m, err := CreateMeeting(ctx, database, CreateMeetingInput{Title: "Standup"})
	require.NoError(t, err)

	_, err = UpdateTranscript(ctx, database, UpdateTranscriptInput{MeetingID: m.ID, Text: "draft"})
	require.NoError(t, err)
	before, err := db.CountTranscriptEdits(ctx, database, m.ID)
	require.NoError(t, err)

	updated, err := UpdateTranscript(ctx, database, UpdateTranscriptInput{MeetingID: m.ID, Text: "final"})
	require.NoError(t, err)
	assert.Equal(t, "final", *updated.Transcript)

	edits, err := TranscriptHistory(ctx, database, m.ID)
	require.NoError(t, err)
	require.Len(t, edits, before+1)
	assert.Equal(t, "draft", edits[0].FromText)
	assert.Equal(t, "final", edits[0].ToText)
	assert.Equal(t, "", edits[1].FromText, "first edit from a null transcript")
	assert.Equal(t, m.ID, edits[0].MeetingID)
}

func TestUpdateTranscript_Validation(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	_, err := UpdateTranscript(ctx, database, UpdateTranscriptInput{MeetingID: "x", Text: ""})
	requireCode(t, err, errors.ErrInvalidRequest, "text required")

	_, err = UpdateTranscript(ctx, database, UpdateTranscriptInput{MeetingID: "missing", Text: "hi"})
	requireCode(t, err, errors.ErrNotFound, "")
}

func TestTranscriptHistory_MissingMeeting(t *testing.T) {
	_, err := TranscriptHistory(context.Background(), setupTestDB(t), "missing")
	requireCode(t, err, errors.ErrNotFound, "")
}

func TestClearMeeting(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	m, err := CreateMeeting(ctx, database, CreateMeetingInput{Title: "Standup"})
	require.NoError(t, err)
	_, err = UpdateTranscript(ctx, database, UpdateTranscriptInput{MeetingID: m.ID, Text: "words"})
	require.NoError(t, err)
	_, err = UpdateMeeting(ctx, database, UpdateMeetingInput{ID: m.ID, Summary: Some("- s")})
	require.NoError(t, err)

	cleared, err := ClearMeeting(ctx, database, m.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.Transcript)
	assert.Nil(t, cleared.Summary)

	edits, err := TranscriptHistory(ctx, database, m.ID)
	require.NoError(t, err)
	require.Len(t, edits, 2)
	assert.Equal(t, "words", edits[0].FromText)
	assert.Equal(t, "", edits[0].ToText)

	// clearing again writes nothing new
	_, err = ClearMeeting(ctx, database, m.ID)
	require.NoError(t, err)
	edits, err = TranscriptHistory(ctx, database, m.ID)
	require.NoError(t, err)
	assert.Len(t, edits, 2)

	_, err = ClearMeeting(ctx, database, "missing")
	requireCode(t, err, errors.ErrNotFound, "")
}
