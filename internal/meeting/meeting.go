// Package meeting holds the domain types shared by the store, the
// operations layer and the HTTP/MCP surfaces.
package meeting

import "time"

// DefaultTitle is used when a meeting is created without a title.
const DefaultTitle = "Untitled Meeting"

// Folder is a named grouping of meetings.
type Folder struct {
	// ID is a ULID
	ID string `json:"id"`

	Name string `json:"name"`

	CreatedAt time.Time `json:"createdAt"`
}

// Meeting is a recorded session with an optional transcript and summary.
// Transcript and Summary are independent; either may be nil.
type Meeting struct {
	// ID is a ULID
	ID string `json:"id"`

	Title string `json:"title"`

	// ScheduledAt drives the calendar export; CreatedAt is used when nil.
	ScheduledAt *time.Time `json:"scheduledAt"`

	FolderID *string `json:"folderId"`

	Transcript *string `json:"transcript"`

	Summary *string `json:"summary"`

	CreatedAt time.Time `json:"createdAt"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// TranscriptText returns the transcript, or "" when none is stored.
func (m *Meeting) TranscriptText() string {
	if m.Transcript == nil {
		return ""
	}
	return *m.Transcript
}

// HasTranscript reports whether a non-blank transcript is stored.
func (m *Meeting) HasTranscript() bool {
	return m.Transcript != nil && trimmed(*m.Transcript) != ""
}

// EventStart is the calendar start time: ScheduledAt, else CreatedAt.
func (m *Meeting) EventStart() time.Time {
	if m.ScheduledAt != nil {
		return *m.ScheduledAt
	}
	return m.CreatedAt
}

// TranscriptEdit is an immutable audit record of one transcript change.
type TranscriptEdit struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meetingId"`
	FromText  string    `json:"fromText"`
	ToText    string    `json:"toText"`
	CreatedAt time.Time `json:"createdAt"`
}
