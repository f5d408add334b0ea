package ops

import (
	"context"
	"database/sql"

	"github.com/teamtalk/talktome/internal/meeting"
)

// CalendarOutput is an iCalendar attachment for one meeting.
type CalendarOutput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Body        string `json:"ics"`
}

// ExportCalendar renders a one-hour calendar event for a meeting.
func ExportCalendar(ctx context.Context, database *sql.DB, id string) (*CalendarOutput, error) {
	m, err := GetMeeting(ctx, database, id)
	if err != nil {
		return nil, err
	}
	return &CalendarOutput{
		Filename:    meeting.ICSFilename(m.ID),
		ContentType: meeting.ICSContentType,
		Body:        meeting.RenderICS(m, now()),
	}, nil
}
