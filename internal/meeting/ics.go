package meeting

import (
	"fmt"
	"strings"
	"time"
)

// ICSTimeLayout is the compact UTC calendar stamp (YYYYMMDDTHHMMSSZ).
const ICSTimeLayout = "20060102T150405Z"

// EventDuration is the fixed length of an exported meeting.
const EventDuration = time.Hour

// ICSContentType is the media type of RenderICS output.
const ICSContentType = "text/calendar; charset=utf-8"

// FormatICSTime formats t in UTC as YYYYMMDDTHHMMSSZ.
func FormatICSTime(t time.Time) string {
	return t.UTC().Format(ICSTimeLayout)
}

// ICSFilename is the attachment name for a meeting's calendar file.
func ICSFilename(id string) string {
	return fmt.Sprintf("meeting-%s.ics", id)
}

// RenderICS renders a single-event VCALENDAR for m, stamped at now.
// Lines are CRLF-terminated except the last.
func RenderICS(m *Meeting, now time.Time) string {
	start := m.EventStart()
	end := start.Add(EventDuration)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//TalkToMe//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		fmt.Sprintf("UID:%s@teamtalk", m.ID),
		"DTSTAMP:" + FormatICSTime(now),
		"DTSTART:" + FormatICSTime(start),
		"DTEND:" + FormatICSTime(end),
		"SUMMARY:" + flattenLines(m.Title),
	}
	if m.Summary != nil && *m.Summary != "" {
		lines = append(lines, "DESCRIPTION:"+flattenLines(*m.Summary))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")

	return strings.Join(lines, "\r\n")
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func flattenLines(s string) string {
	return lineBreaks.Replace(s)
}
