package meeting

import (
	"fmt"
	"strings"
	"time"
)

// scheduleLayouts are accepted for scheduledAt, most specific first.
// Layouts without a zone (HTML datetime-local, bare dates) are read in the server's local zone.
var scheduleLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseScheduledAt parses a user-supplied schedule time and returns it in UTC.
func ParseScheduledAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid scheduledAt %q", s)
}
