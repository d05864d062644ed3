package patch

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts covers the timestamp shapes this program encounters: store
// timestamps (RFC3339), git log --format=%ai, git's default date output,
// and the RFC2822-style Date: header from format-patch.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"Mon Jan 2 15:04:05 2006 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC1123Z,
	time.RFC1123,
}

// FormatRelativeTime converts an absolute timestamp string into a coarse
// relative label ("just now", "3 days ago"). Unparseable input is returned
// unchanged.
func FormatRelativeTime(dateString string) string {
	var when time.Time
	parsed := false
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(dateString)); err == nil {
			when = t
			parsed = true
			break
		}
	}
	if !parsed {
		return dateString
	}

	seconds := int(time.Since(when).Seconds())
	if seconds < 0 {
		seconds = 0
	}

	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 7*86400:
		return plural(seconds/86400, "day")
	case seconds < 30*86400:
		return plural(seconds/(7*86400), "week")
	case seconds < 365*86400:
		return plural(seconds/(30*86400), "month")
	default:
		return plural(seconds/(365*86400), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
