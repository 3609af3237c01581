package jobview

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/hakconsole/internal/domain"
)

// TimestampLayout renders instants as "DD Mon YYYY HH:MM:SS".
const TimestampLayout = "02 Jan 2006 15:04:05"

// FormatTimestamp renders ts in loc. Absent timestamps render as "".
// A nil loc means time.Local.
func FormatTimestamp(ts domain.Timestamp, loc *time.Location) string {
	if ts.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ts.Millis()).In(loc).Format(TimestampLayout)
}

// DurationMinutes returns the elapsed minutes between start and end,
// rounded up. ok is false when either endpoint is absent.
func DurationMinutes(start, end domain.Timestamp) (minutes int64, ok bool) {
	if start.IsZero() || end.IsZero() {
		return 0, false
	}
	elapsed := float64(end.Millis() - start.Millis())
	return int64(math.Ceil(elapsed / 1000 / 60)), true
}

// ComputeDuration renders the elapsed time between start and end as
// "<n> min" below an hour and "<h> hrs" otherwise. Hours are truncated.
func ComputeDuration(start, end domain.Timestamp) string {
	// Mixed seconds and ms endpoints are normalized, unlike a raw end-start.
	minutes, ok := DurationMinutes(start, end)
	if !ok {
		return ""
	}
	if minutes < 60 {
		return strconv.FormatInt(minutes, 10) + " min"
	}
	return strconv.FormatInt(minutes/60, 10) + " hrs"
}

var htmlEntities = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"/", "&#x2F;",
)

// EscapeHTML escapes s for embedding in HTML text or attribute values.
// Forward slashes are escaped as well.
func EscapeHTML(s string) string {
	return htmlEntities.Replace(s)
}
