package jobview

import (
	"sort"
	"strings"

	"github.com/timmy/hakconsole/internal/domain"
)

// Sortable column names, as used by the jobs table.
const (
	SortByName      = "name"
	SortByUUID      = "uuid"
	SortByProvider  = "providerName"
	SortByPublisher = "publisherName"
	SortByState     = "stateLabel"
	SortByCreated   = "created"
	SortByStarted   = "started"
	SortByCompleted = "completed"
	SortByDuration  = "duration"
)

// FilterRows returns the rows whose uuid, name, plugin names or state label
// contain query, ignoring case. An empty query returns rows unchanged.
func FilterRows(rows []Row, query string) []Row {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		for _, field := range []string{r.UUID, r.Name, r.ProviderName, r.PublisherName, r.StateLabel} {
			if strings.Contains(strings.ToLower(field), query) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// SortRows sorts rows in place by the named column. Timestamp and duration
// columns compare the underlying instants rather than the rendered text.
// Unknown columns leave the order untouched. The sort is stable.
func SortRows(rows []Row, by string, desc bool) {
	less := lessFunc(by)
	if less == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func lessFunc(by string) func(a, b Row) bool {
	switch by {
	case SortByName:
		return func(a, b Row) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortByUUID:
		return func(a, b Row) bool { return a.UUID < b.UUID }
	case SortByProvider:
		return func(a, b Row) bool { return a.ProviderName < b.ProviderName }
	case SortByPublisher:
		return func(a, b Row) bool { return a.PublisherName < b.PublisherName }
	case SortByState:
		return func(a, b Row) bool { return a.StateLabel < b.StateLabel }
	case SortByCreated:
		return func(a, b Row) bool { return millisOrZero(a.Job.Created) < millisOrZero(b.Job.Created) }
	case SortByStarted:
		return func(a, b Row) bool { return millisOrZero(a.Job.Started) < millisOrZero(b.Job.Started) }
	case SortByCompleted:
		return func(a, b Row) bool { return millisOrZero(a.Job.Completed) < millisOrZero(b.Job.Completed) }
	case SortByDuration:
		return func(a, b Row) bool {
			am, aok := DurationMinutes(a.Job.Created, a.Job.Completed)
			bm, bok := DurationMinutes(b.Job.Created, b.Job.Completed)
			if aok != bok {
				return !aok
			}
			return am < bm
		}
	default:
		return nil
	}
}

func millisOrZero(ts domain.Timestamp) int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.Millis()
}

// Page returns at most limit rows starting at offset. A non-positive limit
// means no limit.
func Page(rows []Row, offset, limit int) []Row {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []Row{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}
