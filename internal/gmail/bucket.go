package gmail

import (
	"sort"
	"time"

	"github.com/postamail/posta/internal/model"
)

// ClassifyDate assigns a last-message timestamp to a recency bucket,
// evaluated against the local calendar date of now. Buckets are checked in
// priority order: Today, Yesterday, ThisWeek (week starts Monday),
// Last30Days (trailing 30 days), Older.
func ClassifyDate(ts int64, now time.Time) model.DateBucket {
	today := midnight(now)
	date := midnight(time.UnixMilli(ts).In(now.Location()))

	switch {
	case date.Equal(today):
		return model.BucketToday
	case date.Equal(today.AddDate(0, 0, -1)):
		return model.BucketYesterday
	case !date.Before(weekStart(today)):
		return model.BucketThisWeek
	case !date.Before(today.AddDate(0, 0, -30)):
		return model.BucketLast30Days
	default:
		return model.BucketOlder
	}
}

// midnight truncates t to the start of its calendar day, keeping the location.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekStart returns the Monday of the week containing day.
func weekStart(day time.Time) time.Time {
	daysSinceMonday := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -daysSinceMonday)
}

// GroupThreadsByDate buckets threads by their last-message timestamp and
// emits the non-empty buckets in fixed order, each sorted descending by
// timestamp. The grouping is a pure function of the input and now; the input
// slice is not modified.
func GroupThreadsByDate(threads []model.Thread, now time.Time) []model.ThreadGroup {
	ordered := make([]model.Thread, len(threads))
	copy(ordered, threads)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LastMessageTS > ordered[j].LastMessageTS
	})

	buckets := make(map[model.DateBucket][]model.Thread)
	for _, t := range ordered {
		b := ClassifyDate(t.LastMessageTS, now)
		buckets[b] = append(buckets[b], t)
	}

	var groups []model.ThreadGroup
	for _, b := range model.BucketOrder {
		if len(buckets[b]) == 0 {
			continue
		}
		groups = append(groups, model.ThreadGroup{
			Label:   b.String(),
			Threads: buckets[b],
		})
	}
	return groups
}
