package model

// DateBucket is one of the five fixed recency categories used to group
// threads for display. Buckets are mutually exclusive and ordered.
type DateBucket int

const (
	BucketToday DateBucket = iota
	BucketYesterday
	BucketThisWeek
	BucketLast30Days
	BucketOlder
)

// String returns the UI-facing bucket label.
func (b DateBucket) String() string {
	switch b {
	case BucketToday:
		return "Today"
	case BucketYesterday:
		return "Yesterday"
	case BucketThisWeek:
		return "This week"
	case BucketLast30Days:
		return "Last 30 days"
	default:
		return "Older"
	}
}

// BucketOrder is the fixed display order of the buckets.
var BucketOrder = []DateBucket{
	BucketToday,
	BucketYesterday,
	BucketThisWeek,
	BucketLast30Days,
	BucketOlder,
}

// ThreadGroup is one non-empty bucket of threads, sorted most recent first.
type ThreadGroup struct {
	Label   string   `json:"label"`
	Threads []Thread `json:"threads"`
}
