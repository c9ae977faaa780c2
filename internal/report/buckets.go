package report

import (
	"fmt"
	"strings"

	"expensetracker/internal/core"
)

// BucketMode selects how a trailing window is cut into month buckets.
type BucketMode string

const (
	// BucketCalendar emits one bucket per calendar month touching the window.
	BucketCalendar BucketMode = "calendar"
	// BucketLegacy30 walks back from the first day of the current month in
	// 30-day steps, window_days/30 times, snapping each point to its month.
	// Short months can be skipped (March 1 minus 30 days is in January).
	BucketLegacy30 BucketMode = "legacy30"
)

func ParseBucketMode(s string) (BucketMode, error) {
	switch BucketMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", BucketCalendar:
		return BucketCalendar, nil
	case BucketLegacy30:
		return BucketLegacy30, nil
	}
	return "", fmt.Errorf("unknown bucket mode %q", s)
}

// Bucket is a month-sized slice of the window. End is inclusive.
type Bucket struct {
	Label string
	Start core.Date
	End   core.Date
}

func (b Bucket) Contains(d core.Date) bool {
	return !d.Before(b.Start.Time) && !d.After(b.End.Time)
}

func newMonthBucket(anyDay core.Date) Bucket {
	start := core.NewDate(anyDay.Year(), int(anyDay.Month()), 1)
	end := core.Date{Time: start.AddDate(0, 1, -1)}
	return Bucket{
		Label: start.Format("January 2006"),
		Start: start,
		End:   end,
	}
}

// MonthBuckets returns the buckets for the window [start, today], oldest first.
func MonthBuckets(mode BucketMode, start, today core.Date, windowDays int) []Bucket {
	if mode == BucketLegacy30 {
		return legacyBuckets(today, windowDays)
	}
	return calendarBuckets(start, today)
}

func calendarBuckets(start, today core.Date) []Bucket {
	if start.After(today.Time) {
		start, today = today, start
	}
	var out []Bucket
	cursor := core.NewDate(start.Year(), int(start.Month()), 1)
	last := core.NewDate(today.Year(), int(today.Month()), 1)
	for !cursor.After(last.Time) {
		out = append(out, newMonthBucket(cursor))
		cursor = core.Date{Time: cursor.AddDate(0, 1, 0)}
	}
	return out
}

func legacyBuckets(today core.Date, windowDays int) []Bucket {
	count := windowDays / 30
	if count < 1 {
		count = 1
	}
	anchor := core.NewDate(today.Year(), int(today.Month()), 1)
	seen := make(map[string]bool, count)
	walked := make([]Bucket, 0, count)
	for i := 0; i < count; i++ {
		point := core.Date{Time: anchor.AddDate(0, 0, -30*i)}
		b := newMonthBucket(point)
		if seen[b.Label] {
			continue
		}
		seen[b.Label] = true
		walked = append(walked, b)
	}
	// The walk runs backwards; report oldest first.
	out := make([]Bucket, len(walked))
	for i, b := range walked {
		out[len(walked)-1-i] = b
	}
	return out
}

// daysBack returns today minus days as a calendar date.
func daysBack(today core.Date, days int) core.Date {
	return core.Date{Time: today.Time.AddDate(0, 0, -days)}
}
