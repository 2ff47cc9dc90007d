// Package analytics turns a transaction ledger into derived signals: budget
// health, subscription drift, next-entry suggestions and spending insight
// text. Every function here is pure; the reference time is always passed in.
package analytics

import "time"

// TimeBucket is a coarse part of the day.
type TimeBucket string

const (
	BucketPagi  TimeBucket = "pagi"  // 04:00-10:59
	BucketSiang TimeBucket = "siang" // 11:00-14:59
	BucketSore  TimeBucket = "sore"  // 15:00-18:59
	BucketMalam TimeBucket = "malam" // 19:00-03:59
)

// TimeContext holds the calendar facts the suggestion ranker compares.
type TimeContext struct {
	Bucket   TimeBucket
	Weekend  bool
	Payday   bool
	Hour     int
	MonthDay int
}

// NewTimeContext derives the calendar facts for t in t's own location.
func NewTimeContext(t time.Time) TimeContext {
	return TimeContext{
		Bucket:   BucketOf(t.Hour()),
		Weekend:  IsWeekend(t),
		Payday:   InPaydayWindow(t),
		Hour:     t.Hour(),
		MonthDay: t.Day(),
	}
}

// BucketOf maps an hour of the day to its bucket, split at 4, 11, 15 and 19.
func BucketOf(hour int) TimeBucket {
	switch {
	case hour >= 4 && hour < 11:
		return BucketPagi
	case hour >= 11 && hour < 15:
		return BucketSiang
	case hour >= 15 && hour < 19:
		return BucketSore
	default:
		return BucketMalam
	}
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// InPaydayWindow reports whether t is on or after the 25th, or on or before
// the 5th, of its month.
func InPaydayWindow(t time.Time) bool {
	d := t.Day()
	return d >= 25 || d <= 5
}

// daysInMonth returns the number of days in t's month.
func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
