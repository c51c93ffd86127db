package timeframe

import (
	"fmt"
	"time"
)

// DateStat is one point of a time series.
type DateStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// BucketSize is the width of a time series bucket.
type BucketSize string

const (
	BucketSizeHour  BucketSize = "hour"
	BucketSizeDay   BucketSize = "day"
	BucketSizeWeek  BucketSize = "week"
	BucketSizeMonth BucketSize = "month"
)

const maxPoints = 1000

// ParseBucketSize validates a bucket name coming from a request.
func ParseBucketSize(s string) (BucketSize, error) {
	switch b := BucketSize(s); b {
	case BucketSizeHour, BucketSizeDay, BucketSizeWeek, BucketSizeMonth:
		return b, nil
	default:
		return "", fmt.Errorf("unknown bucket size: %s", s)
	}
}

// TimeFrame represents a period between two points in time
type TimeFrame struct {
	From       time.Time
	To         time.Time
	BucketSize BucketSize
	Tz         *time.Location
}

// NewTimeFrame builds a frame; a nil tz means UTC.
func NewTimeFrame(from, to time.Time, bucketSize BucketSize, tz *time.Location) (*TimeFrame, error) {
	if from.After(to) {
		return nil, fmt.Errorf("fromTime must be before toTime")
	}
	if _, err := ParseBucketSize(string(bucketSize)); err != nil {
		return nil, err
	}
	if tz == nil {
		tz = time.UTC
	}
	return &TimeFrame{From: from, To: to, BucketSize: bucketSize, Tz: tz}, nil
}

// NewAutoTimeFrame picks the bucket size from the length of the range.
func NewAutoTimeFrame(from, to time.Time, tz *time.Location) (*TimeFrame, error) {
	return NewTimeFrame(from, to, AppropriateBucketSize(from, to), tz)
}

// AppropriateBucketSize keeps series readable: hours for short ranges, months for long ones.
func AppropriateBucketSize(from, to time.Time) BucketSize {
	days := to.Sub(from).Hours() / 24

	switch {
	case days >= 3*30:
		return BucketSizeMonth
	case days >= 2:
		return BucketSizeDay
	default:
		return BucketSizeHour
	}
}

// Duration returns the length of the frame.
func (tf *TimeFrame) Duration() time.Duration {
	return tf.To.Sub(tf.From)
}

// Contains reports whether t falls inside the frame, bounds included.
func (tf *TimeFrame) Contains(t time.Time) bool {
	return !t.Before(tf.From) && !t.After(tf.To)
}

// TruncateToBucket truncates a time to its bucket boundary in the given timezone.
// Weeks start on Monday.
func TruncateToBucket(t time.Time, bucketSize BucketSize, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	localTime := t.In(loc)
	year, month, day := localTime.Date()

	switch bucketSize {
	case BucketSizeMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, loc)
	case BucketSizeWeek:
		weekday := int(localTime.Weekday())
		if weekday == 0 { // Sunday
			weekday = 7
		}
		return time.Date(year, month, day-(weekday-1), 0, 0, 0, 0, loc)
	case BucketSizeDay:
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	case BucketSizeHour:
		return time.Date(year, month, day, localTime.Hour(), 0, 0, 0, loc)
	default:
		return localTime
	}
}

func nextBucket(t time.Time, bucketSize BucketSize) time.Time {
	switch bucketSize {
	case BucketSizeMonth:
		return t.AddDate(0, 1, 0)
	case BucketSizeWeek:
		return t.AddDate(0, 0, 7)
	case BucketSizeDay:
		return t.AddDate(0, 0, 1)
	default:
		return t.Add(time.Hour)
	}
}

// Buckets returns the start of every bucket overlapping the frame.
func (tf *TimeFrame) Buckets() []time.Time {
	var buckets []time.Time
	current := TruncateToBucket(tf.From, tf.BucketSize, tf.Tz)
	for !current.After(tf.To) && len(buckets) < maxPoints {
		buckets = append(buckets, current)
		current = nextBucket(current, tf.BucketSize)
	}
	return buckets
}

// Series counts timestamps per bucket. Every bucket of the frame is present,
// empty ones with a zero count; timestamps outside the frame are ignored.
func (tf *TimeFrame) Series(timestamps []time.Time) []DateStat {
	counts := make(map[int64]int, len(timestamps))
	for _, ts := range timestamps {
		if !tf.Contains(ts) {
			continue
		}
		counts[TruncateToBucket(ts, tf.BucketSize, tf.Tz).Unix()]++
	}

	buckets := tf.Buckets()
	points := make([]DateStat, len(buckets))
	for i, bucket := range buckets {
		points[i] = DateStat{
			Date:  bucket.Format(time.RFC3339),
			Count: counts[bucket.Unix()],
		}
	}
	return points
}

// UserFormat is the layout used for human readable bucket labels.
func (tf *TimeFrame) UserFormat() string {
	switch tf.BucketSize {
	case BucketSizeHour:
		return "Jan 2 15:00"
	case BucketSizeMonth:
		return "Jan 2006"
	default:
		return "2006-01-02"
	}
}

// Labels returns a human readable label per bucket.
func (tf *TimeFrame) Labels() []string {
	buckets := tf.Buckets()
	labels := make([]string, len(buckets))
	for i, bucket := range buckets {
		labels[i] = bucket.Format(tf.UserFormat())
	}
	return labels
}

// CalculateTrend returns the least squares slope of the series.
func CalculateTrend(points []DateStat) float64 {
	if len(points) < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(points))

	for i, point := range points {
		x := float64(i)
		y := float64(point.Count)

		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	return (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
}
