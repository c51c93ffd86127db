// Package timeframe_test contains tests for the timeframe package
package timeframe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/timeframe"
)

func mustLoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestParser(t *testing.T) {
	fixedTime := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	parser := timeframe.NewParser(func() time.Time { return fixedTime })

	testCases := []struct {
		name           string
		params         timeframe.ParserParams
		expectedFrom   time.Time
		expectedTo     time.Time
		expectedBucket timeframe.BucketSize
		expectedError  bool
	}{
		{
			name:           "defaults to last 7 days",
			params:         timeframe.ParserParams{},
			expectedFrom:   time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			expectedTo:     fixedTime,
			expectedBucket: timeframe.BucketSizeDay,
		},
		{
			name:           "today is clamped to now",
			params:         timeframe.ParserParams{FromDate: "2024-03-15", ToDate: "2024-03-15"},
			expectedFrom:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			expectedTo:     fixedTime,
			expectedBucket: timeframe.BucketSizeHour,
		},
		{
			name:           "past day ends at end of day",
			params:         timeframe.ParserParams{FromDate: "2024-03-14", ToDate: "2024-03-14"},
			expectedFrom:   time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
			expectedTo:     time.Date(2024, 3, 14, 23, 59, 59, 999999999, time.UTC),
			expectedBucket: timeframe.BucketSizeHour,
		},
		{
			name:           "explicit bucket",
			params:         timeframe.ParserParams{FromDate: "2024-01-01", ToDate: "2024-03-01", Bucket: "week"},
			expectedFrom:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			expectedTo:     time.Date(2024, 3, 1, 23, 59, 59, 999999999, time.UTC),
			expectedBucket: timeframe.BucketSizeWeek,
		},
		{
			name:          "invalid from date",
			params:        timeframe.ParserParams{FromDate: "15/03/2024"},
			expectedError: true,
		},
		{
			name:          "invalid timezone",
			params:        timeframe.ParserParams{Tz: "Mars/Base"},
			expectedError: true,
		},
		{
			name:          "unknown bucket",
			params:        timeframe.ParserParams{Bucket: "minute"},
			expectedError: true,
		},
		{
			name:          "from after to",
			params:        timeframe.ParserParams{FromDate: "2024-03-10", ToDate: "2024-03-01"},
			expectedError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tf, err := parser.Parse(tc.params)
			if tc.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expectedFrom.Equal(tf.From), "from: %s", tf.From)
			assert.True(t, tc.expectedTo.Equal(tf.To), "to: %s", tf.To)
			assert.Equal(t, tc.expectedBucket, tf.BucketSize)
		})
	}
}

func TestParserTimezone(t *testing.T) {
	tokyo := mustLoadLocation(t, "Asia/Tokyo")
	// 23:30 UTC on the 14th is already the 15th in Tokyo.
	fixedTime := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC)
	parser := timeframe.NewParser(func() time.Time { return fixedTime })

	tf, err := parser.Parse(timeframe.ParserParams{FromDate: "2024-03-15", Tz: "Asia/Tokyo"})
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 15, 0, 0, 0, 0, tokyo).Equal(tf.From))
	assert.Equal(t, "Asia/Tokyo", tf.Tz.String())
}

func TestTruncateToBucket(t *testing.T) {
	ts := time.Date(2024, 3, 14, 15, 45, 10, 0, time.UTC) // Thursday

	assert.Equal(t, time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC), timeframe.TruncateToBucket(ts, timeframe.BucketSizeHour, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), timeframe.TruncateToBucket(ts, timeframe.BucketSizeDay, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), timeframe.TruncateToBucket(ts, timeframe.BucketSizeWeek, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), timeframe.TruncateToBucket(ts, timeframe.BucketSizeMonth, time.UTC))

	sunday := time.Date(2024, 3, 17, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), timeframe.TruncateToBucket(sunday, timeframe.BucketSizeWeek, time.UTC))

	nyc := mustLoadLocation(t, "America/New_York")
	day := timeframe.TruncateToBucket(time.Date(2024, 3, 14, 2, 0, 0, 0, time.UTC), timeframe.BucketSizeDay, nyc)
	assert.Equal(t, 13, day.Day())
}

func TestSeries(t *testing.T) {
	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 12, 23, 59, 59, 0, time.UTC)
	tf, err := timeframe.NewTimeFrame(from, to, timeframe.BucketSizeDay, nil)
	require.NoError(t, err)

	points := tf.Series([]time.Time{
		time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 12, 1, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 13, 1, 0, 0, 0, time.UTC), // outside
	})

	require.Len(t, points, 3)
	assert.Equal(t, timeframe.DateStat{Date: "2024-03-10T00:00:00Z", Count: 2}, points[0])
	assert.Equal(t, timeframe.DateStat{Date: "2024-03-11T00:00:00Z", Count: 0}, points[1])
	assert.Equal(t, timeframe.DateStat{Date: "2024-03-12T00:00:00Z", Count: 1}, points[2])

	assert.Equal(t, []string{"2024-03-10", "2024-03-11", "2024-03-12"}, tf.Labels())
}

func TestAppropriateBucketSize(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, timeframe.BucketSizeHour, timeframe.AppropriateBucketSize(base, base.Add(20*time.Hour)))
	assert.Equal(t, timeframe.BucketSizeDay, timeframe.AppropriateBucketSize(base, base.AddDate(0, 0, 30)))
	assert.Equal(t, timeframe.BucketSizeMonth, timeframe.AppropriateBucketSize(base, base.AddDate(0, 6, 0)))
}

func TestCalculateTrend(t *testing.T) {
	assert.Zero(t, timeframe.CalculateTrend(nil))
	rising := []timeframe.DateStat{{Count: 1}, {Count: 2}, {Count: 3}}
	assert.InDelta(t, 1.0, timeframe.CalculateTrend(rising), 0.0001)
	flat := []timeframe.DateStat{{Count: 4}, {Count: 4}}
	assert.InDelta(t, 0.0, timeframe.CalculateTrend(flat), 0.0001)
}
