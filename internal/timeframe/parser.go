package timeframe

import (
	"fmt"
	"time"
)

const defaultRangeDays = 7

// ParserParams are the raw query values of a stats request.
type ParserParams struct {
	FromDate string
	ToDate   string
	Tz       string
	Bucket   string
}

// Parser turns request parameters into a TimeFrame.
type Parser struct {
	now func() time.Time
}

// NewParser creates a parser; a nil clock uses time.Now.
func NewParser(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

// Parse defaults to the last seven days ending now. Dates are YYYY-MM-DD in
// the requested timezone; an end date never reaches past now.
func (p *Parser) Parse(params ParserParams) (*TimeFrame, error) {
	tzName := params.Tz
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone: %w", err)
	}

	now := p.now().In(loc)
	year, month, day := now.Date()
	from := time.Date(year, month, day-(defaultRangeDays-1), 0, 0, 0, 0, loc)
	to := now

	if params.FromDate != "" {
		date, err := time.ParseInLocation("2006-01-02", params.FromDate, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid 'from' date: %w", err)
		}
		from = date
	}

	if params.ToDate != "" {
		date, err := time.ParseInLocation("2006-01-02", params.ToDate, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid 'to' date: %w", err)
		}
		endOfDay := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 999999999, loc)
		if endOfDay.After(now) {
			endOfDay = now
		}
		to = endOfDay
	}

	if params.Bucket == "" {
		return NewAutoTimeFrame(from, to, loc)
	}
	bucket, err := ParseBucketSize(params.Bucket)
	if err != nil {
		return nil, err
	}
	return NewTimeFrame(from, to, bucket, loc)
}
