package collect

import (
	"fmt"
	"time"
)

// DateRange is an inclusive pair of calendar dates, start <= end.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates the start <= end invariant at construction so
// no caller can iterate a reversed range.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start = truncateToDay(start)
	end = truncateToDay(end)
	if start.After(end) {
		return DateRange{}, fmt.Errorf("start date %s is after end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return DateRange{Start: start, End: end}, nil
}

// Dates returns every day in the range, start and end included.
// The slice is rebuilt on each call, so iteration is restartable.
func (r DateRange) Dates() []time.Time {
	var dates []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Days reports the number of dates in the range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// ParseDate accepts YYYY-MM-DD or YYYYMMDD.
func ParseDate(s string) (time.Time, error) {
	layout := "20060102"
	if len(s) == 10 {
		layout = "2006-01-02"
	}
	d, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or YYYYMMDD", s)
	}
	return d, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
