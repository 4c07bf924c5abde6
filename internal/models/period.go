package models

import "time"

// Period selects the start boundary of a statistics query.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
	PeriodAll     Period = "all"
)

// ParsePeriod maps a request string onto the closed period set. Anything
// unrecognized becomes PeriodAll, matching the original dashboard's
// default-to-all-time behavior, but through an explicit variant so callers
// can reject it at the boundary if they choose.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return Period(s)
	default:
		return PeriodAll
	}
}

// Start returns the inclusive lower time boundary for the period relative
// to now: daily is midnight of the current local day, the rolling periods
// subtract a fixed day count, and PeriodAll is unbounded.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodDaily:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeekly:
		return now.AddDate(0, 0, -7)
	case PeriodMonthly:
		return now.AddDate(0, 0, -30)
	case PeriodYearly:
		return now.AddDate(0, 0, -365)
	default:
		return time.Time{}
	}
}
