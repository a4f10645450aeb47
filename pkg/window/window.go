// Package window computes the rolling date window that each execution mode
// feeds into the ingestion configs.
package window

import (
	"fmt"
	"time"
)

// Mode selects which files are rewritten and which date logic applies.
type Mode string

const (
	// ModeERA5 is the full historical backfill.
	ModeERA5 Mode = "era5"
	// ModeERA5TDaily is the near-real-time daily feed.
	ModeERA5TDaily Mode = "era5t-daily"
	// ModeERA5TMonthly is the near-real-time monthly feed.
	ModeERA5TMonthly Mode = "era5t-monthly"
)

// DateLayout is the ISO form used in selection fields.
const DateLayout = "2006-01-02"

// era5LookbackDays approximates three months as a fixed day count (2*366/12).
const era5LookbackDays = 2 * 366 / 12

func (m Mode) String() string { return string(m) }

// ParseMode validates a mode string coming from the CLI boundary.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeERA5, ModeERA5TDaily, ModeERA5TMonthly:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (allowed: %s|%s|%s)", s, ModeERA5, ModeERA5TDaily, ModeERA5TMonthly)
}

// Window is the date range a run writes into the selection sections. First
// and Last are date-precision times in UTC; Year and Month are the zero-padded
// strings written into year-wise configs.
type Window struct {
	First time.Time
	Last  time.Time
	Year  string
	Month string
}

// Range renders the window in the selection-field form, e.g.
// "2024-01-01/to/2024-01-31".
func (w Window) Range() string {
	return w.First.Format(DateLayout) + "/to/" + w.Last.Format(DateLayout)
}

// Compute derives the window for a mode anchored to today. Pure: the result
// depends only on the arguments, and only on today's date part.
//
//   - era5t-daily: a single day, six days back (data arrives with a fixed
//     six-day latency).
//   - era5t-monthly: the full calendar month preceding today's month.
//   - era5 (and any other value): the full calendar month containing the day
//     era5LookbackDays before today.
func Compute(mode Mode, today time.Time) Window {
	day := dateOf(today)

	var first, last time.Time
	switch mode {
	case ModeERA5TDaily:
		anchor := day.AddDate(0, 0, -6)
		first, last = anchor, anchor
	case ModeERA5TMonthly:
		first, last = previousMonth(day)
	default:
		anchor := day.AddDate(0, 0, -era5LookbackDays)
		first, last = monthOf(anchor)
	}

	return Window{
		First: first,
		Last:  last,
		Year:  fmt.Sprintf("%04d", first.Year()),
		Month: fmt.Sprintf("%02d", int(first.Month())),
	}
}

// dateOf truncates to midnight UTC so time-of-day and zone never leak into
// the window.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthOf returns the first and last day of the month containing day.
func monthOf(day time.Time) (time.Time, time.Time) {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// previousMonth steps to the last day of the month before day's month, then
// to its first day.
func previousMonth(day time.Time) (time.Time, time.Time) {
	last := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	first := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, last
}
