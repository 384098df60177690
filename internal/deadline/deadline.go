// Package deadline computes recurring remittance deadlines and late
// penalties. Everything here is pure: callers pass "now" explicitly and the
// functions have no side effects.
package deadline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Recurrence is the deadline's repeat kind.
type Recurrence string

const (
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// PenaltyKind selects how a late remittance is penalized. The persisted
// values are the French terms the settings screens have always stored.
type PenaltyKind string

const (
	PenaltyPercentage PenaltyKind = "pourcentage"
	PenaltyFixed      PenaltyKind = "montant_fixe"
)

// Config is the recurring deadline rule, owned by fleet settings and
// read-only here.
type Config struct {
	Recurrence     Recurrence
	AnchorWeekday  time.Weekday // weekly: due day of week
	AnchorMonthDay int          // monthly: due day of month, 1-31
	CutoffHour     int
	CutoffMinute   int
	PenaltyEnabled bool
	PenaltyKind    PenaltyKind
	PenaltyValue   float64
}

// Window is a pair of consecutive deadline instants around "now".
type Window struct {
	DeadlineAt         time.Time
	PreviousDeadlineAt time.Time
}

// ParseCutoff parses a "HH:MM" cutoff time of day.
func ParseCutoff(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid cutoff %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid cutoff hour %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid cutoff minute %q", s)
	}
	return hour, minute, nil
}

// Next computes the next deadline after now and the one before it.
func Next(cfg Config, now time.Time) (Window, error) {
	switch cfg.Recurrence {
	case RecurrenceDaily:
		return nextDaily(cfg, now), nil
	case RecurrenceWeekly:
		return nextWeekly(cfg, now), nil
	case RecurrenceMonthly:
		return nextMonthly(cfg, now), nil
	default:
		return Window{}, fmt.Errorf("unknown recurrence %q", cfg.Recurrence)
	}
}

func cutoffOn(cfg Config, year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, cfg.CutoffHour, cfg.CutoffMinute, 0, 0, loc)
}

func nextDaily(cfg Config, now time.Time) Window {
	d := cutoffOn(cfg, now.Year(), now.Month(), now.Day(), now.Location())
	if !d.After(now) {
		d = d.AddDate(0, 0, 1)
	}
	return Window{DeadlineAt: d, PreviousDeadlineAt: d.AddDate(0, 0, -1)}
}

func nextWeekly(cfg Config, now time.Time) Window {
	days := (int(cfg.AnchorWeekday) - int(now.Weekday()) + 7) % 7
	d := cutoffOn(cfg, now.Year(), now.Month(), now.Day(), now.Location()).AddDate(0, 0, days)
	// today is the anchor day but the cutoff already passed
	if !d.After(now) {
		d = d.AddDate(0, 0, 7)
	}
	return Window{DeadlineAt: d, PreviousDeadlineAt: d.AddDate(0, 0, -7)}
}

func nextMonthly(cfg Config, now time.Time) Window {
	loc := now.Location()
	year, month := now.Year(), now.Month()
	d := monthlyCutoff(cfg, year, month, loc)
	if !d.After(now) {
		year, month = addMonth(year, month, 1)
		d = monthlyCutoff(cfg, year, month, loc)
	}
	prevYear, prevMonth := addMonth(d.Year(), d.Month(), -1)
	prev := monthlyCutoff(cfg, prevYear, prevMonth, loc)
	return Window{DeadlineAt: d, PreviousDeadlineAt: prev}
}

// monthlyCutoff clamps anchors 29-31 to the last day of shorter months.
func monthlyCutoff(cfg Config, year int, month time.Month, loc *time.Location) time.Time {
	day := cfg.AnchorMonthDay
	if day < 1 {
		day = 1
	}
	if last := daysIn(year, month); day > last {
		day = last
	}
	return cutoffOn(cfg, year, month, day, loc)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func addMonth(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return t.Year(), t.Month()
}

// IsCurrentlyLate reports whether now sits between the previous deadline and
// the next one. This is deliberately the broad reading: the whole period
// after a cutoff counts as "still owing from last period" until the next
// cutoff. Product has not yet confirmed the narrow grace-window reading, so
// the historical predicate is preserved as-is.
func IsCurrentlyLate(cfg Config, now time.Time) bool {
	w, err := Next(cfg, now)
	if err != nil {
		return false
	}
	return w.PreviousDeadlineAt.Before(now) && now.Before(w.DeadlineAt)
}

// Penalty computes the penalty amount for a gross remittance.
func Penalty(grossAmount float64, cfg Config) float64 {
	if !cfg.PenaltyEnabled {
		return 0
	}
	switch cfg.PenaltyKind {
	case PenaltyPercentage:
		return math.Round(grossAmount * cfg.PenaltyValue / 100)
	case PenaltyFixed:
		return cfg.PenaltyValue
	default:
		return 0
	}
}
