package timeutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimezone is returned when a timezone name cannot be resolved to an
// IANA location, even after normalization.
var ErrInvalidTimezone = fmt.Errorf("invalid timezone")

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Recurrence describes how often a post should fire. TimeOfDay is wall-clock
// "HH:MM" or "HH:MM:SS" interpreted in Timezone. DayOfWeek (0=Sunday..6) is
// only meaningful for weekly, DayOfMonth (1..31) only for monthly.
type Recurrence struct {
	Frequency  Frequency
	TimeOfDay  string
	DayOfWeek  int
	DayOfMonth int
	Timezone   string
}

// NormalizeTimezone sanitizes user input ("america/new york") into a resolvable
// IANA name ("America/New_York"). Returns ErrInvalidTimezone when nothing matches.
func NormalizeTimezone(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", ErrInvalidTimezone
	}
	candidate = strings.ReplaceAll(candidate, " ", "_")
	if _, err := time.LoadLocation(candidate); err == nil {
		return candidate, nil
	}

	// Retry with canonical casing: america/new_york -> America/New_York
	lower := strings.ToLower(candidate)
	parts := strings.Split(lower, "/")
	for i, part := range parts {
		segments := strings.Split(part, "_")
		for j, segment := range segments {
			pieces := strings.Split(segment, "-")
			for k, piece := range pieces {
				if piece == "" {
					continue
				}
				pieces[k] = strings.ToUpper(piece[:1]) + piece[1:]
			}
			segments[j] = strings.Join(pieces, "-")
		}
		parts[i] = strings.Join(segments, "_")
	}
	normalized := strings.Join(parts, "/")
	if _, err := time.LoadLocation(normalized); err == nil {
		return normalized, nil
	}
	return "", ErrInvalidTimezone
}

// ResolveZone loads an IANA location after normalizing the name.
func ResolveZone(name string) (*time.Location, error) {
	normalized, err := NormalizeTimezone(name)
	if err != nil {
		return nil, err
	}
	return time.LoadLocation(normalized)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid time format %q, expected HH:MM or HH:MM:SS", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		second, err = strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return 0, 0, 0, fmt.Errorf("invalid second in %q", s)
		}
	}
	return hour, minute, second, nil
}

// NextRun computes the next UTC instant a recurrence fires, strictly after
// anchor. All arithmetic is wall-clock in the rule's zone, so a 09:00 local
// rule stays 09:00 local across DST transitions. Monthly rules clamp the
// target day to the last day of short months (31 -> Feb 28/29).
func NextRun(rec Recurrence, anchor time.Time) (time.Time, error) {
	loc, err := ResolveZone(rec.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, second, err := ParseTimeOfDay(rec.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	local := anchor.In(loc)
	year, month, day := local.Date()

	var candidate time.Time
	switch rec.Frequency {
	case FrequencyDaily:
		candidate = time.Date(year, month, day, hour, minute, second, 0, loc)
		if !candidate.After(anchor) {
			candidate = time.Date(year, month, day+1, hour, minute, second, 0, loc)
		}

	case FrequencyWeekly:
		if rec.DayOfWeek < 0 || rec.DayOfWeek > 6 {
			return time.Time{}, fmt.Errorf("weekly recurrence requires day_of_week between 0 and 6, got %d", rec.DayOfWeek)
		}
		offset := (rec.DayOfWeek - int(local.Weekday()) + 7) % 7
		candidate = time.Date(year, month, day+offset, hour, minute, second, 0, loc)
		if !candidate.After(anchor) {
			candidate = time.Date(year, month, day+offset+7, hour, minute, second, 0, loc)
		}

	case FrequencyMonthly:
		if rec.DayOfMonth < 1 || rec.DayOfMonth > 31 {
			return time.Time{}, fmt.Errorf("monthly recurrence requires day_of_month between 1 and 31, got %d", rec.DayOfMonth)
		}
		candidate = time.Date(year, month, clampDay(year, month, rec.DayOfMonth, loc), hour, minute, second, 0, loc)
		if !candidate.After(anchor) {
			nextYear, nextMonth := year, month+1
			candidate = time.Date(nextYear, nextMonth, clampDay(nextYear, nextMonth, rec.DayOfMonth, loc), hour, minute, second, 0, loc)
		}

	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", rec.Frequency)
	}

	return candidate.UTC(), nil
}

// clampDay limits day to the last day of (year, month). time.Date normalizes
// month overflow (13 -> January next year) before the clamp is applied.
func clampDay(year int, month time.Month, day int, loc *time.Location) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > last {
		return last
	}
	return day
}

// LocalDaysBetween returns the whole calendar days from a's local date to b's
// local date, both evaluated in loc. Negative when b is before a.
func LocalDaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	// Compare pure dates in UTC so DST offsets cannot skew the count.
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
