package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day in minutes after midnight.
type ClockTime int

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return ClockTime(h*60 + m), nil
}

// ClockTimeOf returns the time of day of t in its own location.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Bedtime is a daily quiet period. Both ends are inclusive.
// When Start is after End the period crosses midnight.
type Bedtime struct {
	Start ClockTime
	End   ClockTime
}

// DefaultBedtime is 22:00 to 07:00.
var DefaultBedtime = Bedtime{Start: 22 * 60, End: 7 * 60}

// ParseBedtime parses start and end in "HH:MM" form.
func ParseBedtime(start, end string) (Bedtime, error) {
	s, err := ParseClockTime(start)
	if err != nil {
		return Bedtime{}, fmt.Errorf("bedtime start: %w", err)
	}
	e, err := ParseClockTime(end)
	if err != nil {
		return Bedtime{}, fmt.Errorf("bedtime end: %w", err)
	}
	return Bedtime{Start: s, End: e}, nil
}

// Contains reports whether t falls inside the bedtime period.
func (b Bedtime) Contains(t time.Time) bool {
	now := ClockTimeOf(t)
	if b.Start <= b.End {
		return now >= b.Start && now <= b.End
	}
	return now >= b.Start || now <= b.End
}

// PeriodStart returns local midnight of the day on which the bedtime period
// containing t began. Past midnight in a period that crosses it, that is the
// previous day.
func (b Bedtime) PeriodStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if b.Start > b.End && ClockTimeOf(t) <= b.End {
		return day.AddDate(0, 0, -1)
	}
	return day
}

func (b Bedtime) String() string {
	return b.Start.String() + "-" + b.End.String()
}
