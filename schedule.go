package accounts

import (
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DailySchedule is a wall clock trigger time repeated every day.
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// DefaultSchedule triggers at 01:00 local time.
var DefaultSchedule = DailySchedule{Hour: 1, Minute: 0, Location: time.Local}

// ParseDailySchedule parses "HH:MM".
func ParseDailySchedule(expr string, loc *time.Location) (DailySchedule, error) {
	t, err := time.Parse("15:04", expr)
	if err != nil {
		return DailySchedule{}, goerrors.Wrap(err, goerrors.CategoryValidation, fmt.Sprintf("invalid daily schedule %q", expr))
	}
	return DailySchedule{Hour: t.Hour(), Minute: t.Minute(), Location: loc}.normalize(), nil
}

func (s DailySchedule) normalize() DailySchedule {
	if s.Location == nil {
		s.Location = time.Local
	}
	if s.Hour < 0 || s.Hour > 23 {
		s.Hour = DefaultSchedule.Hour
	}
	if s.Minute < 0 || s.Minute > 59 {
		s.Minute = DefaultSchedule.Minute
	}
	return s
}

// Next returns the first trigger strictly after now.
func (s DailySchedule) Next(now time.Time) time.Time {
	s = s.normalize()
	local := now.In(s.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s DailySchedule) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}
