package report

import (
	"strings"
	"time"
)

type Mode string

const (
	ModeToday  Mode = "today"
	ModeMonth  Mode = "month"
	ModeCustom Mode = "custom"
)

func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "today":
		return ModeToday, nil
	case "month":
		return ModeMonth, nil
	case "custom":
		return ModeCustom, nil
	default:
		return "", ValidationError(ErrInvalidPeriod, "Period must be one of today, month or custom", map[string]any{"mode": raw})
	}
}

// DateRange is the caller-supplied range for ModeCustom. Only the calendar
// day of each bound is used.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// TimeWindow is inclusive on both ends.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w TimeWindow) Location() *time.Location {
	if w.Start.IsZero() {
		return time.UTC
	}
	return w.Start.Location()
}

// Label renders the window as "Jan 02, 2006 - Jan 02, 2006".
func (w TimeWindow) Label() string {
	return w.Start.Format(periodDateLayout) + " - " + w.End.Format(periodDateLayout)
}

const periodDateLayout = "Jan 02, 2006"

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay is 23:59:59 with the sub-second part filled so every instant of
// the day is inside the window.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// ResolveWindow turns a mode into concrete bounds in loc. now is passed in so
// callers control the clock.
func ResolveWindow(mode Mode, now time.Time, loc *time.Location, custom *DateRange) (TimeWindow, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	switch mode {
	case ModeToday:
		return TimeWindow{Start: StartOfDay(now), End: EndOfDay(now)}, nil
	case ModeMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return TimeWindow{Start: first, End: EndOfDay(now)}, nil
	case ModeCustom:
		if custom == nil || custom.Start.IsZero() || custom.End.IsZero() {
			return TimeWindow{}, ValidationError(ErrCustomRangeRequired, "Start and end dates are required for a custom period", nil)
		}
		start := StartOfDay(inDay(custom.Start, loc))
		end := EndOfDay(inDay(custom.End, loc))
		if start.After(end) {
			return TimeWindow{}, ValidationError(ErrInvalidRange, "Start date must not be after end date", map[string]any{
				"startDate": start.Format("2006-01-02"),
				"endDate":   end.Format("2006-01-02"),
			})
		}
		return TimeWindow{Start: start, End: end}, nil
	default:
		return TimeWindow{}, ValidationError(ErrInvalidPeriod, "Period must be one of today, month or custom", map[string]any{"mode": string(mode)})
	}
}

// inDay keeps the calendar day the caller picked. Dates parsed without a zone
// come back as UTC midnight and must not shift to the previous day in loc.
func inDay(t time.Time, loc *time.Location) time.Time {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
	return t.In(loc)
}

// ParseDate accepts RFC3339 or a bare yyyy-mm-dd in loc. It returns the zero
// time for blank input.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.In(loc), nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, ValidationError(ErrInvalidRange, "Invalid date", map[string]any{"value": value})
	}
	return parsed, nil
}
