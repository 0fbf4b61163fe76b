package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Bucket identifies the days a group of ranges applies to.
type Bucket string

const (
	Daily    Bucket = "daily"
	Weekdays Bucket = "weekdays"
	Weekends Bucket = "weekends"
)

// ErrMalformed is returned when the top-level schedule structure cannot be
// interpreted.
var ErrMalformed = errors.New("malformed operating schedule")

// OperatingSchedule maps a bucket to its ordered time ranges.
type OperatingSchedule map[Bucket][]string

// Range is a parsed opening window expressed as offsets from midnight.
type Range struct {
	Start time.Duration
	End   time.Duration
}

// Contains reports whether tod falls inside the range, bounds included.
func (r Range) Contains(tod time.Duration) bool {
	return r.Start <= tod && tod <= r.End
}

// Parse decodes a schedule stored as JSON text, e.g.
// {"daily": "09:00-12:00,14:00-17:00", "weekends": ["10:00-13:00"]}.
// An empty string is a valid, always closed schedule.
func Parse(raw string) (OperatingSchedule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return OperatingSchedule{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return OperatingSchedule{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, ok := v.(string); ok {
		return OperatingSchedule{}, fmt.Errorf("%w: nested string", ErrMalformed)
	}
	return FromValue(v)
}

// FromValue builds a schedule from an already decoded JSON or YAML value.
// Unknown buckets are ignored and bucket values that are neither a string nor
// a list of strings are dropped.
func FromValue(v any) (OperatingSchedule, error) {
	switch t := v.(type) {
	case nil:
		return OperatingSchedule{}, nil
	case OperatingSchedule:
		return t.clone(), nil
	case string:
		return Parse(t)
	case map[string]string:
		s := OperatingSchedule{}
		for k, val := range t {
			s.add(k, splitRanges(val))
		}
		return s, nil
	case map[string][]string:
		s := OperatingSchedule{}
		for k, val := range t {
			s.add(k, val)
		}
		return s, nil
	case map[string]any:
		s := OperatingSchedule{}
		for k, val := range t {
			s.add(k, rangesFromValue(val))
		}
		return s, nil
	default:
		return OperatingSchedule{}, fmt.Errorf("%w: unexpected %T", ErrMalformed, v)
	}
}

func rangesFromValue(v any) []string {
	switch t := v.(type) {
	case string:
		return splitRanges(t)
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, splitRanges(s)...)
			}
		}
		return out
	}
	return nil
}

func splitRanges(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s OperatingSchedule) add(key string, ranges []string) {
	b := Bucket(strings.ToLower(strings.TrimSpace(key)))
	switch b {
	case Daily, Weekdays, Weekends:
	default:
		return
	}
	if len(ranges) == 0 {
		return
	}
	s[b] = append(s[b], ranges...)
}

func (s OperatingSchedule) clone() OperatingSchedule {
	out := make(OperatingSchedule, len(s))
	for k, v := range s {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Ranges returns the raw ranges applicable on the given weekday.
func (s OperatingSchedule) Ranges(day time.Weekday) []string {
	out := append([]string(nil), s[Daily]...)
	if day == time.Saturday || day == time.Sunday {
		return append(out, s[Weekends]...)
	}
	return append(out, s[Weekdays]...)
}

// IsOpen reports whether t falls inside one of the ranges applicable on its
// weekday. The weekday and time of day are taken in t's location.
func (s OperatingSchedule) IsOpen(t time.Time) bool {
	tod := timeOfDay(t)
	for _, raw := range s.Ranges(t.Weekday()) {
		r, err := ParseRange(raw)
		if err != nil {
			continue
		}
		if r.Contains(tod) {
			return true
		}
	}
	return false
}

// Invalid lists the ranges that cannot be parsed.
func (s OperatingSchedule) Invalid() []string {
	var out []string
	for _, b := range []Bucket{Daily, Weekdays, Weekends} {
		for _, raw := range s[b] {
			if _, err := ParseRange(raw); err != nil {
				out = append(out, raw)
			}
		}
	}
	return out
}

// ParseRange parses a single "HH:MM-HH:MM" range.
func ParseRange(raw string) (Range, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("range %q: expected HH:MM-HH:MM", raw)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", raw, err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", raw, err)
	}
	return Range{Start: start, End: end}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
