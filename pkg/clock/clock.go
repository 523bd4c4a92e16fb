// Package clock parses the free-text class-time strings found in studio CSV
// exports. Both 12-hour ("9:30 AM") and 24-hour ("19:15" or "19:15:00")
// forms appear in the wild, sometimes within the same file.
package clock

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Compiled patterns for the two clock formats we accept.
var (
	// 12-hour: "9:30 AM", "12:05pm". The meridiem may abut the minutes.
	twelveHourRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])$`)
	// 24-hour: "19:15" or "19:15:00". Seconds are ignored.
	twentyFourHourRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
)

// ErrUnparseable is returned for strings matching neither clock format, or
// with out-of-range fields. Callers skip such records; it is never fatal.
var ErrUnparseable = errors.New("unparseable time")

// Time is a wall-clock time of day.
type Time struct {
	Hour   int // 0-23
	Minute int // 0-59
}

// Minutes returns minutes since midnight.
func (t Time) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String formats as zero-padded 24-hour "HH:MM".
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Format12 formats as 12-hour "H:MM AM" / "H:MM PM".
func (t Time) Format12() string {
	meridiem := "AM"
	hour := t.Hour
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		meridiem = "PM"
	case hour > 12:
		hour -= 12
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute, meridiem)
}

// Parse converts a raw time string to a wall-clock time. The 12-hour form is
// tried first, then the bare 24-hour form. Minutes above 59 are rejected
// rather than wrapped: "13:99" matches structurally but is not a valid time.
func Parse(raw string) (Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Time{}, fmt.Errorf("%w: empty string", ErrUnparseable)
	}

	if m := twelveHourRegex.FindStringSubmatch(trimmed); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 1 || hour > 12 || minute > 59 {
			return Time{}, fmt.Errorf("%w: %q", ErrUnparseable, raw)
		}
		meridiem := strings.ToUpper(m[3])
		if meridiem == "PM" && hour != 12 {
			hour += 12
		}
		if meridiem == "AM" && hour == 12 {
			hour = 0
		}
		return Time{Hour: hour, Minute: minute}, nil
	}

	if m := twentyFourHourRegex.FindStringSubmatch(trimmed); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return Time{}, fmt.Errorf("%w: %q", ErrUnparseable, raw)
		}
		return Time{Hour: hour, Minute: minute}, nil
	}

	return Time{}, fmt.Errorf("%w: %q", ErrUnparseable, raw)
}

// Window is the displayable portion of the day. Sessions outside it are
// excluded from calendar placement but still participate in aggregation.
type Window struct {
	StartHour int // inclusive
	EndHour   int // exclusive
}

// DefaultWindow covers the studio operating day, 07:00-22:00.
var DefaultWindow = Window{StartHour: 7, EndHour: 22}

// Contains reports whether t falls inside the display window.
func (w Window) Contains(t Time) bool {
	return t.Hour >= w.StartHour && t.Hour < w.EndHour
}
