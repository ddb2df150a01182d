// Package timeparse resolves relative time expressions, named time ranges,
// duration text, and volume units into concrete values. Every other engine
// builds on it.
package timeparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MlPerOz is the millilitres-per-fluid-ounce conversion factor.
const MlPerOz = 29.5735

// OzToMl converts fluid ounces to whole millilitres.
func OzToMl(oz float64) float64 {
	return math.Round(oz * MlPerOz)
}

var (
	agoPattern      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(minute|min|hour|hr)s?\s+ago`)
	justNowPattern  = regexp.MustCompile(`\b(?:just now|right now)\b`)
	fromToPattern   = regexp.MustCompile(`from\s+(\d{1,2}):(\d{2})\s*(am|pm)?\s+to\s+(\d{1,2}):(\d{2})\s*(am|pm)?`)
	decimalHoursPattern = regexp.MustCompile(`(\d+\.\d+)\s*h(?:ou)?rs?\b`)
	durationPattern     = regexp.MustCompile(`(\d+)\s*h(?:ours?|rs?)?\s*(?:(\d+)\s*m(?:in(?:ute)?s?)?)?`)
	minutesPattern      = regexp.MustCompile(`(\d+)\s*m(?:ins?|inutes?)?\b`)
)

// ResolveRelative interprets relative expressions like "20 minutes ago",
// "3 hours ago", "just now" against now. The second result reports whether
// anything matched.
func ResolveRelative(text string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(text)

	if m := agoPattern.FindStringSubmatch(lower); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return time.Time{}, false
		}
		switch {
		case strings.HasPrefix(m[2], "h"):
			return now.Add(-time.Duration(value * float64(time.Hour))), true
		default:
			return now.Add(-time.Duration(value * float64(time.Minute))), true
		}
	}

	if justNowPattern.MatchString(lower) {
		return now, true
	}

	return time.Time{}, false
}

// ResolveSpan interprets "from HH:MM to HH:MM" as a same-day start/end pair
// anchored to now's date.
func ResolveSpan(text string, now time.Time) (start, end time.Time, ok bool) {
	m := fromToPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return time.Time{}, time.Time{}, false
	}

	startHour := clockHour(m[1], m[3])
	endHour := clockHour(m[4], m[6])
	startMin, _ := strconv.Atoi(m[2])
	endMin, _ := strconv.Atoi(m[5])

	year, month, day := now.Date()
	start = time.Date(year, month, day, startHour, startMin, 0, 0, now.Location())
	end = time.Date(year, month, day, endHour, endMin, 0, 0, now.Location())
	return start, end, true
}

func clockHour(raw, meridiem string) int {
	hour, _ := strconv.Atoi(raw)
	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}

// Range is a resolved named time range.
type Range struct {
	Start time.Time
	End   time.Time
	Label string
}

// ResolveNamedRange recognises the fixed search vocabulary (today, yesterday,
// last/past week, last/past month, last/past 24 hours) and anchors it to now.
func ResolveNamedRange(text string, now time.Time) (Range, bool) {
	lower := strings.ToLower(text)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(lower, "last 24 hours") || strings.Contains(lower, "past 24 hours"):
		return Range{Start: now.Add(-24 * time.Hour), End: now, Label: "in the last 24 hours"}, true
	case strings.Contains(lower, "last week") || strings.Contains(lower, "past week"):
		return Range{Start: now.AddDate(0, 0, -7), End: now, Label: "in the last week"}, true
	case strings.Contains(lower, "last month") || strings.Contains(lower, "past month"):
		return Range{Start: now.AddDate(0, -1, 0), End: now, Label: "in the last month"}, true
	case strings.Contains(lower, "yesterday"):
		return Range{Start: startOfDay.AddDate(0, 0, -1), End: startOfDay.Add(-time.Nanosecond), Label: "yesterday"}, true
	case strings.Contains(lower, "today"):
		return Range{Start: startOfDay, End: now, Label: "today"}, true
	}
	return Range{}, false
}

// ParseDurationMinutes extracts a duration in whole minutes from text.
// "1h30m" and "1 hour 30 minutes" combine; the hour form wins when both hour
// and minute fragments are present ("90 minutes" alone still parses).
func ParseDurationMinutes(text string) (int, bool) {
	lower := strings.ToLower(text)

	if m := decimalHoursPattern.FindStringSubmatch(lower); m != nil {
		hours, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return int(math.Round(hours * 60)), true
		}
	}

	if m := durationPattern.FindStringSubmatch(lower); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes := 0
		if m[2] != "" {
			minutes, _ = strconv.Atoi(m[2])
		}
		return hours*60 + minutes, true
	}

	if m := minutesPattern.FindStringSubmatch(lower); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		return minutes, true
	}

	return 0, false
}

var clockPattern = regexp.MustCompile(`\b\d{1,2}:\d{2}\s*(?:am|pm)?`)

// StripTimeExpressions removes relative expressions, from/to spans, and clock
// times from text so later number scans (durations, bare quantities) cannot
// latch onto digits that belong to a time.
func StripTimeExpressions(text string) string {
	lower := strings.ToLower(text)
	lower = fromToPattern.ReplaceAllString(lower, " ")
	lower = agoPattern.ReplaceAllString(lower, " ")
	lower = clockPattern.ReplaceAllString(lower, " ")
	return lower
}

// FormatHoursMinutes renders whole minutes as "XhYm", the form used by the
// confirmation and summary templates.
func FormatHoursMinutes(minutes int) string {
	hours := minutes / 60
	rem := minutes % 60
	return strconv.Itoa(hours) + "h" + strconv.Itoa(rem) + "m"
}
