package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"example.com/babysteps/internal/domain"
	"example.com/babysteps/internal/timeparse"
)

// Keyword tables are data so locale variants can extend them without touching
// the control flow.
var (
	timerKeywords  = []string{"timer", "feeding"}
	createKeywords = []string{"log", "record", "add", "create", "track", "had a", "just", "finished", "completed", "done with"}
	entryKeywords  = []string{"feeding", "feed", "ate", "drank", "sleep", "nap", "slept", "diaper", "poop", "wet", "dirty", "changed"}

	sleepTypeKeywords   = []string{"sleep", "nap", "slept"}
	feedingTypeKeywords = []string{"feeding", "feed", "ate", "drank", "bottle", "breast", "nursing", "nursed"}
	diaperTypeKeywords  = []string{"diaper", "poop", "wet", "dirty", "changed"}
)

var (
	unitQuantityPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(ml|milliliters?|oz|ounces?)\b`)
	bareNumberPattern   = regexp.MustCompile(`\b(\d+)\b`)
	activityPrepPattern = regexp.MustCompile(`(feeding|feed|sleep|nap|bottle|nursing|diaper)\s+(?:of|for|at)\b`)
	quotedNotesPattern  = regexp.MustCompile(`"([^"]+)"`)
	notesSuffixPattern  = regexp.MustCompile(`notes?:\s*(.+)$`)
)

// Bare numbers without a unit are accepted as millilitres only inside this
// window; anything outside is discarded rather than guessed.
const (
	bareQuantityMinML = 30
	bareQuantityMaxML = 400
)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// classify applies the deterministic priority rules. It defaults to a search
// and never returns ActionNone: ambiguous intent is a query, not an error.
func classify(utterance string) ActionKind {
	lower := strings.ToLower(utterance)

	if strings.Contains(lower, "start") && containsAny(lower, timerKeywords) {
		return ActionStartTimer
	}
	if strings.Contains(lower, "stop") && containsAny(lower, timerKeywords) {
		return ActionStopTimer
	}
	if (containsAny(lower, createKeywords) && containsAny(lower, entryKeywords)) || matchesImplicitCreate(lower) {
		return ActionCreateEntry
	}
	return ActionSearch
}

// matchesImplicitCreate recognises utterances that describe an event without a
// log/record verb: a quantity with a unit, a relative "ago" time, or an
// activity word followed by of/for/at.
func matchesImplicitCreate(lower string) bool {
	if unitQuantityPattern.MatchString(lower) {
		return true
	}
	if _, ok := timeparse.ResolveRelative(lower, time.Time{}); ok {
		return true
	}
	return activityPrepPattern.MatchString(lower)
}

// extractEntryType picks the first matching keyword group, sleep before
// feeding before diaper. Unrecognised text defaults to feeding, the most
// common entry kind.
func extractEntryType(utterance string) domain.EntryType {
	lower := strings.ToLower(utterance)
	switch {
	case containsAny(lower, sleepTypeKeywords):
		return domain.EntrySleep
	case containsAny(lower, feedingTypeKeywords):
		return domain.EntryFeeding
	case containsAny(lower, diaperTypeKeywords):
		return domain.EntryDiaper
	}
	return domain.EntryFeeding
}

// extractFeedingSubtype applies the keyword precedence used by both timers and
// created entries. "both" maps to breast_left: per-side timing is recorded by
// the timer flow, so a combined session starts on the left.
func extractFeedingSubtype(utterance string) domain.FeedingSubtype {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "left"):
		return domain.FeedingBreastLeft
	case strings.Contains(lower, "right"):
		return domain.FeedingBreastRight
	case strings.Contains(lower, "both"):
		return domain.FeedingBreastLeft
	case strings.Contains(lower, "bottle"):
		return domain.FeedingBottle
	case strings.Contains(lower, "breast"), strings.Contains(lower, "nursing"), strings.Contains(lower, "nursed"):
		return domain.FeedingBreastLeft
	}
	return domain.FeedingBottle
}

func extractDiaperSubtype(utterance string) domain.DiaperSubtype {
	lower := strings.ToLower(utterance)
	wet := strings.Contains(lower, "wet")
	dirty := strings.Contains(lower, "dirty") || strings.Contains(lower, "poop")
	switch {
	case (wet && dirty) || strings.Contains(lower, "both"):
		return domain.DiaperBoth
	case dirty:
		return domain.DiaperDirty
	case wet:
		return domain.DiaperWet
	}
	return domain.DiaperWet
}

// extractQuantityML finds a volume in the text. Unit-tagged numbers always
// win, with ounces converted to millilitres; bare numbers pass only the
// plausibility window.
func extractQuantityML(utterance string) (float64, bool) {
	lower := strings.ToLower(utterance)

	if m := unitQuantityPattern.FindStringSubmatch(lower); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		if strings.HasPrefix(m[2], "oz") || strings.HasPrefix(m[2], "ounce") {
			return timeparse.OzToMl(value), true
		}
		return value, true
	}

	stripped := timeparse.StripTimeExpressions(lower)
	stripped = stripDurationText(stripped)
	for _, m := range bareNumberPattern.FindAllStringSubmatch(stripped, -1) {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if value >= bareQuantityMinML && value <= bareQuantityMaxML {
			return value, true
		}
	}
	return 0, false
}

var durationTextPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*h(?:ou)?rs?\b|\d+\s*h(?:\d+\s*m(?:ins?)?)?|\d+\s*m(?:ins?|inutes?)\b`)

func stripDurationText(lower string) string {
	return durationTextPattern.ReplaceAllString(lower, " ")
}

func extractNotes(utterance string) string {
	if m := quotedNotesPattern.FindStringSubmatch(utterance); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := notesSuffixPattern.FindStringSubmatch(strings.ToLower(utterance)); m != nil {
		// Recover the original casing from the tail of the utterance.
		idx := len(utterance) - len(m[1])
		return strings.TrimSpace(utterance[idx:])
	}
	return ""
}

// resolveTimes extracts explicit start/end times: a from/to span wins, then a
// relative expression sets the start alone.
func resolveTimes(utterance string, now time.Time) (*time.Time, *time.Time, bool) {
	if start, end, ok := timeparse.ResolveSpan(utterance, now); ok {
		return &start, &end, true
	}
	if start, ok := timeparse.ResolveRelative(utterance, now); ok {
		return &start, nil, true
	}
	return nil, nil, false
}

// extractDurationMinutes reads a duration once time expressions are removed,
// so "3 hours ago" never reads as a three-hour duration.
func extractDurationMinutes(utterance string) (int, bool) {
	stripped := timeparse.StripTimeExpressions(utterance)
	return timeparse.ParseDurationMinutes(stripped)
}
