// Package search compiles free-text questions into structured filters,
// executes them over an activity snapshot, and renders the summary text shown
// to the caregiver.
package search

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"example.com/babysteps/internal/domain"
	"example.com/babysteps/internal/timeparse"
)

// Scope restricts a query to one activity type.
type Scope string

const (
	ScopeFeeding Scope = "feeding"
	ScopeSleep   Scope = "sleep"
	ScopeDiaper  Scope = "diaper"
	ScopeAll     Scope = "all"
)

// Op is a comparison operator.
type Op string

const (
	OpGT Op = "gt"
	OpLT Op = "lt"
	OpEQ Op = "eq"
)

// DurationUnit is the unit a duration comparison was phrased in. Comparisons
// run in the query's unit, not a normalised one.
type DurationUnit string

const (
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
)

// DurationFilter compares sleep-entry durations.
type DurationFilter struct {
	Op    Op
	Value float64
	Unit  DurationUnit
}

// QuantityFilter compares feeding quantities. The value is taken verbatim
// from the text: ounce values are deliberately not converted here, matching
// the entry-creation path's asymmetry (see DESIGN.md).
type QuantityFilter struct {
	Op    Op
	Value float64
}

// Query is a structured filter compiled from free text.
type Query struct {
	Scope          Scope
	Duration       *DurationFilter
	Quantity       *QuantityFilter
	TimeRange      *timeparse.Range
	FeedingSubtype domain.FeedingSubtype
	DiaperSubtype  domain.DiaperSubtype
}

// Averages carries the aggregate figures computed for a result set.
type Averages struct {
	DurationMinutes *float64
	QuantityML      *float64
}

// Result is the outcome of executing a query.
type Result struct {
	Matches     []domain.ActivityEntry
	TotalCount  int
	SummaryText string
	Averages    *Averages
}

var comparatorPattern = regexp.MustCompile(
	`(more than|greater than|over|above|less than|under|below|exactly|equal to)\s+(\d+(?:\.\d+)?)\s*(hours?|hrs?|minutes?|mins?|ml|oz|ounces?)\b`)

func opFromPhrase(phrase string) Op {
	switch phrase {
	case "more than", "greater than", "over", "above":
		return OpGT
	case "less than", "under", "below":
		return OpLT
	}
	return OpEQ
}

// Compile scans the text for an activity type, comparison phrases, a named
// time range, and subtype keywords. Anything it does not recognise is simply
// absent from the query.
func Compile(text string, now time.Time) Query {
	lower := strings.ToLower(text)
	query := Query{Scope: scanScope(lower)}

	for _, m := range comparatorPattern.FindAllStringSubmatch(lower, -1) {
		value, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		op := opFromPhrase(m[1])
		switch {
		case strings.HasPrefix(m[3], "h"):
			if query.Duration == nil {
				query.Duration = &DurationFilter{Op: op, Value: value, Unit: UnitHours}
			}
		case strings.HasPrefix(m[3], "min"):
			if query.Duration == nil {
				query.Duration = &DurationFilter{Op: op, Value: value, Unit: UnitMinutes}
			}
		default:
			if query.Quantity == nil {
				query.Quantity = &QuantityFilter{Op: op, Value: value}
			}
		}
	}

	if r, ok := timeparse.ResolveNamedRange(lower, now); ok {
		query.TimeRange = &r
	}

	if subtype, ok := scanFeedingSubtype(lower); ok {
		query.FeedingSubtype = subtype
	}
	if subtype, ok := scanDiaperSubtype(lower); ok {
		query.DiaperSubtype = subtype
	}

	return query
}

func scanScope(lower string) Scope {
	switch {
	case strings.Contains(lower, "sleep") || strings.Contains(lower, "nap"):
		return ScopeSleep
	case strings.Contains(lower, "feed") || strings.Contains(lower, "eat") ||
		strings.Contains(lower, "bottle") || strings.Contains(lower, "breast"):
		return ScopeFeeding
	case strings.Contains(lower, "diaper") || strings.Contains(lower, "poop") ||
		strings.Contains(lower, "wet"):
		return ScopeDiaper
	}
	return ScopeAll
}

// scanFeedingSubtype mirrors the parser's precedence but only fires on an
// explicit subtype keyword; a plain "feedings" query must not filter.
func scanFeedingSubtype(lower string) (domain.FeedingSubtype, bool) {
	switch {
	case strings.Contains(lower, "left"):
		return domain.FeedingBreastLeft, true
	case strings.Contains(lower, "right"):
		return domain.FeedingBreastRight, true
	case strings.Contains(lower, "both sides"):
		return domain.FeedingBreastLeft, true
	case strings.Contains(lower, "bottle"):
		return domain.FeedingBottle, true
	case strings.Contains(lower, "breast"), strings.Contains(lower, "nursing"):
		return domain.FeedingBreastLeft, true
	}
	return "", false
}

func scanDiaperSubtype(lower string) (domain.DiaperSubtype, bool) {
	wet := strings.Contains(lower, "wet")
	dirty := strings.Contains(lower, "dirty") || strings.Contains(lower, "poop")
	switch {
	case wet && dirty:
		return domain.DiaperBoth, true
	case dirty:
		return domain.DiaperDirty, true
	case wet:
		return domain.DiaperWet, true
	}
	return "", false
}

// Execute applies the query as a sequential AND-filter over the snapshot and
// renders the summary. It is a pure function of its inputs.
func Execute(snapshot domain.Snapshot, query Query) Result {
	matches := make([]domain.ActivityEntry, 0, snapshot.Len())
	for _, entry := range snapshot.Entries() {
		if matchEntry(entry, query) {
			matches = append(matches, entry)
		}
	}

	averages := computeAverages(matches, query.Scope)
	return Result{
		Matches:     matches,
		TotalCount:  len(matches),
		SummaryText: renderSummary(len(matches), query, averages),
		Averages:    averages,
	}
}

func matchEntry(entry domain.ActivityEntry, query Query) bool {
	if query.Scope != ScopeAll && string(entry.Type) != string(query.Scope) {
		return false
	}

	if query.TimeRange != nil {
		if entry.StartTime.Before(query.TimeRange.Start) || entry.StartTime.After(query.TimeRange.End) {
			return false
		}
	}

	if query.Duration != nil {
		if entry.Type != domain.EntrySleep || entry.EndTime == nil {
			return false
		}
		span := entry.EndTime.Sub(entry.StartTime)
		var measured float64
		if query.Duration.Unit == UnitHours {
			measured = span.Hours()
		} else {
			measured = span.Minutes()
		}
		if !compare(measured, query.Duration.Op, query.Duration.Value, 0.1) {
			return false
		}
	}

	if query.Quantity != nil {
		if entry.Type != domain.EntryFeeding || entry.QuantityML == nil {
			return false
		}
		if !compare(*entry.QuantityML, query.Quantity.Op, query.Quantity.Value, 1) {
			return false
		}
	}

	if query.FeedingSubtype != "" && entry.FeedingSubtype != query.FeedingSubtype {
		return false
	}
	if query.DiaperSubtype != "" && entry.DiaperSubtype != query.DiaperSubtype {
		return false
	}

	return true
}

func compare(measured float64, op Op, value, eqTolerance float64) bool {
	switch op {
	case OpGT:
		return measured > value
	case OpLT:
		return measured < value
	}
	return math.Abs(measured-value) <= eqTolerance
}

// computeAverages derives the sleep-duration and feeding-quantity averages
// whenever the query's scope can include those entry types.
func computeAverages(matches []domain.ActivityEntry, scope Scope) *Averages {
	averages := &Averages{}

	if scope == ScopeSleep || scope == ScopeAll {
		total, count := 0.0, 0
		for _, entry := range matches {
			if entry.Type == domain.EntrySleep && entry.EndTime != nil {
				total += entry.EndTime.Sub(entry.StartTime).Minutes()
				count++
			}
		}
		if count > 0 {
			avg := total / float64(count)
			averages.DurationMinutes = &avg
		}
	}

	if scope == ScopeFeeding || scope == ScopeAll {
		total, count := 0.0, 0
		for _, entry := range matches {
			if entry.Type == domain.EntryFeeding && entry.QuantityML != nil {
				total += *entry.QuantityML
				count++
			}
		}
		if count > 0 {
			avg := total / float64(count)
			averages.QuantityML = &avg
		}
	}

	if averages.DurationMinutes == nil && averages.QuantityML == nil {
		return nil
	}
	return averages
}

var scopeLabels = map[Scope][2]string{
	ScopeFeeding: {"feeding", "feedings"},
	ScopeSleep:   {"sleep session", "sleep sessions"},
	ScopeDiaper:  {"diaper change", "diaper changes"},
	ScopeAll:     {"activity", "activities"},
}

func opLabel(op Op) string {
	switch op {
	case OpGT:
		return "more than"
	case OpLT:
		return "less than"
	}
	return "exactly"
}

func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func durationUnitLabel(value float64, unit DurationUnit) string {
	singular := "minute"
	if unit == UnitHours {
		singular = "hour"
	}
	if value == 1 {
		return singular
	}
	return singular + "s"
}

// renderSummary builds the fixed-template summary string. The wording is a
// contract: dashboards and tests assert it verbatim.
func renderSummary(count int, query Query, averages *Averages) string {
	labels := scopeLabels[query.Scope]
	label := labels[1]
	if count == 1 {
		label = labels[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s", count, label)

	if query.TimeRange != nil {
		b.WriteString(" " + query.TimeRange.Label)
	}
	if query.Duration != nil {
		fmt.Fprintf(&b, " lasting %s %s %s",
			opLabel(query.Duration.Op),
			formatValue(query.Duration.Value),
			durationUnitLabel(query.Duration.Value, query.Duration.Unit))
	}
	if query.Quantity != nil {
		fmt.Fprintf(&b, " with quantity %s %sml",
			opLabel(query.Quantity.Op), formatValue(query.Quantity.Value))
	}
	b.WriteString(".")

	if averages != nil && averages.DurationMinutes != nil {
		minutes := int(math.Round(*averages.DurationMinutes))
		fmt.Fprintf(&b, " Average sleep duration: %s.", timeparse.FormatHoursMinutes(minutes))
	}
	if averages != nil && averages.QuantityML != nil {
		fmt.Fprintf(&b, " Average feeding quantity: %dml.", int(math.Round(*averages.QuantityML)))
	}

	return b.String()
}
