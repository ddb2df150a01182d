package guidance

import (
	"math"
	"time"

	"example.com/babysteps/internal/domain"
)

// TimeContext captures the moment a form is being filled.
type TimeContext struct {
	Hour                int
	DayOfWeek           time.Weekday
	HoursSinceLastEntry float64
	IsNightTime         bool
}

// NewTimeContext derives a TimeContext from now and the most recent entry.
func NewTimeContext(now time.Time, lastEntry *domain.ActivityEntry) TimeContext {
	ctx := TimeContext{
		Hour:      now.Hour(),
		DayOfWeek: now.Weekday(),
	}
	ctx.IsNightTime = ctx.Hour >= 22 || ctx.Hour < 6
	if lastEntry != nil {
		ctx.HoursSinceLastEntry = now.Sub(lastEntry.StartTime).Hours()
	}
	return ctx
}

// SmartDefaults is the pre-filled subset of entry fields for a new-entry form.
type SmartDefaults struct {
	FeedingSubtype domain.FeedingSubtype
	DiaperSubtype  domain.DiaperSubtype
	QuantityML     *float64
	HasDefaults    bool
}

// Fallback defaults when there is no history to learn from.
const (
	dayQuantityFallbackML   = 120.0
	nightQuantityFallbackML = 90.0
)

// CalculateDefaults derives form defaults from recent same-type entries: the
// majority categorical value (first-seen tie-break) and the rounded average
// quantity, with day/night fallbacks when history is empty.
func CalculateDefaults(entryType domain.EntryType, recent []domain.ActivityEntry, timeCtx TimeContext) SmartDefaults {
	defaults := SmartDefaults{}

	switch entryType {
	case domain.EntryFeeding:
		defaults.FeedingSubtype = majorityFeedingSubtype(recent, timeCtx)
		defaults.QuantityML = defaultQuantity(recent, timeCtx)
		defaults.HasDefaults = true
	case domain.EntryDiaper:
		defaults.DiaperSubtype = majorityDiaperSubtype(recent)
		defaults.HasDefaults = true
	}

	return defaults
}

func majorityFeedingSubtype(recent []domain.ActivityEntry, timeCtx TimeContext) domain.FeedingSubtype {
	counts := make(map[domain.FeedingSubtype]int)
	order := make([]domain.FeedingSubtype, 0, 4)
	for _, entry := range recent {
		if entry.Type != domain.EntryFeeding || entry.FeedingSubtype == "" {
			continue
		}
		if _, seen := counts[entry.FeedingSubtype]; !seen {
			order = append(order, entry.FeedingSubtype)
		}
		counts[entry.FeedingSubtype]++
	}

	best := domain.FeedingSubtype("")
	bestCount := 0
	for _, subtype := range order {
		if counts[subtype] > bestCount {
			best = subtype
			bestCount = counts[subtype]
		}
	}
	if best != "" {
		return best
	}
	if timeCtx.IsNightTime {
		return domain.FeedingBreastLeft
	}
	return domain.FeedingBottle
}

func majorityDiaperSubtype(recent []domain.ActivityEntry) domain.DiaperSubtype {
	counts := make(map[domain.DiaperSubtype]int)
	order := make([]domain.DiaperSubtype, 0, 3)
	for _, entry := range recent {
		if entry.Type != domain.EntryDiaper || entry.DiaperSubtype == "" {
			continue
		}
		if _, seen := counts[entry.DiaperSubtype]; !seen {
			order = append(order, entry.DiaperSubtype)
		}
		counts[entry.DiaperSubtype]++
	}

	best := domain.DiaperSubtype("")
	bestCount := 0
	for _, subtype := range order {
		if counts[subtype] > bestCount {
			best = subtype
			bestCount = counts[subtype]
		}
	}
	if best != "" {
		return best
	}
	return domain.DiaperWet
}

// defaultQuantity averages historical quantities rounded to the nearest 0.5,
// falling back to the fixed day/night constants.
func defaultQuantity(recent []domain.ActivityEntry, timeCtx TimeContext) *float64 {
	total, count := 0.0, 0
	for _, entry := range recent {
		if entry.Type == domain.EntryFeeding && entry.QuantityML != nil {
			total += *entry.QuantityML
			count++
		}
	}
	if count > 0 {
		avg := math.Round(total/float64(count)*2) / 2
		return &avg
	}
	fallback := dayQuantityFallbackML
	if timeCtx.IsNightTime {
		fallback = nightQuantityFallbackML
	}
	return &fallback
}

// Suggestion ranks an entry type for the current time of day.
type Suggestion struct {
	EntryType  domain.EntryType
	Confidence float64
	Reason     string
}

// TimeBasedSuggestions returns the fixed suggestion table for the hour's
// time-of-day bucket, ordered by descending confidence.
func TimeBasedSuggestions(hour int) []Suggestion {
	switch {
	case hour >= 6 && hour < 10: // morning
		return []Suggestion{
			{domain.EntryFeeding, 0.8, "Babies usually wake up hungry"},
			{domain.EntryDiaper, 0.7, "Morning diaper changes are common"},
			{domain.EntrySleep, 0.4, "A morning nap may follow the first feed"},
		}
	case hour >= 10 && hour < 14: // midday
		return []Suggestion{
			{domain.EntrySleep, 0.7, "Midday is prime nap time"},
			{domain.EntryFeeding, 0.6, "A feed often precedes the midday nap"},
			{domain.EntryDiaper, 0.5, "Check before putting baby down"},
		}
	case hour >= 14 && hour < 18: // afternoon
		return []Suggestion{
			{domain.EntryFeeding, 0.7, "Afternoon feeds keep energy up"},
			{domain.EntrySleep, 0.6, "A short afternoon nap is typical"},
			{domain.EntryDiaper, 0.5, "Regular change window"},
		}
	case hour >= 18 && hour < 22: // evening
		return []Suggestion{
			{domain.EntryFeeding, 0.8, "Evening cluster feeding is common"},
			{domain.EntryDiaper, 0.6, "A fresh diaper before bedtime"},
			{domain.EntrySleep, 0.5, "Winding down for the night"},
		}
	default: // night
		return []Suggestion{
			{domain.EntryFeeding, 0.9, "Night wakings are usually hunger"},
			{domain.EntryDiaper, 0.7, "A quick change helps baby resettle"},
			{domain.EntrySleep, 0.6, "Log the overnight stretch"},
		}
	}
}
