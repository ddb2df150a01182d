// Package insights computes descriptive statistics, trends, and predictions
// over the activity history, plus the fixed-threshold recommendations and
// alerts surfaced on the dashboard.
package insights

import (
	"math"
	"time"

	"example.com/babysteps/internal/domain"
)

// Trend labels the direction a sub-series is moving in.
type Trend string

const (
	TrendImproving  Trend = "improving"
	TrendDeclining  Trend = "declining"
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// Thresholds are part of the product contract; changing them changes which
// recommendations fire.
const (
	sleepTrendUpFactor   = 1.1
	sleepTrendDownFactor = 0.9
	feedTrendUpFactor    = 1.2
	feedTrendDownFactor  = 0.8

	shortSleepAvgMinutes  = 60
	lowEfficiencyPct      = 30
	clusterFeedHrs        = 1.5
	lowMoodAvg            = 3
	lowParentSleepHrs     = 4
	wellnessLookbackCount = 7
)

// SleepPattern summarises the sleep sub-series.
type SleepPattern struct {
	AvgDurationMin float64
	LongestMin     float64
	ShortestMin    float64
	TotalMin       float64
	EfficiencyPct  int
	Trend          Trend
	PredictedNext  *time.Time
}

// FeedingPattern summarises the feeding sub-series.
type FeedingPattern struct {
	AvgIntervalHrs    float64
	AvgQuantityML     float64
	MostCommonSubtype domain.FeedingSubtype
	FrequencyPerDay   float64
	Trend             Trend
	PredictedNext     *time.Time
}

// PatternInsights bundles both analyses with derived guidance.
type PatternInsights struct {
	Sleep           SleepPattern
	Feeding         FeedingPattern
	Recommendations []string
	Alerts          []string
}

// AnalyzeSleepPatterns computes sleep statistics from the snapshot. Only
// entries with an end time qualify. The efficiency figure normalises total
// sleep against a single 24-hour day; for multi-day snapshots it is not
// literally a percentage of a day (known limitation, kept for compatibility).
func AnalyzeSleepPatterns(snapshot domain.Snapshot) SleepPattern {
	completed := make([]domain.ActivityEntry, 0)
	for _, entry := range snapshot.OfType(domain.EntrySleep) {
		if entry.EndTime != nil {
			completed = append(completed, entry)
		}
	}
	if len(completed) == 0 {
		return SleepPattern{Trend: TrendStable}
	}

	durations := make([]float64, len(completed))
	total := 0.0
	longest := math.Inf(-1)
	shortest := math.Inf(1)
	for i, entry := range completed {
		minutes := entry.EndTime.Sub(entry.StartTime).Minutes()
		durations[i] = minutes
		total += minutes
		longest = math.Max(longest, minutes)
		shortest = math.Min(shortest, minutes)
	}

	pattern := SleepPattern{
		AvgDurationMin: total / float64(len(completed)),
		LongestMin:     longest,
		ShortestMin:    shortest,
		TotalMin:       total,
		EfficiencyPct:  int(math.Round(total / (24 * 60) * 100)),
		Trend:          sleepTrend(durations),
	}

	if next := predictNextSleep(completed); next != nil {
		pattern.PredictedNext = next
	}
	return pattern
}

// sleepTrend compares the recent half (snapshot order is most-recent-first)
// against the older half of per-entry durations.
func sleepTrend(durations []float64) Trend {
	if len(durations) < 2 {
		return TrendStable
	}
	half := len(durations) / 2
	recentAvg := mean(durations[:half])
	olderAvg := mean(durations[half:])

	switch {
	case recentAvg > olderAvg*sleepTrendUpFactor:
		return TrendImproving
	case recentAvg < olderAvg*sleepTrendDownFactor:
		return TrendDeclining
	}
	return TrendStable
}

// predictNextSleep averages the gaps between consecutive start times and adds
// that to the most recent end time.
func predictNextSleep(completed []domain.ActivityEntry) *time.Time {
	if len(completed) < 2 {
		return nil
	}
	gap := averageStartGap(completed)
	next := completed[0].EndTime.Add(gap)
	return &next
}

// averageStartGap assumes most-recent-first ordering: the gap for index i is
// entry[i].StartTime minus entry[i+1].StartTime.
func averageStartGap(entries []domain.ActivityEntry) time.Duration {
	total := time.Duration(0)
	for i := 0; i < len(entries)-1; i++ {
		total += entries[i].StartTime.Sub(entries[i+1].StartTime)
	}
	return total / time.Duration(len(entries)-1)
}

// AnalyzeFeedingPatterns computes feeding statistics from the snapshot.
func AnalyzeFeedingPatterns(snapshot domain.Snapshot) FeedingPattern {
	feedings := snapshot.OfType(domain.EntryFeeding)
	if len(feedings) == 0 {
		return FeedingPattern{Trend: TrendStable}
	}

	pattern := FeedingPattern{
		MostCommonSubtype: mostCommonSubtype(feedings),
		FrequencyPerDay:   frequencyPerDay(feedings),
		Trend:             feedingTrend(feedings),
	}

	quantityTotal, quantityCount := 0.0, 0
	for _, entry := range feedings {
		if entry.QuantityML != nil {
			quantityTotal += *entry.QuantityML
			quantityCount++
		}
	}
	if quantityCount > 0 {
		pattern.AvgQuantityML = quantityTotal / float64(quantityCount)
	}

	if len(feedings) >= 2 {
		gap := averageStartGap(feedings)
		pattern.AvgIntervalHrs = gap.Hours()
		next := feedings[0].StartTime.Add(gap)
		pattern.PredictedNext = &next
	}

	return pattern
}

// mostCommonSubtype counts subtype frequency with a first-seen-wins tie
// break, so the result never depends on map iteration order.
func mostCommonSubtype(feedings []domain.ActivityEntry) domain.FeedingSubtype {
	counts := make(map[domain.FeedingSubtype]int)
	order := make([]domain.FeedingSubtype, 0, 4)
	for _, entry := range feedings {
		if entry.FeedingSubtype == "" {
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
	return best
}

// frequencyPerDay divides the feeding count by the day span between the
// newest and oldest entry, with a one-day floor.
func frequencyPerDay(feedings []domain.ActivityEntry) float64 {
	newest := feedings[0].StartTime
	oldest := feedings[len(feedings)-1].StartTime
	daySpan := math.Abs(newest.Sub(oldest).Hours() / 24)
	return float64(len(feedings)) / math.Max(daySpan, 1)
}

// feedingTrend compares entry counts between the recent and older halves of
// the covered time span.
func feedingTrend(feedings []domain.ActivityEntry) Trend {
	if len(feedings) < 2 {
		return TrendStable
	}
	newest := feedings[0].StartTime
	oldest := feedings[len(feedings)-1].StartTime
	midpoint := oldest.Add(newest.Sub(oldest) / 2)

	recentCount, olderCount := 0.0, 0.0
	for _, entry := range feedings {
		if entry.StartTime.After(midpoint) {
			recentCount++
		} else {
			olderCount++
		}
	}

	switch {
	case recentCount > olderCount*feedTrendUpFactor:
		return TrendIncreasing
	case recentCount < olderCount*feedTrendDownFactor:
		return TrendDecreasing
	}
	return TrendStable
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
