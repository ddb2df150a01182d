package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/babysteps/internal/domain"
)

var now = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

func sleepEntry(start time.Time, minutes int) domain.ActivityEntry {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return domain.ActivityEntry{
		Type:      domain.EntrySleep,
		StartTime: start,
		EndTime:   &end,
	}
}

func feedingAt(start time.Time, subtype domain.FeedingSubtype, quantity float64) domain.ActivityEntry {
	return domain.ActivityEntry{
		Type:           domain.EntryFeeding,
		StartTime:      start,
		FeedingSubtype: subtype,
		QuantityML:     &quantity,
	}
}

func TestSleepTotalsMatchEntryDurations(t *testing.T) {
	entries := []domain.ActivityEntry{
		sleepEntry(now.Add(-2*time.Hour), 45),
		sleepEntry(now.Add(-6*time.Hour), 90),
		sleepEntry(now.Add(-10*time.Hour), 120),
	}
	pattern := AnalyzeSleepPatterns(domain.NewSnapshot(entries))

	require.Equal(t, 255.0, pattern.TotalMin)
	require.Equal(t, 85.0, pattern.AvgDurationMin)
	require.Equal(t, 120.0, pattern.LongestMin)
	require.Equal(t, 45.0, pattern.ShortestMin)
}

func TestSleepEfficiencyIsShareOfDay(t *testing.T) {
	entries := []domain.ActivityEntry{
		sleepEntry(now.Add(-4*time.Hour), 360), // six hours = 25% of 1440
	}
	pattern := AnalyzeSleepPatterns(domain.NewSnapshot(entries))
	require.Equal(t, 25, pattern.EfficiencyPct)
}

func TestSleepIgnoresOpenEndedEntries(t *testing.T) {
	open := domain.ActivityEntry{Type: domain.EntrySleep, StartTime: now.Add(-time.Hour)}
	entries := []domain.ActivityEntry{open, sleepEntry(now.Add(-5*time.Hour), 60)}

	pattern := AnalyzeSleepPatterns(domain.NewSnapshot(entries))
	require.Equal(t, 60.0, pattern.TotalMin)
}

func TestSleepTrendDeclining(t *testing.T) {
	// Most recent 60 minutes vs older 180 minutes: 60 < 180*0.9.
	entries := []domain.ActivityEntry{
		sleepEntry(now.Add(-2*time.Hour), 60),
		sleepEntry(now.Add(-8*time.Hour), 180),
	}
	pattern := AnalyzeSleepPatterns(domain.NewSnapshot(entries))
	require.Equal(t, TrendDeclining, pattern.Trend)
}

func TestSleepTrendImproving(t *testing.T) {
	entries := []domain.ActivityEntry{
		sleepEntry(now.Add(-2*time.Hour), 180),
		sleepEntry(now.Add(-8*time.Hour), 60),
	}
	pattern := AnalyzeSleepPatterns(domain.NewSnapshot(entries))
	require.Equal(t, TrendImproving, pattern.Trend)
}

func TestSleepTrendStableWithinBand(t *testing.T) {
	entries := []domain.ActivityEntry{
		sleepEntry(now.Add(-2*time.Hour), 100),
		sleepEntry(now.Add(-8*time.Hour), 100),
	}
	pattern := AnalyzeSleepPatterns(domain.NewSnapshot(entries))
	require.Equal(t, TrendStable, pattern.Trend)
}

func TestSleepPredictedNext(t *testing.T) {
	// Starts 4 hours apart; most recent nap ended at now-1h, so the next one
	// is predicted 4 hours after that.
	entries := []domain.ActivityEntry{
		sleepEntry(now.Add(-2*time.Hour), 60),
		sleepEntry(now.Add(-6*time.Hour), 60),
		sleepEntry(now.Add(-10*time.Hour), 60),
	}
	pattern := AnalyzeSleepPatterns(domain.NewSnapshot(entries))

	require.NotNil(t, pattern.PredictedNext)
	require.Equal(t, now.Add(-time.Hour).Add(4*time.Hour), *pattern.PredictedNext)
}

func TestFeedingIntervalAndPrediction(t *testing.T) {
	entries := []domain.ActivityEntry{
		feedingAt(now.Add(-1*time.Hour), domain.FeedingBottle, 120),
		feedingAt(now.Add(-4*time.Hour), domain.FeedingBottle, 100),
		feedingAt(now.Add(-7*time.Hour), domain.FeedingBottle, 110),
	}
	pattern := AnalyzeFeedingPatterns(domain.NewSnapshot(entries))

	require.Equal(t, 3.0, pattern.AvgIntervalHrs)
	require.Equal(t, 110.0, pattern.AvgQuantityML)
	require.NotNil(t, pattern.PredictedNext)
	require.Equal(t, now.Add(2*time.Hour), *pattern.PredictedNext)
}

func TestFeedingMostCommonSubtypeFirstSeenTieBreak(t *testing.T) {
	entries := []domain.ActivityEntry{
		feedingAt(now.Add(-1*time.Hour), domain.FeedingBreastLeft, 0),
		feedingAt(now.Add(-3*time.Hour), domain.FeedingBottle, 0),
		feedingAt(now.Add(-5*time.Hour), domain.FeedingBreastLeft, 0),
		feedingAt(now.Add(-7*time.Hour), domain.FeedingBottle, 0),
	}
	pattern := AnalyzeFeedingPatterns(domain.NewSnapshot(entries))
	require.Equal(t, domain.FeedingBreastLeft, pattern.MostCommonSubtype)
}

func TestFeedingFrequencyPerDayFloorsSpan(t *testing.T) {
	// All feedings inside one day: span floors to 1.
	entries := []domain.ActivityEntry{
		feedingAt(now.Add(-1*time.Hour), domain.FeedingBottle, 0),
		feedingAt(now.Add(-5*time.Hour), domain.FeedingBottle, 0),
		feedingAt(now.Add(-9*time.Hour), domain.FeedingBottle, 0),
	}
	pattern := AnalyzeFeedingPatterns(domain.NewSnapshot(entries))
	require.Equal(t, 3.0, pattern.FrequencyPerDay)
}

func TestFeedingTrendIncreasing(t *testing.T) {
	// Five feedings in the recent half of the span, two in the older half.
	entries := []domain.ActivityEntry{
		feedingAt(now.Add(-1*time.Hour), domain.FeedingBottle, 0),
		feedingAt(now.Add(-2*time.Hour), domain.FeedingBottle, 0),
		feedingAt(now.Add(-3*time.Hour), domain.FeedingBottle, 0),
		feedingAt(now.Add(-4*time.Hour), domain.FeedingBottle, 0),
		feedingAt(now.Add(-5*time.Hour), domain.FeedingBottle, 0),
		feedingAt(now.Add(-20*time.Hour), domain.FeedingBottle, 0),
		feedingAt(now.Add(-24*time.Hour), domain.FeedingBottle, 0),
	}
	pattern := AnalyzeFeedingPatterns(domain.NewSnapshot(entries))
	require.Equal(t, TrendIncreasing, pattern.Trend)
}

func TestEmptySnapshotsAreStable(t *testing.T) {
	empty := domain.NewSnapshot(nil)
	require.Equal(t, TrendStable, AnalyzeSleepPatterns(empty).Trend)
	require.Equal(t, TrendStable, AnalyzeFeedingPatterns(empty).Trend)
	require.Nil(t, AnalyzeSleepPatterns(empty).PredictedNext)
}

func TestGenerateInsightsShortSleepRecommendation(t *testing.T) {
	entries := []domain.ActivityEntry{
		sleepEntry(now.Add(-2*time.Hour), 30),
		sleepEntry(now.Add(-6*time.Hour), 40),
	}
	result := GenerateInsights(domain.NewSnapshot(entries), nil)

	require.Contains(t, result.Recommendations,
		"Sleep sessions are running short. A consistent bedtime routine can help lengthen them.")
	require.Contains(t, result.Recommendations,
		"Total sleep is low for the day. Consider adding a structured nap window.")
}

func TestGenerateInsightsDecliningSleepAlert(t *testing.T) {
	entries := []domain.ActivityEntry{
		sleepEntry(now.Add(-2*time.Hour), 60),
		sleepEntry(now.Add(-8*time.Hour), 180),
	}
	result := GenerateInsights(domain.NewSnapshot(entries), nil)

	require.Contains(t, result.Alerts,
		"Sleep durations are trending down. This can signal a sleep regression.")
}

func TestGenerateInsightsClusterFeeding(t *testing.T) {
	entries := []domain.ActivityEntry{
		feedingAt(now.Add(-1*time.Hour), domain.FeedingBottle, 100),
		feedingAt(now.Add(-2*time.Hour), domain.FeedingBottle, 100),
		feedingAt(now.Add(-3*time.Hour), domain.FeedingBottle, 100),
	}
	result := GenerateInsights(domain.NewSnapshot(entries), nil)

	require.Contains(t, result.Recommendations,
		"Feedings are very close together. Cluster feeding often accompanies a growth spurt.")
}

func TestGenerateInsightsWellnessRules(t *testing.T) {
	wellness := []domain.WellnessEntry{
		{Date: now, Mood: 2, ParentSleepHrs: 3},
		{Date: now.AddDate(0, 0, -1), Mood: 2, ParentSleepHrs: 3.5},
		{Date: now.AddDate(0, 0, -2), Mood: 3, ParentSleepHrs: 4},
	}
	result := GenerateInsights(domain.NewSnapshot(nil), wellness)

	require.Contains(t, result.Alerts,
		"Your recent mood check-ins are low. Consider reaching out for support.")
	require.Contains(t, result.Recommendations,
		"You're averaging very little sleep. Try to rest when the baby sleeps.")
}

func TestGenerateInsightsQuietWhenHealthy(t *testing.T) {
	entries := []domain.ActivityEntry{
		sleepEntry(now.Add(-2*time.Hour), 120),
		sleepEntry(now.Add(-8*time.Hour), 120),
		sleepEntry(now.Add(-14*time.Hour), 120),
		sleepEntry(now.Add(-20*time.Hour), 120),
		feedingAt(now.Add(-1*time.Hour), domain.FeedingBottle, 120),
		feedingAt(now.Add(-4*time.Hour), domain.FeedingBottle, 120),
		feedingAt(now.Add(-7*time.Hour), domain.FeedingBottle, 120),
	}
	wellness := []domain.WellnessEntry{{Date: now, Mood: 4, ParentSleepHrs: 7}}
	result := GenerateInsights(domain.NewSnapshot(entries), wellness)

	require.Empty(t, result.Recommendations)
	require.Empty(t, result.Alerts)
}
