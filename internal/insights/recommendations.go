package insights

import (
	"example.com/babysteps/internal/domain"
)

// GenerateInsights runs both analyses and applies the fixed recommendation
// and alert rules over the results and the caregiver wellness log.
func GenerateInsights(snapshot domain.Snapshot, wellness []domain.WellnessEntry) PatternInsights {
	sleep := AnalyzeSleepPatterns(snapshot)
	feeding := AnalyzeFeedingPatterns(snapshot)

	out := PatternInsights{
		Sleep:           sleep,
		Feeding:         feeding,
		Recommendations: []string{},
		Alerts:          []string{},
	}

	if sleep.TotalMin > 0 && sleep.AvgDurationMin < shortSleepAvgMinutes {
		out.Recommendations = append(out.Recommendations,
			"Sleep sessions are running short. A consistent bedtime routine can help lengthen them.")
	}
	if sleep.Trend == TrendDeclining {
		out.Alerts = append(out.Alerts,
			"Sleep durations are trending down. This can signal a sleep regression.")
	}
	if sleep.TotalMin > 0 && sleep.EfficiencyPct < lowEfficiencyPct {
		out.Recommendations = append(out.Recommendations,
			"Total sleep is low for the day. Consider adding a structured nap window.")
	}

	if feeding.AvgIntervalHrs > 0 && feeding.AvgIntervalHrs < clusterFeedHrs {
		out.Recommendations = append(out.Recommendations,
			"Feedings are very close together. Cluster feeding often accompanies a growth spurt.")
	}
	if feeding.Trend == TrendIncreasing {
		out.Recommendations = append(out.Recommendations,
			"Feeding frequency is rising. This is common during growth spurts.")
	}

	if mood, ok := recentMoodAverage(wellness); ok && mood < lowMoodAvg {
		out.Alerts = append(out.Alerts,
			"Your recent mood check-ins are low. Consider reaching out for support.")
	}
	if parentSleep, ok := parentSleepAverage(wellness); ok && parentSleep < lowParentSleepHrs {
		out.Recommendations = append(out.Recommendations,
			"You're averaging very little sleep. Try to rest when the baby sleeps.")
	}

	return out
}

// recentMoodAverage averages mood over the last seven wellness check-ins.
func recentMoodAverage(wellness []domain.WellnessEntry) (float64, bool) {
	if len(wellness) == 0 {
		return 0, false
	}
	recent := wellness
	if len(recent) > wellnessLookbackCount {
		recent = recent[:wellnessLookbackCount]
	}
	total := 0.0
	for _, entry := range recent {
		total += float64(entry.Mood)
	}
	return total / float64(len(recent)), true
}

func parentSleepAverage(wellness []domain.WellnessEntry) (float64, bool) {
	if len(wellness) == 0 {
		return 0, false
	}
	total := 0.0
	for _, entry := range wellness {
		total += entry.ParentSleepHrs
	}
	return total / float64(len(wellness)), true
}
