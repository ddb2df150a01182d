// Package guidance produces age- and recency-based advisory messages and the
// context-sensitive defaults used to pre-fill new-entry forms.
package guidance

import (
	"fmt"
	"sort"
	"time"

	"example.com/babysteps/internal/domain"
)

// MessageKind labels a guidance message for display.
type MessageKind string

const (
	KindInsight       MessageKind = "insight"
	KindEncouragement MessageKind = "encouragement"
	KindAlert         MessageKind = "alert"
	KindMilestone     MessageKind = "milestone"
)

// Message is one advisory shown on the dashboard.
type Message struct {
	Text      string
	Kind      MessageKind
	Timestamp time.Time
}

const (
	sleepGapAlertHours   = 4
	growthSpurtFeedCount = 6
	trackingStreakDays   = 7
)

// Generate applies the guidance rules against the snapshot and profile. All
// messages are stamped with now and returned newest-first.
func Generate(snapshot domain.Snapshot, profile domain.BabyProfile, now time.Time) []Message {
	messages := make([]Message, 0, 4)
	dayAgo := now.Add(-24 * time.Hour)

	sleeps := snapshot.OfType(domain.EntrySleep)
	recentSleeps := 0
	for _, entry := range sleeps {
		if !entry.StartTime.Before(dayAgo) {
			recentSleeps++
		}
	}
	if recentSleeps == 0 && len(sleeps) > 0 {
		sinceLast := now.Sub(sleeps[0].StartTime)
		if sinceLast > sleepGapAlertHours*time.Hour {
			messages = append(messages, Message{
				Text:      fmt.Sprintf("%s hasn't had a recorded sleep in a while. A nap might be due.", profile.Name),
				Kind:      KindInsight,
				Timestamp: now,
			})
		}
	}

	recentFeedings := 0
	for _, entry := range snapshot.OfType(domain.EntryFeeding) {
		if !entry.StartTime.Before(dayAgo) {
			recentFeedings++
		}
	}
	if recentFeedings >= growthSpurtFeedCount {
		messages = append(messages, Message{
			Text:      fmt.Sprintf("%s has fed %d times in the last 24 hours. Frequent feeding often means a growth spurt.", profile.Name, recentFeedings),
			Kind:      KindInsight,
			Timestamp: now,
		})
	}

	switch profile.AgeInDays(now) {
	case 7:
		messages = append(messages, Message{
			Text:      fmt.Sprintf("%s is one week old today!", profile.Name),
			Kind:      KindMilestone,
			Timestamp: now,
		})
	case 30:
		messages = append(messages, Message{
			Text:      fmt.Sprintf("%s is one month old today!", profile.Name),
			Kind:      KindMilestone,
			Timestamp: now,
		})
	}

	if distinctTrackedDays(snapshot) >= trackingStreakDays {
		messages = append(messages, Message{
			Text:      "You've been tracking for a full week. Keep it up!",
			Kind:      KindEncouragement,
			Timestamp: now,
		})
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
	return messages
}

func distinctTrackedDays(snapshot domain.Snapshot) int {
	days := make(map[string]struct{})
	for _, entry := range snapshot.Entries() {
		days[entry.StartTime.Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}
