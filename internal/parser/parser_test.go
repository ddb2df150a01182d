package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/babysteps/internal/classifier"
	"example.com/babysteps/internal/domain"
)

var now = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

type stubClassifier struct {
	result classifier.Result
	err    error
	calls  int
}

func (s *stubClassifier) Classify(context.Context, string, string, time.Time) (classifier.Result, error) {
	s.calls++
	return s.result, s.err
}

func rulesOnly() *Parser {
	return New(classifier.Disabled{})
}

func TestParseLogBottleFeedingWithOunces(t *testing.T) {
	action := rulesOnly().Parse(context.Background(), "Log a bottle feeding of 4oz", "Ada", now)

	require.Equal(t, ActionCreateEntry, action.Kind)
	require.Equal(t, domain.EntryFeeding, action.EntryType)
	require.Equal(t, domain.FeedingBottle, action.FeedingSubtype)
	require.NotNil(t, action.QuantityML)
	require.InDelta(t, 118, *action.QuantityML, 1)
}

func TestParseMillilitresPassThrough(t *testing.T) {
	action := rulesOnly().Parse(context.Background(), "record a feeding of 120ml", "Ada", now)

	require.Equal(t, ActionCreateEntry, action.Kind)
	require.NotNil(t, action.QuantityML)
	require.Equal(t, 120.0, *action.QuantityML)
}

func TestParseStopTimer(t *testing.T) {
	action := rulesOnly().Parse(context.Background(), "Stop the timer", "Ada", now)
	require.Equal(t, ActionStopTimer, action.Kind)
}

func TestParseStartTimerSubtypePrecedence(t *testing.T) {
	cases := []struct {
		utterance string
		want      domain.FeedingSubtype
	}{
		{"start the left breast timer", domain.FeedingBreastLeft},
		{"start right side feeding", domain.FeedingBreastRight},
		{"start feeding both sides", domain.FeedingBreastLeft},
		{"start a bottle feeding timer", domain.FeedingBottle},
		{"start nursing timer", domain.FeedingBreastLeft},
		{"start the timer", domain.FeedingBottle},
	}
	for _, tc := range cases {
		action := rulesOnly().Parse(context.Background(), tc.utterance, "Ada", now)
		require.Equal(t, ActionStartTimer, action.Kind, tc.utterance)
		require.Equal(t, tc.want, action.FeedingSubtype, tc.utterance)
	}
}

func TestParseRelativeTime(t *testing.T) {
	action := rulesOnly().Parse(context.Background(), "she ate 3 hours ago", "Ada", now)

	require.Equal(t, ActionCreateEntry, action.Kind)
	require.NotNil(t, action.StartTime)
	require.Equal(t, time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC), *action.StartTime)
	require.Nil(t, action.DurationMinutes)
}

func TestParseSleepWithDuration(t *testing.T) {
	action := rulesOnly().Parse(context.Background(), "log a nap of 1h30m", "Ada", now)

	require.Equal(t, ActionCreateEntry, action.Kind)
	require.Equal(t, domain.EntrySleep, action.EntryType)
	require.NotNil(t, action.DurationMinutes)
	require.Equal(t, 90, *action.DurationMinutes)
	require.NotNil(t, action.StartTime)
	require.NotNil(t, action.EndTime)
	require.Equal(t, now, *action.EndTime)
	require.Equal(t, now.Add(-90*time.Minute), *action.StartTime)
}

func TestParseSleepSpan(t *testing.T) {
	action := rulesOnly().Parse(context.Background(), "track sleep from 9:30 to 11:15", "Ada", now)

	require.Equal(t, ActionCreateEntry, action.Kind)
	require.Equal(t, domain.EntrySleep, action.EntryType)
	require.NotNil(t, action.StartTime)
	require.NotNil(t, action.EndTime)
	require.Equal(t, 9, action.StartTime.Hour())
	require.Equal(t, 11, action.EndTime.Hour())
	require.Equal(t, 15, action.EndTime.Minute())
}

func TestParseDiaperSubtypes(t *testing.T) {
	cases := []struct {
		utterance string
		want      domain.DiaperSubtype
	}{
		{"log a wet diaper", domain.DiaperWet},
		{"changed a dirty diaper", domain.DiaperDirty},
		{"had a wet and dirty diaper", domain.DiaperBoth},
	}
	for _, tc := range cases {
		action := rulesOnly().Parse(context.Background(), tc.utterance, "Ada", now)
		require.Equal(t, ActionCreateEntry, action.Kind, tc.utterance)
		require.Equal(t, domain.EntryDiaper, action.EntryType, tc.utterance)
		require.Equal(t, tc.want, action.DiaperSubtype, tc.utterance)
	}
}

func TestParseNotes(t *testing.T) {
	quoted := rulesOnly().Parse(context.Background(), `log a feeding "seemed extra hungry"`, "Ada", now)
	require.Equal(t, "seemed extra hungry", quoted.Notes)

	suffixed := rulesOnly().Parse(context.Background(), "log a feeding note: spit up after", "Ada", now)
	require.Equal(t, "spit up after", suffixed.Notes)
}

func TestParseUnrecognisedDefaultsToSearch(t *testing.T) {
	for _, utterance := range []string{
		"how did she do last night?",
		"hello there",
		"",
	} {
		action := rulesOnly().Parse(context.Background(), utterance, "Ada", now)
		require.Equal(t, ActionSearch, action.Kind, utterance)
	}
}

func TestParseDiscardsImplausibleBareNumber(t *testing.T) {
	action := rulesOnly().Parse(context.Background(), "log a feeding of 9000", "Ada", now)
	require.Equal(t, ActionCreateEntry, action.Kind)
	require.Nil(t, action.QuantityML)
}

func TestClassifierAcceptedAboveThreshold(t *testing.T) {
	stub := &stubClassifier{result: classifier.Result{Action: "stop_timer", Confidence: 0.95}}
	p := New(stub)

	action := p.Parse(context.Background(), "wrap it up", "Ada", now)
	require.Equal(t, ActionStopTimer, action.Kind)
	require.Equal(t, 1, stub.calls)
}

func TestClassifierBelowThresholdFallsBack(t *testing.T) {
	stub := &stubClassifier{result: classifier.Result{Action: "create_entry", Confidence: 0.4}}
	p := New(stub)

	action := p.Parse(context.Background(), "Stop the timer", "Ada", now)
	require.Equal(t, ActionStopTimer, action.Kind)
}

func TestClassifierAtThresholdFallsBack(t *testing.T) {
	stub := &stubClassifier{result: classifier.Result{Action: "create_entry", Confidence: ConfidenceThreshold}}
	p := New(stub)

	action := p.Parse(context.Background(), "Stop the timer", "Ada", now)
	require.Equal(t, ActionStopTimer, action.Kind)
}

func TestClassifierErrorFallsBack(t *testing.T) {
	stub := &stubClassifier{err: errors.New("connection refused")}
	p := New(stub)

	action := p.Parse(context.Background(), "Log a bottle feeding of 4oz", "Ada", now)
	require.Equal(t, ActionCreateEntry, action.Kind)
}

func TestClassifierUnknownActionFallsBack(t *testing.T) {
	stub := &stubClassifier{result: classifier.Result{Action: "escalate", Confidence: 0.99}}
	p := New(stub)

	action := p.Parse(context.Background(), "Stop the timer", "Ada", now)
	require.Equal(t, ActionStopTimer, action.Kind)
}

func TestClassifierCreateEntryStillExtractsFields(t *testing.T) {
	stub := &stubClassifier{result: classifier.Result{Action: "create_entry", Confidence: 0.9}}
	p := New(stub)

	action := p.Parse(context.Background(), "bottle, 120ml, 20 minutes ago", "Ada", now)
	require.Equal(t, ActionCreateEntry, action.Kind)
	require.Equal(t, domain.EntryFeeding, action.EntryType)
	require.Equal(t, domain.FeedingBottle, action.FeedingSubtype)
	require.NotNil(t, action.QuantityML)
	require.Equal(t, 120.0, *action.QuantityML)
	require.NotNil(t, action.StartTime)
	require.Equal(t, now.Add(-20*time.Minute), *action.StartTime)
}
