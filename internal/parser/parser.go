// Package parser classifies free-text utterances into structured actions.
// Classification first delegates to the external classifier and falls back to
// deterministic keyword rules; the fallback is an explicit branch gated on a
// confidence threshold, not buried error handling.
package parser

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"example.com/babysteps/internal/classifier"
	"example.com/babysteps/internal/domain"
	"example.com/babysteps/internal/observability"
)

// ConfidenceThreshold is the minimum classifier confidence required to trust
// its verdict over the deterministic rules.
const ConfidenceThreshold = 0.6

// ActionKind enumerates the operations an utterance can resolve to.
type ActionKind string

const (
	ActionCreateEntry ActionKind = "create_entry"
	ActionStartTimer  ActionKind = "start_timer"
	ActionStopTimer   ActionKind = "stop_timer"
	ActionSearch      ActionKind = "search"
	ActionNone        ActionKind = "none"
)

// ParsedAction is the structured result of classifying one utterance. Optional
// fields are left at their zero value when the text does not mention them.
type ParsedAction struct {
	Kind            ActionKind
	EntryType       domain.EntryType
	FeedingSubtype  domain.FeedingSubtype
	DiaperSubtype   domain.DiaperSubtype
	QuantityML      *float64
	DurationMinutes *int
	StartTime       *time.Time
	EndTime         *time.Time
	Notes           string
}

// Parser turns utterances into actions.
type Parser struct {
	classifier classifier.Client
	threshold  float64
	logger     zerolog.Logger
}

// Option customises a Parser.
type Option func(*Parser)

// WithLogger attaches a logger for fallback diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// WithThreshold overrides the classifier confidence threshold.
func WithThreshold(threshold float64) Option {
	return func(p *Parser) { p.threshold = threshold }
}

// New constructs a Parser. Pass classifier.Disabled{} to run rules-only.
func New(c classifier.Client, opts ...Option) *Parser {
	p := &Parser{
		classifier: c,
		threshold:  ConfidenceThreshold,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse classifies the utterance and extracts its structured fields. It never
// fails: a classifier error or low-confidence verdict falls through to the
// deterministic rules, and text with no recognisable keywords resolves to a
// search.
func (p *Parser) Parse(ctx context.Context, utterance, babyName string, now time.Time) ParsedAction {
	kind, delegated := p.delegate(ctx, utterance, babyName, now)
	if !delegated {
		kind = classify(utterance)
	}

	action := ParsedAction{Kind: kind}
	switch kind {
	case ActionStartTimer:
		action.EntryType = domain.EntryFeeding
		action.FeedingSubtype = extractFeedingSubtype(utterance)
	case ActionCreateEntry:
		p.extractCreateFields(&action, utterance, now)
	}

	observability.RecordParse(string(kind))
	return action
}

// delegate asks the external classifier and reports whether its verdict was
// accepted. Every failure path returns false; nothing propagates.
func (p *Parser) delegate(ctx context.Context, utterance, babyName string, now time.Time) (ActionKind, bool) {
	result, err := p.classifier.Classify(ctx, utterance, babyName, now)
	if err != nil {
		p.logger.Debug().Err(err).Msg("classifier unavailable, using deterministic rules")
		observability.RecordClassifierFallback()
		return "", false
	}
	if result.Confidence <= p.threshold {
		p.logger.Debug().
			Float64("confidence", result.Confidence).
			Str("action", result.Action).
			Msg("classifier below threshold, using deterministic rules")
		observability.RecordClassifierFallback()
		return "", false
	}

	kind, ok := kindFromClassifier(result.Action)
	if !ok {
		p.logger.Debug().Str("action", result.Action).Msg("classifier returned unknown action")
		observability.RecordClassifierFallback()
		return "", false
	}
	return kind, true
}

func kindFromClassifier(action string) (ActionKind, bool) {
	switch ActionKind(action) {
	case ActionCreateEntry, ActionStartTimer, ActionStopTimer, ActionSearch, ActionNone:
		return ActionKind(action), true
	}
	return "", false
}

func (p *Parser) extractCreateFields(action *ParsedAction, utterance string, now time.Time) {
	action.EntryType = extractEntryType(utterance)
	action.Notes = extractNotes(utterance)

	switch action.EntryType {
	case domain.EntryFeeding:
		action.FeedingSubtype = extractFeedingSubtype(utterance)
		if quantity, ok := extractQuantityML(utterance); ok {
			action.QuantityML = &quantity
		}
	case domain.EntryDiaper:
		action.DiaperSubtype = extractDiaperSubtype(utterance)
	}

	if start, end, ok := resolveTimes(utterance, now); ok {
		action.StartTime = start
		action.EndTime = end
	}

	if minutes, ok := extractDurationMinutes(utterance); ok {
		action.DurationMinutes = &minutes
		if action.EndTime == nil {
			if action.StartTime != nil {
				end := action.StartTime.Add(time.Duration(minutes) * time.Minute)
				action.EndTime = &end
			} else if action.EntryType == domain.EntrySleep {
				// "slept for 2 hours" with no anchor means the nap just ended.
				start := now.Add(-time.Duration(minutes) * time.Minute)
				action.StartTime = &start
				action.EndTime = &now
			}
		}
	}
}
