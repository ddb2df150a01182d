// Package assistant orchestrates the conversational flow: it parses an
// utterance, persists created entries through the store, executes searches
// over the activity snapshot, and renders the templated reply text.
package assistant

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"example.com/babysteps/internal/domain"
	"example.com/babysteps/internal/events"
	"example.com/babysteps/internal/parser"
	"example.com/babysteps/internal/search"
	"example.com/babysteps/internal/timeparse"
)

// snapshotLimit bounds how much history a search loads. Snapshots are small
// in practice; this is a guard, not pagination.
const snapshotLimit = 500

// storageFailureMessage is shown when persisting an entry fails. Storage
// trouble is recoverable and must never escape as an error.
const storageFailureMessage = "Sorry, I couldn't save that entry right now. Please try again."

// Response is what the caller renders back to the caregiver.
type Response struct {
	Kind    parser.ActionKind
	Message string
	Action  *parser.ParsedAction
	Entry   *domain.ActivityEntry
	Search  *search.Result
}

// EventSink receives entry lifecycle notifications. Implementations must not
// block the caller on delivery.
type EventSink interface {
	PublishEntryEvent(ctx context.Context, kind string, entry domain.ActivityEntry)
}

// Service wires the parser, search engine, and store together.
type Service struct {
	parser  *parser.Parser
	store   domain.Store
	profile domain.BabyProfile
	events  EventSink
	logger  zerolog.Logger
	clock   func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithEvents attaches a sink notified when entries are created through chat.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// NewService constructs a Service.
func NewService(p *parser.Parser, store domain.Store, profile domain.BabyProfile, opts ...Option) *Service {
	s := &Service{
		parser:  p,
		store:   store,
		profile: profile,
		logger:  zerolog.Nop(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage classifies the utterance and carries out the resulting
// action. It never returns an error to the caller: failures become plain
// messages in the response.
func (s *Service) HandleMessage(ctx context.Context, text string) Response {
	now := s.clock()
	action := s.parser.Parse(ctx, text, s.profile.Name, now)

	switch action.Kind {
	case parser.ActionCreateEntry:
		return s.createEntry(ctx, action, now)
	case parser.ActionStartTimer:
		return Response{
			Kind:    action.Kind,
			Action:  &action,
			Message: fmt.Sprintf("Started %s timer for %s.", feedingSubtypeLabel(action.FeedingSubtype), s.profile.Name),
		}
	case parser.ActionStopTimer:
		return Response{
			Kind:    action.Kind,
			Action:  &action,
			Message: "Stopped the timer.",
		}
	case parser.ActionSearch:
		return s.runSearch(ctx, text, now)
	}

	return Response{
		Kind:    action.Kind,
		Message: fmt.Sprintf("I wasn't sure what to do with that. You can log activities for %s or ask about recent ones.", s.profile.Name),
	}
}

func (s *Service) createEntry(ctx context.Context, action parser.ParsedAction, now time.Time) Response {
	draft := draftFromAction(action, s.profile.ID, now)

	entry, err := s.store.CreateEntry(ctx, draft)
	if err != nil {
		s.logger.Error().Err(err).Str("entry_type", string(draft.Type)).Msg("failed to persist entry")
		return Response{
			Kind:    action.Kind,
			Action:  &action,
			Message: storageFailureMessage,
		}
	}

	if s.events != nil {
		s.events.PublishEntryEvent(ctx, events.KindEntryCreated, entry)
	}

	return Response{
		Kind:    action.Kind,
		Action:  &action,
		Entry:   &entry,
		Message: s.confirmation(action, entry),
	}
}

// draftFromAction fills the persistence draft, defaulting the start time to
// now when the utterance carried none.
func draftFromAction(action parser.ParsedAction, babyID string, now time.Time) domain.EntryDraft {
	draft := domain.EntryDraft{
		BabyID: babyID,
		Type:   action.EntryType,
		Notes:  action.Notes,
	}

	if action.StartTime != nil {
		draft.StartTime = *action.StartTime
	} else {
		draft.StartTime = now
	}
	draft.EndTime = action.EndTime

	switch action.EntryType {
	case domain.EntryFeeding:
		draft.FeedingSubtype = action.FeedingSubtype
		draft.QuantityML = action.QuantityML
	case domain.EntryDiaper:
		draft.DiaperSubtype = action.DiaperSubtype
	}

	return draft
}

func (s *Service) runSearch(ctx context.Context, text string, now time.Time) Response {
	entries, err := s.store.ListEntries(ctx, s.profile.ID, snapshotLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load snapshot for search")
		return Response{
			Kind:    parser.ActionSearch,
			Message: "Sorry, I couldn't look that up right now. Please try again.",
		}
	}

	query := search.Compile(text, now)
	result := search.Execute(domain.NewSnapshot(entries), query)
	return Response{
		Kind:    parser.ActionSearch,
		Search:  &result,
		Message: result.SummaryText,
	}
}

// confirmation renders the per-type confirmation templates. The wording is a
// contract shared with the UI.
func (s *Service) confirmation(action parser.ParsedAction, entry domain.ActivityEntry) string {
	name := s.profile.Name

	switch entry.Type {
	case domain.EntryFeeding:
		msg := fmt.Sprintf("Logged %s feeding", feedingSubtypeLabel(entry.FeedingSubtype))
		if entry.QuantityML != nil {
			msg += fmt.Sprintf(" (%dml)", int(math.Round(*entry.QuantityML)))
		}
		msg += " for " + name
		if action.StartTime != nil {
			msg += " at " + entry.StartTime.Format("3:04 PM")
		}
		return msg + "."
	case domain.EntrySleep:
		msg := "Logged sleep for " + name
		if minutes, ok := durationMinutes(action, entry); ok {
			msg += " for " + timeparse.FormatHoursMinutes(minutes)
		}
		return msg + "."
	case domain.EntryDiaper:
		return fmt.Sprintf("Logged %s diaper for %s.", diaperSubtypeLabel(entry.DiaperSubtype), name)
	}

	return fmt.Sprintf("Logged %s for %s.", entry.Type, name)
}

func durationMinutes(action parser.ParsedAction, entry domain.ActivityEntry) (int, bool) {
	if action.DurationMinutes != nil {
		return *action.DurationMinutes, true
	}
	if span, ok := entry.Duration(); ok {
		return int(span.Minutes()), true
	}
	return 0, false
}

func feedingSubtypeLabel(subtype domain.FeedingSubtype) string {
	switch subtype {
	case domain.FeedingBreastLeft:
		return "left breast"
	case domain.FeedingBreastRight:
		return "right breast"
	case domain.FeedingBoth:
		return "both breasts"
	}
	return "bottle"
}

func diaperSubtypeLabel(subtype domain.DiaperSubtype) string {
	if subtype == domain.DiaperBoth {
		return "wet & dirty"
	}
	if subtype == "" {
		return string(domain.DiaperWet)
	}
	return string(subtype)
}
