package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/babysteps/internal/classifier"
	"example.com/babysteps/internal/domain"
	"example.com/babysteps/internal/parser"
)

var anchor = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

var profile = domain.BabyProfile{
	ID:        "baby-1",
	Name:      "Ada",
	Birthdate: time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC),
}

type fakeStore struct {
	entries   []domain.ActivityEntry
	lastDraft *domain.EntryDraft
	createErr error
	listErr   error
}

func (s *fakeStore) ListEntries(_ context.Context, _ string, _ int) ([]domain.ActivityEntry, error) {
	return s.entries, s.listErr
}

func (s *fakeStore) CreateEntry(_ context.Context, draft domain.EntryDraft) (domain.ActivityEntry, error) {
	s.lastDraft = &draft
	if s.createErr != nil {
		return domain.ActivityEntry{}, s.createErr
	}
	return domain.ActivityEntry{
		ID:             "entry-1",
		BabyID:         draft.BabyID,
		Type:           draft.Type,
		StartTime:      draft.StartTime,
		EndTime:        draft.EndTime,
		QuantityML:     draft.QuantityML,
		FeedingSubtype: draft.FeedingSubtype,
		DiaperSubtype:  draft.DiaperSubtype,
		Notes:          draft.Notes,
		CreatedAt:      anchor,
		UpdatedAt:      anchor,
	}, nil
}

func (s *fakeStore) UpdateEntry(_ context.Context, _ string, _ domain.EntryPatch) (domain.ActivityEntry, error) {
	return domain.ActivityEntry{}, domain.ErrEntryNotFound
}

func (s *fakeStore) DeleteEntry(_ context.Context, _ string) error {
	return nil
}

func newService(store domain.Store) *Service {
	p := parser.New(classifier.Disabled{})
	return NewService(p, store, profile, WithClock(func() time.Time { return anchor }))
}

func TestFeedingConfirmationWithQuantity(t *testing.T) {
	store := &fakeStore{}
	resp := newService(store).HandleMessage(context.Background(), "Log a bottle feeding of 4oz")

	require.Equal(t, parser.ActionCreateEntry, resp.Kind)
	require.Equal(t, "Logged bottle feeding (118ml) for Ada.", resp.Message)
	require.NotNil(t, resp.Entry)
	require.Equal(t, "baby-1", store.lastDraft.BabyID)
	require.Equal(t, anchor, store.lastDraft.StartTime)
}

func TestFeedingConfirmationWithExplicitTime(t *testing.T) {
	store := &fakeStore{}
	resp := newService(store).HandleMessage(context.Background(), "she ate 3 hours ago")

	require.Equal(t, "Logged bottle feeding for Ada at 9:00 AM.", resp.Message)
	require.Equal(t, anchor.Add(-3*time.Hour), store.lastDraft.StartTime)
}

func TestSleepConfirmationWithDuration(t *testing.T) {
	store := &fakeStore{}
	resp := newService(store).HandleMessage(context.Background(), "log a nap of 1h30m")

	require.Equal(t, "Logged sleep for Ada for 1h30m.", resp.Message)
	require.Equal(t, domain.EntrySleep, store.lastDraft.Type)
	require.Equal(t, anchor.Add(-90*time.Minute), store.lastDraft.StartTime)
	require.Equal(t, anchor, *store.lastDraft.EndTime)
}

func TestDiaperConfirmation(t *testing.T) {
	store := &fakeStore{}
	resp := newService(store).HandleMessage(context.Background(), "log a dirty diaper")

	require.Equal(t, "Logged dirty diaper for Ada.", resp.Message)
	require.Equal(t, domain.DiaperDirty, store.lastDraft.DiaperSubtype)
}

func TestStorageFailureMessage(t *testing.T) {
	store := &fakeStore{createErr: errors.New("connection refused")}
	resp := newService(store).HandleMessage(context.Background(), "log a bottle feeding")

	require.Equal(t, "Sorry, I couldn't save that entry right now. Please try again.", resp.Message)
	require.Nil(t, resp.Entry)
	require.Equal(t, parser.ActionCreateEntry, resp.Kind)
}

func TestTimerMessages(t *testing.T) {
	svc := newService(&fakeStore{})

	start := svc.HandleMessage(context.Background(), "Start the feeding timer")
	require.Equal(t, parser.ActionStartTimer, start.Kind)
	require.Equal(t, "Started bottle timer for Ada.", start.Message)

	left := svc.HandleMessage(context.Background(), "start the left breast timer")
	require.Equal(t, "Started left breast timer for Ada.", left.Message)

	stop := svc.HandleMessage(context.Background(), "Stop the timer")
	require.Equal(t, parser.ActionStopTimer, stop.Kind)
	require.Equal(t, "Stopped the timer.", stop.Message)
}

func TestSearchUsesSnapshot(t *testing.T) {
	q1, q2 := 120.0, 80.0
	store := &fakeStore{entries: []domain.ActivityEntry{
		{Type: domain.EntryFeeding, StartTime: anchor.Add(-2 * time.Hour), QuantityML: &q1},
		{Type: domain.EntryFeeding, StartTime: anchor.Add(-5 * time.Hour), QuantityML: &q2},
	}}

	resp := newService(store).HandleMessage(context.Background(), "How many feedings today?")

	require.Equal(t, parser.ActionSearch, resp.Kind)
	require.NotNil(t, resp.Search)
	require.Equal(t, 2, resp.Search.TotalCount)
	require.Equal(t, "Found 2 feedings today. Average feeding quantity: 100ml.", resp.Message)
}

func TestSearchStoreFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	resp := newService(store).HandleMessage(context.Background(), "what happened today?")

	require.Equal(t, "Sorry, I couldn't look that up right now. Please try again.", resp.Message)
	require.Nil(t, resp.Search)
}
