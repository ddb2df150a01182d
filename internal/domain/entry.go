// Package domain defines the activity data model shared by the parser,
// search, insight, and guidance engines.
package domain

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrEntryNotFound is returned when an entry cannot be located.
var ErrEntryNotFound = errors.New("entry not found")

// EntryType enumerates the supported activity categories.
type EntryType string

const (
	EntryFeeding EntryType = "feeding"
	EntrySleep   EntryType = "sleep"
	EntryDiaper  EntryType = "diaper"
	EntryPumping EntryType = "pumping"
)

// FeedingSubtype narrows a feeding entry.
type FeedingSubtype string

const (
	FeedingBottle      FeedingSubtype = "bottle"
	FeedingBreastLeft  FeedingSubtype = "breast_left"
	FeedingBreastRight FeedingSubtype = "breast_right"
	FeedingBoth        FeedingSubtype = "both"
)

// DiaperSubtype narrows a diaper entry.
type DiaperSubtype string

const (
	DiaperWet   DiaperSubtype = "wet"
	DiaperDirty DiaperSubtype = "dirty"
	DiaperBoth  DiaperSubtype = "both"
)

// ActivityEntry is one recorded caregiving event. EndTime, QuantityML and the
// subtype fields are optional; QuantityML is always millilitres.
type ActivityEntry struct {
	ID             string
	BabyID         string
	Type           EntryType
	StartTime      time.Time
	EndTime        *time.Time
	QuantityML     *float64
	FeedingSubtype FeedingSubtype
	DiaperSubtype  DiaperSubtype
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Duration returns the entry span and whether an end time is present.
func (e ActivityEntry) Duration() (time.Duration, bool) {
	if e.EndTime == nil {
		return 0, false
	}
	return e.EndTime.Sub(e.StartTime), true
}

// EntryDraft carries the fields the caller supplies when creating an entry.
// Identity and timestamps are assigned by the store.
type EntryDraft struct {
	BabyID         string
	Type           EntryType
	StartTime      time.Time
	EndTime        *time.Time
	QuantityML     *float64
	FeedingSubtype FeedingSubtype
	DiaperSubtype  DiaperSubtype
	Notes          string
}

// EntryPatch carries optional updates for an existing entry. Nil fields are
// left untouched.
type EntryPatch struct {
	StartTime      *time.Time
	EndTime        *time.Time
	QuantityML     *float64
	FeedingSubtype *FeedingSubtype
	DiaperSubtype  *DiaperSubtype
	Notes          *string
}

// Store captures the persistence operations the engines depend on. Entries
// returned by ListEntries are ordered by StartTime descending.
type Store interface {
	ListEntries(ctx context.Context, babyID string, limit int) ([]ActivityEntry, error)
	CreateEntry(ctx context.Context, draft EntryDraft) (ActivityEntry, error)
	UpdateEntry(ctx context.Context, id string, patch EntryPatch) (ActivityEntry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// Snapshot is a most-recent-first sequence of entries. Interval and trend math
// in the insight engine subtracts neighbouring start times, so the ordering is
// a hard precondition; constructing a Snapshot via NewSnapshot enforces it.
type Snapshot struct {
	entries []ActivityEntry
}

// NewSnapshot copies entries and sorts them by StartTime descending.
func NewSnapshot(entries []ActivityEntry) Snapshot {
	copied := make([]ActivityEntry, len(entries))
	copy(copied, entries)
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].StartTime.After(copied[j].StartTime)
	})
	return Snapshot{entries: copied}
}

// Entries returns the ordered entries. Callers must not mutate the slice.
func (s Snapshot) Entries() []ActivityEntry {
	return s.entries
}

// Len reports the number of entries.
func (s Snapshot) Len() int {
	return len(s.entries)
}

// OfType returns the ordered subset with the given entry type.
func (s Snapshot) OfType(t EntryType) []ActivityEntry {
	out := make([]ActivityEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// BabyProfile is the read-only profile context used for age arithmetic and
// message personalisation.
type BabyProfile struct {
	ID        string
	Name      string
	Birthdate time.Time
}

// AgeInDays reports whole days since birth at the supplied instant.
func (p BabyProfile) AgeInDays(now time.Time) int {
	return int(now.Sub(p.Birthdate).Hours() / 24)
}

// WellnessEntry is a caregiver self-report used by the insight engine.
type WellnessEntry struct {
	Date           time.Time
	Mood           int
	ParentSleepHrs float64
}
