// Package postgres provides the Postgres-backed entry store.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/babysteps/internal/domain"
	"example.com/babysteps/internal/observability"
)

const entryColumns = `entry_id, baby_id, entry_type, start_time, end_time, quantity_ml, feeding_subtype, diaper_subtype, notes, created_at, updated_at`

// Repository provides Postgres-backed persistence for activity entries and
// wellness check-ins.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListEntries returns the most recent entries for a baby, newest first.
func (r *Repository) ListEntries(ctx context.Context, babyID string, limit int) ([]domain.ActivityEntry, error) {
	const query = `SELECT ` + entryColumns + `
        FROM entries WHERE baby_id=$1 ORDER BY start_time DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, babyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivityEntry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}

// CreateEntry persists a new entry and returns it with identity and
// timestamps assigned.
func (r *Repository) CreateEntry(ctx context.Context, draft domain.EntryDraft) (domain.ActivityEntry, error) {
	now := time.Now().UTC()
	entry := domain.ActivityEntry{
		ID:             uuid.NewString(),
		BabyID:         draft.BabyID,
		Type:           draft.Type,
		StartTime:      draft.StartTime,
		EndTime:        draft.EndTime,
		QuantityML:     draft.QuantityML,
		FeedingSubtype: draft.FeedingSubtype,
		DiaperSubtype:  draft.DiaperSubtype,
		Notes:          draft.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	const stmt = `INSERT INTO entries (` + entryColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := r.pool.Exec(ctx, stmt,
		entry.ID,
		entry.BabyID,
		string(entry.Type),
		entry.StartTime,
		entry.EndTime,
		entry.QuantityML,
		nullIfEmpty(string(entry.FeedingSubtype)),
		nullIfEmpty(string(entry.DiaperSubtype)),
		entry.Notes,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return domain.ActivityEntry{}, err
	}

	observability.RecordEntryPersisted(now)
	return entry, nil
}

// UpdateEntry applies a patch and returns the stored row. Nil patch fields
// leave the stored value untouched.
func (r *Repository) UpdateEntry(ctx context.Context, id string, patch domain.EntryPatch) (domain.ActivityEntry, error) {
	const stmt = `UPDATE entries SET
            start_time = COALESCE($2, start_time),
            end_time = COALESCE($3, end_time),
            quantity_ml = COALESCE($4, quantity_ml),
            feeding_subtype = COALESCE($5, feeding_subtype),
            diaper_subtype = COALESCE($6, diaper_subtype),
            notes = COALESCE($7, notes),
            updated_at = $8
        WHERE entry_id=$1
        RETURNING ` + entryColumns

	row := r.pool.QueryRow(ctx, stmt,
		id,
		patch.StartTime,
		patch.EndTime,
		patch.QuantityML,
		subtypeParam(patch.FeedingSubtype),
		subtypeParam(patch.DiaperSubtype),
		patch.Notes,
		time.Now().UTC(),
	)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ActivityEntry{}, domain.ErrEntryNotFound
		}
		return domain.ActivityEntry{}, err
	}
	return entry, nil
}

// DeleteEntry removes an entry by ID.
func (r *Repository) DeleteEntry(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM entries WHERE entry_id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// ListWellness returns the most recent wellness check-ins, newest first.
func (r *Repository) ListWellness(ctx context.Context, babyID string, limit int) ([]domain.WellnessEntry, error) {
	const query = `SELECT entry_date, mood, parent_sleep_hours
        FROM wellness_entries WHERE baby_id=$1 ORDER BY entry_date DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, babyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.WellnessEntry, 0, limit)
	for rows.Next() {
		var entry domain.WellnessEntry
		if err := rows.Scan(&entry.Date, &entry.Mood, &entry.ParentSleepHrs); err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}

// CreateWellness persists a caregiver check-in.
func (r *Repository) CreateWellness(ctx context.Context, babyID string, entry domain.WellnessEntry) error {
	const stmt = `INSERT INTO wellness_entries (wellness_id, baby_id, entry_date, mood, parent_sleep_hours, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := r.pool.Exec(ctx, stmt,
		uuid.NewString(),
		babyID,
		entry.Date,
		entry.Mood,
		entry.ParentSleepHrs,
		time.Now().UTC(),
	)
	return err
}

func scanEntry(row pgx.Row) (domain.ActivityEntry, error) {
	var entry domain.ActivityEntry
	var entryType string
	var feedingSubtype, diaperSubtype *string

	err := row.Scan(
		&entry.ID,
		&entry.BabyID,
		&entryType,
		&entry.StartTime,
		&entry.EndTime,
		&entry.QuantityML,
		&feedingSubtype,
		&diaperSubtype,
		&entry.Notes,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return domain.ActivityEntry{}, err
	}

	entry.Type = domain.EntryType(entryType)
	if feedingSubtype != nil {
		entry.FeedingSubtype = domain.FeedingSubtype(*feedingSubtype)
	}
	if diaperSubtype != nil {
		entry.DiaperSubtype = domain.DiaperSubtype(*diaperSubtype)
	}
	return entry, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func subtypeParam[T ~string](value *T) interface{} {
	if value == nil {
		return nil
	}
	return string(*value)
}
