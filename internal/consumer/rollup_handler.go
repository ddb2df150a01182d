package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/babysteps/internal/events"
)

// RollupHandler folds entry events into per-day per-type counts.
type RollupHandler struct {
	pool *pgxpool.Pool
}

// NewRollupHandler constructs a handler backed by the provided pool.
func NewRollupHandler(pool *pgxpool.Pool) *RollupHandler {
	return &RollupHandler{pool: pool}
}

// Handle adjusts the daily rollup for the event's day. Updates carry no count
// change; deletes without an entry type (the API does not echo it) are skipped
// rather than guessed.
func (h *RollupHandler) Handle(ctx context.Context, msg Message) error {
	var delta int
	switch msg.Event.Kind {
	case events.KindEntryCreated:
		delta = 1
	case events.KindEntryDeleted:
		delta = -1
	default:
		return nil
	}
	if msg.Event.EntryType == "" {
		return nil
	}

	day := msg.Event.OccurredAt.UTC().Format("2006-01-02")

	_, err := h.pool.Exec(ctx,
		`INSERT INTO daily_rollups (day, baby_id, entry_type, entry_count)
         VALUES ($1,$2,$3,$4)
         ON CONFLICT (day, baby_id, entry_type)
         DO UPDATE SET entry_count = daily_rollups.entry_count + EXCLUDED.entry_count`,
		day,
		msg.Event.BabyID,
		msg.Event.EntryType,
		delta,
	)
	return err
}
