//go:build integration

package consumer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/babysteps/internal/events"
)

func TestRollupHandlerCountsByDay(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("babysteps"),
		postgrescontainer.WithUsername("babysteps"),
		postgrescontainer.WithPassword("babysteps"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, waitForDatabase(ctx, pool))
	runMigrations(t, ctx, pool)

	handler := NewRollupHandler(pool)
	day := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

	created := func(entryType string, at time.Time) Message {
		return Message{
			Topic: events.Topic,
			Event: events.EntryEvent{
				Kind:       events.KindEntryCreated,
				EntryID:    "e",
				BabyID:     "baby-1",
				EntryType:  entryType,
				OccurredAt: at,
			},
		}
	}

	require.NoError(t, handler.Handle(ctx, created("feeding", day)))
	require.NoError(t, handler.Handle(ctx, created("feeding", day.Add(2*time.Hour))))
	require.NoError(t, handler.Handle(ctx, created("sleep", day)))
	require.NoError(t, handler.Handle(ctx, created("feeding", day.AddDate(0, 0, 1))))

	var count int
	err = pool.QueryRow(ctx,
		`SELECT entry_count FROM daily_rollups WHERE day=$1 AND baby_id=$2 AND entry_type=$3`,
		"2024-03-15", "baby-1", "feeding").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	deleted := Message{
		Topic: events.Topic,
		Event: events.EntryEvent{
			Kind:       events.KindEntryDeleted,
			EntryID:    "e",
			BabyID:     "baby-1",
			EntryType:  "feeding",
			OccurredAt: day,
		},
	}
	require.NoError(t, handler.Handle(ctx, deleted))

	err = pool.QueryRow(ctx,
		`SELECT entry_count FROM daily_rollups WHERE day=$1 AND baby_id=$2 AND entry_type=$3`,
		"2024-03-15", "baby-1", "feeding").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func runMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	files := []string{
		"../../db/postgres/migrations/0001_init.up.sql",
		"../../db/postgres/migrations/0002_daily_rollups.up.sql",
	}
	for _, rel := range files {
		_, file, _, ok := runtime.Caller(0)
		require.True(t, ok)
		contents, err := os.ReadFile(filepath.Join(filepath.Dir(file), rel))
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(contents))
		require.NoError(t, err)
	}
}

func waitForDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		err := pool.Ping(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
