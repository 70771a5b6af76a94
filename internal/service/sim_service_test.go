package service

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"github.com/AdamBeresnev/bracket-sim/internal/db"
	"github.com/AdamBeresnev/bracket-sim/internal/store"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func (c *fakeClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += 1000
	return c.now
}

func newTestService(t *testing.T) (*SimService, *sqlx.DB) {
	t.Helper()
	database := setupTestDB(t)
	clock := &fakeClock{}
	return NewSimService(database, store.NewFixtureStore(database)).WithClock(clock.Now), database
}

func fixture(id string, entrants int) bracket.Config {
	cfg := bracket.NewConfig()
	cfg.Event = bracket.EventInfo{ID: id, Name: "Event " + id, Slug: id}
	cfg.Phases = []bracket.Phase{{ID: "main", Name: "Main Bracket", BestOf: 3}}
	for i := 1; i <= entrants; i++ {
		cfg.Entrants = append(cfg.Entrants, bracket.EntrantConfig{ID: i, Name: fmt.Sprintf("Player %d", i)})
	}
	return cfg
}

func TestImportAndReset(t *testing.T) {
	svc, database := newTestService(t)
	defer database.Close()
	ctx := context.Background()

	require.NoError(t, svc.ImportFixture(ctx, fixture("cup", 4)))
	// Importing again replaces the fixture
	require.NoError(t, svc.ImportFixture(ctx, fixture("cup", 6)))

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "cup", events[0].ID)

	snap, err := svc.Reset(ctx, "session-a", "cup")
	require.NoError(t, err)
	assert.Len(t, snap.Entrants, 6)
	assert.Equal(t, "Event cup", snap.Event.Name)
}

func TestImportFixture_Invalid(t *testing.T) {
	svc, database := newTestService(t)
	defer database.Close()

	err := svc.ImportFixture(context.Background(), fixture("solo", 1))
	assert.ErrorIs(t, err, bracket.ErrInsufficientEntrants)

	events, err := svc.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestImportFixture_Validation(t *testing.T) {
	svc, database := newTestService(t)
	defer database.Close()
	ctx := context.Background()

	noID := fixture("", 4)
	assert.ErrorIs(t, svc.ImportFixture(ctx, noID), bracket.ErrInvalidConfig)

	badBestOf := fixture("cup", 4)
	badBestOf.Phases[0].BestOf = -2
	assert.ErrorIs(t, svc.ImportFixture(ctx, badBestOf), bracket.ErrInvalidConfig)
}

func TestImportFixture_ReplacesOnFileDatabase(t *testing.T) {
	database, err := db.InitDB(filepath.Join(t.TempDir(), "fixtures.db"))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, db.RunMigrations(database.DB, "file://../../migrations"))

	ctx := context.Background()
	// Keep one pooled connection busy so the import runs on a fresh one
	held, err := database.Conn(ctx)
	require.NoError(t, err)
	defer held.Close()

	fixtures := store.NewFixtureStore(database)
	svc := NewSimService(database, fixtures)
	require.NoError(t, svc.ImportFixture(ctx, fixture("ev", 4)))
	require.NoError(t, svc.ImportFixture(ctx, fixture("ev", 6)))

	cfg, err := fixtures.GetConfig(ctx, "ev")
	require.NoError(t, err)
	assert.Len(t, cfg.Entrants, 6)
}

func TestReset_UnknownEvent(t *testing.T) {
	svc, database := newTestService(t)
	defer database.Close()

	_, err := svc.Reset(context.Background(), "session-a", "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionsAreIsolated(t *testing.T) {
	svc, database := newTestService(t)
	defer database.Close()
	ctx := context.Background()

	require.NoError(t, svc.ImportFixture(ctx, fixture("cup", 4)))
	_, err := svc.Reset(ctx, "a", "cup")
	require.NoError(t, err)
	_, err = svc.Reset(ctx, "b", "cup")
	require.NoError(t, err)

	snap, err := svc.ForceWinner("a", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, bracket.SetCompleted, snap.Sets[0].State)

	other, err := svc.State("b", 0)
	require.NoError(t, err)
	assert.Equal(t, bracket.SetPending, other.Sets[0].State)

	_, err = svc.State("c", 0)
	assert.ErrorIs(t, err, ErrNoSimulation)

	svc.Drop("a")
	_, err = svc.AdvanceSet("a", 1)
	assert.ErrorIs(t, err, ErrNoSimulation)
}

func TestCommandsThroughService(t *testing.T) {
	svc, database := newTestService(t)
	defer database.Close()
	ctx := context.Background()

	require.NoError(t, svc.ImportFixture(ctx, fixture("cup", 4)))
	_, err := svc.Reset(ctx, "s", "cup")
	require.NoError(t, err)

	_, err = svc.StartSet("s", 1)
	require.NoError(t, err)
	_, err = svc.UpdateScores("s", 1, [2]int{1, 0})
	require.NoError(t, err)
	_, err = svc.FinishSet("s", 1, 0, [2]int{2, 0})
	require.NoError(t, err)
	_, err = svc.MarkDisqualified("s", 2, 1)
	require.NoError(t, err)

	snap, err := svc.ResetSet("s", 2)
	require.NoError(t, err)
	assert.Equal(t, bracket.SetCompleted, snap.Sets[0].State)
	assert.Equal(t, bracket.SetPending, snap.Sets[1].State)

	_, err = svc.StepSet("s", 2)
	assert.ErrorIs(t, err, bracket.ErrNoReferenceOutcome)
	_, err = svc.FinalizeSet("s", 2)
	assert.ErrorIs(t, err, bracket.ErrNoReferenceOutcome)

	snap, err = svc.CompleteBracket("s")
	require.NoError(t, err)
	for _, set := range snap.Sets {
		assert.True(t, set.State.Terminal())
	}

	since := snap.NowMs
	snap, err = svc.State("s", since)
	require.NoError(t, err)
	assert.Empty(t, snap.Sets)
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	svc, database := newTestService(t)
	defer database.Close()
	ctx := context.Background()

	cfg := fixture("big", 16)
	cfg.Simulation.ManualMode = false
	require.NoError(t, svc.ImportFixture(ctx, cfg))
	_, err := svc.Reset(ctx, "s", "big")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.State("s", 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := svc.CompleteBracket("s")
	require.NoError(t, err)
	var running int
	for _, set := range snap.Sets {
		if set.State == bracket.SetInProgress {
			running++
		}
	}
	assert.LessOrEqual(t, running, cfg.Simulation.MaxConcurrentSets)
}
