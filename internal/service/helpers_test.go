package service

import (
	"context"
	"testing"

	"github.com/cfstout/wizard-scoring-app/internal/store"
	"github.com/cfstout/wizard-scoring-app/internal/wizard"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// The in-memory DB lives and dies with its connection
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

type testEnv struct {
	db      *sqlx.DB
	players *PlayerService
	games   *GameService
	rounds  *RoundService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	playerStore := store.NewPlayerStore(db)
	gameStore := store.NewGameStore(db)
	roundStore := store.NewRoundStore(db)

	return &testEnv{
		db:      db,
		players: NewPlayerService(db, playerStore, gameStore),
		games:   NewGameService(db, gameStore, playerStore, roundStore),
		rounds:  NewRoundService(db, roundStore, gameStore, playerStore),
	}
}

func (e *testEnv) createPlayers(t *testing.T, names ...string) []wizard.Player {
	t.Helper()

	players := make([]wizard.Player, 0, len(names))
	for _, name := range names {
		p, err := e.players.CreatePlayer(context.Background(), name)
		require.NoError(t, err)
		players = append(players, *p)
	}
	return players
}

// startGame creates a game, seats the players in the given order, and moves
// it through SEAT_ARRANGEMENT into IN_PROGRESS.
func (e *testEnv) startGame(t *testing.T, players []wizard.Player) *GameData {
	t.Helper()
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}

	game, err := e.games.CreateGame(ctx, ids)
	require.NoError(t, err)

	arranging := wizard.GameSeatArrangement
	_, err = e.games.UpdateGame(ctx, game.Game.ID, &arranging, nil)
	require.NoError(t, err)

	for i, p := range players {
		require.NoError(t, e.games.AssignSeat(ctx, game.Game.ID, p.ID, i+1))
	}

	inProgress := wizard.GameInProgress
	updated, err := e.games.UpdateGame(ctx, game.Game.ID, &inProgress, nil)
	require.NoError(t, err)
	return updated
}
