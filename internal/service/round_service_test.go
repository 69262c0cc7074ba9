package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/cfstout/wizard-scoring-app/internal/utils"
	"github.com/cfstout/wizard-scoring-app/internal/wizard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRound_StartsGameOnRoundOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game, err := env.games.CreateGame(ctx, []uuid.UUID{players[0].ID, players[1].ID, players[2].ID})
	require.NoError(t, err)
	for i, p := range players {
		require.NoError(t, env.games.AssignSeat(ctx, game.Game.ID, p.ID, i+1))
	}
	require.Equal(t, wizard.GameSetup, game.Game.Status)

	round, err := env.rounds.CreateRound(ctx, game.Game.ID, 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, round.RoundNumber)
	assert.Equal(t, 1, round.CardsPerPlayer)
	assert.Equal(t, wizard.RoundBidding, round.Status)

	updated, err := env.games.GetGameData(ctx, game.Game.ID.String())
	require.NoError(t, err)
	assert.Equal(t, wizard.GameInProgress, updated.Game.Status)
	assert.NotNil(t, updated.Game.StartedAt)
}

func TestCreateRound_RejectsCardMismatch(t *testing.T) {
	env := newTestEnv(t)

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)

	_, err := env.rounds.CreateRound(context.Background(), game.Game.ID, 2, 3, nil)
	assert.ErrorIs(t, err, ErrCardsRoundMismatch)
}

func TestCreateRound_UnknownGame(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.rounds.CreateRound(context.Background(), uuid.New(), 1, 1, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSubmitBids(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)
	round, err := env.rounds.CreateRound(ctx, game.Game.ID, 1, 1, nil)
	require.NoError(t, err)

	bids := map[uuid.UUID]int{
		players[0].ID: 1,
		players[1].ID: 0,
		players[2].ID: 0,
	}
	updated, err := env.rounds.SubmitBids(ctx, round.ID, bids, utils.Ptr("Hearts"))
	require.NoError(t, err)
	assert.Equal(t, wizard.RoundPlaying, updated.Status)
	require.NotNil(t, updated.TrumpSuit)
	assert.Equal(t, "Hearts", *updated.TrumpSuit)

	data, err := env.rounds.GetRoundData(ctx, round.ID.String())
	require.NoError(t, err)
	require.Len(t, data.Bids, 3)
	for _, b := range data.Bids {
		assert.Equal(t, bids[b.PlayerID], b.BidAmount)
		assert.Nil(t, b.TricksTaken)
		assert.Nil(t, b.Score)
		assert.Equal(t, b.PlayerID, b.Player.ID)
	}

	// Seat 1 deals round 1, seat 2 bids first; the bids cover the one trick
	assert.Equal(t, 1, data.DealerSeat)
	assert.Equal(t, 2, data.FirstBidderSeat)
	assert.Equal(t, 0, data.RemainingTricks)
}

func TestSubmitBids_TrumpFixedOnceSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)
	round, err := env.rounds.CreateRound(ctx, game.Game.ID, 1, 1, nil)
	require.NoError(t, err)

	bids := map[uuid.UUID]int{players[0].ID: 0, players[1].ID: 0, players[2].ID: 1}
	_, err = env.rounds.SubmitBids(ctx, round.ID, bids, utils.Ptr("Spades"))
	require.NoError(t, err)

	updated, err := env.rounds.SubmitBids(ctx, round.ID, bids, utils.Ptr("Clubs"))
	require.NoError(t, err)
	require.NotNil(t, updated.TrumpSuit)
	assert.Equal(t, "Spades", *updated.TrumpSuit)
}

func TestSubmitBids_UnknownRound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.rounds.SubmitBids(context.Background(), uuid.New(), map[uuid.UUID]int{uuid.New(): 1}, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCompleteRound_FirstRound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)
	round, err := env.rounds.CreateRound(ctx, game.Game.ID, 1, 1, nil)
	require.NoError(t, err)

	bids := map[uuid.UUID]int{players[0].ID: 1, players[1].ID: 0, players[2].ID: 0}
	_, err = env.rounds.SubmitBids(ctx, round.ID, bids, nil)
	require.NoError(t, err)

	tricks := map[uuid.UUID]int{players[0].ID: 1, players[1].ID: 0, players[2].ID: 0}
	require.NoError(t, env.rounds.CompleteRound(ctx, round.ID, bids, tricks))

	data, err := env.games.GetGameData(ctx, game.Game.ID.String())
	require.NoError(t, err)

	assert.Equal(t, wizard.GameInProgress, data.Game.Status)
	assert.Equal(t, 2, data.Game.CurrentRound)

	scores := make(map[uuid.UUID]int)
	for _, gp := range data.Players {
		scores[gp.PlayerID] = gp.TotalScore
		assert.Nil(t, gp.Position)
	}
	assert.Equal(t, 30, scores[players[0].ID])
	assert.Equal(t, 20, scores[players[1].ID])
	assert.Equal(t, 20, scores[players[2].ID])

	require.Len(t, data.Rounds, 1)
	assert.Equal(t, wizard.RoundCompleted, data.Rounds[0].Status)
}

// playThrough completes rounds 1..n with the given per-round bid/trick maps.
func playThrough(t *testing.T, env *testEnv, gameID uuid.UUID, players []wizard.Player, rounds int,
	roundInputs func(roundNumber int) (bids, tricks map[uuid.UUID]int)) {
	t.Helper()
	ctx := context.Background()

	for r := 1; r <= rounds; r++ {
		round, err := env.rounds.CreateRound(ctx, gameID, r, r, nil)
		require.NoError(t, err)

		bids, tricks := roundInputs(r)
		_, err = env.rounds.SubmitBids(ctx, round.ID, bids, nil)
		require.NoError(t, err)
		require.NoError(t, env.rounds.CompleteRound(ctx, round.ID, bids, tricks))
	}
}

func TestCompleteRound_FinalRoundFinishesGame(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)
	require.Equal(t, 20, game.Game.TotalRounds)

	// Alice takes every trick and always bids correctly
	playThrough(t, env, game.Game.ID, players, 20, func(r int) (map[uuid.UUID]int, map[uuid.UUID]int) {
		bids := map[uuid.UUID]int{players[0].ID: r, players[1].ID: 0, players[2].ID: 0}
		tricks := map[uuid.UUID]int{players[0].ID: r, players[1].ID: 0, players[2].ID: 0}
		return bids, tricks
	})

	data, err := env.games.GetGameData(ctx, game.Game.ID.String())
	require.NoError(t, err)

	assert.Equal(t, wizard.GameCompleted, data.Game.Status)
	assert.NotNil(t, data.Game.EndedAt)

	byPlayer := make(map[uuid.UUID]GamePlayerData)
	for _, gp := range data.Players {
		require.NotNil(t, gp.Position)
		byPlayer[gp.PlayerID] = gp
	}

	// 20 correct bids at 20+10*r points apiece
	aliceTotal := 0
	for r := 1; r <= 20; r++ {
		aliceTotal += 20 + 10*r
	}
	assert.Equal(t, aliceTotal, byPlayer[players[0].ID].TotalScore)
	assert.Equal(t, 1, *byPlayer[players[0].ID].Position)

	// Bob and Carol each made 20 correct zero bids
	assert.Equal(t, 400, byPlayer[players[1].ID].TotalScore)
	assert.Equal(t, 400, byPlayer[players[2].ID].TotalScore)
}

func TestCompleteRound_TieBrokenBySeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)

	// Same result every round: the final totals all tie
	playThrough(t, env, game.Game.ID, players, 20, func(r int) (map[uuid.UUID]int, map[uuid.UUID]int) {
		bids := map[uuid.UUID]int{players[0].ID: r, players[1].ID: r, players[2].ID: r}
		tricks := map[uuid.UUID]int{players[0].ID: r, players[1].ID: r, players[2].ID: r}
		return bids, tricks
	})

	data, err := env.games.GetGameData(ctx, game.Game.ID.String())
	require.NoError(t, err)
	assert.Equal(t, wizard.GameCompleted, data.Game.Status)

	// Positions follow seat order when scores are equal
	for _, gp := range data.Players {
		require.NotNil(t, gp.Position)
		require.NotNil(t, gp.SeatPosition)
		assert.Equal(t, *gp.SeatPosition, *gp.Position)
	}
}

func TestCompleteRound_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)

	playThrough(t, env, game.Game.ID, players, 20, func(r int) (map[uuid.UUID]int, map[uuid.UUID]int) {
		bids := map[uuid.UUID]int{players[0].ID: r, players[1].ID: 0, players[2].ID: 0}
		tricks := map[uuid.UUID]int{players[0].ID: r, players[1].ID: 0, players[2].ID: 0}
		return bids, tricks
	})

	before, err := env.games.GetGameData(ctx, game.Game.ID.String())
	require.NoError(t, err)

	// Re-complete the final round with identical inputs
	lastRound := before.Rounds[len(before.Rounds)-1]
	bids := map[uuid.UUID]int{players[0].ID: 20, players[1].ID: 0, players[2].ID: 0}
	tricks := map[uuid.UUID]int{players[0].ID: 20, players[1].ID: 0, players[2].ID: 0}
	require.NoError(t, env.rounds.CompleteRound(ctx, lastRound.Round.ID, bids, tricks))

	after, err := env.games.GetGameData(ctx, game.Game.ID.String())
	require.NoError(t, err)

	assert.Equal(t, wizard.GameCompleted, after.Game.Status)
	assert.Equal(t, before.Game.EndedAt, after.Game.EndedAt)
	require.Len(t, after.Players, len(before.Players))
	for i := range before.Players {
		assert.Equal(t, before.Players[i].TotalScore, after.Players[i].TotalScore)
		assert.Equal(t, *before.Players[i].Position, *after.Players[i].Position)
	}

	// Still exactly one bid row per player per round
	for _, rd := range after.Rounds {
		assert.Len(t, rd.Bids, 3)
	}
}

func TestCompleteRound_CorrectionRecomputesTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)

	playThrough(t, env, game.Game.ID, players, 3, func(r int) (map[uuid.UUID]int, map[uuid.UUID]int) {
		bids := map[uuid.UUID]int{players[0].ID: r, players[1].ID: 0, players[2].ID: 0}
		tricks := map[uuid.UUID]int{players[0].ID: r, players[1].ID: 0, players[2].ID: 0}
		return bids, tricks
	})

	data, err := env.games.GetGameData(ctx, game.Game.ID.String())
	require.NoError(t, err)
	// Alice: 30 + 40 + 50
	aliceBefore := totalFor(t, data, players[0].ID)
	require.Equal(t, 120, aliceBefore)

	// Correct round 1: Bob actually took the trick, not Alice
	round1 := data.Rounds[0]
	bids := map[uuid.UUID]int{players[0].ID: 1, players[1].ID: 0, players[2].ID: 0}
	tricks := map[uuid.UUID]int{players[1].ID: 1}
	require.NoError(t, env.rounds.CompleteRound(ctx, round1.Round.ID, bids, tricks))

	corrected, err := env.games.GetGameData(ctx, game.Game.ID.String())
	require.NoError(t, err)

	// Alice's round 1 flips from +30 to -10; Bob's from +20 to -10
	assert.Equal(t, 80, totalFor(t, corrected, players[0].ID))
	assert.Equal(t, 30, totalFor(t, corrected, players[1].ID))
	assert.Equal(t, 60, totalFor(t, corrected, players[2].ID))

	round1After := corrected.Rounds[0]
	assert.Equal(t, wizard.RoundCompleted, round1After.Status)
	for _, b := range round1After.Bids {
		if b.PlayerID == players[1].ID {
			require.NotNil(t, b.TricksTaken)
			assert.Equal(t, 1, *b.TricksTaken)
			require.NotNil(t, b.Score)
			assert.Equal(t, -10, *b.Score)
		}
	}
}

func totalFor(t *testing.T, data *GameData, playerID uuid.UUID) int {
	t.Helper()
	for _, gp := range data.Players {
		if gp.PlayerID == playerID {
			return gp.TotalScore
		}
	}
	t.Fatalf("player %s not in game", playerID)
	return 0
}

func TestCompleteRound_MissingTricksDefaultToZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)
	round, err := env.rounds.CreateRound(ctx, game.Game.ID, 1, 1, nil)
	require.NoError(t, err)

	bids := map[uuid.UUID]int{players[0].ID: 1, players[1].ID: 0, players[2].ID: 0}
	_, err = env.rounds.SubmitBids(ctx, round.ID, bids, nil)
	require.NoError(t, err)

	// Only Alice's tricks supplied; the rest are treated as zero
	require.NoError(t, env.rounds.CompleteRound(ctx, round.ID, bids, map[uuid.UUID]int{players[0].ID: 1}))

	data, err := env.games.GetGameData(ctx, game.Game.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 30, totalFor(t, data, players[0].ID))
	assert.Equal(t, 20, totalFor(t, data, players[1].ID))
	assert.Equal(t, 20, totalFor(t, data, players[2].ID))
}

func TestCompleteRound_UnknownRound(t *testing.T) {
	env := newTestEnv(t)

	err := env.rounds.CompleteRound(context.Background(), uuid.New(), map[uuid.UUID]int{}, map[uuid.UUID]int{})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestUpdateRound_ForwardOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)
	round, err := env.rounds.CreateRound(ctx, game.Game.ID, 1, 1, nil)
	require.NoError(t, err)

	playing := wizard.RoundPlaying
	updated, err := env.rounds.UpdateRound(ctx, round.ID, &playing, utils.Ptr("Diamonds"))
	require.NoError(t, err)
	assert.Equal(t, wizard.RoundPlaying, updated.Status)
	require.NotNil(t, updated.TrumpSuit)
	assert.Equal(t, "Diamonds", *updated.TrumpSuit)

	bidding := wizard.RoundBidding
	_, err = env.rounds.UpdateRound(ctx, round.ID, &bidding, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpsertBid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	players := env.createPlayers(t, "Alice", "Bob", "Carol")
	game := env.startGame(t, players)
	round, err := env.rounds.CreateRound(ctx, game.Game.ID, 1, 1, nil)
	require.NoError(t, err)

	bid, err := env.rounds.UpsertBid(ctx, round.ID, players[0].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, bid.BidAmount)

	bid, err = env.rounds.UpsertBid(ctx, round.ID, players[0].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, bid.BidAmount)

	_, err = env.rounds.UpsertBid(ctx, uuid.New(), players[0].ID, 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
